package va

// SurfaceStatus is the state of a surface as reported by QuerySurfaceStatus.
type SurfaceStatus int32

// Surface states.
const (
	SurfaceRendering  SurfaceStatus = 1
	SurfaceDisplaying SurfaceStatus = 2
	SurfaceReady      SurfaceStatus = 4
	SurfaceSkipped    SurfaceStatus = 8
)

func (s SurfaceStatus) String() string {
	switch s {
	case SurfaceRendering:
		return "rendering"
	case SurfaceDisplaying:
		return "displaying"
	case SurfaceReady:
		return "ready"
	case SurfaceSkipped:
		return "skipped"
	}
	return "unknown"
}

// DecodeErrorType classifies a decode error region.
type DecodeErrorType int32

const (
	DecodeSliceMissing DecodeErrorType = 0
	DecodeMBError      DecodeErrorType = 1
)

// SurfaceDecodeMBErrors is one macroblock error range reported after a
// DecodingError or EncodingError.
type SurfaceDecodeMBErrors struct {
	// Status is 1 when the hardware filled in the record.
	Status          int32
	StartMB         uint32
	EndMB           uint32
	DecodeErrorType DecodeErrorType
	NumMB           uint32
}

// Export flags for ExportSurfaceHandle.
const (
	ExportSurfaceReadOnly       uint32 = 0x0001
	ExportSurfaceWriteOnly      uint32 = 0x0002
	ExportSurfaceReadWrite      uint32 = 0x0003
	ExportSurfaceSeparateLayers uint32 = 0x0004
	ExportSurfaceComposedLayers uint32 = 0x0008
)

// DescriptorObject is one memory object of an exported surface.
type DescriptorObject struct {
	Handle uintptr
	Size   uint32
	Data   []byte
}

// DescriptorLayer describes the planes of one layer of an exported surface.
type DescriptorLayer struct {
	FourCC      uint32
	NumPlanes   uint32
	ObjectIndex [4]uint32
	Offset      [4]uint32
	Pitch       [4]uint32
}

// SurfaceDescriptor describes exported surface memory.
type SurfaceDescriptor struct {
	FourCC  uint32
	Width   uint32
	Height  uint32
	Objects []DescriptorObject
	Layers  []DescriptorLayer
}

// Subpicture flags.
const (
	SubpictureChromaKeying             uint32 = 0x0001
	SubpictureGlobalAlpha              uint32 = 0x0002
	SubpictureDestinationIsScreenCoord uint32 = 0x0004
)

// DisplayAttribType identifies a display attribute.
type DisplayAttribType int32

const (
	DisplayAttribBrightness DisplayAttribType = 0
	DisplayAttribContrast   DisplayAttribType = 1
	DisplayAttribHue        DisplayAttribType = 2
	DisplayAttribSaturation DisplayAttribType = 3
	DisplayAttribRotation   DisplayAttribType = 6
	DisplayAttribRenderMode DisplayAttribType = 16
)

// Display attribute flags.
const (
	DisplayAttribNotSupported uint32 = 0x0000
	DisplayAttribGettable     uint32 = 0x0001
	DisplayAttribSettable     uint32 = 0x0002
)

// DisplayAttribute is one display attribute with its bounds.
type DisplayAttribute struct {
	Type     DisplayAttribType
	MinValue int32
	MaxValue int32
	Value    int32
	Flags    uint32
}
