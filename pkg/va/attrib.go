package va

import "fmt"

// ConfigAttribType identifies a config attribute.
type ConfigAttribType int32

// Config attribute types.
const (
	ConfigAttribRTFormat          ConfigAttribType = 0
	ConfigAttribSpatialResidual   ConfigAttribType = 1
	ConfigAttribSpatialClipping   ConfigAttribType = 2
	ConfigAttribIntraResidual     ConfigAttribType = 3
	ConfigAttribEncryption        ConfigAttribType = 4
	ConfigAttribRateControl       ConfigAttribType = 5
	ConfigAttribDecSliceMode      ConfigAttribType = 6
	ConfigAttribDecJPEG           ConfigAttribType = 7
	ConfigAttribDecProcessing     ConfigAttribType = 8
	ConfigAttribEncPackedHeaders  ConfigAttribType = 10
	ConfigAttribEncInterlaced     ConfigAttribType = 11
	ConfigAttribEncMaxRefFrames   ConfigAttribType = 13
	ConfigAttribEncMaxSlices      ConfigAttribType = 14
	ConfigAttribEncSliceStructure ConfigAttribType = 15
	ConfigAttribEncMacroblockInfo ConfigAttribType = 16
	ConfigAttribMaxPictureWidth   ConfigAttribType = 18
	ConfigAttribMaxPictureHeight  ConfigAttribType = 19
	ConfigAttribEncJPEG           ConfigAttribType = 20
	ConfigAttribEncQualityRange   ConfigAttribType = 21
	ConfigAttribEncQuantization   ConfigAttribType = 22
	ConfigAttribEncIntraRefresh   ConfigAttribType = 23
	ConfigAttribEncSkipFrame      ConfigAttribType = 24
	ConfigAttribEncROI            ConfigAttribType = 25
	ConfigAttribEncRateControlExt ConfigAttribType = 26
	ConfigAttribProcessingRate    ConfigAttribType = 27
	ConfigAttribEncDirtyRect      ConfigAttribType = 28
	ConfigAttribMultipleFrame     ConfigAttribType = 40
	ConfigAttribContextPriority   ConfigAttribType = 41
	ConfigAttribTypeMax           ConfigAttribType = 52
)

var configAttribNames = map[ConfigAttribType]string{
	ConfigAttribRTFormat:          "VAConfigAttribRTFormat",
	ConfigAttribSpatialResidual:   "VAConfigAttribSpatialResidual",
	ConfigAttribSpatialClipping:   "VAConfigAttribSpatialClipping",
	ConfigAttribIntraResidual:     "VAConfigAttribIntraResidual",
	ConfigAttribEncryption:        "VAConfigAttribEncryption",
	ConfigAttribRateControl:       "VAConfigAttribRateControl",
	ConfigAttribDecSliceMode:      "VAConfigAttribDecSliceMode",
	ConfigAttribDecJPEG:           "VAConfigAttribDecJPEG",
	ConfigAttribDecProcessing:     "VAConfigAttribDecProcessing",
	ConfigAttribEncPackedHeaders:  "VAConfigAttribEncPackedHeaders",
	ConfigAttribEncInterlaced:     "VAConfigAttribEncInterlaced",
	ConfigAttribEncMaxRefFrames:   "VAConfigAttribEncMaxRefFrames",
	ConfigAttribEncMaxSlices:      "VAConfigAttribEncMaxSlices",
	ConfigAttribEncSliceStructure: "VAConfigAttribEncSliceStructure",
	ConfigAttribEncMacroblockInfo: "VAConfigAttribEncMacroblockInfo",
	ConfigAttribMaxPictureWidth:   "VAConfigAttribMaxPictureWidth",
	ConfigAttribMaxPictureHeight:  "VAConfigAttribMaxPictureHeight",
	ConfigAttribEncJPEG:           "VAConfigAttribEncJPEG",
	ConfigAttribEncQualityRange:   "VAConfigAttribEncQualityRange",
	ConfigAttribEncQuantization:   "VAConfigAttribEncQuantization",
	ConfigAttribEncIntraRefresh:   "VAConfigAttribEncIntraRefresh",
	ConfigAttribEncSkipFrame:      "VAConfigAttribEncSkipFrame",
	ConfigAttribEncROI:            "VAConfigAttribEncROI",
	ConfigAttribEncRateControlExt: "VAConfigAttribEncRateControlExt",
	ConfigAttribProcessingRate:    "VAConfigAttribProcessingRate",
	ConfigAttribEncDirtyRect:      "VAConfigAttribEncDirtyRect",
	ConfigAttribMultipleFrame:     "VAConfigAttribMultipleFrame",
	ConfigAttribContextPriority:   "VAConfigAttribContextPriority",
}

func (t ConfigAttribType) String() string {
	if name, ok := configAttribNames[t]; ok {
		return name
	}
	return fmt.Sprintf("VAConfigAttrib(%d)", int32(t))
}

// AttribNotSupported is reported by GetConfigAttributes for attributes the
// (profile, entrypoint) pair does not implement.
const AttribNotSupported uint32 = 0x80000000

// ConfigAttrib is one (type, value) pair of a config.
type ConfigAttrib struct {
	Type  ConfigAttribType
	Value uint32
}

// RT formats, used as bit masks in ConfigAttribRTFormat.
const (
	RTFormatYUV420    uint32 = 0x00000001
	RTFormatYUV422    uint32 = 0x00000002
	RTFormatYUV444    uint32 = 0x00000004
	RTFormatYUV411    uint32 = 0x00000008
	RTFormatYUV400    uint32 = 0x00000010
	RTFormatYUV420_10 uint32 = 0x00000100
	RTFormatYUV422_10 uint32 = 0x00000200
	RTFormatYUV444_10 uint32 = 0x00000400
	RTFormatYUV420_12 uint32 = 0x00001000
	RTFormatYUV422_12 uint32 = 0x00002000
	RTFormatYUV444_12 uint32 = 0x00004000
	RTFormatRGB16     uint32 = 0x00010000
	RTFormatRGB32     uint32 = 0x00020000
	RTFormatRGBP      uint32 = 0x00100000
	RTFormatRGB32_10  uint32 = 0x00200000
	RTFormatProtected uint32 = 0x80000000
)

// Rate control modes, used as bit masks in ConfigAttribRateControl.
const (
	RCNone     uint32 = 0x00000001
	RCCBR      uint32 = 0x00000002
	RCVBR      uint32 = 0x00000004
	RCVCM      uint32 = 0x00000008
	RCCQP      uint32 = 0x00000010
	RCVBRCon   uint32 = 0x00000020
	RCICQ      uint32 = 0x00000040
	RCMB       uint32 = 0x00000080
	RCCFS      uint32 = 0x00000100
	RCParallel uint32 = 0x00000200
	RCQVBR     uint32 = 0x00000400
	RCAVBR     uint32 = 0x00000800
)

// Packed header kinds, used as bit masks in ConfigAttribEncPackedHeaders.
const (
	EncPackedHeaderNone     uint32 = 0x00000000
	EncPackedHeaderSequence uint32 = 0x00000001
	EncPackedHeaderPicture  uint32 = 0x00000002
	EncPackedHeaderSlice    uint32 = 0x00000004
	EncPackedHeaderMisc     uint32 = 0x00000008
	EncPackedHeaderRawData  uint32 = 0x00000010
)

// Slice decoding modes for ConfigAttribDecSliceMode.
const (
	DecSliceModeNormal uint32 = 0x00000001
	DecSliceModeBase   uint32 = 0x00000002
)

// GenericValueType tags the variant of a GenericValue.
type GenericValueType int32

const (
	GenericValueTypeInteger GenericValueType = 1
	GenericValueTypeFloat   GenericValueType = 2
	GenericValueTypePointer GenericValueType = 3
	GenericValueTypeFunc    GenericValueType = 4
)

// GenericValue is a closed sum type: IntValue, FloatValue, PointerValue or
// FuncValue. Pointer and function payloads are carried, never inspected.
type GenericValue interface {
	Type() GenericValueType
	isGenericValue()
}

// IntValue is the integer variant of GenericValue.
type IntValue int32

// FloatValue is the float variant of GenericValue.
type FloatValue float32

// PointerValue is the pointer variant of GenericValue.
type PointerValue struct{ Ptr any }

// FuncValue is the function variant of GenericValue.
type FuncValue struct{ Fn func() }

func (IntValue) Type() GenericValueType     { return GenericValueTypeInteger }
func (FloatValue) Type() GenericValueType   { return GenericValueTypeFloat }
func (PointerValue) Type() GenericValueType { return GenericValueTypePointer }
func (FuncValue) Type() GenericValueType    { return GenericValueTypeFunc }

func (IntValue) isGenericValue()     {}
func (FloatValue) isGenericValue()   {}
func (PointerValue) isGenericValue() {}
func (FuncValue) isGenericValue()    {}

// SurfaceAttribType identifies a surface attribute.
type SurfaceAttribType int32

// Surface attribute types.
const (
	SurfaceAttribNone SurfaceAttribType = iota
	SurfaceAttribPixelFormat
	SurfaceAttribMinWidth
	SurfaceAttribMaxWidth
	SurfaceAttribMinHeight
	SurfaceAttribMaxHeight
	SurfaceAttribMemoryType
	SurfaceAttribExternalBufferDescriptor
	SurfaceAttribUsageHint
	SurfaceAttribDRMFormatModifiers
	SurfaceAttribCount
)

var surfaceAttribNames = [...]string{
	"VASurfaceAttribNone",
	"VASurfaceAttribPixelFormat",
	"VASurfaceAttribMinWidth",
	"VASurfaceAttribMaxWidth",
	"VASurfaceAttribMinHeight",
	"VASurfaceAttribMaxHeight",
	"VASurfaceAttribMemoryType",
	"VASurfaceAttribExternalBufferDescriptor",
	"VASurfaceAttribUsageHint",
	"VASurfaceAttribDRMFormatModifiers",
}

func (t SurfaceAttribType) String() string {
	if t >= 0 && int(t) < len(surfaceAttribNames) {
		return surfaceAttribNames[t]
	}
	return fmt.Sprintf("VASurfaceAttrib(%d)", int32(t))
}

// Surface attribute flags.
const (
	SurfaceAttribNotSupported uint32 = 0x00000000
	SurfaceAttribGettable     uint32 = 0x00000001
	SurfaceAttribSettable     uint32 = 0x00000002
)

// SurfaceAttrib is one surface attribute with its access flags.
type SurfaceAttrib struct {
	Type  SurfaceAttribType
	Flags uint32
	Value GenericValue
}

// Memory types for SurfaceAttribMemoryType and buffer export.
const (
	MemTypeVA      uint32 = 0x00000001
	MemTypeV4L2    uint32 = 0x00000002
	MemTypeUserPtr uint32 = 0x00000004
)

// Usage hints for SurfaceAttribUsageHint.
const (
	UsageHintGeneric  uint32 = 0x00000000
	UsageHintDecoder  uint32 = 0x00000001
	UsageHintEncoder  uint32 = 0x00000002
	UsageHintVPPRead  uint32 = 0x00000004
	UsageHintVPPWrite uint32 = 0x00000008
	UsageHintDisplay  uint32 = 0x00000010
	UsageHintExport   uint32 = 0x00000020
)

// External buffer descriptor flags.
const (
	ExtBufDescEnableTiling uint32 = 0x00000001
	ExtBufDescCached       uint32 = 0x00000002
	ExtBufDescUncached     uint32 = 0x00000004
	ExtBufDescWC           uint32 = 0x00000008
	ExtBufDescProtected    uint32 = 0x80000000
)

// ExternalBuffers describes caller-owned memory to import as surfaces.
// It is passed as the PointerValue of SurfaceAttribExternalBufferDescriptor.
// Buffers holds one backing slice per surface to create.
type ExternalBuffers struct {
	PixelFormat uint32
	Width       uint32
	Height      uint32
	DataSize    uint32
	NumPlanes   uint32
	Pitches     [4]uint32
	Offsets     [4]uint32
	Buffers     [][]byte
	Flags       uint32
}
