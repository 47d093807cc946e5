package ports

import (
	"context"
	"image"

	"github.com/user/vacore/pkg/va"
)

// Accelerator abstracts the execution backend behind the engine.
// The engine hands it one frame at a time and never looks inside
// buffer payloads; codec semantics live entirely in the backend.
type Accelerator interface {
	// Capabilities describes what the backend can execute.
	// It is read once when a session is initialized.
	Capabilities() Capabilities

	// Execute runs one frame. It is called from a dispatcher worker, never
	// concurrently for the same context. Content failures are returned as
	// errors wrapping va.ErrDecodingError or va.ErrEncodingError, with
	// region detail in Result.MBErrors.
	Execute(ctx context.Context, job *Job) (Result, error)

	// Transfer copies a region of one frame into a region of another,
	// converting pixel format and scaling as needed.
	Transfer(ctx context.Context, req TransferRequest) error
}

// Capabilities is the static capability table of a backend.
type Capabilities struct {
	Codecs []CodecCaps

	MinWidth  uint32
	MinHeight uint32
	MaxWidth  uint32
	MaxHeight uint32

	// MemoryTypes is a mask of va.MemType* values surfaces may use.
	MemoryTypes uint32

	ImageFormats      []va.ImageFormat
	SubpictureFormats []va.ImageFormat
	// SubpictureFlags holds the va.Subpicture* flags per subpicture format.
	SubpictureFlags   []uint32
	DisplayAttributes []va.DisplayAttribute
}

// CodecCaps is one supported (profile, entrypoint) pair.
type CodecCaps struct {
	Profile    va.Profile
	Entrypoint va.Entrypoint
	Attribs    []AttribCaps
}

// AttribCaps describes one config attribute of a (profile, entrypoint) pair.
// Supported is what GetConfigAttributes reports; Default is the value a
// config gets when the caller does not set the attribute.
type AttribCaps struct {
	Type      va.ConfigAttribType
	Supported uint32
	Default   uint32
}

// FrameRef points at the memory of a surface or image.
type FrameRef struct {
	Layout va.Layout
	Data   []byte
}

// JobBuffer is one rendered buffer, in submission order.
type JobBuffer struct {
	ID          va.BufferID
	Type        va.BufferType
	ElementSize uint32
	NumElements uint32
	Data        []byte
}

// Job is one frame handed to the backend.
type Job struct {
	Context    va.ContextID
	Profile    va.Profile
	Entrypoint va.Entrypoint
	Attribs    []va.ConfigAttrib

	// Width and Height are the picture size of the context.
	Width  uint32
	Height uint32

	Target  va.SurfaceID
	Surface FrameRef
	Buffers []JobBuffer
}

// Result reports the outcome of one frame.
type Result struct {
	// SurfaceStatus is the status the target surface settles in,
	// va.SurfaceReady or va.SurfaceSkipped. Zero means ready.
	SurfaceStatus va.SurfaceStatus

	MBErrors []va.SurfaceDecodeMBErrors

	// Coded holds the output segments written into CodedBuffer.
	// Segment Buf slices alias the coded buffer's memory.
	CodedBuffer va.BufferID
	Coded       []va.CodedBufferSegment
}

// TransferRequest describes a GetImage or PutImage copy.
type TransferRequest struct {
	Src     FrameRef
	SrcRect image.Rectangle
	Dst     FrameRef
	DstRect image.Rectangle
}
