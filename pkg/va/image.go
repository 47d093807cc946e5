package va

import "fmt"

// FourCC builds a little-endian four character code.
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// Pre-defined fourcc codes.
const (
	FourCCNV12 uint32 = 0x3231564e
	FourCCNV21 uint32 = 0x3132564e
	FourCCI420 uint32 = 0x30323449
	FourCCYV12 uint32 = 0x32315659
	FourCCYUY2 uint32 = 0x32595559
	FourCCUYVY uint32 = 0x59565955
	FourCCAYUV uint32 = 0x56555941
	FourCCY800 uint32 = 0x30303859
	FourCCP010 uint32 = 0x30313050
	FourCCRGBA uint32 = 0x41424752
	FourCCRGBX uint32 = 0x58424752
	FourCCBGRA uint32 = 0x41524742
	FourCCBGRX uint32 = 0x58524742
	FourCCARGB uint32 = 0x42475241
	FourCCXRGB uint32 = 0x42475258
	FourCCABGR uint32 = 0x52474241
	FourCCXBGR uint32 = 0x52474258

	// Single-plane layer codes used when exporting separate layers.
	FourCCR8   uint32 = 0x20203852
	FourCCGR88 uint32 = 0x38385247
)

// FourCCString renders a fourcc as its four characters.
func FourCCString(f uint32) string {
	b := []byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("%#08x", f)
		}
	}
	return string(b)
}

// Byte orders.
const (
	LSBFirst = 1
	MSBFirst = 2
)

// ImageFormat describes a client-visible pixel layout.
type ImageFormat struct {
	FourCC       uint32
	ByteOrder    uint32
	BitsPerPixel uint32
	Depth        uint32
	RedMask      uint32
	GreenMask    uint32
	BlueMask     uint32
	AlphaMask    uint32
}

// Image is a client-visible pixel buffer. Its bytes live in buffer Buf,
// accessed through MapBuffer.
type Image struct {
	ID        ImageID
	Format    ImageFormat
	Buf       BufferID
	Width     uint16
	Height    uint16
	DataSize  uint32
	NumPlanes uint32
	Pitches   [3]uint32
	Offsets   [3]uint32
}

// Layout is the plane arrangement of a frame in memory.
type Layout struct {
	FourCC    uint32
	Width     uint32
	Height    uint32
	NumPlanes uint32
	Pitches   [3]uint32
	Offsets   [3]uint32
	DataSize  uint32
}

// PitchAlignment is the row alignment used for engine-allocated memory.
const PitchAlignment = 16

func align(v, a uint32) uint32 {
	return (v + a - 1) &^ (a - 1)
}

// ComputeLayout returns the plane layout of a width x height frame in the
// given fourcc, or false if the fourcc is not a known layout.
func ComputeLayout(fourcc uint32, width, height uint32) (Layout, bool) {
	l := Layout{FourCC: fourcc, Width: width, Height: height}
	chromaH := (height + 1) / 2
	switch fourcc {
	case FourCCNV12, FourCCNV21:
		pitch := align(width, PitchAlignment)
		l.NumPlanes = 2
		l.Pitches = [3]uint32{pitch, pitch}
		l.Offsets = [3]uint32{0, pitch * height}
		l.DataSize = pitch*height + pitch*chromaH
	case FourCCP010:
		pitch := align(width*2, PitchAlignment)
		l.NumPlanes = 2
		l.Pitches = [3]uint32{pitch, pitch}
		l.Offsets = [3]uint32{0, pitch * height}
		l.DataSize = pitch*height + pitch*chromaH
	case FourCCI420, FourCCYV12:
		pitch := align(width, PitchAlignment)
		cpitch := align((width+1)/2, PitchAlignment)
		l.NumPlanes = 3
		l.Pitches = [3]uint32{pitch, cpitch, cpitch}
		l.Offsets = [3]uint32{0, pitch * height, pitch*height + cpitch*chromaH}
		l.DataSize = pitch*height + 2*cpitch*chromaH
	case FourCCY800:
		pitch := align(width, PitchAlignment)
		l.NumPlanes = 1
		l.Pitches = [3]uint32{pitch}
		l.DataSize = pitch * height
	case FourCCYUY2, FourCCUYVY:
		pitch := align(width*2, PitchAlignment)
		l.NumPlanes = 1
		l.Pitches = [3]uint32{pitch}
		l.DataSize = pitch * height
	case FourCCAYUV, FourCCRGBA, FourCCRGBX, FourCCBGRA, FourCCBGRX,
		FourCCARGB, FourCCXRGB, FourCCABGR, FourCCXBGR:
		pitch := align(width*4, PitchAlignment)
		l.NumPlanes = 1
		l.Pitches = [3]uint32{pitch}
		l.DataSize = pitch * height
	default:
		return Layout{}, false
	}
	return l, true
}

// RTFormatOf maps a fourcc to the render-target format class it belongs to.
func RTFormatOf(fourcc uint32) (uint32, bool) {
	switch fourcc {
	case FourCCNV12, FourCCNV21, FourCCI420, FourCCYV12:
		return RTFormatYUV420, true
	case FourCCP010:
		return RTFormatYUV420_10, true
	case FourCCYUY2, FourCCUYVY:
		return RTFormatYUV422, true
	case FourCCAYUV:
		return RTFormatYUV444, true
	case FourCCY800:
		return RTFormatYUV400, true
	case FourCCRGBA, FourCCRGBX, FourCCBGRA, FourCCBGRX,
		FourCCARGB, FourCCXRGB, FourCCABGR, FourCCXBGR:
		return RTFormatRGB32, true
	}
	return 0, false
}

// DefaultFourCC is the fourcc a surface of the given RT format gets when
// the caller does not request one.
func DefaultFourCC(rtFormat uint32) (uint32, bool) {
	switch rtFormat {
	case RTFormatYUV420:
		return FourCCNV12, true
	case RTFormatYUV420_10:
		return FourCCP010, true
	case RTFormatYUV422:
		return FourCCYUY2, true
	case RTFormatYUV444:
		return FourCCAYUV, true
	case RTFormatYUV400:
		return FourCCY800, true
	case RTFormatRGB32:
		return FourCCBGRA, true
	}
	return 0, false
}
