package va

import "math"

// GenericID is the raw form of every object identifier.
type GenericID = uint32

// Object identifiers. Each kind is a distinct type so that the compiler
// catches most cross-kind mistakes; the registry catches the rest at runtime.
type (
	ConfigID     uint32
	ContextID    uint32
	SurfaceID    uint32
	BufferID     uint32
	ImageID      uint32
	SubpictureID uint32
	MFContextID  uint32
)

// InvalidID is never issued for any object kind.
const InvalidID GenericID = 0xFFFFFFFF

// Invalid sentinels per kind.
const (
	InvalidConfig     = ConfigID(InvalidID)
	InvalidContext    = ContextID(InvalidID)
	InvalidSurface    = SurfaceID(InvalidID)
	InvalidBuffer     = BufferID(InvalidID)
	InvalidImage      = ImageID(InvalidID)
	InvalidSubpicture = SubpictureID(InvalidID)
)

// TimeoutInfinite disables the bound of a timed wait.
const TimeoutInfinite uint64 = math.MaxUint64

// Library version reported by Session.Version.
const (
	VersionMajor = 1
	VersionMinor = 22
)

// Padding sizes of fixed ABI structures.
const (
	PaddingLow    = 4
	PaddingMedium = 8
	PaddingHigh   = 16
	PaddingLarge  = 32
)

// Picture structure flags used by context creation.
const (
	FramePicture     = 0x00000000
	TopField         = 0x00000001
	BottomField      = 0x00000002
	TopFieldFirst    = 0x00000004
	BottomFieldFirst = 0x00000008
)

// ContextFlagProgressive requests a progressive-only context.
const ContextFlagProgressive = 0x1

// Execution modes.
const (
	ExecSync  = 0x0
	ExecAsync = 0x1
)

// Rectangle is a region in surface coordinates.
type Rectangle struct {
	X      int16
	Y      int16
	Width  uint16
	Height uint16
}
