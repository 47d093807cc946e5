package pipeline

import (
	"image"
	"image/color"

	"github.com/user/vacore/pkg/va"
)

// Frame is one picture of a clip.
type Frame struct {
	TimestampMs int
	Image       image.Image
}

// =============================================================================
// Pattern Stage Types
// =============================================================================

// PatternInput contains parameters for test pattern generation.
type PatternInput struct {
	Width  int
	Height int
	Frames int
	FPS    float64
	Label  string // Drawn in the caption band
	Theme  PatternTheme
}

// PatternTheme defines pattern styling.
type PatternTheme struct {
	BackgroundColor color.Color
	Bars            []color.Color
	MarkerColor     color.Color
	TextColor       color.Color
	FontPath        string
}

// DefaultPatternTheme returns the classic seven colour bars on dark grey.
func DefaultPatternTheme() PatternTheme {
	return PatternTheme{
		BackgroundColor: color.RGBA{R: 30, G: 30, B: 30, A: 255},
		Bars: []color.Color{
			color.RGBA{R: 192, G: 192, B: 192, A: 255},
			color.RGBA{R: 192, G: 192, B: 0, A: 255},
			color.RGBA{R: 0, G: 192, B: 192, A: 255},
			color.RGBA{R: 0, G: 192, B: 0, A: 255},
			color.RGBA{R: 192, G: 0, B: 192, A: 255},
			color.RGBA{R: 192, G: 0, B: 0, A: 255},
			color.RGBA{R: 0, G: 0, B: 192, A: 255},
		},
		MarkerColor: color.White,
		TextColor:   color.RGBA{R: 235, G: 235, B: 235, A: 255},
	}
}

// DefaultPatternInput returns PatternInput with default values.
func DefaultPatternInput() PatternInput {
	return PatternInput{
		Width:  320,
		Height: 240,
		Frames: 30,
		FPS:    30.0,
		Theme:  DefaultPatternTheme(),
	}
}

// PatternResult contains the rendered frames.
type PatternResult struct {
	Frames []Frame
}

// =============================================================================
// Encode Stage Types
// =============================================================================

// EncodeInput contains parameters for video encoding.
type EncodeInput struct {
	Frames   []Frame
	OutroMs  int        // Duration to hold the last frame
	FPS      float64    // Frames per second
	Profile  va.Profile // Zero value or va.ProfileNone selects constrained baseline
	LevelIDC int
	Surfaces int // Frames kept in flight by the encoder
}

// DefaultEncodeInput returns EncodeInput with default values.
func DefaultEncodeInput() EncodeInput {
	return EncodeInput{
		OutroMs:  0,
		FPS:      30.0,
		Profile:  va.ProfileH264ConstrainedBaseline,
		LevelIDC: 0,
		Surfaces: 4,
	}
}

// EncodeResult contains the encoded video.
type EncodeResult struct {
	VideoData  []byte
	FrameCount int
	DurationMs int
	FileSize   int64
}

// =============================================================================
// Verify Stage Types
// =============================================================================

// VerifyInput contains the encoded video and the pictures it was made from.
type VerifyInput struct {
	VideoData []byte
	Reference []Frame
	MinPSNR   float64 // Passing threshold in dB
}

// VerifyResult contains the comparison of decoded and reference frames.
type VerifyResult struct {
	Frames        []Frame // Decoded pictures
	Compared      int
	DamagedFrames int     // Frames the decoder reported macroblock errors for
	MeanPSNR      float64 // dB, capped at MaxPSNR
	MinPSNR       float64
	MaxAbsError   int
	Passed        bool
}

// MaxPSNR is reported for identical pictures.
const MaxPSNR = 100.0
