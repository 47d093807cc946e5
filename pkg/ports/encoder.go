package ports

import (
	"context"
	"image"

	"github.com/user/vacore/pkg/va"
)

// VideoEncoder abstracts video encoding operations.
type VideoEncoder interface {
	// Begin initializes the encoder with the specified dimensions and frame rate.
	Begin(width, height int, fps float64, opts EncoderOptions) error

	// EncodeFrame encodes a single frame at the specified timestamp.
	// The encoder may return before the frame has been coded.
	EncodeFrame(ctx context.Context, img image.Image, timestampMs int) error

	// End waits for outstanding frames, finalizes encoding and returns the
	// video data.
	End(ctx context.Context) ([]byte, error)
}

// EncoderOptions configures video encoding parameters.
type EncoderOptions struct {
	// Profile is the H.264 profile. The zero value and va.ProfileNone
	// select constrained baseline.
	Profile va.Profile
	// LevelIDC is the H.264 level_idc; zero picks one from the picture size.
	LevelIDC int
	// Surfaces is the number of pictures that may be in flight at once.
	Surfaces int
}
