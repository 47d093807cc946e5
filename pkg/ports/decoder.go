package ports

import (
	"context"
	"image"
	"io"

	"github.com/user/vacore/pkg/va"
)

// VideoFrame represents a decoded video frame with timing information.
type VideoFrame struct {
	Image       image.Image
	TimestampMs int
	Duration    int // Duration in milliseconds

	// MBErrors lists the macroblock ranges the decoder could not
	// reconstruct. The image is still returned for such frames.
	MBErrors []va.SurfaceDecodeMBErrors
}

// VideoDecoder abstracts video decoding operations.
type VideoDecoder interface {
	// ReadFrames reads and decodes all frames from a video file.
	ReadFrames(ctx context.Context, path string) ([]VideoFrame, error)

	// ReadFramesFromReader reads and decodes all frames from an io.ReadSeeker.
	ReadFramesFromReader(ctx context.Context, reader io.ReadSeeker) ([]VideoFrame, error)

	// Close releases decoder resources.
	Close()
}
