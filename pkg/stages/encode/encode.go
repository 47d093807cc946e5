// Package encode implements the video encoding stage.
package encode

import (
	"context"
	"fmt"

	"github.com/user/vacore/pkg/pipeline"
	"github.com/user/vacore/pkg/ports"
)

// Stage encodes frames into an H.264 MP4.
type Stage struct {
	encoder ports.VideoEncoder
	logger  ports.Logger
}

// NewStage creates a new encode stage.
func NewStage(encoder ports.VideoEncoder, logger ports.Logger) *Stage {
	return &Stage{
		encoder: encoder,
		logger:  logger.WithComponent("encode"),
	}
}

// Execute encodes all frames into a video.
func (s *Stage) Execute(ctx context.Context, input pipeline.EncodeInput) (pipeline.EncodeResult, error) {
	result := pipeline.EncodeResult{}

	if len(input.Frames) == 0 {
		return result, fmt.Errorf("no frames to encode")
	}
	if input.FPS <= 0 {
		return result, fmt.Errorf("invalid frame rate %v", input.FPS)
	}

	// Get dimensions from first frame
	bounds := input.Frames[0].Image.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	opts := ports.EncoderOptions{
		Profile:  input.Profile,
		LevelIDC: input.LevelIDC,
		Surfaces: input.Surfaces,
	}
	if err := s.encoder.Begin(width, height, input.FPS, opts); err != nil {
		return result, fmt.Errorf("begin encoding: %w", err)
	}

	for _, frame := range input.Frames {
		if err := ctx.Err(); err != nil {
			// End releases the session objects Begin created.
			s.encoder.End(context.Background())
			return result, err
		}
		if b := frame.Image.Bounds(); b.Dx() != width || b.Dy() != height {
			s.encoder.End(context.Background())
			return result, fmt.Errorf("frame at %dms is %dx%d, expected %dx%d",
				frame.TimestampMs, b.Dx(), b.Dy(), width, height)
		}
		if err := s.encoder.EncodeFrame(ctx, frame.Image, frame.TimestampMs); err != nil {
			s.encoder.End(context.Background())
			return result, fmt.Errorf("encode frame at %dms: %w", frame.TimestampMs, err)
		}
	}
	count := len(input.Frames)

	// Add outro (hold last frame)
	last := input.Frames[len(input.Frames)-1]
	endTs := last.TimestampMs
	if input.OutroMs > 0 {
		endTs += input.OutroMs
		if err := s.encoder.EncodeFrame(ctx, last.Image, endTs); err != nil {
			s.encoder.End(context.Background())
			return result, fmt.Errorf("encode outro frame: %w", err)
		}
		count++
	}

	data, err := s.encoder.End(ctx)
	if err != nil {
		return result, fmt.Errorf("end encoding: %w", err)
	}
	s.logger.Debug("Encoded %d frames into %d bytes", count, len(data))

	result.VideoData = data
	result.FrameCount = count
	result.DurationMs = endTs + int(1000/input.FPS)
	result.FileSize = int64(len(data))

	return result, nil
}
