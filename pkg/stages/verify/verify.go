// Package verify implements the decode-and-compare stage.
package verify

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"

	"github.com/user/vacore/pkg/pipeline"
	"github.com/user/vacore/pkg/ports"
)

// Stage decodes an encoded clip and compares it with the pictures it was
// made from.
type Stage struct {
	decoder ports.VideoDecoder
	sink    ports.DebugSink
	logger  ports.Logger
}

// NewStage creates a new verify stage.
func NewStage(decoder ports.VideoDecoder, sink ports.DebugSink, logger ports.Logger) *Stage {
	return &Stage{
		decoder: decoder,
		sink:    sink,
		logger:  logger.WithComponent("verify"),
	}
}

// Execute decodes input.VideoData and measures it against input.Reference.
// Decoded frames past the reference, such as an outro, are not compared.
func (s *Stage) Execute(ctx context.Context, input pipeline.VerifyInput) (pipeline.VerifyResult, error) {
	result := pipeline.VerifyResult{}

	decoded, err := s.decoder.ReadFramesFromReader(ctx, bytes.NewReader(input.VideoData))
	if err != nil {
		return result, fmt.Errorf("decode video: %w", err)
	}

	result.Frames = make([]pipeline.Frame, len(decoded))
	for i, f := range decoded {
		result.Frames[i] = pipeline.Frame{TimestampMs: f.TimestampMs, Image: f.Image}
		if len(f.MBErrors) > 0 {
			result.DamagedFrames++
			s.logger.Debug("Frame %d decoded with %d damaged regions", i, len(f.MBErrors))
		}
		if s.sink.Enabled() {
			if err := s.sink.SaveDecodedFrame(i, f.Image); err != nil {
				s.logger.Warn("Failed to save frame %d: %v", i, err)
			}
		}
	}

	n := min(len(decoded), len(input.Reference))
	result.MinPSNR = pipeline.MaxPSNR
	var sum float64
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		psnr, maxErr, err := Compare(input.Reference[i].Image, decoded[i].Image)
		if err != nil {
			return result, fmt.Errorf("frame %d: %w", i, err)
		}
		sum += psnr
		result.MinPSNR = math.Min(result.MinPSNR, psnr)
		result.MaxAbsError = max(result.MaxAbsError, maxErr)
	}
	result.Compared = n
	if n > 0 {
		result.MeanPSNR = sum / float64(n)
	} else {
		result.MinPSNR = 0
	}

	result.Passed = n == len(input.Reference) && n > 0 &&
		result.DamagedFrames == 0 && result.MinPSNR >= input.MinPSNR

	s.logger.Debug("Compared %d frames: mean %.2f dB, min %.2f dB", n, result.MeanPSNR, result.MinPSNR)
	return result, nil
}

// Compare returns the peak signal-to-noise ratio over the RGB channels of
// two equally sized pictures, capped at pipeline.MaxPSNR, and the largest
// per-channel difference.
func Compare(want, got image.Image) (psnr float64, maxAbsErr int, err error) {
	wb, gb := want.Bounds(), got.Bounds()
	if wb.Dx() != gb.Dx() || wb.Dy() != gb.Dy() {
		return 0, 0, fmt.Errorf("size %dx%d differs from %dx%d", gb.Dx(), gb.Dy(), wb.Dx(), wb.Dy())
	}

	var sq float64
	for y := 0; y < wb.Dy(); y++ {
		for x := 0; x < wb.Dx(); x++ {
			r1, g1, b1, _ := want.At(wb.Min.X+x, wb.Min.Y+y).RGBA()
			r2, g2, b2, _ := got.At(gb.Min.X+x, gb.Min.Y+y).RGBA()
			for _, d := range [3]int{
				int(r1>>8) - int(r2>>8),
				int(g1>>8) - int(g2>>8),
				int(b1>>8) - int(b2>>8),
			} {
				if d < 0 {
					d = -d
				}
				maxAbsErr = max(maxAbsErr, d)
				sq += float64(d * d)
			}
		}
	}

	samples := float64(wb.Dx() * wb.Dy() * 3)
	if sq == 0 || samples == 0 {
		return pipeline.MaxPSNR, maxAbsErr, nil
	}
	mse := sq / samples
	return math.Min(10*math.Log10(255*255/mse), pipeline.MaxPSNR), maxAbsErr, nil
}
