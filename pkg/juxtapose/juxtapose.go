// Package juxtapose combines two videos side by side through the engine:
// both inputs are decoded, composed picture by picture and encoded again.
package juxtapose

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/stages/verify"
	"github.com/user/vacore/pkg/va"
)

// ErrNoFrames is returned when an input decodes to no frames.
var ErrNoFrames = errors.New("video has no frames")

// Options configures the juxtapose operation.
type Options struct {
	// Gap is the horizontal gap between the two videos in pixels.
	Gap int
	// FPS is the output frame rate.
	FPS float64
	// Profile is the H.264 profile of the output.
	Profile va.Profile
	// Background fills the gap and the area around the shorter input.
	Background color.Color
}

// DefaultOptions returns default options.
func DefaultOptions() Options {
	return Options{
		Gap:        10,
		FPS:        30.0,
		Profile:    va.ProfileH264ConstrainedBaseline,
		Background: color.Black,
	}
}

// Input names the files of one run.
type Input struct {
	LeftPath   string
	RightPath  string
	OutputPath string
}

// Result describes the combined video.
type Result struct {
	Width      int
	Height     int
	FrameCount int
	DurationMs int
	FileSize   int64

	// MeanPSNR compares the inputs picture by picture when they have the
	// same size; zero otherwise.
	MeanPSNR float64
}

// Stage combines two videos.
type Stage struct {
	decoder ports.VideoDecoder
	encoder ports.VideoEncoder
	fs      ports.FileSystem
	logger  ports.Logger
	opts    Options
}

// New creates a new Stage.
func New(decoder ports.VideoDecoder, encoder ports.VideoEncoder, fs ports.FileSystem, logger ports.Logger, opts Options) *Stage {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.Background == nil {
		opts.Background = color.Black
	}
	return &Stage{
		decoder: decoder,
		encoder: encoder,
		fs:      fs,
		logger:  logger.WithComponent("juxtapose"),
		opts:    opts,
	}
}

// Execute combines input.LeftPath and input.RightPath into
// input.OutputPath. The shorter video holds its last frame until the
// longer one finishes.
func (s *Stage) Execute(ctx context.Context, input Input) (Result, error) {
	left, err := s.read(ctx, input.LeftPath)
	if err != nil {
		return Result{}, fmt.Errorf("read left video: %w", err)
	}
	right, err := s.read(ctx, input.RightPath)
	if err != nil {
		return Result{}, fmt.Errorf("read right video: %w", err)
	}

	lb, rb := left[0].Image.Bounds(), right[0].Image.Bounds()
	width := lb.Dx() + s.opts.Gap + rb.Dx()
	height := max(lb.Dy(), rb.Dy())
	// 4:2:0 output needs even dimensions.
	width += width & 1
	height += height & 1

	total := max(endOf(left), endOf(right))
	s.logger.Debug("Combining %dx%d and %dx%d into %dx%d, %d ms", lb.Dx(), lb.Dy(), rb.Dx(), rb.Dy(), width, height, total)

	if err := s.encoder.Begin(width, height, s.opts.FPS, ports.EncoderOptions{Profile: s.opts.Profile}); err != nil {
		return Result{}, fmt.Errorf("init encoder: %w", err)
	}

	result := Result{Width: width, Height: height}
	var psnrSum float64
	sameSize := lb.Size() == rb.Size()

	frameMs := 1000.0 / s.opts.FPS
	for i := 0; ; i++ {
		ts := int(float64(i) * frameMs)
		if ts >= total && i > 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			s.encoder.End(ctx)
			return Result{}, err
		}

		lf, rf := frameAt(left, ts), frameAt(right, ts)
		out := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Draw(out, out.Bounds(), image.NewUniform(s.opts.Background), image.Point{}, draw.Src)

		ly := (height - lb.Dy()) / 2
		draw.Draw(out, image.Rect(0, ly, lb.Dx(), ly+lb.Dy()), lf.Image, lb.Min, draw.Src)
		rx, ry := lb.Dx()+s.opts.Gap, (height-rb.Dy())/2
		draw.Draw(out, image.Rect(rx, ry, rx+rb.Dx(), ry+rb.Dy()), rf.Image, rb.Min, draw.Src)

		if sameSize {
			psnr, _, err := verify.Compare(lf.Image, rf.Image)
			if err == nil {
				psnrSum += psnr
			}
		}

		if err := s.encoder.EncodeFrame(ctx, out, ts); err != nil {
			s.encoder.End(ctx)
			return Result{}, fmt.Errorf("encode frame at %dms: %w", ts, err)
		}
		result.FrameCount++
	}

	data, err := s.encoder.End(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("end encoding: %w", err)
	}
	if err := s.fs.WriteFile(input.OutputPath, data); err != nil {
		return Result{}, fmt.Errorf("write output: %w", err)
	}

	result.DurationMs = total
	result.FileSize = int64(len(data))
	if sameSize && result.FrameCount > 0 {
		result.MeanPSNR = psnrSum / float64(result.FrameCount)
	}
	return result, nil
}

func (s *Stage) read(ctx context.Context, path string) ([]ports.VideoFrame, error) {
	frames, err := s.decoder.ReadFrames(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	return frames, nil
}

// endOf returns the end time of the last frame.
func endOf(frames []ports.VideoFrame) int {
	last := frames[len(frames)-1]
	return last.TimestampMs + last.Duration
}

// frameAt returns the frame at or before the given timestamp.
// If timestamp is past the last frame, returns the last frame.
func frameAt(frames []ports.VideoFrame, timestampMs int) ports.VideoFrame {
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].TimestampMs <= timestampMs {
			return frames[i]
		}
	}
	return frames[0]
}
