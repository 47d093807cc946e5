// Package pattern implements the test pattern stage.
package pattern

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/user/vacore/pkg/pipeline"
	"github.com/user/vacore/pkg/ports"
)

// Stage renders a moving test pattern: colour bars, a marker sweeping
// across them, a progress line and a frame caption.
type Stage struct {
	renderer   ports.Renderer
	sink       ports.DebugSink
	logger     ports.Logger
	numWorkers int
}

// NewStage creates a new pattern stage.
func NewStage(renderer ports.Renderer, sink ports.DebugSink, logger ports.Logger, numWorkers int) *Stage {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Stage{
		renderer:   renderer,
		sink:       sink,
		logger:     logger.WithComponent("pattern"),
		numWorkers: numWorkers,
	}
}

// Execute renders all frames.
func (s *Stage) Execute(ctx context.Context, input pipeline.PatternInput) (pipeline.PatternResult, error) {
	if input.Width <= 0 || input.Height <= 0 {
		return pipeline.PatternResult{}, fmt.Errorf("invalid pattern size %dx%d", input.Width, input.Height)
	}
	if input.FPS <= 0 {
		return pipeline.PatternResult{}, fmt.Errorf("invalid frame rate %v", input.FPS)
	}
	if input.Frames <= 0 {
		return pipeline.PatternResult{Frames: []pipeline.Frame{}}, nil
	}
	if len(input.Theme.Bars) == 0 {
		input.Theme = pipeline.DefaultPatternTheme()
	}

	s.logger.Debug("Rendering %d frames with %d workers", input.Frames, s.numWorkers)

	frames := make([]pipeline.Frame, input.Frames)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.numWorkers)
	for i := range frames {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frames[i] = pipeline.Frame{
				TimestampMs: int(float64(i) * 1000 / input.FPS),
				Image:       s.render(input, i).ToImage(),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return pipeline.PatternResult{}, err
	}

	if s.sink.Enabled() {
		for i, f := range frames {
			if err := s.sink.SaveSourceFrame(i, f.Image); err != nil {
				s.logger.Warn("Failed to save frame %d: %v", i, err)
			}
		}
	}

	s.logger.Debug("Rendering completed")
	return pipeline.PatternResult{Frames: frames}, nil
}

// render draws frame index of the clip.
func (s *Stage) render(input pipeline.PatternInput, index int) ports.Canvas {
	w, h := input.Width, input.Height
	theme := input.Theme
	canvas := s.renderer.CreateCanvas(w, h, theme.BackgroundColor)

	// Bars fill the upper two thirds inside a two pixel margin. Every
	// edge between colors falls on even coordinates so 4:2:0 chroma
	// subsampling does not blend neighbours.
	const margin = 2
	barsH := (h * 2 / 3) &^ 1
	inner := w - 2*margin
	n := len(theme.Bars)
	for k, c := range theme.Bars {
		x0 := margin + (k*inner/n)&^1
		x1 := margin + ((k+1)*inner/n)&^1
		if k == n-1 {
			x1 = w - margin
		}
		canvas.DrawRect(x0, margin, x1-x0, barsH-margin, c)
	}

	size := max((barsH/3)&^1, 2)
	travel := inner - size
	x := margin
	if input.Frames > 1 && travel > 0 {
		x += (index * travel / (input.Frames - 1)) &^ 1
	}
	canvas.DrawRoundedRect(x, (barsH-size)/2&^1, size, size, size/5, theme.MarkerColor)

	lineY := barsH + max((h-barsH)/6, 1)
	canvas.DrawLine(0, lineY, w*(index+1)/input.Frames, lineY, theme.MarkerColor, 2)

	caption := fmt.Sprintf("#%04d  %.3fs", index, float64(index)/input.FPS)
	if input.Label != "" {
		caption = input.Label + "  " + caption
	}
	canvas.DrawText(caption, w/2, barsH+(h-barsH)*3/5, ports.TextStyle{
		FontSize: float64(max((h-barsH)/3, 8)),
		FontPath: theme.FontPath,
		Color:    theme.TextColor,
		Align:    ports.AlignCenter,
	})

	canvas.DrawRectStroke(0, 0, w, h, theme.MarkerColor, 1)
	return canvas
}
