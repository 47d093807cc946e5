package pattern

import (
	"context"
	"image/color"
	"strings"
	"testing"

	"github.com/user/vacore/pkg/adapters/ggrenderer"
	"github.com/user/vacore/pkg/adapters/logger"
	"github.com/user/vacore/pkg/mocks"
	"github.com/user/vacore/pkg/pipeline"
)

func TestStage_Execute(t *testing.T) {
	renderer := &mocks.Renderer{}
	sink := mocks.NewDebugSink(true)
	stage := NewStage(renderer, sink, logger.NewNoop(), 2)

	input := pipeline.DefaultPatternInput()
	input.Width, input.Height = 140, 90
	input.Frames = 4
	input.FPS = 10
	input.Label = "clip"

	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(result.Frames))
	}
	for i, frame := range result.Frames {
		if frame.TimestampMs != i*100 {
			t.Errorf("frame %d: expected timestamp %d, got %d", i, i*100, frame.TimestampMs)
		}
		if b := frame.Image.Bounds(); b.Dx() != 140 || b.Dy() != 90 {
			t.Errorf("frame %d: expected 140x90, got %v", i, b)
		}
	}
	if len(sink.SourceFrames) != 4 {
		t.Errorf("expected 4 saved frames, got %d", len(sink.SourceFrames))
	}

	if len(renderer.Canvases) != 4 {
		t.Fatalf("expected 4 canvases, got %d", len(renderer.Canvases))
	}
	c := renderer.Canvases[0]
	// seven bars plus the marker
	if len(c.Rects) != 8 {
		t.Errorf("expected 8 rectangles, got %d", len(c.Rects))
	}
	for _, r := range c.Rects[:7] {
		if r.Min.X%2 != 0 {
			t.Errorf("bar %v starts on an odd column", r)
		}
	}
	if len(c.Texts) != 1 || !strings.HasPrefix(c.Texts[0], "clip  #") {
		t.Errorf("unexpected caption %q", c.Texts)
	}
}

func TestStage_MarkerSweeps(t *testing.T) {
	renderer := &mocks.Renderer{}
	stage := NewStage(renderer, &mocks.NullSink{}, logger.NewNoop(), 1)

	input := pipeline.DefaultPatternInput()
	input.Width, input.Height, input.Frames = 120, 60, 3
	if _, err := stage.Execute(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	markers := map[int]bool{}
	for _, c := range renderer.Canvases {
		m := c.Rects[len(c.Rects)-1]
		markers[m.Min.X] = true
		if m.Min.X%2 != 0 || m.Max.X > 118 {
			t.Errorf("marker %v is misaligned or leaves the bars", m)
		}
	}
	if !markers[2] || len(markers) != 3 {
		t.Errorf("expected three marker positions starting at 2, got %v", markers)
	}
}

func TestStage_Execute_NoFrames(t *testing.T) {
	stage := NewStage(&mocks.Renderer{}, &mocks.NullSink{}, logger.NewNoop(), 2)
	input := pipeline.DefaultPatternInput()
	input.Frames = 0

	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Frames) != 0 {
		t.Errorf("expected 0 frames, got %d", len(result.Frames))
	}
}

func TestStage_Execute_InvalidInput(t *testing.T) {
	stage := NewStage(&mocks.Renderer{}, &mocks.NullSink{}, logger.NewNoop(), 2)

	input := pipeline.DefaultPatternInput()
	input.Width = 0
	if _, err := stage.Execute(context.Background(), input); err == nil {
		t.Error("expected error for zero width")
	}

	input = pipeline.DefaultPatternInput()
	input.FPS = 0
	if _, err := stage.Execute(context.Background(), input); err == nil {
		t.Error("expected error for zero frame rate")
	}
}

func TestStage_Execute_Canceled(t *testing.T) {
	stage := NewStage(&mocks.Renderer{}, &mocks.NullSink{}, logger.NewNoop(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := stage.Execute(ctx, pipeline.DefaultPatternInput()); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestStage_RendersBars(t *testing.T) {
	stage := NewStage(ggrenderer.New(), &mocks.NullSink{}, logger.NewNoop(), 1)

	input := pipeline.DefaultPatternInput()
	input.Width, input.Height, input.Frames = 140, 90, 1
	result, err := stage.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Second bar (yellow), below the marker band.
	img := result.Frames[0].Image
	r, g, b, _ := img.At(30, 5).RGBA()
	want := input.Theme.Bars[1].(color.RGBA)
	if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B {
		t.Errorf("expected %v at bar 1, got %d,%d,%d", want, r>>8, g>>8, b>>8)
	}
}
