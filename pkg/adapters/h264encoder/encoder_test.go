package h264encoder

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/user/vacore/pkg/adapters/avcmp4"
	"github.com/user/vacore/pkg/adapters/logger"
	"github.com/user/vacore/pkg/adapters/swaccel"
	"github.com/user/vacore/pkg/engine"
	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

// createTestImage creates a simple test image with gradient
func createTestImage(width, height int, frameNum int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x*255/width + frameNum*10) % 256)
			g := uint8((y*255/height + frameNum*5) % 256)
			b := uint8((x + y + frameNum*3) % 256)
			img.Set(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

func newSession(t testing.TB, opts engine.Options) *engine.Session {
	t.Helper()
	s, err := engine.Initialize(swaccel.New(), opts, logger.NewNoop())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { s.Terminate(context.Background()) })
	return s
}

func encode(t *testing.T, enc *Encoder, width, height, frames int, fps float64) []byte {
	t.Helper()
	if err := enc.Begin(width, height, fps, ports.EncoderOptions{}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	for i := 0; i < frames; i++ {
		if err := enc.EncodeFrame(context.Background(), createTestImage(width, height, i), i*1000/int(fps)); err != nil {
			t.Fatalf("EncodeFrame failed at frame %d: %v", i, err)
		}
	}
	data, err := enc.End(context.Background())
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	return data
}

func TestEncoderBasic(t *testing.T) {
	enc := New(newSession(t, engine.DefaultOptions()), logger.NewNoop())
	data := encode(t, enc, 100, 60, 10, 30)

	if string(data[4:8]) != "ftyp" {
		t.Errorf("Expected ftyp box, got: %s", string(data[4:8]))
	}
	track, samples, err := avcmp4.Demux(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Demux failed: %v", err)
	}
	if track.Width != 100 || track.Height != 60 {
		t.Errorf("expected 100x60, got %dx%d", track.Width, track.Height)
	}
	if len(samples) != 10 {
		t.Fatalf("expected 10 samples, got %d", len(samples))
	}
	for i, s := range samples {
		if s.TimestampMs != i*1000/30 {
			t.Errorf("sample %d: expected timestamp %d, got %d", i, i*1000/30, s.TimestampMs)
		}
		if !s.Sync {
			t.Errorf("sample %d is not a sync sample", i)
		}
	}
}

func TestEncoderSingleFrame(t *testing.T) {
	enc := New(newSession(t, engine.DefaultOptions()), logger.NewNoop())
	if data := encode(t, enc, 16, 16, 1, 1); len(data) == 0 {
		t.Fatal("No data produced for single frame")
	}
}

// With one frame in flight every EndPicture after the first finds the
// queue full and has to collect the previous picture.
func TestEncoder_QueueFull(t *testing.T) {
	opts := engine.NewOptionsBuilder().WithMaxInFlight(1).Build()
	enc := New(newSession(t, opts), logger.NewNoop())
	data := encode(t, enc, 32, 32, 6, 10)

	_, samples, err := avcmp4.Demux(bytes.NewReader(data))
	if err != nil || len(samples) != 6 {
		t.Fatalf("expected 6 samples, got %d (%v)", len(samples), err)
	}
}

func TestEncoder_ReleasesSessionObjects(t *testing.T) {
	opts := engine.NewOptionsBuilder().WithStrictTeardown(true).Build()
	s, err := engine.Initialize(swaccel.New(), opts, logger.NewNoop())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	enc := New(s, logger.NewNoop())
	encode(t, enc, 48, 32, 3, 30)
	// A second stream on the same encoder starts from scratch.
	encode(t, enc, 32, 32, 2, 30)

	if err := s.Terminate(context.Background()); err != nil {
		t.Errorf("expected no objects left, Terminate returned %v", err)
	}
}

// gatedAccelerator holds every Execute call until gate is closed.
type gatedAccelerator struct {
	*swaccel.Accelerator
	gate chan struct{}
}

func (a *gatedAccelerator) Execute(ctx context.Context, job *ports.Job) (ports.Result, error) {
	select {
	case <-a.gate:
	case <-ctx.Done():
		return ports.Result{}, ctx.Err()
	}
	return a.Accelerator.Execute(ctx, job)
}

// A picture whose submission fails is closed before the error returns, so
// that ending the stream still destroys every object it created.
func TestEncoder_FailedSubmitReleasesSlot(t *testing.T) {
	accel := &gatedAccelerator{Accelerator: swaccel.New(), gate: make(chan struct{})}
	opts := engine.NewOptionsBuilder().WithMaxInFlight(1).WithStrictTeardown(true).Build()
	s, err := engine.Initialize(accel, opts, logger.NewNoop())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	enc := New(s, logger.NewNoop())
	if err := enc.Begin(32, 32, 30, ports.EncoderOptions{Surfaces: 2}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := enc.EncodeFrame(context.Background(), createTestImage(32, 32, 0), 0); err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}

	// The second picture finds the queue full and times out waiting for
	// the first one, which is released only afterwards.
	release := time.AfterFunc(200*time.Millisecond, func() { close(accel.gate) })
	defer release.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = enc.EncodeFrame(ctx, createTestImage(32, 32, 1), 33)
	if !errors.Is(err, va.ErrTimedout) {
		t.Fatalf("expected a timeout, got %v", err)
	}

	if _, err := enc.End(context.Background()); err != ErrNoFrames {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}
	if err := s.Terminate(context.Background()); err != nil {
		t.Errorf("expected no objects left, Terminate returned %v", err)
	}
}

func TestEncoderNotInitialized(t *testing.T) {
	enc := New(newSession(t, engine.DefaultOptions()), logger.NewNoop())

	err := enc.EncodeFrame(context.Background(), createTestImage(16, 16, 0), 0)
	if err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized, got: %v", err)
	}
	if _, err = enc.End(context.Background()); err != ErrNotInitialized {
		t.Errorf("Expected ErrNotInitialized, got: %v", err)
	}
}

func TestEncoderNoFrames(t *testing.T) {
	enc := New(newSession(t, engine.DefaultOptions()), logger.NewNoop())
	if err := enc.Begin(16, 16, 30, ports.EncoderOptions{}); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := enc.End(context.Background()); err != ErrNoFrames {
		t.Errorf("Expected ErrNoFrames, got: %v", err)
	}
}

func BenchmarkEncode320x240(b *testing.B) {
	enc := New(newSession(b, engine.DefaultOptions()), logger.NewNoop())
	width, height := 320, 240
	if err := enc.Begin(width, height, 30.0, ports.EncoderOptions{}); err != nil {
		b.Fatalf("Begin failed: %v", err)
	}
	img := createTestImage(width, height, 0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := enc.EncodeFrame(context.Background(), img, i*33); err != nil {
			b.Fatalf("EncodeFrame failed: %v", err)
		}
	}
	b.StopTimer()

	enc.End(context.Background())
}
