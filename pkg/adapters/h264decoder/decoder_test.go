package h264decoder

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/vacore/pkg/adapters/avcmp4"
	"github.com/user/vacore/pkg/adapters/h264encoder"
	"github.com/user/vacore/pkg/adapters/logger"
	"github.com/user/vacore/pkg/adapters/swaccel"
	"github.com/user/vacore/pkg/engine"
	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

// createTestImage creates a picture of flat 16x16 blocks; flat blocks
// survive 4:2:0 subsampling unchanged up to color conversion rounding.
func createTestImage(width, height int, frameNum int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			bx, by := x/16, y/16
			img.Set(x, y, color.RGBA{
				R: uint8((bx*60 + frameNum*10) % 256),
				G: uint8((by*80 + frameNum*5) % 256),
				B: uint8((bx + by) * 40 % 256),
				A: 255,
			})
		}
	}
	return img
}

func newSession(t *testing.T) *engine.Session {
	t.Helper()
	s, err := engine.Initialize(swaccel.New(), engine.DefaultOptions(), logger.NewNoop())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { s.Terminate(context.Background()) })
	return s
}

func encodeClip(t *testing.T, s *engine.Session, width, height, frames int) []byte {
	t.Helper()
	enc := h264encoder.New(s, logger.NewNoop())
	if err := enc.Begin(width, height, 30, ports.EncoderOptions{}); err != nil {
		t.Fatalf("encoder Begin failed: %v", err)
	}
	for i := 0; i < frames; i++ {
		if err := enc.EncodeFrame(context.Background(), createTestImage(width, height, i), i*33); err != nil {
			t.Fatalf("EncodeFrame failed at frame %d: %v", i, err)
		}
	}
	data, err := enc.End(context.Background())
	if err != nil {
		t.Fatalf("encoder End failed: %v", err)
	}
	return data
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := newSession(t)
	width, height := 64, 48
	mp4Data := encodeClip(t, s, width, height, 5)

	dec := New(s, logger.NewNoop())
	defer dec.Close()
	frames, err := dec.ReadFramesFromReader(context.Background(), bytes.NewReader(mp4Data))
	if err != nil {
		t.Fatalf("ReadFramesFromReader failed: %v", err)
	}
	if len(frames) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(frames))
	}

	lastTs := -1
	for i, frame := range frames {
		if frame.TimestampMs <= lastTs {
			t.Errorf("Frame %d has non-increasing timestamp: %d <= %d", i, frame.TimestampMs, lastTs)
		}
		lastTs = frame.TimestampMs
		if len(frame.MBErrors) != 0 {
			t.Errorf("Frame %d has macroblock errors: %+v", i, frame.MBErrors)
		}
		if b := frame.Image.Bounds(); b.Dx() != width || b.Dy() != height {
			t.Fatalf("Expected dimensions %dx%d, got %dx%d", width, height, b.Dx(), b.Dy())
		}

		want := createTestImage(width, height, i)
		for _, pt := range []image.Point{{8, 8}, {40, 24}, {63, 47}} {
			got := frame.Image.At(pt.X, pt.Y).(color.RGBA)
			exp := want.RGBAAt(pt.X, pt.Y)
			if absDiff(got.R, exp.R) > 4 || absDiff(got.G, exp.G) > 4 || absDiff(got.B, exp.B) > 4 {
				t.Errorf("frame %d at %v: expected %v, got %v", i, pt, exp, got)
			}
		}
	}
}

func TestReadFrames_File(t *testing.T) {
	s := newSession(t)
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, encodeClip(t, s, 32, 32, 2), 0o644); err != nil {
		t.Fatal(err)
	}
	frames, err := New(s, logger.NewNoop()).ReadFrames(context.Background(), path)
	if err != nil || len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d (%v)", len(frames), err)
	}
}

// A sample cut short decodes with a macroblock error range instead of
// failing the whole read.
func TestReadFrames_DamagedSample(t *testing.T) {
	s := newSession(t)
	mp4Data := encodeClip(t, s, 64, 32, 2)
	track, samples, err := avcmp4.Demux(bytes.NewReader(mp4Data))
	if err != nil {
		t.Fatalf("Demux failed: %v", err)
	}
	samples[1].Data = samples[1].Data[:len(samples[1].Data)/2]
	samples[0].Data = append(track.ParameterSets(), samples[0].Data...)

	var buf bytes.Buffer
	if err := avcmp4.Mux(&buf, 64, 32, 30, samples); err != nil {
		t.Fatalf("Mux failed: %v", err)
	}
	frames, err := New(s, logger.NewNoop()).ReadFramesFromReader(context.Background(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadFramesFromReader failed: %v", err)
	}
	if len(frames[0].MBErrors) != 0 {
		t.Errorf("frame 0: unexpected errors %+v", frames[0].MBErrors)
	}
	if len(frames[1].MBErrors) == 0 || frames[1].Image == nil {
		t.Errorf("frame 1: expected an image with error ranges, got %+v", frames[1].MBErrors)
	}
}

func TestDecoder_Closed(t *testing.T) {
	dec := New(newSession(t), logger.NewNoop())
	dec.Close()
	if _, err := dec.ReadFramesFromReader(context.Background(), bytes.NewReader(nil)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestProfile(t *testing.T) {
	s := newSession(t)
	track, _, err := avcmp4.Demux(bytes.NewReader(encodeClip(t, s, 32, 32, 1)))
	if err != nil {
		t.Fatalf("Demux failed: %v", err)
	}
	sps := track.SPS[0]
	p, err := Profile(sps)
	if err != nil || p != va.ProfileH264ConstrainedBaseline {
		t.Errorf("expected constrained baseline, got %v (%v)", p, err)
	}

	// Same layout with profile_idc 88 (extended).
	ext := append([]byte(nil), sps...)
	ext[1] = 88
	if _, err := Profile(ext); !errors.Is(err, ErrUnsupportedProfile) {
		t.Errorf("expected ErrUnsupportedProfile for extended profile, got %v", err)
	}
	if _, err := Profile([]byte{0x67}); err == nil {
		t.Error("expected a parse error")
	}
}
