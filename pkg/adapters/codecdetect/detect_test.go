package codecdetect

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/vacore/pkg/adapters/h264encoder"
	"github.com/user/vacore/pkg/adapters/logger"
	"github.com/user/vacore/pkg/adapters/swaccel"
	"github.com/user/vacore/pkg/engine"
	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/va"
)

func encodeClip(t *testing.T, opts ports.EncoderOptions) []byte {
	t.Helper()
	s, err := engine.Initialize(swaccel.New(), engine.DefaultOptions(), logger.NewNoop())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer s.Terminate(context.Background())

	enc := h264encoder.New(s, logger.NewNoop())
	if err := enc.Begin(48, 32, 10, opts); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 48, 32))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 200, G: 40, B: 90, A: 255}), image.Point{}, draw.Src)
	for i := 0; i < 3; i++ {
		if err := enc.EncodeFrame(context.Background(), img, i*100); err != nil {
			t.Fatalf("EncodeFrame failed: %v", err)
		}
	}
	data, err := enc.End(context.Background())
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	return data
}

func TestProbeBytes(t *testing.T) {
	tests := []struct {
		name    string
		opts    ports.EncoderOptions
		profile va.Profile
		idc     int
	}{
		{"default", ports.EncoderOptions{}, va.ProfileH264ConstrainedBaseline, 66},
		{"main", ports.EncoderOptions{Profile: va.ProfileH264Main}, va.ProfileH264Main, 77},
		{"high", ports.EncoderOptions{Profile: va.ProfileH264High}, va.ProfileH264High, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ProbeBytes(encodeClip(t, tt.opts))
			if err != nil {
				t.Fatalf("ProbeBytes failed: %v", err)
			}
			if info.Codec != CodecH264 {
				t.Errorf("expected h264, got %s", info.Codec)
			}
			if info.Width != 48 || info.Height != 32 {
				t.Errorf("expected 48x32, got %dx%d", info.Width, info.Height)
			}
			if info.Samples != 3 || info.SyncCount != 3 {
				t.Errorf("expected 3 sync samples, got %d/%d", info.SyncCount, info.Samples)
			}
			if info.DurationMs != 300 {
				t.Errorf("expected 300ms, got %d", info.DurationMs)
			}
			if info.Profile != tt.profile || info.ProfileIDC != tt.idc {
				t.Errorf("expected %v (%d), got %v (%d)", tt.profile, tt.idc, info.Profile, info.ProfileIDC)
			}
			if !info.Decodable() {
				t.Error("expected a decodable stream")
			}
			if info.Bytes == 0 {
				t.Error("expected sample bytes")
			}
		})
	}
}

func TestProbeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, encodeClip(t, ports.EncoderOptions{}), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := ProbeFile(path)
	if err != nil {
		t.Fatalf("ProbeFile failed: %v", err)
	}
	if !info.Fragmented {
		t.Error("expected a fragmented file")
	}

	codec, err := DetectFromFile(path)
	if err != nil || codec != CodecH264 {
		t.Errorf("expected h264, got %s (%v)", codec, err)
	}
}

func TestProbe_Errors(t *testing.T) {
	if _, err := ProbeBytes([]byte("not an mp4 file at all")); err == nil {
		t.Error("expected an error for garbage input")
	}
	if _, err := ProbeFile(filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestInfo_Decodable(t *testing.T) {
	if (&Info{Codec: CodecAV1, Profile: va.ProfileNone}).Decodable() {
		t.Error("av1 should not be decodable")
	}
	if (&Info{Codec: CodecH264, Profile: va.ProfileNone}).Decodable() {
		t.Error("h264 without a profile should not be decodable")
	}
}
