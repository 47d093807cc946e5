package summarizer

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user/vacore/pkg/mocks"
)

func testSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Settings: Settings{
			Backend:     "software",
			Profile:     "VAProfileH264ConstrainedBaseline",
			FPS:         30,
			Surfaces:    4,
			Workers:     2,
			MaxInFlight: 8,
		},
		Video: VideoInfo{
			OutputPath:    "out.mp4",
			Width:         320,
			Height:        240,
			FrameCount:    30,
			EncodedFrames: 31,
			DurationMs:    1033,
			FileSize:      3 * 1024 * 1024 / 2,
		},
	}
}

func TestMarkdownFormatter_Format_Basic(t *testing.T) {
	result := NewMarkdownFormatter().Format(testSummary())

	checks := []string{
		"# Encode Summary",
		"2024-01-15 10:30:00 UTC",
		"| Output | out.mp4 |",
		"| Size | 320x240 |",
		"| Encoded Frames | 31 |",
		"1033 ms",
		"1.50 MB",
		"software",
		"VAProfileH264ConstrainedBaseline",
		"30.00 fps",
		"| Frames In Flight | 8 |",
	}
	for _, check := range checks {
		if !strings.Contains(result, check) {
			t.Errorf("expected output to contain %q", check)
		}
	}
	if strings.Contains(result, "## Verification") {
		t.Error("expected no verification section")
	}
}

func TestMarkdownFormatter_Format_Verify(t *testing.T) {
	tests := []struct {
		name   string
		verify VerifyInfo
		want   []string
	}{
		{
			name:   "passed",
			verify: VerifyInfo{Compared: 30, MeanPSNR: 47.123, MinPSNR: 45, Threshold: 30, Passed: true},
			want:   []string{"| Result | Passed |", "47.12 dB", "45.00 dB (>= 30.0 dB)"},
		},
		{
			name:   "lossless",
			verify: VerifyInfo{Compared: 2, MeanPSNR: 100, MinPSNR: 100, Passed: true},
			want:   []string{"| Mean PSNR | lossless |"},
		},
		{
			name:   "failed",
			verify: VerifyInfo{Compared: 30, DamagedFrames: 2, MeanPSNR: 20, MinPSNR: 12, Threshold: 30},
			want:   []string{"| Result | Failed |", "| Damaged Frames | 2 |"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSummary()
			s.Verify = &tt.verify
			result := NewMarkdownFormatter().Format(s)
			for _, w := range tt.want {
				if !strings.Contains(result, w) {
					t.Errorf("expected output to contain %q", w)
				}
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		512:         "512 B",
		2048:        "2.00 KB",
		1024 * 1024: "1.00 MB",
	}
	for n, want := range tests {
		if got := formatBytes(n); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestMarkdownFormatter_WithTranslator(t *testing.T) {
	translator := func(key string) string {
		translations := map[string]string{
			"Encode Summary": "エンコード結果",
			"Frames":         "フレーム数",
		}
		if v, ok := translations[key]; ok {
			return v
		}
		return key
	}

	result := NewMarkdownFormatter(WithTranslator(translator)).Format(testSummary())
	if !strings.Contains(result, "# エンコード結果") || !strings.Contains(result, "| フレーム数 | 30 |") {
		t.Errorf("expected translated headings, got:\n%s", result)
	}
	if !strings.Contains(result, "## Settings") {
		t.Error("untranslated keys should pass through")
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	w := NewWriter(FormatFunc(func(*Summary) string { return "summary" }), fs)

	path := filepath.Join("out", "summary.md")
	if err := w.Write(path, testSummary()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data, ok := fs.GetFile(path)
	if !ok || string(data) != "summary" {
		t.Errorf("expected summary at %s, got %q", path, data)
	}
}
