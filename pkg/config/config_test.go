package config

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/vacore/pkg/va"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := writeFile(t, "vacore.yaml", `
output: out/clip.mp4
engine:
  workers: 3
  max_in_flight: 2
  strict_teardown: true
  disable: ["H264High:EncSlice"]
  memory_types: [va, user_ptr]
pattern:
  width: 176
  height: 144
  label: qcif
encode:
  profile: main
  outro_ms: 500
verify:
  min_psnr: 35
`)
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.OutputPath != "out/clip.mp4" || cfg.Engine.Workers != 3 || !cfg.Engine.StrictTeardown {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Pattern.Width != 176 || cfg.Pattern.Label != "qcif" {
		t.Errorf("unexpected pattern %+v", cfg.Pattern)
	}
	// Unset keys keep their defaults.
	if cfg.Pattern.Frames != 30 || cfg.Pattern.FPS != 30 || !cfg.Verify.Enabled || cfg.Encode.Surfaces != 4 {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
}

func TestLoadFromFile_TOML(t *testing.T) {
	path := writeFile(t, "vacore.toml", `
output = "clip.mp4"
log_level = "debug"

[engine]
max_in_flight = 4
max_width = 640
max_height = 480

[encode]
profile = "VAProfileH264High"
level = 31
allow_fallback = true

[verify]
enabled = false
`)
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if !cfg.Encode.AllowFallback {
		t.Error("expected allow_fallback to be set")
	}
	if cfg.OutputPath != "clip.mp4" || cfg.LogLevel != "debug" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Engine.MaxInFlight != 4 || cfg.Engine.MaxWidth != 640 {
		t.Errorf("unexpected engine %+v", cfg.Engine)
	}
	if cfg.Encode.Profile != "VAProfileH264High" || cfg.Encode.Level != 31 || cfg.Verify.Enabled {
		t.Errorf("unexpected encode/verify %+v %+v", cfg.Encode, cfg.Verify)
	}
	if cfg.Pattern.Width != 320 {
		t.Errorf("expected default width, got %d", cfg.Pattern.Width)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	tests := []struct {
		name, file, content string
	}{
		{"unknown yaml key", "a.yaml", "pattern:\n  colour: red\n"},
		{"unknown toml key", "a.toml", "[pattern]\ncolour = \"red\"\n"},
		{"bad yaml", "b.yml", "pattern: [\n"},
		{"bad toml", "b.toml", "pattern = \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFromFile(writeFile(t, tt.file, tt.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.Color
	}{
		{"#ff8000", color.RGBA{R: 255, G: 128, A: 255}},
		{"00ff0080", color.RGBA{G: 255, A: 128}},
		{"#FFF", color.Black},
		{"#gg0000", color.Black},
		{"", color.Black},
	}
	for _, tt := range tests {
		if got := ParseColor(tt.in); got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseProfile(t *testing.T) {
	tests := map[string]va.Profile{
		"":                  va.ProfileH264ConstrainedBaseline,
		"baseline":          va.ProfileH264ConstrainedBaseline,
		"Main":              va.ProfileH264Main,
		"high":              va.ProfileH264High,
		"VAProfileH264High": va.ProfileH264High,
		"H264Main":          va.ProfileH264Main,
	}
	for in, want := range tests {
		got, err := ParseProfile(in)
		if err != nil || got != want {
			t.Errorf("ParseProfile(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseProfile("H265Main"); !errors.Is(err, va.ErrUnsupportedProfile) {
		t.Errorf("expected UnsupportedProfile, got %v", err)
	}
}

func TestToEngineOptions(t *testing.T) {
	cfg := Defaults()
	cfg.Engine.Workers = 2
	cfg.Engine.MaxInFlight = 3
	cfg.Engine.StrictTeardown = true
	cfg.Engine.MaxSurfaces = 10
	cfg.Engine.Disable = []string{"H264High:EncSlice", "VAProfileH264Main:VAEntrypointVLD"}
	cfg.Engine.MaxWidth = 1280
	cfg.Engine.MemoryTypes = []string{"va"}

	opts, err := cfg.ToEngineOptions()
	if err != nil {
		t.Fatalf("ToEngineOptions failed: %v", err)
	}
	if opts.Workers != 2 || opts.MaxInFlight != 3 || !opts.StrictTeardown || opts.MaxSurfaces != 10 {
		t.Errorf("unexpected options %+v", opts)
	}
	// disable, resolution and memory types
	if len(opts.Negotiation) != 3 {
		t.Errorf("expected 3 negotiation options, got %d", len(opts.Negotiation))
	}

	for _, bad := range []func(*Config){
		func(c *Config) { c.Engine.Disable = []string{"H264High"} },
		func(c *Config) { c.Engine.Disable = []string{"Nope:VLD"} },
		func(c *Config) { c.Engine.Disable = []string{"H264High:Nope"} },
		func(c *Config) { c.Engine.MemoryTypes = []string{"dma"} },
	} {
		c := Defaults()
		bad(&c)
		if _, err := c.ToEngineOptions(); err == nil {
			t.Errorf("expected error for %+v", c.Engine)
		}
	}
}

func TestToOrchestratorConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Pattern.Background = "#102030"
	cfg.Encode.Profile = "high"
	cfg.Encode.OutroMs = 250

	oc, err := cfg.ToOrchestratorConfig()
	if err != nil {
		t.Fatalf("ToOrchestratorConfig failed: %v", err)
	}
	if oc.Width != 320 || oc.Frames != 30 || oc.OutputPath != "pattern.mp4" {
		t.Errorf("unexpected config %+v", oc)
	}
	if oc.Profile != va.ProfileH264High || oc.OutroMs != 250 || !oc.Verify || oc.MinPSNR != 30 {
		t.Errorf("unexpected encode/verify settings %+v", oc)
	}
	if oc.BackgroundColor != [4]uint8{0x10, 0x20, 0x30, 0xff} {
		t.Errorf("unexpected background %v", oc.BackgroundColor)
	}

	cfg.Encode.Profile = "vp9"
	if _, err := cfg.ToOrchestratorConfig(); err == nil || !strings.Contains(err.Error(), "vp9") {
		t.Errorf("expected profile error, got %v", err)
	}
}
