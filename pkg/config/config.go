// Package config provides configuration loading and management.
package config

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/user/vacore/pkg/engine"
	"github.com/user/vacore/pkg/negotiate"
	"github.com/user/vacore/pkg/orchestrator"
	"github.com/user/vacore/pkg/va"
)

// Config represents the full configuration for vacore. Files are YAML,
// or TOML when the name ends in ".toml".
type Config struct {
	OutputPath string `yaml:"output" toml:"output"`

	Engine  EngineConfig  `yaml:"engine" toml:"engine"`
	Pattern PatternConfig `yaml:"pattern" toml:"pattern"`
	Encode  EncodeConfig  `yaml:"encode" toml:"encode"`
	Verify  VerifyConfig  `yaml:"verify" toml:"verify"`

	LogLevel string `yaml:"log_level" toml:"log_level"`

	// Debug
	Debug    bool   `yaml:"debug" toml:"debug"`
	DebugDir string `yaml:"debug_dir" toml:"debug_dir"`
}

// EngineConfig represents session options and capability overrides.
type EngineConfig struct {
	Workers        int  `yaml:"workers" toml:"workers"`
	MaxInFlight    int  `yaml:"max_in_flight" toml:"max_in_flight"`
	StrictTeardown bool `yaml:"strict_teardown" toml:"strict_teardown"`

	MaxSurfaces int `yaml:"max_surfaces" toml:"max_surfaces"`
	MaxBuffers  int `yaml:"max_buffers" toml:"max_buffers"`
	MaxContexts int `yaml:"max_contexts" toml:"max_contexts"`

	// Disable lists "Profile:Entrypoint" pairs to hide, e.g. "H264High:EncSlice".
	Disable     []string `yaml:"disable" toml:"disable"`
	MaxWidth    uint32   `yaml:"max_width" toml:"max_width"`
	MaxHeight   uint32   `yaml:"max_height" toml:"max_height"`
	MemoryTypes []string `yaml:"memory_types" toml:"memory_types"` // va, v4l2, user_ptr
}

// PatternConfig represents the test pattern.
type PatternConfig struct {
	Width      int     `yaml:"width" toml:"width"`
	Height     int     `yaml:"height" toml:"height"`
	Frames     int     `yaml:"frames" toml:"frames"`
	FPS        float64 `yaml:"fps" toml:"fps"`
	Label      string  `yaml:"label" toml:"label"`
	Background string  `yaml:"background_color" toml:"background_color"`
	Font       string  `yaml:"font" toml:"font"`
}

// EncodeConfig represents encoder settings.
type EncodeConfig struct {
	Profile  string `yaml:"profile" toml:"profile"`
	Level    int    `yaml:"level" toml:"level"`
	Surfaces int    `yaml:"surfaces" toml:"surfaces"`
	OutroMs  int    `yaml:"outro_ms" toml:"outro_ms"`

	// AllowFallback lets the encoder use a simpler profile when the
	// session cannot encode the requested one.
	AllowFallback bool `yaml:"allow_fallback" toml:"allow_fallback"`
}

// VerifyConfig represents the decode-and-compare check.
type VerifyConfig struct {
	Enabled bool    `yaml:"enabled" toml:"enabled"`
	MinPSNR float64 `yaml:"min_psnr" toml:"min_psnr"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	opts := engine.DefaultOptions()
	return Config{
		OutputPath: "pattern.mp4",

		Engine: EngineConfig{
			Workers:     opts.Workers,
			MaxInFlight: opts.MaxInFlight,
		},

		Pattern: PatternConfig{
			Width:      320,
			Height:     240,
			Frames:     30,
			FPS:        30.0,
			Background: "#1e1e1e",
		},

		Encode: EncodeConfig{
			Profile:  "baseline",
			Surfaces: 4,
		},

		Verify: VerifyConfig{
			Enabled: true,
			MinPSNR: 30,
		},

		LogLevel: "info",
		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML or TOML file on top of
// Defaults. Unknown keys are errors.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
		}
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ParseColor parses a "#rrggbb" or "#rrggbbaa" hex color. Anything else
// yields black.
func ParseColor(hex string) color.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.Black
	}

	var v [4]uint8
	v[3] = 0xff
	for i := 0; i < len(hex)/2; i++ {
		hi, ok1 := hexValue(hex[2*i])
		lo, ok2 := hexValue(hex[2*i+1])
		if !ok1 || !ok2 {
			return color.Black
		}
		v[i] = hi<<4 | lo
	}
	return color.RGBA{R: v[0], G: v[1], B: v[2], A: v[3]}
}

func hexValue(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// ParseProfile accepts VA profile names with or without the "VAProfile"
// prefix, and the short names baseline, main and high.
func ParseProfile(name string) (va.Profile, error) {
	switch strings.ToLower(name) {
	case "", "baseline", "constrained-baseline":
		return va.ProfileH264ConstrainedBaseline, nil
	case "main":
		return va.ProfileH264Main, nil
	case "high":
		return va.ProfileH264High, nil
	}
	if p, ok := va.ParseProfile(name); ok {
		return p, nil
	}
	return va.ProfileNone, fmt.Errorf("unknown profile %q: %w", name, va.ErrUnsupportedProfile)
}

// ParsePair parses a "Profile:Entrypoint" pair.
func ParsePair(s string) (negotiate.Pair, error) {
	prof, ep, ok := strings.Cut(s, ":")
	if !ok {
		return negotiate.Pair{}, fmt.Errorf("pair %q: expected Profile:Entrypoint", s)
	}
	p, ok := va.ParseProfile(prof)
	if !ok {
		return negotiate.Pair{}, fmt.Errorf("pair %q: unknown profile: %w", s, va.ErrUnsupportedProfile)
	}
	e, ok := va.ParseEntrypoint(ep)
	if !ok {
		return negotiate.Pair{}, fmt.Errorf("pair %q: unknown entrypoint: %w", s, va.ErrUnsupportedEntrypoint)
	}
	return negotiate.Pair{Profile: p, Entrypoint: e}, nil
}

// memoryTypeMask turns memory type names into a va.MemType* mask.
func memoryTypeMask(names []string) (uint32, error) {
	var mask uint32
	for _, n := range names {
		switch strings.ToLower(n) {
		case "va":
			mask |= va.MemTypeVA
		case "v4l2":
			mask |= va.MemTypeV4L2
		case "user_ptr", "userptr":
			mask |= va.MemTypeUserPtr
		default:
			return 0, fmt.Errorf("unknown memory type %q: %w", n, va.ErrUnsupportedMemoryType)
		}
	}
	return mask, nil
}

// ToEngineOptions converts the engine section to engine.Options.
func (c Config) ToEngineOptions() (engine.Options, error) {
	e := c.Engine
	pairs := make([]negotiate.Pair, 0, len(e.Disable))
	for _, s := range e.Disable {
		p, err := ParsePair(s)
		if err != nil {
			return engine.Options{}, err
		}
		pairs = append(pairs, p)
	}
	mask, err := memoryTypeMask(e.MemoryTypes)
	if err != nil {
		return engine.Options{}, err
	}

	return engine.NewOptionsBuilder().
		WithWorkers(e.Workers).
		WithMaxInFlight(e.MaxInFlight).
		WithStrictTeardown(e.StrictTeardown).
		WithLimits(e.MaxSurfaces, e.MaxBuffers, e.MaxContexts).
		WithDisabled(pairs...).
		WithMaxResolution(e.MaxWidth, e.MaxHeight).
		WithMemoryTypes(mask).
		Build(), nil
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig() (orchestrator.Config, error) {
	profile, err := ParseProfile(c.Encode.Profile)
	if err != nil {
		return orchestrator.Config{}, err
	}

	var bg [4]uint8
	if c.Pattern.Background != "" {
		rgba := color.RGBAModel.Convert(ParseColor(c.Pattern.Background)).(color.RGBA)
		bg = [4]uint8{rgba.R, rgba.G, rgba.B, rgba.A}
	}

	return orchestrator.Config{
		OutputPath: c.OutputPath,

		Width:           c.Pattern.Width,
		Height:          c.Pattern.Height,
		Frames:          c.Pattern.Frames,
		FPS:             c.Pattern.FPS,
		Label:           c.Pattern.Label,
		BackgroundColor: bg,
		FontPath:        c.Pattern.Font,

		Profile:  profile,
		LevelIDC: c.Encode.Level,
		Surfaces: c.Encode.Surfaces,
		OutroMs:  c.Encode.OutroMs,

		Verify:  c.Verify.Enabled,
		MinPSNR: c.Verify.MinPSNR,
	}, nil
}
