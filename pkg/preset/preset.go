// Package preset provides named clip settings and a fluent builder for
// orchestrator runs.
package preset

import (
	"fmt"
	"image/color"
	"sort"

	"github.com/user/vacore/pkg/orchestrator"
	"github.com/user/vacore/pkg/va"
)

// Name identifies a clip preset.
type Name string

const (
	QCIF Name = "qcif"
	CIF  Name = "cif"
	VGA  Name = "vga"
	HD   Name = "hd"
)

// Config represents the settings of one clip.
type Config struct {
	Width  int
	Height int
	FPS    float64
	Frames int

	Profile  va.Profile
	LevelIDC int // 0 picks one from the picture size
	Surfaces int
	OutroMs  int

	BackgroundColor color.Color
	Label           string

	Verify  bool
	MinPSNR float64
}

var presets = map[Name]Config{
	QCIF: {Width: 176, Height: 144, FPS: 15, Profile: va.ProfileH264ConstrainedBaseline, Surfaces: 2},
	CIF:  {Width: 352, Height: 288, FPS: 30, Profile: va.ProfileH264ConstrainedBaseline, Surfaces: 4},
	VGA:  {Width: 640, Height: 480, FPS: 30, Profile: va.ProfileH264Main, Surfaces: 4},
	HD:   {Width: 1280, Height: 720, FPS: 30, Profile: va.ProfileH264High, Surfaces: 6},
}

// Names returns the known preset names, sorted.
func Names() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, string(n))
	}
	sort.Strings(names)
	return names
}

// Lookup returns the settings of a preset with one second of frames,
// verification on and a 30 dB threshold.
func Lookup(name Name) (Config, error) {
	c, ok := presets[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown preset %q", name)
	}
	c.Frames = int(c.FPS)
	c.BackgroundColor = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	c.Verify = true
	c.MinPSNR = 30
	return c, nil
}

// ConfigBuilder provides a fluent interface for building Config.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder creates a new ConfigBuilder with CIF defaults.
func NewConfigBuilder() *ConfigBuilder {
	c, _ := Lookup(CIF)
	return &ConfigBuilder{config: c}
}

// NewConfigBuilderFrom creates a new ConfigBuilder seeded with a preset.
func NewConfigBuilderFrom(name Name) (*ConfigBuilder, error) {
	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return &ConfigBuilder{config: c}, nil
}

// FromOrchestratorConfig creates a ConfigBuilder seeded with an existing
// orchestrator configuration, so presets and overrides can be layered on
// top of a config file.
func FromOrchestratorConfig(oc orchestrator.Config) *ConfigBuilder {
	bg := oc.BackgroundColor
	return &ConfigBuilder{config: Config{
		Width:           oc.Width,
		Height:          oc.Height,
		FPS:             oc.FPS,
		Frames:          oc.Frames,
		Profile:         oc.Profile,
		LevelIDC:        oc.LevelIDC,
		Surfaces:        oc.Surfaces,
		OutroMs:         oc.OutroMs,
		BackgroundColor: color.RGBA{R: bg[0], G: bg[1], B: bg[2], A: bg[3]},
		Label:           oc.Label,
		Verify:          oc.Verify,
		MinPSNR:         oc.MinPSNR,
	}}
}

// WithPreset replaces the picture size, frame rate, frame count, profile
// and surface count with those of a preset.
func (b *ConfigBuilder) WithPreset(name Name) error {
	p, err := Lookup(name)
	if err != nil {
		return err
	}
	b.config.Width = p.Width
	b.config.Height = p.Height
	b.config.FPS = p.FPS
	b.config.Frames = p.Frames
	b.config.Profile = p.Profile
	b.config.Surfaces = p.Surfaces
	return nil
}

// Build returns the final Config, applying constraints: the picture is at
// least one macroblock with even dimensions, and at least one frame is
// rendered.
func (b *ConfigBuilder) Build() Config {
	cfg := b.config

	cfg.Width = max(cfg.Width, 16) &^ 1
	cfg.Height = max(cfg.Height, 16) &^ 1
	if cfg.Frames < 1 {
		cfg.Frames = 1
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.Surfaces < 1 {
		cfg.Surfaces = 1
	}

	return cfg
}

// WithSize sets the picture size.
func (b *ConfigBuilder) WithSize(width, height int) *ConfigBuilder {
	b.config.Width = width
	b.config.Height = height
	return b
}

// WithFPS sets the frame rate. The frame count is kept.
func (b *ConfigBuilder) WithFPS(fps float64) *ConfigBuilder {
	b.config.FPS = fps
	return b
}

// WithFrames sets the number of rendered frames.
func (b *ConfigBuilder) WithFrames(frames int) *ConfigBuilder {
	b.config.Frames = frames
	return b
}

// WithDurationMs sets the frame count from a duration at the current
// frame rate.
func (b *ConfigBuilder) WithDurationMs(ms int) *ConfigBuilder {
	b.config.Frames = int(float64(ms) * b.config.FPS / 1000)
	return b
}

// WithProfile sets the H.264 profile.
func (b *ConfigBuilder) WithProfile(p va.Profile) *ConfigBuilder {
	b.config.Profile = p
	return b
}

// WithLevel sets level_idc.
func (b *ConfigBuilder) WithLevel(levelIDC int) *ConfigBuilder {
	b.config.LevelIDC = levelIDC
	return b
}

// WithSurfaces sets how many frames the encoder keeps in flight.
func (b *ConfigBuilder) WithSurfaces(n int) *ConfigBuilder {
	b.config.Surfaces = n
	return b
}

// WithOutroMs sets the duration to hold the final frame in milliseconds.
func (b *ConfigBuilder) WithOutroMs(ms int) *ConfigBuilder {
	b.config.OutroMs = ms
	return b
}

// WithBackgroundColor sets the pattern background color.
func (b *ConfigBuilder) WithBackgroundColor(c color.Color) *ConfigBuilder {
	b.config.BackgroundColor = c
	return b
}

// WithLabel sets the caption prefix.
func (b *ConfigBuilder) WithLabel(label string) *ConfigBuilder {
	b.config.Label = label
	return b
}

// WithVerify enables decode-and-compare with the given threshold in dB.
func (b *ConfigBuilder) WithVerify(minPSNR float64) *ConfigBuilder {
	b.config.Verify = true
	b.config.MinPSNR = minPSNR
	return b
}

// WithoutVerify disables decode-and-compare.
func (b *ConfigBuilder) WithoutVerify() *ConfigBuilder {
	b.config.Verify = false
	return b
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig(outputPath string) orchestrator.Config {
	return orchestrator.Config{
		OutputPath: outputPath,

		Width:           c.Width,
		Height:          c.Height,
		Frames:          c.Frames,
		FPS:             c.FPS,
		Label:           c.Label,
		BackgroundColor: colorToArray(c.BackgroundColor),

		Profile:  c.Profile,
		LevelIDC: c.LevelIDC,
		Surfaces: c.Surfaces,
		OutroMs:  c.OutroMs,

		Verify:  c.Verify,
		MinPSNR: c.MinPSNR,
	}
}

func colorToArray(c color.Color) [4]uint8 {
	if c == nil {
		return [4]uint8{}
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return [4]uint8{rgba.R, rgba.G, rgba.B, rgba.A}
}
