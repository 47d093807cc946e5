package preset

import (
	"image/color"
	"testing"

	"github.com/user/vacore/pkg/orchestrator"
	"github.com/user/vacore/pkg/va"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name          Name
		width, height int
		profile       va.Profile
	}{
		{QCIF, 176, 144, va.ProfileH264ConstrainedBaseline},
		{CIF, 352, 288, va.ProfileH264ConstrainedBaseline},
		{VGA, 640, 480, va.ProfileH264Main},
		{HD, 1280, 720, va.ProfileH264High},
	}
	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			c, err := Lookup(tt.name)
			if err != nil {
				t.Fatalf("Lookup failed: %v", err)
			}
			if c.Width != tt.width || c.Height != tt.height || c.Profile != tt.profile {
				t.Errorf("unexpected preset %+v", c)
			}
			if c.Frames != int(c.FPS) || !c.Verify {
				t.Errorf("expected one verified second, got %d frames at %v fps", c.Frames, c.FPS)
			}
		})
	}

	if _, err := Lookup("8k"); err == nil {
		t.Error("expected error for unknown preset")
	}
	if names := Names(); len(names) != 4 || names[0] != "cif" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestConfigBuilder(t *testing.T) {
	cfg := NewConfigBuilder().
		WithSize(201, 99).
		WithFPS(25).
		WithDurationMs(2000).
		WithProfile(va.ProfileH264Main).
		WithLevel(30).
		WithSurfaces(3).
		WithOutroMs(400).
		WithLabel("test").
		WithBackgroundColor(color.RGBA{R: 1, G: 2, B: 3, A: 255}).
		WithVerify(35).
		Build()

	if cfg.Width != 200 || cfg.Height != 98 {
		t.Errorf("expected even size 200x98, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Frames != 50 {
		t.Errorf("expected 50 frames, got %d", cfg.Frames)
	}
	if cfg.Profile != va.ProfileH264Main || cfg.LevelIDC != 30 || cfg.Surfaces != 3 || cfg.OutroMs != 400 {
		t.Errorf("unexpected encode settings %+v", cfg)
	}
	if !cfg.Verify || cfg.MinPSNR != 35 {
		t.Errorf("unexpected verify settings %+v", cfg)
	}

	oc := cfg.ToOrchestratorConfig("out.mp4")
	if oc.OutputPath != "out.mp4" || oc.Width != 200 || oc.Label != "test" || oc.MinPSNR != 35 {
		t.Errorf("unexpected orchestrator config %+v", oc)
	}
	if oc.BackgroundColor != [4]uint8{1, 2, 3, 255} {
		t.Errorf("unexpected background %v", oc.BackgroundColor)
	}
}

func TestConfigBuilder_Constraints(t *testing.T) {
	cfg := NewConfigBuilder().WithSize(4, 0).WithFrames(0).WithFPS(-1).WithSurfaces(0).WithoutVerify().Build()
	if cfg.Width != 16 || cfg.Height != 16 {
		t.Errorf("expected 16x16 minimum, got %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Frames != 1 || cfg.FPS != 30 || cfg.Surfaces != 1 || cfg.Verify {
		t.Errorf("unexpected constrained config %+v", cfg)
	}

	b, err := NewConfigBuilderFrom(QCIF)
	if err != nil {
		t.Fatalf("NewConfigBuilderFrom failed: %v", err)
	}
	if b.Build().Width != 176 {
		t.Error("expected QCIF width")
	}
	if _, err := NewConfigBuilderFrom("nope"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestFromOrchestratorConfig(t *testing.T) {
	oc := orchestrator.DefaultConfig()
	oc.Label = "file"
	oc.BackgroundColor = [4]uint8{9, 8, 7, 255}

	b := FromOrchestratorConfig(oc)
	if err := b.WithPreset(VGA); err != nil {
		t.Fatalf("WithPreset failed: %v", err)
	}
	got := b.WithOutroMs(250).Build().ToOrchestratorConfig("x.mp4")

	if got.Width != 640 || got.Height != 480 || got.Profile != va.ProfileH264Main {
		t.Errorf("preset not applied: %+v", got)
	}
	if got.Label != "file" || got.BackgroundColor != oc.BackgroundColor || got.MinPSNR != oc.MinPSNR {
		t.Errorf("file settings lost: %+v", got)
	}
	if got.OutroMs != 250 {
		t.Errorf("expected outro 250, got %d", got.OutroMs)
	}
	if err := b.WithPreset("nope"); err == nil {
		t.Error("expected error for unknown preset")
	}
}
