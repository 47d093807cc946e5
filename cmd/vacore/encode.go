package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/vacore/pkg/adapters/filesink"
	"github.com/user/vacore/pkg/adapters/ggrenderer"
	"github.com/user/vacore/pkg/adapters/nullsink"
	"github.com/user/vacore/pkg/adapters/osfilesystem"
	"github.com/user/vacore/pkg/adapters/smartdecoder"
	"github.com/user/vacore/pkg/adapters/smartencoder"
	"github.com/user/vacore/pkg/adapters/swaccel"
	"github.com/user/vacore/pkg/config"
	"github.com/user/vacore/pkg/engine"
	"github.com/user/vacore/pkg/orchestrator"
	"github.com/user/vacore/pkg/ports"
	"github.com/user/vacore/pkg/preset"
	"github.com/user/vacore/pkg/stages/encode"
	"github.com/user/vacore/pkg/stages/pattern"
	"github.com/user/vacore/pkg/stages/verify"
	"github.com/user/vacore/pkg/summarizer"
)

func encodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "encode",
		Usage: l10n.T("Render a test pattern and encode it as an H.264 MP4 file"),
		Flags: append(commonFlags(),
			// Output
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: l10n.T("Output MP4 file path"), Category: l10n.T("Output")},
			&cli.StringFlag{Name: "summary", Usage: l10n.T("Output execution summary to file (Markdown format)"), Category: l10n.T("Output")},

			// Pattern
			&cli.StringFlag{Name: "preset", Aliases: []string{"p"}, Usage: l10n.F("Clip preset (%s)", strings.Join(preset.Names(), ", ")), Category: l10n.T("Pattern")},
			&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Usage: l10n.T("Picture width"), Category: l10n.T("Pattern")},
			&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Usage: l10n.T("Picture height"), Category: l10n.T("Pattern")},
			&cli.IntFlag{Name: "frames", Aliases: []string{"n"}, Usage: l10n.T("Number of frames"), Category: l10n.T("Pattern")},
			&cli.Float64Flag{Name: "fps", Usage: l10n.T("Frame rate"), Category: l10n.T("Pattern")},
			&cli.StringFlag{Name: "label", Usage: l10n.T("Caption prefix"), Category: l10n.T("Pattern")},
			&cli.StringFlag{Name: "background-color", Usage: l10n.T("Background color (hex, e.g., #1e1e1e)"), Category: l10n.T("Pattern")},
			&cli.StringFlag{Name: "font", Usage: l10n.T("TrueType font for the caption"), Category: l10n.T("Pattern")},

			// Encoding
			&cli.StringFlag{Name: "profile", Usage: l10n.T("H.264 profile (baseline, main, high or a VAProfile name)"), Category: l10n.T("Encoding")},
			&cli.IntFlag{Name: "level", Usage: l10n.T("level_idc (0 = automatic)"), Category: l10n.T("Encoding")},
			&cli.IntFlag{Name: "surfaces", Usage: l10n.T("Surfaces kept in flight by the encoder"), Category: l10n.T("Encoding")},
			&cli.BoolFlag{Name: "allow-fallback", Usage: l10n.T("Fall back to a simpler profile when the requested one is unavailable"), Category: l10n.T("Encoding")},
			&cli.IntFlag{Name: "outro-ms", Usage: l10n.T("Duration to hold final frame in milliseconds"), Category: l10n.T("Encoding")},

			// Verification
			&cli.BoolFlag{Name: "no-verify", Usage: l10n.T("Skip decoding and comparing the output"), Category: l10n.T("Verification")},
			&cli.Float64Flag{Name: "min-psnr", Usage: l10n.T("Lowest acceptable PSNR in dB"), Category: l10n.T("Verification")},

			// Debug
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: l10n.T("Enable debug output"), Category: l10n.T("Debug")},
			&cli.StringFlag{Name: "debug-dir", Usage: l10n.T("Directory for debug output"), Category: l10n.T("Debug")},
		),
		Action: runEncode,
	}
}

func runEncode(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("output") {
		cfg.OutputPath = c.String("output")
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Bool("debug")
	}
	if c.IsSet("debug-dir") {
		cfg.DebugDir = c.String("debug-dir")
	}
	if c.IsSet("allow-fallback") {
		cfg.Encode.AllowFallback = c.Bool("allow-fallback")
	}
	if c.IsSet("font") {
		cfg.Pattern.Font = c.String("font")
	}

	orchConfig, err := buildOrchestratorConfig(c, cfg)
	if err != nil {
		return err
	}
	engineOpts, err := cfg.ToEngineOptions()
	if err != nil {
		return err
	}

	log := newLogger(c, cfg)
	ctx := c.Context

	session, err := engine.Initialize(swaccel.New(swaccel.WithLogger(log)), engineOpts, log)
	if err != nil {
		return err
	}
	defer session.Terminate(context.Background())

	// Create adapters
	fs := osfilesystem.New()
	renderer := ggrenderer.New()
	encoder := smartencoder.New(session, log, smartencoder.Options{AllowFallback: cfg.Encode.AllowFallback})
	decoder := smartdecoder.New(session, log)
	defer decoder.Close()

	var sink ports.DebugSink
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, fs, renderer)
	} else {
		sink = nullsink.New()
	}

	// Create stages
	orch := orchestrator.New(
		pattern.NewStage(renderer, sink, log, engineOpts.Workers),
		encode.NewStage(encoder, log),
		verify.NewStage(decoder, sink, log),
		fs,
		sink,
		log,
	)

	result, runErr := orch.Run(ctx, orchConfig)
	if runErr != nil && !errors.Is(runErr, orchestrator.ErrVerifyFailed) {
		return runErr
	}

	log.Info(l10n.F("Output saved to %s", orchConfig.OutputPath))

	if path := c.String("summary"); path != "" {
		result.Profile = encoder.Info().Profile.String()
		summary := buildSummary(result, orchConfig, engineOpts)
		writer := summarizer.NewWriter(summarizer.NewMarkdownFormatter(summarizer.WithTranslator(l10n.T)), fs)
		if err := writer.Write(path, summary); err != nil {
			log.Error(l10n.F("Failed to write summary: %s", err))
		} else {
			log.Info(l10n.F("Summary saved to %s", path))
		}
	}

	return runErr
}

// buildOrchestratorConfig layers the preset and the pattern, encoding and
// verification flags over the config file.
func buildOrchestratorConfig(c *cli.Context, cfg config.Config) (orchestrator.Config, error) {
	base, err := cfg.ToOrchestratorConfig()
	if err != nil {
		return orchestrator.Config{}, err
	}
	builder := preset.FromOrchestratorConfig(base)

	if c.IsSet("preset") {
		if err := builder.WithPreset(preset.Name(c.String("preset"))); err != nil {
			return orchestrator.Config{}, err
		}
	}

	if c.IsSet("width") || c.IsSet("height") {
		w, h := base.Width, base.Height
		if c.IsSet("width") {
			w = c.Int("width")
		}
		if c.IsSet("height") {
			h = c.Int("height")
		}
		builder.WithSize(w, h)
	}
	if c.IsSet("fps") {
		builder.WithFPS(c.Float64("fps"))
	}
	if c.IsSet("frames") {
		builder.WithFrames(c.Int("frames"))
	}
	if c.IsSet("label") {
		builder.WithLabel(c.String("label"))
	}
	if c.IsSet("background-color") {
		builder.WithBackgroundColor(config.ParseColor(c.String("background-color")))
	}
	if c.IsSet("profile") {
		p, err := config.ParseProfile(c.String("profile"))
		if err != nil {
			return orchestrator.Config{}, err
		}
		builder.WithProfile(p)
	}
	if c.IsSet("level") {
		builder.WithLevel(c.Int("level"))
	}
	if c.IsSet("surfaces") {
		builder.WithSurfaces(c.Int("surfaces"))
	}
	if c.IsSet("outro-ms") {
		builder.WithOutroMs(c.Int("outro-ms"))
	}
	if c.IsSet("min-psnr") {
		builder.WithVerify(c.Float64("min-psnr"))
	}
	if c.Bool("no-verify") {
		builder.WithoutVerify()
	}

	oc := builder.Build().ToOrchestratorConfig(cfg.OutputPath)
	oc.FontPath = cfg.Pattern.Font
	return oc, nil
}

func buildSummary(result orchestrator.RunResult, oc orchestrator.Config, opts engine.Options) *summarizer.Summary {
	b := summarizer.NewBuilder().
		WithSettings(summarizer.Settings{
			Backend:     "swaccel",
			Profile:     result.Profile,
			FPS:         oc.FPS,
			Surfaces:    oc.Surfaces,
			Workers:     opts.Workers,
			MaxInFlight: opts.MaxInFlight,
		}).
		WithVideo(summarizer.VideoInfo{
			OutputPath:    result.OutputPath,
			Width:         result.Width,
			Height:        result.Height,
			FrameCount:    result.FrameCount,
			EncodedFrames: result.EncodedFrames,
			DurationMs:    result.VideoDuration,
			FileSize:      result.VideoFileSize,
		})

	if v := result.Verify; v != nil {
		b.WithVerify(summarizer.VerifyInfo{
			Compared:      v.Compared,
			DamagedFrames: v.DamagedFrames,
			MeanPSNR:      v.MeanPSNR,
			MinPSNR:       v.MinPSNR,
			MaxAbsError:   v.MaxAbsError,
			Threshold:     v.Threshold,
			Passed:        v.Passed,
		})
	}
	return b.Build()
}
