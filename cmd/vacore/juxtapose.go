package main

import (
	"context"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/vacore/pkg/adapters/osfilesystem"
	"github.com/user/vacore/pkg/adapters/smartdecoder"
	"github.com/user/vacore/pkg/adapters/smartencoder"
	"github.com/user/vacore/pkg/adapters/swaccel"
	"github.com/user/vacore/pkg/config"
	"github.com/user/vacore/pkg/engine"
	"github.com/user/vacore/pkg/juxtapose"
)

func juxtaposeCommand() *cli.Command {
	return &cli.Command{
		Name:      "juxtapose",
		Usage:     l10n.T("Create a side-by-side comparison video"),
		ArgsUsage: "LEFT RIGHT",
		Flags: append(commonFlags(),
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: l10n.T("Output MP4 file path"), Category: l10n.T("Output")},
			&cli.IntFlag{Name: "gap", Value: juxtapose.DefaultOptions().Gap, Usage: l10n.T("Gap between videos in pixels")},
			&cli.Float64Flag{Name: "fps", Value: juxtapose.DefaultOptions().FPS, Usage: l10n.T("Frame rate")},
			&cli.StringFlag{Name: "profile", Usage: l10n.T("H.264 profile (baseline, main, high or a VAProfile name)")},
		),
		Action: runJuxtapose,
	}
}

func runJuxtapose(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit(l10n.T("Two video arguments are required"), 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := newLogger(c, cfg)

	opts := juxtapose.DefaultOptions()
	opts.Gap = c.Int("gap")
	opts.FPS = c.Float64("fps")
	if c.IsSet("profile") {
		if opts.Profile, err = config.ParseProfile(c.String("profile")); err != nil {
			return err
		}
	}

	engineOpts, err := cfg.ToEngineOptions()
	if err != nil {
		return err
	}
	session, err := engine.Initialize(swaccel.New(swaccel.WithLogger(log)), engineOpts, log)
	if err != nil {
		return err
	}
	defer session.Terminate(context.Background())

	decoder := smartdecoder.New(session, log)
	defer decoder.Close()
	encoder := smartencoder.New(session, log, smartencoder.Options{AllowFallback: true})

	left, right, output := c.Args().Get(0), c.Args().Get(1), c.String("output")
	log.Info(l10n.F("Creating comparison video: %s + %s → %s", left, right, output))

	stage := juxtapose.New(decoder, encoder, osfilesystem.New(), log, opts)
	result, err := stage.Execute(c.Context, juxtapose.Input{LeftPath: left, RightPath: right, OutputPath: output})
	if err != nil {
		return err
	}

	log.Info(l10n.F("Frames: %d, Duration: %dms", result.FrameCount, result.DurationMs))
	if result.MeanPSNR > 0 {
		log.Info(l10n.F("Mean PSNR between inputs: %.2f dB", result.MeanPSNR))
	}
	log.Info(l10n.F("Output saved to %s", output))
	return nil
}
