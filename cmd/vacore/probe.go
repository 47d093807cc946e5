package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/vacore/pkg/adapters/codecdetect"
	"github.com/user/vacore/pkg/adapters/smartdecoder"
	"github.com/user/vacore/pkg/adapters/swaccel"
	"github.com/user/vacore/pkg/engine"
)

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Show the codec, size and profile of MP4 files"),
		ArgsUsage: "FILE...",
		Flags: append(commonFlags(),
			&cli.BoolFlag{
				Name:  "decode",
				Usage: l10n.T("Also decode every frame through the engine and count damaged frames"),
			},
		),
		Action: runProbe,
	}
}

func runProbe(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit(l10n.T("At least one file argument is required"), 2)
	}

	var decoder *smartdecoder.Decoder
	if c.Bool("decode") {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		log := newLogger(c, cfg)
		opts, err := cfg.ToEngineOptions()
		if err != nil {
			return err
		}
		session, err := engine.Initialize(swaccel.New(swaccel.WithLogger(log)), opts, log)
		if err != nil {
			return err
		}
		defer session.Terminate(context.Background())

		decoder = smartdecoder.New(session, log)
		defer decoder.Close()
	}

	w := c.App.Writer
	for _, path := range c.Args().Slice() {
		info, err := codecdetect.ProbeFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		printProbe(w, path, info)

		if decoder == nil {
			continue
		}
		frames, err := decoder.ReadFrames(c.Context, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		damaged := 0
		for _, f := range frames {
			if len(f.MBErrors) > 0 {
				damaged++
			}
		}
		fmt.Fprintf(w, "  %s: %d, %s: %d\n", l10n.T("decoded frames"), len(frames), l10n.T("damaged frames"), damaged)
	}
	return nil
}

func printProbe(w io.Writer, path string, info *codecdetect.Info) {
	fmt.Fprintf(w, "%s: %s %dx%d", path, info.Codec, info.Width, info.Height)
	if info.Codec == codecdetect.CodecH264 {
		fmt.Fprintf(w, " profile_idc=%d level_idc=%d", info.ProfileIDC, info.LevelIDC)
	}
	fmt.Fprintf(w, ", %d %s (%d %s), %d ms, %d bytes",
		info.Samples, l10n.T("samples"), info.SyncCount, l10n.T("sync"), info.DurationMs, info.Bytes)
	if info.Fragmented {
		fmt.Fprintf(w, ", %s", l10n.T("fragmented"))
	}
	if info.Decodable() {
		fmt.Fprintf(w, ", %s %s", l10n.T("decodable as"), info.Profile)
	}
	fmt.Fprintln(w)
}
