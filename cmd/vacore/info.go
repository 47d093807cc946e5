package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/vacore/pkg/adapters/swaccel"
	"github.com/user/vacore/pkg/engine"
	"github.com/user/vacore/pkg/va"
)

// infoAttribs are printed for every profile/entrypoint pair with --all.
var infoAttribs = []va.ConfigAttribType{
	va.ConfigAttribRTFormat,
	va.ConfigAttribRateControl,
	va.ConfigAttribEncPackedHeaders,
	va.ConfigAttribEncMaxSlices,
	va.ConfigAttribMaxPictureWidth,
	va.ConfigAttribMaxPictureHeight,
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: l10n.T("List the profiles, entrypoints and formats the engine exposes"),
		Flags: append(commonFlags(),
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   l10n.T("Also print config attributes and image formats"),
			},
		),
		Action: runInfo,
	}
}

func runInfo(c *cli.Context) error {
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

	return printInfo(c.App.Writer, session, c.Bool("all"))
}

func printInfo(w io.Writer, s *engine.Session, all bool) error {
	major, minor := s.Version()
	fmt.Fprintf(w, "vacore: %s: %d.%d\n", l10n.T("API version"), major, minor)
	fmt.Fprintf(w, "vacore: %s\n", l10n.T("Supported profile and entrypoints"))

	profiles, err := s.QueryConfigProfiles()
	if err != nil {
		return err
	}
	for _, p := range profiles {
		eps, err := s.QueryConfigEntrypoints(p)
		if err != nil {
			return err
		}
		for _, ep := range eps {
			fmt.Fprintf(w, "      %-36s: %s\n", p, ep)
			if !all {
				continue
			}
			attribs, err := s.GetConfigAttributes(p, ep, infoAttribs)
			if err != nil {
				return err
			}
			for _, a := range attribs {
				if a.Value == va.AttribNotSupported {
					continue
				}
				fmt.Fprintf(w, "        %-34s: %#x\n", a.Type, a.Value)
			}
		}
	}

	if !all {
		return nil
	}

	formats, err := s.QueryImageFormats()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "vacore: %s\n", l10n.T("Image formats"))
	for _, f := range formats {
		fmt.Fprintf(w, "      %s %2d bpp\n", va.FourCCString(f.FourCC), f.BitsPerPixel)
	}
	return nil
}
