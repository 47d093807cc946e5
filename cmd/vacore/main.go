// Package main provides the CLI entry point for vacore.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/vacore/pkg/adapters/logger"
	"github.com/user/vacore/pkg/config"
	"github.com/user/vacore/pkg/ports"
)

var version = "dev"

func main() {
	app := newApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, l10n.T("Interrupted, shutting down..."))
		cancel()
	}()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "vacore",
		Usage:   l10n.T("Exercise the video acceleration engine"),
		Version: version,
		Description: l10n.T("vacore drives the software accelerator through the engine: " +
			"it lists capabilities, encodes test patterns, probes and compares MP4 files."),
		Commands: []*cli.Command{
			infoCommand(),
			encodeCommand(),
			probeCommand(),
			juxtaposeCommand(),
			versionCommand(),
		},
	}
}

// commonFlags are shared by every command that opens a session.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   l10n.T("Configuration file (YAML or TOML)"),
		},
		&cli.StringFlag{
			Name:     "log-level",
			Aliases:  []string{"l"},
			Usage:    l10n.T("Log level (debug, info, warn, error)"),
			Category: l10n.T("Logging"),
		},
		&cli.BoolFlag{
			Name:     "quiet",
			Aliases:  []string{"Q"},
			Usage:    l10n.T("Suppress all log output"),
			Category: l10n.T("Logging"),
		},
		&cli.IntFlag{
			Name:     "workers",
			Usage:    l10n.T("Engine dispatcher workers (default: CPU count)"),
			Category: l10n.T("Engine"),
		},
		&cli.IntFlag{
			Name:     "max-in-flight",
			Usage:    l10n.T("Frames allowed in flight across all contexts"),
			Category: l10n.T("Engine"),
		},
		&cli.StringSliceFlag{
			Name:     "disable",
			Usage:    l10n.T("Hide a Profile:Entrypoint pair (repeatable)"),
			Category: l10n.T("Engine"),
		},
	}
}

// loadConfig reads the config file when given and applies the common flags.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("workers") {
		cfg.Engine.Workers = c.Int("workers")
	}
	if c.IsSet("max-in-flight") {
		cfg.Engine.MaxInFlight = c.Int("max-in-flight")
	}
	if c.IsSet("disable") {
		cfg.Engine.Disable = append(cfg.Engine.Disable, c.StringSlice("disable")...)
	}
	return cfg, nil
}

func newLogger(c *cli.Context, cfg config.Config) ports.Logger {
	if c.Bool("quiet") {
		return logger.NewNoop()
	}
	return logger.NewConsole(ports.ParseLogLevel(cfg.LogLevel))
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: l10n.T("Show version information"),
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, l10n.F("vacore version %s", version))
			return nil
		},
	}
}
