/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/cns-portal/pkg/config"
	"github.com/NVIDIA/cns-portal/pkg/logging"
)

const (
	name           = "portal"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Flag names shared by several commands.
const (
	flagConfig    = "config"
	flagLogLevel  = "log-level"
	flagStaticDir = "static-dir"
	flagOutput    = "output"
	flagFormat    = "format"
)

func staticDirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  flagStaticDir,
		Usage: "directory holding the client build (overrides " + config.EnvStaticDir + ")",
	}
}

// NewRoot returns the root command.
func NewRoot() *cli.Command {
	return &cli.Command{
		Name:                  name,
		Usage:                 "server-side rendering portal",
		Version:               fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Usage:   "config file (YAML or JSON)",
				Sources: cli.EnvVars(config.EnvFile),
			},
			&cli.StringFlag{
				Name:    flagLogLevel,
				Usage:   "log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars(config.EnvLogLevel),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.SetDefaultStructuredLoggerWithLevel(name, version, cmd.String(flagLogLevel))
			slog.Debug("starting",
				"name", name,
				"version", version,
				"commit", commit,
				"date", date,
				"command", cmd.Args().First(),
			)
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			renderCmd(),
			manifestCmd(),
			hydrateCmd(),
		},
	}
}

// Execute runs the CLI with the process arguments and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRoot().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// loadConfig resolves configuration with the --config file and applies the
// static directory override shared by every command.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(config.WithFile(cmd.String(flagConfig)))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet(flagStaticDir) {
		cfg.StaticDir = cmd.String(flagStaticDir)
	}
	return cfg, nil
}
