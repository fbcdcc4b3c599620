/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/cns-portal/pkg/api"
	"github.com/NVIDIA/cns-portal/pkg/config"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the portal server",
		Description: `Run the portal HTTP server until interrupted.

Configuration is resolved from defaults, the --config file, environment
variables and finally these flags.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "listening port (overrides " + config.EnvPort + ")",
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "listening address (overrides " + config.EnvAddress + ")",
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "production or development (overrides " + config.EnvMode + ")",
			},
			staticDirFlag(),
			&cli.StringFlag{
				Name:  "identity-url",
				Usage: "identity upstream, may contain {userId} (overrides " + config.EnvIdentityURL + ")",
			},
			&cli.StringFlag{
				Name:  "listing-url",
				Usage: "listing upstream (overrides " + config.EnvListingURL + ")",
			},
			&cli.DurationFlag{
				Name:  "upstream-timeout",
				Usage: "per-attempt upstream timeout (overrides " + config.EnvUpstreamTimeout + ")",
			},
			&cli.IntFlag{
				Name:  "upstream-max-attempts",
				Usage: "attempts per upstream call (overrides " + config.EnvUpstreamAttempts + ")",
			},
			&cli.DurationFlag{
				Name:  "bootstrap-ttl",
				Usage: "bootstrap payload cache lifetime (overrides " + config.EnvBootstrapTTL + ")",
			},
			&cli.DurationFlag{
				Name:  "data-ttl",
				Usage: "dataset cache lifetime (overrides " + config.EnvDataTTL + ")",
			},
			&cli.IntFlag{
				Name:  "cache-max-entries",
				Usage: "entries per cache (overrides " + config.EnvCacheMaxEntries + ")",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "graceful shutdown budget (overrides " + config.EnvShutdownTimeout + ")",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := serveConfig(cmd)
			if err != nil {
				return err
			}
			return api.ServeConfig(cfg)
		},
	}
}

// serveConfig layers the serve flags over the loaded configuration.
func serveConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("port") {
		cfg.Port = cmd.Int("port")
	}
	if cmd.IsSet("address") {
		cfg.Address = cmd.String("address")
	}
	if cmd.IsSet("mode") {
		cfg.Mode = config.Mode(cmd.String("mode"))
	}
	if cmd.IsSet("identity-url") {
		cfg.Upstream.IdentityURL = cmd.String("identity-url")
	}
	if cmd.IsSet("listing-url") {
		cfg.Upstream.ListingURL = cmd.String("listing-url")
	}
	if cmd.IsSet("upstream-timeout") {
		cfg.Upstream.Timeout = config.Duration(cmd.Duration("upstream-timeout"))
	}
	if cmd.IsSet("upstream-max-attempts") {
		cfg.Upstream.MaxAttempts = cmd.Int("upstream-max-attempts")
	}
	if cmd.IsSet("bootstrap-ttl") {
		cfg.Cache.BootstrapTTL = config.Duration(cmd.Duration("bootstrap-ttl"))
	}
	if cmd.IsSet("data-ttl") {
		cfg.Cache.DataTTL = config.Duration(cmd.Duration("data-ttl"))
	}
	if cmd.IsSet("cache-max-entries") {
		cfg.Cache.MaxEntries = cmd.Int("cache-max-entries")
	}
	if cmd.IsSet("shutdown-timeout") {
		cfg.ShutdownTimeout = config.Duration(cmd.Duration("shutdown-timeout"))
	}
	if cmd.IsSet(flagLogLevel) {
		cfg.LogLevel = cmd.String(flagLogLevel)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
