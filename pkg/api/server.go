// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"log/slog"

	"github.com/NVIDIA/cns-portal/pkg/config"
	"github.com/NVIDIA/cns-portal/pkg/logging"
	"github.com/NVIDIA/cns-portal/pkg/server"
)

const (
	name           = "portald"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/NVIDIA/cns-portal/pkg/api.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Serve loads configuration from the environment and runs the portal.
func Serve() error {
	return ServeWith()
}

// ServeWith is Serve with extra configuration options, such as a config file
// or overrides applied by a command line.
func ServeWith(opts ...config.Option) error {
	return ServeConfig(nil, opts...)
}

// ServeConfig runs the portal with cfg, loading it first when cfg is nil.
// A configuration failure is returned before anything listens.
func ServeConfig(cfg *config.Config, opts ...config.Option) error {
	if cfg == nil {
		var err error
		if cfg, err = config.Load(opts...); err != nil {
			logging.SetDefaultStructuredLogger(name, version)
			slog.Error("invalid configuration", "error", err)
			return err
		}
	}

	logging.SetDefaultStructuredLoggerWithLevel(name, version, cfg.LogLevel)
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
	)

	if err := server.RunWithConfig(cfg,
		server.WithName(name),
		server.WithVersion(version),
	); err != nil {
		slog.Error("server exited with error", "error", err)
		return err
	}

	return nil
}

// Version returns the build version, commit and date.
func Version() (string, string, string) {
	return version, commit, date
}
