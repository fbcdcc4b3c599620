/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/cns-portal/pkg/assets"
	"github.com/NVIDIA/cns-portal/pkg/header"
)

type manifestReport struct {
	header.Header `json:",inline" yaml:",inline"`
	Spec          assets.Assets `json:"spec" yaml:"spec"`
}

func manifestCmd() *cli.Command {
	return &cli.Command{
		Name:  "manifest",
		Usage: "Resolve the client build's entry assets",
		Description: `Read the asset manifest written by the client build and print the resolved
primary script and stylesheet.

Fails when the manifest is missing, is not valid JSON, or names no primary
script. Run this after a client build to catch a broken deploy before the
server does.`,
		Flags: []cli.Flag{
			staticDirFlag(),
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			a, err := assets.Load(assets.ManifestPath(cfg.StaticDir))
			if err != nil {
				return err
			}

			r := manifestReport{Spec: a}
			r.Init(header.KindAssetManifest, version)

			w := newWriter(cmd, format)
			defer closeWriter(w)
			return w.Serialize(ctx, r)
		},
	}
}
