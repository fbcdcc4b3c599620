/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/cns-portal/pkg/errors"
	"github.com/NVIDIA/cns-portal/pkg/header"
	"github.com/NVIDIA/cns-portal/pkg/hydrate"
	"github.com/NVIDIA/cns-portal/pkg/ui"
	"github.com/NVIDIA/cns-portal/pkg/upstream"
)

// hydrateReport is the printed outcome of a hydration check.
type hydrateReport struct {
	header.Header `json:",inline" yaml:",inline"`
	URL      string   `json:"url" yaml:"url"`
	Route    string   `json:"route" yaml:"route"`
	Mode     string   `json:"mode" yaml:"mode"`
	Source   string   `json:"source" yaml:"source"`
	Mismatch bool     `json:"mismatch" yaml:"mismatch"`
	Reprimed []string `json:"reprimed,omitempty" yaml:"reprimed,omitempty"`
}

func hydrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "hydrate",
		Usage: "Check that a served page hydrates cleanly",
		Description: `Fetch a page from a running portal, boot the client tree over it and
compare the result with the server markup.

Fails when the page carries no usable state and the bootstrap API cannot
supply it, or when the client render differs from the server render.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Value: "http://localhost:3000",
				Usage: "base URL of the running portal",
			},
			&cli.StringFlag{
				Name:  "route",
				Value: "/",
				Usage: "route to check",
			},
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			base, route := cmd.String("url"), cmd.String("route")
			ctx = upstream.WithCorrelationID(ctx, uuid.NewString())

			f := hydrate.NewHTTPFetcher(base, upstream.NewClient(
				upstream.WithUserAgent(name+"/"+version),
			))
			doc, err := f.FetchDocument(ctx, route)
			if err != nil {
				return err
			}

			b := &hydrate.Bridge{
				Tree:    &ui.App{Data: f.FetchDataset},
				Fetcher: f,
			}
			res, err := b.Boot(ctx, doc, route)
			if err != nil {
				return err
			}

			r := hydrateReport{
				URL:      base,
				Route:    route,
				Mode:     string(res.Mode),
				Source:   string(res.Source),
				Mismatch: res.Mismatch,
				Reprimed: res.Reprimed,
			}
			r.Init(header.KindHydrationReport, version)

			w := newWriter(cmd, format)
			defer closeWriter(w)
			if err := w.Serialize(ctx, r); err != nil {
				return err
			}

			if res.Mismatch {
				return errors.NewWithContext(errors.ErrCodeValidation,
					fmt.Sprintf("client render of %s differs from the server markup", route),
					map[string]any{"url": base, "route": route})
			}
			return nil
		},
	}
}
