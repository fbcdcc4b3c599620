/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/cns-portal/pkg/assets"
	"github.com/NVIDIA/cns-portal/pkg/bootstrap"
	"github.com/NVIDIA/cns-portal/pkg/errors"
	"github.com/NVIDIA/cns-portal/pkg/render"
	"github.com/NVIDIA/cns-portal/pkg/reqctx"
	"github.com/NVIDIA/cns-portal/pkg/serializer"
	"github.com/NVIDIA/cns-portal/pkg/ui"
	"github.com/NVIDIA/cns-portal/pkg/upstream"
)

const renderFormatHTML = "html"

func renderCmd() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Render one page to stdout",
		Description: `Assemble the bootstrap payload for a route against the configured
upstreams and render the complete HTML document, exactly as the server would.

Use --format json to print only the bootstrap payload.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "route",
				Value: "/",
				Usage: "route to render",
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "session cookie value to render as an authenticated user",
			},
			&cli.StringFlag{
				Name:    flagFormat,
				Aliases: []string{"t"},
				Value:   renderFormatHTML,
				Usage:   "output format (supported values: html, json)",
			},
			staticDirFlag(),
			outputFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format := cmd.String(flagFormat)
			if format != renderFormatHTML && serializer.ParseFormat(format) != serializer.FormatJSON {
				return fmt.Errorf("unknown output format: %q", format)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			client := upstream.NewClient(
				upstream.WithTimeout(cfg.Upstream.Timeout.Std()),
				upstream.WithMaxAttempts(cfg.Upstream.MaxAttempts),
				upstream.WithUserAgent(name+"/"+version),
			)
			a := bootstrap.NewAssembler(client,
				bootstrap.WithIdentityURL(cfg.Upstream.IdentityURL),
				bootstrap.WithListingURL(cfg.Upstream.ListingURL),
			)
			defer a.Destroy()

			route := cmd.String("route")
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, route, nil)
			if err != nil {
				return fmt.Errorf("invalid route %q: %w", route, err)
			}
			if s := cmd.String("session"); s != "" {
				req.AddCookie(&http.Cookie{Name: reqctx.SessionCookie, Value: s})
			}
			rc := reqctx.Build(req, route)

			if format != renderFormatHTML {
				p := a.Get(ctx, rc)
				w := newWriter(cmd, serializer.FormatJSON)
				defer closeWriter(w)
				if err := w.Serialize(ctx, p); err != nil {
					return err
				}
				return payloadError(p)
			}

			// Resolve assets first so a missing build fails before upstream calls.
			resolver := assets.NewResolver(cfg.StaticDir)
			defer resolver.Close()
			as, err := resolver.Resolve(ctx)
			if err != nil {
				return err
			}

			p := a.Get(ctx, rc)
			r := render.NewRenderer(&ui.App{
				Data: func(ctx context.Context, dataset string) ([]bootstrap.ListingItem, error) {
					return a.Dataset(ctx, rc, dataset)
				},
			})
			body, err := r.RenderHTML(ctx, render.Input{Ctx: rc, Bootstrap: p, Assets: as})
			if err != nil {
				return err
			}

			if path := cmd.String(flagOutput); path != "" {
				if err := os.WriteFile(path, body, 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
			} else if _, err := stdout(cmd).Write(body); err != nil {
				return err
			}
			return payloadError(p)
		},
	}
}

// payloadError turns an error payload into a non-zero exit after it has been
// printed.
func payloadError(p bootstrap.Payload) error {
	ep, ok := p.Page.(bootstrap.ErrorPage)
	if !ok {
		return nil
	}
	return errors.NewWithContext(ep.Code,
		fmt.Sprintf("page %s rendered as an error (status %d)", p.Route, ep.Status),
		map[string]any{"route": p.Route, "status": ep.Status})
}

func closeWriter(w *serializer.Writer) {
	if err := w.Close(); err != nil {
		slog.Warn("failed to close output", "error", err)
	}
}
