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

package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/NVIDIA/cns-portal/pkg/assets"
	"github.com/NVIDIA/cns-portal/pkg/bootstrap"
	"github.com/NVIDIA/cns-portal/pkg/config"
	"github.com/NVIDIA/cns-portal/pkg/defaults"
	"github.com/NVIDIA/cns-portal/pkg/errors"
	"github.com/NVIDIA/cns-portal/pkg/logging"
	"github.com/NVIDIA/cns-portal/pkg/render"
	"github.com/NVIDIA/cns-portal/pkg/reqctx"
	"github.com/NVIDIA/cns-portal/pkg/ui"
	"github.com/NVIDIA/cns-portal/pkg/upstream"
)

const (
	defaultName    = "portald"
	versionDefault = "dev"
)

// Bootstrapper produces bootstrap payloads and datasets.
type Bootstrapper interface {
	Get(ctx context.Context, rc reqctx.RequestContext) bootstrap.Payload
	Dataset(ctx context.Context, rc reqctx.RequestContext, name string) ([]bootstrap.ListingItem, error)
}

// AssetResolver resolves the client build's entry assets.
type AssetResolver interface {
	Resolve(ctx context.Context) (assets.Assets, error)
	Path() string
}

// PageRenderer renders the HTML document for a request.
type PageRenderer interface {
	RenderHTML(ctx context.Context, in render.Input) ([]byte, error)
}

// Option configures a Server.
type Option func(*Server)

// WithName sets the server name reported in logs.
func WithName(name string) Option {
	return func(s *Server) {
		s.name = name
	}
}

// WithVersion sets the version reported in logs.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// WithBootstrapper replaces the default upstream-backed assembler.
func WithBootstrapper(b Bootstrapper) Option {
	return func(s *Server) {
		s.bootstrap = b
	}
}

// WithAssetResolver replaces the default manifest resolver.
func WithAssetResolver(r AssetResolver) Option {
	return func(s *Server) {
		s.assets = r
	}
}

// WithRenderer replaces the default page renderer.
func WithRenderer(r PageRenderer) Option {
	return func(s *Server) {
		s.renderer = r
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server is the portal HTTP server.
type Server struct {
	name    string
	version string
	config  *config.Config
	logger  *slog.Logger

	bootstrap Bootstrapper
	assets    AssetResolver
	renderer  PageRenderer
	closers   []func()

	httpServer  *http.Server
	handler     http.Handler
	rateLimiter *rate.Limiter
	started     time.Time

	mu    sync.RWMutex
	ready bool
}

// New builds a Server from cfg. Components not supplied through options are
// created from cfg and released by Close.
func New(cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		name:        defaultName,
		version:     versionDefault,
		config:      cfg,
		logger:      slog.Default(),
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		started:     time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.bootstrap == nil {
		client := upstream.NewClient(
			upstream.WithTimeout(cfg.Upstream.Timeout.Std()),
			upstream.WithMaxAttempts(cfg.Upstream.MaxAttempts),
			upstream.WithLogger(s.logger),
			upstream.WithUserAgent(fmt.Sprintf("%s/%s", s.name, s.version)),
		)
		a := bootstrap.NewAssembler(client,
			bootstrap.WithIdentityURL(cfg.Upstream.IdentityURL),
			bootstrap.WithListingURL(cfg.Upstream.ListingURL),
			bootstrap.WithPublicTTL(cfg.Cache.BootstrapTTL.Std()),
			bootstrap.WithPrivateTTL(cfg.Cache.BootstrapTTL.Std()),
			bootstrap.WithDataTTL(cfg.Cache.DataTTL.Std()),
			bootstrap.WithMaxEntries(cfg.Cache.MaxEntries),
			bootstrap.WithSweepInterval(defaults.CacheSweepInterval),
			bootstrap.WithLogger(s.logger),
		)
		s.bootstrap = a
		s.closers = append(s.closers, a.Destroy)
	}

	if s.assets == nil {
		r := assets.NewResolver(cfg.StaticDir,
			assets.WithDevelopment(cfg.Development()),
			assets.WithLogger(s.logger),
		)
		s.assets = r
		s.closers = append(s.closers, r.Close)
	}

	if s.renderer == nil {
		s.renderer = render.NewRenderer(&ui.App{Data: s.dataSource})
	}

	s.handler = s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           s.handler,
		ReadTimeout:       defaults.ServerReadTimeout,
		ReadHeaderTimeout: defaults.ServerReadHeaderTimeout,
		WriteTimeout:      defaults.ServerWriteTimeout,
		IdleTimeout:       defaults.ServerIdleTimeout,
		ErrorLog:          logging.NewLogLogger(slog.LevelWarn, false),
	}

	return s
}

// dataSource lets the UI load a dataset the bootstrap did not embed.
func (s *Server) dataSource(ctx context.Context, name string) ([]bootstrap.ListingItem, error) {
	rc := reqctx.RequestContext{RequestID: reqctx.RequestIDFrom(ctx)}
	return s.bootstrap.Dataset(ctx, rc, name)
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SetReady flips the readiness probe.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *Server) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Close releases the caches created by New.
func (s *Server) Close() {
	for _, c := range s.closers {
		c()
	}
	s.closers = nil
}

// Run serves until ctx is cancelled, then drains within the shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeFatalBoot, "failed to listen", err,
			map[string]any{"address": s.httpServer.Addr})
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.httpServer.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if w, ok := s.assets.(interface{ Watch(context.Context) error }); ok && s.config.Development() {
		g.Go(func() error {
			return w.Watch(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return s.Shutdown(context.Background())
	})

	s.SetReady(true)
	s.notify(daemon.SdNotifyReady)
	s.logger.Info("server listening",
		"name", s.name,
		"version", s.version,
		"address", ln.Addr().String(),
		"mode", s.config.Mode,
	)

	return g.Wait()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetReady(false)
	s.notify(daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout.Std())
	defer cancel()

	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		s.logger.Warn("systemd notification failed", "state", state, "error", err)
		return
	}
	if sent {
		s.logger.Debug("systemd notified", "state", state)
	}
}

// RunWithConfig runs a server for cfg until SIGINT or SIGTERM.
func RunWithConfig(cfg *config.Config, opts ...Option) error {
	s := New(cfg, opts...)
	defer s.Close()

	s.logger.Info("server config",
		slog.String("address", s.httpServer.Addr),
		slog.String("mode", string(s.config.Mode)),
		slog.String("staticDir", s.config.StaticDir),
		slog.String("manifest", s.assets.Path()),
		slog.Duration("upstreamTimeout", s.config.Upstream.Timeout.Std()),
		slog.Int("upstreamMaxAttempts", s.config.Upstream.MaxAttempts),
		slog.Duration("bootstrapTTL", s.config.Cache.BootstrapTTL.Std()),
		slog.Duration("dataTTL", s.config.Cache.DataTTL.Std()),
		slog.Float64("rateLimit", s.config.RateLimit),
		slog.Int("rateLimitBurst", s.config.RateLimitBurst),
		slog.Duration("shutdownTimeout", s.config.ShutdownTimeout.Std()),
	)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	s.logger.Info("server stopped gracefully")
	return nil
}
