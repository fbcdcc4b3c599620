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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/NVIDIA/cns-portal/pkg/defaults"
	"github.com/NVIDIA/cns-portal/pkg/errors"
	"github.com/NVIDIA/cns-portal/pkg/serializer"
)

// Mode selects production or development behavior.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

// Environment variable names.
const (
	EnvFile             = "PORTAL_CONFIG"
	EnvPort             = "PORT"
	EnvAddress          = "PORTAL_ADDRESS"
	EnvMode             = "PORTAL_MODE"
	EnvStaticDir        = "STATIC_DIR"
	EnvIdentityURL      = "UPSTREAM_IDENTITY_URL"
	EnvListingURL       = "UPSTREAM_LISTING_URL"
	EnvUpstreamTimeout  = "UPSTREAM_TIMEOUT"
	EnvUpstreamAttempts = "UPSTREAM_MAX_ATTEMPTS"
	EnvBootstrapTTL     = "BOOTSTRAP_CACHE_TTL"
	EnvDataTTL          = "DATA_CACHE_TTL"
	EnvCacheMaxEntries  = "CACHE_MAX_ENTRIES"
	EnvRateLimit        = "RATE_LIMIT"
	EnvRateLimitBurst   = "RATE_LIMIT_BURST"
	EnvShutdownTimeout  = "SHUTDOWN_TIMEOUT_SECONDS"
	EnvLogLevel         = "LOG_LEVEL"
)

const (
	DefaultPort      = 3000
	DefaultStaticDir = "./dist"
)

// Duration is a time.Duration that reads and writes as a Go duration string
// ("1500ms") in both YAML and JSON.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Upstream holds the upstream endpoints and the per-call budget.
type Upstream struct {
	IdentityURL string   `json:"identityURL" yaml:"identityURL"`
	ListingURL  string   `json:"listingURL" yaml:"listingURL"`
	Timeout     Duration `json:"timeout" yaml:"timeout"`
	MaxAttempts int      `json:"maxAttempts" yaml:"maxAttempts"`
}

// Cache holds the TTL cache settings.
type Cache struct {
	BootstrapTTL Duration `json:"bootstrapTTL" yaml:"bootstrapTTL"`
	DataTTL      Duration `json:"dataTTL" yaml:"dataTTL"`
	MaxEntries   int      `json:"maxEntries" yaml:"maxEntries"`
}

// Config is the fully resolved portal configuration.
type Config struct {
	Address         string   `json:"address" yaml:"address"`
	Port            int      `json:"port" yaml:"port"`
	Mode            Mode     `json:"mode" yaml:"mode"`
	StaticDir       string   `json:"staticDir" yaml:"staticDir"`
	LogLevel        string   `json:"logLevel" yaml:"logLevel"`
	Upstream        Upstream `json:"upstream" yaml:"upstream"`
	Cache           Cache    `json:"cache" yaml:"cache"`
	RateLimit       float64  `json:"rateLimit" yaml:"rateLimit"`
	RateLimitBurst  int      `json:"rateLimitBurst" yaml:"rateLimitBurst"`
	ShutdownTimeout Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`
}

// Development reports whether the portal runs in development mode.
func (c *Config) Development() bool {
	return c.Mode == ModeDevelopment
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:      DefaultPort,
		Mode:      ModeProduction,
		StaticDir: DefaultStaticDir,
		LogLevel:  "info",
		Upstream: Upstream{
			Timeout:     Duration(defaults.UpstreamTimeout),
			MaxAttempts: defaults.UpstreamMaxAttempts,
		},
		Cache: Cache{
			BootstrapTTL: Duration(defaults.BootstrapCacheTTL),
			DataTTL:      Duration(defaults.DataCacheTTL),
			MaxEntries:   defaults.CacheMaxEntries,
		},
		RateLimit:       100,
		RateLimitBurst:  200,
		ShutdownTimeout: Duration(defaults.ServerShutdownTimeout),
	}
}

// Option configures Load.
type Option func(*loader)

type loader struct {
	file   string
	lookup func(string) (string, bool)
}

// WithFile reads path between the defaults and the environment. It takes
// precedence over PORTAL_CONFIG.
func WithFile(path string) Option {
	return func(l *loader) {
		l.file = path
	}
}

// WithLookup replaces os.LookupEnv as the environment source.
func WithLookup(fn func(string) (string, bool)) Option {
	return func(l *loader) {
		if fn != nil {
			l.lookup = fn
		}
	}
}

// Load resolves defaults, the optional config file and the environment, then
// validates the result. Every failure is FATAL_BOOT.
func Load(opts ...Option) (*Config, error) {
	l := &loader{lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}

	cfg := Default()

	file := l.file
	if file == "" {
		file, _ = l.lookup(EnvFile)
	}
	if file = strings.TrimSpace(file); file != "" {
		if err := readFile(cfg, file); err != nil {
			return nil, err
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(cfg *Config, path string) error {
	r, err := serializer.NewFileReaderAuto(path, serializer.Strict())
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeFatalBoot,
			fmt.Sprintf("cannot open config file %s", path), err,
			map[string]any{"path": path})
	}
	defer r.Close()

	if err := r.Deserialize(cfg); err != nil {
		return errors.WrapWithContext(errors.ErrCodeFatalBoot,
			fmt.Sprintf("invalid config file %s", path), err,
			map[string]any{"path": path})
	}
	return nil
}

func (l *loader) applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := l.lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str(EnvAddress, &cfg.Address)
	str(EnvStaticDir, &cfg.StaticDir)
	str(EnvIdentityURL, &cfg.Upstream.IdentityURL)
	str(EnvListingURL, &cfg.Upstream.ListingURL)
	str(EnvLogLevel, &cfg.LogLevel)

	if v, ok := l.value(EnvMode); ok {
		cfg.Mode = Mode(strings.ToLower(v))
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{EnvPort, &cfg.Port},
		{EnvUpstreamAttempts, &cfg.Upstream.MaxAttempts},
		{EnvCacheMaxEntries, &cfg.Cache.MaxEntries},
		{EnvRateLimitBurst, &cfg.RateLimitBurst},
	}
	for _, i := range ints {
		v, ok := l.value(i.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return invalidValue(i.name, v, err)
		}
		*i.dst = n
	}

	durations := []struct {
		name string
		dst  *Duration
	}{
		{EnvUpstreamTimeout, &cfg.Upstream.Timeout},
		{EnvBootstrapTTL, &cfg.Cache.BootstrapTTL},
		{EnvDataTTL, &cfg.Cache.DataTTL},
	}
	for _, d := range durations {
		v, ok := l.value(d.name)
		if !ok {
			continue
		}
		if err := d.dst.UnmarshalText([]byte(v)); err != nil {
			return invalidValue(d.name, v, err)
		}
	}

	if v, ok := l.value(EnvRateLimit); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return invalidValue(EnvRateLimit, v, err)
		}
		cfg.RateLimit = f
	}

	// Allow customization of shutdown timeout to match K8s eviction grace period
	if v, ok := l.value(EnvShutdownTimeout); ok {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			return invalidValue(EnvShutdownTimeout, v, err)
		}
		cfg.ShutdownTimeout = Duration(time.Duration(seconds) * time.Second)
	}

	return nil
}

func (l *loader) value(name string) (string, bool) {
	v, ok := l.lookup(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func invalidValue(name, value string, cause error) error {
	return errors.WrapWithContext(errors.ErrCodeFatalBoot,
		fmt.Sprintf("invalid %s value %q", name, value), cause,
		map[string]any{"variable": name, "value": value})
}

// Validate checks the ranges the portal cannot run without.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.NewWithContext(errors.ErrCodeFatalBoot,
			fmt.Sprintf("invalid PORT value %d: must be between 1 and 65535", c.Port),
			map[string]any{"variable": EnvPort, "value": c.Port})
	}

	switch c.Mode {
	case ModeProduction, ModeDevelopment:
	default:
		return errors.NewWithContext(errors.ErrCodeFatalBoot,
			fmt.Sprintf("invalid %s value %q: must be %s or %s", EnvMode, c.Mode, ModeProduction, ModeDevelopment),
			map[string]any{"variable": EnvMode, "value": string(c.Mode)})
	}

	if strings.TrimSpace(c.StaticDir) == "" {
		return errors.New(errors.ErrCodeFatalBoot, "static directory must not be empty")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.New(errors.ErrCodeFatalBoot, "upstream timeout must be positive")
	}
	if c.Upstream.MaxAttempts < 1 {
		return errors.New(errors.ErrCodeFatalBoot, "upstream max attempts must be at least 1")
	}
	if c.Cache.MaxEntries < 0 {
		return errors.New(errors.ErrCodeFatalBoot, "cache max entries must not be negative")
	}
	if c.RateLimit <= 0 || c.RateLimitBurst < 1 {
		return errors.New(errors.ErrCodeFatalBoot, "rate limit and burst must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New(errors.ErrCodeFatalBoot, "shutdown timeout must be positive")
	}
	return nil
}

// ListenAddr returns the host:port the server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}
