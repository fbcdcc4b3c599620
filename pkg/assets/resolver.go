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

package assets

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/utils/clock"

	"github.com/NVIDIA/cns-portal/pkg/defaults"
	"github.com/NVIDIA/cns-portal/pkg/errors"
	"github.com/NVIDIA/cns-portal/pkg/ttlcache"
)

const cacheKey = "manifest"

// Option configures a Resolver.
type Option func(*Resolver)

// WithTTL sets how long a parsed manifest is reused. Zero caches it for the
// life of the process.
func WithTTL(d time.Duration) Option {
	return func(r *Resolver) {
		r.ttl = d
	}
}

// WithDevelopment selects the development cache lifetime.
func WithDevelopment(dev bool) Option {
	return func(r *Resolver) {
		if dev {
			r.ttl = defaults.ManifestDevTTL
		}
	}
}

// WithClock replaces the wall clock used for expiry.
func WithClock(c clock.WithTicker) Option {
	return func(r *Resolver) {
		r.clock = c
	}
}

// WithLogger sets the logger used by Watch.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// Resolver loads the asset manifest on demand and caches the result.
// Failures are never cached so a later build is picked up immediately.
type Resolver struct {
	path   string
	ttl    time.Duration
	clock  clock.WithTicker
	logger *slog.Logger
	cache  *ttlcache.Cache[Assets]
}

// NewResolver creates a resolver for the manifest beneath staticDir.
func NewResolver(staticDir string, opts ...Option) *Resolver {
	r := &Resolver{
		path:   ManifestPath(staticDir),
		clock:  clock.RealClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cache = ttlcache.New[Assets](r.ttl,
		ttlcache.WithName("manifest"),
		ttlcache.WithClock(r.clock),
		ttlcache.WithMaxEntries(1),
	)
	return r
}

// Path returns the manifest location.
func (r *Resolver) Path() string {
	return r.path
}

// Resolve returns the current assets. ctx is accepted for symmetry with
// other blocking calls; the read itself is not cancellable.
func (r *Resolver) Resolve(_ context.Context) (Assets, error) {
	if a, ok := r.cache.Get(cacheKey); ok {
		return a, nil
	}
	a, err := Load(r.path)
	if err != nil {
		return Assets{}, err
	}
	r.cache.Set(cacheKey, a)
	return a, nil
}

// Invalidate drops the cached manifest.
func (r *Resolver) Invalidate() {
	r.cache.Clear()
}

// Close releases the cache.
func (r *Resolver) Close() {
	r.cache.Destroy()
}

// Watch invalidates the cache whenever the manifest is written, created,
// renamed or removed. It blocks until ctx is done. A missing manifest
// directory is not an error: Watch logs it and returns, leaving the cache TTL
// to pick up the build once it exists.
func (r *Resolver) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to create manifest watcher", err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			r.logger.Warn("failed to close manifest watcher", "error", cerr)
		}
	}()

	dir := filepath.Dir(r.path)
	if err := w.Add(dir); err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("asset manifest directory does not exist, not watching; run the client build",
				"manifest", r.path,
				"ttl", r.ttl,
			)
			return nil
		}
		return errors.WrapWithContext(errors.ErrCodeInternal, "failed to watch manifest directory",
			err, map[string]any{"dir": dir})
	}
	r.logger.Debug("watching asset manifest", "path", r.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != ManifestFile {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
				ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				r.Invalidate()
				r.logger.Info("asset manifest changed", "path", ev.Name, "op", ev.Op.String())
			}
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("manifest watcher error", "error", werr)
		}
	}
}
