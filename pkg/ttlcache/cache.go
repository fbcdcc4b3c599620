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

package ttlcache

import (
	"container/list"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"k8s.io/utils/clock"
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cache_lookups_total",
			Help: "Total number of cache lookups by result",
		},
		[]string{"cache", "result"},
	)

	cacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cache_evictions_total",
			Help: "Total number of cache entries removed by reason",
		},
		[]string{"cache", "reason"},
	)
)

// Entry is a cached value and the instant it stops being valid.
// A zero ExpiresAt never expires.
type Entry[V any] struct {
	Key       string
	Value     V
	ExpiresAt time.Time
}

// Expired reports whether the entry must be treated as absent at now.
func (e *Entry[V]) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

type options struct {
	name          string
	clock         clock.WithTicker
	maxEntries    int
	sweepInterval time.Duration
}

// Option configures a Cache.
type Option func(*options)

// WithName labels the cache in metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.WithTicker) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMaxEntries bounds the number of entries. Zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxEntries = n
		}
	}
}

// WithSweepInterval starts a background sweeper running at the given cadence.
// Zero disables sweeping; expired entries are then removed lazily on Get.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.sweepInterval = d
		}
	}
}

// Cache is an expiring key/value store. The zero value is not usable; call New.
type Cache[V any] struct {
	ttl  time.Duration
	opts options

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // insertion order, front is oldest

	stop    chan struct{}
	done    chan struct{}
	destroy sync.Once
}

// New creates a cache whose entries live for ttl after insertion.
// A ttl <= 0 keeps entries until they are invalidated or evicted.
func New[V any](ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{
		name:  "default",
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[V]{
		ttl:     ttl,
		opts:    o,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}

	if o.sweepInterval > 0 {
		c.stop = make(chan struct{})
		c.done = make(chan struct{})
		go c.sweepLoop(o.sweepInterval)
	}

	return c
}

// Get returns the value stored under key. An entry whose expiry instant has
// been reached is removed and reported absent.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	now := c.opts.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		cacheLookups.WithLabelValues(c.opts.name, "miss").Inc()
		return zero, false
	}

	ent := el.Value.(*Entry[V])
	if ent.Expired(now) {
		c.removeLocked(el)
		cacheLookups.WithLabelValues(c.opts.name, "expired").Inc()
		cacheEvictions.WithLabelValues(c.opts.name, "expired").Inc()
		return zero, false
	}

	cacheLookups.WithLabelValues(c.opts.name, "hit").Inc()
	return ent.Value, true
}

// Set stores value under key with expiresAt = now + ttl. Writing an existing
// key replaces its value and expiry but keeps its insertion position. Writing a
// new key into a full cache evicts the oldest inserted entry first.
func (c *Cache[V]) Set(key string, value V) {
	now := c.opts.clock.Now()
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*Entry[V])
		ent.Value = value
		ent.ExpiresAt = expiresAt
		return
	}

	for c.opts.maxEntries > 0 && len(c.entries) >= c.opts.maxEntries {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
		cacheEvictions.WithLabelValues(c.opts.name, "capacity").Inc()
	}

	c.entries[key] = c.order.PushBack(&Entry[V]{
		Key:       key,
		Value:     value,
		ExpiresAt: expiresAt,
	})
}

// Invalidate removes every entry for which pred returns true and reports how
// many were removed.
func (c *Cache[V]) Invalidate(pred func(key string, value V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		ent := el.Value.(*Entry[V])
		if pred(ent.Key, ent.Value) {
			c.removeLocked(el)
			removed++
		}
		el = next
	}
	if removed > 0 {
		cacheEvictions.WithLabelValues(c.opts.name, "invalidated").Add(float64(removed))
	}
	return removed
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len returns the number of stored entries, expired ones included until they
// are read or swept.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns the stored keys in insertion order.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.entries))
	for el := c.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*Entry[V]).Key)
	}
	return out
}

// Sweep removes every expired entry and reports how many were removed.
func (c *Cache[V]) Sweep() int {
	now := c.opts.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*Entry[V]).Expired(now) {
			c.removeLocked(el)
			removed++
		}
		el = next
	}
	if removed > 0 {
		cacheEvictions.WithLabelValues(c.opts.name, "expired").Add(float64(removed))
	}
	return removed
}

// Destroy stops the sweeper and drops all entries. It is safe to call more
// than once; the cache remains usable without sweeping afterwards.
func (c *Cache[V]) Destroy() {
	c.destroy.Do(func() {
		if c.stop != nil {
			close(c.stop)
			<-c.done
		}
	})
	c.Clear()
}

func (c *Cache[V]) sweepLoop(every time.Duration) {
	defer close(c.done)

	ticker := c.opts.clock.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C():
			c.Sweep()
		}
	}
}

func (c *Cache[V]) removeLocked(el *list.Element) {
	ent := el.Value.(*Entry[V])
	delete(c.entries, ent.Key)
	c.order.Remove(el)
}
