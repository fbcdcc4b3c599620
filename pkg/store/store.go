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

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/NVIDIA/cns-portal/pkg/bootstrap"
	"github.com/NVIDIA/cns-portal/pkg/errors"
)

// QueryStatus is the state of a deferred-data entry.
type QueryStatus string

const (
	StatusSuccess QueryStatus = "success"
)

// QueryEntry is the serialisable part of a deferred-data entry.
type QueryEntry struct {
	Status QueryStatus     `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// Snapshot is the serialisable store state.
type Snapshot struct {
	App     *bootstrap.Payload    `json:"app"`
	Queries map[string]QueryEntry `json:"queries"`
}

// Validate checks the snapshot's shape.
func (s Snapshot) Validate() error {
	if s.App == nil {
		return errors.New(errors.ErrCodeValidation, "snapshot has no app state")
	}
	if err := s.App.Validate(); err != nil {
		return err
	}
	for key, q := range s.Queries {
		if key == "" {
			return errors.New(errors.ErrCodeValidation, "snapshot query has an empty key")
		}
		if q.Status != StatusSuccess {
			return errors.NewWithContext(errors.ErrCodeValidation, "snapshot query has an unknown status",
				map[string]any{"query": key, "status": q.Status})
		}
		if !json.Valid(q.Data) {
			return errors.NewWithContext(errors.ErrCodeValidation, "snapshot query data is not JSON",
				map[string]any{"query": key})
		}
	}
	return nil
}

type query struct {
	entry       QueryEntry
	live        bool
	subscribers int
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	app     *bootstrap.Payload
	queries map[string]*query
	fetches int
}

// New returns an empty store.
func New() *Store {
	return &Store{queries: make(map[string]*query)}
}

// Apply replaces the bootstrap slice.
func (s *Store) Apply(p bootstrap.Payload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.app = &p
}

// App returns the bootstrap slice.
func (s *Store) App() (bootstrap.Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.app == nil {
		return bootstrap.Payload{}, false
	}
	return *s.app, true
}

// Prime stores v under key as a live entry.
func (s *Store) Prime(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, fmt.Sprintf("query %q is not serialisable", key), err)
	}
	s.PrimeRaw(key, data)
	return nil
}

// PrimeRaw stores already-encoded data under key as a live entry.
func (s *Store) PrimeRaw(key string, data json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queries[key]
	if !ok {
		q = &query{}
		s.queries[key] = q
	}
	q.entry = QueryEntry{Status: StatusSuccess, Data: slices.Clone(data)}
	q.live = true
}

// Query returns the live entry for key, subscribing the caller. Without a
// live entry it calls fetch and primes the result. A nil fetch reports the
// entry as missing.
func (s *Store) Query(ctx context.Context, key string, fetch func(context.Context) (any, error)) (json.RawMessage, error) {
	s.mu.Lock()
	if q, ok := s.queries[key]; ok && q.live {
		q.subscribers++
		data := slices.Clone(q.entry.Data)
		s.mu.Unlock()
		return data, nil
	}
	s.fetches++
	s.mu.Unlock()

	if fetch == nil {
		return nil, errors.NewWithContext(errors.ErrCodeNotFound, "query has no data",
			map[string]any{"query": key})
	}
	v, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Prime(key, v); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queries[key]
	q.subscribers++
	return slices.Clone(q.entry.Data), nil
}

// Read is Query with typed decoding.
func Read[T any](ctx context.Context, s *Store, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	var f func(context.Context) (any, error)
	if fetch != nil {
		f = func(ctx context.Context) (any, error) {
			return fetch(ctx)
		}
	}
	data, err := s.Query(ctx, key, f)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, errors.Wrap(errors.ErrCodeInternal, fmt.Sprintf("query %q has unexpected shape", key), err)
	}
	return out, nil
}

// Snapshot captures the serialisable state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{Queries: make(map[string]QueryEntry, len(s.queries))}
	if s.app != nil {
		app := *s.app
		snap.App = &app
	}
	for key, q := range s.queries {
		snap.Queries[key] = QueryEntry{Status: q.entry.Status, Data: slices.Clone(q.entry.Data)}
	}
	return snap
}

// Restore replaces the store's state with snap. Restored entries are inert.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.app = nil
	if snap.App != nil {
		app := *snap.App
		s.app = &app
	}
	s.queries = make(map[string]*query, len(snap.Queries))
	for key, e := range snap.Queries {
		s.queries[key] = &query{entry: QueryEntry{Status: e.Status, Data: slices.Clone(e.Data)}}
	}
}

// Reprime makes every restored entry live and returns their keys in order.
func (s *Store) Reprime() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.queries))
	for key, q := range s.queries {
		if !q.live && q.entry.Status == StatusSuccess {
			q.live = true
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// Live reports whether key holds a live entry.
func (s *Store) Live(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queries[key]
	return ok && q.live
}

// Subscribers returns how many reads were served from key.
func (s *Store) Subscribers(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queries[key]; ok {
		return q.subscribers
	}
	return 0
}

// Fetches returns how many reads missed the deferred-data cache.
func (s *Store) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// Seed applies p and primes the datasets it carries, so a render reads them
// without fetching.
func Seed(s *Store, p bootstrap.Payload) error {
	s.Apply(p)
	if lp, ok := p.Page.(bootstrap.ListingPage); ok {
		items := lp.Items
		if items == nil {
			items = []bootstrap.ListingItem{}
		}
		return s.Prime(bootstrap.ListingDataset, items)
	}
	return nil
}
