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
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/cns-portal/pkg/bootstrap"
	"github.com/NVIDIA/cns-portal/pkg/errors"
)

var listing = bootstrap.Payload{
	Route:    "/todos",
	Greeting: "Welcome",
	Page: bootstrap.ListingPage{Items: []bootstrap.ListingItem{
		{ID: 1, Title: "a"},
		{ID: 2, Title: "b", Completed: true},
	}},
}

func countingFetch(n *int, items []bootstrap.ListingItem) func(context.Context) ([]bootstrap.ListingItem, error) {
	return func(context.Context) ([]bootstrap.ListingItem, error) {
		*n++
		return items, nil
	}
}

func TestSeed_PrimesListing(t *testing.T) {
	s := New()
	require.NoError(t, Seed(s, listing))

	fetched := 0
	items, err := Read(context.Background(), s, bootstrap.ListingDataset, countingFetch(&fetched, nil))
	require.NoError(t, err)
	assert.Equal(t, listing.Items(), items)
	assert.Zero(t, fetched)
	assert.Zero(t, s.Fetches())
	assert.Equal(t, 1, s.Subscribers(bootstrap.ListingDataset))

	app, ok := s.App()
	require.True(t, ok)
	assert.Equal(t, "/todos", app.Route)
}

func TestSeed_HomeHasNoQueries(t *testing.T) {
	s := New()
	require.NoError(t, Seed(s, bootstrap.Payload{Route: "/", Greeting: "Welcome", Page: bootstrap.HomePage{}}))
	assert.Empty(t, s.Snapshot().Queries)
}

func TestQuery_FetchesOnMissAndCaches(t *testing.T) {
	s := New()
	fetched := 0
	want := []bootstrap.ListingItem{{ID: 5, Title: "x"}}

	for range 3 {
		got, err := Read(context.Background(), s, "todos", countingFetch(&fetched, want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 1, fetched)
	assert.Equal(t, 1, s.Fetches())
	assert.Equal(t, 3, s.Subscribers("todos"))
}

func TestQuery_NilFetch(t *testing.T) {
	_, err := New().Query(context.Background(), "todos", nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestQuery_FetchError(t *testing.T) {
	s := New()
	_, err := s.Query(context.Background(), "todos", func(context.Context) (any, error) {
		return nil, assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, s.Live("todos"))
}

func TestRestore_EntriesAreInertUntilReprimed(t *testing.T) {
	server := New()
	require.NoError(t, Seed(server, listing))
	snap := roundTrip(t, server.Snapshot())

	client := New()
	client.Restore(snap)
	assert.False(t, client.Live(bootstrap.ListingDataset))

	assert.Equal(t, []string{bootstrap.ListingDataset}, client.Reprime())
	assert.True(t, client.Live(bootstrap.ListingDataset))

	fetched := 0
	items, err := Read(context.Background(), client, bootstrap.ListingDataset, countingFetch(&fetched, nil))
	require.NoError(t, err)
	assert.Equal(t, listing.Items(), items)
	assert.Zero(t, fetched)
}

func TestRestore_WithoutReprimeRefetches(t *testing.T) {
	server := New()
	require.NoError(t, Seed(server, listing))

	client := New()
	client.Restore(roundTrip(t, server.Snapshot()))

	fetched := 0
	_, err := Read(context.Background(), client, bootstrap.ListingDataset, countingFetch(&fetched, listing.Items()))
	require.NoError(t, err)
	assert.Equal(t, 1, fetched)
}

func TestSnapshot_RoundTripEquivalence(t *testing.T) {
	server := New()
	require.NoError(t, Seed(server, listing))
	want := server.Snapshot()

	client := New()
	client.Restore(roundTrip(t, want))
	client.Reprime()

	if diff := cmp.Diff(want, client.Snapshot(), JSONEqual()); diff != "" {
		t.Errorf("snapshot mismatch (-server +client):\n%s", diff)
	}
}

func TestSnapshot_IsIndependentCopy(t *testing.T) {
	s := New()
	require.NoError(t, Seed(s, listing))
	snap := s.Snapshot()
	snap.Queries[bootstrap.ListingDataset] = QueryEntry{}

	assert.True(t, s.Live(bootstrap.ListingDataset))
	assert.NotEmpty(t, s.Snapshot().Queries[bootstrap.ListingDataset].Data)
}

func TestSnapshot_Validate(t *testing.T) {
	good := New()
	require.NoError(t, Seed(good, listing))

	tests := []struct {
		name    string
		snap    Snapshot
		wantErr bool
	}{
		{"valid", good.Snapshot(), false},
		{"no app", Snapshot{}, true},
		{"bad app", Snapshot{App: &bootstrap.Payload{Route: "x", Page: bootstrap.HomePage{}}}, true},
		{"bad status", Snapshot{App: &listing, Queries: map[string]QueryEntry{"todos": {Status: "loading", Data: json.RawMessage(`[]`)}}}, true},
		{"bad data", Snapshot{App: &listing, Queries: map[string]QueryEntry{"todos": {Status: StatusSuccess, Data: json.RawMessage(`[`)}}}, true},
		{"empty key", Snapshot{App: &listing, Queries: map[string]QueryEntry{"": {Status: StatusSuccess, Data: json.RawMessage(`1`)}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snap.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStore_ConcurrentReads(t *testing.T) {
	s := New()
	require.NoError(t, Seed(s, listing))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Query(context.Background(), bootstrap.ListingDataset, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Subscribers(bootstrap.ListingDataset))
}

func roundTrip(t *testing.T, snap Snapshot) Snapshot {
	t.Helper()
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	var out Snapshot
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}
