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
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/NVIDIA/cns-portal/pkg/defaults"
	"github.com/NVIDIA/cns-portal/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestResolver_ProductionCachesForever(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"main.js": "/assets/main-1.js"}`)
	fc := testingclock.NewFakeClock(time.Now())

	r := NewResolver(dir, WithClock(fc))
	defer r.Close()

	a, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/assets/main-1.js", a.Script)

	writeManifest(t, dir, `{"main.js": "/assets/main-2.js"}`)
	fc.Step(24 * time.Hour)

	a, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/assets/main-1.js", a.Script)

	r.Invalidate()
	a, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/assets/main-2.js", a.Script)
}

func TestResolver_DevelopmentExpires(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"main.js": "/assets/main-1.js"}`)
	fc := testingclock.NewFakeClock(time.Now())

	r := NewResolver(dir, WithDevelopment(true), WithClock(fc))
	defer r.Close()

	_, err := r.Resolve(context.Background())
	require.NoError(t, err)

	writeManifest(t, dir, `{"main.js": "/assets/main-2.js"}`)

	fc.Step(defaults.ManifestDevTTL - time.Millisecond)
	a, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/assets/main-1.js", a.Script)

	fc.Step(time.Millisecond)
	a, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/assets/main-2.js", a.Script)
}

func TestResolver_FailureNotCached(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir)
	defer r.Close()

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), r.Path())

	writeManifest(t, dir, `{"main.js": "/assets/main.js"}`)
	a, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/assets/main.js", a.Script)
}

func TestResolver_WatchInvalidates(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `{"main.js": "/assets/main-1.js"}`)

	r := NewResolver(dir)
	defer r.Close()

	_, err := r.Resolve(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()

	// Rewrite until the watcher has been registered and reacted.
	require.Eventually(t, func() bool {
		if err := os.WriteFile(path, []byte(`{"main.js": "/assets/main-2.js"}`), 0o600); err != nil {
			return false
		}
		a, err := r.Resolve(context.Background())
		return err == nil && a.Script == "/assets/main-2.js"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestResolver_WatchMissingDirectory(t *testing.T) {
	r := NewResolver(t.TempDir() + "/nope")
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, r.Watch(ctx))
	assert.NoError(t, ctx.Err(), "Watch should return without waiting for ctx")

	_, err := r.Resolve(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFatalBoot, errors.CodeOf(err))
	assert.Contains(t, err.Error(), r.Path())
}
