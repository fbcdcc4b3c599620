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

package hydrate

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/NVIDIA/cns-portal/pkg/errors"
	"github.com/NVIDIA/cns-portal/pkg/render"
	"github.com/NVIDIA/cns-portal/pkg/store"
	"github.com/NVIDIA/cns-portal/pkg/ui"
)

// Mode is how the tree was mounted.
type Mode string

const (
	// ModeAttach reuses server markup already present in #root.
	ModeAttach Mode = "attach"
	// ModeRender renders into an empty #root.
	ModeRender Mode = "render"
)

// Source is where the store's initial state came from.
type Source string

const (
	SourceSnapshot Source = "snapshot"
	SourceFetch    Source = "fetch"
)

var errNoSnapshot = errors.New(errors.ErrCodeNotFound, "document has no embedded state")

// Result describes a completed boot.
type Result struct {
	Store    *store.Store
	Mode     Mode
	Source   Source
	Mismatch bool
	// Reprimed lists the datasets made live from the snapshot.
	Reprimed []string
}

// Bridge boots the UI tree over a server-rendered document.
type Bridge struct {
	Tree    ui.Tree
	Fetcher Fetcher
	Logger  *slog.Logger
}

func (b *Bridge) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// Boot hydrates doc for route. The state script is removed from doc; the
// markup under #root is only modified when it was empty.
func (b *Bridge) Boot(ctx context.Context, doc *html.Node, route string) (*Result, error) {
	if b.Tree == nil {
		return nil, errors.New(errors.ErrCodeInternal, "hydration bridge has no tree")
	}
	if route == "" {
		route = "/"
	}

	res := &Result{Store: store.New()}

	snap, err := readSnapshot(doc)
	if err == nil {
		res.Store.Restore(snap)
		res.Reprimed = res.Store.Reprime()
		res.Source = SourceSnapshot
	} else {
		if !stderrors.Is(err, errNoSnapshot) {
			b.logger().Warn("discarding embedded state", "route", route, "code", string(errors.CodeOf(err)), "error", err)
		}
		if b.Fetcher == nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "no embedded state and no fetcher", err)
		}
		p, ferr := b.Fetcher.FetchBootstrap(ctx, route)
		if ferr != nil {
			return nil, ferr
		}
		if serr := store.Seed(res.Store, p); serr != nil {
			return nil, serr
		}
		res.Source = SourceFetch
	}

	root := findByID(doc, render.RootID)
	if root == nil {
		return nil, errors.New(errors.ErrCodeInternal, "document has no #"+render.RootID+" element")
	}

	markup, err := b.Tree.Render(ctx, res.Store, route)
	if err != nil {
		return nil, err
	}

	if root.FirstChild != nil {
		res.Mode = ModeAttach
		want, nerr := normalize(root, markup)
		if nerr != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to parse rendered markup", nerr)
		}
		have, rerr := renderChildren(root)
		if rerr != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to serialise existing markup", rerr)
		}
		if want != have {
			res.Mismatch = true
			b.logger().Warn("hydration mismatch", "route", route, "source", string(res.Source))
		}
		return res, nil
	}

	nodes, err := parseInto(root, markup)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to parse rendered markup", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	res.Mode = ModeRender
	return res, nil
}

// readSnapshot reads and deletes the state slot. An invalid slot is deleted
// too.
func readSnapshot(doc *html.Node) (store.Snapshot, error) {
	script := findByID(doc, render.StateSlot)
	if script == nil {
		return store.Snapshot{}, errNoSnapshot
	}
	text := strings.TrimSpace(textContent(script))
	remove(script)

	prefix := render.StatePrefix(render.StateSlot)
	if !strings.HasPrefix(text, prefix) {
		return store.Snapshot{}, errors.New(errors.ErrCodeValidation, "state script has an unexpected form")
	}
	text = strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(text, prefix)), ";")

	var snap store.Snapshot
	if err := json.Unmarshal([]byte(text), &snap); err != nil {
		return store.Snapshot{}, errors.Wrap(errors.ErrCodeValidation, "state script is not valid JSON", err)
	}
	if err := snap.Validate(); err != nil {
		return store.Snapshot{}, err
	}
	return snap, nil
}
