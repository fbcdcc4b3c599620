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

package bootstrap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/NVIDIA/cns-portal/pkg/errors"
)

// Kind discriminates Page variants.
type Kind string

const (
	KindHome    Kind = "home"
	KindListing Kind = "listing"
	KindError   Kind = "error"
)

// Page is the route-specific part of a Payload.
type Page interface {
	Kind() Kind
	isPage()
}

// HomePage carries no data.
type HomePage struct{}

// ListingPage carries the projected listing in upstream order.
type ListingPage struct {
	Items []ListingItem `json:"items"`
}

// ErrorPage describes a failed assembly with a user-safe message.
type ErrorPage struct {
	Status  int              `json:"status"`
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

func (HomePage) Kind() Kind    { return KindHome }
func (ListingPage) Kind() Kind { return KindListing }
func (ErrorPage) Kind() Kind   { return KindError }

func (HomePage) isPage()    {}
func (ListingPage) isPage() {}
func (ErrorPage) isPage()   {}

// Payload is the bootstrap for one route.
type Payload struct {
	Route    string
	Greeting string
	Page     Page
}

// IsError reports whether p carries an ErrorPage.
func (p Payload) IsError() bool {
	_, ok := p.Page.(ErrorPage)
	return ok
}

// Items returns the listing items, or nil for other kinds.
func (p Payload) Items() []ListingItem {
	if lp, ok := p.Page.(ListingPage); ok {
		return lp.Items
	}
	return nil
}

type wirePayload struct {
	Route    string          `json:"route"`
	Greeting string          `json:"greeting"`
	Page     json.RawMessage `json:"page"`
}

type wirePage struct {
	Kind    Kind             `json:"kind"`
	Items   []ListingItem    `json:"items,omitempty"`
	Status  int              `json:"status,omitempty"`
	Code    errors.ErrorCode `json:"code,omitempty"`
	Message string           `json:"message,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p Payload) MarshalJSON() ([]byte, error) {
	var wp wirePage
	switch pg := p.Page.(type) {
	case HomePage:
		wp.Kind = KindHome
	case ListingPage:
		wp.Kind = KindListing
		wp.Items = pg.Items
		if wp.Items == nil {
			wp.Items = []ListingItem{}
		}
	case ErrorPage:
		wp = wirePage{Kind: KindError, Status: pg.Status, Code: pg.Code, Message: pg.Message}
	case nil:
		return nil, fmt.Errorf("bootstrap payload for %q has no page", p.Route)
	default:
		return nil, fmt.Errorf("unsupported page type %T", pg)
	}

	page, err := json.Marshal(listingWire(wp))
	if err != nil {
		return nil, err
	}
	return json.Marshal(wirePayload{Route: p.Route, Greeting: p.Greeting, Page: page})
}

// listingWire keeps an empty listing as "items":[] instead of dropping it.
func listingWire(wp wirePage) any {
	if wp.Kind != KindListing {
		return wp
	}
	return struct {
		Kind  Kind          `json:"kind"`
		Items []ListingItem `json:"items"`
	}{wp.Kind, wp.Items}
}

// UnmarshalJSON implements json.Unmarshaler. Unknown kinds are rejected.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var w wirePayload
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if len(bytes.TrimSpace(w.Page)) == 0 || bytes.Equal(bytes.TrimSpace(w.Page), []byte("null")) {
		return fmt.Errorf("bootstrap payload has no page")
	}

	var wp wirePage
	if err := json.Unmarshal(w.Page, &wp); err != nil {
		return err
	}

	out := Payload{Route: w.Route, Greeting: w.Greeting}
	switch wp.Kind {
	case KindHome:
		out.Page = HomePage{}
	case KindListing:
		items := wp.Items
		if items == nil {
			items = []ListingItem{}
		}
		out.Page = ListingPage{Items: items}
	case KindError:
		out.Page = ErrorPage{Status: wp.Status, Code: wp.Code, Message: wp.Message}
	default:
		return fmt.Errorf("unknown page kind %q", wp.Kind)
	}
	*p = out
	return nil
}

// Validate checks the structural invariants of p.
func (p Payload) Validate() error {
	if p.Route == "" || p.Route[0] != '/' {
		return errors.NewWithContext(errors.ErrCodeValidation, "bootstrap route must be an absolute path",
			map[string]any{"route": p.Route})
	}
	switch pg := p.Page.(type) {
	case HomePage, ListingPage:
		return nil
	case ErrorPage:
		switch pg.Code {
		case errors.ErrCodeTimeout, errors.ErrCodeUpstream, errors.ErrCodeUnknown:
		default:
			return errors.NewWithContext(errors.ErrCodeValidation, "bootstrap error code is not recognised",
				map[string]any{"code": pg.Code})
		}
		if pg.Status < http.StatusInternalServerError || pg.Status > 599 {
			return errors.NewWithContext(errors.ErrCodeValidation, "bootstrap error status must be 5xx",
				map[string]any{"status": pg.Status})
		}
		if !isSafeMessage(pg.Message) {
			return errors.New(errors.ErrCodeValidation, "bootstrap error message is not a known safe message")
		}
		return nil
	default:
		return errors.New(errors.ErrCodeValidation, "bootstrap payload has no page")
	}
}
