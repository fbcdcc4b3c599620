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
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// ListingRoute is the page route backed by the listing upstream.
	ListingRoute = "/todos"
	// ListingDataset names the listing in the dataset API and the store.
	ListingDataset = "todos"
)

// ListingItem is the internal shape of one listing record.
type ListingItem struct {
	ID        int    `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Completed bool   `json:"completed" yaml:"completed"`
}

// Record is a listing record as the upstream returns it. Fields beyond the
// ones listed are dropped on decode.
type Record struct {
	UserID    int    `json:"userId,omitempty"`
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Identity is the upstream identity record.
type Identity struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Project narrows upstream records to ListingItems, keeping their order.
func Project(records []Record) []ListingItem {
	items := make([]ListingItem, 0, len(records))
	for _, r := range records {
		items = append(items, ListingItem{
			ID:        r.ID,
			Title:     r.Title,
			Completed: r.Completed,
		})
	}
	return items
}

// DisplayName normalises an identity name for the greeting. It returns ""
// when nothing printable is left.
func DisplayName(id Identity) string {
	name := strings.Join(strings.Fields(id.Name), " ")
	if name == "" {
		return ""
	}
	// A Caser keeps state between calls, so each call gets its own.
	return cases.Title(language.Und, cases.NoLower).String(name)
}
