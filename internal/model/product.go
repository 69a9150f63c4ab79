// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package model

// Product is an opaque catalog item identified by ProductID. The engine
// treats products as immutable value objects; display attributes ride along
// untouched.
type Product struct {
	ProductID string   `json:"productId" validate:"required"`
	Title     string   `json:"title,omitempty"`
	ImageURL  string   `json:"imageUrl,omitempty"`
	Vendor    string   `json:"vendor,omitempty"`
	Price     string   `json:"price,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// RankingEntry places a product at a positive integer rank.
// Two entries are equal iff their ProductIDs are equal; ranks are the
// list's business.
type RankingEntry struct {
	Rank    int     `json:"ranking"`
	Product Product `json:"productData"`
}

// EntriesEqual reports whether two ranking slices are identical in both
// membership and rank assignment, position by position.
func EntriesEqual(a, b []RankingEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Rank != b[i].Rank || a[i].Product.ProductID != b[i].Product.ProductID {
			return false
		}
	}
	return true
}

// EntryIDs returns the product ids of entries in list order.
func EntryIDs(entries []RankingEntry) []string {
	ids := make([]string, len(entries))
	for i := range entries {
		ids[i] = entries[i].Product.ProductID
	}
	return ids
}
