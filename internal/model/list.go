// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

// Package model implements the in-memory ranking list: an ordered collection
// of distinct products at positive integer ranks, with insert-with-push-down,
// remove-with-compaction, reorder and replace mutations, plus the dynamic
// slot-count policy used by the presentation layer.
//
// Invariants after every public mutation returns:
//
//  1. No two entries share a ProductID.
//  2. Every rank >= 1, strictly increasing in list order.
//  3. With gap filling on (default), ranks are exactly 1..N.
//  4. N <= MaxRankable when the catalog bound is known.
//
// The List is not safe for concurrent use; the owning engine serializes
// access.
package model

import "sort"

// Default slot-count policy constants.
const (
	// InitialSlotCount is the number of slots shown before any growth.
	InitialSlotCount = 10

	// slotGrowthStep is how many slots are added when the list approaches
	// the current slot count.
	slotGrowthStep = 10

	// slotGrowthMargin triggers growth when len(list) >= slotCount - margin.
	slotGrowthMargin = 3
)

// Flags are the feature switches consumed by the list. Both default to on.
type Flags struct {
	// PushDownOnInsert enables insert-with-push-down: inserting at rank r
	// shifts the contiguous run of entries starting at r down by one.
	// When off, an insert unconditionally occupies the slot, evicting any
	// prior holder.
	PushDownOnInsert bool

	// FillGaps enables the density policy: after each mutation ranks are
	// renumbered to a contiguous 1..N.
	FillGaps bool
}

// DefaultFlags returns the production defaults (both behaviors enabled).
func DefaultFlags() Flags {
	return Flags{PushDownOnInsert: true, FillGaps: true}
}

// List is the single source of truth for a user's ranking during a session.
// Entries are kept sorted by rank ascending.
type List struct {
	entries     []RankingEntry
	slotCount   int
	maxRankable int // 0 = unknown
	flags       Flags
}

// NewList creates an empty list with the given feature flags.
func NewList(flags Flags) *List {
	return &List{
		slotCount: InitialSlotCount,
		flags:     flags,
	}
}

// Len returns the number of ranked entries.
func (l *List) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entries in rank order.
func (l *List) Entries() []RankingEntry {
	out := make([]RankingEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// ProductIDs returns the ranked product ids in rank order.
func (l *List) ProductIDs() []string {
	return EntryIDs(l.entries)
}

// Contains reports whether the product is ranked.
func (l *List) Contains(productID string) bool {
	return l.indexOf(productID) >= 0
}

// RankOf returns the rank of the product, or 0 if it is not ranked.
func (l *List) RankOf(productID string) int {
	if i := l.indexOf(productID); i >= 0 {
		return l.entries[i].Rank
	}
	return 0
}

// SlotCount returns the current number of rendered slots.
func (l *List) SlotCount() int {
	return l.slotCount
}

// MaxRankable returns the catalog-derived upper bound, 0 when unknown.
func (l *List) MaxRankable() int {
	return l.maxRankable
}

// SetMaxRankable records the catalog bound once it is learned. The slot
// count is clamped down to the bound if it grew past it; ranked entries are
// never evicted, so the slot count stays large enough to show them all.
func (l *List) SetMaxRankable(n int) {
	if n < 0 {
		n = 0
	}
	l.maxRankable = n
	l.clampSlots()
}

// AddOrMove inserts the product at targetRank, moving it if it is already
// ranked elsewhere. Returns the product's final rank.
//
// Push-down policy: the contiguous run of entries starting at targetRank is
// shifted down by one; entries beyond the first gap stay put. With gap
// filling on, the list is then renumbered to 1..N.
func (l *List) AddOrMove(p Product, targetRank int) (int, error) {
	if err := l.checkInsert("addOrMove", p, targetRank); err != nil {
		return 0, err
	}

	l.removeByID(p.ProductID)
	l.insertAt(p, targetRank)
	l.afterMutation()
	return l.RankOf(p.ProductID), nil
}

// Remove deletes the product's entry. With gap filling on the remaining
// ranks are compacted to 1..N; otherwise the gap is left in place.
func (l *List) Remove(productID string) error {
	if productID == "" {
		return validationErrorf("remove", "empty product id")
	}
	if !l.removeByID(productID) {
		return validationErrorf("remove", "product %q is not ranked", productID)
	}
	l.afterMutation()
	return nil
}

// Reorder moves the entry at fromIndex to the rank currently held by the
// entry at toIndex. Indices address the rank-ordered list. Identical indices
// are a no-op.
func (l *List) Reorder(fromIndex, toIndex int) error {
	n := len(l.entries)
	if fromIndex < 0 || fromIndex >= n {
		return validationErrorf("reorder", "from index %d out of range [0,%d)", fromIndex, n)
	}
	if toIndex < 0 || toIndex >= n {
		return validationErrorf("reorder", "to index %d out of range [0,%d)", toIndex, n)
	}
	if fromIndex == toIndex {
		return nil
	}

	_, err := l.AddOrMove(l.entries[fromIndex].Product, l.entries[toIndex].Rank)
	return err
}

// Replace unconditionally puts the product at rank, evicting any prior
// holder of the slot and removing the product from elsewhere first.
// Returns the product's final rank.
func (l *List) Replace(p Product, rank int) (int, error) {
	if err := l.checkInsert("replace", p, rank); err != nil {
		return 0, err
	}

	l.removeByID(p.ProductID)
	l.removeByRank(rank)
	l.entries = append(l.entries, RankingEntry{Rank: rank, Product: p})
	l.sortEntries()
	l.afterMutation()
	return l.RankOf(p.ProductID), nil
}

// ClearAll removes every entry. The slot count is not reset; the view keeps
// its size until the next hydration.
func (l *List) ClearAll() {
	l.entries = nil
	l.afterMutation()
}

// Hydrate replaces the list contents wholesale, used when loading the
// server's list or adopting a recovered snapshot. Entries are deduplicated
// by product id (first occurrence wins), sorted, and normalized under the
// density policy.
func (l *List) Hydrate(entries []RankingEntry) error {
	seen := make(map[string]struct{}, len(entries))
	next := make([]RankingEntry, 0, len(entries))
	for i := range entries {
		e := entries[i]
		if e.Product.ProductID == "" {
			return validationErrorf("hydrate", "entry %d has no product id", i)
		}
		if e.Rank < 1 {
			return validationErrorf("hydrate", "entry %q has non-positive rank %d", e.Product.ProductID, e.Rank)
		}
		if _, dup := seen[e.Product.ProductID]; dup {
			continue
		}
		seen[e.Product.ProductID] = struct{}{}
		next = append(next, e)
	}

	l.entries = next
	l.sortEntries()
	l.afterMutation()
	return nil
}

// checkInsert validates the common preconditions of AddOrMove and Replace.
func (l *List) checkInsert(op string, p Product, targetRank int) error {
	if p.ProductID == "" {
		return validationErrorf(op, "product has no id")
	}
	if targetRank <= 0 {
		return validationErrorf(op, "target rank %d must be positive", targetRank)
	}
	if l.maxRankable > 0 {
		if targetRank > l.maxRankable {
			return validationErrorf(op, "target rank %d exceeds catalog bound %d", targetRank, l.maxRankable)
		}
		if !l.Contains(p.ProductID) && len(l.entries) >= l.maxRankable {
			return validationErrorf(op, "list is full (%d rankable)", l.maxRankable)
		}
	}
	return nil
}

// insertAt applies the push-down policy and appends the new entry. The list
// must already be sorted and must not contain the product.
func (l *List) insertAt(p Product, targetRank int) {
	if l.flags.PushDownOnInsert {
		// Shift the contiguous run starting at targetRank down by one;
		// stop at the first gap.
		cursor := targetRank
		for i := range l.entries {
			if l.entries[i].Rank < targetRank {
				continue
			}
			if l.entries[i].Rank != cursor {
				break
			}
			l.entries[i].Rank = cursor + 1
			cursor++
		}
	} else {
		l.removeByRank(targetRank)
	}

	l.entries = append(l.entries, RankingEntry{Rank: targetRank, Product: p})
	l.sortEntries()
}

// afterMutation restores the density policy and applies the slot-count
// growth rule. Called at the end of every public mutation.
func (l *List) afterMutation() {
	if l.flags.FillGaps {
		for i := range l.entries {
			l.entries[i].Rank = i + 1
		}
	}

	if len(l.entries) >= l.slotCount-slotGrowthMargin {
		l.slotCount += slotGrowthStep
	}
	l.clampSlots()
}

// clampSlots enforces the slot-count bounds: at least InitialSlotCount, at
// most MaxRankable when known (the catalog bound wins over the floor), and
// never fewer slots than ranked entries.
func (l *List) clampSlots() {
	if l.slotCount < InitialSlotCount {
		l.slotCount = InitialSlotCount
	}
	if l.maxRankable > 0 && l.slotCount > l.maxRankable {
		l.slotCount = l.maxRankable
	}
	if l.slotCount < len(l.entries) {
		l.slotCount = len(l.entries)
	}
}

func (l *List) sortEntries() {
	sort.SliceStable(l.entries, func(i, j int) bool {
		return l.entries[i].Rank < l.entries[j].Rank
	})
}

func (l *List) indexOf(productID string) int {
	for i := range l.entries {
		if l.entries[i].Product.ProductID == productID {
			return i
		}
	}
	return -1
}

func (l *List) removeByID(productID string) bool {
	i := l.indexOf(productID)
	if i < 0 {
		return false
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return true
}

func (l *List) removeByRank(rank int) bool {
	for i := range l.entries {
		if l.entries[i].Rank == rank {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}
