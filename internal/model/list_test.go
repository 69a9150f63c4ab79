// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package model

import (
	"errors"
	"fmt"
	"testing"
)

func prod(id string) Product {
	return Product{ProductID: id, Title: "Product " + id}
}

// ranked builds an entry slice from (rank, id) pairs for expectations.
func ranked(pairs ...interface{}) []RankingEntry {
	entries := make([]RankingEntry, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		entries = append(entries, RankingEntry{
			Rank:    pairs[i].(int),
			Product: prod(pairs[i+1].(string)),
		})
	}
	return entries
}

func assertList(t *testing.T, l *List, want []RankingEntry) {
	t.Helper()
	got := l.Entries()
	if !EntriesEqual(got, want) {
		t.Fatalf("list mismatch:\n got:  %v\n want: %v", describe(got), describe(want))
	}
}

func describe(entries []RankingEntry) string {
	s := ""
	for _, e := range entries {
		s += fmt.Sprintf("(%d,%s)", e.Rank, e.Product.ProductID)
	}
	return s
}

func TestAddOrMove_InsertWithPushDown(t *testing.T) {
	l := NewList(DefaultFlags())

	// Scenario: A@1, then B@1 pushes A down, then C@2 pushes A down again.
	mustAdd(t, l, "A", 1)
	mustAdd(t, l, "B", 1)
	mustAdd(t, l, "C", 2)

	assertList(t, l, ranked(1, "B", 2, "C", 3, "A"))
}

func TestAddOrMove_PushDownStopsAtGap(t *testing.T) {
	l := NewList(Flags{PushDownOnInsert: true, FillGaps: false})

	mustAdd(t, l, "A", 1)
	mustAdd(t, l, "B", 2)
	mustAdd(t, l, "D", 5)

	// Insert at 1: A and B form a contiguous run and shift; D sits past the
	// gap at 3..4 and must not move.
	mustAdd(t, l, "X", 1)

	assertList(t, l, ranked(1, "X", 2, "A", 3, "B", 5, "D"))
}

func TestAddOrMove_MoveToTrailingRankWithDensity(t *testing.T) {
	l := NewList(DefaultFlags())
	mustAdd(t, l, "A", 1)

	// Moving the only entry to rank 3 compacts back to rank 1.
	rank, err := l.AddOrMove(prod("A"), 3)
	if err != nil {
		t.Fatalf("AddOrMove: %v", err)
	}
	if rank != 1 {
		t.Errorf("final rank = %d, want 1", rank)
	}
	assertList(t, l, ranked(1, "A"))
}

func TestAddOrMove_MoveToTrailingRankWithoutDensity(t *testing.T) {
	l := NewList(Flags{PushDownOnInsert: true, FillGaps: false})
	mustAdd(t, l, "A", 1)

	rank, err := l.AddOrMove(prod("A"), 3)
	if err != nil {
		t.Fatalf("AddOrMove: %v", err)
	}
	if rank != 3 {
		t.Errorf("final rank = %d, want 3", rank)
	}
	assertList(t, l, ranked(3, "A"))
}

func TestAddOrMove_Idempotent(t *testing.T) {
	l := NewList(DefaultFlags())
	mustAdd(t, l, "A", 1)
	mustAdd(t, l, "B", 2)
	mustAdd(t, l, "C", 3)

	mustAdd(t, l, "B", 2)
	first := l.Entries()
	mustAdd(t, l, "B", 2)

	if !EntriesEqual(l.Entries(), first) {
		t.Errorf("repeated addOrMove changed the list: %s -> %s", describe(first), describe(l.Entries()))
	}
}

func TestAddOrMove_Validation(t *testing.T) {
	tests := []struct {
		name   string
		rank   int
		id     string
		maxCap int
	}{
		{name: "zero rank", rank: 0, id: "A"},
		{name: "negative rank", rank: -2, id: "A"},
		{name: "empty product id", rank: 1, id: ""},
		{name: "rank beyond catalog bound", rank: 9, id: "A", maxCap: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewList(DefaultFlags())
			if tt.maxCap > 0 {
				l.SetMaxRankable(tt.maxCap)
			}
			_, err := l.AddOrMove(Product{ProductID: tt.id}, tt.rank)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if l.Len() != 0 {
				t.Errorf("rejected mutation touched the list: %s", describe(l.Entries()))
			}
		})
	}
}

func TestAddOrMove_FullList(t *testing.T) {
	l := NewList(DefaultFlags())
	l.SetMaxRankable(3)
	mustAdd(t, l, "A", 1)
	mustAdd(t, l, "B", 2)
	mustAdd(t, l, "C", 3)

	if _, err := l.AddOrMove(prod("D"), 1); err == nil {
		t.Fatal("expected full-list rejection")
	}

	// Moving an existing product is still allowed at capacity.
	if _, err := l.AddOrMove(prod("C"), 1); err != nil {
		t.Fatalf("move at capacity: %v", err)
	}
	assertList(t, l, ranked(1, "C", 2, "A", 3, "B"))
}

func TestRemove_Compaction(t *testing.T) {
	l := NewList(DefaultFlags())
	mustAdd(t, l, "A", 1)
	mustAdd(t, l, "B", 2)
	mustAdd(t, l, "C", 3)

	if err := l.Remove("B"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	assertList(t, l, ranked(1, "A", 2, "C"))
}

func TestRemove_LeavesGapWithoutDensity(t *testing.T) {
	l := NewList(Flags{PushDownOnInsert: true, FillGaps: false})
	mustAdd(t, l, "A", 1)
	mustAdd(t, l, "B", 2)
	mustAdd(t, l, "C", 3)

	if err := l.Remove("B"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	assertList(t, l, ranked(1, "A", 3, "C"))
}

func TestRemove_Unknown(t *testing.T) {
	l := NewList(DefaultFlags())
	mustAdd(t, l, "A", 1)

	err := l.Remove("nope")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	assertList(t, l, ranked(1, "A"))
}

func TestRemove_ThenAddRestores(t *testing.T) {
	l := NewList(DefaultFlags())
	mustAdd(t, l, "A", 1)
	mustAdd(t, l, "B", 2)
	mustAdd(t, l, "C", 3)
	before := l.Entries()

	mustAdd(t, l, "X", 2)
	if err := l.Remove("X"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if !EntriesEqual(l.Entries(), before) {
		t.Errorf("add+remove did not restore list: %s -> %s", describe(before), describe(l.Entries()))
	}
}

func TestReorder(t *testing.T) {
	tests := []struct {
		name string
		from int
		to   int
		want []RankingEntry
	}{
		{name: "same index is a no-op", from: 1, to: 1, want: ranked(1, "A", 2, "B", 3, "C")},
		{name: "move last to front", from: 2, to: 0, want: ranked(1, "C", 2, "A", 3, "B")},
		{name: "move front to last", from: 0, to: 2, want: ranked(1, "B", 2, "A", 3, "C")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewList(DefaultFlags())
			mustAdd(t, l, "A", 1)
			mustAdd(t, l, "B", 2)
			mustAdd(t, l, "C", 3)

			if err := l.Reorder(tt.from, tt.to); err != nil {
				t.Fatalf("Reorder: %v", err)
			}
			assertList(t, l, tt.want)
		})
	}
}

func TestReorder_OutOfRange(t *testing.T) {
	l := NewList(DefaultFlags())
	mustAdd(t, l, "A", 1)

	for _, pair := range [][2]int{{-1, 0}, {0, 5}, {3, 0}} {
		if err := l.Reorder(pair[0], pair[1]); err == nil {
			t.Errorf("Reorder(%d,%d): expected error", pair[0], pair[1])
		}
	}
}

func TestReplace_EvictsSlotHolder(t *testing.T) {
	l := NewList(DefaultFlags())
	mustAdd(t, l, "A", 1)
	mustAdd(t, l, "B", 2)
	mustAdd(t, l, "C", 3)

	rank, err := l.Replace(prod("X"), 2)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if rank != 2 {
		t.Errorf("final rank = %d, want 2", rank)
	}
	assertList(t, l, ranked(1, "A", 2, "X", 3, "C"))
}

func TestReplace_MovesExistingProduct(t *testing.T) {
	l := NewList(DefaultFlags())
	mustAdd(t, l, "A", 1)
	mustAdd(t, l, "B", 2)
	mustAdd(t, l, "C", 3)

	// Replacing slot 1 with C removes C from rank 3 first; density then
	// compacts the survivors.
	if _, err := l.Replace(prod("C"), 1); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	assertList(t, l, ranked(1, "C", 2, "B"))
}

func TestHydrate(t *testing.T) {
	l := NewList(DefaultFlags())

	err := l.Hydrate(ranked(3, "C", 1, "A", 2, "B", 5, "A"))
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	// Duplicate A dropped, sorted, compacted.
	assertList(t, l, ranked(1, "A", 2, "B", 3, "C"))
}

func TestHydrate_RejectsBadEntries(t *testing.T) {
	l := NewList(DefaultFlags())

	if err := l.Hydrate([]RankingEntry{{Rank: 1}}); err == nil {
		t.Error("expected rejection of entry without product id")
	}
	if err := l.Hydrate([]RankingEntry{{Rank: 0, Product: prod("A")}}); err == nil {
		t.Error("expected rejection of non-positive rank")
	}
}

func TestClearAll(t *testing.T) {
	l := NewList(DefaultFlags())
	mustAdd(t, l, "A", 1)
	mustAdd(t, l, "B", 2)

	l.ClearAll()
	if l.Len() != 0 {
		t.Errorf("ClearAll left %d entries", l.Len())
	}
	if l.SlotCount() < InitialSlotCount {
		t.Errorf("slot count %d below floor after clear", l.SlotCount())
	}
}

func mustAdd(t *testing.T, l *List, id string, rank int) {
	t.Helper()
	if _, err := l.AddOrMove(prod(id), rank); err != nil {
		t.Fatalf("AddOrMove(%s, %d): %v", id, rank, err)
	}
}
