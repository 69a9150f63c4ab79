// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package model

import "testing"

func TestSlotView_Projection(t *testing.T) {
	l := NewList(Flags{PushDownOnInsert: true, FillGaps: false})
	mustAdd(t, l, "A", 1)
	mustAdd(t, l, "B", 2)
	mustAdd(t, l, "D", 5)

	slots := l.SlotView()
	if len(slots) != l.SlotCount() {
		t.Fatalf("view has %d slots, want %d", len(slots), l.SlotCount())
	}

	wantFilled := map[int]string{0: "A", 1: "B", 4: "D"}
	for i, slot := range slots {
		id, want := wantFilled[i]
		if want != slot.Filled() {
			t.Errorf("slot %d filled=%v, want %v", i, slot.Filled(), want)
			continue
		}
		if want && slot.Entry.Product.ProductID != id {
			t.Errorf("slot %d holds %q, want %q", i, slot.Entry.Product.ProductID, id)
		}
	}
}

func TestSlotCount_GrowsNearCapacity(t *testing.T) {
	l := NewList(DefaultFlags())

	if l.SlotCount() != InitialSlotCount {
		t.Fatalf("initial slot count = %d, want %d", l.SlotCount(), InitialSlotCount)
	}

	// Filling up to 6 entries keeps 10 slots; the 7th (>= 10-3) grows to 20.
	for i := 1; i <= 6; i++ {
		mustAdd(t, l, prodID(i), i)
	}
	if l.SlotCount() != 10 {
		t.Fatalf("slot count after 6 entries = %d, want 10", l.SlotCount())
	}

	mustAdd(t, l, prodID(7), 7)
	if l.SlotCount() != 20 {
		t.Fatalf("slot count after 7 entries = %d, want 20", l.SlotCount())
	}
}

func TestSlotCount_ClampedToCatalogBound(t *testing.T) {
	l := NewList(DefaultFlags())
	for i := 1; i <= 8; i++ {
		mustAdd(t, l, prodID(i), i)
	}
	if l.SlotCount() != 20 {
		t.Fatalf("slot count = %d, want 20", l.SlotCount())
	}

	// Catalog bound learned late: the view shrinks but no entry is evicted.
	l.SetMaxRankable(12)
	if l.SlotCount() != 12 {
		t.Errorf("slot count = %d, want 12 after clamp", l.SlotCount())
	}
	if l.Len() != 8 {
		t.Errorf("clamp evicted entries: len = %d, want 8", l.Len())
	}
}

func TestSlotCount_NeverBelowEntryCount(t *testing.T) {
	l := NewList(DefaultFlags())
	for i := 1; i <= 8; i++ {
		mustAdd(t, l, prodID(i), i)
	}

	// External drift: bound smaller than the list. Entries stay visible.
	l.SetMaxRankable(5)
	if l.SlotCount() < l.Len() {
		t.Errorf("slot count %d fell below entry count %d", l.SlotCount(), l.Len())
	}
}

func prodID(i int) string {
	return string(rune('A' + i - 1))
}
