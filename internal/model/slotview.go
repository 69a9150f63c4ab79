// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package model

// Slot is one position in the rendered slot view: either empty or holding a
// ranking entry. Emptiness is explicit rather than encoded in presentation
// state.
type Slot struct {
	Entry *RankingEntry `json:"entry,omitempty"`
}

// Filled reports whether the slot holds an entry.
func (s Slot) Filled() bool {
	return s.Entry != nil
}

// SlotView projects the list onto slotCount slots: slot i (1-based rank)
// holds the entry ranked i, or is empty. The view is derived output and is
// never persisted.
func (l *List) SlotView() []Slot {
	slots := make([]Slot, l.slotCount)
	for i := range l.entries {
		rank := l.entries[i].Rank
		if rank >= 1 && rank <= len(slots) {
			e := l.entries[i]
			slots[rank-1] = Slot{Entry: &e}
		}
	}
	return slots
}
