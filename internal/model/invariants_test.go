// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package model

import (
	"fmt"
	"math/rand"
	"testing"
)

// TestInvariants_RandomMutationSequences drives the list through long random
// mutation sequences and checks the structural invariants after every step.
func TestInvariants_RandomMutationSequences(t *testing.T) {
	const (
		seeds     = 20
		steps     = 400
		idSpace   = 40
		rankSpace = 50
	)

	for seed := int64(0); seed < seeds; seed++ {
		seed := seed
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			l := NewList(DefaultFlags())

			for step := 0; step < steps; step++ {
				op := rng.Intn(10)
				id := fmt.Sprintf("p%02d", rng.Intn(idSpace))
				rank := rng.Intn(rankSpace) + 1

				switch {
				case op < 5:
					_, _ = l.AddOrMove(Product{ProductID: id}, rank)
				case op < 7:
					_ = l.Remove(id)
				case op < 9:
					if l.Len() > 1 {
						_ = l.Reorder(rng.Intn(l.Len()), rng.Intn(l.Len()))
					}
				default:
					_, _ = l.Replace(Product{ProductID: id}, rank)
				}

				checkInvariants(t, l, step)
				if t.Failed() {
					return
				}
			}
		})
	}
}

func checkInvariants(t *testing.T, l *List, step int) {
	t.Helper()
	entries := l.Entries()

	seen := make(map[string]struct{}, len(entries))
	prevRank := 0
	for i, e := range entries {
		if _, dup := seen[e.Product.ProductID]; dup {
			t.Errorf("step %d: duplicate product %q", step, e.Product.ProductID)
		}
		seen[e.Product.ProductID] = struct{}{}

		if e.Rank < 1 {
			t.Errorf("step %d: entry %d has rank %d < 1", step, i, e.Rank)
		}
		if e.Rank <= prevRank {
			t.Errorf("step %d: ranks not strictly increasing at %d (%d after %d)", step, i, e.Rank, prevRank)
		}
		prevRank = e.Rank

		// Density policy: ranks are exactly 1..N.
		if e.Rank != i+1 {
			t.Errorf("step %d: rank %d at position %d breaks density", step, e.Rank, i)
		}
	}

	if l.SlotCount() < len(entries) {
		t.Errorf("step %d: slot count %d below entry count %d", step, l.SlotCount(), len(entries))
	}
	if max := l.MaxRankable(); max > 0 && l.SlotCount() > max {
		t.Errorf("step %d: slot count %d above catalog bound %d", step, l.SlotCount(), max)
	}
}

// TestInvariants_AddThenRemoveRestores checks that inserting a fresh product
// and immediately removing it is a net no-op under the density policy, for
// arbitrary starting lists and target ranks.
func TestInvariants_AddThenRemoveRestores(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		l := NewList(DefaultFlags())
		n := rng.Intn(12)
		for i := 1; i <= n; i++ {
			mustAdd(t, l, fmt.Sprintf("p%02d", i), i)
		}
		before := l.Entries()

		target := rng.Intn(15) + 1
		if _, err := l.AddOrMove(Product{ProductID: "fresh"}, target); err != nil {
			t.Fatalf("trial %d: AddOrMove: %v", trial, err)
		}
		if err := l.Remove("fresh"); err != nil {
			t.Fatalf("trial %d: Remove: %v", trial, err)
		}

		if !EntriesEqual(l.Entries(), before) {
			t.Fatalf("trial %d: add+remove not a no-op at target %d:\n before: %s\n after:  %s",
				trial, target, describe(before), describe(l.Entries()))
		}
	}
}
