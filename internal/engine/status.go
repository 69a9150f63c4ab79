// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package engine

import "fmt"

// SaveState is the replication lifecycle phase of the current edit batch.
type SaveState string

const (
	// StateIdle means there is nothing to report; no save in flight and
	// no recent outcome worth surfacing.
	StateIdle SaveState = "idle"

	// StateSaving means a remote save is in flight, possibly retrying.
	StateSaving SaveState = "saving"

	// StateSaved means the last save was confirmed. The engine reverts to
	// idle after a short display window.
	StateSaved SaveState = "saved"

	// StateError means the in-schedule retries were exhausted. A
	// background retry cycle is armed unless a newer edit supersedes it.
	StateError SaveState = "error"
)

// SaveStatus is a point-in-time view of the save pipeline, suitable for
// rendering directly in a status bar.
type SaveStatus struct {
	State SaveState `json:"state"`

	// Attempt is the current retry ordinal while saving. Zero is the
	// initial attempt and is not a retry.
	Attempt int `json:"attempt,omitempty"`

	// SavedCount is the number of rankings confirmed by the last save.
	// Only meaningful in StateSaved.
	SavedCount int `json:"savedCount,omitempty"`

	// Err is the terminal error of the last failed schedule. Only set in
	// StateError.
	Err error `json:"-"`
}

// Message renders the status as user-facing text. Idle renders empty so
// callers can hide the indicator entirely.
func (s SaveStatus) Message() string {
	switch s.State {
	case StateSaving:
		if s.Attempt > 0 {
			return fmt.Sprintf("Retrying (%d)…", s.Attempt)
		}
		return "Saving…"
	case StateSaved:
		return fmt.Sprintf("✓ Saved %d rankings", s.SavedCount)
	case StateError:
		return "Save failed. Will retry…"
	default:
		return ""
	}
}
