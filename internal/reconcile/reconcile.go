// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

// Package reconcile classifies drift between the local ranked product set
// and the set the server stores. Classification is pure; resolving drift is
// the engine's (or the operator's) job.
package reconcile

// State describes which side holds products the other lacks.
type State string

const (
	// StateInSync means both sides store the same product set.
	StateInSync State = "in-sync"

	// StateLocalAhead means local holds products the server lacks; local
	// is authoritative and a save repairs the server.
	StateLocalAhead State = "local-ahead"

	// StateServerAhead means the server holds products local lacks. The
	// client is the editor of record, so the default action is still a
	// local-authoritative save; the state is surfaced for a human call.
	StateServerAhead State = "server-ahead"

	// StateDivergent means both sides hold products the other lacks.
	StateDivergent State = "divergent"
)

// Report is the server's answer to a reconcile request plus the derived
// classification.
type Report struct {
	BackendCount       int      `json:"backendCount"`
	MissingFromBackend []string `json:"missingFromBackend"`
	ExtraInBackend     []string `json:"extraInBackend"`
	State              State    `json:"state"`
	LocalCount         int      `json:"localCount"`
}

// Classify derives the drift state from the symmetric differences the
// server reported for the given local id set.
func Classify(localIDs []string, backendCount int, missingFromBackend, extraInBackend []string) *Report {
	r := &Report{
		BackendCount:       backendCount,
		MissingFromBackend: missingFromBackend,
		ExtraInBackend:     extraInBackend,
		LocalCount:         len(localIDs),
	}

	switch {
	case len(missingFromBackend) == 0 && len(extraInBackend) == 0:
		r.State = StateInSync
	case len(missingFromBackend) > 0 && len(extraInBackend) > 0:
		r.State = StateDivergent
	case len(missingFromBackend) > 0:
		r.State = StateLocalAhead
	default:
		r.State = StateServerAhead
	}
	return r
}

// InSync reports whether no drift exists.
func (r *Report) InSync() bool {
	return r.State == StateInSync
}

// Diff computes the symmetric differences between a local and a server id
// set without server involvement. It backs the server's reconcile endpoint
// in tests and lets callers pre-compute an expected report.
func Diff(localIDs, serverIDs []string) (missingFromBackend, extraInBackend []string) {
	local := make(map[string]struct{}, len(localIDs))
	for _, id := range localIDs {
		local[id] = struct{}{}
	}
	server := make(map[string]struct{}, len(serverIDs))
	for _, id := range serverIDs {
		server[id] = struct{}{}
	}

	for _, id := range localIDs {
		if _, ok := server[id]; !ok {
			missingFromBackend = append(missingFromBackend, id)
		}
	}
	for _, id := range serverIDs {
		if _, ok := local[id]; !ok {
			extraInBackend = append(extraInBackend, id)
		}
	}
	return missingFromBackend, extraInBackend
}
