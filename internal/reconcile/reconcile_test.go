// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package reconcile

import (
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		local   []string
		missing []string
		extra   []string
		want    State
	}{
		{
			name:  "identical sets are in sync",
			local: []string{"A", "B"},
			want:  StateInSync,
		},
		{
			name:    "local has unflushed products",
			local:   []string{"A", "B", "C"},
			missing: []string{"C"},
			want:    StateLocalAhead,
		},
		{
			name:  "server has products local lacks",
			local: []string{"A"},
			extra: []string{"B"},
			want:  StateServerAhead,
		},
		{
			name:    "both sides drifted",
			local:   []string{"A", "C"},
			missing: []string{"C"},
			extra:   []string{"B"},
			want:    StateDivergent,
		},
		{
			name: "both empty",
			want: StateInSync,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Classify(tt.local, len(tt.local)-len(tt.missing)+len(tt.extra), tt.missing, tt.extra)
			if r.State != tt.want {
				t.Errorf("state = %q, want %q", r.State, tt.want)
			}
			if r.InSync() != (tt.want == StateInSync) {
				t.Errorf("InSync() = %v inconsistent with state %q", r.InSync(), r.State)
			}
			if r.LocalCount != len(tt.local) {
				t.Errorf("LocalCount = %d, want %d", r.LocalCount, len(tt.local))
			}
		})
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name        string
		local       []string
		server      []string
		wantMissing []string
		wantExtra   []string
	}{
		{
			name:   "equal",
			local:  []string{"A", "B"},
			server: []string{"B", "A"},
		},
		{
			name:        "local ahead",
			local:       []string{"A", "B", "C"},
			server:      []string{"A"},
			wantMissing: []string{"B", "C"},
		},
		{
			name:      "server ahead",
			local:     []string{"A"},
			server:    []string{"A", "Z"},
			wantExtra: []string{"Z"},
		},
		{
			name:        "divergent",
			local:       []string{"A", "B"},
			server:      []string{"A", "Z"},
			wantMissing: []string{"B"},
			wantExtra:   []string{"Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missing, extra := Diff(tt.local, tt.server)
			if !reflect.DeepEqual(missing, tt.wantMissing) {
				t.Errorf("missing = %v, want %v", missing, tt.wantMissing)
			}
			if !reflect.DeepEqual(extra, tt.wantExtra) {
				t.Errorf("extra = %v, want %v", extra, tt.wantExtra)
			}
		})
	}
}
