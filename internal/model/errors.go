// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package model

import "fmt"

// ValidationError is returned when a mutation is rejected before any state
// changes. The list is untouched when one of these surfaces.
type ValidationError struct {
	Op     string // mutation that was rejected
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("ranking %s rejected: %s", e.Op, e.Reason)
}

func validationErrorf(op, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
