// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package replicator

import (
	"errors"
	"fmt"
)

// AuthError reports authentication loss (HTTP 401/403). It is never
// retried by the engine: the caller is expected to re-authenticate and
// call Refresh.
type AuthError struct {
	Op         string
	StatusCode int
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("rankings %s: authentication rejected (status %d)", e.Op, e.StatusCode)
}

// PayloadError reports server-side validation rejection (HTTP 400/422).
// Retrying the same payload cannot succeed.
type PayloadError struct {
	Op         string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *PayloadError) Error() string {
	return fmt.Sprintf("rankings %s: payload rejected (status %d): %s", e.Op, e.StatusCode, e.Message)
}

// IsRetryable reports whether a replicator error is worth retrying.
// Transport failures and 5xx responses are transient; auth loss and payload
// rejection are not.
func IsRetryable(err error) bool {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return false
	}
	var payloadErr *PayloadError
	if errors.As(err, &payloadErr) {
		return false
	}
	return err != nil
}
