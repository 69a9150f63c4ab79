// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

// Package retry executes fallible actions with capped exponential backoff,
// optional jitter, an abort predicate and a per-attempt callback. It is the
// single retry primitive shared by the replicator save path and startup
// recovery.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Action is the operation under retry.
type Action func(ctx context.Context) error

// Options control the retry schedule.
type Options struct {
	// MaxRetries is the number of retries after the first failure; the
	// initial call is attempt 0 and does not count against it.
	MaxRetries int

	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the grown delay.
	MaxDelay time.Duration

	// Multiplier grows the delay after each attempt. Values <= 1 mean a
	// constant delay.
	Multiplier float64

	// Jitter scales each delay by a uniform random factor in [0.5, 1.0].
	Jitter bool

	// ShouldRetry decides whether an error is worth retrying. A nil
	// predicate retries everything.
	ShouldRetry func(err error) bool

	// OnRetry fires before each sleep with the zero-based index of the
	// upcoming retry, the planned delay, and the error that caused it.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultOptions returns the schedule used for remote saves: 3 retries,
// 1 s initial delay, doubling, jittered.
func DefaultOptions() Options {
	return Options{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

// Do invokes action and retries failures per opts. It surfaces only the
// final error: exhausted retries or the first error the predicate refuses
// to retry. Context cancellation interrupts a pending sleep and returns the
// context error.
func Do(ctx context.Context, action Action, opts Options) error {
	delay := opts.InitialDelay

	var err error
	for attempt := 0; ; attempt++ {
		err = action(ctx)
		if err == nil {
			return nil
		}
		if opts.ShouldRetry != nil && !opts.ShouldRetry(err) {
			return err
		}
		if attempt >= opts.MaxRetries {
			return err
		}

		planned := delay
		if opts.MaxDelay > 0 && planned > opts.MaxDelay {
			planned = opts.MaxDelay
		}
		if opts.Jitter {
			// Uniform factor in [0.5, 1.0).
			planned = time.Duration(float64(planned) * (0.5 + rand.Float64()/2)) //nolint:gosec // schedule jitter, not crypto
		}

		if opts.OnRetry != nil {
			opts.OnRetry(attempt, planned, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(planned):
		}

		if opts.Multiplier > 1 {
			delay = time.Duration(float64(delay) * opts.Multiplier)
			if opts.MaxDelay > 0 && (delay > opts.MaxDelay || delay < 0) {
				delay = opts.MaxDelay
			}
		}
	}
}
