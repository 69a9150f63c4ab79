// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package replicator

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/toplist-labs/rankforge/internal/logging"
	"github.com/toplist-labs/rankforge/internal/metrics"
	"github.com/toplist-labs/rankforge/internal/model"
	"github.com/toplist-labs/rankforge/internal/reconcile"
)

// Ensure BreakerClient implements Remote.
var _ Remote = (*BreakerClient)(nil)

// BreakerClient wraps a Remote with the circuit breaker pattern, preventing
// the retry schedule from hammering a ranking service that is down or slow.
//
// The breaker uses real time for its interval and timeout calculations;
// that is intentional for production resilience.
type BreakerClient struct {
	remote Remote
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// BreakerSettings tunes the circuit breaker.
type BreakerSettings struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// NewBreakerClient wraps remote with a circuit breaker.
// Default policy:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewBreakerClient(remote Remote, settings BreakerSettings) *BreakerClient {
	if settings.Name == "" {
		settings.Name = "rankings-api"
	}
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 3
	}
	if settings.Interval == 0 {
		settings.Interval = time.Minute
	}
	if settings.Timeout == 0 {
		settings.Timeout = 2 * time.Minute
	}

	metrics.CircuitBreakerState.WithLabelValues(settings.Name).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening rankings circuit")
			}
			return shouldTrip
		},

		// Auth and payload rejections are deterministic outcomes, not a
		// sign the service is unhealthy; keep them out of the trip count.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] Rankings state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &BreakerClient{remote: remote, cb: cb, name: settings.Name}
}

// execute wraps a ranking service call with circuit breaker protection.
func (bc *BreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := bc.cb.Execute(fn)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Rankings request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "success").Inc()
	return result, nil
}

// Load fetches the server's list with circuit breaker protection.
func (bc *BreakerClient) Load(ctx context.Context, rankingListID string) ([]model.RankingEntry, error) {
	result, err := bc.execute(func() (interface{}, error) {
		return bc.remote.Load(ctx, rankingListID)
	})
	if err != nil {
		return nil, err
	}
	rankings, ok := result.([]model.RankingEntry)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type for Load")
	}
	return rankings, nil
}

// Save replaces the server's list with circuit breaker protection.
func (bc *BreakerClient) Save(ctx context.Context, rankingListID string, rankings []model.RankingEntry) error {
	_, err := bc.execute(func() (interface{}, error) {
		return nil, bc.remote.Save(ctx, rankingListID, rankings)
	})
	return err
}

// Reconcile diffs the id set with circuit breaker protection.
func (bc *BreakerClient) Reconcile(ctx context.Context, productIDs []string) (*reconcile.Report, error) {
	result, err := bc.execute(func() (interface{}, error) {
		return bc.remote.Reconcile(ctx, productIDs)
	})
	if err != nil {
		return nil, err
	}
	report, ok := result.(*reconcile.Report)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected result type for Reconcile")
	}
	return report, nil
}

// Clear empties the server's list with circuit breaker protection.
func (bc *BreakerClient) Clear(ctx context.Context, rankingListID string) error {
	_, err := bc.execute(func() (interface{}, error) {
		return nil, bc.remote.Clear(ctx, rankingListID)
	})
	return err
}

// State returns the current circuit breaker state.
func (bc *BreakerClient) State() gobreaker.State {
	return bc.cb.State()
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
