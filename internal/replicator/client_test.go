// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package replicator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/toplist-labs/rankforge/internal/model"
	"github.com/toplist-labs/rankforge/internal/reconcile"
)

func testEntry(id string, rank int) model.RankingEntry {
	return model.RankingEntry{
		Rank: rank,
		Product: model.Product{
			ProductID: id,
			Title:     "Product " + id,
		},
	}
}

func TestClient_Load(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/rankings/products" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("rankingListId"); got != "list-1" {
			t.Errorf("expected rankingListId=list-1, got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-abc" {
			t.Errorf("expected bearer token, got %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(loadResponse{
			Rankings: []model.RankingEntry{testEntry("p1", 1), testEntry("p2", 2)},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "token-abc")
	rankings, err := client.Load(context.Background(), "list-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rankings) != 2 {
		t.Fatalf("expected 2 rankings, got %d", len(rankings))
	}
	if rankings[0].Product.ProductID != "p1" || rankings[0].Rank != 1 {
		t.Errorf("unexpected first entry: %+v", rankings[0])
	}
}

func TestClient_Save(t *testing.T) {
	var received saveRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/rankings/products" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode save payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token-abc")
	err := client.Save(context.Background(), "list-1",
		[]model.RankingEntry{testEntry("p1", 1), testEntry("p3", 2)})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if received.RankingListID != "list-1" {
		t.Errorf("expected rankingListId list-1, got %q", received.RankingListID)
	}
	if len(received.Rankings) != 2 {
		t.Fatalf("expected 2 items, got %d", len(received.Rankings))
	}
	if received.Rankings[1].ProductID != "p3" || received.Rankings[1].Ranking != 2 {
		t.Errorf("unexpected second item: %+v", received.Rankings[1])
	}
	if received.Rankings[0].ProductData.ProductID != "p1" {
		t.Errorf("product data not carried through: %+v", received.Rankings[0])
	}
}

func TestClient_Reconcile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rankings/reconcile" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req reconcileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode reconcile payload: %v", err)
		}
		if len(req.ProductIDs) != 3 {
			t.Errorf("expected 3 product ids, got %d", len(req.ProductIDs))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reconcileResponse{
			BackendCount:       3,
			MissingFromBackend: []string{"p3"},
			ExtraInBackend:     []string{"p9"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "token-abc")
	report, err := client.Reconcile(context.Background(), []string{"p1", "p2", "p3"})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if report.State != reconcile.StateDivergent {
		t.Errorf("expected divergent state, got %s", report.State)
	}
	if report.BackendCount != 3 || report.LocalCount != 3 {
		t.Errorf("unexpected counts: %+v", report)
	}
}

func TestClient_Clear(t *testing.T) {
	var cleared bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", r.Method)
		}
		if r.URL.Path != "/rankings/products/clear" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("rankingListId"); got != "list-1" {
			t.Errorf("expected rankingListId=list-1, got %q", got)
		}
		cleared = true
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token-abc")
	if err := client.Clear(context.Background(), "list-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if !cleared {
		t.Error("clear endpoint never called")
	}
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantAuth  bool
		wantBad   bool
		retryable bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantAuth: true},
		{name: "forbidden", status: http.StatusForbidden, wantAuth: true},
		{name: "bad request", status: http.StatusBadRequest, wantBad: true},
		{name: "unprocessable", status: http.StatusUnprocessableEntity, wantBad: true},
		{name: "server error", status: http.StatusInternalServerError, retryable: true},
		{name: "bad gateway", status: http.StatusBadGateway, retryable: true},
		{name: "too many requests", status: http.StatusTooManyRequests, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			client := NewClient(server.URL, "token-abc")
			err := client.Save(context.Background(), "list-1", []model.RankingEntry{testEntry("p1", 1)})
			if err == nil {
				t.Fatalf("expected error for status %d", tt.status)
			}

			var authErr *AuthError
			if got := errors.As(err, &authErr); got != tt.wantAuth {
				t.Errorf("AuthError = %v, want %v (err: %v)", got, tt.wantAuth, err)
			}
			var payloadErr *PayloadError
			if got := errors.As(err, &payloadErr); got != tt.wantBad {
				t.Errorf("PayloadError = %v, want %v (err: %v)", got, tt.wantBad, err)
			}
			if got := IsRetryable(err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v (err: %v)", got, tt.retryable, err)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil error must not be retryable")
	}
	if IsRetryable(&AuthError{Op: "save", StatusCode: 401}) {
		t.Error("auth errors must not be retryable")
	}
	if IsRetryable(&PayloadError{Op: "save", StatusCode: 400}) {
		t.Error("payload errors must not be retryable")
	}
	if !IsRetryable(errors.New("connection refused")) {
		t.Error("transport errors must be retryable")
	}
	if !IsRetryable(fmt.Errorf("wrapped: %w", errors.New("timeout"))) {
		t.Error("wrapped transport errors must be retryable")
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rankings/products" {
			t.Errorf("double slash leaked into path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(loadResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "token")
	if _, err := client.Load(context.Background(), "list-1"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
}

func TestClient_NoTokenOmitsHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("expected no Authorization header, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(loadResponse{})
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.Load(context.Background(), "list-1"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
}
