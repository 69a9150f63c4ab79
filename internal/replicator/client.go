// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

/*
client.go - Ranking Service REST API Client

This file implements the remote replicator: a REST client that loads the
server's ranking list, replaces it wholesale (replace semantics: after a
successful save the server's state equals the payload), asks the server to
diff a product-id set, and clears the list.
*/

package replicator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/toplist-labs/rankforge/internal/model"
	"github.com/toplist-labs/rankforge/internal/reconcile"
)

// Remote defines the replicator operations the engine depends on. Both
// Client and BreakerClient implement this interface.
type Remote interface {
	// Load fetches the server's current list for the authenticated user.
	Load(ctx context.Context, rankingListID string) ([]model.RankingEntry, error)

	// Save replaces the server's list with the payload.
	Save(ctx context.Context, rankingListID string, rankings []model.RankingEntry) error

	// Reconcile asks the server to diff the given id set against its
	// stored set and returns the classified drift report.
	Reconcile(ctx context.Context, productIDs []string) (*reconcile.Report, error)

	// Clear empties the server's list; equivalent to Save with an empty
	// payload.
	Clear(ctx context.Context, rankingListID string) error
}

// Ensure Client implements Remote.
var _ Remote = (*Client)(nil)

// Client provides access to the ranking service REST API.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewClient creates a ranking service client.
//
// Parameters:
//   - baseURL: service URL (e.g. https://api.example.com)
//   - authToken: opaque bearer token for the authenticated user; session
//     acquisition is the caller's concern
func NewClient(baseURL, authToken string) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &Client{
		baseURL:   baseURL,
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// loadResponse is the GET /rankings/products wire shape.
type loadResponse struct {
	Rankings []model.RankingEntry `json:"rankings"`
}

// saveItem is one entry of the POST /rankings/products payload.
type saveItem struct {
	ProductID   string        `json:"productId"`
	Ranking     int           `json:"ranking"`
	ProductData model.Product `json:"productData"`
}

type saveRequest struct {
	RankingListID string     `json:"rankingListId"`
	Rankings      []saveItem `json:"rankings"`
}

type reconcileRequest struct {
	ProductIDs []string `json:"productIds"`
}

type reconcileResponse struct {
	BackendCount       int      `json:"backendCount"`
	MissingFromBackend []string `json:"missingFromBackend"`
	ExtraInBackend     []string `json:"extraInBackend"`
}

// Load fetches the server's current ranking list.
func (c *Client) Load(ctx context.Context, rankingListID string) ([]model.RankingEntry, error) {
	endpoint := "/rankings/products?rankingListId=" + url.QueryEscape(rankingListID)

	resp, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("rankings load request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp, "load"); err != nil {
		return nil, err
	}

	var payload loadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode rankings: %w", err)
	}

	return payload.Rankings, nil
}

// Save replaces the server's list with the given rankings.
func (c *Client) Save(ctx context.Context, rankingListID string, rankings []model.RankingEntry) error {
	items := make([]saveItem, len(rankings))
	for i := range rankings {
		items[i] = saveItem{
			ProductID:   rankings[i].Product.ProductID,
			Ranking:     rankings[i].Rank,
			ProductData: rankings[i].Product,
		}
	}

	body, err := json.Marshal(saveRequest{RankingListID: rankingListID, Rankings: items})
	if err != nil {
		return fmt.Errorf("marshal save payload: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/rankings/products", body)
	if err != nil {
		return fmt.Errorf("rankings save request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return checkStatus(resp, "save")
}

// Reconcile asks the server to diff the id set against its stored list.
func (c *Client) Reconcile(ctx context.Context, productIDs []string) (*reconcile.Report, error) {
	if productIDs == nil {
		productIDs = []string{}
	}
	body, err := json.Marshal(reconcileRequest{ProductIDs: productIDs})
	if err != nil {
		return nil, fmt.Errorf("marshal reconcile payload: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/rankings/reconcile", body)
	if err != nil {
		return nil, fmt.Errorf("rankings reconcile request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp, "reconcile"); err != nil {
		return nil, err
	}

	var payload reconcileResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode reconcile response: %w", err)
	}

	return reconcile.Classify(productIDs, payload.BackendCount,
		payload.MissingFromBackend, payload.ExtraInBackend), nil
}

// Clear empties the server's list.
func (c *Client) Clear(ctx context.Context, rankingListID string) error {
	endpoint := "/rankings/products/clear?rankingListId=" + url.QueryEscape(rankingListID)

	resp, err := c.doRequest(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("rankings clear request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	return checkStatus(resp, "clear")
}

// doRequest performs an HTTP request against the ranking service.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body []byte) (*http.Response, error) {
	fullURL := c.baseURL + endpoint

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

// checkStatus maps HTTP status codes onto the error taxonomy. 2xx passes;
// 401/403 is an AuthError (non-retryable, the caller must re-authenticate);
// 400/422 is a PayloadError (non-retryable for that payload); everything
// else is treated as transient.
func checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Op: op, StatusCode: resp.StatusCode}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &PayloadError{Op: op, StatusCode: resp.StatusCode, Message: readBody(resp)}
	default:
		return fmt.Errorf("rankings %s returned status %d: %s", op, resp.StatusCode, readBody(resp))
	}
}

func readBody(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "(failed to read body)"
	}
	return string(body)
}
