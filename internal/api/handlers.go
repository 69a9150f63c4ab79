// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/toplist-labs/rankforge/internal/engine"
	"github.com/toplist-labs/rankforge/internal/logging"
	"github.com/toplist-labs/rankforge/internal/model"
	"github.com/toplist-labs/rankforge/internal/replicator"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Status    string      `json:"status"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError carries a stable machine code plus a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// addOrMoveRequest is the POST /rankings body.
type addOrMoveRequest struct {
	Product    model.Product `json:"product" validate:"required"`
	TargetRank int           `json:"targetRank" validate:"required,min=1"`
}

// reorderRequest is the POST /rankings/reorder body. Indexes are zero-based
// positions in the rank-ordered list.
type reorderRequest struct {
	FromIndex int `json:"fromIndex" validate:"min=0"`
	ToIndex   int `json:"toIndex" validate:"min=0"`
}

// replaceRequest is the POST /rankings/replace body.
type replaceRequest struct {
	Product model.Product `json:"product" validate:"required"`
	Rank    int           `json:"rank" validate:"required,min=1"`
}

// catalogRequest is the PUT /catalog body.
type catalogRequest struct {
	MaxRankable int `json:"maxRankable" validate:"min=0"`
}

// rankingsData is the common read payload.
type rankingsData struct {
	Rankings    []model.RankingEntry `json:"rankings"`
	SlotCount   int                  `json:"slotCount"`
	MaxRankable int                  `json:"maxRankable"`
}

func (router *Router) rankingsPayload() rankingsData {
	return rankingsData{
		Rankings:    router.engine.RankedProducts(),
		SlotCount:   router.engine.SlotCount(),
		MaxRankable: router.engine.MaxRankable(),
	}
}

func (router *Router) listRankings(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, router.rankingsPayload())
}

func (router *Router) slotView(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"slots": router.engine.SlotView(),
	})
}

func (router *Router) addOrMove(w http.ResponseWriter, r *http.Request) {
	var req addOrMoveRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	assigned, err := router.engine.AddOrMove(req.Product, req.TargetRank)
	if err != nil {
		respondMutationError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"assignedRank": assigned,
		"rankings":     router.engine.RankedProducts(),
		"slotCount":    router.engine.SlotCount(),
	})
}

func (router *Router) remove(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "product id is required", nil)
		return
	}

	if err := router.engine.Remove(productID); err != nil {
		respondMutationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, router.rankingsPayload())
}

func (router *Router) reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := router.engine.Reorder(req.FromIndex, req.ToIndex); err != nil {
		respondMutationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, router.rankingsPayload())
}

func (router *Router) replace(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	assigned, err := router.engine.Replace(req.Product, req.Rank)
	if err != nil {
		respondMutationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"assignedRank": assigned,
		"rankings":     router.engine.RankedProducts(),
	})
}

func (router *Router) clearAll(w http.ResponseWriter, _ *http.Request) {
	if err := router.engine.ClearAll(); err != nil {
		respondMutationError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, router.rankingsPayload())
}

func (router *Router) setCatalog(w http.ResponseWriter, r *http.Request) {
	var req catalogRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	router.engine.SetMaxRankable(req.MaxRankable)
	respondJSON(w, http.StatusOK, router.rankingsPayload())
}

func (router *Router) status(w http.ResponseWriter, _ *http.Request) {
	s := router.engine.SaveStatus()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"save":    s,
		"message": s.Message(),
		"loading": router.engine.IsLoading(),
		"dirty":   router.engine.Dirty(),
	})
}

func (router *Router) refresh(w http.ResponseWriter, r *http.Request) {
	if err := router.engine.Refresh(r.Context()); err != nil {
		if errors.Is(err, engine.ErrUnsavedChanges) {
			respondError(w, http.StatusConflict, "UNSAVED_CHANGES",
				"Local edits are still pending replication", nil)
			return
		}
		respondRemoteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, router.rankingsPayload())
}

func (router *Router) resync(w http.ResponseWriter, r *http.Request) {
	apply := r.URL.Query().Get("apply") == "true"

	report, err := router.engine.ForceResync(r.Context(), apply)
	if err != nil {
		respondRemoteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"report":  report,
		"applied": apply && !report.InSync(),
	})
}

func (router *Router) health(w http.ResponseWriter, _ *http.Request) {
	data := map[string]interface{}{
		"status":  "ok",
		"loading": router.engine.IsLoading(),
	}
	if router.stats != nil {
		data["store"] = router.stats.Stats()
	}
	respondJSON(w, http.StatusOK, data)
}

// decodeRequest parses and validates a JSON body, replying with a 400 on
// failure. Returns false when the request was already answered.
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON", err)
		return false
	}
	if err := validate.Struct(v); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return false
	}
	return true
}

// respondMutationError maps engine errors onto HTTP statuses.
func respondMutationError(w http.ResponseWriter, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), nil)
	case errors.Is(err, engine.ErrEngineClosed):
		respondError(w, http.StatusServiceUnavailable, "SHUTTING_DOWN", "Engine is shutting down", nil)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Mutation failed", err)
	}
}

// respondRemoteError maps ranking service errors onto HTTP statuses.
func respondRemoteError(w http.ResponseWriter, err error) {
	var authErr *replicator.AuthError
	var payloadErr *replicator.PayloadError
	switch {
	case errors.As(err, &authErr):
		respondError(w, http.StatusUnauthorized, "AUTH_ERROR", "Ranking service rejected credentials", err)
	case errors.As(err, &payloadErr):
		respondError(w, http.StatusBadGateway, "PAYLOAD_REJECTED", "Ranking service rejected the payload", err)
	default:
		respondError(w, http.StatusBadGateway, "REMOTE_ERROR", "Ranking service unavailable", err)
	}
}

// respondJSON sends a success envelope.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeResponse(w, status, &APIResponse{
		Status:    "ok",
		Data:      data,
		Timestamp: time.Now(),
	})
}

// respondError sends an error envelope.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Err(err).Msg("API error")
	}
	writeResponse(w, status, &APIResponse{
		Status:    "error",
		Error:     &APIError{Code: code, Message: message},
		Timestamp: time.Now(),
	})
}

func writeResponse(w http.ResponseWriter, status int, resp *APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}
