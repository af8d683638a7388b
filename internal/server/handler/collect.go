package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

// PassRunner triggers one collection pass for a structure. It is declared
// locally so the handler package does not depend on the concrete runner.
type PassRunner interface {
	Run(ctx context.Context, structureID int64, opts domain.CollectOptions) (domain.PassResult, error)
}

// CollectHandler serves the manual pass-trigger endpoint.
type CollectHandler struct {
	runner PassRunner
	logger *slog.Logger
}

// NewCollectHandler creates a CollectHandler.
func NewCollectHandler(runner PassRunner, logger *slog.Logger) *CollectHandler {
	return &CollectHandler{
		runner: runner,
		logger: logger,
	}
}

// collectRequest is the optional JSON body of a trigger request.
type collectRequest struct {
	ForceRefresh bool `json:"force_refresh"`
}

// TriggerCollect runs one collection pass synchronously and returns its
// result. Concurrent passes for the same structure return 409; configuration
// problems return 400; upstream fetch failures return 502.
// POST /api/structures/{id}/collect
func (h *CollectHandler) TriggerCollect(w http.ResponseWriter, r *http.Request) {
	id, ok := structureIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid structure id")
		return
	}

	var req collectRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.runner.Run(r.Context(), id, domain.CollectOptions{ForceRefresh: req.ForceRefresh})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPassInProgress):
			writeError(w, http.StatusConflict, "collection pass already in progress")
		case domain.IsConfigError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUpstream):
			h.logger.ErrorContext(r.Context(), "handler: collection fetch failed",
				slog.Int64("structure_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusBadGateway, "upstream fetch failed")
		default:
			h.logger.ErrorContext(r.Context(), "handler: collection pass failed",
				slog.Int64("structure_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "collection pass failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}
