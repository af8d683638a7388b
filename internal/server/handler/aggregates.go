package handler

import (
	"log/slog"
	"net/http"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

// AggregateHandler serves the daily trade-aggregate read endpoint.
type AggregateHandler struct {
	aggregates domain.AggregateStore
	logger     *slog.Logger
}

// NewAggregateHandler creates an AggregateHandler.
func NewAggregateHandler(aggregates domain.AggregateStore, logger *slog.Logger) *AggregateHandler {
	return &AggregateHandler{
		aggregates: aggregates,
		logger:     logger,
	}
}

// listAggregatesResponse wraps the list endpoint output.
type listAggregatesResponse struct {
	StructureID int64                 `json:"structure_id"`
	Rows        []domain.AggregateRow `json:"rows"`
}

// ListAggregates returns daily trade estimates for a structure, optionally
// filtered by day, item, side, and bound mode.
// GET /api/structures/{id}/aggregates?day=2026-09-01&type_id=34&is_buy=false&liberal=true
func (h *AggregateHandler) ListAggregates(w http.ResponseWriter, r *http.Request) {
	id, ok := structureIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid structure id")
		return
	}

	day, ok := queryDay(r, "day")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid day, expected YYYY-MM-DD")
		return
	}

	rows, err := h.aggregates.List(r.Context(), domain.AggregateQuery{
		Day:         day,
		StructureID: id,
		TypeID:      queryInt32(r, "type_id"),
		IsBuy:       queryBool(r, "is_buy"),
		Liberal:     queryBool(r, "liberal"),
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list aggregates failed",
			slog.Int64("structure_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list aggregates")
		return
	}
	if rows == nil {
		rows = []domain.AggregateRow{}
	}

	writeJSON(w, http.StatusOK, listAggregatesResponse{
		StructureID: id,
		Rows:        rows,
	})
}
