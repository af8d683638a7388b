package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

// maxOrderLimit caps how many orders a single snapshot request may return.
const maxOrderLimit = 5000

// SnapshotHandler serves snapshot and summary endpoints.
type SnapshotHandler struct {
	snapshots domain.SnapshotStore
	summaries domain.SummaryCache // optional
	logger    *slog.Logger
}

// NewSnapshotHandler creates a SnapshotHandler. summaries may be nil, in which
// case every summary request is computed from the stored snapshot.
func NewSnapshotHandler(snapshots domain.SnapshotStore, summaries domain.SummaryCache, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{
		snapshots: snapshots,
		summaries: summaries,
		logger:    logger,
	}
}

// snapshotResponse wraps the snapshot endpoint output with metadata.
type snapshotResponse struct {
	StructureID int64          `json:"structure_id"`
	ObservedAt  time.Time      `json:"observed_at"`
	OrderCount  int            `json:"order_count"`
	Orders      []domain.Order `json:"orders"`
}

// GetSnapshot returns the latest stored snapshot for a structure, optionally
// filtered by item and side.
// GET /api/structures/{id}/snapshot?type_id=34&is_buy=false&limit=100
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := structureIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid structure id")
		return
	}

	snap, err := h.snapshots.Latest(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no snapshot for structure")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get snapshot failed",
			slog.Int64("structure_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}

	filter := domain.OrderFilter{
		TypeID: queryInt32(r, "type_id"),
		IsBuy:  queryBool(r, "is_buy"),
		Limit:  maxOrderLimit,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n < maxOrderLimit {
			filter.Limit = n
		}
	}
	orders := snap.Filter(filter)

	writeJSON(w, http.StatusOK, snapshotResponse{
		StructureID: snap.StructureID,
		ObservedAt:  snap.ObservedAt,
		OrderCount:  len(snap.Orders),
		Orders:      orders,
	})
}

// summaryResponse wraps the summary endpoint output.
type summaryResponse struct {
	StructureID int64                `json:"structure_id"`
	ObservedAt  time.Time            `json:"observed_at"`
	Items       []domain.ItemSummary `json:"items"`
}

// GetSummary returns per-item best bid/ask and depth for a structure. Reads
// go through the summary cache when one is configured; misses fall back to
// the stored snapshot and repopulate the cache.
// GET /api/structures/{id}/summary
func (h *SnapshotHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := structureIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid structure id")
		return
	}

	if h.summaries != nil {
		items, observedAt, err := h.summaries.Get(r.Context(), id)
		if err == nil {
			writeJSON(w, http.StatusOK, summaryResponse{
				StructureID: id,
				ObservedAt:  observedAt,
				Items:       items,
			})
			return
		}
		if !errors.Is(err, domain.ErrNotFound) {
			h.logger.WarnContext(r.Context(), "handler: summary cache read failed",
				slog.Int64("structure_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	snap, err := h.snapshots.Latest(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no snapshot for structure")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get summary failed",
			slog.Int64("structure_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}

	items := snap.Summarize()

	if h.summaries != nil {
		if err := h.summaries.Set(r.Context(), id, items, snap.ObservedAt); err != nil {
			h.logger.WarnContext(r.Context(), "handler: summary cache write failed",
				slog.Int64("structure_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		StructureID: id,
		ObservedAt:  snap.ObservedAt,
		Items:       items,
	})
}
