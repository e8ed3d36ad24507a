package httpapi

import (
	"fmt"
	"net/http"

	"github.com/matchpulse/livesync/internal/usecase"
)

func (h *Handler) ListPlayerSummaries(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPlayerSummaries")
	defer span.End()

	if h.summaryService == nil {
		writeError(ctx, w, fmt.Errorf("%w: summary service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	records, err := h.summaryService.ListSummaries(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list player summaries failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]playerSummaryDTO, 0, len(records))
	for _, record := range records {
		items = append(items, playerSummaryToDTO(record))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetPlayerSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayerSummary")
	defer span.End()

	if h.summaryService == nil {
		writeError(ctx, w, fmt.Errorf("%w: summary service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	playerID, err := playerIDFromPath(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	record, err := h.summaryService.GetPlayerSummary(ctx, playerID)
	if err != nil {
		h.logger.WarnContext(ctx, "get player summary failed", "player_id", playerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, playerSummaryToDTO(record))
}
