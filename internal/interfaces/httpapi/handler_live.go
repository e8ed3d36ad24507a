package httpapi

import (
	"fmt"
	"net/http"

	"github.com/matchpulse/livesync/internal/usecase"
)

func (h *Handler) ListGameweekLive(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListGameweekLive")
	defer span.End()

	if h.liveSyncService == nil {
		writeError(ctx, w, fmt.Errorf("%w: live sync service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	gameweekID, err := gameweekIDFromPath(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	records, err := h.liveSyncService.ListGameweekLive(ctx, gameweekID)
	if err != nil {
		h.logger.WarnContext(ctx, "list gameweek live failed", "gameweek_id", gameweekID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]liveStatDTO, 0, len(records))
	for _, record := range records {
		items = append(items, liveStatToDTO(record))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) ListGameweekExplain(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListGameweekExplain")
	defer span.End()

	if h.explainService == nil {
		writeError(ctx, w, fmt.Errorf("%w: explain service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	gameweekID, err := gameweekIDFromPath(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	records, err := h.explainService.ListGameweekExplain(ctx, gameweekID)
	if err != nil {
		h.logger.WarnContext(ctx, "list gameweek explain failed", "gameweek_id", gameweekID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]explainDTO, 0, len(records))
	for _, record := range records {
		items = append(items, explainToDTO(record))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetGameweekResult(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGameweekResult")
	defer span.End()

	if h.resultService == nil {
		writeError(ctx, w, fmt.Errorf("%w: gameweek result service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	gameweekID, err := gameweekIDFromPath(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.resultService.GetResult(ctx, gameweekID)
	if err != nil {
		h.logger.WarnContext(ctx, "get gameweek result failed", "gameweek_id", gameweekID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameweekResultToDTO(result))
}
