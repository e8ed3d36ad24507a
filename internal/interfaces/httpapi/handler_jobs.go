package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/matchpulse/livesync/internal/domain/jobs"
	"github.com/matchpulse/livesync/internal/usecase"
)

var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

type internalSyncJobRequest struct {
	GameweekID   int    `json:"gameweek_id" validate:"required,gt=0"`
	TournamentID *int64 `json:"tournament_id" validate:"omitempty,gt=0"`
}

func (h *Handler) RunLiveSyncJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunLiveSyncJob")
	defer span.End()

	h.enqueueSyncJob(ctx, w, r, jobs.KindLiveDB)
}

func (h *Handler) RunLiveCacheSyncJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunLiveCacheSyncJob")
	defer span.End()

	h.enqueueSyncJob(ctx, w, r, jobs.KindLiveCache)
}

func (h *Handler) RunSummaryRecomputeJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSummaryRecomputeJob")
	defer span.End()

	h.enqueueSyncJob(ctx, w, r, jobs.KindSummary)
}

func (h *Handler) RunExplainRecomputeJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunExplainRecomputeJob")
	defer span.End()

	h.enqueueSyncJob(ctx, w, r, jobs.KindExplain)
}

func (h *Handler) RunResultRecomputeJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunResultRecomputeJob")
	defer span.End()

	h.enqueueSyncJob(ctx, w, r, jobs.KindOverallResult)
}

func (h *Handler) enqueueSyncJob(ctx context.Context, w http.ResponseWriter, r *http.Request, kind jobs.Kind) {
	if h.jobQueue == nil {
		writeError(ctx, w, fmt.Errorf("%w: job queue is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeInternalSyncJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	descriptor := jobs.Descriptor{
		Kind:         kind,
		GameweekID:   req.GameweekID,
		Source:       jobs.SourceManual,
		TournamentID: req.TournamentID,
	}

	jobID, deduped, err := h.jobQueue.Enqueue(ctx, descriptor)
	if err != nil {
		h.logger.WarnContext(ctx, "enqueue job failed", "kind", string(kind), "gameweek_id", req.GameweekID, "error", err)
		writeError(ctx, w, err)
		return
	}

	status := http.StatusAccepted
	if deduped {
		status = http.StatusOK
	}

	writeSuccess(ctx, w, status, jobEnqueuedDTO{
		JobID:      jobID,
		Kind:       string(kind),
		GameweekID: req.GameweekID,
		Deduped:    deduped,
	})
}

func (h *Handler) ClearLiveCache(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClearLiveCache")
	defer span.End()

	if h.liveSyncService == nil {
		writeError(ctx, w, fmt.Errorf("%w: live sync service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	req, err := decodeInternalSyncJobRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.liveSyncService.ClearGameweekCache(ctx, req.GameweekID); err != nil {
		h.logger.WarnContext(ctx, "clear live cache failed", "gameweek_id", req.GameweekID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"gameweek_id": req.GameweekID,
		"cleared":     true,
	})
}

func (h *Handler) ListJobHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListJobHistory")
	defer span.End()

	if h.jobRunnerService == nil {
		writeError(ctx, w, fmt.Errorf("%w: job runner service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	limit := 0
	rawLimit := strings.TrimSpace(r.URL.Query().Get("limit"))
	if rawLimit != "" {
		value, err := strconv.Atoi(rawLimit)
		if err != nil || value <= 0 {
			writeError(ctx, w, fmt.Errorf("%w: limit must be a positive integer", usecase.ErrInvalidInput))
			return
		}
		limit = value
	}

	events, err := h.jobRunnerService.ListJobHistory(ctx, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list job history failed", "limit", limit, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]jobAuditEventDTO, 0, len(events))
	for _, event := range events {
		items = append(items, jobAuditEventToDTO(event))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func decodeInternalSyncJobRequest(r *http.Request) (internalSyncJobRequest, error) {
	decoder := strictJSON.NewDecoder(r.Body)

	var req internalSyncJobRequest
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return internalSyncJobRequest{}, nil
		}
		return internalSyncJobRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}

	return req, nil
}
