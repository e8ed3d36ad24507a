package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/matchpulse/livesync/internal/platform/logging"
	"github.com/matchpulse/livesync/internal/usecase"
)

type Handler struct {
	liveSyncService  *usecase.LiveSyncService
	explainService   *usecase.ExplainSyncService
	summaryService   *usecase.SummaryService
	resultService    *usecase.GameweekResultService
	jobRunnerService *usecase.JobRunnerService
	jobQueue         usecase.JobQueue
	logger           *logging.Logger
	validator        *validator.Validate
}

func NewHandler(
	liveSyncService *usecase.LiveSyncService,
	explainService *usecase.ExplainSyncService,
	summaryService *usecase.SummaryService,
	resultService *usecase.GameweekResultService,
	jobRunnerService *usecase.JobRunnerService,
	jobQueue usecase.JobQueue,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		liveSyncService:  liveSyncService,
		explainService:   explainService,
		summaryService:   summaryService,
		resultService:    resultService,
		jobRunnerService: jobRunnerService,
		jobQueue:         jobQueue,
		logger:           logger,
		validator:        validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func gameweekIDFromPath(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.PathValue("gameweekID"))
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%w: gameweek id must be a positive integer", usecase.ErrInvalidInput)
	}
	return value, nil
}

func playerIDFromPath(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("playerID"))
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%w: player id must be a positive integer", usecase.ErrInvalidInput)
	}
	return value, nil
}
