package usecase

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/matchpulse/livesync/internal/domain/jobaudit"
	"github.com/matchpulse/livesync/internal/domain/jobs"
	"github.com/matchpulse/livesync/internal/platform/logging"
)

// JobTransition is one job state change as reported by the queue.
type JobTransition struct {
	JobID      string
	Kind       jobs.Kind
	GameweekID int
	Source     jobs.Source
	Status     string
	Attempt    int
	Err        error
	At         time.Time
}

type cascadeRunner interface {
	RunCascade(ctx context.Context, gameweekID int) (CascadeReport, error)
}

// JobRunnerService dispatches queued jobs strictly by kind and records
// the audit trail. A successful durable live sync triggers the cascade
// of dependent recomputations.
type JobRunnerService struct {
	liveSync    *LiveSyncService
	explainSync *ExplainSyncService
	summaries   *SummaryService
	results     *GameweekResultService
	cascade     cascadeRunner
	auditRepo   jobaudit.Repository
	logger      *logging.Logger
}

func NewJobRunnerService(
	liveSync *LiveSyncService,
	explainSync *ExplainSyncService,
	summaries *SummaryService,
	results *GameweekResultService,
	cascade cascadeRunner,
	auditRepo jobaudit.Repository,
	logger *logging.Logger,
) *JobRunnerService {
	if logger == nil {
		logger = logging.Default()
	}
	return &JobRunnerService{
		liveSync:    liveSync,
		explainSync: explainSync,
		summaries:   summaries,
		results:     results,
		cascade:     cascade,
		auditRepo:   auditRepo,
		logger:      logger,
	}
}

// Handle executes one job attempt.
func (s *JobRunnerService) Handle(ctx context.Context, job jobs.Descriptor) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.JobRunnerService.Handle")
	defer span.End()

	switch job.Kind {
	case jobs.KindLiveCache:
		_, err := s.liveSync.SyncGameweekCacheOnly(ctx, job.GameweekID)
		return err

	case jobs.KindLiveDB:
		outcome, err := s.liveSync.SyncGameweek(ctx, job.GameweekID)
		if err != nil {
			return err
		}
		report, cascadeErr := s.cascade.RunCascade(ctx, job.GameweekID)
		if cascadeErr != nil {
			return fmt.Errorf("run cascade gameweek_id=%d: %w", job.GameweekID, cascadeErr)
		}
		s.logger.InfoContext(ctx, "durable live sync finished",
			"gameweek_id", job.GameweekID,
			"player_count", outcome.PlayerCount,
			"cascade_failed", report.Failed,
		)
		return nil

	case jobs.KindSummary:
		_, err := s.summaries.Recompute(ctx, job.GameweekID)
		return err

	case jobs.KindExplain:
		_, err := s.explainSync.SyncGameweek(ctx, job.GameweekID)
		return err

	case jobs.KindOverallResult:
		_, err := s.results.Recompute(ctx, job.GameweekID)
		return err

	default:
		return fmt.Errorf("%w: unknown job kind %q", ErrInvalidInput, job.Kind)
	}
}

// RecordTransition persists one audit event. Failures are logged and
// swallowed: losing an audit row never fails the job.
func (s *JobRunnerService) RecordTransition(ctx context.Context, transition JobTransition) {
	if s.auditRepo == nil {
		return
	}

	event := jobaudit.AttemptEvent{
		JobID:      transition.JobID,
		Kind:       string(transition.Kind),
		GameweekID: transition.GameweekID,
		Source:     string(transition.Source),
		Status:     mapTransitionStatus(transition.Status),
		Attempt:    transition.Attempt,
		OccurredAt: transition.At,
	}
	if transition.Err != nil {
		event.ErrorMessage = transition.Err.Error()
	}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		event.TraceID = spanCtx.TraceID().String()
		event.SpanID = spanCtx.SpanID().String()
	}

	if err := s.auditRepo.UpsertEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "record job audit event failed",
			"job_id", transition.JobID,
			"status", transition.Status,
			"error", err,
		)
	}
}

// ListJobHistory returns the most recent audit rows, newest first.
func (s *JobRunnerService) ListJobHistory(ctx context.Context, limit int) ([]jobaudit.AttemptEvent, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidInput)
	}

	events, err := s.auditRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list job audit events: %v", ErrPersistence, err)
	}
	return events, nil
}

func mapTransitionStatus(status string) jobaudit.AttemptStatus {
	switch status {
	case "queued":
		return jobaudit.StatusEnqueued
	case "active":
		return jobaudit.StatusActive
	case "completed":
		return jobaudit.StatusCompleted
	case "failed":
		return jobaudit.StatusFailed
	case "dead":
		return jobaudit.StatusDead
	default:
		return jobaudit.AttemptStatus(status)
	}
}
