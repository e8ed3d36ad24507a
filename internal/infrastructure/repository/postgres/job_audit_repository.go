package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/matchpulse/livesync/internal/domain/jobaudit"
	qb "github.com/matchpulse/livesync/internal/platform/querybuilder"
)

type JobAuditRepository struct {
	db *sqlx.DB
}

func NewJobAuditRepository(db *sqlx.DB) *JobAuditRepository {
	return &JobAuditRepository{db: db}
}

// UpsertEvent records the latest observed state of one job. One row per
// job id; later transitions overwrite earlier ones but keep the first
// enqueue timestamp.
func (r *JobAuditRepository) UpsertEvent(ctx context.Context, event jobaudit.AttemptEvent) error {
	jobID := strings.TrimSpace(event.JobID)
	if jobID == "" {
		return fmt.Errorf("job id is required")
	}

	occurredAt := event.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	model := jobAuditInsertModel{
		JobID:      jobID,
		Kind:       strings.TrimSpace(event.Kind),
		GameweekID: event.GameweekID,
		Source:     strings.TrimSpace(event.Source),
		Status:     string(event.Status),
		Attempt:    event.Attempt,
		LastError:  optionalString(event.ErrorMessage),
		TraceID:    optionalString(event.TraceID),
		SpanID:     optionalString(event.SpanID),
		EnqueuedAt: &occurredAt,
		OccurredAt: occurredAt,
	}

	query, args, err := qb.InsertModel("job_audit_events", model, `ON CONFLICT (job_id) WHERE deleted_at IS NULL
DO UPDATE SET
    kind = EXCLUDED.kind,
    gameweek_id = EXCLUDED.gameweek_id,
    source = EXCLUDED.source,
    status = EXCLUDED.status,
    attempt = GREATEST(job_audit_events.attempt, EXCLUDED.attempt),
    last_error = CASE
        WHEN EXCLUDED.status IN ('failed', 'dead') THEN EXCLUDED.last_error
        ELSE NULL
    END,
    trace_id = EXCLUDED.trace_id,
    span_id = EXCLUDED.span_id,
    enqueued_at = COALESCE(job_audit_events.enqueued_at, EXCLUDED.enqueued_at),
    occurred_at = EXCLUDED.occurred_at,
    deleted_at = NULL`)
	if err != nil {
		return fmt.Errorf("build upsert job audit event query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert job audit event job_id=%s status=%s: %w", jobID, event.Status, err)
	}

	return nil
}

func (r *JobAuditRepository) ListRecent(ctx context.Context, limit int) ([]jobaudit.AttemptEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query, args, err := qb.Select(
		"job_id",
		"kind",
		"gameweek_id",
		"source",
		"status",
		"attempt",
		"last_error",
		"trace_id",
		"span_id",
		"occurred_at",
	).From("job_audit_events").
		Where(qb.IsNull("deleted_at")).
		OrderBy("occurred_at DESC", "job_id").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list job audit events query: %w", err)
	}

	var rows []jobAuditRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list job audit events: %w", err)
	}

	out := make([]jobaudit.AttemptEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, jobaudit.AttemptEvent{
			JobID:        row.JobID,
			Kind:         row.Kind,
			GameweekID:   row.GameweekID,
			Source:       row.Source,
			Status:       jobaudit.AttemptStatus(row.Status),
			Attempt:      row.Attempt,
			ErrorMessage: nullStringToString(row.LastError),
			OccurredAt:   row.OccurredAt,
			TraceID:      nullStringToString(row.TraceID),
			SpanID:       nullStringToString(row.SpanID),
		})
	}
	return out, nil
}

type jobAuditInsertModel struct {
	JobID      string     `db:"job_id"`
	Kind       string     `db:"kind"`
	GameweekID int        `db:"gameweek_id"`
	Source     string     `db:"source"`
	Status     string     `db:"status"`
	Attempt    int        `db:"attempt"`
	LastError  *string    `db:"last_error"`
	TraceID    *string    `db:"trace_id"`
	SpanID     *string    `db:"span_id"`
	EnqueuedAt *time.Time `db:"enqueued_at"`
	OccurredAt time.Time  `db:"occurred_at"`
}

type jobAuditRow struct {
	JobID      string         `db:"job_id"`
	Kind       string         `db:"kind"`
	GameweekID int            `db:"gameweek_id"`
	Source     string         `db:"source"`
	Status     string         `db:"status"`
	Attempt    int            `db:"attempt"`
	LastError  sql.NullString `db:"last_error"`
	TraceID    sql.NullString `db:"trace_id"`
	SpanID     sql.NullString `db:"span_id"`
	OccurredAt time.Time      `db:"occurred_at"`
}
