package jobaudit

import "time"

type AttemptStatus string

const (
	StatusEnqueued  AttemptStatus = "enqueued"
	StatusActive    AttemptStatus = "active"
	StatusCompleted AttemptStatus = "completed"
	StatusFailed    AttemptStatus = "failed"
	StatusDead      AttemptStatus = "dead"
)

// AttemptEvent is one observed transition of a job attempt. Events are
// written best-effort; losing one never fails the job itself.
type AttemptEvent struct {
	JobID        string
	Kind         string
	GameweekID   int
	Source       string
	Status       AttemptStatus
	Attempt      int
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}
