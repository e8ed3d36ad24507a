package jobqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	ants "github.com/panjf2000/ants/v2"

	"github.com/matchpulse/livesync/internal/domain/jobs"
	"github.com/matchpulse/livesync/internal/platform/logging"
	"github.com/matchpulse/livesync/internal/usecase"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusActive    Status = "active"
	StatusFailed    Status = "failed"
	StatusCompleted Status = "completed"
	StatusDead      Status = "dead"
)

// Handler executes one job attempt. A nil error completes the job,
// any other error schedules a retry until attempts run out.
type Handler func(ctx context.Context, job jobs.Descriptor) error

// Transition is one observable state change of a job.
type Transition struct {
	JobID   string
	Job     jobs.Descriptor
	Status  Status
	Attempt int
	Err     error
	At      time.Time
}

// Outcome is the terminal result of a job: completed or dead.
type Outcome struct {
	JobID      string
	Job        jobs.Descriptor
	Status     Status
	Attempts   int
	Err        error
	FinishedAt time.Time
}

type Config struct {
	Workers        int
	MaxAttempts    int
	AttemptTimeout time.Duration
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
	HistorySize    int
	Logger         *logging.Logger
	Observer       func(ctx context.Context, transition Transition)
}

func normalizeConfig(cfg Config) Config {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.HistorySize < 1 {
		cfg.HistorySize = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return cfg
}

// Queue runs jobs on a bounded worker pool with deterministic identities.
// Enqueueing a job whose identity is already queued or active is a no-op.
type Queue struct {
	cfg     Config
	handler Handler
	logger  *logging.Logger
	pool    *ants.Pool

	mu          sync.Mutex
	closed      bool
	active      map[string]jobs.Descriptor
	waiters     map[string][]chan Outcome
	subscribers map[int]chan Outcome
	nextSubID   int
	outcomes    map[string]Outcome
	outcomeIDs  []string
	history     []Transition

	workers sync.WaitGroup
}

func NewQueue(cfg Config, handler Handler) (*Queue, error) {
	if handler == nil {
		return nil, fmt.Errorf("job handler is required")
	}

	cfg = normalizeConfig(cfg)
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Queue{
		cfg:         cfg,
		handler:     handler,
		logger:      cfg.Logger,
		pool:        pool,
		active:      make(map[string]jobs.Descriptor, 16),
		waiters:     make(map[string][]chan Outcome, 16),
		subscribers: make(map[int]chan Outcome, 4),
		outcomes:    make(map[string]Outcome, cfg.HistorySize),
		outcomeIDs:  make([]string, 0, cfg.HistorySize),
		history:     make([]Transition, 0, cfg.HistorySize),
	}, nil
}

// Enqueue registers the job and returns its deterministic identity.
// The second return reports whether the job was deduplicated against an
// already queued or active job with the same identity.
func (q *Queue) Enqueue(ctx context.Context, job jobs.Descriptor) (string, bool, error) {
	if err := job.Validate(); err != nil {
		return "", false, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}

	jobID := job.DedupID()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", false, fmt.Errorf("queue is stopped")
	}
	if _, exists := q.active[jobID]; exists {
		q.mu.Unlock()
		q.logger.DebugContext(ctx, "job deduplicated", "job_id", jobID)
		return jobID, true, nil
	}
	q.active[jobID] = job
	q.workers.Add(1)
	q.mu.Unlock()

	q.record(ctx, Transition{JobID: jobID, Job: job, Status: StatusQueued, At: time.Now().UTC()})

	// Hand off to the pool outside the caller's goroutine. Submit blocks
	// while every worker is busy, and a handler is allowed to enqueue
	// follow-up jobs, so submitting inline would let N concurrent
	// handlers occupy all N workers and then wedge inside their own
	// enqueues. The dedup map bounds these goroutines to one per job
	// identity.
	go q.dispatch(jobID, job)

	return jobID, false, nil
}

func (q *Queue) dispatch(jobID string, job jobs.Descriptor) {
	err := q.pool.Submit(func() {
		defer q.workers.Done()
		q.run(jobID, job)
	})
	if err == nil {
		return
	}

	// The pool was released while this job waited for a worker.
	q.workers.Done()
	ctx := context.Background()
	q.logger.ErrorContext(ctx, "job never reached a worker",
		"job_id", jobID,
		"error", err,
	)
	q.finish(ctx, Outcome{
		JobID:      jobID,
		Job:        job,
		Status:     StatusDead,
		Err:        fmt.Errorf("submit job to worker pool: %w", err),
		FinishedAt: time.Now().UTC(),
	})
}

func (q *Queue) run(jobID string, job jobs.Descriptor) {
	// Jobs outlive the request that enqueued them.
	ctx := context.Background()

	var lastErr error
	for attempt := 1; attempt <= q.cfg.MaxAttempts; attempt++ {
		q.record(ctx, Transition{JobID: jobID, Job: job, Status: StatusActive, Attempt: attempt, At: time.Now().UTC()})

		attemptCtx, cancel := context.WithTimeout(ctx, q.cfg.AttemptTimeout)
		err := q.runAttempt(attemptCtx, job)
		cancel()
		if err == nil {
			q.finish(ctx, Outcome{
				JobID:      jobID,
				Job:        job,
				Status:     StatusCompleted,
				Attempts:   attempt,
				FinishedAt: time.Now().UTC(),
			})
			return
		}

		lastErr = err
		if attempt == q.cfg.MaxAttempts {
			break
		}

		q.record(ctx, Transition{JobID: jobID, Job: job, Status: StatusFailed, Attempt: attempt, Err: err, At: time.Now().UTC()})
		q.logger.WarnContext(ctx, "job attempt failed, retrying",
			"job_id", jobID,
			"attempt", attempt,
			"max_attempts", q.cfg.MaxAttempts,
			"error", err,
		)
		time.Sleep(q.backoff(attempt))
	}

	q.logger.ErrorContext(ctx, "job exhausted attempts",
		"job_id", jobID,
		"attempts", q.cfg.MaxAttempts,
		"error", lastErr,
	)
	q.finish(ctx, Outcome{
		JobID:      jobID,
		Job:        job,
		Status:     StatusDead,
		Attempts:   q.cfg.MaxAttempts,
		Err:        lastErr,
		FinishedAt: time.Now().UTC(),
	})
}

func (q *Queue) runAttempt(ctx context.Context, job jobs.Descriptor) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("job handler panic: %v", recovered)
		}
	}()
	return q.handler(ctx, job)
}

func (q *Queue) backoff(attempt int) time.Duration {
	backoff := q.cfg.BaseBackoff * time.Duration(attempt)
	if backoff > q.cfg.MaxBackoff {
		backoff = q.cfg.MaxBackoff
	}
	return backoff
}

func (q *Queue) finish(ctx context.Context, outcome Outcome) {
	q.record(ctx, Transition{
		JobID:   outcome.JobID,
		Job:     outcome.Job,
		Status:  outcome.Status,
		Attempt: outcome.Attempts,
		Err:     outcome.Err,
		At:      outcome.FinishedAt,
	})

	q.mu.Lock()
	delete(q.active, outcome.JobID)

	if _, exists := q.outcomes[outcome.JobID]; !exists {
		q.outcomeIDs = append(q.outcomeIDs, outcome.JobID)
		if len(q.outcomeIDs) > q.cfg.HistorySize {
			evicted := q.outcomeIDs[0]
			q.outcomeIDs = q.outcomeIDs[1:]
			delete(q.outcomes, evicted)
		}
	}
	q.outcomes[outcome.JobID] = outcome

	waiters := q.waiters[outcome.JobID]
	delete(q.waiters, outcome.JobID)

	subscribers := make([]chan Outcome, 0, len(q.subscribers))
	for _, ch := range q.subscribers {
		subscribers = append(subscribers, ch)
	}
	q.mu.Unlock()

	for _, ch := range waiters {
		ch <- outcome
	}
	for _, ch := range subscribers {
		select {
		case ch <- outcome:
		default:
		}
	}
}

func (q *Queue) record(ctx context.Context, transition Transition) {
	q.mu.Lock()
	q.history = append(q.history, transition)
	if len(q.history) > q.cfg.HistorySize {
		q.history = q.history[len(q.history)-q.cfg.HistorySize:]
	}
	q.mu.Unlock()

	if q.cfg.Observer != nil {
		q.cfg.Observer(ctx, transition)
	}
}

// AwaitOutcome blocks until the job reaches a terminal state or the
// context expires. Recently finished jobs resolve immediately.
func (q *Queue) AwaitOutcome(ctx context.Context, jobID string) (Outcome, error) {
	q.mu.Lock()
	if outcome, ok := q.outcomes[jobID]; ok {
		q.mu.Unlock()
		return outcome, nil
	}
	if _, exists := q.active[jobID]; !exists {
		q.mu.Unlock()
		return Outcome{}, fmt.Errorf("%w: job %q", usecase.ErrNotFound, jobID)
	}
	ch := make(chan Outcome, 1)
	q.waiters[jobID] = append(q.waiters[jobID], ch)
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case outcome := <-ch:
		return outcome, nil
	}
}

// Subscribe returns a channel of terminal outcomes. Slow subscribers
// drop events instead of blocking workers.
func (q *Queue) Subscribe() (<-chan Outcome, func()) {
	ch := make(chan Outcome, 32)

	q.mu.Lock()
	id := q.nextSubID
	q.nextSubID++
	q.subscribers[id] = ch
	q.mu.Unlock()

	cancel := func() {
		q.mu.Lock()
		delete(q.subscribers, id)
		q.mu.Unlock()
	}
	return ch, cancel
}

// History returns the most recent transitions, newest first.
func (q *Queue) History(limit int) []Transition {
	q.mu.Lock()
	defer q.mu.Unlock()

	if limit < 1 || limit > len(q.history) {
		limit = len(q.history)
	}
	out := make([]Transition, 0, limit)
	for i := len(q.history) - 1; i >= len(q.history)-limit; i-- {
		out = append(out, q.history[i])
	}
	return out
}

// Pending reports how many jobs are queued or active.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.active)
}

// Stop refuses new work and waits for in-flight jobs up to the context
// deadline.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.workers.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		q.pool.Release()
		return ctx.Err()
	case <-done:
		q.pool.Release()
		return nil
	}
}
