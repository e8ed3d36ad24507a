package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/matchpulse/livesync/internal/domain/jobs"
	"github.com/matchpulse/livesync/internal/platform/logging"
)

// JobOutcome is the terminal result of one queued job as seen by use
// cases.
type JobOutcome struct {
	JobID     string
	Completed bool
	Attempts  int
	Err       error
}

// JobQueue enqueues work with deterministic identities and exposes the
// terminal outcome of each job.
type JobQueue interface {
	Enqueue(ctx context.Context, job jobs.Descriptor) (string, bool, error)
	AwaitOutcome(ctx context.Context, jobID string) (JobOutcome, error)
}

type CascadeJobResult struct {
	Kind      jobs.Kind
	JobID     string
	Deduped   bool
	Succeeded bool
	Err       error
}

type CascadeReport struct {
	GameweekID int
	Results    []CascadeJobResult
	Failed     int
}

var cascadeKinds = []jobs.Kind{jobs.KindSummary, jobs.KindExplain, jobs.KindOverallResult}

// CascadeOrchestrator fans out the recomputations that depend on fresh
// live rows. Dependents run concurrently and in isolation: one failing
// or timing out is recorded in the report without touching the others.
type CascadeOrchestrator struct {
	queue        JobQueue
	logger       *logging.Logger
	awaitTimeout time.Duration
}

func NewCascadeOrchestrator(queue JobQueue, logger *logging.Logger, awaitTimeout time.Duration) *CascadeOrchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	if awaitTimeout <= 0 {
		awaitTimeout = 2 * time.Minute
	}
	return &CascadeOrchestrator{
		queue:        queue,
		logger:       logger,
		awaitTimeout: awaitTimeout,
	}
}

// RunCascade enqueues every dependent kind for the gameweek and waits
// for each to finish. The returned report carries one entry per kind;
// the error return covers invalid input only, never dependent failures.
func (o *CascadeOrchestrator) RunCascade(ctx context.Context, gameweekID int) (CascadeReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CascadeOrchestrator.RunCascade")
	defer span.End()

	if gameweekID <= 0 {
		return CascadeReport{}, fmt.Errorf("%w: gameweek id must be greater than zero", ErrInvalidInput)
	}

	report := CascadeReport{
		GameweekID: gameweekID,
		Results:    make([]CascadeJobResult, len(cascadeKinds)),
	}

	var wg conc.WaitGroup
	for i, kind := range cascadeKinds {
		i, kind := i, kind
		wg.Go(func() {
			report.Results[i] = o.runDependent(ctx, kind, gameweekID)
		})
	}
	wg.Wait()

	for _, result := range report.Results {
		if !result.Succeeded {
			report.Failed++
			o.logger.WarnContext(ctx, "cascade dependent failed",
				"gameweek_id", gameweekID,
				"kind", string(result.Kind),
				"job_id", result.JobID,
				"error", result.Err,
			)
		}
	}

	return report, nil
}

func (o *CascadeOrchestrator) runDependent(ctx context.Context, kind jobs.Kind, gameweekID int) CascadeJobResult {
	result := CascadeJobResult{Kind: kind}

	jobID, deduped, err := o.queue.Enqueue(ctx, jobs.Descriptor{
		Kind:       kind,
		GameweekID: gameweekID,
		Source:     jobs.SourceCascade,
	})
	if err != nil {
		result.Err = fmt.Errorf("enqueue %s: %w", kind, err)
		return result
	}
	result.JobID = jobID
	result.Deduped = deduped

	awaitCtx, cancel := context.WithTimeout(ctx, o.awaitTimeout)
	defer cancel()

	outcome, err := o.queue.AwaitOutcome(awaitCtx, jobID)
	if err != nil {
		result.Err = fmt.Errorf("await %s outcome: %w", kind, err)
		return result
	}
	if !outcome.Completed {
		result.Err = fmt.Errorf("job %s went dead after %d attempts: %w", jobID, outcome.Attempts, outcome.Err)
		return result
	}

	result.Succeeded = true
	return result
}
