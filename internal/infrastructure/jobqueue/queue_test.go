package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matchpulse/livesync/internal/domain/jobs"
	"github.com/matchpulse/livesync/internal/usecase"
)

func testConfig() Config {
	return Config{
		Workers:        4,
		MaxAttempts:    3,
		AttemptTimeout: time.Second,
		BaseBackoff:    time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		HistorySize:    64,
	}
}

func TestQueue_EnqueueRunsJobToCompletion(t *testing.T) {
	t.Parallel()

	var handled atomic.Int64
	queue, err := NewQueue(testConfig(), func(ctx context.Context, job jobs.Descriptor) error {
		handled.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	defer func() { _ = queue.Stop(context.Background()) }()

	job := jobs.Descriptor{Kind: jobs.KindSummary, GameweekID: 5, Source: jobs.SourceManual}
	jobID, deduped, err := queue.Enqueue(context.Background(), job)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if deduped {
		t.Fatalf("first enqueue must not be deduplicated")
	}
	if jobID != "summary:5" {
		t.Fatalf("unexpected job id %q", jobID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	outcome, err := queue.AwaitOutcome(ctx, jobID)
	if err != nil {
		t.Fatalf("await outcome: %v", err)
	}
	if outcome.Status != StatusCompleted {
		t.Fatalf("expected completed, got=%s err=%v", outcome.Status, outcome.Err)
	}
	if outcome.Attempts != 1 {
		t.Fatalf("expected one attempt, got=%d", outcome.Attempts)
	}
	if got := handled.Load(); got != 1 {
		t.Fatalf("expected handler invoked once, got=%d", got)
	}
}

func TestQueue_DeduplicatesQueuedAndActiveJobs(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	queue, err := NewQueue(testConfig(), func(ctx context.Context, job jobs.Descriptor) error {
		<-release
		return nil
	})
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	defer func() { _ = queue.Stop(context.Background()) }()

	job := jobs.Descriptor{Kind: jobs.KindLiveDB, GameweekID: 7, Source: jobs.SourceScheduled}
	firstID, deduped, err := queue.Enqueue(context.Background(), job)
	if err != nil || deduped {
		t.Fatalf("first enqueue: id=%q deduped=%v err=%v", firstID, deduped, err)
	}

	secondID, deduped, err := queue.Enqueue(context.Background(), job)
	if err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	if !deduped || secondID != firstID {
		t.Fatalf("expected dedup against active job, got id=%q deduped=%v", secondID, deduped)
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := queue.AwaitOutcome(ctx, firstID); err != nil {
		t.Fatalf("await outcome: %v", err)
	}

	// Finished identities are free for a fresh run.
	thirdID, deduped, err := queue.Enqueue(context.Background(), job)
	if err != nil {
		t.Fatalf("third enqueue: %v", err)
	}
	if deduped || thirdID != firstID {
		t.Fatalf("expected rerun of finished identity, got id=%q deduped=%v", thirdID, deduped)
	}
}

func TestQueue_TournamentScopedIdentity(t *testing.T) {
	t.Parallel()

	queue, err := NewQueue(testConfig(), func(ctx context.Context, job jobs.Descriptor) error {
		return nil
	})
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	defer func() { _ = queue.Stop(context.Background()) }()

	tournamentID := int64(12)
	job := jobs.Descriptor{Kind: jobs.KindExplain, GameweekID: 4, Source: jobs.SourceCascade, TournamentID: &tournamentID}
	jobID, _, err := queue.Enqueue(context.Background(), job)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if jobID != "explain:4:t12" {
		t.Fatalf("unexpected tournament-scoped id %q", jobID)
	}
}

func TestQueue_RetriesThenCompletes(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	queue, err := NewQueue(testConfig(), func(ctx context.Context, job jobs.Descriptor) error {
		if calls.Add(1) < 3 {
			return fmt.Errorf("transient failure")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	defer func() { _ = queue.Stop(context.Background()) }()

	jobID, _, err := queue.Enqueue(context.Background(), jobs.Descriptor{Kind: jobs.KindLiveCache, GameweekID: 2, Source: jobs.SourceScheduled})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	outcome, err := queue.AwaitOutcome(ctx, jobID)
	if err != nil {
		t.Fatalf("await outcome: %v", err)
	}
	if outcome.Status != StatusCompleted {
		t.Fatalf("expected completed after retries, got=%s err=%v", outcome.Status, outcome.Err)
	}
	if outcome.Attempts != 3 {
		t.Fatalf("expected three attempts, got=%d", outcome.Attempts)
	}
}

func TestQueue_ExhaustedAttemptsGoDead(t *testing.T) {
	t.Parallel()

	handlerErr := fmt.Errorf("provider is down")
	queue, err := NewQueue(testConfig(), func(ctx context.Context, job jobs.Descriptor) error {
		return handlerErr
	})
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	defer func() { _ = queue.Stop(context.Background()) }()

	jobID, _, err := queue.Enqueue(context.Background(), jobs.Descriptor{Kind: jobs.KindOverallResult, GameweekID: 9, Source: jobs.SourceCascade})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	outcome, err := queue.AwaitOutcome(ctx, jobID)
	if err != nil {
		t.Fatalf("await outcome: %v", err)
	}
	if outcome.Status != StatusDead {
		t.Fatalf("expected dead, got=%s", outcome.Status)
	}
	if outcome.Attempts != 3 {
		t.Fatalf("expected all attempts spent, got=%d", outcome.Attempts)
	}
	if !errors.Is(outcome.Err, handlerErr) {
		t.Fatalf("expected handler error preserved, got=%v", outcome.Err)
	}

	transitions := queue.History(0)
	var sawDead, sawFailed bool
	for _, item := range transitions {
		if item.JobID != jobID {
			continue
		}
		switch item.Status {
		case StatusDead:
			sawDead = true
		case StatusFailed:
			sawFailed = true
		}
	}
	if !sawDead || !sawFailed {
		t.Fatalf("expected failed and dead transitions in history, got=%+v", transitions)
	}
}

func TestQueue_HandlerPanicIsAnAttemptFailure(t *testing.T) {
	t.Parallel()

	queue, err := NewQueue(testConfig(), func(ctx context.Context, job jobs.Descriptor) error {
		panic("boom")
	})
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	defer func() { _ = queue.Stop(context.Background()) }()

	jobID, _, err := queue.Enqueue(context.Background(), jobs.Descriptor{Kind: jobs.KindSummary, GameweekID: 1, Source: jobs.SourceManual})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	outcome, err := queue.AwaitOutcome(ctx, jobID)
	if err != nil {
		t.Fatalf("await outcome: %v", err)
	}
	if outcome.Status != StatusDead {
		t.Fatalf("expected dead after repeated panics, got=%s", outcome.Status)
	}
	if outcome.Err == nil {
		t.Fatalf("expected panic converted into an error")
	}
}

func TestQueue_AwaitOutcomeUnknownJob(t *testing.T) {
	t.Parallel()

	queue, err := NewQueue(testConfig(), func(ctx context.Context, job jobs.Descriptor) error {
		return nil
	})
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	defer func() { _ = queue.Stop(context.Background()) }()

	_, err = queue.AwaitOutcome(context.Background(), "summary:404")
	if !errors.Is(err, usecase.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got=%v", err)
	}
}

func TestQueue_EnqueueValidatesDescriptor(t *testing.T) {
	t.Parallel()

	queue, err := NewQueue(testConfig(), func(ctx context.Context, job jobs.Descriptor) error {
		return nil
	})
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	defer func() { _ = queue.Stop(context.Background()) }()

	_, _, err = queue.Enqueue(context.Background(), jobs.Descriptor{Kind: "reshuffle", GameweekID: 1, Source: jobs.SourceManual})
	if !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown kind, got=%v", err)
	}

	_, _, err = queue.Enqueue(context.Background(), jobs.Descriptor{Kind: jobs.KindSummary, GameweekID: 0, Source: jobs.SourceManual})
	if !errors.Is(err, usecase.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for non-positive gameweek, got=%v", err)
	}
}

func TestQueue_HandlerCanEnqueueWhileHoldingTheOnlyWorker(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Workers = 1

	release := make(chan struct{})
	enqueued := make(chan error, 1)

	var queue *Queue
	queue, err := NewQueue(cfg, func(ctx context.Context, job jobs.Descriptor) error {
		if job.Kind != jobs.KindLiveDB {
			return nil
		}
		_, _, enqueueErr := queue.Enqueue(context.Background(), jobs.Descriptor{Kind: jobs.KindSummary, GameweekID: job.GameweekID, Source: jobs.SourceCascade})
		enqueued <- enqueueErr
		<-release
		return nil
	})
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	defer func() { _ = queue.Stop(context.Background()) }()

	liveID, _, err := queue.Enqueue(context.Background(), jobs.Descriptor{Kind: jobs.KindLiveDB, GameweekID: 5, Source: jobs.SourceScheduled})
	if err != nil {
		t.Fatalf("enqueue live job: %v", err)
	}

	// The follow-up enqueue must return while the only worker is still
	// busy with the job that issued it.
	select {
	case enqueueErr := <-enqueued:
		if enqueueErr != nil {
			t.Fatalf("enqueue from handler: %v", enqueueErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("enqueue from handler blocked on a full worker pool")
	}
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if outcome, err := queue.AwaitOutcome(ctx, liveID); err != nil || outcome.Status != StatusCompleted {
		t.Fatalf("live job outcome: status=%v err=%v", outcome.Status, err)
	}
	if outcome, err := queue.AwaitOutcome(ctx, "summary:5"); err != nil || outcome.Status != StatusCompleted {
		t.Fatalf("follow-up job outcome: status=%v err=%v", outcome.Status, err)
	}
}

func TestQueue_SubscribeReceivesTerminalOutcomes(t *testing.T) {
	t.Parallel()

	queue, err := NewQueue(testConfig(), func(ctx context.Context, job jobs.Descriptor) error {
		return nil
	})
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	defer func() { _ = queue.Stop(context.Background()) }()

	events, cancelSub := queue.Subscribe()
	defer cancelSub()

	jobID, _, err := queue.Enqueue(context.Background(), jobs.Descriptor{Kind: jobs.KindLiveDB, GameweekID: 3, Source: jobs.SourceScheduled})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case outcome := <-events:
		if outcome.JobID != jobID || outcome.Status != StatusCompleted {
			t.Fatalf("unexpected outcome event: %+v", outcome)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for outcome event")
	}
}

func TestQueue_ObserverSeesEveryTransition(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	statuses := make([]Status, 0, 4)

	cfg := testConfig()
	cfg.Observer = func(ctx context.Context, transition Transition) {
		mu.Lock()
		statuses = append(statuses, transition.Status)
		mu.Unlock()
	}

	queue, err := NewQueue(cfg, func(ctx context.Context, job jobs.Descriptor) error {
		return nil
	})
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}
	defer func() { _ = queue.Stop(context.Background()) }()

	jobID, _, err := queue.Enqueue(context.Background(), jobs.Descriptor{Kind: jobs.KindExplain, GameweekID: 6, Source: jobs.SourceCascade})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := queue.AwaitOutcome(ctx, jobID); err != nil {
		t.Fatalf("await outcome: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(statuses) != 3 {
		t.Fatalf("expected queued, active and completed transitions, got=%v", statuses)
	}
	if statuses[0] != StatusQueued || statuses[1] != StatusActive || statuses[2] != StatusCompleted {
		t.Fatalf("unexpected transition order: %v", statuses)
	}
}
