package app

import (
	"context"
	"time"

	"github.com/matchpulse/livesync/internal/domain/jobs"
	"github.com/matchpulse/livesync/internal/platform/logging"
	"github.com/matchpulse/livesync/internal/usecase"
)

// scheduler enqueues the recurring live work for the configured
// gameweek: the cache-only fast path on a short interval and the
// durable path (which cascades) on a longer one. Deduplication in the
// queue makes an overlapping tick a no-op.
type scheduler struct {
	queue         usecase.JobQueue
	gameweekID    int
	cacheInterval time.Duration
	syncInterval  time.Duration
	logger        *logging.Logger
	stop          chan struct{}
	done          chan struct{}
}

func newScheduler(queue usecase.JobQueue, gameweekID int, cacheInterval, syncInterval time.Duration, logger *logging.Logger) *scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &scheduler{
		queue:         queue,
		gameweekID:    gameweekID,
		cacheInterval: cacheInterval,
		syncInterval:  syncInterval,
		logger:        logger,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

func (s *scheduler) Start() {
	go s.run()
}

func (s *scheduler) Stop() {
	close(s.stop)
	<-s.done
}

func (s *scheduler) run() {
	defer close(s.done)

	cacheTicker := time.NewTicker(s.cacheInterval)
	defer cacheTicker.Stop()
	syncTicker := time.NewTicker(s.syncInterval)
	defer syncTicker.Stop()

	s.logger.Info("scheduler started",
		"gameweek_id", s.gameweekID,
		"cache_interval", s.cacheInterval.String(),
		"sync_interval", s.syncInterval.String(),
	)

	for {
		select {
		case <-s.stop:
			s.logger.Info("scheduler stopped")
			return
		case <-cacheTicker.C:
			s.enqueue(jobs.KindLiveCache)
		case <-syncTicker.C:
			s.enqueue(jobs.KindLiveDB)
		}
	}
}

func (s *scheduler) enqueue(kind jobs.Kind) {
	ctx := context.Background()
	jobID, deduped, err := s.queue.Enqueue(ctx, jobs.Descriptor{
		Kind:       kind,
		GameweekID: s.gameweekID,
		Source:     jobs.SourceScheduled,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "scheduled enqueue failed", "kind", string(kind), "gameweek_id", s.gameweekID, "error", err)
		return
	}
	if deduped {
		s.logger.DebugContext(ctx, "scheduled job already pending", "job_id", jobID)
		return
	}
	s.logger.DebugContext(ctx, "scheduled job enqueued", "job_id", jobID)
}
