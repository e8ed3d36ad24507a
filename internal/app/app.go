package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/matchpulse/livesync/external/statsfeed"
	"github.com/matchpulse/livesync/internal/config"
	"github.com/matchpulse/livesync/internal/domain/jobs"
	"github.com/matchpulse/livesync/internal/domain/player"
	"github.com/matchpulse/livesync/internal/infrastructure/jobqueue"
	cacherepo "github.com/matchpulse/livesync/internal/infrastructure/repository/cache"
	"github.com/matchpulse/livesync/internal/infrastructure/repository/postgres"
	"github.com/matchpulse/livesync/internal/interfaces/httpapi"
	"github.com/matchpulse/livesync/internal/platform/cache"
	"github.com/matchpulse/livesync/internal/platform/logging"
	"github.com/matchpulse/livesync/internal/platform/resilience"
	"github.com/matchpulse/livesync/internal/usecase"
)

// App owns every long-lived component and their shutdown order.
type App struct {
	Server *http.Server

	cfg       config.Config
	logger    *logging.Logger
	db        *sqlx.DB
	cache     *cache.Store
	queue     *jobqueue.Queue
	scheduler *scheduler
}

// queueAdapter bridges the infrastructure queue to the interface the
// use cases consume. The queue itself depends on usecase for error
// sentinels, so the orchestrator cannot hold it directly.
type queueAdapter struct {
	queue *jobqueue.Queue
}

func (a *queueAdapter) Enqueue(ctx context.Context, job jobs.Descriptor) (string, bool, error) {
	return a.queue.Enqueue(ctx, job)
}

func (a *queueAdapter) AwaitOutcome(ctx context.Context, jobID string) (usecase.JobOutcome, error) {
	outcome, err := a.queue.AwaitOutcome(ctx, jobID)
	if err != nil {
		return usecase.JobOutcome{}, err
	}
	return usecase.JobOutcome{
		JobID:     outcome.JobID,
		Completed: outcome.Status == jobqueue.StatusCompleted,
		Attempts:  outcome.Attempts,
		Err:       outcome.Err,
	}, nil
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	db, err := otelsqlx.Open("postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := cache.NewStore(cfg.LiveCacheTTL)

	liveRepo := postgres.NewLiveStatRepository(db)
	explainRepo := postgres.NewExplainRepository(db)
	summaryRepo := postgres.NewSummaryRepository(db)
	resultRepo := postgres.NewGameweekResultRepository(db)
	auditRepo := postgres.NewJobAuditRepository(db)

	var playerRepo player.Repository = postgres.NewPlayerRepository(db)
	if cfg.CacheEnabled {
		playerRepo = cacherepo.NewPlayerRepository(playerRepo, store, cfg.PlayerCacheTTL)
	}

	provider, err := statsfeed.NewClient(statsfeed.ClientConfig{
		BaseURL:    cfg.StatsfeedBaseURL,
		Token:      cfg.StatsfeedToken,
		Timeout:    cfg.StatsfeedTimeout,
		MaxRetries: cfg.StatsfeedMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.StatsfeedCircuitEnabled,
			FailureThreshold: cfg.StatsfeedCircuitFailureCount,
			OpenTimeout:      cfg.StatsfeedCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.StatsfeedCircuitHalfOpenMaxReq,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build statsfeed client: %w", err)
	}

	liveSync := usecase.NewLiveSyncService(provider, liveRepo, explainRepo, store, cfg.LiveCacheTTL)
	explainSync := usecase.NewExplainSyncService(provider, explainRepo, store, cfg.AggregateCacheTTL)
	summaries := usecase.NewSummaryService(liveRepo, playerRepo, summaryRepo, store, cfg.AggregateCacheTTL)
	results := usecase.NewGameweekResultService(liveRepo, resultRepo, store, cfg.AggregateCacheTTL)

	adapter := &queueAdapter{}
	cascade := usecase.NewCascadeOrchestrator(adapter, logger, cfg.CascadeAwaitTimeout)
	runner := usecase.NewJobRunnerService(liveSync, explainSync, summaries, results, cascade, auditRepo, logger)

	queue, err := jobqueue.NewQueue(jobqueue.Config{
		Workers:        cfg.QueueWorkers,
		MaxAttempts:    cfg.QueueMaxAttempts,
		AttemptTimeout: cfg.QueueAttemptTimeout,
		BaseBackoff:    cfg.QueueBaseBackoff,
		MaxBackoff:     cfg.QueueMaxBackoff,
		HistorySize:    cfg.QueueHistorySize,
		Logger:         logger,
		Observer: func(ctx context.Context, transition jobqueue.Transition) {
			runner.RecordTransition(ctx, usecase.JobTransition{
				JobID:      transition.JobID,
				Kind:       transition.Job.Kind,
				GameweekID: transition.Job.GameweekID,
				Source:     transition.Job.Source,
				Status:     string(transition.Status),
				Attempt:    transition.Attempt,
				Err:        transition.Err,
				At:         transition.At,
			})
		},
	}, runner.Handle)
	if err != nil {
		return nil, fmt.Errorf("build job queue: %w", err)
	}
	adapter.queue = queue

	handler := httpapi.NewHandler(liveSync, explainSync, summaries, results, runner, adapter, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	app := &App{
		Server: server,
		cfg:    cfg,
		logger: logger,
		db:     db,
		cache:  store,
		queue:  queue,
	}
	if cfg.SchedulerEnabled {
		app.scheduler = newScheduler(adapter, cfg.SchedulerGameweek, cfg.JobLiveCacheInterval, cfg.JobLiveSyncInterval, logger)
	}

	return app, nil
}

// Start launches background components. The HTTP server itself is
// started by the caller so it can own the listen error.
func (a *App) Start() {
	if a.scheduler != nil {
		a.scheduler.Start()
	}
}

// Shutdown stops background work before releasing connections: the
// scheduler first so nothing new is enqueued, then the queue drains
// in-flight jobs, then pending cache writes, then the database.
func (a *App) Shutdown(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if err := a.queue.Stop(ctx); err != nil {
		a.logger.WarnContext(ctx, "job queue stop", "error", err)
	}
	a.cache.WaitPending()

	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
