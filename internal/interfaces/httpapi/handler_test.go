package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/matchpulse/livesync/internal/domain/jobaudit"
	"github.com/matchpulse/livesync/internal/domain/jobs"
	"github.com/matchpulse/livesync/internal/domain/livestat"
	"github.com/matchpulse/livesync/internal/domain/player"
	"github.com/matchpulse/livesync/internal/domain/summary"
	"github.com/matchpulse/livesync/internal/platform/cache"
	"github.com/matchpulse/livesync/internal/platform/logging"
	"github.com/matchpulse/livesync/internal/usecase"
)

const testInternalJobToken = "test-internal-token"

type routerLiveStatRepo struct {
	rows []livestat.Record
}

func (r *routerLiveStatRepo) ListByGameweek(_ context.Context, gameweekID int) ([]livestat.Record, error) {
	out := make([]livestat.Record, 0)
	for _, row := range r.rows {
		if row.GameweekID == gameweekID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

func (r *routerLiveStatRepo) ListUpToGameweek(_ context.Context, gameweekID int) ([]livestat.Record, error) {
	out := make([]livestat.Record, 0)
	for _, row := range r.rows {
		if row.GameweekID <= gameweekID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *routerLiveStatRepo) BatchUpsert(_ context.Context, records []livestat.Record) error {
	r.rows = append(r.rows, records...)
	return nil
}

type routerSummaryRepo struct {
	rows []summary.Record
}

func (r *routerSummaryRepo) ListAll(_ context.Context) ([]summary.Record, error) {
	return append([]summary.Record(nil), r.rows...), nil
}

func (r *routerSummaryRepo) GetByPlayer(_ context.Context, playerID int64) (summary.Record, bool, error) {
	for _, row := range r.rows {
		if row.PlayerID == playerID {
			return row, true, nil
		}
	}
	return summary.Record{}, false, nil
}

func (r *routerSummaryRepo) ReplaceAll(_ context.Context, records []summary.Record) error {
	r.rows = append([]summary.Record(nil), records...)
	return nil
}

type routerJobQueue struct {
	enqueued []jobs.Descriptor
	active   map[string]bool
}

func (q *routerJobQueue) Enqueue(_ context.Context, job jobs.Descriptor) (string, bool, error) {
	if err := job.Validate(); err != nil {
		return "", false, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	id := job.DedupID()
	if q.active[id] {
		return id, true, nil
	}
	if q.active == nil {
		q.active = make(map[string]bool)
	}
	q.active[id] = true
	q.enqueued = append(q.enqueued, job)
	return id, false, nil
}

func (q *routerJobQueue) AwaitOutcome(_ context.Context, jobID string) (usecase.JobOutcome, error) {
	return usecase.JobOutcome{JobID: jobID, Completed: true, Attempts: 1}, nil
}

type routerAuditRepo struct {
	events []jobaudit.AttemptEvent
}

func (r *routerAuditRepo) UpsertEvent(_ context.Context, event jobaudit.AttemptEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *routerAuditRepo) ListRecent(_ context.Context, limit int) ([]jobaudit.AttemptEvent, error) {
	out := append([]jobaudit.AttemptEvent(nil), r.events...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type routerFixture struct {
	router    http.Handler
	liveRepo  *routerLiveStatRepo
	queue     *routerJobQueue
	auditRepo *routerAuditRepo
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	liveRepo := &routerLiveStatRepo{rows: []livestat.Record{
		{GameweekID: 5, PlayerID: 10, Minutes: 90, GoalsScored: 1, TotalPoints: 11},
		{GameweekID: 5, PlayerID: 11, Minutes: 60, CleanSheets: 1, TotalPoints: 6},
	}}
	summaryRepo := &routerSummaryRepo{rows: []summary.Record{
		{PlayerID: 10, TeamID: 3, PositionType: string(player.PositionMidfielder), TotalPoints: 24},
	}}
	queue := &routerJobQueue{}
	auditRepo := &routerAuditRepo{}

	store := cache.NewStore(time.Minute)
	liveSync := usecase.NewLiveSyncService(nil, liveRepo, nil, store, 0)
	summaries := usecase.NewSummaryService(liveRepo, nil, summaryRepo, store, 0)
	runner := usecase.NewJobRunnerService(liveSync, nil, summaries, nil, nil, auditRepo, logging.NewNop())

	handler := NewHandler(liveSync, nil, summaries, nil, runner, queue, logging.NewNop())
	router := NewRouter(handler, logging.NewNop(), nil, testInternalJobToken)

	return &routerFixture{router: router, liveRepo: liveRepo, queue: queue, auditRepo: auditRepo}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	return body
}

func TestRouter_ListGameweekLive(t *testing.T) {
	fixture := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/gameweeks/5/live", nil)
	rec := httptest.NewRecorder()
	fixture.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	items, ok := body["data"].([]any)
	if !ok {
		t.Fatalf("expected data array, got %T", body["data"])
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 live rows, got %d", len(items))
	}
	first, _ := items[0].(map[string]any)
	if got, _ := first["player_id"].(float64); got != 10 {
		t.Fatalf("expected first player 10, got %v", first["player_id"])
	}
}

func TestRouter_ListGameweekLive_BadGameweekID(t *testing.T) {
	fixture := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/gameweeks/zero/live", nil)
	rec := httptest.NewRecorder()
	fixture.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestRouter_GetPlayerSummary_NotFound(t *testing.T) {
	fixture := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/summaries/999", nil)
	rec := httptest.NewRecorder()
	fixture.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestRouter_InternalJobRequiresToken(t *testing.T) {
	fixture := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync-live", strings.NewReader(`{"gameweek_id":5}`))
	rec := httptest.NewRecorder()
	fixture.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
	if len(fixture.queue.enqueued) != 0 {
		t.Fatalf("expected no enqueued jobs, got %d", len(fixture.queue.enqueued))
	}
}

func TestRouter_RunLiveSyncJob_EnqueuesDurableJob(t *testing.T) {
	fixture := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync-live", strings.NewReader(`{"gameweek_id":5}`))
	req.Header.Set("X-Internal-Job-Token", testInternalJobToken)
	rec := httptest.NewRecorder()
	fixture.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if got, _ := data["job_id"].(string); got != "live-db:5" {
		t.Fatalf("expected job id live-db:5, got %v", data["job_id"])
	}
	if deduped, _ := data["deduped"].(bool); deduped {
		t.Fatalf("expected first enqueue to not dedup")
	}
	if len(fixture.queue.enqueued) != 1 || fixture.queue.enqueued[0].Kind != jobs.KindLiveDB {
		t.Fatalf("unexpected enqueued jobs: %+v", fixture.queue.enqueued)
	}
	if fixture.queue.enqueued[0].Source != jobs.SourceManual {
		t.Fatalf("expected manual source, got %q", fixture.queue.enqueued[0].Source)
	}
}

func TestRouter_RunLiveSyncJob_DedupReturnsOK(t *testing.T) {
	fixture := newRouterFixture(t)

	for i, wantStatus := range []int{http.StatusAccepted, http.StatusOK} {
		req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync-live", strings.NewReader(`{"gameweek_id":5}`))
		req.Header.Set("X-Internal-Job-Token", testInternalJobToken)
		rec := httptest.NewRecorder()
		fixture.router.ServeHTTP(rec, req)

		if rec.Code != wantStatus {
			t.Fatalf("request %d: expected status %d, got %d", i, wantStatus, rec.Code)
		}
	}
	if len(fixture.queue.enqueued) != 1 {
		t.Fatalf("expected a single enqueued job, got %d", len(fixture.queue.enqueued))
	}
}

func TestRouter_RunLiveSyncJob_RejectsMissingGameweek(t *testing.T) {
	fixture := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync-live", strings.NewReader(`{}`))
	req.Header.Set("X-Internal-Job-Token", testInternalJobToken)
	rec := httptest.NewRecorder()
	fixture.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestRouter_RunLiveSyncJob_RejectsUnknownFields(t *testing.T) {
	fixture := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/jobs/sync-live", strings.NewReader(`{"gameweek_id":5,"bogus":true}`))
	req.Header.Set("X-Internal-Job-Token", testInternalJobToken)
	rec := httptest.NewRecorder()
	fixture.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestRouter_ListJobHistory(t *testing.T) {
	fixture := newRouterFixture(t)
	fixture.auditRepo.events = []jobaudit.AttemptEvent{
		{JobID: "summary:5", Kind: "summary", GameweekID: 5, Source: "cascade", Status: jobaudit.StatusCompleted, Attempt: 1, OccurredAt: time.Now().UTC()},
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/internal/jobs/history?limit=10", nil)
	req.Header.Set("X-Internal-Job-Token", testInternalJobToken)
	rec := httptest.NewRecorder()
	fixture.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	items, _ := body["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one history event, got %d", len(items))
	}
	event, _ := items[0].(map[string]any)
	if got, _ := event["job_id"].(string); got != "summary:5" {
		t.Fatalf("expected job id summary:5, got %v", event["job_id"])
	}
}

func TestRouter_ClearLiveCache(t *testing.T) {
	fixture := newRouterFixture(t)

	// Warm the cache through the read path, then clear it.
	warm := httptest.NewRequest(http.MethodGet, "/v1/gameweeks/5/live", nil)
	fixture.router.ServeHTTP(httptest.NewRecorder(), warm)

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/cache/clear-live", strings.NewReader(`{"gameweek_id":5}`))
	req.Header.Set("X-Internal-Job-Token", testInternalJobToken)
	rec := httptest.NewRecorder()
	fixture.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeEnvelope(t, rec)
	data, _ := body["data"].(map[string]any)
	if cleared, _ := data["cleared"].(bool); !cleared {
		t.Fatalf("expected cleared=true, got %v", data["cleared"])
	}
}
