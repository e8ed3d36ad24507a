package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/gameweeks/{gameweekID}/live", handler.ListGameweekLive)
	mux.HandleFunc("GET /v1/gameweeks/{gameweekID}/explain", handler.ListGameweekExplain)
	mux.HandleFunc("GET /v1/gameweeks/{gameweekID}/result", handler.GetGameweekResult)
	mux.HandleFunc("GET /v1/summaries", handler.ListPlayerSummaries)
	mux.HandleFunc("GET /v1/summaries/{playerID}", handler.GetPlayerSummary)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/sync-live", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunLiveSyncJob)))
	mux.Handle("POST /v1/internal/jobs/sync-live-cache", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunLiveCacheSyncJob)))
	mux.Handle("POST /v1/internal/jobs/recompute-summaries", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSummaryRecomputeJob)))
	mux.Handle("POST /v1/internal/jobs/recompute-explain", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunExplainRecomputeJob)))
	mux.Handle("POST /v1/internal/jobs/recompute-result", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunResultRecomputeJob)))
	mux.Handle("POST /v1/internal/cache/clear-live", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ClearLiveCache)))
	mux.Handle("GET /v1/internal/jobs/history", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ListJobHistory)))
}
