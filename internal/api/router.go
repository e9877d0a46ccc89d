package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/ansuz/internal/graphservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *graphservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Graph analysis.
	r.Get("/graph", h.Stats)
	r.Get("/graph/quick", h.Quick)
	r.Get("/graph/backlinks", h.Backlinks)
	r.Get("/graph/dangling", h.Dangling)
	r.Get("/graph/orphans", h.Orphans)
	r.Get("/graph/clusters", h.Clusters)
	r.Get("/graph/similar", h.Similar)
	r.Get("/graph/pagerank", h.PageRank)
	r.Post("/graph/refresh", h.Refresh)

	// Cache introspection.
	r.Get("/cache/stats", h.CacheStats)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
