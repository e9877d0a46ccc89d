package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/cluster"
	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/graphservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *graphservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *graphservice.Service) *Handler {
	return &Handler{svc: svc}
}

// dirParam extracts the optional vault subdirectory filter. Empty string
// means the whole vault.
func dirParam(r *http.Request) string {
	return r.URL.Query().Get("dir")
}

// Stats handles GET /api/graph.
//
//	@Summary		Full graph analysis for the vault
//	@Tags			graph
//	@Produce		json
//	@Param			dir	query		string	false	"Vault subdirectory"
//	@Success		200	{object}	GraphStats
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), dirParam(r))
	if err != nil {
		slog.Error("graph stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Quick handles GET /api/graph/quick.
//
//	@Summary		Numeric-only graph summary
//	@Tags			graph
//	@Produce		json
//	@Param			dir	query		string	false	"Vault subdirectory"
//	@Success		200	{object}	GraphQuickStats
//	@Security		BearerAuth
//	@Router			/graph/quick [get]
func (h *Handler) Quick(w http.ResponseWriter, r *http.Request) {
	qs, err := h.svc.Quick(r.Context(), dirParam(r))
	if err != nil {
		slog.Error("quick stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

// Backlinks handles GET /api/graph/backlinks.
//
//	@Summary		Notes referencing the given title
//	@Tags			graph
//	@Produce		json
//	@Param			title	query		string	true	"Note title or filename"
//	@Param			dir		query		string	false	"Vault subdirectory"
//	@Success		200		{object}	BacklinksResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'title' is required"))
		return
	}
	entries, err := h.svc.Backlinks(r.Context(), dirParam(r), title)
	if err != nil {
		slog.Error("backlinks failed", slog.String("title", title), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if entries == nil {
		entries = []graph.BacklinkEntry{}
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Title: title, Backlinks: entries})
}

// Dangling handles GET /api/graph/dangling.
//
//	@Summary		Wikilink targets that resolve to no note
//	@Tags			graph
//	@Produce		json
//	@Param			dir	query		string	false	"Vault subdirectory"
//	@Success		200	{object}	DanglingResponse
//	@Security		BearerAuth
//	@Router			/graph/dangling [get]
func (h *Handler) Dangling(w http.ResponseWriter, r *http.Request) {
	links, err := h.svc.Dangling(r.Context(), dirParam(r))
	if err != nil {
		slog.Error("dangling links failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if links == nil {
		links = []graph.DanglingLink{}
	}
	writeJSON(w, http.StatusOK, DanglingResponse{Dangling: links, Total: len(links)})
}

// Orphans handles GET /api/graph/orphans.
//
//	@Summary		Notes with no incoming or outgoing links
//	@Tags			graph
//	@Produce		json
//	@Param			dir	query		string	false	"Vault subdirectory"
//	@Success		200	{object}	OrphansResponse
//	@Security		BearerAuth
//	@Router			/graph/orphans [get]
func (h *Handler) Orphans(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.svc.Orphans(r.Context(), dirParam(r))
	if err != nil {
		slog.Error("orphan notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if orphans == nil {
		orphans = []string{}
	}
	writeJSON(w, http.StatusOK, OrphansResponse{Orphans: orphans, Total: len(orphans)})
}

// Clusters handles GET /api/graph/clusters.
//
//	@Summary		Group similar dangling targets into clusters
//	@Tags			graph
//	@Produce		json
//	@Param			dir			query		string	false	"Vault subdirectory"
//	@Param			threshold	query		number	false	"Similarity threshold (0..1)"
//	@Param			minSize		query		int		false	"Minimum cluster size"
//	@Param			maxResults	query		int		false	"Maximum clusters returned"
//	@Success		200			{object}	ClustersResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph/clusters [get]
func (h *Handler) Clusters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var opts cluster.Options
	if v, err := strconv.ParseFloat(q.Get("threshold"), 64); err == nil {
		opts.Threshold = v
	}
	if v, err := strconv.Atoi(q.Get("minSize")); err == nil {
		opts.MinClusterSize = v
	}
	if v, err := strconv.Atoi(q.Get("maxResults")); err == nil {
		opts.MaxResults = v
	}

	clusters, err := h.svc.Clusters(r.Context(), dirParam(r), opts)
	if err != nil {
		if errors.Is(err, apperr.ErrTooManyTargets) {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody("too many dangling targets to cluster"))
			return
		}
		slog.Error("clustering failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if clusters == nil {
		clusters = []cluster.Cluster{}
	}
	writeJSON(w, http.StatusOK, ClustersResponse{Clusters: clusters, Total: len(clusters)})
}

// Similar handles GET /api/graph/similar.
//
//	@Summary		Dangling targets similar to one query string
//	@Tags			graph
//	@Produce		json
//	@Param			target		query		string	true	"Query target"
//	@Param			threshold	query		number	false	"Similarity threshold (0..1)"
//	@Param			dir			query		string	false	"Vault subdirectory"
//	@Success		200			{object}	SimilarResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph/similar [get]
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'target' is required"))
		return
	}
	threshold, _ := strconv.ParseFloat(r.URL.Query().Get("threshold"), 64)

	matches, err := h.svc.SimilarDangling(r.Context(), dirParam(r), target, threshold)
	if err != nil {
		slog.Error("similar dangling failed", slog.String("target", target), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if matches == nil {
		matches = []cluster.SimilarLink{}
	}
	writeJSON(w, http.StatusOK, SimilarResponse{Target: target, Matches: matches})
}

// PageRank handles GET /api/graph/pagerank.
//
//	@Summary		Note importance scores via power iteration
//	@Tags			graph
//	@Produce		json
//	@Param			dir				query		string	false	"Vault subdirectory"
//	@Param			damping			query		number	false	"Damping factor (default 0.85)"
//	@Param			maxIterations	query		int		false	"Iteration cap (default 100)"
//	@Success		200				{object}	PageRankResponse
//	@Security		BearerAuth
//	@Router			/graph/pagerank [get]
func (h *Handler) PageRank(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var opts graph.PageRankOptions
	if v, err := strconv.ParseFloat(q.Get("damping"), 64); err == nil {
		opts.Damping = v
	}
	if v, err := strconv.Atoi(q.Get("maxIterations")); err == nil {
		opts.MaxIterations = v
	}

	res, err := h.svc.PageRank(r.Context(), dirParam(r), opts)
	if err != nil {
		slog.Error("pagerank failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, PageRankResponse{
		Scores:     res.Scores,
		Iterations: res.Iterations,
		Converged:  res.Converged,
	})
}

// Refresh handles POST /api/graph/refresh.
//
//	@Summary		Discard cached analysis for the vault
//	@Tags			graph
//	@Produce		json
//	@Param			dir	query		string	false	"Vault subdirectory"
//	@Success		200	{object}	RefreshResponse
//	@Security		BearerAuth
//	@Router			/graph/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.svc.Refresh(r.Context(), dirParam(r))
	writeJSON(w, http.StatusOK, RefreshResponse{Status: "refreshed"})
}

// CacheStats handles GET /api/cache/stats.
//
//	@Summary		Analyzer cache occupancy
//	@Tags			cache
//	@Produce		json
//	@Success		200	{object}	CacheStatsResponse
//	@Security		BearerAuth
//	@Router			/cache/stats [get]
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.CacheStats(r.Context()))
}
