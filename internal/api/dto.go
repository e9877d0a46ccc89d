package api

import (
	"github.com/starford/ansuz/internal/cache"
	"github.com/starford/ansuz/internal/cluster"
	"github.com/starford/ansuz/internal/graph"
)

// GraphStats is the full graph analysis payload (aliased from the domain layer).
type GraphStats = graph.Stats

// GraphQuickStats is the numeric-only projection (aliased from the domain layer).
type GraphQuickStats = graph.QuickStats

// BacklinksResponse wraps the backlink entries for one queried title.
type BacklinksResponse struct {
	Title     string                `json:"title" example:"Daily Note" validate:"required"`
	Backlinks []graph.BacklinkEntry `json:"backlinks" validate:"required"`
}

// DanglingResponse wraps the dangling link report.
type DanglingResponse struct {
	Dangling []graph.DanglingLink `json:"dangling" validate:"required"`
	Total    int                  `json:"total" example:"7" validate:"required"`
}

// OrphansResponse wraps the orphan note listing.
type OrphansResponse struct {
	Orphans []string `json:"orphans" validate:"required"`
	Total   int      `json:"total" example:"3" validate:"required"`
}

// ClustersResponse wraps dangling link clusters.
type ClustersResponse struct {
	Clusters []cluster.Cluster `json:"clusters" validate:"required"`
	Total    int               `json:"total" example:"2" validate:"required"`
}

// SimilarResponse wraps similarity matches for one query target.
type SimilarResponse struct {
	Target  string                `json:"target" example:"Dayly Note" validate:"required"`
	Matches []cluster.SimilarLink `json:"matches" validate:"required"`
}

// PageRankResponse wraps note importance scores.
type PageRankResponse struct {
	Scores     map[string]float64 `json:"scores" validate:"required"`
	Iterations int                `json:"iterations" example:"23" validate:"required"`
	Converged  bool               `json:"converged" example:"true" validate:"required"`
}

// RefreshResponse acknowledges a cache bust.
type RefreshResponse struct {
	Status string `json:"status" example:"refreshed" validate:"required"`
}

// CacheStatsResponse exposes analyzer cache occupancy.
type CacheStatsResponse = cache.Stats
