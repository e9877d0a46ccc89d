// Package graphservice coordinates the analyzer, clusterer, and PageRank
// scoring behind one service consumed by the HTTP and MCP layers.
package graphservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/ansuz/internal/cache"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/cluster"
	"github.com/starford/ansuz/internal/graph"
)

// Config carries the per-vault analysis defaults from application config.
type Config struct {
	ContextLength int
	Cluster       cluster.Options
}

// Service owns the graph analyzer for one vault. Construct with New;
// no package-level state is shared between instances.
type Service struct {
	analyzer *graph.Service
	cfg      Config

	// clusters memoizes clustering results per dir, fingerprinted by the
	// dangling target set and the effective options. Clustering is the
	// quadratic part, so recomputing it on every call when nothing moved
	// would dominate request latency on large vaults.
	clusters *cache.SimpleCache[[]cluster.Cluster]
}

// New creates a graph service over an analyzer.
func New(analyzer *graph.Service, cfg Config) *Service {
	return &Service{
		analyzer: analyzer,
		cfg:      cfg,
		clusters: cache.NewSimple[[]cluster.Cluster](0),
	}
}

// clusterFingerprint hashes the dangling target set and the effective
// clustering options so any change to either busts the memo.
func clusterFingerprint(links []graph.DanglingLink, opts cluster.Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%.3f|%d|%d|%d", opts.Threshold, opts.MinClusterSize, opts.MaxResults, opts.MaxTargets)
	for _, l := range links {
		b.WriteByte('\n')
		b.WriteString(l.Target)
		fmt.Fprintf(&b, "=%d", l.Occurrences())
	}
	return checksum.Short([]byte(b.String()))
}

// Stats returns the full graph statistics for dir.
func (s *Service) Stats(_ context.Context, dir string) (*graph.Stats, error) {
	return s.analyzer.Analyze(dir, graph.Options{ContextLength: s.cfg.ContextLength})
}

// Quick returns the numeric-only projection for dashboards.
func (s *Service) Quick(_ context.Context, dir string) (graph.QuickStats, error) {
	return s.analyzer.Quick(dir)
}

// Backlinks returns the entries referencing title, normalised comparison.
func (s *Service) Backlinks(_ context.Context, dir, title string) ([]graph.BacklinkEntry, error) {
	return s.analyzer.BacklinksFor(dir, title)
}

// Dangling returns every unmatched wikilink target.
func (s *Service) Dangling(_ context.Context, dir string) ([]graph.DanglingLink, error) {
	return s.analyzer.DanglingLinks(dir)
}

// Orphans returns notes with neither incoming nor outgoing links.
func (s *Service) Orphans(_ context.Context, dir string) ([]string, error) {
	return s.analyzer.OrphanNotes(dir)
}

// Clusters groups the current dangling links by similarity. Zero-valued
// option fields fall back to the service defaults from config.
func (s *Service) Clusters(ctx context.Context, dir string, opts cluster.Options) ([]cluster.Cluster, error) {
	links, err := s.Dangling(ctx, dir)
	if err != nil {
		return nil, err
	}
	merged := s.cfg.Cluster
	if opts.Threshold > 0 {
		merged.Threshold = opts.Threshold
	}
	if opts.MinClusterSize > 0 {
		merged.MinClusterSize = opts.MinClusterSize
	}
	if opts.MaxResults > 0 {
		merged.MaxResults = opts.MaxResults
	}

	fp := clusterFingerprint(links, merged)
	if cached, ok := s.clusters.Get("clusters", dir, fp); ok {
		return cached, nil
	}
	out, err := cluster.Dangling(links, merged)
	if err != nil {
		return nil, err
	}
	s.clusters.Set("clusters", dir, out, fp)
	return out, nil
}

// SimilarDangling scores dangling links against one query target.
func (s *Service) SimilarDangling(ctx context.Context, dir, target string, threshold float64) ([]cluster.SimilarLink, error) {
	links, err := s.Dangling(ctx, dir)
	if err != nil {
		return nil, err
	}
	return cluster.FindSimilar(target, links, threshold), nil
}

// PageRank scores note importance over the current graph.
func (s *Service) PageRank(ctx context.Context, dir string, opts graph.PageRankOptions) (graph.PageRankResult, error) {
	st, err := s.Stats(ctx, dir)
	if err != nil {
		return graph.PageRankResult{}, err
	}
	return graph.PageRank(st, opts), nil
}

// Refresh busts the cached stats and cluster memo for dir.
func (s *Service) Refresh(_ context.Context, dir string) {
	s.analyzer.Invalidate(dir)
	s.clusters.Invalidate("clusters", dir)
}

// RefreshAll busts every cached analysis and cluster memo, across all
// directory scopes. Used when files are created or removed and the set of
// affected directories is unknown.
func (s *Service) RefreshAll(_ context.Context) {
	s.analyzer.InvalidateAll()
	s.clusters.Clear()
}

// InvalidateFile drops cached entries depending on an absolute file path.
func (s *Service) InvalidateFile(path string) []string {
	return s.analyzer.InvalidateFile(path)
}

// CacheStats exposes analyzer cache occupancy.
func (s *Service) CacheStats(_ context.Context) cache.Stats {
	return s.analyzer.CacheStats()
}
