// Package cluster groups dangling wikilink targets by textual similarity so
// near-duplicate or typo'd targets can be suggested as repairs. Membership
// is the transitive closure of pairwise threshold edges over a union-find:
// two members of one cluster may individually score below the threshold if
// connected through an intermediate member. That behaviour is deliberate.
package cluster

import (
	"fmt"
	"sort"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/similarity"
)

// Defaults for clustering options.
const (
	DefaultThreshold      = similarity.DefaultThreshold
	DefaultMinClusterSize = 2
	DefaultMaxResults     = 50
	// DefaultMaxTargets caps the O(n²) pairwise scoring for interactive
	// use. Larger vaults must raise the limit explicitly.
	DefaultMaxTargets = 2000
)

// Options bounds one clustering run.
type Options struct {
	Threshold      float64
	MinClusterSize int
	MaxResults     int
	// MaxTargets guards the quadratic hot path; clustering refuses input
	// above it. Zero means DefaultMaxTargets.
	MaxTargets int
}

func (o *Options) normalize() {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MinClusterSize <= 0 {
		o.MinClusterSize = DefaultMinClusterSize
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.MaxTargets <= 0 {
		o.MaxTargets = DefaultMaxTargets
	}
}

// Member is one dangling target inside a cluster, scored against the
// cluster representative (the representative itself scores 1).
type Member struct {
	Target     string                 `json:"target"`
	Similarity float64                `json:"similarity"`
	Sources    []graph.DanglingSource `json:"sources"`
}

// Cluster is a group of similar dangling targets with a chosen
// representative.
type Cluster struct {
	ID                string   `json:"id"`
	Representative    string   `json:"representativeTarget"`
	Members           []Member `json:"members"`
	TotalOccurrences  int      `json:"totalOccurrences"`
	AverageSimilarity float64  `json:"averageSimilarity"`
}

type pairKey struct{ a, b int }

// Dangling clusters the given dangling links. Pairwise composite scores
// are computed once, cached, and reused both for union decisions and for
// post-hoc member-to-representative scoring. Clusters are sorted by total
// occurrences descending and truncated to MaxResults.
func Dangling(links []graph.DanglingLink, opts Options) ([]Cluster, error) {
	opts.normalize()

	if len(links) > opts.MaxTargets {
		return nil, fmt.Errorf("%w: %d targets (limit %d)", apperr.ErrTooManyTargets, len(links), opts.MaxTargets)
	}
	if len(links) < 2 {
		return []Cluster{}, nil
	}

	// Dense IDs in sorted-target order keep every downstream step
	// independent of the caller's slice order.
	ordered := make([]graph.DanglingLink, len(links))
	copy(ordered, links)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Target < ordered[j].Target })

	uf := newUnionFind(len(ordered))
	scores := make(map[pairKey]float64)
	score := func(i, j int) float64 {
		if i > j {
			i, j = j, i
		}
		key := pairKey{i, j}
		if s, ok := scores[key]; ok {
			return s
		}
		s := similarity.Score(ordered[i].Target, ordered[j].Target).Score
		scores[key] = s
		return s
	}

	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if score(i, j) >= opts.Threshold {
				uf.union(i, j)
			}
		}
	}

	var clusters []Cluster
	for _, group := range uf.groups() {
		if len(group) < opts.MinClusterSize {
			continue
		}
		c, ok := buildCluster(ordered, group, score)
		if !ok {
			continue
		}
		clusters = append(clusters, c)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].TotalOccurrences != clusters[j].TotalOccurrences {
			return clusters[i].TotalOccurrences > clusters[j].TotalOccurrences
		}
		return clusters[i].Representative < clusters[j].Representative
	})
	if len(clusters) > opts.MaxResults {
		clusters = clusters[:opts.MaxResults]
	}
	for i := range clusters {
		clusters[i].ID = fmt.Sprintf("cluster-%d", i+1)
	}
	return clusters, nil
}

// buildCluster selects the representative of one component and scores the
// remaining members against it.
func buildCluster(ordered []graph.DanglingLink, group []int, score func(i, j int) float64) (Cluster, bool) {
	if len(group) == 0 {
		return Cluster{}, false
	}

	// Representative: most total occurrences, then most sources, then
	// alphabetical.
	repIdx := group[0]
	for _, id := range group[1:] {
		a, b := ordered[id], ordered[repIdx]
		switch {
		case a.Occurrences() != b.Occurrences():
			if a.Occurrences() > b.Occurrences() {
				repIdx = id
			}
		case len(a.Sources) != len(b.Sources):
			if len(a.Sources) > len(b.Sources) {
				repIdx = id
			}
		case a.Target < b.Target:
			repIdx = id
		}
	}

	c := Cluster{Representative: ordered[repIdx].Target}
	simSum := 0.0
	for _, id := range group {
		m := Member{
			Target:  ordered[id].Target,
			Sources: ordered[id].Sources,
		}
		if id == repIdx {
			m.Similarity = 1.0
		} else {
			m.Similarity = score(id, repIdx)
			simSum += m.Similarity
		}
		c.TotalOccurrences += ordered[id].Occurrences()
		c.Members = append(c.Members, m)
	}

	if len(group) > 1 {
		c.AverageSimilarity = simSum / float64(len(group)-1)
	} else {
		c.AverageSimilarity = 1.0
	}

	// Representative first, then by similarity to it descending.
	sort.SliceStable(c.Members, func(i, j int) bool {
		if c.Members[i].Target == c.Representative {
			return c.Members[j].Target != c.Representative
		}
		if c.Members[j].Target == c.Representative {
			return false
		}
		return c.Members[i].Similarity > c.Members[j].Similarity
	})
	return c, true
}

// SimilarLink is one dangling link scored against a query target.
type SimilarLink struct {
	Link       graph.DanglingLink `json:"danglingLink"`
	Similarity float64            `json:"similarity"`
}

// FindSimilar linearly scans danglingLinks for targets scoring at least
// threshold against target, sorted by similarity descending. Independent
// of clustering.
func FindSimilar(target string, links []graph.DanglingLink, threshold float64) []SimilarLink {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	var out []SimilarLink
	for _, l := range links {
		if l.Target == target {
			continue
		}
		if s := similarity.Score(target, l.Target).Score; s >= threshold {
			out = append(out, SimilarLink{Link: l, Similarity: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out
}
