package graph

import "sort"

// PageRank defaults, standard power-iteration parameters.
const (
	DefaultDamping       = 0.85
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-6
)

// PageRankOptions configures the power iteration.
type PageRankOptions struct {
	Damping       float64
	MaxIterations int
	// Tolerance is the L1 delta between iterations below which the
	// iteration is considered converged.
	Tolerance float64
}

func (o *PageRankOptions) normalize() {
	if o.Damping <= 0 || o.Damping >= 1 {
		o.Damping = DefaultDamping
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
}

// PageRankResult holds per-title importance scores normalised to [0, 1].
type PageRankResult struct {
	Scores     map[string]float64 `json:"scores"`
	Iterations int                `json:"iterations"`
	Converged  bool               `json:"converged"`
}

// PageRank runs power iteration over the title graph derived from the
// analyzer's backlink map. It reads the stats without mutating them.
func PageRank(st *Stats, opts PageRankOptions) PageRankResult {
	opts.normalize()

	// Derive title-level edges: every backlink entry for title T is an
	// edge from its source title to T.
	nodeSet := make(map[string]struct{})
	outgoing := make(map[string][]string)
	for target, entries := range st.Backlinks {
		nodeSet[target] = struct{}{}
		for _, e := range entries {
			nodeSet[e.SourceTitle] = struct{}{}
			outgoing[e.SourceTitle] = append(outgoing[e.SourceTitle], target)
		}
	}

	nodes := make([]string, 0, len(nodeSet))
	for n := range nodeSet {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	result := PageRankResult{Scores: make(map[string]float64, len(nodes))}
	n := len(nodes)
	if n == 0 {
		result.Converged = true
		return result
	}

	rank := make(map[string]float64, n)
	for _, node := range nodes {
		rank[node] = 1.0 / float64(n)
	}

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		next := make(map[string]float64, n)
		base := (1.0 - opts.Damping) / float64(n)

		// Mass from nodes without outlinks is spread evenly.
		danglingMass := 0.0
		for _, node := range nodes {
			if len(outgoing[node]) == 0 {
				danglingMass += rank[node]
			}
		}
		share := opts.Damping * danglingMass / float64(n)

		for _, node := range nodes {
			next[node] = base + share
		}
		for source, targets := range outgoing {
			contribution := opts.Damping * rank[source] / float64(len(targets))
			for _, target := range targets {
				next[target] += contribution
			}
		}

		delta := 0.0
		for _, node := range nodes {
			d := next[node] - rank[node]
			if d < 0 {
				d = -d
			}
			delta += d
		}
		rank = next
		result.Iterations = iter
		if delta < opts.Tolerance {
			result.Converged = true
			break
		}
	}

	// Normalise to [0, 1] against the top score.
	maxScore := 0.0
	for _, v := range rank {
		if v > maxScore {
			maxScore = v
		}
	}
	for node, v := range rank {
		if maxScore > 0 {
			result.Scores[node] = v / maxScore
		} else {
			result.Scores[node] = 0
		}
	}
	return result
}
