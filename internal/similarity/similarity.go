// Package similarity implements composite string similarity scoring used to
// group near-duplicate wikilink targets. Four independent measures
// (Jaro-Winkler, bigram Dice, token-overlap Jaccard, containment) are
// combined into one score with weights conditioned on containment strength.
package similarity

import "sort"

// DefaultThreshold is the score above which two strings are considered
// similar by the convenience wrappers.
const DefaultThreshold = 0.7

// Breakdown carries the four sub-scores plus the composite Score.
type Breakdown struct {
	JaroWinkler  float64 `json:"jaroWinkler"`
	Ngram        float64 `json:"ngram"`
	TokenOverlap float64 `json:"tokenOverlap"`
	Containment  float64 `json:"containment"`
	Score        float64 `json:"score"`
}

// Score computes all four measures between s1 and s2 and combines them.
// When containment is strong (> 0.5) it is weighted into the composite;
// otherwise only the three character/token measures contribute.
func Score(s1, s2 string) Breakdown {
	b := Breakdown{
		JaroWinkler:  JaroWinkler(s1, s2),
		Ngram:        Ngram(s1, s2, 2),
		TokenOverlap: TokenOverlap(s1, s2),
		Containment:  Containment(s1, s2),
	}
	if b.Containment > 0.5 {
		b.Score = 0.3*b.JaroWinkler + 0.2*b.Ngram + 0.2*b.TokenOverlap + 0.3*b.Containment
	} else {
		b.Score = 0.4*b.JaroWinkler + 0.3*b.Ngram + 0.3*b.TokenOverlap
	}
	return b
}

// IsSimilar reports whether the composite score of s1 and s2 meets
// threshold. A non-positive threshold falls back to DefaultThreshold.
func IsSimilar(s1, s2 string, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Score(s1, s2).Score >= threshold
}

// Pair is one scored string pair from FindSimilarPairs.
type Pair struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Score float64 `json:"score"`
}

// FindSimilarPairs scores every pair of strings and returns those meeting
// threshold, sorted by score descending. All-pairs, O(n²).
func FindSimilarPairs(strings []string, threshold float64) []Pair {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	var out []Pair
	for i := 0; i < len(strings); i++ {
		for j := i + 1; j < len(strings); j++ {
			if s := Score(strings[i], strings[j]).Score; s >= threshold {
				out = append(out, Pair{A: strings[i], B: strings[j], Score: s})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
