package similarity

import "strings"

// JaroWinkler returns the Jaro-Winkler similarity of s1 and s2 in [0, 1]:
// standard Jaro character matching within a window of max(len)/2-1 with
// transposition counting, plus a common-prefix bonus of up to four
// characters scaled by 0.1. Operates on runes so multi-byte scripts score
// correctly.
func JaroWinkler(s1, s2 string) float64 {
	return jaroWinkler(s1, s2, 0.1)
}

func jaroWinkler(s1, s2 string, prefixScale float64) float64 {
	if s1 == s2 {
		return 1.0
	}
	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}

	matchWindow := max(len(r1), len(r2))/2 - 1
	if matchWindow < 0 {
		matchWindow = 0
	}

	m1 := make([]bool, len(r1))
	m2 := make([]bool, len(r2))
	matches := 0
	for i := range r1 {
		start := max(0, i-matchWindow)
		end := min(i+matchWindow+1, len(r2))
		for j := start; j < end; j++ {
			if m2[j] || r1[i] != r2[j] {
				continue
			}
			m1[i] = true
			m2[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := range r1 {
		if !m1[i] {
			continue
		}
		for !m2[k] {
			k++
		}
		if r1[i] != r2[k] {
			transpositions++
		}
		k++
	}

	jaro := (float64(matches)/float64(len(r1)) +
		float64(matches)/float64(len(r2)) +
		float64(matches-transpositions/2)/float64(matches)) / 3.0

	prefix := 0
	for i := 0; i < min(len(r1), len(r2)) && i < 4; i++ {
		if r1[i] != r2[i] {
			break
		}
		prefix++
	}

	return jaro + float64(prefix)*prefixScale*(1.0-jaro)
}

// Ngram returns the Sørensen-Dice coefficient over the n-gram sets of s1
// and s2. Strings shorter than n degrade to a single whole-string gram so
// short titles still compare meaningfully.
func Ngram(s1, s2 string, n int) float64 {
	if n < 1 {
		n = 2
	}
	if s1 == s2 {
		return 1.0
	}
	g1 := ngrams(strings.ToLower(s1), n)
	g2 := ngrams(strings.ToLower(s2), n)
	if len(g1) == 0 || len(g2) == 0 {
		return 0.0
	}

	intersection := 0
	for g := range g1 {
		if _, ok := g2[g]; ok {
			intersection++
		}
	}
	return 2.0 * float64(intersection) / float64(len(g1)+len(g2))
}

func ngrams(s string, n int) map[string]struct{} {
	r := []rune(s)
	out := make(map[string]struct{})
	if len(r) == 0 {
		return out
	}
	if len(r) < n {
		out[string(r)] = struct{}{}
		return out
	}
	for i := 0; i+n <= len(r); i++ {
		out[string(r[i:i+n])] = struct{}{}
	}
	return out
}

// TokenOverlap returns the Jaccard similarity of the token sets of s1 and
// s2. Tokens are split on whitespace and punctuation, lowercased, and
// stripped of trailing Korean grammatical particles.
func TokenOverlap(s1, s2 string) float64 {
	t1 := tokenSet(s1)
	t2 := tokenSet(s2)
	if len(t1) == 0 || len(t2) == 0 {
		return 0.0
	}

	intersection := 0
	for t := range t1 {
		if _, ok := t2[t]; ok {
			intersection++
		}
	}
	union := len(t1) + len(t2) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range Tokenize(s) {
		out[tok] = struct{}{}
	}
	return out
}

// Containment scores substring relationships: when one lowercased, trimmed
// string contains the other, the score is the length ratio of the shorter
// to the longer; otherwise 0.
func Containment(s1, s2 string) float64 {
	a := strings.ToLower(strings.TrimSpace(s1))
	b := strings.ToLower(strings.TrimSpace(s2))
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}
	la, lb := len([]rune(a)), len([]rune(b))
	if la > lb {
		a, b = b, a
		la, lb = lb, la
	}
	if strings.Contains(b, a) {
		return float64(la) / float64(lb)
	}
	return 0.0
}
