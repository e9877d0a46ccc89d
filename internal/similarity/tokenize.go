package similarity

import (
	"strings"
	"unicode"
)

// Korean grammatical particles stripped from token tails before overlap
// comparison. Compound particles are matched before single-syllable ones so
// "에서" is removed as a unit rather than leaving a stray "에". The list is
// a fixed hand-authored ruleset, not a general stemmer.
var (
	compoundParticles = []string{
		"에게서", "한테서", "으로서", "으로써", "이라는",
		"에서", "에게", "한테", "까지", "부터", "으로", "이나",
		"이랑", "처럼", "보다", "마다", "조차", "마저", "밖에", "라는",
	}
	singleParticles = []string{
		"은", "는", "이", "가", "을", "를", "의", "에",
		"도", "만", "와", "과", "로", "랑", "나", "요",
	}
)

// Tokenize splits s on whitespace and punctuation, lowercases each token,
// and strips trailing Korean particles from tokens ending in a Hangul
// syllable. Empty tokens are dropped.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := stripParticle(strings.ToLower(f))
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// stripParticle removes one trailing particle from tok when the token ends
// in a Hangul syllable. Stripping never empties a token: a token that is
// nothing but a particle is kept as-is.
func stripParticle(tok string) string {
	runes := []rune(tok)
	if len(runes) < 2 || !isHangul(runes[len(runes)-1]) {
		return tok
	}
	for _, p := range compoundParticles {
		if rest, ok := strings.CutSuffix(tok, p); ok && rest != "" {
			return rest
		}
	}
	for _, p := range singleParticles {
		if rest, ok := strings.CutSuffix(tok, p); ok && rest != "" {
			return rest
		}
	}
	return tok
}

func isHangul(r rune) bool {
	return r >= 0xAC00 && r <= 0xD7A3
}
