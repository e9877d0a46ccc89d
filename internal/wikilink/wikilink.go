// Package wikilink extracts [[wikilink]] references from Markdown content
// and normalises note titles for comparison.
package wikilink

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	wikilinkRe   = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)
	separatorRe  = regexp.MustCompile(`[-_]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Position locates a wikilink inside its source content. Offsets are
// zero-based byte offsets; Line is the zero-based line number of Start.
type Position struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Line  int `json:"line"`
}

// Wikilink is a single [[target#section|alias]] occurrence. Target is the
// literal text before any # or | and is never normalised at parse time.
type Wikilink struct {
	Raw      string   `json:"raw"`
	Target   string   `json:"target"`
	Section  string   `json:"section,omitempty"`
	Alias    string   `json:"alias,omitempty"`
	Position Position `json:"position"`
}

// Parse scans content for balanced [[...]] pairs and returns every
// occurrence in document order. Unterminated brackets simply do not match.
func Parse(content string) []Wikilink {
	matches := wikilinkRe.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]Wikilink, 0, len(matches))
	line := 0
	prev := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		inner := content[m[2]:m[3]]

		// Advance the line counter only over the gap since the last match.
		line += strings.Count(content[prev:start], "\n")
		prev = start

		target, section, alias := splitInner(inner)
		if target == "" {
			continue
		}
		out = append(out, Wikilink{
			Raw:     content[start:end],
			Target:  target,
			Section: section,
			Alias:   alias,
			Position: Position{
				Start: start,
				End:   end,
				Line:  line,
			},
		})
	}
	return out
}

// splitInner separates "target#section|alias" on the first | and first #.
// The alias is stripped first so a section never swallows the alias
// delimiter.
func splitInner(inner string) (target, section, alias string) {
	target = inner
	if i := strings.Index(target, "|"); i >= 0 {
		alias = strings.TrimSpace(target[i+1:])
		target = target[:i]
	}
	if i := strings.Index(target, "#"); i >= 0 {
		section = strings.TrimSpace(target[i+1:])
		target = target[:i]
	}
	return strings.TrimSpace(target), section, alias
}

// Extract returns the unique link targets of content in order of first
// appearance.
func Extract(content string) []string {
	links := Parse(content)
	seen := make(map[string]struct{}, len(links))
	var out []string
	for _, l := range links {
		if _, ok := seen[l.Target]; ok {
			continue
		}
		seen[l.Target] = struct{}{}
		out = append(out, l.Target)
	}
	return out
}

// CountMentions returns the total number of wikilink occurrences in
// content, duplicates included.
func CountMentions(content string) int {
	return len(Parse(content))
}

// FindLinksTo returns every wikilink in content whose target refers to
// targetNote under normalised-title comparison.
func FindLinksTo(content, targetNote string) []Wikilink {
	want := NormalizeTitle(targetNote)
	var out []Wikilink
	for _, l := range Parse(content) {
		if NormalizeTitle(l.Target) == want {
			out = append(out, l)
		}
	}
	return out
}

// NormalizeTitle lowercases and trims s, strips a trailing .md extension,
// collapses - and _ runs to single spaces, and collapses repeated
// whitespace. All backlink and dangling-link matching goes through this;
// raw link text is never compared directly.
func NormalizeTitle(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, ".md")
	s = separatorRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// IsSameNote reports whether a and b refer to the same note title after
// normalisation.
func IsSameNote(a, b string) bool {
	return NormalizeTitle(a) == NormalizeTitle(b)
}

// DefaultContextLength is the number of characters of surrounding text
// included on each side of a link by ExtractContext.
const DefaultContextLength = 50

// ExtractContext returns the text surrounding link in content, up to
// contextLength characters on each side, with ellipsis markers where the
// window was truncated. Intended for human-readable backlink display only.
func ExtractContext(content string, link Wikilink, contextLength int) string {
	if contextLength <= 0 {
		contextLength = DefaultContextLength
	}

	// The window is counted in runes, not bytes, so multi-byte text is
	// never sliced mid-character.
	start := link.Position.Start
	for i := 0; i < contextLength && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(content[:start])
		start -= size
	}
	end := link.Position.End
	for i := 0; i < contextLength && end < len(content); i++ {
		_, size := utf8.DecodeRuneInString(content[end:])
		end += size
	}

	snippet := strings.TrimSpace(content[start:end])
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(content) {
		snippet += "…"
	}
	return snippet
}
