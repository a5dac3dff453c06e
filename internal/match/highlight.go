package match

import (
	"sort"
	"strings"
)

// Span locates one matched excerpt inside the document text, as byte offsets.
type Span struct {
	// Start is the byte offset of the excerpt in the document.
	Start int `json:"start"`

	// End is the byte offset one past the excerpt.
	End int `json:"end"`

	// Relevance carries the grade of the originating match.
	Relevance Relevance `json:"relevance"`
}

// markOpen/markClose are the tags inserted by [Annotate].
const (
	markOpen  = "<mark>"
	markClose = "</mark>"
)

// excerptPrefixRunes is the prefix length retried when a full excerpt is not
// found verbatim. Models often truncate or paraphrase the tail of an excerpt
// while the opening words stay literal.
const excerptPrefixRunes = 50

// keywordSpanRadius is the context kept around a keyword hit when an excerpt
// cannot be located even by its prefix.
const keywordSpanRadius = 40

// FindSpans locates each match's excerpt in docText, case-insensitively, and
// returns non-overlapping spans sorted by descending start offset (the order
// [Annotate] needs for insertion). Rules:
//
//   - Only the first occurrence of each excerpt is used.
//   - Excerpts shorter than minChars are skipped.
//   - An excerpt missing verbatim is retried by its first excerptPrefixRunes
//     runes, then by context windows around its keywords.
//   - When two excerpts overlap, the one found first wins and the later one is
//     dropped.
//
// The result is deterministic for a given input, so reapplying the same
// matches yields identical spans.
func FindSpans(docText string, matches []Match, minChars int) []Span {
	lowerDoc := lowerASCII(docText)

	var spans []Span
	add := func(start, end int, rel Relevance) {
		candidate := Span{Start: start, End: end, Relevance: rel}
		if !overlapsAny(candidate, spans) {
			spans = append(spans, candidate)
		}
	}

	for _, m := range matches {
		excerpt := strings.TrimSpace(m.Excerpt)
		if len([]rune(excerpt)) < minChars {
			continue
		}
		if idx := strings.Index(lowerDoc, lowerASCII(excerpt)); idx >= 0 {
			add(idx, idx+len(excerpt), m.Relevance)
			continue
		}

		if prefix := headRunes(excerpt, excerptPrefixRunes); len(prefix) < len(excerpt) {
			if idx := strings.Index(lowerDoc, lowerASCII(prefix)); idx >= 0 {
				add(idx, idx+len(prefix), m.Relevance)
				continue
			}
		}

		for _, kw := range Keywords(excerpt, keywordMax) {
			idx := strings.Index(lowerDoc, kw)
			if idx < 0 {
				continue
			}
			w := contextWindow(docText, idx, idx+len(kw), keywordSpanRadius)
			add(w[0], w[1], m.Relevance)
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].Start > spans[j].Start })
	return spans
}

// headRunes returns at most n runes from the start of s.
func headRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Annotate wraps each span of docText in <mark> tags. Spans must be
// non-overlapping; they are applied in descending start order so earlier
// offsets stay valid while later text shifts. Text already containing mark
// tags is returned unchanged, which makes repeated annotation idempotent.
func Annotate(docText string, spans []Span) string {
	if len(spans) == 0 || strings.Contains(docText, markOpen) {
		return docText
	}

	ordered := make([]Span, len(spans))
	copy(ordered, spans)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	var sb strings.Builder
	out := docText
	for _, sp := range ordered {
		if sp.Start < 0 || sp.End > len(out) || sp.Start >= sp.End {
			continue
		}
		sb.Reset()
		sb.WriteString(out[:sp.Start])
		sb.WriteString(markOpen)
		sb.WriteString(out[sp.Start:sp.End])
		sb.WriteString(markClose)
		sb.WriteString(out[sp.End:])
		out = sb.String()
	}
	return out
}

// overlapsAny reports whether candidate intersects any accepted span.
func overlapsAny(candidate Span, spans []Span) bool {
	for _, s := range spans {
		if candidate.Start < s.End && s.Start < candidate.End {
			return true
		}
	}
	return false
}

// lowerASCII lowercases ASCII letters only, preserving byte offsets for
// multi-byte runes.
func lowerASCII(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			if b == nil {
				b = []byte(s)
			}
			b[i] = c + 'a' - 'A'
		}
	}
	if b == nil {
		return s
	}
	return string(b)
}
