package match

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// Keyword extraction defaults shared by [Local] and the realtime fallback.
const (
	keywordMinLen = 5
	keywordMax    = 5
)

// localWindowRadius is how many bytes of context are kept on each side of a
// keyword hit when cutting an excerpt window. Windows snap to a sentence
// boundary when one falls inside the radius.
const localWindowRadius = 100

// localHitCap bounds the occurrences scanned per keyword.
const localHitCap = 10

// sentenceBreaks are the byte values treated as sentence boundaries when
// snapping excerpt windows. All are single-byte, so offsets stay valid.
const sentenceBreaks = ".!?;\n"

// Keywords extracts up to max significant words from text: words of at least
// keywordMinLen runes, lowercased, deduplicated, in order of first appearance.
func Keywords(text string, max int) []string {
	if max <= 0 {
		max = keywordMax
	}
	seen := make(map[string]struct{})
	var out []string
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		w = strings.ToLower(w)
		if len([]rune(w)) < keywordMinLen {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == max {
			break
		}
	}
	return out
}

// LocalOption is a functional option for [Local].
type LocalOption func(*Local)

// WithLocalMaxMatches caps the number of returned excerpts. Default: 5.
func WithLocalMaxMatches(n int) LocalOption {
	return func(l *Local) {
		if n > 0 {
			l.maxMatches = n
		}
	}
}

// WithLocalWindowRadius overrides the excerpt window radius in bytes.
func WithLocalWindowRadius(n int) LocalOption {
	return func(l *Local) {
		if n > 0 {
			l.windowRadius = n
		}
	}
}

// Local matches transcript keywords against the document without any LLM
// round trip. It implements [Analyzer] and serves as the offline fallback
// when no analysis provider is configured or reachable.
//
// Each keyword hit yields a fixed-radius context window; overlapping windows
// merge, and the merged windows are ranked by Jaro-Winkler similarity between
// the spoken text and the window text.
type Local struct {
	maxMatches   int
	windowRadius int
}

// NewLocal returns a new [Local] analyzer.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{maxMatches: 5, windowRadius: localWindowRadius}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Analyze scans docText case-insensitively for transcript keywords, cuts a
// context window around each hit, and ranks the merged windows by similarity
// to the spoken text. Never returns an error.
func (l *Local) Analyze(_ context.Context, docText, transcript string) (Result, error) {
	keywords := Keywords(transcript, keywordMax)
	res := Result{Understanding: headBytes(strings.TrimSpace(transcript), fallbackUnderstandingChars)}
	if len(keywords) == 0 || strings.TrimSpace(docText) == "" {
		return res, nil
	}

	windows := mergeIntervals(l.hitWindows(docText, keywords))
	if len(windows) == 0 {
		return res, nil
	}

	type scored struct {
		excerpt string
		start   int
		sim     float64
	}
	spoken := strings.ToLower(strings.TrimSpace(transcript))
	ranked := make([]scored, 0, len(windows))
	for _, w := range windows {
		excerpt := strings.TrimSpace(docText[w[0]:w[1]])
		if excerpt == "" {
			continue
		}
		ranked = append(ranked, scored{
			excerpt: excerpt,
			start:   w[0],
			sim:     matchr.JaroWinkler(spoken, strings.ToLower(excerpt), true),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].sim != ranked[j].sim {
			return ranked[i].sim > ranked[j].sim
		}
		return ranked[i].start < ranked[j].start
	})
	if len(ranked) > l.maxMatches {
		ranked = ranked[:l.maxMatches]
	}

	for _, r := range ranked {
		res.Matches = append(res.Matches, Match{
			Excerpt:   r.excerpt,
			Relevance: RelevanceMedium,
		})
	}
	return res, nil
}

// hitWindows locates every keyword occurrence in docText and returns the
// surrounding context window for each, as [start, end) byte intervals.
func (l *Local) hitWindows(docText string, keywords []string) [][2]int {
	lowerDoc := lowerASCII(docText)
	var windows [][2]int
	for _, kw := range keywords {
		from, hits := 0, 0
		for hits < localHitCap {
			i := strings.Index(lowerDoc[from:], kw)
			if i < 0 {
				break
			}
			hit := from + i
			windows = append(windows, contextWindow(docText, hit, hit+len(kw), l.windowRadius))
			from = hit + len(kw)
			hits++
		}
	}
	return windows
}

// contextWindow widens the hit [start, end) by radius bytes on each side,
// snapping to a sentence boundary when one falls inside the radius and to
// rune boundaries otherwise.
func contextWindow(doc string, start, end, radius int) [2]int {
	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	hi := end + radius
	if hi > len(doc) {
		hi = len(doc)
	}
	if i := strings.LastIndexAny(doc[lo:start], sentenceBreaks); i >= 0 {
		lo += i + 1
	}
	if i := strings.IndexAny(doc[end:hi], sentenceBreaks); i >= 0 {
		hi = end + i + 1
	}
	for lo < len(doc) && !isRuneStart(doc[lo]) {
		lo++
	}
	for hi < len(doc) && !isRuneStart(doc[hi]) {
		hi++
	}
	return [2]int{lo, hi}
}

// mergeIntervals sorts intervals by start and merges overlapping ones.
// Adjacent intervals stay separate so sentence-snapped windows keep their
// boundaries.
func mergeIntervals(in [][2]int) [][2]int {
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool { return in[i][0] < in[j][0] })
	out := [][2]int{in[0]}
	for _, iv := range in[1:] {
		last := &out[len(out)-1]
		if iv[0] < last[1] {
			if iv[1] > last[1] {
				last[1] = iv[1]
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}
