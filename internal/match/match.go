// Package match connects live transcript text to reference-document content.
//
// Three strategies implement the [Analyzer] interface: [Delegated] asks an LLM
// for literal document excerpts, [Local] extracts keywords and scans the
// document without any network round trip, and [Semantic] pre-ranks document
// chunks with an embeddings provider before delegating. The [Engine] wraps a
// strategy with the transcript-growth threshold and the drop-new concurrency
// guard, and [FindSpans]/[Annotate] reconcile returned excerpts into document
// highlight spans.
package match

import "context"

// Relevance grades how strongly an excerpt relates to the spoken text.
// Values follow the labels produced by the analysis prompt.
type Relevance string

const (
	RelevanceHigh   Relevance = "alta"
	RelevanceMedium Relevance = "média"
	RelevanceLow    Relevance = "baixa"
)

// IsValid reports whether r is a recognised relevance grade.
func (r Relevance) IsValid() bool {
	switch r {
	case RelevanceHigh, RelevanceMedium, RelevanceLow:
		return true
	}
	return false
}

// Match is a single document excerpt related to the transcript.
type Match struct {
	// Excerpt is a literal substring of the reference document.
	Excerpt string `json:"excerpt"`

	// Relevance grades the match.
	Relevance Relevance `json:"relevance"`
}

// Result is the outcome of one context analysis.
type Result struct {
	// Understanding is a one-or-two sentence reading of what is being
	// discussed.
	Understanding string `json:"understanding"`

	// Matches lists document excerpts related to the transcript, strongest
	// first.
	Matches []Match `json:"matches"`

	// Spans locates the matches inside the document text. Populated by the
	// [Engine] after excerpt reconciliation.
	Spans []Span `json:"spans,omitempty"`
}

// Analyzer matches recent transcript text against a reference document.
type Analyzer interface {
	// Analyze inspects transcript against docText and returns the resulting
	// understanding and excerpts. Implementations degrade gracefully: a
	// malformed model response yields a minimal Result, not an error.
	Analyze(ctx context.Context, docText, transcript string) (Result, error)
}
