package match

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/sonoglot/sonoglot/pkg/provider/llm"
)

const delegatedTemperature = 0.2

// delegatedPromptTemplate is the system prompt for LLM-backed analysis. The
// excerpt budget is interpolated at call time.
const delegatedPromptTemplate = `Você recebe um trecho de um documento de referência e a transcrição recente de uma fala ao vivo.

Sua tarefa:
1. Entenda o assunto da fala em uma ou duas frases.
2. Encontre até %d trechos LITERAIS do documento relacionados à fala. Copie os trechos exatamente como aparecem no documento, sem alterar uma letra.
3. Classifique a relevância de cada trecho como "alta", "média" ou "baixa".

Responda APENAS com um objeto JSON neste formato exato (sem markdown, sem explicações):
{"understanding": "<sua leitura do assunto>", "matches": [{"excerpt": "<trecho literal>", "relevance": "alta"}]}

Se nada no documento se relacionar com a fala, retorne "matches" vazio.`

// jsonObjectRe extracts the first JSON object from a model response that may
// carry surrounding prose.
var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// fallbackUnderstandingChars caps the transcript prefix used as the
// understanding when the model response is unusable.
const fallbackUnderstandingChars = 200

// DelegatedOption is a functional option for [Delegated].
type DelegatedOption func(*Delegated)

// WithDocumentBytes caps how much document text is sent per request. Default: 3000.
func WithDocumentBytes(n int) DelegatedOption {
	return func(d *Delegated) {
		if n > 0 {
			d.docBytes = n
		}
	}
}

// WithTranscriptBytes caps how much transcript is sent per request. Default: 500.
func WithTranscriptBytes(n int) DelegatedOption {
	return func(d *Delegated) {
		if n > 0 {
			d.transcriptBytes = n
		}
	}
}

// WithMaxMatches caps the number of excerpts requested. Default: 5.
func WithMaxMatches(n int) DelegatedOption {
	return func(d *Delegated) {
		if n > 0 {
			d.maxMatches = n
		}
	}
}

// Delegated asks an [llm.Provider] to produce literal document excerpts for
// the current transcript. It implements [Analyzer] and is safe for concurrent
// use.
type Delegated struct {
	llm             llm.Provider
	docBytes        int
	transcriptBytes int
	maxMatches      int
}

// NewDelegated returns a new [Delegated] analyzer backed by provider.
func NewDelegated(provider llm.Provider, opts ...DelegatedOption) *Delegated {
	d := &Delegated{
		llm:             provider,
		docBytes:        3000,
		transcriptBytes: 500,
		maxMatches:      5,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Analyze sends the capped document and transcript to the LLM and parses the
// structured response. Provider errors are returned; an unusable response
// degrades to a Result holding only a transcript-prefix understanding.
func (d *Delegated) Analyze(ctx context.Context, docText, transcript string) (Result, error) {
	doc := headBytes(docText, d.docBytes)
	spoken := tailBytes(transcript, d.transcriptBytes)

	userMsg := fmt.Sprintf("DOCUMENTO:\n%s\n\nFALA RECENTE:\n%s", doc, spoken)

	resp, err := d.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: fmt.Sprintf(delegatedPromptTemplate, d.maxMatches),
		Temperature:  delegatedTemperature,
		Messages: []llm.Message{
			{Role: "user", Content: userMsg},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("match: delegated analyze: %w", err)
	}

	res, ok := parseAnalysis(resp.Content, d.maxMatches)
	if !ok {
		return fallbackResult(transcript), nil
	}
	return res, nil
}

// parseAnalysis extracts and decodes the JSON object in content. Returns
// (zero, false) when no usable object is present.
func parseAnalysis(content string, maxMatches int) (Result, bool) {
	raw := jsonObjectRe.FindString(content)
	if raw == "" {
		return Result{}, false
	}

	var r Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Result{}, false
	}

	// Drop malformed matches and clamp to the budget.
	kept := r.Matches[:0]
	for _, m := range r.Matches {
		if strings.TrimSpace(m.Excerpt) == "" {
			continue
		}
		if !m.Relevance.IsValid() {
			m.Relevance = RelevanceLow
		}
		kept = append(kept, m)
		if len(kept) == maxMatches {
			break
		}
	}
	r.Matches = kept
	return r, true
}

// fallbackResult builds the minimal result used when the model response is
// unusable: a transcript prefix as the understanding and no matches.
func fallbackResult(transcript string) Result {
	return Result{Understanding: headBytes(strings.TrimSpace(transcript), fallbackUnderstandingChars)}
}

// headBytes returns at most n bytes from the start of s, cut at a rune boundary.
func headBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// tailBytes returns at most n bytes from the end of s, cut at a rune boundary.
func tailBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !isRuneStart(s[start]) {
		start++
	}
	return s[start:]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
