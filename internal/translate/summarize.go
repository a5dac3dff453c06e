package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sonoglot/sonoglot/pkg/provider/llm"
)

// summaryPrompt is the system prompt sent to the LLM when summarising a
// session transcript.
const summaryPrompt = `Resuma a transcrição a seguir em poucas frases, no mesmo idioma do texto.
Preserve decisões tomadas, números citados, nomes próprios e compromissos assumidos.
Responda apenas com o resumo, sem títulos nem comentários.`

// ErrTranscriptTooShort is returned when the transcript is shorter than the
// configured minimum for summarisation.
var ErrTranscriptTooShort = errors.New("translate: transcript too short to summarise")

// Summarizer produces a concise summary of a session transcript.
type Summarizer interface {
	// Summarize condenses transcript into a short summary string.
	Summarize(ctx context.Context, transcript string) (string, error)
}

// LLMSummarizer uses an LLM provider to summarise transcripts.
// It implements [Summarizer].
type LLMSummarizer struct {
	llm      llm.Provider
	minChars int
}

// NewLLMSummarizer creates a new [LLMSummarizer] backed by the given provider.
// Transcripts shorter than minChars are rejected with [ErrTranscriptTooShort];
// pass 0 to disable the length check.
func NewLLMSummarizer(provider llm.Provider, minChars int) *LLMSummarizer {
	return &LLMSummarizer{llm: provider, minChars: minChars}
}

// Summarize sends the transcript to the LLM with the summary prompt and
// returns the summary text.
func (s *LLMSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	trimmed := strings.TrimSpace(transcript)
	if len(trimmed) < s.minChars {
		return "", fmt.Errorf("%w: %d chars, need %d", ErrTranscriptTooShort, len(trimmed), s.minChars)
	}

	resp, err := s.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: summaryPrompt,
		Temperature:  0.3,
		Messages: []llm.Message{
			{Role: "user", Content: trimmed},
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}

	return strings.TrimSpace(resp.Content), nil
}
