package match

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sonoglot/sonoglot/pkg/provider/llm"
)

// realtimePrompt asks the model for lightweight live annotations: keywords to
// boost recognition, a short reading of the topic, and phrases worth
// highlighting on screen.
const realtimePrompt = `Analise a fala recente de uma transcrição ao vivo.

Responda APENAS com um objeto JSON neste formato exato (sem markdown, sem explicações):
{"keywords": ["<palavra-chave>"], "understanding": "<uma frase sobre o assunto>", "highlights": ["<expressão importante da fala>"]}

Liste no máximo 5 keywords e 3 highlights.`

// RealtimeResult carries the live annotations for the current speech window.
type RealtimeResult struct {
	Keywords      []string `json:"keywords"`
	Understanding string   `json:"understanding"`
	Highlights    []string `json:"highlights"`
}

// Realtime produces live keyword and highlight annotations from recent
// transcript text. It is safe for concurrent use.
type Realtime struct {
	llm llm.Provider
}

// NewRealtime returns a [Realtime] analyzer backed by provider. A nil
// provider is allowed; Analyze then always uses the local keyword fallback.
func NewRealtime(provider llm.Provider) *Realtime {
	return &Realtime{llm: provider}
}

// Analyze returns annotations for the transcript window. Provider errors and
// unusable responses degrade to locally extracted keywords, never an error.
func (r *Realtime) Analyze(ctx context.Context, transcript string) RealtimeResult {
	if r.llm == nil {
		return localRealtime(transcript)
	}

	resp, err := r.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: realtimePrompt,
		Temperature:  delegatedTemperature,
		Messages: []llm.Message{
			{Role: "user", Content: tailBytes(transcript, 500)},
		},
	})
	if err != nil {
		return localRealtime(transcript)
	}

	raw := jsonObjectRe.FindString(resp.Content)
	if raw == "" {
		return localRealtime(transcript)
	}
	var out RealtimeResult
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return localRealtime(transcript)
	}
	if len(out.Keywords) == 0 {
		out.Keywords = Keywords(transcript, keywordMax)
	}
	return out
}

// localRealtime is the no-LLM fallback: significant words as keywords and a
// transcript prefix as the understanding.
func localRealtime(transcript string) RealtimeResult {
	return RealtimeResult{
		Keywords:      Keywords(transcript, keywordMax),
		Understanding: headBytes(strings.TrimSpace(transcript), fallbackUnderstandingChars),
	}
}
