// Package translate implements LLM-backed caption translation and transcript
// summarisation.
//
// The [Translator] sends caption text to an [llm.Provider] with a strict-JSON
// prompt and parses the translation plus the detected source language. When
// the model response cannot be parsed, the raw response text is used as the
// translation rather than surfacing an error, so a chatty model degrades to a
// slightly noisier translation instead of a broken caption.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sonoglot/sonoglot/pkg/provider/llm"
)

const defaultTemperature = 0.3

// langNames maps ISO 639-1 codes to the Portuguese language names used in the
// translation prompt.
var langNames = map[string]string{
	"en": "inglês",
	"pt": "português",
	"es": "espanhol",
	"fr": "francês",
	"de": "alemão",
	"it": "italiano",
	"ja": "japonês",
	"ko": "coreano",
	"zh": "chinês",
}

// LanguageName returns the prompt-facing name for an ISO 639-1 code. Unknown
// codes are passed through verbatim so the model can still make sense of them.
func LanguageName(code string) string {
	if name, ok := langNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// translatePromptTemplate is the system prompt for translation requests. The
// target language name is interpolated at call time.
const translatePromptTemplate = `Você é um tradutor profissional. Traduza o texto do usuário para %s.

Responda APENAS com um objeto JSON neste formato exato (sem markdown, sem explicações):
{"translation": "<texto traduzido>", "detectedLang": "<código ISO 639-1 do idioma original>"}`

// Translation is the outcome of a translation request.
type Translation struct {
	// Original is the input text, unchanged.
	Original string `json:"original"`

	// Text is the translated text.
	Text string `json:"translation"`

	// DetectedLang is the ISO 639-1 code of the source language as reported by
	// the model. Empty when the model response was unstructured.
	DetectedLang string `json:"detectedLang"`
}

// llmTranslation is the expected JSON structure returned by the LLM.
type llmTranslation struct {
	Translation  string `json:"translation"`
	DetectedLang string `json:"detectedLang"`
}

// Option is a functional option for configuring a [Translator].
type Option func(*Translator)

// WithTemperature sets the LLM sampling temperature. Default: 0.3.
func WithTemperature(temp float64) Option {
	return func(t *Translator) {
		t.temperature = temp
	}
}

// Translator translates caption text using an [llm.Provider]. It is safe for
// concurrent use.
type Translator struct {
	llm         llm.Provider
	temperature float64
}

// New returns a new [Translator] backed by the given [llm.Provider].
func New(provider llm.Provider, opts ...Option) *Translator {
	t := &Translator{
		llm:         provider,
		temperature: defaultTemperature,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Translate translates text into the target language (ISO 639-1 code).
// Empty input returns an empty Translation without calling the model.
// Context cancellation and provider errors are returned as non-nil errors;
// the caller keeps the original text in that case.
func (t *Translator) Translate(ctx context.Context, text, targetLang string) (Translation, error) {
	if strings.TrimSpace(text) == "" {
		return Translation{Original: text}, nil
	}

	req := llm.CompletionRequest{
		SystemPrompt: fmt.Sprintf(translatePromptTemplate, LanguageName(targetLang)),
		Temperature:  t.temperature,
		Messages: []llm.Message{
			{Role: "user", Content: text},
		},
	}

	resp, err := t.llm.Complete(ctx, req)
	if err != nil {
		return Translation{Original: text}, fmt.Errorf("translate: complete: %w", err)
	}

	out := Translation{Original: text}
	var parsed llmTranslation
	if err := json.Unmarshal([]byte(stripMarkdown(resp.Content)), &parsed); err == nil && parsed.Translation != "" {
		out.Text = parsed.Translation
		out.DetectedLang = parsed.DetectedLang
		return out, nil
	}

	// Unstructured response: treat the whole content as the translation.
	out.Text = strings.TrimSpace(resp.Content)
	return out, nil
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models prepend and append to JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
