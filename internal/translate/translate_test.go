package translate_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sonoglot/sonoglot/internal/translate"
	"github.com/sonoglot/sonoglot/pkg/provider/llm"
	"github.com/sonoglot/sonoglot/pkg/provider/llm/mock"
)

func TestTranslate_ParsesStructuredResponse(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"translation": "Good morning", "detectedLang": "pt"}`,
		},
	}
	tr := translate.New(provider)

	out, err := tr.Translate(context.Background(), "Bom dia", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Original != "Bom dia" {
		t.Errorf("Original = %q, want 'Bom dia'", out.Original)
	}
	if out.Text != "Good morning" {
		t.Errorf("Text = %q, want 'Good morning'", out.Text)
	}
	if out.DetectedLang != "pt" {
		t.Errorf("DetectedLang = %q, want pt", out.DetectedLang)
	}
}

func TestTranslate_PromptNamesTargetLanguage(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"translation": "x"}`},
	}
	tr := translate.New(provider)

	if _, err := tr.Translate(context.Background(), "Bom dia", "en"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(provider.CompleteCalls) != 1 {
		t.Fatalf("provider called %d times, want 1", len(provider.CompleteCalls))
	}
	req := provider.CompleteCalls[0].Req
	if !strings.Contains(req.SystemPrompt, "inglês") {
		t.Errorf("system prompt does not name the target language: %q", req.SystemPrompt)
	}
	if req.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", req.Temperature)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "Bom dia" {
		t.Errorf("messages = %+v, want single user message with input text", req.Messages)
	}
}

func TestTranslate_StripsMarkdownFences(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: "```json\n{\"translation\": \"Hello\", \"detectedLang\": \"pt\"}\n```",
		},
	}
	tr := translate.New(provider)

	out, err := tr.Translate(context.Background(), "Olá", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "Hello" {
		t.Errorf("Text = %q, want Hello", out.Text)
	}
}

func TestTranslate_UnstructuredResponseUsedVerbatim(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "  Good morning  "},
	}
	tr := translate.New(provider)

	out, err := tr.Translate(context.Background(), "Bom dia", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "Good morning" {
		t.Errorf("Text = %q, want 'Good morning'", out.Text)
	}
	if out.DetectedLang != "" {
		t.Errorf("DetectedLang = %q, want empty for unstructured response", out.DetectedLang)
	}
}

func TestTranslate_ProviderErrorKeepsOriginal(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{CompleteErr: errors.New("backend down")}
	tr := translate.New(provider)

	out, err := tr.Translate(context.Background(), "Bom dia", "en")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if out.Original != "Bom dia" {
		t.Errorf("Original = %q, want input preserved on error", out.Original)
	}
	if out.Text != "" {
		t.Errorf("Text = %q, want empty on error", out.Text)
	}
}

func TestTranslate_EmptyInputSkipsProvider(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{}
	tr := translate.New(provider)

	out, err := tr.Translate(context.Background(), "   ", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "" {
		t.Errorf("Text = %q, want empty", out.Text)
	}
	if len(provider.CompleteCalls) != 0 {
		t.Errorf("provider called %d times, want 0", len(provider.CompleteCalls))
	}
}

func TestLanguageName(t *testing.T) {
	t.Parallel()

	if got := translate.LanguageName("de"); got != "alemão" {
		t.Errorf("LanguageName(de) = %q, want alemão", got)
	}
	if got := translate.LanguageName("xx"); got != "xx" {
		t.Errorf("LanguageName(xx) = %q, want pass-through", got)
	}
}
