package match_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sonoglot/sonoglot/internal/match"
	"github.com/sonoglot/sonoglot/pkg/provider/llm"
	"github.com/sonoglot/sonoglot/pkg/provider/llm/mock"
)

func TestRealtime_ParsesResponse(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"keywords": ["receita", "trimestre"], "understanding": "Resultados financeiros", "highlights": ["aumentou dez por cento"]}`,
		},
	}
	r := match.NewRealtime(provider)

	res := r.Analyze(context.Background(), "a receita aumentou dez por cento no trimestre")
	if len(res.Keywords) != 2 || res.Keywords[0] != "receita" {
		t.Errorf("Keywords = %v", res.Keywords)
	}
	if res.Understanding != "Resultados financeiros" {
		t.Errorf("Understanding = %q", res.Understanding)
	}
	if len(res.Highlights) != 1 {
		t.Errorf("Highlights = %v", res.Highlights)
	}
}

func TestRealtime_ProviderErrorFallsBackToLocalKeywords(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{CompleteErr: errors.New("backend down")}
	r := match.NewRealtime(provider)

	res := r.Analyze(context.Background(), "a receita da empresa aumentou bastante")
	want := []string{"receita", "empresa", "aumentou", "bastante"}
	if len(res.Keywords) != len(want) {
		t.Fatalf("Keywords = %v, want %v", res.Keywords, want)
	}
	for i := range want {
		if res.Keywords[i] != want[i] {
			t.Errorf("Keywords[%d] = %q, want %q", i, res.Keywords[i], want[i])
		}
	}
}

func TestRealtime_NilProviderUsesLocalFallback(t *testing.T) {
	t.Parallel()

	r := match.NewRealtime(nil)
	res := r.Analyze(context.Background(), "discutindo orçamento anual")
	if len(res.Keywords) == 0 {
		t.Error("expected locally extracted keywords")
	}
}

func TestRealtime_UnusableResponseFallsBack(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "sem json aqui"},
	}
	r := match.NewRealtime(provider)

	res := r.Analyze(context.Background(), "discutindo orçamento anual")
	if len(res.Keywords) == 0 {
		t.Error("expected fallback keywords")
	}
}
