package match_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sonoglot/sonoglot/internal/match"
	"github.com/sonoglot/sonoglot/pkg/provider/llm/mock"
)

// stubAnalyzer returns a canned result and counts its invocations.
type stubAnalyzer struct {
	res   match.Result
	err   error
	calls int
}

func (s *stubAnalyzer) Analyze(context.Context, string, string) (match.Result, error) {
	s.calls++
	return s.res, s.err
}

func TestFallback_ProviderErrorFallsBackToLocal(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{CompleteErr: errors.New("upstream down")}
	analyzer := match.NewFallback(match.NewDelegated(provider), match.NewLocal())
	engine := match.NewEngine(analyzer, match.WithMinGrowth(0))

	doc := "Revenue increased by 10% in the third quarter. Costs were flat."
	res, err := engine.Analyze(context.Background(), doc, "revenue increased")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Matches) == 0 {
		t.Fatal("expected local matches when the provider is down")
	}
	if !strings.Contains(res.Matches[0].Excerpt, "Revenue increased by 10%") {
		t.Errorf("excerpt = %q, want the revenue sentence", res.Matches[0].Excerpt)
	}
	if len(res.Spans) == 0 {
		t.Error("expected highlight spans for the local match")
	}
}

func TestFallback_EmptyMatchesFallBackKeepingUnderstanding(t *testing.T) {
	t.Parallel()

	primary := &stubAnalyzer{res: match.Result{Understanding: "Resultados do trimestre"}}
	f := match.NewFallback(primary, match.NewLocal())

	doc := "A receita da empresa aumentou dez por cento no trimestre."
	res, err := f.Analyze(context.Background(), doc, "a receita da empresa aumentou")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Matches) == 0 {
		t.Fatal("expected fallback matches when the primary returns none")
	}
	if res.Understanding != "Resultados do trimestre" {
		t.Errorf("Understanding = %q, want the primary's kept", res.Understanding)
	}
}

func TestFallback_PrimaryResultPassesThrough(t *testing.T) {
	t.Parallel()

	primary := &stubAnalyzer{res: match.Result{
		Understanding: "ok",
		Matches:       []match.Match{{Excerpt: "um trecho literal", Relevance: match.RelevanceHigh}},
	}}
	secondary := &stubAnalyzer{}
	f := match.NewFallback(primary, secondary)

	res, err := f.Analyze(context.Background(), "documento", "fala")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Matches) != 1 || res.Matches[0].Relevance != match.RelevanceHigh {
		t.Errorf("primary result altered: %+v", res)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary called %d times, want 0", secondary.calls)
	}
}

func TestFallback_BothFailSurfacePrimaryError(t *testing.T) {
	t.Parallel()

	primaryErr := errors.New("primary down")
	primary := &stubAnalyzer{err: primaryErr}
	secondary := &stubAnalyzer{err: errors.New("secondary down")}
	f := match.NewFallback(primary, secondary)

	_, err := f.Analyze(context.Background(), "documento", "fala")
	if !errors.Is(err, primaryErr) {
		t.Errorf("err = %v, want the primary's error", err)
	}
}
