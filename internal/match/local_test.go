package match_test

import (
	"context"
	"strings"
	"testing"

	"github.com/sonoglot/sonoglot/internal/match"
)

func TestLocal_FindsKeywordContext(t *testing.T) {
	t.Parallel()

	doc := "Revenue increased by 10% in the third quarter. Costs were flat. Headcount grew slightly."
	l := match.NewLocal()

	res, err := l.Analyze(context.Background(), doc, "revenue increased")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Matches) == 0 {
		t.Fatal("expected at least one match")
	}
	if !strings.Contains(res.Matches[0].Excerpt, "Revenue increased by 10%") {
		t.Errorf("top excerpt = %q, want the revenue sentence", res.Matches[0].Excerpt)
	}
	if res.Matches[0].Relevance != match.RelevanceMedium {
		t.Errorf("relevance = %q, want média by default", res.Matches[0].Relevance)
	}
}

func TestLocal_StemFormsMatch(t *testing.T) {
	t.Parallel()

	doc := "As vendas cresceram no mercado interno."
	l := match.NewLocal()

	// The keyword "venda" hits inside "vendas"; "aumentou" has no occurrence.
	res, err := l.Analyze(context.Background(), doc, "a venda aumentou")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(res.Matches))
	}
	if !strings.Contains(res.Matches[0].Excerpt, "vendas") {
		t.Errorf("excerpt = %q, want the sales sentence", res.Matches[0].Excerpt)
	}
}

func TestLocal_NoMatches(t *testing.T) {
	t.Parallel()

	l := match.NewLocal()
	res, err := l.Analyze(context.Background(), "Documento sobre finanças corporativas.", "receita de bolo de cenoura")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Matches) != 0 {
		t.Errorf("got %d matches, want 0: %+v", len(res.Matches), res.Matches)
	}
	if res.Understanding == "" {
		t.Error("understanding should carry the transcript prefix")
	}
}

func TestLocal_RanksBySimilarity(t *testing.T) {
	t.Parallel()

	doc := "A receita da empresa aumentou dez por cento no trimestre. " +
		"O relatório menciona a receita somente no final, depois de muitas páginas sobre logística."
	l := match.NewLocal(match.WithLocalMaxMatches(2))

	res, err := l.Analyze(context.Background(), doc, "a receita da empresa aumentou")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(res.Matches))
	}
	// The first sentence starts with the spoken text verbatim, so it ranks
	// above the window that merely mentions one keyword.
	if !strings.Contains(res.Matches[0].Excerpt, "dez por cento") {
		t.Errorf("top excerpt = %q, want the most similar window first", res.Matches[0].Excerpt)
	}
}

func TestLocal_CapsMatches(t *testing.T) {
	t.Parallel()

	doc := "Primeiro contrato assinado. Segundo contrato assinado. Terceiro contrato assinado."
	l := match.NewLocal(match.WithLocalMaxMatches(1))

	res, err := l.Analyze(context.Background(), doc, "contrato assinado ontem")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Matches) != 1 {
		t.Errorf("got %d matches, want 1 (cap applied)", len(res.Matches))
	}
}

func TestKeywords(t *testing.T) {
	t.Parallel()

	got := match.Keywords("a receita da empresa aumentou muito e a receita cresceu", 5)
	want := []string{"receita", "empresa", "aumentou", "muito", "cresceu"}
	if len(got) != len(want) {
		t.Fatalf("Keywords = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keywords[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestKeywords_ShortWordsSkipped(t *testing.T) {
	t.Parallel()

	if got := match.Keywords("um a de por com", 5); len(got) != 0 {
		t.Errorf("Keywords = %v, want none", got)
	}
}
