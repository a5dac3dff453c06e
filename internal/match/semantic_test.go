package match_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sonoglot/sonoglot/internal/match"
	embedmock "github.com/sonoglot/sonoglot/pkg/provider/embeddings/mock"
)

// recordingAnalyzer captures the document text it receives.
type recordingAnalyzer struct {
	docs []string
}

func (r *recordingAnalyzer) Analyze(_ context.Context, docText, _ string) (match.Result, error) {
	r.docs = append(r.docs, docText)
	return match.Result{Understanding: "ok"}, nil
}

func TestSemantic_SmallDocumentSkipsRanking(t *testing.T) {
	t.Parallel()

	embedder := &embedmock.Provider{}
	inner := &recordingAnalyzer{}
	s := match.NewSemantic(embedder, inner, match.WithChunkSize(100), match.WithTopK(4))

	doc := "documento curto"
	if _, err := s.Analyze(context.Background(), doc, "fala"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(embedder.EmbedCalls) != 0 {
		t.Errorf("embedder called %d times, want 0 for small docs", len(embedder.EmbedCalls))
	}
	if len(inner.docs) != 1 || inner.docs[0] != doc {
		t.Errorf("inner received %v, want full document", inner.docs)
	}
}

func TestSemantic_ForwardsTopChunks(t *testing.T) {
	t.Parallel()

	// Six single-word chunks; the third and sixth get the highest similarity.
	doc := "aaaa bbbb cccc dddd eeee ffff"
	embedder := &embedmock.Provider{
		EmbedResult: []float32{1, 0},
		EmbedBatchResult: [][]float32{
			{0, 1}, {0, 1}, {1, 0}, {0, 1}, {0, 1}, {0.9, 0.1},
		},
	}
	inner := &recordingAnalyzer{}
	s := match.NewSemantic(embedder, inner, match.WithChunkSize(5), match.WithTopK(2))

	if _, err := s.Analyze(context.Background(), doc, "fala"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(inner.docs) != 1 {
		t.Fatalf("inner called %d times, want 1", len(inner.docs))
	}
	forwarded := inner.docs[0]
	if !strings.Contains(forwarded, "cccc") || !strings.Contains(forwarded, "ffff") {
		t.Errorf("forwarded text %q misses the top-ranked chunks", forwarded)
	}
	if strings.Contains(forwarded, "bbbb") {
		t.Errorf("forwarded text %q contains a low-ranked chunk", forwarded)
	}
	// Chunks keep document order.
	if strings.Index(forwarded, "cccc") > strings.Index(forwarded, "ffff") {
		t.Errorf("forwarded chunks out of document order: %q", forwarded)
	}
}

func TestSemantic_PrepareCachesChunkVectors(t *testing.T) {
	t.Parallel()

	doc := "aaaa bbbb cccc dddd eeee ffff"
	embedder := &embedmock.Provider{
		EmbedResult: []float32{1, 0},
		EmbedBatchResult: [][]float32{
			{0, 1}, {0, 1}, {1, 0}, {0, 1}, {0, 1}, {0.9, 0.1},
		},
	}
	s := match.NewSemantic(embedder, &recordingAnalyzer{}, match.WithChunkSize(5), match.WithTopK(2))

	if err := s.Prepare(context.Background(), doc); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(embedder.EmbedBatchCalls) != 1 {
		t.Fatalf("EmbedBatch called %d times after Prepare, want 1", len(embedder.EmbedBatchCalls))
	}

	for i := 0; i < 2; i++ {
		if _, err := s.Analyze(context.Background(), doc, "fala"); err != nil {
			t.Fatalf("Analyze %d: %v", i, err)
		}
	}
	if len(embedder.EmbedBatchCalls) != 1 {
		t.Errorf("EmbedBatch called %d times, want 1 (cached vectors reused)", len(embedder.EmbedBatchCalls))
	}
	if len(embedder.EmbedCalls) != 2 {
		t.Errorf("Embed called %d times, want one per transcript", len(embedder.EmbedCalls))
	}
}

func TestSemantic_CacheMissOnDifferentDocument(t *testing.T) {
	t.Parallel()

	embedder := &embedmock.Provider{
		EmbedResult: []float32{1, 0},
		EmbedBatchResult: [][]float32{
			{0, 1}, {0, 1}, {1, 0}, {0, 1}, {0, 1}, {0.9, 0.1},
		},
	}
	s := match.NewSemantic(embedder, &recordingAnalyzer{}, match.WithChunkSize(5), match.WithTopK(2))

	if _, err := s.Analyze(context.Background(), "aaaa bbbb cccc dddd eeee ffff", "fala"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Analyze(context.Background(), "gggg hhhh iiii jjjj kkkk llll", "fala"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(embedder.EmbedBatchCalls) != 2 {
		t.Errorf("EmbedBatch called %d times, want 2 (one per distinct document)", len(embedder.EmbedBatchCalls))
	}
}

func TestSemantic_PrepareSmallDocumentNoop(t *testing.T) {
	t.Parallel()

	embedder := &embedmock.Provider{}
	s := match.NewSemantic(embedder, &recordingAnalyzer{}, match.WithChunkSize(100), match.WithTopK(4))

	if err := s.Prepare(context.Background(), "documento curto"); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(embedder.EmbedBatchCalls) != 0 {
		t.Errorf("EmbedBatch called %d times, want 0 for small docs", len(embedder.EmbedBatchCalls))
	}
}

func TestSemantic_EmbedFailureFallsBackToFullDoc(t *testing.T) {
	t.Parallel()

	doc := "aaaa bbbb cccc dddd eeee ffff"
	embedder := &embedmock.Provider{EmbedErr: errors.New("backend down")}
	inner := &recordingAnalyzer{}
	s := match.NewSemantic(embedder, inner, match.WithChunkSize(5), match.WithTopK(2))

	if _, err := s.Analyze(context.Background(), doc, "fala"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.docs) != 1 || inner.docs[0] != doc {
		t.Errorf("inner should receive the full document on embed failure")
	}
}
