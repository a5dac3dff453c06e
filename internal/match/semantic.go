package match

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/sonoglot/sonoglot/internal/document"
	"github.com/sonoglot/sonoglot/pkg/provider/embeddings"
)

// Semantic pre-ranks document chunks with an embeddings provider and hands
// only the most similar chunks to the wrapped analyzer. This keeps the LLM
// request small for long documents while preserving the parts that matter.
//
// Chunk vectors are cached per document, keyed by a content hash, so a
// document embedded once at ingest time ([Semantic.Prepare]) is not
// re-embedded on every analysis.
//
// It implements [Analyzer] and is safe for concurrent use.
type Semantic struct {
	embedder embeddings.Provider
	inner    Analyzer

	chunkSize int
	topK      int

	mu       sync.Mutex
	cacheKey [sha256.Size]byte
	chunks   []string
	vecs     [][]float32
}

// SemanticOption is a functional option for [Semantic].
type SemanticOption func(*Semantic)

// WithChunkSize sets the chunk size in runes. Default: 600.
func WithChunkSize(n int) SemanticOption {
	return func(s *Semantic) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithTopK sets how many chunks are forwarded to the inner analyzer. Default: 4.
func WithTopK(n int) SemanticOption {
	return func(s *Semantic) {
		if n > 0 {
			s.topK = n
		}
	}
}

// NewSemantic returns a [Semantic] analyzer that ranks with embedder and
// delegates the actual analysis to inner.
func NewSemantic(embedder embeddings.Provider, inner Analyzer, opts ...SemanticOption) *Semantic {
	s := &Semantic{
		embedder:  embedder,
		inner:     inner,
		chunkSize: 600,
		topK:      4,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Prepare chunks and embeds docText ahead of analysis so later Analyze calls
// rank against cached vectors. Intended to run at document ingest; on failure
// the cache is left untouched and Analyze embeds on demand.
func (s *Semantic) Prepare(ctx context.Context, docText string) error {
	chunks := document.Chunk(docText, s.chunkSize)
	if len(chunks) <= s.topK {
		// Analyze forwards the full text for small documents.
		return nil
	}
	vecs, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return fmt.Errorf("match: embed document chunks: %w", err)
	}
	s.storeCache(docText, chunks, vecs)
	return nil
}

// Analyze embeds the transcript, selects the topK most similar document
// chunks, and runs the inner analyzer on their concatenation. Chunk vectors
// come from the ingest-time cache when the document matches; otherwise they
// are computed and cached here. Embedding failures fall back to the inner
// analyzer on the full document.
func (s *Semantic) Analyze(ctx context.Context, docText, transcript string) (Result, error) {
	chunks, vecs, ok := s.cachedVectors(docText)
	if !ok {
		chunks = document.Chunk(docText, s.chunkSize)
		if len(chunks) <= s.topK {
			return s.inner.Analyze(ctx, docText, transcript)
		}
		var err error
		vecs, err = s.embedder.EmbedBatch(ctx, chunks)
		if err != nil {
			// Ranking is an optimisation; analysis still works on the full text.
			return s.inner.Analyze(ctx, docText, transcript)
		}
		s.storeCache(docText, chunks, vecs)
	}

	ranked, err := s.rank(ctx, chunks, vecs, transcript)
	if err != nil {
		return s.inner.Analyze(ctx, docText, transcript)
	}

	return s.inner.Analyze(ctx, strings.Join(ranked, "\n\n"), transcript)
}

// storeCache replaces the cached chunk vectors for docText.
func (s *Semantic) storeCache(docText string, chunks []string, vecs [][]float32) {
	key := sha256.Sum256([]byte(docText))
	s.mu.Lock()
	s.cacheKey, s.chunks, s.vecs = key, chunks, vecs
	s.mu.Unlock()
}

// cachedVectors returns the cached chunks and vectors when they belong to
// docText.
func (s *Semantic) cachedVectors(docText string) ([]string, [][]float32, bool) {
	key := sha256.Sum256([]byte(docText))
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vecs == nil || key != s.cacheKey {
		return nil, nil, false
	}
	return s.chunks, s.vecs, true
}

// rank returns the topK chunks by cosine similarity to the transcript,
// in document order.
func (s *Semantic) rank(ctx context.Context, chunks []string, vecs [][]float32, transcript string) ([]string, error) {
	query, err := s.embedder.Embed(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("match: embed transcript: %w", err)
	}

	type scored struct {
		idx int
		sim float64
	}
	ranked := make([]scored, len(chunks))
	for i, v := range vecs {
		ranked[i] = scored{idx: i, sim: cosine(query, v)}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].sim > ranked[j].sim })
	ranked = ranked[:s.topK]

	// Restore document order so excerpts keep their narrative flow.
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].idx < ranked[j].idx })

	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = chunks[r.idx]
	}
	return out, nil
}

// cosine computes the cosine similarity of two equal-length vectors.
// Returns 0 for mismatched or zero-magnitude inputs.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
