// Package document handles reference-document ingestion for context matching.
//
// An [Ingestor] validates an uploaded file (PDF magic number, size cap),
// hands it to a [docparse.Provider] for text extraction, and returns a
// [Document] ready for the matching engine.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sonoglot/sonoglot/pkg/provider/docparse"
)

// pdfMagic is the required prefix of every PDF file.
var pdfMagic = []byte("%PDF-")

// DefaultMaxBytes caps uploads at 20 MiB unless overridden.
const DefaultMaxBytes = 20 << 20

var (
	// ErrNotPDF is returned when the uploaded file does not start with the PDF
	// magic number.
	ErrNotPDF = errors.New("document: file is not a PDF")

	// ErrTooLarge is returned when the upload exceeds the configured size cap.
	ErrTooLarge = errors.New("document: file exceeds size limit")
)

// Document is an ingested reference document.
type Document struct {
	// ID uniquely identifies this upload.
	ID string `json:"id"`

	// Name is the client-supplied file name.
	Name string `json:"name"`

	// Text is the extracted plain text.
	Text string `json:"text"`

	// Pages is the page count when the extraction backend reports one.
	Pages int `json:"pages,omitempty"`

	// UploadedAt is when ingestion completed.
	UploadedAt time.Time `json:"uploadedAt"`
}

// Warmer pre-computes analysis state for a freshly ingested document, e.g.
// chunk embeddings for semantic ranking.
type Warmer interface {
	Prepare(ctx context.Context, docText string) error
}

// Option is a functional option for configuring an [Ingestor].
type Option func(*Ingestor)

// WithMaxBytes overrides the upload size cap. Default: [DefaultMaxBytes].
func WithMaxBytes(n int64) Option {
	return func(i *Ingestor) {
		if n > 0 {
			i.maxBytes = n
		}
	}
}

// WithWarmer registers w to run after each successful extraction. Warming is
// best-effort: failures are logged and never fail the ingest.
func WithWarmer(w Warmer) Option {
	return func(i *Ingestor) {
		i.warmer = w
	}
}

// Ingestor validates uploads and extracts their text. It is safe for
// concurrent use.
type Ingestor struct {
	parser   docparse.Provider
	maxBytes int64
	warmer   Warmer
}

// NewIngestor creates an [Ingestor] backed by the given extraction provider.
func NewIngestor(parser docparse.Provider, opts ...Option) *Ingestor {
	i := &Ingestor{
		parser:   parser,
		maxBytes: DefaultMaxBytes,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Ingest reads the upload from r, validates it, and extracts its text.
// Returns [ErrNotPDF], [ErrTooLarge], or a wrapped [docparse.ErrNoText] on
// failure.
func (i *Ingestor) Ingest(ctx context.Context, name string, r io.Reader) (*Document, error) {
	// Read one byte past the cap so oversize uploads are detectable.
	data, err := io.ReadAll(io.LimitReader(r, i.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("document: read upload: %w", err)
	}
	if int64(len(data)) > i.maxBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, i.maxBytes)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, fmt.Errorf("%w: %q", ErrNotPDF, name)
	}

	res, err := i.parser.Parse(ctx, name, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("document: extract %q: %w", name, err)
	}

	if i.warmer != nil {
		if err := i.warmer.Prepare(ctx, res.Text); err != nil {
			slog.Warn("document: analysis warmup failed", "name", name, "err", err)
		}
	}

	return &Document{
		ID:         uuid.NewString(),
		Name:       name,
		Text:       res.Text,
		Pages:      res.Pages,
		UploadedAt: time.Now(),
	}, nil
}

// Chunk splits text into pieces of at most size runes, breaking on whitespace
// where possible. Used to prepare documents for embedding-based ranking.
func Chunk(text string, size int) []string {
	if size <= 0 {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > 0 {
		if len(runes) <= size {
			chunks = append(chunks, strings.TrimSpace(string(runes)))
			break
		}
		cut := size
		// Back up to the nearest whitespace to avoid splitting words.
		for cut > size/2 && !isSpace(runes[cut]) {
			cut--
		}
		if cut <= size/2 {
			cut = size
		}
		chunk := strings.TrimSpace(string(runes[:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = runes[cut:]
	}
	return chunks
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
