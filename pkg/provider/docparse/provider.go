// Package docparse defines the Provider interface for document text-extraction
// backends.
//
// A docparse provider turns an uploaded document (typically a PDF) into plain
// text that the context-matching engine can search. Implementations wrap remote
// extraction APIs; the provider does not interpret the document beyond text
// extraction.
//
// Implementations must be safe for concurrent use.
package docparse

import (
	"context"
	"errors"
	"io"
)

// ErrNoText is returned when extraction succeeds at the transport level but
// the document yields no usable text (e.g., a scanned image-only PDF).
var ErrNoText = errors.New("docparse: no text could be extracted")

// Result holds the outcome of a successful extraction.
type Result struct {
	// Text is the full extracted plain text of the document.
	Text string

	// Pages is the page count when the backend reports one, 0 otherwise.
	Pages int
}

// Provider is the abstraction over any document text-extraction backend.
type Provider interface {
	// Parse uploads the document read from r under the given file name and
	// returns the extracted text. Returns [ErrNoText] (possibly wrapped) when
	// the backend produces an empty extraction.
	Parse(ctx context.Context, name string, r io.Reader) (Result, error)
}
