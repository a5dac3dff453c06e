// Package mock provides a test double for the docparse.Provider interface.
package mock

import (
	"context"
	"io"
	"sync"

	"github.com/sonoglot/sonoglot/pkg/provider/docparse"
)

// ParseCall records a single invocation of Parse.
type ParseCall struct {
	// Name is the file name passed to Parse.
	Name string
	// Body is the full content read from the reader passed to Parse.
	Body []byte
}

// Provider is a mock implementation of docparse.Provider.
// Zero values cause Parse to return an empty Result and nil error.
type Provider struct {
	mu sync.Mutex

	// ParseResult is returned by Parse.
	ParseResult docparse.Result

	// ParseErr, if non-nil, is returned as the error from Parse.
	ParseErr error

	// ParseCalls records every invocation of Parse in order.
	ParseCalls []ParseCall
}

// Parse records the call (draining r) and returns the configured result and error.
func (p *Provider) Parse(_ context.Context, name string, r io.Reader) (docparse.Result, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return docparse.Result{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.ParseCalls = append(p.ParseCalls, ParseCall{Name: name, Body: body})
	return p.ParseResult, p.ParseErr
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ParseCalls = nil
}

// Ensure Provider implements docparse.Provider at compile time.
var _ docparse.Provider = (*Provider)(nil)
