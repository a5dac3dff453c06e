package match

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrAnalysisInFlight is returned by [Engine.Analyze] when another
	// analysis is still running; the new request is dropped, not queued.
	ErrAnalysisInFlight = errors.New("match: analysis already in flight")

	// ErrBelowThreshold is returned when the transcript has not grown enough
	// since the last analysis.
	ErrBelowThreshold = errors.New("match: transcript growth below threshold")
)

// Engine wraps an [Analyzer] with the two session-level guards: a minimum
// transcript growth between analyses and a drop-new single-flight gate. It
// also reconciles returned excerpts into document highlight spans.
//
// Engine is safe for concurrent use.
type Engine struct {
	analyzer Analyzer

	minGrowth       int
	minExcerptChars int

	busy atomic.Bool

	mu      sync.Mutex
	lastLen int
}

// EngineOption is a functional option for [Engine].
type EngineOption func(*Engine)

// WithMinGrowth sets the minimum transcript growth in bytes between analyses.
// Default: 10.
func WithMinGrowth(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.minGrowth = n
		}
	}
}

// WithMinExcerptChars sets the minimum excerpt length considered for
// highlighting. Default: 15.
func WithMinExcerptChars(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.minExcerptChars = n
		}
	}
}

// NewEngine wraps analyzer with the session guards.
func NewEngine(analyzer Analyzer, opts ...EngineOption) *Engine {
	e := &Engine{
		analyzer:        analyzer,
		minGrowth:       10,
		minExcerptChars: 15,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Analyze runs one guarded analysis. It returns [ErrBelowThreshold] when the
// transcript has not grown enough since the last completed analysis and
// [ErrAnalysisInFlight] when another analysis is running. On success the
// result carries highlight spans for the matched excerpts.
func (e *Engine) Analyze(ctx context.Context, docText, transcript string) (Result, error) {
	e.mu.Lock()
	grown := len(transcript) - e.lastLen
	e.mu.Unlock()
	if grown < e.minGrowth {
		return Result{}, ErrBelowThreshold
	}

	if !e.busy.CompareAndSwap(false, true) {
		return Result{}, ErrAnalysisInFlight
	}
	defer e.busy.Store(false)

	res, err := e.analyzer.Analyze(ctx, docText, transcript)
	if err != nil {
		return Result{}, err
	}

	e.mu.Lock()
	e.lastLen = len(transcript)
	e.mu.Unlock()

	res.Spans = FindSpans(docText, res.Matches, e.minExcerptChars)
	return res, nil
}

// Reset clears the growth tracker, e.g. when a new document is uploaded or
// the captions are cleared.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.lastLen = 0
	e.mu.Unlock()
}
