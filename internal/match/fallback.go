package match

import (
	"context"
	"log/slog"
)

// Fallback runs a primary [Analyzer] and falls back to a secondary one when
// the primary fails or returns no usable excerpt. The delegated strategy is
// the intended primary and [Local] the intended secondary: an unreachable or
// unhelpful model never leaves the session without matches.
//
// When the primary succeeds with an understanding but no matches, the
// secondary's matches are combined with the primary's understanding.
type Fallback struct {
	primary   Analyzer
	secondary Analyzer
}

// NewFallback composes primary and secondary into one [Analyzer].
func NewFallback(primary, secondary Analyzer) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

// Analyze runs the primary analyzer and, on error or an empty match list,
// the secondary. The secondary's error is only surfaced when the primary
// also failed.
func (f *Fallback) Analyze(ctx context.Context, docText, transcript string) (Result, error) {
	res, err := f.primary.Analyze(ctx, docText, transcript)
	if err == nil && len(res.Matches) > 0 {
		return res, nil
	}
	if err != nil {
		slog.Warn("match: primary analysis failed, using fallback", "err", err)
	}

	fb, fbErr := f.secondary.Analyze(ctx, docText, transcript)
	if fbErr != nil {
		if err != nil {
			return Result{}, err
		}
		return res, nil
	}
	if err == nil && res.Understanding != "" {
		fb.Understanding = res.Understanding
	}
	return fb, nil
}
