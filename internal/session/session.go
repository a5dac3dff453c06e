// Package session implements the per-connection transcription session and the
// manager that tracks all live sessions.
//
// A [Session] owns every piece of mutable per-connection state: the caption
// board, the language rotator, the active reference document, and the
// single-flight analysis engine. It consumes transcript fragments from a
// capture stream, fans finalized fragments out to translation, summarisation,
// and context analysis, and attaches the asynchronous results back onto the
// board block that produced them.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sonoglot/sonoglot/internal/caption"
	"github.com/sonoglot/sonoglot/internal/capture"
	"github.com/sonoglot/sonoglot/internal/config"
	"github.com/sonoglot/sonoglot/internal/document"
	"github.com/sonoglot/sonoglot/internal/history"
	"github.com/sonoglot/sonoglot/internal/match"
	"github.com/sonoglot/sonoglot/internal/observe"
	"github.com/sonoglot/sonoglot/internal/translate"
	"github.com/sonoglot/sonoglot/pkg/provider/llm"
	"github.com/sonoglot/sonoglot/pkg/types"
)

// translationFailedMarker is attached in place of a translation when the
// provider call fails. The original caption text is never modified.
const translationFailedMarker = "⚠ tradução indisponível"

// summaryFailedMarker is attached in place of a summary on provider failure.
const summaryFailedMarker = "⚠ resumo indisponível"

// permissionDeniedMarker is broadcast when the browser blocks microphone
// access. The session stops consuming and recording is not retried.
const permissionDeniedMarker = "⚠ acesso ao microfone negado"

// analysisBuffer is the capacity of the analysis result channel. Results are
// dropped when no consumer keeps up; the latest result stays available via
// [Session.LastAnalysis].
const analysisBuffer = 4

// Deps holds all collaborators a [Session] needs. Nil optional fields disable
// the corresponding feature. Each session gets its own analysis [match.Engine]
// built from Analyzer, so the growth tracker and the single-flight gate never
// leak between sessions.
type Deps struct {
	Settings        config.SessionConfig
	Translator      *translate.Translator
	Summarizer      translate.Summarizer
	Analyzer        match.Analyzer
	AnalysisOptions []match.EngineOption
	Chat            llm.Provider
	History         history.Store
	Metrics         *observe.Metrics
}

// Session is one live transcription session. All exported methods are safe
// for concurrent use.
type Session struct {
	id        string
	startedAt time.Time
	settings  config.SessionConfig

	board      *caption.Board
	translator *translate.Translator
	summarizer translate.Summarizer
	engine     *match.Engine
	chat       llm.Provider
	history    history.Store
	metrics    *observe.Metrics

	analyses chan match.Result

	mu           sync.Mutex
	rotator      *capture.Rotator
	doc          *document.Document
	targetLang   string // "" = translation off
	summarize    bool
	lastAnalysis *match.Result

	wg     sync.WaitGroup
	closed bool
}

// New creates a session with the given ID.
func New(id string, deps Deps) (*Session, error) {
	langs := deps.Settings.Languages
	if len(langs) == 0 {
		langs = config.DefaultLanguages
	}
	rotator, err := capture.NewRotator(langs)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	var engine *match.Engine
	if deps.Analyzer != nil {
		engine = match.NewEngine(deps.Analyzer, deps.AnalysisOptions...)
	}
	return &Session{
		id:         id,
		startedAt:  time.Now().UTC(),
		settings:   deps.Settings,
		board:      caption.NewBoard(),
		translator: deps.Translator,
		summarizer: deps.Summarizer,
		engine:     engine,
		chat:       deps.Chat,
		history:    deps.History,
		metrics:    metrics,
		rotator:    rotator,
		analyses:   make(chan match.Result, analysisBuffer),
	}, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Board returns the session's caption board.
func (s *Session) Board() *caption.Board { return s.board }

// Transcript returns the finalized transcript accumulated so far.
func (s *Session) Transcript() string { return s.board.Transcript() }

// Analyses returns the channel of context-analysis results. Results are
// dropped when the channel is full; [Session.LastAnalysis] always holds the
// most recent one.
func (s *Session) Analyses() <-chan match.Result { return s.analyses }

// LastAnalysis returns the most recent analysis result, if any.
func (s *Session) LastAnalysis() (match.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastAnalysis == nil {
		return match.Result{}, false
	}
	return *s.lastAnalysis, true
}

// Consume folds fragments and control events from stream into the caption
// board until the stream closes, a fatal control event arrives, or ctx is
// cancelled, then waits for in-flight attachment work.
func (s *Session) Consume(ctx context.Context, stream capture.Stream) {
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return
		case frag, ok := <-stream.Fragments():
			if !ok {
				s.wg.Wait()
				return
			}
			s.apply(ctx, frag)
		case ev, ok := <-stream.Controls():
			if !ok {
				s.wg.Wait()
				return
			}
			if fatal := s.handleControl(ev); fatal {
				s.wg.Wait()
				return
			}
		}
	}
}

// handleControl reacts to one client control event. Returns true when the
// event ends consumption: permission denial is fatal and not retried.
func (s *Session) handleControl(ev capture.ControlEvent) bool {
	switch ev.Kind {
	case capture.ControlPermissionDenied:
		slog.Warn("session: microphone permission denied",
			"session_id", s.id, "detail", ev.Detail)
		s.board.NotifyError(permissionDeniedMarker)
		return true
	case capture.ControlNoSpeech:
		if lang := s.rotateIfMultiple(); lang != "" {
			s.board.NotifyLanguage(lang)
		}
	case capture.ControlScroll:
		s.board.SetFollowing(ev.AtBottom)
	}
	return false
}

// rotateIfMultiple advances the language cycle and returns the new language,
// or "" when fewer than two languages are configured.
func (s *Session) rotateIfMultiple() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rotator.Languages()) < 2 {
		return ""
	}
	return s.rotator.Next()
}

// apply folds one fragment into the board and kicks off asynchronous work for
// finals.
func (s *Session) apply(ctx context.Context, frag types.TranscriptFragment) {
	ev := s.board.Apply(frag)
	if !frag.IsFinal {
		return
	}

	s.metrics.RecordCaptionFinalized(ctx, ev.Block.Lang)

	s.mu.Lock()
	targetLang := s.targetLang
	summarize := s.summarize && s.summarizer != nil
	analyzable := s.engine != nil && s.doc != nil
	s.mu.Unlock()

	// Translation and summary are independent calls; neither blocks the
	// other or the board.
	if targetLang != "" && s.translator != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.translateBlock(ctx, ev.Block, targetLang)
		}()
	}
	if summarize {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.summarizeBlock(ctx, ev.Block)
		}()
	}
	if analyzable {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.analyze(ctx)
		}()
	}

	// Each finalized utterance advances the recognition language cycle so a
	// multilingual speaker is picked up in whichever language comes next.
	if lang := s.rotateIfMultiple(); lang != "" {
		s.board.NotifyLanguage(lang)
	}
}

func (s *Session) translateBlock(ctx context.Context, blk caption.Block, targetLang string) {
	start := time.Now()
	tr, err := s.translator.Translate(ctx, blk.Text, targetLang)
	s.metrics.TranslationDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		slog.Warn("session: translation failed",
			"session_id", s.id, "block_id", blk.ID, "err", err)
		s.board.AttachTranslation(blk.ID, translationFailedMarker)
		return
	}
	s.board.AttachTranslation(blk.ID, tr.Text)
}

func (s *Session) summarizeBlock(ctx context.Context, blk caption.Block) {
	summary, err := s.summarizer.Summarize(ctx, blk.Text)
	if errors.Is(err, translate.ErrTranscriptTooShort) {
		return
	}
	if err != nil {
		slog.Warn("session: summary failed",
			"session_id", s.id, "block_id", blk.ID, "err", err)
		s.board.AttachSummary(blk.ID, summaryFailedMarker)
		return
	}
	s.board.AttachSummary(blk.ID, summary)
}

func (s *Session) analyze(ctx context.Context) {
	s.mu.Lock()
	doc := s.doc
	s.mu.Unlock()
	if doc == nil {
		return
	}

	start := time.Now()
	res, err := s.engine.Analyze(ctx, doc.Text, s.board.Transcript())
	switch {
	case errors.Is(err, match.ErrAnalysisInFlight):
		s.metrics.AnalysesDropped.Add(ctx, 1)
		return
	case errors.Is(err, match.ErrBelowThreshold):
		return
	case err != nil:
		slog.Warn("session: context analysis failed", "session_id", s.id, "err", err)
		return
	}
	s.metrics.AnalysisDuration.Record(ctx, time.Since(start).Seconds())

	s.mu.Lock()
	s.lastAnalysis = &res
	s.mu.Unlock()

	select {
	case s.analyses <- res:
	default:
		// No consumer keeping up; LastAnalysis still has it.
	}
}

// AnalyzeContext runs one guarded context analysis on demand, outside the
// fragment pipeline. The engine's growth and single-flight guards still apply;
// callers should treat [match.ErrBelowThreshold] and [match.ErrAnalysisInFlight]
// as a skip, not a failure.
func (s *Session) AnalyzeContext(ctx context.Context, docText, transcript string) (match.Result, error) {
	if s.engine == nil {
		return match.Result{}, errors.New("session: no analysis engine configured")
	}

	start := time.Now()
	res, err := s.engine.Analyze(ctx, docText, transcript)
	if err != nil {
		if errors.Is(err, match.ErrAnalysisInFlight) {
			s.metrics.AnalysesDropped.Add(ctx, 1)
		}
		return match.Result{}, err
	}
	s.metrics.AnalysisDuration.Record(ctx, time.Since(start).Seconds())

	s.mu.Lock()
	s.lastAnalysis = &res
	s.mu.Unlock()
	return res, nil
}

// SetDocument installs doc as the session's active reference document and
// resets the analysis growth tracker. A session holds at most one document.
func (s *Session) SetDocument(doc *document.Document) {
	s.mu.Lock()
	s.doc = doc
	s.lastAnalysis = nil
	s.mu.Unlock()
	if s.engine != nil {
		s.engine.Reset()
	}
}

// Document returns the active reference document, if any.
func (s *Session) Document() (*document.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc, s.doc != nil
}

// ClearDocument removes the active reference document.
func (s *Session) ClearDocument() { s.SetDocument(nil) }

// EnableTranslation switches on per-block translation into targetLang
// (ISO 639-1). An empty targetLang switches translation off.
func (s *Session) EnableTranslation(targetLang string) {
	s.mu.Lock()
	s.targetLang = targetLang
	s.mu.Unlock()
}

// EnableSummaries switches per-block summarisation on or off.
func (s *Session) EnableSummaries(on bool) {
	s.mu.Lock()
	s.summarize = on
	s.mu.Unlock()
}

// CurrentLanguage returns the active recognition language.
func (s *Session) CurrentLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotator.Current()
}

// RotateLanguage advances the recognition language cycle and returns the new
// active language.
func (s *Session) RotateLanguage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotator.Next()
}

// Languages returns the configured recognition language cycle.
func (s *Session) Languages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotator.Languages()
}

// Archive snapshots the current transcript into the history store and clears
// the board. Returns [history.ErrEmptyTranscript] when there is nothing worth
// keeping; the board is left untouched in that case.
func (s *Session) Archive(ctx context.Context) (history.Entry, error) {
	if s.history == nil {
		return history.Entry{}, errors.New("session: no history store configured")
	}
	entry, err := s.history.Save(ctx, s.board.Transcript())
	if err != nil {
		return history.Entry{}, err
	}
	s.board.Clear()
	if s.engine != nil {
		s.engine.Reset()
	}
	return entry, nil
}

// LoadEntry replaces the board contents with an archived transcript. The
// current transcript is archived first (best-effort, skipped when empty).
func (s *Session) LoadEntry(ctx context.Context, id string) error {
	if s.history == nil {
		return errors.New("session: no history store configured")
	}
	entry, err := s.history.Get(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.Archive(ctx); err != nil && !errors.Is(err, history.ErrEmptyTranscript) {
		return fmt.Errorf("session: archive before load: %w", err)
	}

	s.board.Clear()
	s.board.Apply(types.TranscriptFragment{
		Text:    entry.Text,
		IsFinal: true,
		Lang:    s.CurrentLanguage(),
	})
	if s.engine != nil {
		s.engine.Reset()
	}
	return nil
}

// Close archives the remaining transcript (best-effort) and waits for
// in-flight attachment work. Safe to call once per session.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.history != nil {
		if _, err := s.history.Save(ctx, s.board.Transcript()); err != nil && !errors.Is(err, history.ErrEmptyTranscript) {
			slog.Warn("session: final archive failed", "session_id", s.id, "err", err)
		}
	}
	s.wg.Wait()
	return nil
}
