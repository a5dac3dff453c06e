package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sonoglot/sonoglot/internal/document"
	"github.com/sonoglot/sonoglot/internal/history"
	"github.com/sonoglot/sonoglot/internal/match"
	"github.com/sonoglot/sonoglot/internal/session"
)

// handleSessionCreate starts a fresh session for clients that manage their
// own session IDs.
func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Manager.Create(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session_create_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"sessionId": sess.ID(),
		"languages": sess.Languages(),
	})
}

// handleSessionClose ends a session by ID.
func (s *Server) handleSessionClose(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == s.defaultSession.ID() {
		writeError(w, http.StatusBadRequest, "default_session", "the default session cannot be closed")
		return
	}
	if err := s.deps.Manager.Close(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "session_close_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"closed": id})
}

// handleChat proxies an assistant-chat exchange to the configured LLM.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_session", err.Error())
		return
	}

	var req session.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	resp, err := sess.Chat(r.Context(), req)
	if err != nil {
		if errors.Is(err, session.ErrChatUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "chat_unavailable", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "chat_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type translateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"targetLang"`
}

// handleTranslate translates a caption fragment.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Translator == nil {
		writeError(w, http.StatusServiceUnavailable, "translate_unavailable", "no translation provider configured")
		return
	}

	var req translateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" || req.TargetLang == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "text and targetLang are required")
		return
	}

	tr, err := s.deps.Translator.Translate(r.Context(), req.Text, req.TargetLang)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "translate_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

// handleUploadPDF ingests a reference document sent as the raw request body
// and installs it as the session's active document.
func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ingestor == nil {
		writeError(w, http.StatusServiceUnavailable, "docparse_unavailable", "no document extraction provider configured")
		return
	}
	sess, err := s.sessionFor(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_session", err.Error())
		return
	}

	name := r.Header.Get("X-Filename")
	if name == "" {
		name = "upload.pdf"
	}

	doc, err := s.deps.Ingestor.Ingest(r.Context(), name, r.Body)
	switch {
	case errors.Is(err, document.ErrNotPDF), errors.Is(err, document.ErrTooLarge):
		writeError(w, http.StatusBadRequest, "invalid_document", err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "ingest_failed", err.Error())
		return
	}

	sess.SetDocument(doc)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    doc.ID,
		"name":  doc.Name,
		"text":  doc.Text,
		"pages": doc.Pages,
	})
}

type analyzeContextRequest struct {
	SpokenText     string `json:"spokenText"`
	PDFText        string `json:"pdfText"`
	FullTranscript string `json:"fullTranscript"`
}

// handleAnalyzePDFContext matches spoken text against the reference document.
// The session's analysis guards apply: a request arriving while another
// analysis runs, or before the transcript has grown enough, is skipped.
func (s *Server) handleAnalyzePDFContext(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_session", err.Error())
		return
	}

	var req analyzeContextRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	docText := req.PDFText
	if docText == "" {
		if doc, ok := sess.Document(); ok {
			docText = doc.Text
		}
	}
	if strings.TrimSpace(docText) == "" {
		writeError(w, http.StatusBadRequest, "no_document", "no reference document available")
		return
	}

	transcript := req.FullTranscript
	if strings.TrimSpace(transcript) == "" {
		transcript = req.SpokenText
	}

	res, err := sess.AnalyzeContext(r.Context(), docText, transcript)
	switch {
	case errors.Is(err, match.ErrAnalysisInFlight), errors.Is(err, match.ErrBelowThreshold):
		writeJSON(w, http.StatusOK, map[string]any{"skipped": true, "reason": err.Error()})
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "analysis_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type analyzeRealtimeRequest struct {
	Text        string `json:"text"`
	FullContext string `json:"fullContext"`
	// ThinkingMode is accepted for client compatibility; realtime analysis
	// always runs in fast mode.
	ThinkingMode bool `json:"thinkingMode"`
}

// handleAnalyzeRealtime extracts live keywords and highlights from the recent
// speech window. Never fails outright: provider trouble degrades to local
// keyword extraction.
func (s *Server) handleAnalyzeRealtime(w http.ResponseWriter, r *http.Request) {
	if s.deps.Realtime == nil {
		writeError(w, http.StatusServiceUnavailable, "analysis_unavailable", "no analysis provider configured")
		return
	}

	var req analyzeRealtimeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" && strings.TrimSpace(req.FullContext) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "text is required")
		return
	}

	transcript := strings.TrimSpace(req.FullContext + "\n" + req.Text)
	res := s.deps.Realtime.Analyze(r.Context(), transcript)
	writeJSON(w, http.StatusOK, res)
}

// handleHistoryList returns all archived transcripts, most recent first.
func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history_unavailable", "no history store configured")
		return
	}
	entries, err := s.deps.History.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// handleHistoryArchive snapshots the current transcript and clears the board.
func (s *Server) handleHistoryArchive(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_session", err.Error())
		return
	}

	entry, err := sess.Archive(r.Context())
	switch {
	case errors.Is(err, history.ErrEmptyTranscript):
		writeError(w, http.StatusBadRequest, "empty_transcript", "nothing to archive")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "archive_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// handleHistoryLoad replaces the board with an archived transcript, archiving
// the current one first.
func (s *Server) handleHistoryLoad(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_session", err.Error())
		return
	}

	id := r.PathValue("id")
	if err := sess.LoadEntry(r.Context(), id); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "load_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"loaded": id, "transcript": sess.Transcript()})
}

// handleHistoryDelete removes an archived transcript.
func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history_unavailable", "no history store configured")
		return
	}
	id := r.PathValue("id")
	if err := s.deps.History.Delete(r.Context(), id); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "delete_failed", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExport downloads the current transcript as plain text.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_session", err.Error())
		return
	}

	name, data, err := history.Export(sess.Transcript(), time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "empty_transcript", "nothing to export")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		return
	}
}

// handleLanguage reports the active recognition language and the full cycle.
func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_session", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"language": sess.CurrentLanguage(),
		"cycle":    sess.Languages(),
	})
}

// handleLanguageRotate advances the recognition language cycle.
func (s *Server) handleLanguageRotate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_session", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"language": sess.RotateLanguage()})
}
