// Package gateway is the HTTP surface of the Sonoglot server.
//
// It exposes the JSON API the browser client talks to (chat, translation,
// document upload, context analysis, history), the caption WebSocket, health
// and metrics endpoints, and static file serving for the client assets. All
// requests pass through the observe middleware; API and WebSocket routes sit
// behind the auth middleware when a password is configured.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sonoglot/sonoglot/internal/auth"
	"github.com/sonoglot/sonoglot/internal/config"
	"github.com/sonoglot/sonoglot/internal/document"
	"github.com/sonoglot/sonoglot/internal/health"
	"github.com/sonoglot/sonoglot/internal/history"
	"github.com/sonoglot/sonoglot/internal/match"
	"github.com/sonoglot/sonoglot/internal/observe"
	"github.com/sonoglot/sonoglot/internal/session"
	"github.com/sonoglot/sonoglot/internal/translate"
)

// sessionHeader carries the client's session ID. Requests without it fall
// back to the server's default session.
const sessionHeader = "X-Session-ID"

// Deps holds the gateway's collaborators. Manager is required; nil optional
// fields disable the corresponding endpoints.
type Deps struct {
	Manager    *session.Manager
	Translator *translate.Translator
	Ingestor   *document.Ingestor
	Realtime   *match.Realtime
	Auth       *auth.Authenticator
	History    history.Store
	Metrics    *observe.Metrics
	Health     *health.Handler

	// MetricsHandler serves GET /metrics (the Prometheus exporter bridge).
	MetricsHandler http.Handler
}

// Server handles all HTTP traffic for Sonoglot.
type Server struct {
	cfg  *config.Config
	deps Deps

	// defaultSession backs clients that do not manage session IDs
	// themselves (the single-user browser client).
	defaultSession *session.Session
}

// New creates the gateway and its default session.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Manager == nil {
		return nil, errors.New("gateway: session manager is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}

	def, err := deps.Manager.Create(context.Background())
	if err != nil {
		return nil, fmt.Errorf("gateway: create default session: %w", err)
	}
	return &Server{cfg: cfg, deps: deps, defaultSession: def}, nil
}

// DefaultSessionID returns the ID of the server's default session.
func (s *Server) DefaultSessionID() string { return s.defaultSession.ID() }

// Handler assembles the full route table wrapped in the observe middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Unguarded: probes, metrics, and the login flow itself.
	if s.deps.Health != nil {
		s.deps.Health.Register(mux)
	}
	if s.deps.MetricsHandler != nil {
		mux.Handle("GET /metrics", s.deps.MetricsHandler)
	}
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/check-auth", s.handleCheckAuth)

	// Guarded API.
	mux.HandleFunc("POST /api/session", s.guard(s.handleSessionCreate))
	mux.HandleFunc("DELETE /api/session/{id}", s.guard(s.handleSessionClose))
	mux.HandleFunc("POST /api/chat", s.guard(s.handleChat))
	mux.HandleFunc("POST /api/translate", s.guard(s.handleTranslate))
	mux.HandleFunc("POST /api/upload-pdf", s.guard(s.handleUploadPDF))
	mux.HandleFunc("POST /api/analyze-pdf-context", s.guard(s.handleAnalyzePDFContext))
	mux.HandleFunc("POST /api/analyze-realtime", s.guard(s.handleAnalyzeRealtime))
	mux.HandleFunc("GET /api/history", s.guard(s.handleHistoryList))
	mux.HandleFunc("POST /api/history/archive", s.guard(s.handleHistoryArchive))
	mux.HandleFunc("POST /api/history/{id}/load", s.guard(s.handleHistoryLoad))
	mux.HandleFunc("DELETE /api/history/{id}", s.guard(s.handleHistoryDelete))
	mux.HandleFunc("GET /api/export", s.guard(s.handleExport))
	mux.HandleFunc("GET /api/language", s.guard(s.handleLanguage))
	mux.HandleFunc("POST /api/language/rotate", s.guard(s.handleLanguageRotate))
	mux.HandleFunc("GET /ws/captions", s.guard(s.handleCaptions))

	// Static client assets with index.html fallback.
	mux.Handle("/", s.staticHandler())

	return observe.Middleware(s.deps.Metrics)(mux)
}

// sessionFor resolves the session a request addresses: the X-Session-ID
// header (or ?session= query) when present, the default session otherwise.
func (s *Server) sessionFor(r *http.Request) (*session.Session, error) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		id = r.URL.Query().Get("session")
	}
	if id == "" {
		return s.defaultSession, nil
	}
	sess, ok := s.deps.Manager.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown session %q", id)
	}
	return sess, nil
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("gateway: encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

// decodeJSON decodes the request body into v, rejecting unknown garbage
// gracefully.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	return nil
}
