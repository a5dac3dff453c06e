// Package config provides the configuration schema, loader, and provider registry
// for the Sonoglot live-transcription server.
package config

import "time"

// LogLevel controls log verbosity for the Sonoglot server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// MatchStrategy selects how spoken text is matched against reference documents.
type MatchStrategy string

const (
	// MatchDelegated asks the analysis LLM to produce literal excerpts.
	MatchDelegated MatchStrategy = "delegated"

	// MatchLocal extracts keywords locally without any LLM round trip.
	MatchLocal MatchStrategy = "local"

	// MatchSemantic ranks document chunks with an embeddings provider before
	// delegating to the LLM.
	MatchSemantic MatchStrategy = "semantic"
)

// IsValid reports whether m is a recognised match strategy.
func (m MatchStrategy) IsValid() bool {
	switch m {
	case MatchDelegated, MatchLocal, MatchSemantic:
		return true
	}
	return false
}

// Config is the root configuration structure for Sonoglot.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Session   SessionConfig   `yaml:"session"`
	Auth      AuthConfig      `yaml:"auth"`
	History   HistoryConfig   `yaml:"history"`
}

// ServerConfig holds network and logging settings for the Sonoglot server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// StaticDir is the directory holding the browser client assets. When empty,
	// no static files are served.
	StaticDir string `yaml:"static_dir"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each
// concern. Each entry selects a named provider registered in the [Registry].
type ProvidersConfig struct {
	// Chat is the primary LLM used for conversational responses.
	Chat ProviderEntry `yaml:"chat"`

	// ChatFallbacks lists LLM providers tried in order when Chat fails or its
	// circuit breaker is open.
	ChatFallbacks []ProviderEntry `yaml:"chat_fallbacks"`

	// Translate is the LLM used for caption translation. When its Name is
	// empty, the Chat provider is reused.
	Translate ProviderEntry `yaml:"translate"`

	// Analyze is the LLM used for document context analysis. When its Name is
	// empty, the Chat provider is reused.
	Analyze ProviderEntry `yaml:"analyze"`

	// Embeddings configures the optional semantic ranking backend.
	Embeddings ProviderEntry `yaml:"embeddings"`

	// Docparse configures the document text-extraction backend.
	Docparse ProviderEntry `yaml:"docparse"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "fileextract").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o", "glm-4.5").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// SessionConfig tunes per-session transcription, translation, and analysis
// behaviour. Zero values are replaced by defaults during validation.
type SessionConfig struct {
	// Languages is the speech-recognition language cycle, in BCP 47 codes
	// (e.g., "pt-BR", "en-US"). The first entry is the initial language.
	Languages []string `yaml:"languages"`

	// MatchStrategy selects the context-matching mode. Default: delegated.
	MatchStrategy MatchStrategy `yaml:"match_strategy"`

	// AnalysisMinChars is the minimum transcript growth (in characters) since
	// the last analysis before a new one is started. Default: 10.
	AnalysisMinChars int `yaml:"analysis_min_chars"`

	// AnalysisDocumentBytes caps how much reference-document text is sent to
	// the analysis LLM. Default: 3000.
	AnalysisDocumentBytes int `yaml:"analysis_document_bytes"`

	// AnalysisTranscriptBytes caps how much recent transcript is sent to the
	// analysis LLM. Default: 500.
	AnalysisTranscriptBytes int `yaml:"analysis_transcript_bytes"`

	// MaxMatches caps the number of document excerpts requested per analysis.
	// Default: 5.
	MaxMatches int `yaml:"max_matches"`

	// MinExcerptChars is the minimum length of a document excerpt considered
	// for highlighting. Default: 15.
	MinExcerptChars int `yaml:"min_excerpt_chars"`

	// HistoryCap is the maximum number of stored transcription history entries;
	// the oldest entry is evicted when the cap is exceeded. Default: 50.
	HistoryCap int `yaml:"history_cap"`

	// ChatHistoryWindow is how many prior chat messages are replayed to the
	// chat LLM. Default: 10.
	ChatHistoryWindow int `yaml:"chat_history_window"`

	// SummaryMinChars is the minimum transcript length required before a
	// summary is generated. Default: 50.
	SummaryMinChars int `yaml:"summary_min_chars"`
}

// AuthConfig controls access to the server. When Password is empty, all
// authentication is disabled and every request is allowed.
type AuthConfig struct {
	// Password is the shared access password. Empty disables authentication.
	Password string `yaml:"password"`

	// TokenSecret is the HMAC key used to sign session tokens. Required when
	// Password is set.
	TokenSecret string `yaml:"token_secret"`

	// CookieName is the session cookie name. Default: "sonoglot_session".
	CookieName string `yaml:"cookie_name"`

	// TokenTTL is how long issued session tokens remain valid. Default: 12h.
	TokenTTL time.Duration `yaml:"token_ttl"`

	// RotateAccessCodes enables time-rotating access codes derived from
	// TokenSecret as an alternative to the static password.
	RotateAccessCodes bool `yaml:"rotate_access_codes"`
}

// HistoryConfig holds settings for the transcription history store.
type HistoryConfig struct {
	// SQLitePath is the path of the SQLite database file backing the history
	// store. When empty, history is kept in memory only.
	SQLitePath string `yaml:"sqlite_path"`
}
