package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings": {"openai", "ollama"},
	"docparse":   {"fileextract"},
}

// Default values applied by [Validate] for zero-valued session settings.
const (
	DefaultAnalysisMinChars        = 10
	DefaultAnalysisDocumentBytes   = 3000
	DefaultAnalysisTranscriptBytes = 500
	DefaultMaxMatches              = 5
	DefaultMinExcerptChars         = 15
	DefaultHistoryCap              = 50
	DefaultChatHistoryWindow       = 10
	DefaultSummaryMinChars         = 50
	DefaultCookieName              = "sonoglot_session"
	DefaultTokenTTL                = 12 * time.Hour
)

// DefaultLanguages is the speech-recognition language cycle used when none is
// configured.
var DefaultLanguages = []string{"pt-BR", "en-US"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values and fills in
// defaults for zero-valued session and auth settings.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.Chat.Name)
	for _, fb := range cfg.Providers.ChatFallbacks {
		validateProviderName("llm", fb.Name)
	}
	validateProviderName("llm", cfg.Providers.Translate.Name)
	validateProviderName("llm", cfg.Providers.Analyze.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)
	validateProviderName("docparse", cfg.Providers.Docparse.Name)

	if cfg.Providers.Chat.Name == "" {
		slog.Warn("no chat provider configured; chat, translation, and analysis will be unavailable")
	}
	for i, fb := range cfg.Providers.ChatFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.chat_fallbacks[%d].name is required", i))
		}
	}

	// Session
	s := &cfg.Session
	if len(s.Languages) == 0 {
		s.Languages = slices.Clone(DefaultLanguages)
	}
	seen := make(map[string]int, len(s.Languages))
	for i, lang := range s.Languages {
		if lang == "" {
			errs = append(errs, fmt.Errorf("session.languages[%d] is empty", i))
			continue
		}
		if prev, ok := seen[lang]; ok {
			errs = append(errs, fmt.Errorf("session.languages[%d] %q is a duplicate of session.languages[%d]", i, lang, prev))
		}
		seen[lang] = i
	}
	if s.MatchStrategy == "" {
		s.MatchStrategy = MatchDelegated
	} else if !s.MatchStrategy.IsValid() {
		errs = append(errs, fmt.Errorf("session.match_strategy %q is invalid; valid values: delegated, local, semantic", s.MatchStrategy))
	}
	if s.MatchStrategy == MatchSemantic && cfg.Providers.Embeddings.Name == "" {
		errs = append(errs, errors.New("session.match_strategy semantic requires providers.embeddings"))
	}

	for _, f := range []struct {
		name string
		val  *int
		def  int
	}{
		{"session.analysis_min_chars", &s.AnalysisMinChars, DefaultAnalysisMinChars},
		{"session.analysis_document_bytes", &s.AnalysisDocumentBytes, DefaultAnalysisDocumentBytes},
		{"session.analysis_transcript_bytes", &s.AnalysisTranscriptBytes, DefaultAnalysisTranscriptBytes},
		{"session.max_matches", &s.MaxMatches, DefaultMaxMatches},
		{"session.min_excerpt_chars", &s.MinExcerptChars, DefaultMinExcerptChars},
		{"session.history_cap", &s.HistoryCap, DefaultHistoryCap},
		{"session.chat_history_window", &s.ChatHistoryWindow, DefaultChatHistoryWindow},
		{"session.summary_min_chars", &s.SummaryMinChars, DefaultSummaryMinChars},
	} {
		if *f.val < 0 {
			errs = append(errs, fmt.Errorf("%s %d must not be negative", f.name, *f.val))
		} else if *f.val == 0 {
			*f.val = f.def
		}
	}

	// Auth
	a := &cfg.Auth
	if a.Password != "" && a.TokenSecret == "" {
		errs = append(errs, errors.New("auth.token_secret is required when auth.password is set"))
	}
	if a.RotateAccessCodes && a.TokenSecret == "" {
		errs = append(errs, errors.New("auth.token_secret is required when auth.rotate_access_codes is enabled"))
	}
	if a.CookieName == "" {
		a.CookieName = DefaultCookieName
	}
	if a.TokenTTL < 0 {
		errs = append(errs, fmt.Errorf("auth.token_ttl %s must not be negative", a.TokenTTL))
	} else if a.TokenTTL == 0 {
		a.TokenTTL = DefaultTokenTTL
	}

	// History
	if cfg.History.SQLitePath == "" {
		slog.Warn("history.sqlite_path is empty; transcription history will not survive restarts")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
