package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/sonoglot/sonoglot/internal/config"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
  static_dir: ./web
providers:
  chat:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
  chat_fallbacks:
    - name: ollama
      model: llama3.1
  translate:
    name: openai
    model: gpt-4o-mini
  docparse:
    name: fileextract
    api_key: zp-test
session:
  languages: ["pt-BR", "en-US"]
  analysis_min_chars: 20
auth:
  password: hunter2
  token_secret: super-secret
history:
  sqlite_path: /tmp/sonoglot.db
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Providers.Chat.Name != "openai" {
		t.Errorf("chat provider = %q, want openai", cfg.Providers.Chat.Name)
	}
	if len(cfg.Providers.ChatFallbacks) != 1 || cfg.Providers.ChatFallbacks[0].Name != "ollama" {
		t.Errorf("chat_fallbacks = %+v, want one ollama entry", cfg.Providers.ChatFallbacks)
	}
	if got := cfg.Session.Languages; len(got) != 2 || got[0] != "pt-BR" {
		t.Errorf("languages = %v, want [pt-BR en-US]", got)
	}
	if cfg.Session.AnalysisMinChars != 20 {
		t.Errorf("analysis_min_chars = %d, want 20", cfg.Session.AnalysisMinChars)
	}
	if cfg.History.SQLitePath != "/tmp/sonoglot.db" {
		t.Errorf("sqlite_path = %q, want /tmp/sonoglot.db", cfg.History.SQLitePath)
	}
}

func TestLoadFromReader_AppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(`
providers:
  chat:
    name: openai
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := cfg.Session.Languages; len(got) == 0 {
		t.Error("languages default not applied")
	}
	if cfg.Session.MatchStrategy != config.MatchDelegated {
		t.Errorf("match_strategy = %q, want delegated", cfg.Session.MatchStrategy)
	}
	if cfg.Session.AnalysisMinChars != config.DefaultAnalysisMinChars {
		t.Errorf("analysis_min_chars = %d, want %d", cfg.Session.AnalysisMinChars, config.DefaultAnalysisMinChars)
	}
	if cfg.Session.HistoryCap != config.DefaultHistoryCap {
		t.Errorf("history_cap = %d, want %d", cfg.Session.HistoryCap, config.DefaultHistoryCap)
	}
	if cfg.Auth.CookieName != config.DefaultCookieName {
		t.Errorf("cookie_name = %q, want %q", cfg.Auth.CookieName, config.DefaultCookieName)
	}
	if cfg.Auth.TokenTTL != 12*time.Hour {
		t.Errorf("token_ttl = %s, want 12h", cfg.Auth.TokenTTL)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
server:
  listen_address: ":8080"
`))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
server:
  log_level: bananas
`))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error %q does not mention log_level", err)
	}
}

func TestValidate_PasswordRequiresTokenSecret(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
auth:
  password: hunter2
`))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "token_secret") {
		t.Errorf("error %q does not mention token_secret", err)
	}
}

func TestValidate_SemanticStrategyRequiresEmbeddings(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
session:
  match_strategy: semantic
`))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "embeddings") {
		t.Errorf("error %q does not mention embeddings", err)
	}
}

func TestValidate_DuplicateLanguages(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
session:
  languages: ["pt-BR", "pt-BR"]
`))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error %q does not mention duplicate", err)
	}
}

func TestValidate_NegativeSessionValue(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
session:
  history_cap: -1
`))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "history_cap") {
		t.Errorf("error %q does not mention history_cap", err)
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
server:
  log_level: loud
session:
  analysis_min_chars: -5
auth:
  password: hunter2
`))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"log_level", "analysis_min_chars", "token_secret"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidate_TLSRequiresBothFiles(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(`
server:
  tls:
    cert_file: /etc/sonoglot/cert.pem
`))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "key_file") {
		t.Errorf("error %q does not mention key_file", err)
	}
}
