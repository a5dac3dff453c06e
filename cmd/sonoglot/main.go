// Command sonoglot is the main entry point for the Sonoglot live-transcription server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sonoglot/sonoglot/internal/auth"
	"github.com/sonoglot/sonoglot/internal/config"
	"github.com/sonoglot/sonoglot/internal/document"
	"github.com/sonoglot/sonoglot/internal/gateway"
	"github.com/sonoglot/sonoglot/internal/health"
	"github.com/sonoglot/sonoglot/internal/history"
	"github.com/sonoglot/sonoglot/internal/match"
	"github.com/sonoglot/sonoglot/internal/observe"
	"github.com/sonoglot/sonoglot/internal/resilience"
	"github.com/sonoglot/sonoglot/internal/session"
	"github.com/sonoglot/sonoglot/internal/translate"
	"github.com/sonoglot/sonoglot/pkg/provider/docparse"
	"github.com/sonoglot/sonoglot/pkg/provider/docparse/fileextract"
	"github.com/sonoglot/sonoglot/pkg/provider/embeddings"
	ollamaembed "github.com/sonoglot/sonoglot/pkg/provider/embeddings/ollama"
	oaembed "github.com/sonoglot/sonoglot/pkg/provider/embeddings/openai"
	"github.com/sonoglot/sonoglot/pkg/provider/llm"
	"github.com/sonoglot/sonoglot/pkg/provider/llm/anyllm"
	oallm "github.com/sonoglot/sonoglot/pkg/provider/llm/openai"
)

const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "sonoglot: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "sonoglot: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger, logLevel := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("sonoglot starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	obsShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "sonoglot"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := obsShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── History store ─────────────────────────────────────────────────────────
	var store history.Store
	if cfg.History.SQLitePath != "" {
		s, err := history.NewSQLiteStore(ctx, cfg.History.SQLitePath, cfg.Session.HistoryCap)
		if err != nil {
			slog.Error("failed to open history store", "path", cfg.History.SQLitePath, "err", err)
			return 1
		}
		store = s
		slog.Info("history store opened", "backend", "sqlite", "path", cfg.History.SQLitePath)
	} else {
		store = history.NewMemoryStore(cfg.Session.HistoryCap)
		slog.Info("history store opened", "backend", "memory", "cap", cfg.Session.HistoryCap)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("history store close error", "err", err)
		}
	}()

	// ── Authentication ────────────────────────────────────────────────────────
	var authenticator *auth.Authenticator
	if cfg.Auth.Password != "" {
		signer := auth.NewTokenSigner(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
		var rotator *auth.CodeRotator
		if cfg.Auth.RotateAccessCodes {
			rotator = auth.NewCodeRotator()
		}
		authenticator = auth.NewAuthenticator(cfg.Auth.Password, signer, rotator)
		if code := authenticator.FirstCode(); code != "" {
			slog.Info("access code rotation enabled", "first_code", code)
		}
	}

	// ── Session manager ───────────────────────────────────────────────────────
	var (
		translator *translate.Translator
		summarizer translate.Summarizer
	)
	if providers.translate != nil {
		translator = translate.New(providers.translate)
		summarizer = translate.NewLLMSummarizer(providers.translate, cfg.Session.SummaryMinChars)
	}
	analyzer, semantic := buildAnalyzer(cfg, providers)
	manager := session.NewManager(session.Deps{
		Settings:        cfg.Session,
		Translator:      translator,
		Summarizer:      summarizer,
		Analyzer:        analyzer,
		AnalysisOptions: analysisOptions(cfg),
		Chat:            providers.chat,
		History:         store,
	})
	defer manager.CloseAll(context.Background())

	// ── Config hot-reload ─────────────────────────────────────────────────────
	// Log level and session settings follow edits to the config file; provider
	// changes still require a restart.
	watcher, err := config.NewWatcher(*configPath, func(old, updated *config.Config) {
		d := config.Diff(old, updated)
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.LanguagesChanged || d.AnalysisChanged {
			manager.UpdateSettings(updated.Session, analysisOptions(updated))
		}
	})
	if err != nil {
		slog.Warn("config hot-reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Gateway ───────────────────────────────────────────────────────────────
	var ingestor *document.Ingestor
	if providers.docparse != nil {
		var ingestOpts []document.Option
		if semantic != nil {
			// Embed document chunks at ingest so analyses reuse the vectors.
			ingestOpts = append(ingestOpts, document.WithWarmer(semantic))
		}
		ingestor = document.NewIngestor(providers.docparse, ingestOpts...)
	}

	healthHandler := health.New(
		health.Checker{Name: "history", Check: store.Ping},
		health.Checker{Name: "chat_provider", Check: func(context.Context) error {
			if providers.chat == nil {
				return errors.New("no chat provider configured")
			}
			return nil
		}},
	)

	srv, err := gateway.New(cfg, gateway.Deps{
		Manager:        manager,
		Translator:     translator,
		Ingestor:       ingestor,
		Realtime:       match.NewRealtime(providers.analyze),
		Auth:           authenticator,
		History:        store,
		Health:         healthHandler,
		MetricsHandler: promhttp.Handler(),
	})
	if err != nil {
		slog.Error("failed to initialise gateway", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Serve ─────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = httpServer.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// anyllmProviders lists the backends reached through the any-llm client.
// "openai" is deliberately absent: it uses the native client instead.
var anyllmProviders = []string{
	"anthropic", "gemini", "ollama",
	"deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oallm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oallm.WithBaseURL(entry.BaseURL))
		}
		return oallm.New(entry.APIKey, entry.Model, opts...)
	})

	for _, providerName := range anyllmProviders {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ── Embeddings ────────────────────────────────────────────────────────────

	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterEmbeddings("ollama", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		return ollamaembed.New(entry.BaseURL, entry.Model)
	})

	// ── Docparse ──────────────────────────────────────────────────────────────

	reg.RegisterDocparse("fileextract", func(entry config.ProviderEntry) (docparse.Provider, error) {
		var opts []fileextract.Option
		if entry.BaseURL != "" {
			opts = append(opts, fileextract.WithBaseURL(entry.BaseURL))
		}
		return fileextract.New(entry.APIKey, opts...)
	})
}

// builtProviders holds the instantiated providers the server runs with.
type builtProviders struct {
	chat       llm.Provider
	translate  llm.Provider
	analyze    llm.Provider
	embeddings embeddings.Provider
	docparse   docparse.Provider
}

// buildProviders instantiates all providers named in cfg. The translate and
// analyze roles fall back to the chat provider when not configured separately,
// and the chat provider is wrapped in a failover group when fallbacks are
// listed.
func buildProviders(cfg *config.Config, reg *config.Registry) (*builtProviders, error) {
	ps := &builtProviders{}

	if name := cfg.Providers.Chat.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.Chat)
		if err != nil {
			return nil, fmt.Errorf("create chat provider %q: %w", name, err)
		}
		ps.chat = p
		slog.Info("provider created", "kind", "chat", "name", name, "model", cfg.Providers.Chat.Model)

		if len(cfg.Providers.ChatFallbacks) > 0 {
			group := resilience.NewLLMFallback(p, name, resilience.FallbackConfig{})
			for _, entry := range cfg.Providers.ChatFallbacks {
				fb, err := reg.CreateLLM(entry)
				if err != nil {
					return nil, fmt.Errorf("create chat fallback %q: %w", entry.Name, err)
				}
				group.AddFallback(entry.Name, fb)
				slog.Info("provider created", "kind", "chat_fallback", "name", entry.Name, "model", entry.Model)
			}
			ps.chat = group
		}
	}

	ps.translate = ps.chat
	if name := cfg.Providers.Translate.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.Translate)
		if err != nil {
			return nil, fmt.Errorf("create translate provider %q: %w", name, err)
		}
		ps.translate = p
		slog.Info("provider created", "kind", "translate", "name", name, "model", cfg.Providers.Translate.Model)
	}

	ps.analyze = ps.chat
	if name := cfg.Providers.Analyze.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.Analyze)
		if err != nil {
			return nil, fmt.Errorf("create analyze provider %q: %w", name, err)
		}
		ps.analyze = p
		slog.Info("provider created", "kind", "analyze", "name", name, "model", cfg.Providers.Analyze.Model)
	}

	if name := cfg.Providers.Embeddings.Name; name != "" {
		p, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
		if err != nil {
			return nil, fmt.Errorf("create embeddings provider %q: %w", name, err)
		}
		ps.embeddings = p
		slog.Info("provider created", "kind", "embeddings", "name", name, "model", cfg.Providers.Embeddings.Model)
	}

	if name := cfg.Providers.Docparse.Name; name != "" {
		p, err := reg.CreateDocparse(cfg.Providers.Docparse)
		if err != nil {
			return nil, fmt.Errorf("create docparse provider %q: %w", name, err)
		}
		ps.docparse = p
		slog.Info("provider created", "kind", "docparse", "name", name)
	}

	return ps, nil
}

// buildAnalyzer assembles the context-matching strategy from config: delegated
// by default, plain local when requested, and the semantic ranker wrapping the
// delegated strategy when an embeddings provider is available. LLM-backed
// strategies are composed with the local analyzer so a failed or empty
// delegated call still produces matches. The semantic ranker is also returned
// separately so document ingestion can warm its chunk cache.
func buildAnalyzer(cfg *config.Config, ps *builtProviders) (match.Analyzer, *match.Semantic) {
	local := match.NewLocal(match.WithLocalMaxMatches(cfg.Session.MaxMatches))

	strategy := cfg.Session.MatchStrategy
	if strategy == config.MatchLocal || ps.analyze == nil {
		return local, nil
	}

	delegated := match.NewDelegated(ps.analyze,
		match.WithDocumentBytes(cfg.Session.AnalysisDocumentBytes),
		match.WithTranscriptBytes(cfg.Session.AnalysisTranscriptBytes),
		match.WithMaxMatches(cfg.Session.MaxMatches),
	)

	var primary match.Analyzer = delegated
	var semantic *match.Semantic
	if strategy == config.MatchSemantic && ps.embeddings != nil {
		semantic = match.NewSemantic(ps.embeddings, delegated)
		primary = semantic
	}
	return match.NewFallback(primary, local), semantic
}

func analysisOptions(cfg *config.Config) []match.EngineOption {
	return []match.EngineOption{
		match.WithMinGrowth(cfg.Session.AnalysisMinChars),
		match.WithMinExcerptChars(cfg.Session.MinExcerptChars),
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Sonoglot — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Chat", cfg.Providers.Chat.Name, cfg.Providers.Chat.Model)
	printProvider("Translate", cfg.Providers.Translate.Name, cfg.Providers.Translate.Model)
	printProvider("Analyze", cfg.Providers.Analyze.Name, cfg.Providers.Analyze.Model)
	printProvider("Embeddings", cfg.Providers.Embeddings.Name, cfg.Providers.Embeddings.Model)
	printProvider("Docparse", cfg.Providers.Docparse.Name, "")
	fmt.Printf("║  Languages       : %-19s ║\n", joinShort(cfg.Session.Languages))
	if cfg.History.SQLitePath != "" {
		fmt.Printf("║  History         : %-19s ║\n", "sqlite")
	} else {
		fmt.Printf("║  History         : %-19s ║\n", "in-memory")
	}
	if cfg.Auth.Password != "" {
		fmt.Printf("║  Auth            : %-19s ║\n", "enabled")
	} else {
		fmt.Printf("║  Auth            : %-19s ║\n", "(open)")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

func joinShort(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += s
	}
	if len(out) > 19 {
		out = out[:16] + "…"
	}
	return out
}

// ── Logger ─────────────────────────────────────────────────────────────────────

// newLogger builds the process logger. The returned LevelVar lets the config
// watcher change the level at runtime.
func newLogger(level config.LogLevel) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	lvl.Set(slogLevel(level))
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), lvl
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
