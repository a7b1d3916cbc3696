// Command scriptforge batch-processes downloaded video transcripts into
// structured documents through an AI text-generation provider.
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
	"go.opentelemetry.io/otel"

	"scriptforge/internal/config"
	"scriptforge/internal/discovery"
	"scriptforge/internal/observe"
	"scriptforge/internal/output"
	"scriptforge/internal/pipeline"
	"scriptforge/internal/prompt"
	"scriptforge/internal/resilience"
	"scriptforge/pkg/provider/llm"
	"scriptforge/pkg/provider/llm/anyllm"
	"scriptforge/pkg/provider/llm/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	inputDir := flag.String("input", "", "transcript directory (overrides input_dir from the config)")
	reprocess := flag.Bool("reprocess", false, "regenerate records that already have output")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "scriptforge: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "scriptforge: %v\n", err)
		}
		return 1
	}
	if *inputDir != "" {
		cfg.InputDir = *inputDir
	}
	if cfg.InputDir == "" {
		fmt.Fprintln(os.Stderr, "scriptforge: no input directory; set input_dir in the config or pass -input")
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("scriptforge starting",
		"config", *configPath,
		"input", cfg.InputDir,
		"output", cfg.OutputDir,
		"provider", cfg.Provider,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics (optional) ────────────────────────────────────────────────────
	var metrics *observe.Metrics
	if cfg.MetricsAddr != "" {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
		if err != nil {
			slog.Error("failed to initialise metrics", "err", err)
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Warn("metrics shutdown error", "err", err)
			}
		}()

		metrics, err = observe.NewMetrics(otel.GetMeterProvider())
		if err != nil {
			slog.Error("failed to create metric instruments", "err", err)
			return 1
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Warn("metrics server stopped", "err", err)
			}
		}()
		slog.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	// ── Provider ──────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	provider, err := reg.Create(cfg.Provider, cfg.Providers[cfg.Provider])
	if err != nil {
		slog.Error("failed to build provider", "provider", cfg.Provider, "err", err)
		return 1
	}

	// ── Prompts ───────────────────────────────────────────────────────────────
	prompts := prompt.NewStore(prompt.Default())
	if cfg.PromptsFile != "" {
		watcher, initial, err := prompt.NewWatcher(cfg.PromptsFile, func(tpl prompt.Template) {
			prompts.Replace(tpl)
			slog.Info("prompt template reloaded", "name", tpl.Name, "path", cfg.PromptsFile)
		})
		if err != nil {
			slog.Error("failed to load prompts file", "path", cfg.PromptsFile, "err", err)
			return 1
		}
		defer watcher.Stop()
		prompts.Replace(initial)
	}

	// ── Records ───────────────────────────────────────────────────────────────
	records, err := discovery.Scan(cfg.InputDir, cfg.Recursive)
	if err != nil {
		slog.Error("failed to scan input directory", "dir", cfg.InputDir, "err", err)
		return 1
	}
	if len(records) == 0 {
		slog.Info("no transcript files found, nothing to do", "dir", cfg.InputDir)
		return 0
	}

	// ── Output store ──────────────────────────────────────────────────────────
	store, err := output.Open(cfg.OutputDir)
	if err != nil {
		slog.Error("failed to open output directory", "dir", cfg.OutputDir, "err", err)
		return 1
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	orch, err := pipeline.New(pipeline.Config{
		Provider: provider,
		Prompts:  prompts,
		Index:    store,
		Writer:   store,
		Retry: resilience.Config{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Backoff:     cfg.Retry.Backoff.Std(),
			MaxBackoff:  cfg.Retry.MaxBackoff.Std(),
		},
		Workers:     cfg.Workers,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Reprocess:   *reprocess,
		Sink:        logEvent,
		Metrics:     metrics,
	})
	if err != nil {
		slog.Error("failed to assemble pipeline", "err", err)
		return 1
	}

	submitted := orch.Submit(records)
	slog.Info("batch ready", "files", len(records), "jobs", submitted)

	go func() {
		<-ctx.Done()
		slog.Info("cancellation requested, finishing current job")
		orch.Cancel()
	}()

	if err := orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	counts := orch.Counts()
	fmt.Printf("\n%d of %d files processed (%d skipped, %d failed, %d cancelled)\n",
		counts[pipeline.StateSucceeded], submitted,
		counts[pipeline.StateSkipped], counts[pipeline.StateFailed], counts[pipeline.StateCancelled])

	if counts[pipeline.StateFailed] > 0 {
		return 1
	}
	return 0
}

// logEvent renders pipeline events for the terminal.
func logEvent(ev pipeline.Event) {
	switch ev.Type {
	case pipeline.EventTypeState:
		switch {
		case ev.To == pipeline.StateFailed:
			slog.Error("job failed", "key", ev.Key, "reason", ev.Reason, "err", ev.Message, "attempts", ev.Attempt)
		case ev.To == pipeline.StateProcessing && ev.From == pipeline.StateProcessing:
			slog.Warn("retrying", "key", ev.Key, "attempt", ev.Attempt, "err", ev.Message)
		case ev.To == pipeline.StateSucceeded:
			slog.Info("job succeeded", "key", ev.Key, "output", ev.Message)
		default:
			slog.Info("job "+ev.To.String(), "key", ev.Key)
		}
	case pipeline.EventTypeCompleted:
		// Run counts are printed by run().
	}
}

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// openai goes through the official SDK so HTTP status codes drive failure
	// classification directly.
	reg.Register("openai", func(_ string, entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if entry.Timeout > 0 {
			opts = append(opts, openai.WithTimeout(entry.Timeout.Std()))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	// All other backends share the any-llm-go pattern: optional APIKey +
	// optional BaseURL.
	for _, name := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq",
		"ollama", "llamacpp", "llamafile",
	} {
		reg.Register(name, func(name string, entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(name, entry.Model, opts...)
		})
	}
}

// newLogger builds the process-wide slog logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
