// Command llmgate runs the provider gateway service: it loads the YAML
// configuration, constructs one adapter per configured vendor, and serves
// the NDJSON conversation API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"llmgate/config"
	"llmgate/gateway"
	"llmgate/providers/ai"
	"llmgate/providers/ai/anthropic"
	"llmgate/providers/ai/azureopenai"
	"llmgate/providers/ai/gemini"
	"llmgate/providers/ai/mistral"
	"llmgate/providers/ai/openai"
	obsslog "llmgate/providers/observability/slog"
	"llmgate/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	logLevel := flag.String("log-level", "info", "log level: trace, debug, info, warn, error")
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	providers, err := buildProviders(cfg)
	if err != nil {
		return err
	}

	registry, err := gateway.NewRegistry(providers...)
	if err != nil {
		return err
	}
	budgets, err := cfg.BudgetTable()
	if err != nil {
		return err
	}

	gw := gateway.New(registry, budgets, gateway.NewClassifier(cfg.Language), gateway.Options{
		FirstByteTimeout:  cfg.Stream.FirstByteTimeout.Std(),
		InterChunkTimeout: cfg.Stream.InterChunkTimeout.Std(),
	})
	srv := server.New(gw, obsslog.New(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Start(cfg.Server.Address())
	}()
	logger.Info("Gateway listening",
		"address", cfg.Server.Address(),
		"providers", registry.Providers(),
		"language", cfg.Language,
	)

	select {
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildProviders constructs one adapter per configured vendor. A
// configuration that validated still fails here when an adapter rejects
// its settings; both are startup failures.
func buildProviders(cfg *config.Config) ([]ai.StreamProvider, error) {
	providers := make([]ai.StreamProvider, 0, len(cfg.Providers))
	for id, settings := range cfg.Providers {
		provider, err := buildProvider(id, settings)
		if err != nil {
			return nil, fmt.Errorf("configuring provider %q: %w", id, err)
		}
		providers = append(providers, provider)
	}
	return providers, nil
}

func buildProvider(id ai.ProviderID, settings config.ProviderSettings) (ai.StreamProvider, error) {
	switch id {
	case ai.ProviderAzureOpenAI:
		return azureopenai.New(azureopenai.Config{
			Endpoint:   settings.Endpoint,
			APIKey:     settings.APIKey,
			Deployment: settings.Deployment,
			APIVersion: settings.APIVersion,
		})
	case ai.ProviderClaude:
		return anthropic.New(anthropic.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.Endpoint,
			Model:   settings.Model,
		})
	case ai.ProviderMistral:
		return mistral.New(mistral.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.Endpoint,
			Model:   settings.Model,
		})
	case ai.ProviderGemini:
		return gemini.New(gemini.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.Endpoint,
			Model:   settings.Model,
		})
	case ai.ProviderOpenAIDirect:
		return openai.New(openai.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.Endpoint,
			Model:   settings.Model,
		})
	}
	return nil, fmt.Errorf("no adapter for provider %q", id)
}

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "trace":
		slogLevel = obsslog.LevelTrace
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       slogLevel,
		ReplaceAttr: obsslog.ReplaceAttr,
	}))
}
