package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/api"
	"github.com/MikeSquared-Agency/scribe/internal/assistants"
	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/hermes"
	"github.com/MikeSquared-Agency/scribe/internal/history"
	"github.com/MikeSquared-Agency/scribe/internal/identity"
	"github.com/MikeSquared-Agency/scribe/internal/pipeline"
	"github.com/MikeSquared-Agency/scribe/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.Info("scribe starting", "port", cfg.Port, "store", cfg.StoreBackend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Document store
	db, err := store.Open(ctx, store.Options{
		Backend:       cfg.StoreBackend,
		DatabaseURL:   cfg.DatabaseURL,
		MongoURL:      cfg.MongoURL,
		MongoDatabase: cfg.MongoDatabase,
		SQLitePath:    cfg.SQLitePath,
	})
	if err != nil {
		slog.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("store connected", "backend", cfg.StoreBackend)

	hist := history.New(db, slog.Default())

	// Assistants API
	llm := assistants.NewClient(cfg.OpenAIAPIKey, assistants.Options{
		BaseURL:      cfg.OpenAIBaseURL,
		PollInterval: cfg.PollInterval,
		MaxPolls:     cfg.MaxPolls,
	})
	slog.Info("assistants client ready", "base_url", cfg.OpenAIBaseURL, "max_polls", cfg.MaxPolls)

	// NATS/Hermes (optional; scribe works without events)
	var events pipeline.Publisher
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		events = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, running without events")
	}

	stages := pipeline.Stages(cfg.Assistants)
	proc := pipeline.New(llm, hist, events, stages, slog.Default())

	srv := api.NewServer(cfg.Port, api.Options{
		Pipeline:        proc,
		History:         hist,
		Identity:        identity.New(cfg.DefaultUserID, cfg.UserIDHeader, cfg.JWTSecret),
		PipelineTimeout: cfg.PipelineTimeout,
		Logger:          slog.Default(),
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	if hermesClient != nil {
		names := make([]string, 0, len(stages))
		for _, st := range stages {
			if st.AssistantID != "" {
				names = append(names, st.Name)
			}
		}
		if err := hermesClient.Publish(hermes.SubjectRegistered, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
			"stages":    names,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("scribe ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	// In-flight pipelines get the full pipeline timeout to finish.
	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.PipelineTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	cancel()
	slog.Info("scribe stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
