package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wikithread/talkparse/internal/api"
	"github.com/wikithread/talkparse/internal/config"
	"github.com/wikithread/talkparse/internal/permastore"
	"github.com/wikithread/talkparse/internal/pipeline"
	"github.com/wikithread/talkparse/internal/thread"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	parserCfg, err := cfg.ParserConfig()
	if err != nil {
		log.Error("invalid locale configuration", "error", err)
		os.Exit(1)
	}
	parser, err := thread.NewParser(parserCfg)
	if err != nil {
		log.Error("invalid timestamp format", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store *permastore.Client
	if cfg.StoreURL != "" {
		store = permastore.NewClient(cfg.StoreURL, cfg.StoreAPIKey)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, parser, store, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(parser, orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if store != nil {
			store.Close()
		}
	}()

	log.Info("starting talkparse", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
