// Package leanservice boots the insights service: storage, the enrichment
// extractor, the background pattern workers and the HTTP API.
package leanservice

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/spiffler33/lean-insights/internal/api"
	"github.com/spiffler33/lean-insights/internal/config"
	"github.com/spiffler33/lean-insights/internal/enrichment"
	"github.com/spiffler33/lean-insights/internal/logger"
	"github.com/spiffler33/lean-insights/internal/services"
	"github.com/spiffler33/lean-insights/internal/shardqueue"
	"github.com/spiffler33/lean-insights/internal/store"
	"github.com/spiffler33/lean-insights/internal/store/postgres"
	"github.com/spiffler33/lean-insights/internal/store/sqlite"
)

// Run starts the HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("lean-insights")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Store unavailable")
		return err
	}

	exec := shardqueue.NewShardExecutor(shardqueue.Config{
		Shards:    cfg.QueueShards,
		QueueSize: cfg.QueueSize,
		ErrorHandler: func(err error) {
			// dead letter: the entry itself is safe, only derived state is
			// stale until the next recompute
			log.Warn().Err(err).Msg("pattern job dropped after retries")
		},
	})
	defer exec.Stop()

	svc := services.NewJournalService(st, newExtractor(cfg, log), exec, log)
	router := api.NewRouter(svc, st, log)

	server := &http.Server{
		Addr:         cfg.GetHTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Str("db_driver", cfg.DBDriver).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Bootstrap(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info().Msg("postgres store ready")
		return postgres.NewWithDB(db), nil
	default:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite store ready")
		return s, nil
	}
}

func newExtractor(cfg *config.Config, log zerolog.Logger) enrichment.Extractor {
	if cfg.OllamaURL == "" {
		log.Info().Msg("no extractor configured, entries stay unenriched")
		return enrichment.Noop()
	}
	return enrichment.NewOllama(cfg.OllamaURL, cfg.OllamaModel,
		time.Duration(cfg.ExtractTimeout)*time.Second, log)
}
