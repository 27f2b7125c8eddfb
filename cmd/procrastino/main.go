// Package main is the procrastino daemon entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/procrastino/procrastino/internal/ai"
	"github.com/procrastino/procrastino/internal/auth"
	"github.com/procrastino/procrastino/internal/cache"
	"github.com/procrastino/procrastino/internal/config"
	"github.com/procrastino/procrastino/internal/db"
	"github.com/procrastino/procrastino/internal/db/postgres"
	"github.com/procrastino/procrastino/internal/db/sqlite"
	"github.com/procrastino/procrastino/internal/engine"
	"github.com/procrastino/procrastino/internal/roast"
	"github.com/procrastino/procrastino/internal/server"
	"github.com/procrastino/procrastino/internal/server/sse"
	"github.com/procrastino/procrastino/internal/watcher"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	port := flag.Int("port", 0, "HTTP port (default: settings or 3000)")
	dataDir := flag.String("data-dir", "", "Data directory (default: ~/.procrastino)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load settings, using defaults")
		cfg = config.Default()
	}
	if *port != 0 {
		cfg.Port = *port
	}

	dbPath := config.DBPath()
	if *dataDir != "" {
		dbPath = *dataDir + "/procrastino.db"
	}

	store, err := openStore(cfg, dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer store.Close()

	lbCache := cache.New(cfg.RedisAddr, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	defer lbCache.Close()

	broadcaster := sse.NewBroadcaster()
	eng := engine.New(store, broadcaster)
	ranker := engine.NewRanker(store, lbCache)
	tokens := auth.NewTokens(cfg.JWTSecret)

	aiClient := ai.NewClient(ai.Config{
		BaseURL: cfg.AIBaseURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		Timeout: time.Duration(cfg.AITimeoutSeconds) * time.Second,
	})
	if !aiClient.Configured() {
		log.Warn().Msg("No AI API key configured, planner routes will degrade to fallbacks")
	}

	catalog, err := roast.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load roast catalog, using built-ins")
		catalog = roast.NewCatalog()
	}

	svc := server.New(Version, cfg, store, eng, ranker, tokens, aiClient, catalog, broadcaster)
	defer svc.Close()

	// Settings edits trigger a clean exit so the supervisor restarts the
	// daemon with the new configuration.
	reloadCh := make(chan struct{}, 1)
	settingsWatcher, err := watcher.New(config.SettingsPath(), func() {
		select {
		case reloadCh <- struct{}{}:
		default:
		}
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create settings watcher")
	} else if err := settingsWatcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start settings watcher")
	} else {
		defer settingsWatcher.Stop()
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("version", Version).Str("driver", cfg.DBDriver).
			Msg("procrastino listening")
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	case <-reloadCh:
		log.Info().Msg("Settings file changed, exiting for supervisor restart")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Graceful shutdown timed out")
	}
}

func openStore(cfg *config.Config, dbPath string) (db.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		if cfg.PGDSN == "" {
			return nil, fmt.Errorf("postgres driver selected but no DSN configured")
		}
		return postgres.NewStore(postgres.StoreConfig{
			DSN:      cfg.PGDSN,
			MaxConns: cfg.MaxConns,
		})
	case "", "sqlite":
		return sqlite.NewStore(sqlite.StoreConfig{
			Path:     dbPath,
			MaxConns: cfg.MaxConns,
			WALMode:  true,
		})
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}
