package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aaronzipp/sus-server/internal/catalog"
	"github.com/aaronzipp/sus-server/internal/config"
	"github.com/aaronzipp/sus-server/internal/feed"
	"github.com/aaronzipp/sus-server/internal/game"
	"github.com/aaronzipp/sus-server/internal/handlers"
	"github.com/aaronzipp/sus-server/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cat, err := catalog.Load(cfg.LocationsFile, cfg.QuestionsFile)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	logger.Info("catalog loaded", "locations", cat.Size(), "categories", cat.Categories(), "max_players", cat.MaxCapacity())

	var publisher feed.Publisher = feed.Discard{}
	if cfg.NatsURL != "" {
		nc, err := feed.Connect(cfg.NatsURL, cfg.NatsPrefix, logger)
		if err != nil {
			logger.Error("failed to start nats feed", "error", err)
			os.Exit(1)
		}
		publisher = nc
		logger.Info("publishing room feed to nats", "url", cfg.NatsURL, "prefix", cfg.NatsPrefix)
	}
	defer publisher.Close()

	registry := store.NewRegistry(game.Deps{
		Catalog:     cat,
		Rand:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		Now:         time.Now,
		EventBuffer: cfg.EventBuffer,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go store.RunJanitor(ctx, registry, cfg.JanitorInterval, cfg.LobbyTTL, logger, publisher.RoomExpired)

	app := &handlers.Context{
		Registry: registry,
		Catalog:  cat,
		Feed:     publisher,
		Logger:   logger,

		PublicURL: cfg.PublicURL,
	}
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverStopped := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Addr(), "lobby_ttl", cfg.LobbyTTL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverStopped <- err
		}
		close(serverStopped)
	}()

	select {
	case err := <-serverStopped:
		if err != nil {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	// closing every room ends open sockets, which Shutdown does not wait for
	registry.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
