package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ovation/internal/api"
	"ovation/internal/cache"
	"ovation/internal/clock"
	"ovation/internal/config"
	"ovation/internal/database"
	"ovation/internal/external"
	"ovation/internal/handlers"
	"ovation/internal/logger"
	"ovation/internal/messaging"
	"ovation/internal/repository"
	"ovation/internal/search"
	"ovation/internal/service"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	deps := service.Deps{
		Gateway: external.NewPaymentClient(cfg.Payment),
		Clock:   clock.System(),
	}

	// Cache, messaging and search are optional: the service runs
	// database-only when they are unreachable.
	if availCache, err := cache.New(cfg.Cache); err != nil {
		log.Warn("Redis unavailable, availability cache disabled", "error", err)
	} else {
		deps.Cache = availCache
		defer availCache.Close()
	}

	if nats, err := messaging.NewNATSClient(cfg.NATS); err != nil {
		log.Warn("NATS unavailable, event publishing disabled", "error", err)
	} else {
		deps.Publisher = nats
		defer nats.Close()
	}

	esCfg := config.LoadElasticsearchConfig()
	if es, err := search.NewElasticsearchClient(esCfg); err != nil {
		log.Warn("Elasticsearch unavailable, catalog search disabled", "error", err)
	} else {
		deps.Indexer = es
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(cfg, repos, deps)
	handler := handlers.NewHandler(services)
	server := api.NewServer(cfg, handler)

	go func() {
		log.Info("Starting API server", "port", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", "error", err)
	}
	log.Info("Server stopped")
}
