package main

import (
	"os"
	"os/signal"
	"syscall"

	"ovation/cmd/reaper/jobs"
	"ovation/internal/cache"
	"ovation/internal/clock"
	"ovation/internal/config"
	"ovation/internal/database"
	"ovation/internal/external"
	"ovation/internal/logger"
	"ovation/internal/messaging"
	"ovation/internal/repository"
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

	if availCache, err := cache.New(cfg.Cache); err != nil {
		log.Warn("Redis unavailable, availability cache disabled", "error", err)
	} else {
		deps.Cache = availCache
		defer availCache.Close()
	}

	var nats *messaging.NATSClient
	if nats, err = messaging.NewNATSClient(cfg.NATS); err != nil {
		log.Warn("NATS unavailable, event consumption disabled", "error", err)
		nats = nil
	} else {
		deps.Publisher = nats
		defer nats.Close()
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(cfg, repos, deps)

	sweep := jobs.NewSweepJob(services.Reaper, cfg.ReaperInterval)
	sweep.Start()
	defer sweep.Stop()

	if nats != nil {
		consumer := jobs.NewPaymentConsumer(services.Orders, nats)
		if err := consumer.Start(); err != nil {
			log.Error("Failed to start payment consumer", "error", err)
		} else {
			defer consumer.Stop()
		}
	}

	log.Info("Reaper started", "interval", cfg.ReaperInterval, "debounce", cfg.ReaperDebounce)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down reaper...")
}
