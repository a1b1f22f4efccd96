package jobs

import (
	"context"
	"time"

	"ovation/internal/logger"
	"ovation/internal/service"
)

// SweepJob runs the order expiry sweep on a fixed interval. The interval is
// deliberately shorter than the effective cadence; the storage lease inside
// the service decides which tick actually sweeps, so extra instances of this
// job are harmless.
type SweepJob struct {
	reaper   *service.ReaperService
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewSweepJob(reaper *service.ReaperService, interval time.Duration) *SweepJob {
	return &SweepJob{
		reaper:   reaper,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (j *SweepJob) Start() {
	go j.run()
}

func (j *SweepJob) run() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	logger.Get().Info("Expiry sweep started", "interval", j.interval)

	for {
		select {
		case <-ticker.C:
			j.sweep()
		case <-j.stop:
			logger.Get().Info("Expiry sweep stopped")
			return
		}
	}
}

func (j *SweepJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), j.interval)
	defer cancel()

	result, err := j.reaper.Sweep(ctx)
	if err != nil {
		logger.Get().Error("Sweep failed", "error", err)
		return
	}
	if result.Skipped {
		return
	}
	if result.Expired > 0 || result.HoldsPurged > 0 {
		logger.Get().Info("Sweep completed",
			"expired_orders", result.Expired, "holds_purged", result.HoldsPurged)
	}
}

func (j *SweepJob) Stop() {
	close(j.stop)
	<-j.done
}
