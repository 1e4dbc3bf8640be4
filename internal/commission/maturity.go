package commission

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MaturityJob periodically promotes commissions whose hold period has
// elapsed from PENDING to MATURED.
type MaturityJob struct {
	store    Store
	interval time.Duration
	logger   *zap.Logger
	stop     chan struct{}
	done     chan struct{}
}

func NewMaturityJob(store Store, interval time.Duration, logger *zap.Logger) *MaturityJob {
	return &MaturityJob{
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the job loop in a goroutine. One pass runs immediately so a
// restarted service does not wait a full interval to catch up.
func (j *MaturityJob) Start() {
	go func() {
		defer close(j.done)

		j.runOnce()

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.runOnce()
			case <-j.stop:
				return
			}
		}
	}()
	j.logger.Info("Commission maturity job started",
		zap.Duration("interval", j.interval),
	)
}

// Stop signals the loop to exit and waits for the in-flight pass to finish.
func (j *MaturityJob) Stop() {
	close(j.stop)
	<-j.done
	j.logger.Info("Commission maturity job stopped")
}

func (j *MaturityJob) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	matured, err := j.store.MatureDue(ctx, time.Now().UTC())
	if err != nil {
		j.logger.Error("Failed to mature commissions", zap.Error(err))
		return
	}
	if matured > 0 {
		j.logger.Info("Commissions matured", zap.Int64("count", matured))
	}
}
