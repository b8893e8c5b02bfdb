package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// RetentionStore is the pruning surface the janitor needs from persistence.
type RetentionStore interface {
	DeleteClosedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Janitor prunes closed alerts and raw metric samples on a cron schedule so
// the store does not grow without bound.
type Janitor struct {
	store        RetentionStore
	logger       *logrus.Logger
	clock        Clock
	cron         *cron.Cron
	alertMaxAge  time.Duration
	sampleMaxAge time.Duration
}

// NewJanitor creates a retention janitor.
func NewJanitor(store RetentionStore, logger *logrus.Logger, alertMaxAge, sampleMaxAge time.Duration) *Janitor {
	return &Janitor{
		store:        store,
		logger:       logger,
		clock:        SystemClock(),
		cron:         cron.New(),
		alertMaxAge:  alertMaxAge,
		sampleMaxAge: sampleMaxAge,
	}
}

// Start schedules the cleanup job. The schedule accepts standard cron specs
// and descriptors like "@hourly".
func (j *Janitor) Start(schedule string) error {
	_, err := j.cron.AddFunc(schedule, j.runCleanup)
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	j.cron.Start()
	j.logger.WithField("schedule", schedule).Info("Retention janitor started")
	return nil
}

// Stop halts the cron scheduler; a running cleanup finishes naturally.
func (j *Janitor) Stop() {
	j.cron.Stop()
	j.logger.Info("Retention janitor stopped")
}

func (j *Janitor) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := j.clock.Now()

	alerts, err := j.store.DeleteClosedBefore(ctx, now.Add(-j.alertMaxAge))
	if err != nil {
		j.logger.WithError(err).Error("Failed to prune closed alerts")
	}

	samples, err := j.store.DeleteSamplesBefore(ctx, now.Add(-j.sampleMaxAge))
	if err != nil {
		j.logger.WithError(err).Error("Failed to prune metric samples")
	}

	if alerts > 0 || samples > 0 {
		j.logger.WithFields(logrus.Fields{
			"alerts_pruned":  alerts,
			"samples_pruned": samples,
		}).Info("Retention cleanup completed")
	}
}
