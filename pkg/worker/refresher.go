package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/echocare/caregiver-api/pkg/logger"
	"github.com/echocare/caregiver-api/pkg/metrics"
)

// StaleRefresher reloads stale dashboard data. dashboard.Store implements it.
type StaleRefresher interface {
	RefreshStale(ctx context.Context) (int, error)
}

type RefresherConfig struct {
	Interval      time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// Refresher periodically refreshes stale, expanded dashboard entries of
// live boards.
type Refresher struct {
	target  StaleRefresher
	config  RefresherConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewRefresher(target StaleRefresher, config RefresherConfig, log *logger.Logger, m *metrics.Metrics) *Refresher {
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Refresher{
		target:  target,
		config:  config,
		logger:  log.Named("dashboard-refresher"),
		metrics: m,
	}
}

// Start blocks until ctx is cancelled. A zero interval disables the loop.
func (r *Refresher) Start(ctx context.Context) {
	if r.config.Interval <= 0 {
		r.logger.Info("Dashboard refresher disabled")
		return
	}
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.logger.Info("Starting dashboard refresher", "interval", r.config.Interval.String())

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Shutting down dashboard refresher")
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error(err, "Failed to refresh dashboards")
			}
		}
	}
}

// RunOnce performs a single refresh pass.
func (r *Refresher) RunOnce(ctx context.Context) error {
	var entries int
	err := retry(ctx, r.config.RetryAttempts, r.config.RetryDelay, func() error {
		n, err := r.target.RefreshStale(ctx)
		entries = n
		return err
	})
	if err != nil {
		r.metrics.RefreshRun("error")
		return fmt.Errorf("failed to refresh stale boards: %w", err)
	}
	r.metrics.RefreshRun("success")
	if entries > 0 {
		r.logger.Debug("Refreshed dashboard entries", "entries", entries)
	}
	return nil
}

func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}
