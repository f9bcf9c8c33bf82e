package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jobtrack/application-tracker/internal/analytics"
	"github.com/jobtrack/application-tracker/internal/logging"
	"github.com/jobtrack/application-tracker/internal/models"
)

// Source supplies the application list a dashboard is computed from.
// *tracker.Service and *HTTPSource both implement it.
type Source interface {
	ListApplications(ctx context.Context) ([]models.Application, error)
}

// Snapshot is one computed dashboard.
type Snapshot struct {
	Report       analytics.Report `json:"report"`
	Applications int              `json:"applications"`
	RefreshedAt  time.Time        `json:"refreshedAt"`
}

// Refresher periodically recomputes the dashboard from a Source.
type Refresher struct {
	source   Source
	interval time.Duration
	logger   logging.Logger
	now      func() time.Time

	mu        sync.RWMutex
	latest    *Snapshot
	onRefresh func(Snapshot)
}

// NewRefresher creates a refresher. A non-positive interval falls back to 10s.
func NewRefresher(source Source, interval time.Duration, logger logging.Logger) *Refresher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Refresher{
		source:   source,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// OnRefresh registers a callback invoked after every successful refresh.
func (r *Refresher) OnRefresh(fn func(Snapshot)) {
	r.mu.Lock()
	r.onRefresh = fn
	r.mu.Unlock()
}

// Start refreshes immediately and then on every tick until ctx is canceled.
// Failed refreshes are logged and the previous snapshot is kept.
func (r *Refresher) Start(ctx context.Context) error {
	if _, err := r.Refresh(ctx); err != nil {
		r.logger.Warn("initial dashboard refresh failed", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Refresh(ctx); err != nil {
				r.logger.Warn("dashboard refresh failed", "error", err)
			}
		}
	}
}

// Refresh fetches the list once and recomputes the report.
func (r *Refresher) Refresh(ctx context.Context) (Snapshot, error) {
	apps, err := r.source.ListApplications(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to fetch applications: %w", err)
	}

	snap := Snapshot{
		Report:       analytics.Summarize(apps),
		Applications: len(apps),
		RefreshedAt:  r.now().UTC(),
	}

	r.mu.Lock()
	r.latest = &snap
	fn := r.onRefresh
	r.mu.Unlock()

	r.logger.Debug("dashboard refreshed", "applications", snap.Applications)
	if fn != nil {
		fn(snap)
	}
	return snap, nil
}

// Latest returns the most recent snapshot, if any.
func (r *Refresher) Latest() (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.latest == nil {
		return Snapshot{}, false
	}
	return *r.latest, true
}
