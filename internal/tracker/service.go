package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jobtrack/application-tracker/internal/analytics"
	"github.com/jobtrack/application-tracker/internal/dispatch"
	"github.com/jobtrack/application-tracker/internal/logging"
	"github.com/jobtrack/application-tracker/internal/models"
	"github.com/jobtrack/application-tracker/internal/notify"
	"github.com/jobtrack/application-tracker/internal/patch"
	"github.com/jobtrack/application-tracker/internal/storage"
)

// List caps used by the recent-applications and logs views.
const (
	RecentLimit = 50
	LogLimit    = 50
)

// ActionJobApplied is the log action recorded for every insert.
const ActionJobApplied = "Job Applied"

// Clock abstracts time retrieval so log timestamps are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Submitter accepts best-effort background work. *dispatch.Dispatcher
// implements it.
type Submitter interface {
	Submit(t dispatch.Task) error
}

// Service is the application-record workflow shared by the HTTP and CLI
// surfaces.
type Service struct {
	store    storage.Storage
	jobs     Submitter
	notifier notify.Notifier
	logger   logging.Logger
	clock    Clock
}

// NewService creates a new tracker service
func NewService(store storage.Storage, jobs Submitter, notifier notify.Notifier, logger logging.Logger, clock Clock) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Service{
		store:    store,
		jobs:     jobs,
		notifier: notifier,
		logger:   logger,
		clock:    clock,
	}
}

func storeErr(op string, err error) error {
	if models.Classified(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStore, err)
}

// ListApplications returns the most recent applications, newest date first.
func (s *Service) ListApplications(ctx context.Context) ([]models.Application, error) {
	apps, err := s.store.ListApplications(ctx, RecentLimit)
	if err != nil {
		return nil, storeErr("failed to list applications", err)
	}
	return apps, nil
}

// CreateApplication validates and inserts a new record, then schedules the
// notifier call and the automation log entry. Neither side effect can fail
// the insert; the created row is always returned once the store accepts it.
func (s *Service) CreateApplication(ctx context.Context, in models.NewApplication) (*models.Application, error) {
	in.Company = strings.TrimSpace(in.Company)
	in.Position = strings.TrimSpace(in.Position)
	if in.Company == "" {
		return nil, models.Validationf("company is required")
	}
	if in.Position == "" {
		return nil, models.Validationf("position is required")
	}
	if in.Salary < 0 {
		return nil, models.Validationf("salary must not be negative")
	}
	if in.Automation == "" {
		in.Automation = models.AutomationManual
	}
	if in.Location != nil && strings.TrimSpace(*in.Location) == "" {
		in.Location = nil
	}

	created, err := s.store.CreateApplication(ctx, in)
	if err != nil {
		return nil, storeErr("failed to create application", err)
	}
	s.logger.Info("application created", "id", created.ID, "company", created.Company)

	s.scheduleSideEffects(*created)
	return created, nil
}

func (s *Service) scheduleSideEffects(app models.Application) {
	source := analytics.SourceKey(app.Source)
	entry := models.AutomationLog{
		Source:  source,
		Action:  ActionJobApplied,
		Status:  models.LogSuccess,
		Details: fmt.Sprintf("Applied to %s at %s via %s", app.Position, app.Company, source),
		Date:    s.clock.Now(),
	}

	s.submit(dispatch.Task{
		Name: "notify",
		Run: func(ctx context.Context) error {
			return s.notifier.Notify(ctx, app)
		},
	})
	s.submit(dispatch.Task{
		Name: "automation-log",
		Run: func(ctx context.Context) error {
			_, err := s.store.AppendLog(ctx, entry)
			return err
		},
	})
}

func (s *Service) submit(t dispatch.Task) {
	if s.jobs == nil {
		s.logger.Warn("no dispatcher configured, skipping side effect", "task", t.Name)
		return
	}
	if err := s.jobs.Submit(t); err != nil {
		s.logger.Debug("side effect not scheduled", "task", t.Name, "error", err)
	}
}

// UpdateApplication applies a partial update and returns the full record.
func (s *Service) UpdateApplication(ctx context.Context, id int64, p patch.Patch) (*models.Application, error) {
	if p.Empty() {
		return nil, models.ErrNoFieldsProvided
	}
	if v, ok := p.Get(patch.Company); ok && isBlank(v) {
		return nil, models.Validationf("company must not be empty")
	}
	if v, ok := p.Get(patch.Position); ok && isBlank(v) {
		return nil, models.Validationf("position must not be empty")
	}

	updated, err := s.store.UpdateApplication(ctx, id, p)
	if err != nil {
		return nil, storeErr(fmt.Sprintf("failed to update application %d", id), err)
	}
	s.logger.Info("application updated", "id", id, "fields", p.String())
	return updated, nil
}

func isBlank(v any) bool {
	s, ok := v.(string)
	return !ok || strings.TrimSpace(s) == ""
}

// DeleteApplication removes a record permanently.
func (s *Service) DeleteApplication(ctx context.Context, id int64) error {
	if err := s.store.DeleteApplication(ctx, id); err != nil {
		return storeErr(fmt.Sprintf("failed to delete application %d", id), err)
	}
	s.logger.Info("application deleted", "id", id)
	return nil
}

// ListLogs returns the most recent automation log entries.
func (s *Service) ListLogs(ctx context.Context) ([]models.AutomationLog, error) {
	logs, err := s.store.ListLogs(ctx, LogLimit)
	if err != nil {
		return nil, storeErr("failed to list automation logs", err)
	}
	return logs, nil
}

// AutomationSummary counts successful and failed recent log entries.
func (s *Service) AutomationSummary(ctx context.Context) (analytics.AutomationStats, error) {
	logs, err := s.ListLogs(ctx)
	if err != nil {
		return analytics.AutomationStats{}, err
	}
	return analytics.AutomationSummary(logs), nil
}

// ListIntegrations returns the configured integrations.
func (s *Service) ListIntegrations(ctx context.Context) ([]models.Integration, error) {
	out, err := s.store.ListIntegrations(ctx)
	if err != nil {
		return nil, storeErr("failed to list integrations", err)
	}
	return out, nil
}

// StatusData returns the precomputed status table.
func (s *Service) StatusData(ctx context.Context) ([]models.StatusDatum, error) {
	out, err := s.store.ListStatusData(ctx)
	if err != nil {
		return nil, storeErr("failed to list status data", err)
	}
	return out, nil
}

// JobBoardData returns the precomputed job board table.
func (s *Service) JobBoardData(ctx context.Context) ([]models.JobBoardDatum, error) {
	out, err := s.store.ListJobBoardData(ctx)
	if err != nil {
		return nil, storeErr("failed to list job board data", err)
	}
	return out, nil
}

// Report aggregates the recent applications into every dashboard view.
func (s *Service) Report(ctx context.Context) (analytics.Report, error) {
	apps, err := s.ListApplications(ctx)
	if err != nil {
		return analytics.Report{}, err
	}
	return analytics.Summarize(apps), nil
}

// Export renders the recent applications as CSV in the given mode.
func (s *Service) Export(ctx context.Context, mode string) (string, error) {
	if mode != analytics.ModeSummary && mode != analytics.ModeDetailed {
		return "", models.Validationf("unknown export mode %q", mode)
	}

	apps, err := s.ListApplications(ctx)
	if err != nil {
		return "", err
	}
	if mode == analytics.ModeSummary {
		return analytics.SummaryCSV(analytics.MonthlySeries(apps)), nil
	}
	return analytics.DetailedCSV(apps), nil
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
