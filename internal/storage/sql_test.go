package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobtrack/application-tracker/internal/config"
	"github.com/jobtrack/application-tracker/internal/models"
	"github.com/jobtrack/application-tracker/internal/patch"
)

// newTestStore creates a new in-memory SQLite store with schema applied.
func newTestStore(t *testing.T) *sqlStore {
	t.Helper()

	s, err := newSQLiteStore(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func strPtr(s string) *string { return &s }

func newApp(company, date string) models.NewApplication {
	return models.NewApplication{
		Company:    company,
		Position:   "Backend Engineer",
		Source:     "LinkedIn",
		Date:       date,
		Status:     models.StatusApplied,
		Automation: models.AutomationManual,
	}
}

func TestSQLStore_CreateApplication(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := newApp("Acme", "2025-01-05")
	in.Salary = 72000.5
	in.Notes = strPtr("referral from Sam")

	created, err := s.CreateApplication(ctx, in)
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.Equal(t, "Acme", created.Company)
	assert.Equal(t, "2025-01-05", created.Date)
	assert.Equal(t, 72000.5, created.Salary)
	assert.Nil(t, created.Location)
	require.NotNil(t, created.Notes)
	assert.Equal(t, "referral from Sam", *created.Notes)

	second, err := s.CreateApplication(ctx, newApp("Globex", "2025-01-06"))
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, second.ID)
}

func TestSQLStore_CreateApplication_EmptyDate(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateApplication(context.Background(), newApp("Acme", ""))
	require.NoError(t, err)
	assert.Equal(t, "", created.Date)
}

func TestSQLStore_ListApplications_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, d := range []string{"2025-01-01", "2025-03-01", "", "2025-02-01"} {
		_, err := s.CreateApplication(ctx, newApp("Co "+d, d))
		require.NoError(t, err)
	}

	apps, err := s.ListApplications(ctx, 50)
	require.NoError(t, err)

	require.Len(t, apps, 4)
	assert.Equal(t, "2025-03-01", apps[0].Date)
	assert.Equal(t, "2025-02-01", apps[1].Date)
	assert.Equal(t, "2025-01-01", apps[2].Date)
	assert.Equal(t, "", apps[3].Date)
}

func TestSQLStore_ListApplications_Limit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 55; i++ {
		_, err := s.CreateApplication(ctx, newApp(fmt.Sprintf("Co %d", i), "2025-01-01"))
		require.NoError(t, err)
	}

	apps, err := s.ListApplications(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, apps, 50)
	assert.Greater(t, apps[0].ID, apps[1].ID)
}

func TestSQLStore_ListApplications_Empty(t *testing.T) {
	s := newTestStore(t)

	apps, err := s.ListApplications(context.Background(), 50)
	require.NoError(t, err)
	assert.NotNil(t, apps)
	assert.Empty(t, apps)
}

func TestSQLStore_UpdateApplication_OnlySuppliedFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := newApp("Acme", "2025-01-05")
	in.Location = strPtr("Remote")
	created, err := s.CreateApplication(ctx, in)
	require.NoError(t, err)

	var p patch.Patch
	require.NoError(t, p.Set(patch.Salary, "50000"))

	updated, err := s.UpdateApplication(ctx, created.ID, p)
	require.NoError(t, err)

	assert.Equal(t, 50000.0, updated.Salary)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.Company, updated.Company)
	assert.Equal(t, created.Position, updated.Position)
	assert.Equal(t, created.Source, updated.Source)
	assert.Equal(t, created.Date, updated.Date)
	assert.Equal(t, created.Status, updated.Status)
	assert.Equal(t, created.Location, updated.Location)
}

func TestSQLStore_UpdateApplication_ExplicitNull(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := newApp("Acme", "2025-01-05")
	in.Notes = strPtr("call back")
	created, err := s.CreateApplication(ctx, in)
	require.NoError(t, err)

	p, err := patch.Decode([]byte(`{"notes":null,"status":"Interview"}`))
	require.NoError(t, err)

	updated, err := s.UpdateApplication(ctx, created.ID, p)
	require.NoError(t, err)
	assert.Nil(t, updated.Notes)
	assert.Equal(t, models.StatusInterview, updated.Status)
}

func TestSQLStore_UpdateApplication_NotFound(t *testing.T) {
	s := newTestStore(t)

	var p patch.Patch
	require.NoError(t, p.Set(patch.Status, "Offer"))

	_, err := s.UpdateApplication(context.Background(), 999, p)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestSQLStore_UpdateApplication_NoFields(t *testing.T) {
	s := newTestStore(t)

	_, err := s.UpdateApplication(context.Background(), 1, patch.Patch{})
	assert.ErrorIs(t, err, models.ErrNoFieldsProvided)
}

func TestSQLStore_DeleteApplication(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateApplication(ctx, newApp("Acme", "2025-01-05"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteApplication(ctx, created.ID))

	err = s.DeleteApplication(ctx, created.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	apps, err := s.ListApplications(ctx, 50)
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestSQLStore_Logs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, action := range []string{"first", "second", "third"} {
		_, err := s.AppendLog(ctx, models.AutomationLog{
			Source:  "LinkedIn",
			Action:  action,
			Status:  models.LogSuccess,
			Details: "details " + action,
			Date:    base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	logs, err := s.ListLogs(ctx, 2)
	require.NoError(t, err)

	require.Len(t, logs, 2)
	assert.Equal(t, "third", logs[0].Action)
	assert.Equal(t, "second", logs[1].Action)
	assert.True(t, logs[0].Date.Equal(base.Add(2*time.Hour)), "got %s", logs[0].Date)
	assert.NotZero(t, logs[0].ID)
}

func TestSQLStore_ReadOnlyTables(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.Exec(`INSERT INTO automation_integrations (from_app, to_app, status) VALUES ('Gmail', 'Notion', 'Active'), ('LinkedIn', 'Sheets', 'Paused')`)
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO status_data (name, value) VALUES ('Applied', 12)`)
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO job_board_data (name, usage) VALUES ('LinkedIn', 7)`)
	require.NoError(t, err)

	integrations, err := s.ListIntegrations(ctx)
	require.NoError(t, err)
	require.Len(t, integrations, 2)
	assert.Equal(t, "Gmail", integrations[0].FromApp)
	assert.Equal(t, "Sheets", integrations[1].ToApp)

	status, err := s.ListStatusData(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.StatusDatum{{Name: "Applied", Value: 12}}, status)

	boards, err := s.ListJobBoardData(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.JobBoardDatum{{Name: "LinkedIn", Usage: 7}}, boards)
}

func TestSQLStore_Users(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	missing, err := s.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := s.CreateUser(ctx, "ada@example.com", "Ada", "hash")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = s.CreateUser(ctx, "ada@example.com", "Ada Again", "hash2")
	assert.True(t, errors.Is(err, models.ErrConflict))

	found, err := s.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)
}

func TestSQLStore_Ping(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestNewStorage_Unsupported(t *testing.T) {
	_, err := NewStorage(config.StorageConfig{Type: "cassandra"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage type")
}
