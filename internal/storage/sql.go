package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jobtrack/application-tracker/internal/models"
	"github.com/jobtrack/application-tracker/internal/patch"
)

// dialect captures what differs between the SQL backends.
type dialect struct {
	name        string
	placeholder patch.Placeholder
	schema      []string
	// dateColumn selects the application date as YYYY-MM-DD text.
	dateColumn string
	// classify maps a driver error into the error taxonomy, or returns nil
	// when the error is not recognized.
	classify func(error) error
}

// sqlStore implements Storage on database/sql. PostgreSQL and SQLite share it.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

func newSQLStore(db *sql.DB, d dialect) *sqlStore {
	return &sqlStore{db: db, d: d}
}

// ensureSchema creates missing tables. It never alters existing ones.
func (s *sqlStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (s *sqlStore) applicationColumns() string {
	return "id, company, position, COALESCE(source, ''), " + s.d.dateColumn +
		", COALESCE(status, ''), COALESCE(automation, ''), COALESCE(salary, 0), location, notes"
}

func (s *sqlStore) placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = s.d.placeholder(i + 1)
	}
	return strings.Join(ph, ", ")
}

func (s *sqlStore) wrap(op string, err error) error {
	if classified := s.d.classify(err); classified != nil {
		return fmt.Errorf("%s: %w", op, classified)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrStore, err)
}

// ListApplications returns up to limit records, newest date first.
func (s *sqlStore) ListApplications(ctx context.Context, limit int) ([]models.Application, error) {
	query := "SELECT " + s.applicationColumns() + " FROM " + tableApplications +
		" ORDER BY " + tableApplications + ".date DESC NULLS LAST, id DESC LIMIT " + s.d.placeholder(1)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, s.wrap("failed to query applications", err)
	}
	defer rows.Close()

	apps := []models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, s.wrap("failed to scan application", err)
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("failed to iterate applications", err)
	}
	return apps, nil
}

// CreateApplication inserts a record and returns it with its assigned id.
func (s *sqlStore) CreateApplication(ctx context.Context, app models.NewApplication) (*models.Application, error) {
	query := "INSERT INTO " + tableApplications +
		" (company, position, source, date, status, automation, salary, location, notes) VALUES (" +
		s.placeholders(9) + ") RETURNING " + s.applicationColumns()

	row := s.db.QueryRowContext(ctx, query,
		app.Company, app.Position, app.Source, dateArg(app.Date), app.Status,
		app.Automation, app.Salary, app.Location, app.Notes)

	created, err := scanApplication(row)
	if err != nil {
		return nil, s.wrap("failed to insert application", err)
	}
	return created, nil
}

// UpdateApplication writes only the fields present in p.
func (s *sqlStore) UpdateApplication(ctx context.Context, id int64, p patch.Patch) (*models.Application, error) {
	if v, ok := p.Get(patch.Date); ok && v == "" {
		if err := p.Set(patch.Date, nil); err != nil {
			return nil, err
		}
	}

	query, args, err := patch.BuildUpdate(tableApplications, id, p, s.d.placeholder, s.applicationColumns())
	if err != nil {
		return nil, err
	}

	updated, err := scanApplication(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, s.wrap(fmt.Sprintf("failed to update application %d", id), err)
	}
	return updated, nil
}

// DeleteApplication removes the record permanently.
func (s *sqlStore) DeleteApplication(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+tableApplications+" WHERE id = "+s.d.placeholder(1), id)
	if err != nil {
		return s.wrap(fmt.Sprintf("failed to delete application %d", id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return s.wrap("failed to read affected rows", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

// AppendLog inserts an automation log entry.
func (s *sqlStore) AppendLog(ctx context.Context, entry models.AutomationLog) (*models.AutomationLog, error) {
	query := "INSERT INTO " + tableLogs + " (source, action, status, details, date) VALUES (" +
		s.placeholders(5) + ") RETURNING id"

	entry.Date = entry.Date.UTC()
	if err := s.db.QueryRowContext(ctx, query,
		entry.Source, entry.Action, entry.Status, entry.Details, entry.Date).Scan(&entry.ID); err != nil {
		return nil, s.wrap("failed to append automation log", err)
	}
	return &entry, nil
}

// ListLogs returns up to limit log entries, newest first.
func (s *sqlStore) ListLogs(ctx context.Context, limit int) ([]models.AutomationLog, error) {
	query := "SELECT id, COALESCE(source, ''), COALESCE(action, ''), COALESCE(status, ''), COALESCE(details, ''), date FROM " +
		tableLogs + " ORDER BY date DESC, id DESC LIMIT " + s.d.placeholder(1)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, s.wrap("failed to query automation logs", err)
	}
	defer rows.Close()

	logs := []models.AutomationLog{}
	for rows.Next() {
		var l models.AutomationLog
		if err := rows.Scan(&l.ID, &l.Source, &l.Action, &l.Status, &l.Details, timeScanner{&l.Date}); err != nil {
			return nil, s.wrap("failed to scan automation log", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("failed to iterate automation logs", err)
	}
	return logs, nil
}

// ListIntegrations returns every configured integration.
func (s *sqlStore) ListIntegrations(ctx context.Context) ([]models.Integration, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, COALESCE(from_app, ''), COALESCE(to_app, ''), COALESCE(status, '') FROM "+tableIntegrations+" ORDER BY id")
	if err != nil {
		return nil, s.wrap("failed to query integrations", err)
	}
	defer rows.Close()

	out := []models.Integration{}
	for rows.Next() {
		var i models.Integration
		if err := rows.Scan(&i.ID, &i.FromApp, &i.ToApp, &i.Status); err != nil {
			return nil, s.wrap("failed to scan integration", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("failed to iterate integrations", err)
	}
	return out, nil
}

// ListStatusData returns the precomputed status table.
func (s *sqlStore) ListStatusData(ctx context.Context) ([]models.StatusDatum, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, value FROM "+tableStatusData)
	if err != nil {
		return nil, s.wrap("failed to query status data", err)
	}
	defer rows.Close()

	out := []models.StatusDatum{}
	for rows.Next() {
		var d models.StatusDatum
		if err := rows.Scan(&d.Name, &d.Value); err != nil {
			return nil, s.wrap("failed to scan status data", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("failed to iterate status data", err)
	}
	return out, nil
}

// ListJobBoardData returns the precomputed job board table.
func (s *sqlStore) ListJobBoardData(ctx context.Context) ([]models.JobBoardDatum, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, usage FROM "+tableJobBoardData)
	if err != nil {
		return nil, s.wrap("failed to query job board data", err)
	}
	defer rows.Close()

	out := []models.JobBoardDatum{}
	for rows.Next() {
		var d models.JobBoardDatum
		if err := rows.Scan(&d.Name, &d.Usage); err != nil {
			return nil, s.wrap("failed to scan job board data", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("failed to iterate job board data", err)
	}
	return out, nil
}

// CreateUser inserts a user. A duplicate email wraps models.ErrConflict.
func (s *sqlStore) CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	query := "INSERT INTO " + tableUsers + " (email, name, password) VALUES (" +
		s.placeholders(3) + ") RETURNING id, email, COALESCE(name, '')"

	u := models.User{PasswordHash: passwordHash}
	if err := s.db.QueryRowContext(ctx, query, email, name, passwordHash).Scan(&u.ID, &u.Email, &u.Name); err != nil {
		if errors.Is(s.d.classify(err), models.ErrConflict) {
			return nil, duplicateEmail(email)
		}
		return nil, s.wrap("failed to create user", err)
	}
	return &u, nil
}

// GetUserByEmail returns nil, nil when no user has the email.
func (s *sqlStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT id, email, COALESCE(name, ''), password FROM " + tableUsers + " WHERE email = " + s.d.placeholder(1)

	var u models.User
	err := s.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.wrap("failed to find user", err)
	}
	return &u, nil
}

// Ping verifies the connection.
func (s *sqlStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.wrap(s.d.name+" ping failed", err)
	}
	return nil
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app      models.Application
		location sql.NullString
		notes    sql.NullString
	)
	err := row.Scan(&app.ID, &app.Company, &app.Position, &app.Source, &app.Date,
		&app.Status, &app.Automation, &app.Salary, &location, &notes)
	if err != nil {
		return nil, err
	}
	if location.Valid {
		app.Location = &location.String
	}
	if notes.Valid {
		app.Notes = &notes.String
	}
	return &app, nil
}

// dateArg stores an empty date as NULL.
func dateArg(date string) any {
	if strings.TrimSpace(date) == "" {
		return nil
	}
	return date
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// timeScanner accepts timestamps returned either as time.Time or as text.
type timeScanner struct{ t *time.Time }

func (ts timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*ts.t = time.Time{}
		return nil
	case time.Time:
		*ts.t = v
		return nil
	case []byte:
		return ts.parse(string(v))
	case string:
		return ts.parse(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (ts timeScanner) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts.t = t
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", s)
}
