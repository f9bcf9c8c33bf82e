package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/jobtrack/application-tracker/internal/config"
	"github.com/jobtrack/application-tracker/internal/models"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT,
		password TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS recent_applications (
		id SERIAL PRIMARY KEY,
		company TEXT NOT NULL,
		position TEXT NOT NULL,
		source TEXT,
		date DATE,
		status TEXT,
		automation TEXT NOT NULL DEFAULT 'Manual',
		salary NUMERIC(12, 2) NOT NULL DEFAULT 0,
		location TEXT,
		notes TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recent_applications_date ON recent_applications (date DESC)`,
	`CREATE TABLE IF NOT EXISTS automation_logs (
		id SERIAL PRIMARY KEY,
		source TEXT,
		action TEXT,
		status TEXT,
		details TEXT,
		date TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS automation_integrations (
		id SERIAL PRIMARY KEY,
		from_app TEXT,
		to_app TEXT,
		status TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS status_data (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS job_board_data (
		name TEXT PRIMARY KEY,
		usage INTEGER NOT NULL DEFAULT 0
	)`,
}

func postgresPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// classifyPostgres maps unique violations to ErrConflict and data exceptions
// (bad date or numeric input) to ErrValidation.
func classifyPostgres(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	switch {
	case pqErr.Code == "23505":
		return fmt.Errorf("%w: %s", models.ErrConflict, pqErr.Message)
	case pqErr.Code.Class() == "22":
		return fmt.Errorf("%w: %s", models.ErrValidation, pqErr.Message)
	}
	return nil
}

var postgresDialect = dialect{
	name:        "postgresql",
	placeholder: postgresPlaceholder,
	schema:      postgresSchema,
	dateColumn:  "COALESCE(to_char(date, 'YYYY-MM-DD'), '') AS date",
	classify:    classifyPostgres,
}

// NewPostgreSQLStorage connects to PostgreSQL and bootstraps missing tables.
func NewPostgreSQLStorage(cfg config.StorageConfig) (Storage, error) {
	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	store := newSQLStore(db, postgresDialect)
	if err := store.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
