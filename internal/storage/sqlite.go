package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/jobtrack/application-tracker/internal/config"
	"github.com/jobtrack/application-tracker/internal/models"
)

// Dates are TEXT so the driver hands them back verbatim.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		name TEXT,
		password TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS recent_applications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company TEXT NOT NULL,
		position TEXT NOT NULL,
		source TEXT,
		date TEXT,
		status TEXT,
		automation TEXT NOT NULL DEFAULT 'Manual',
		salary REAL NOT NULL DEFAULT 0,
		location TEXT,
		notes TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recent_applications_date ON recent_applications (date DESC)`,
	`CREATE TABLE IF NOT EXISTS automation_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT,
		action TEXT,
		status TEXT,
		details TEXT,
		date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS automation_integrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
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

func classifySQLite(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return nil
	}
	switch sqliteErr.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %s", models.ErrConflict, sqliteErr.Error())
	case sqlite3.ErrConstraintNotNull, sqlite3.ErrConstraintCheck:
		return fmt.Errorf("%w: %s", models.ErrValidation, sqliteErr.Error())
	}
	return nil
}

var sqliteDialect = dialect{
	name:        "sqlite",
	placeholder: func(int) string { return "?" },
	schema:      sqliteSchema,
	dateColumn:  "COALESCE(date, '') AS date",
	classify:    classifySQLite,
}

// NewSQLiteStorage opens a SQLite database and bootstraps missing tables.
// SQLitePath can be a file path or ":memory:" for an in-memory database.
func NewSQLiteStorage(cfg config.StorageConfig) (Storage, error) {
	s, err := newSQLiteStore(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newSQLiteStore(path string) (*sqlStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every new connection to ":memory:" is a fresh, empty database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	store := newSQLStore(db, sqliteDialect)
	if err := store.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
