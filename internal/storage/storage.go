package storage

import (
	"context"
	"fmt"

	"github.com/jobtrack/application-tracker/internal/config"
	"github.com/jobtrack/application-tracker/internal/models"
	"github.com/jobtrack/application-tracker/internal/patch"
)

// Storage interface defines the contract for the record store.
//
// Lookups that find nothing return an error wrapping models.ErrNotFound,
// except GetUserByEmail which returns nil, nil. A duplicate user email wraps
// models.ErrConflict.
type Storage interface {
	ListApplications(ctx context.Context, limit int) ([]models.Application, error)
	CreateApplication(ctx context.Context, app models.NewApplication) (*models.Application, error)
	UpdateApplication(ctx context.Context, id int64, p patch.Patch) (*models.Application, error)
	DeleteApplication(ctx context.Context, id int64) error

	AppendLog(ctx context.Context, entry models.AutomationLog) (*models.AutomationLog, error)
	ListLogs(ctx context.Context, limit int) ([]models.AutomationLog, error)
	ListIntegrations(ctx context.Context) ([]models.Integration, error)
	ListStatusData(ctx context.Context) ([]models.StatusDatum, error)
	ListJobBoardData(ctx context.Context) ([]models.JobBoardDatum, error)

	CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	Ping(ctx context.Context) error
	Close() error
}

// Table (or collection) names shared by every backend
const (
	tableApplications = "recent_applications"
	tableLogs         = "automation_logs"
	tableIntegrations = "automation_integrations"
	tableStatusData   = "status_data"
	tableJobBoardData = "job_board_data"
	tableUsers        = "users"
)

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "postgresql":
		return NewPostgreSQLStorage(cfg)
	case "sqlite":
		return NewSQLiteStorage(cfg)
	case "mongodb":
		s, err := NewMongoDBStorage(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "dynamodb":
		s, err := NewDynamoDBStorage(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func notFound(id int64) error {
	return fmt.Errorf("%w: application %d", models.ErrNotFound, id)
}

func duplicateEmail(email string) error {
	return fmt.Errorf("%w: user %s already exists", models.ErrConflict, email)
}
