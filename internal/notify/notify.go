package notify

import (
	"context"
	"fmt"

	"github.com/jobtrack/application-tracker/internal/config"
	"github.com/jobtrack/application-tracker/internal/models"
)

// Notifier forwards a newly created application to an external workflow.
type Notifier interface {
	Notify(ctx context.Context, app models.Application) error
}

// NewNotifier creates the notifier selected by cfg.Type.
func NewNotifier(cfg config.NotifyConfig) (Notifier, error) {
	switch cfg.Type {
	case "", "none":
		return Nop{}, nil
	case "webhook":
		return NewWebhook(cfg.WebhookURL, cfg.Timeout), nil
	case "notion":
		return NewNotion(cfg.NotionToken, cfg.NotionDBID), nil
	default:
		return nil, fmt.Errorf("unsupported notifier type: %s", cfg.Type)
	}
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, models.Application) error { return nil }
