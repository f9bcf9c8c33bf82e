package notify

import (
	"context"
	"fmt"
	"net/http"

	gnt "github.com/dstotijn/go-notion"

	"github.com/jobtrack/application-tracker/internal/models"
)

// Notion mirrors created applications as pages of a Notion database.
type Notion struct {
	api        *gnt.Client
	databaseID string
}

// NewNotion creates a Notion notifier for the given integration token.
func NewNotion(token, databaseID string, opts ...gnt.ClientOption) *Notion {
	return &Notion{
		api:        gnt.NewClient(token, opts...),
		databaseID: databaseID,
	}
}

// WithHTTPClient is re-exported so callers can set timeouts or transports.
func WithHTTPClient(c *http.Client) gnt.ClientOption {
	return gnt.WithHTTPClient(c)
}

// Ping runs a one-row query to check that the database is reachable.
func (n *Notion) Ping(ctx context.Context) error {
	_, err := n.api.QueryDatabase(ctx, n.databaseID, &gnt.DatabaseQuery{PageSize: 1})
	if err != nil {
		return fmt.Errorf("%w: notion: %v", models.ErrUpstreamUnavailable, err)
	}
	return nil
}

// Notify creates one page per application.
func (n *Notion) Notify(ctx context.Context, app models.Application) error {
	props := pageProperties(app)
	_, err := n.api.CreatePage(ctx, gnt.CreatePageParams{
		ParentType:             gnt.ParentTypeDatabase,
		ParentID:               n.databaseID,
		DatabasePageProperties: &props,
	})
	if err != nil {
		return fmt.Errorf("%w: notion: %v", models.ErrUpstreamUnavailable, err)
	}
	return nil
}

func richText(s string) []gnt.RichText {
	if s == "" {
		return nil
	}
	return []gnt.RichText{{Text: &gnt.Text{Content: s}}}
}

func pageProperties(app models.Application) gnt.DatabasePageProperties {
	props := gnt.DatabasePageProperties{
		// Position is the title property of the tracker database.
		"Position": gnt.DatabasePageProperty{Title: richText(app.Position)},
		"Company":  gnt.DatabasePageProperty{RichText: richText(app.Company)},
	}

	if app.Source != "" {
		props["Source"] = gnt.DatabasePageProperty{Select: &gnt.SelectOptions{Name: app.Source}}
	}
	if app.Status != "" {
		props["Stage"] = gnt.DatabasePageProperty{Select: &gnt.SelectOptions{Name: app.Status}}
	}
	if app.Automation != "" {
		props["Automation"] = gnt.DatabasePageProperty{Select: &gnt.SelectOptions{Name: app.Automation}}
	}
	if app.Salary > 0 {
		salary := app.Salary
		props["Salary"] = gnt.DatabasePageProperty{Number: &salary}
	}
	if app.Location != nil && *app.Location != "" {
		props["Location"] = gnt.DatabasePageProperty{RichText: richText(*app.Location)}
	}
	if app.Notes != nil && *app.Notes != "" {
		props["Notes"] = gnt.DatabasePageProperty{RichText: richText(*app.Notes)}
	}
	return props
}
