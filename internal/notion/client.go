// Package notion wraps the Notion API client with the handful of
// operations the sync engine needs. The engine itself depends only on an
// interface with this shape, so tests run against in-memory fakes.
package notion

import (
	"context"
	"fmt"
	"time"

	"github.com/jomei/notionapi"
)

// Client exposes database and page operations against one Notion
// workspace. New databases are created under ParentPageID.
type Client struct {
	api          *notionapi.Client
	parentPageID string
}

// New builds a client from an integration token and the page under which
// new databases are created.
func New(token, parentPageID string) *Client {
	return &Client{
		api:          notionapi.NewClient(notionapi.Token(token)),
		parentPageID: parentPageID,
	}
}

// CreateDatabase creates a database titled name with the given property
// schema and returns its id.
func (c *Client) CreateDatabase(ctx context.Context, name string, properties notionapi.PropertyConfigs) (string, error) {
	db, err := c.api.Database.Create(ctx, &notionapi.DatabaseCreateRequest{
		Parent: notionapi.Parent{
			Type:   notionapi.ParentTypePageID,
			PageID: notionapi.PageID(c.parentPageID),
		},
		Title: []notionapi.RichText{
			{Text: &notionapi.Text{Content: name}},
		},
		Properties: properties,
	})
	if err != nil {
		return "", fmt.Errorf("create database %s: %w", name, err)
	}
	return string(db.ID), nil
}

// Schema returns the database's current property configuration. Fetched
// fresh on every call: the engine deliberately never caches it, so schema
// drift from concurrent editors is picked up.
func (c *Client) Schema(ctx context.Context, databaseID string) (notionapi.PropertyConfigs, error) {
	db, err := c.api.Database.Get(ctx, notionapi.DatabaseID(databaseID))
	if err != nil {
		return nil, fmt.Errorf("retrieve database %s: %w", databaseID, err)
	}
	return db.Properties, nil
}

// AddProperties extends the database schema with the given properties.
// An empty set is a no-op.
func (c *Client) AddProperties(ctx context.Context, databaseID string, properties notionapi.PropertyConfigs) error {
	if len(properties) == 0 {
		return nil
	}
	_, err := c.api.Database.Update(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseUpdateRequest{
		Properties: properties,
	})
	if err != nil {
		return fmt.Errorf("update database %s schema: %w", databaseID, err)
	}
	return nil
}

// QueryEntries runs a single filtered query page against the database.
func (c *Client) QueryEntries(ctx context.Context, databaseID string, filter notionapi.Filter, cursor notionapi.Cursor) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), &notionapi.DatabaseQueryRequest{
		Filter:      filter,
		StartCursor: cursor,
	})
	if err != nil {
		return nil, fmt.Errorf("query database %s: %w", databaseID, err)
	}
	return resp, nil
}

// CreatePage creates a new entry in the database.
func (c *Client) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) error {
	_, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	})
	if err != nil {
		return fmt.Errorf("create page in %s: %w", databaseID, err)
	}
	return nil
}

// UpdatePage rewrites properties on an existing entry.
func (c *Client) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) error {
	_, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: properties,
	})
	if err != nil {
		return fmt.Errorf("update page %s: %w", pageID, err)
	}
	return nil
}

// ExternalIDFilter matches entries whose reserved external-id property
// equals salesforceID exactly.
func ExternalIDFilter(label, salesforceID string) notionapi.Filter {
	return notionapi.PropertyFilter{
		Property: label,
		RichText: &notionapi.TextFilterCondition{Equals: salesforceID},
	}
}

// EditedSinceFilter matches entries whose last_edited_time is after t.
func EditedSinceFilter(t time.Time) notionapi.Filter {
	after := notionapi.Date(t)
	return notionapi.TimestampFilter{
		Timestamp:      notionapi.TimestampLastEdited,
		LastEditedTime: &notionapi.DateFilterCondition{After: &after},
	}
}
