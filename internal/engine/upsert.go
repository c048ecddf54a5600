package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/tmcallister/sfbridge/internal/mapping"
	"github.com/tmcallister/sfbridge/internal/notion"
	"github.com/tmcallister/sfbridge/internal/salesforce"
)

// ErrDuplicateMatch is returned when more than one Notion entry carries
// the same Salesforce ID. The duplicate is an integrity problem the engine
// refuses to guess its way around; the record's push fails and is logged.
var ErrDuplicateMatch = errors.New("multiple Notion entries match Salesforce ID")

// findPage locates the Notion page holding the given Salesforce ID, or ""
// when none exists. The query paginates defensively even though at most one
// match is expected.
func (e *Engine) findPage(ctx context.Context, databaseID, salesforceID string) (string, error) {
	filter := notion.ExternalIDFilter(mapping.SalesforceIDLabel, salesforceID)

	var matches []string
	var cursor notionapi.Cursor
	for {
		resp, err := e.target.QueryEntries(ctx, databaseID, filter, cursor)
		if err != nil {
			return "", fmt.Errorf("find page for %s: %w", salesforceID, err)
		}
		for _, page := range resp.Results {
			matches = append(matches, string(page.ID))
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	switch len(matches) {
	case 0:
		return "", nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s has %d matches", ErrDuplicateMatch, salesforceID, len(matches))
	}
}

// upsertRecord writes one Salesforce record into the database, creating
// or updating the matching page. Every mapped field is rewritten
// unconditionally; there is no content diffing.
func (e *Engine) upsertRecord(ctx context.Context, rec salesforce.Record, fields []salesforce.Field, databaseID string) error {
	properties := notionapi.Properties{}
	var required []string

	for _, field := range fields {
		value, ok := rec[field.Name]
		if !ok || value == nil {
			continue
		}
		required = append(required, field.Label)
		if prop, ok := mapping.ToProperty(field, value); ok {
			properties[field.Label] = prop
		}
	}

	// The reserved properties are always written, whatever the record holds.
	properties[mapping.SalesforceIDLabel] = mapping.RichText(rec.ID())
	properties[mapping.LastSyncedLabel] = mapping.DateAt(e.clock())

	// The schema must cover every referenced label before the write.
	if err := e.reconcileSchema(ctx, databaseID, fields, required); err != nil {
		return err
	}

	normalizeTitle(properties, rec)

	pageID, err := e.findPage(ctx, databaseID, rec.ID())
	if err != nil {
		return err
	}

	if pageID != "" {
		if err := e.target.UpdatePage(ctx, pageID, properties); err != nil {
			return fmt.Errorf("update page for %s: %w", rec.ID(), err)
		}
		return nil
	}
	if err := e.target.CreatePage(ctx, databaseID, properties); err != nil {
		return fmt.Errorf("create page for %s: %w", rec.ID(), err)
	}
	return nil
}

// normalizeTitle guarantees the write carries exactly one title property
// under the display-name label: synthesized from the record's Name (or
// "Untitled") when absent, re-tagged when the mapper left it as rich text.
func normalizeTitle(properties notionapi.Properties, rec salesforce.Record) {
	switch p := properties[mapping.DisplayNameLabel].(type) {
	case nil:
		name := rec.DisplayName()
		if name == "" {
			name = "Untitled"
		}
		properties[mapping.DisplayNameLabel] = mapping.Title(name)
	case *notionapi.RichTextProperty:
		properties[mapping.DisplayNameLabel] = &notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: p.RichText,
		}
	}
}
