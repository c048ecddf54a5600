package engine

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/tmcallister/sfbridge/internal/mapping"
	"github.com/tmcallister/sfbridge/internal/salesforce"
)

// SchemaExtendError marks a failure to extend a database schema. The
// engine aborts the whole object-type pass on this error: a record write
// after a failed extension would reference undeclared properties.
type SchemaExtendError struct {
	Err error
}

func (e *SchemaExtendError) Error() string {
	return fmt.Sprintf("schema extension failed: %v", e.Err)
}

func (e *SchemaExtendError) Unwrap() error {
	return e.Err
}

// MissingProperties returns the labels in required that are absent from
// existing, preserving the order of required. Pure set difference.
func MissingProperties(existing notionapi.PropertyConfigs, required []string) []string {
	var missing []string
	for _, label := range required {
		if _, ok := existing[label]; !ok {
			missing = append(missing, label)
		}
	}
	return missing
}

// ensureDatabase resolves the Notion database for an object type, creating
// it on first sync. The initial schema covers every described field, a
// guaranteed title property, and the reserved Salesforce ID and Last
// Synced properties. The objectType → databaseID mapping is persisted
// exactly once, right after creation.
func (e *Engine) ensureDatabase(ctx context.Context, objectType string, fields []salesforce.Field) (string, error) {
	if id, ok := e.catalog.DatabaseID(objectType); ok {
		return id, nil
	}

	properties := notionapi.PropertyConfigs{}
	for _, field := range fields {
		properties[field.Label] = mapping.ToPropertyConfig(field)
	}

	if !hasTitleConfig(properties) {
		properties[mapping.DisplayNameLabel] = &notionapi.TitlePropertyConfig{
			Type: notionapi.PropertyConfigTypeTitle,
		}
	}
	properties[mapping.SalesforceIDLabel] = &notionapi.RichTextPropertyConfig{
		Type: notionapi.PropertyConfigTypeRichText,
	}
	properties[mapping.LastSyncedLabel] = &notionapi.DatePropertyConfig{
		Type: notionapi.PropertyConfigTypeDate,
	}

	id, err := e.target.CreateDatabase(ctx, objectType, properties)
	if err != nil {
		return "", fmt.Errorf("create database for %s: %w", objectType, err)
	}
	if err := e.catalog.SetDatabaseID(objectType, id); err != nil {
		return "", fmt.Errorf("persist database mapping for %s: %w", objectType, err)
	}

	e.logger.Info("created Notion database", "object_type", objectType, "database_id", id)
	return id, nil
}

// reconcileSchema extends the database schema with any of the required
// labels it does not yet declare. The live schema is fetched fresh on
// every call so concurrent external edits are tolerated. Calling with an
// already-covered required set issues no update.
func (e *Engine) reconcileSchema(ctx context.Context, databaseID string, fields []salesforce.Field, required []string) error {
	existing, err := e.target.Schema(ctx, databaseID)
	if err != nil {
		return &SchemaExtendError{Err: err}
	}

	missing := MissingProperties(existing, required)
	if len(missing) == 0 {
		return nil
	}

	byLabel := make(map[string]salesforce.Field, len(fields))
	for _, field := range fields {
		byLabel[field.Label] = field
	}

	toAdd := notionapi.PropertyConfigs{}
	for _, label := range missing {
		if field, ok := byLabel[label]; ok {
			toAdd[label] = mapping.ToPropertyConfig(field)
		}
	}
	if len(toAdd) == 0 {
		return nil
	}

	e.logger.Info("extending database schema", "database_id", databaseID, "properties", len(toAdd))
	if err := e.target.AddProperties(ctx, databaseID, toAdd); err != nil {
		return &SchemaExtendError{Err: err}
	}
	return nil
}

func hasTitleConfig(properties notionapi.PropertyConfigs) bool {
	for _, config := range properties {
		if _, ok := config.(*notionapi.TitlePropertyConfig); ok {
			return true
		}
	}
	return false
}
