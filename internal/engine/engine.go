// Package engine implements the bidirectional sync pipeline between a
// Salesforce org and a Notion workspace.
//
// Each object type runs through four sequential phases: resolve the Notion
// database, push Salesforce changes forward, pull Notion edits, push them
// back. Progress is tracked by checkpoints so repeated runs are
// incremental; the unit of resumption is the object type, not the record.
//
// The engine is resilient at the record level: individual mapping or push
// failures are logged and counted, and the pass continues with the next
// record. Schema extension failures abort the object type, and connection
// failures abort the run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jomei/notionapi"

	"github.com/tmcallister/sfbridge/internal/checkpoint"
	"github.com/tmcallister/sfbridge/internal/mapping"
	"github.com/tmcallister/sfbridge/internal/notion"
	"github.com/tmcallister/sfbridge/internal/salesforce"
)

// SourceClient is the Salesforce surface the engine consumes.
type SourceClient interface {
	Describe(ctx context.Context, objectType string) ([]salesforce.Field, error)
	Query(ctx context.Context, objectType string, fields []salesforce.Field, modifiedAfter *time.Time) ([]salesforce.Record, error)
	Upsert(ctx context.Context, objectType, id string, values map[string]any) error
}

// TargetClient is the Notion surface the engine consumes.
type TargetClient interface {
	CreateDatabase(ctx context.Context, name string, properties notionapi.PropertyConfigs) (string, error)
	Schema(ctx context.Context, databaseID string) (notionapi.PropertyConfigs, error)
	AddProperties(ctx context.Context, databaseID string, properties notionapi.PropertyConfigs) error
	QueryEntries(ctx context.Context, databaseID string, filter notionapi.Filter, cursor notionapi.Cursor) (*notionapi.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) error
	UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) error
}

// Catalog maps object type names to Notion database ids.
type Catalog interface {
	DatabaseID(objectType string) (string, bool)
	SetDatabaseID(objectType, databaseID string) error
}

// Stats counts per-pass outcomes for one object type.
type Stats struct {
	ForwardPushed int
	ForwardFailed int
	ReversePulled int
	ReversePushed int
	ReverseFailed int
}

// Engine drives the sync pipeline. Execution is strictly sequential:
// object types one at a time, records one at a time, in both directions.
type Engine struct {
	source      SourceClient
	target      TargetClient
	checkpoints checkpoint.Store
	catalog     Catalog
	logger      *slog.Logger
	clock       func() time.Time
}

// New creates an Engine. If logger is nil, slog.Default() is used.
func New(source SourceClient, target TargetClient, store checkpoint.Store, cat Catalog, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		source:      source,
		target:      target,
		checkpoints: store,
		catalog:     cat,
		logger:      logger,
		clock:       time.Now,
	}
}

// SyncAll runs the pipeline for each object type in order. A failed object
// type does not stop the ones after it; the joined errors are returned so
// the process can exit non-zero.
func (e *Engine) SyncAll(ctx context.Context, objectTypes []string) error {
	var errs []error
	for _, objectType := range objectTypes {
		stats, err := e.SyncObject(ctx, objectType)
		if err != nil {
			e.logger.Error("object type sync failed", "object_type", objectType, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", objectType, err))
			continue
		}
		e.logger.Info("object type synced",
			"object_type", objectType,
			"forward_pushed", stats.ForwardPushed,
			"forward_failed", stats.ForwardFailed,
			"reverse_pulled", stats.ReversePulled,
			"reverse_pushed", stats.ReversePushed,
			"reverse_failed", stats.ReverseFailed,
		)
	}
	return errors.Join(errs...)
}

// SyncObject runs the four-phase pipeline for one object type.
func (e *Engine) SyncObject(ctx context.Context, objectType string) (Stats, error) {
	var stats Stats
	logger := e.logger.With("object_type", objectType, "run_id", uuid.NewString())

	fields, err := e.source.Describe(ctx, objectType)
	if err != nil {
		return stats, fmt.Errorf("describe: %w", err)
	}
	logger.Info("described object", "fields", len(fields))

	databaseID, err := e.ensureDatabase(ctx, objectType, fields)
	if err != nil {
		return stats, err
	}

	if err := e.syncForward(ctx, logger, objectType, fields, databaseID, &stats); err != nil {
		return stats, err
	}
	if err := e.syncReverse(ctx, logger, objectType, fields, databaseID, &stats); err != nil {
		return stats, err
	}
	return stats, nil
}

// syncForward pushes Salesforce records modified since the forward
// high-water mark into Notion, in ascending modification-time order.
//
// The watermark advances only through the longest successful prefix of the
// batch: the first failed push freezes it at the last record that
// succeeded before the failure. Records after a failure are still pushed
// (the upsert is idempotent), and everything at or above the frozen mark
// is fetched again on the next run, so a failed record is retried rather
// than silently dropped.
func (e *Engine) syncForward(ctx context.Context, logger *slog.Logger, objectType string, fields []salesforce.Field, databaseID string, stats *Stats) error {
	mark, err := e.checkpoints.HighWaterMark(ctx, objectType)
	if err != nil {
		return fmt.Errorf("read forward mark: %w", err)
	}
	if mark == nil {
		logger.Info("no forward mark, performing initial full load")
	} else {
		logger.Info("incremental forward sync", "since", mark.UTC().Format(time.RFC3339))
	}

	records, err := e.source.Query(ctx, objectType, fields, mark)
	if err != nil {
		return fmt.Errorf("query source: %w", err)
	}
	logger.Info("fetched source records", "count", len(records))

	var watermark time.Time
	frozen := false
	for _, rec := range records {
		if err := e.upsertRecord(ctx, rec, fields, databaseID); err != nil {
			var schemaErr *SchemaExtendError
			if errors.As(err, &schemaErr) {
				return err
			}
			logger.Error("record push failed", "record_id", rec.ID(), "error", err)
			stats.ForwardFailed++
			frozen = true
			continue
		}
		stats.ForwardPushed++
		if modified, ok := rec.LastModified(); ok && !frozen && modified.After(watermark) {
			watermark = modified
		}
	}

	if !watermark.IsZero() {
		if err := e.checkpoints.SetHighWaterMark(ctx, objectType, watermark); err != nil {
			return fmt.Errorf("persist forward mark: %w", err)
		}
		logger.Info("advanced forward mark", "mark", watermark.UTC().Format(time.RFC3339))
	}
	return nil
}

// syncReverse pulls Notion entries edited since the reverse mark and
// pushes updateable fields back into Salesforce. The new reverse mark is
// the wall-clock time captured at the start of the pull, persisted once
// at the end of the pass, so edits landing mid-pass are seen again on the
// next run.
func (e *Engine) syncReverse(ctx context.Context, logger *slog.Logger, objectType string, fields []salesforce.Field, databaseID string, stats *Stats) error {
	since, err := e.checkpoints.SyncedTime(ctx, checkpoint.Reverse)
	if err != nil {
		return fmt.Errorf("read reverse mark: %w", err)
	}
	passStart := e.clock()

	var filter notionapi.Filter
	if since != nil {
		filter = notion.EditedSinceFilter(*since)
	}

	var pages []notionapi.Page
	var cursor notionapi.Cursor
	for {
		resp, err := e.target.QueryEntries(ctx, databaseID, filter, cursor)
		if err != nil {
			return fmt.Errorf("query changed entries: %w", err)
		}
		pages = append(pages, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}
	stats.ReversePulled = len(pages)
	logger.Info("fetched changed Notion entries", "count", len(pages))

	for _, page := range pages {
		id, values := e.sourceValues(objectType, fields, page.Properties)
		if id == "" {
			logger.Error("entry has no Salesforce ID, skipping", "page_id", string(page.ID))
			stats.ReverseFailed++
			continue
		}
		if err := e.source.Upsert(ctx, objectType, id, values); err != nil {
			logger.Error("record push back failed", "record_id", id, "error", err)
			stats.ReverseFailed++
			continue
		}
		logger.Info("upserted Salesforce record", "record_id", id)
		stats.ReversePushed++
	}

	if err := e.checkpoints.SetSyncedTime(ctx, checkpoint.Reverse, passStart); err != nil {
		return fmt.Errorf("persist reverse mark: %w", err)
	}
	return nil
}

// sourceValues maps a Notion entry's properties back to Salesforce field
// values. Malformed property shapes map to no value, never an error.
func (e *Engine) sourceValues(objectType string, fields []salesforce.Field, properties notionapi.Properties) (string, map[string]any) {
	values := make(map[string]any)

	for _, field := range fields {
		if !field.Updateable {
			continue
		}
		prop, ok := properties[field.Label]
		if !ok {
			continue
		}
		if v := mapping.ToSourceValue(field, prop); v != nil {
			values[field.Name] = v
		}
	}

	// Contact display names round-trip through a single free-text title,
	// so split it back into first/last. Crude, but matches what a title
	// edit in Notion can actually express.
	if objectType == "Contact" {
		if full := titleContent(properties[mapping.DisplayNameLabel]); full != "" {
			first, last := splitName(full)
			values["FirstName"] = first
			values["LastName"] = last
		}
	}

	return richTextContent(properties[mapping.SalesforceIDLabel]), values
}

// splitName separates a free-text name into first token and remainder.
// A single-token name gets " " as the remainder, since Salesforce
// requires LastName to be non-empty.
func splitName(full string) (first, last string) {
	parts := strings.SplitN(full, " ", 2)
	first = parts[0]
	last = " "
	if len(parts) == 2 && parts[1] != "" {
		last = parts[1]
	}
	return first, last
}

func titleContent(prop notionapi.Property) string {
	p, ok := prop.(*notionapi.TitleProperty)
	if !ok || len(p.Title) == 0 || p.Title[0].Text == nil {
		return ""
	}
	return p.Title[0].Text.Content
}

// richTextContent reads the first text run of a rich-text property.
func richTextContent(prop notionapi.Property) string {
	p, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(p.RichText) == 0 || p.RichText[0].Text == nil {
		return ""
	}
	return p.RichText[0].Text.Content
}
