package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jomei/notionapi"

	"github.com/tmcallister/sfbridge/internal/checkpoint"
	"github.com/tmcallister/sfbridge/internal/mapping"
	"github.com/tmcallister/sfbridge/internal/salesforce"
)

// fakeSource is an in-memory SourceClient recording its calls.
type fakeSource struct {
	fields  []salesforce.Field
	records []salesforce.Record

	queryBounds []*time.Time
	upserts     []upsertCall
	upsertErr   error
}

type upsertCall struct {
	objectType string
	id         string
	values     map[string]any
}

func (f *fakeSource) Describe(_ context.Context, _ string) ([]salesforce.Field, error) {
	return f.fields, nil
}

func (f *fakeSource) Query(_ context.Context, _ string, _ []salesforce.Field, modifiedAfter *time.Time) ([]salesforce.Record, error) {
	f.queryBounds = append(f.queryBounds, modifiedAfter)
	if modifiedAfter == nil {
		return f.records, nil
	}
	var out []salesforce.Record
	for _, rec := range f.records {
		if mod, ok := rec.LastModified(); ok && mod.After(*modifiedAfter) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeSource) Upsert(_ context.Context, objectType, id string, values map[string]any) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, upsertCall{objectType: objectType, id: id, values: values})
	return nil
}

// fakeEntry is one stored page in the fake workspace.
type fakeEntry struct {
	id         string
	properties notionapi.Properties
	editedAt   time.Time
}

// fakeTarget is an in-memory TargetClient. Pages are matched against the
// two filter shapes the engine builds: rich-text equality on a property,
// and last-edited-time after a bound.
type fakeTarget struct {
	schemas map[string]notionapi.PropertyConfigs
	entries []*fakeEntry

	nextID        int
	addPropsCalls int
	createdPages  int
	updatedPages  int

	failCreateFor map[string]bool
	failAddProps  bool
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		schemas:       make(map[string]notionapi.PropertyConfigs),
		failCreateFor: make(map[string]bool),
	}
}

func (f *fakeTarget) CreateDatabase(_ context.Context, name string, properties notionapi.PropertyConfigs) (string, error) {
	id := fmt.Sprintf("db-%s", name)
	schema := notionapi.PropertyConfigs{}
	for label, config := range properties {
		schema[label] = config
	}
	f.schemas[id] = schema
	return id, nil
}

func (f *fakeTarget) Schema(_ context.Context, databaseID string) (notionapi.PropertyConfigs, error) {
	schema, ok := f.schemas[databaseID]
	if !ok {
		return nil, fmt.Errorf("unknown database %s", databaseID)
	}
	out := notionapi.PropertyConfigs{}
	for label, config := range schema {
		out[label] = config
	}
	return out, nil
}

func (f *fakeTarget) AddProperties(_ context.Context, databaseID string, properties notionapi.PropertyConfigs) error {
	if len(properties) == 0 {
		return nil
	}
	if f.failAddProps {
		return fmt.Errorf("simulated schema update failure")
	}
	f.addPropsCalls++
	for label, config := range properties {
		f.schemas[databaseID][label] = config
	}
	return nil
}

func (f *fakeTarget) QueryEntries(_ context.Context, _ string, filter notionapi.Filter, _ notionapi.Cursor) (*notionapi.DatabaseQueryResponse, error) {
	resp := &notionapi.DatabaseQueryResponse{}
	for _, entry := range f.entries {
		if f.matches(entry, filter) {
			resp.Results = append(resp.Results, notionapi.Page{
				ID:         notionapi.ObjectID(entry.id),
				Properties: entry.properties,
			})
		}
	}
	return resp, nil
}

func (f *fakeTarget) matches(entry *fakeEntry, filter notionapi.Filter) bool {
	switch flt := filter.(type) {
	case nil:
		return true
	case notionapi.PropertyFilter:
		prop, ok := entry.properties[flt.Property].(*notionapi.RichTextProperty)
		if !ok || len(prop.RichText) == 0 || prop.RichText[0].Text == nil {
			return false
		}
		return prop.RichText[0].Text.Content == flt.RichText.Equals
	case notionapi.TimestampFilter:
		after := time.Time(*flt.LastEditedTime.After)
		return entry.editedAt.After(after)
	default:
		return false
	}
}

func (f *fakeTarget) CreatePage(_ context.Context, _ string, properties notionapi.Properties) error {
	if sfID := richTextContent(properties[mapping.SalesforceIDLabel]); f.failCreateFor[sfID] {
		return fmt.Errorf("simulated create failure for %s", sfID)
	}
	f.nextID++
	f.entries = append(f.entries, &fakeEntry{
		id:         fmt.Sprintf("page-%d", f.nextID),
		properties: properties,
		editedAt:   time.Now(),
	})
	f.createdPages++
	return nil
}

func (f *fakeTarget) UpdatePage(_ context.Context, pageID string, properties notionapi.Properties) error {
	for _, entry := range f.entries {
		if entry.id == pageID {
			entry.properties = properties
			entry.editedAt = time.Now()
			f.updatedPages++
			return nil
		}
	}
	return fmt.Errorf("unknown page %s", pageID)
}

// fakeStore is an in-memory checkpoint.Store.
type fakeStore struct {
	marks  map[string]time.Time
	synced map[checkpoint.Direction]time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		marks:  make(map[string]time.Time),
		synced: make(map[checkpoint.Direction]time.Time),
	}
}

func (f *fakeStore) HighWaterMark(_ context.Context, objectType string) (*time.Time, error) {
	if t, ok := f.marks[objectType]; ok {
		return &t, nil
	}
	return nil, nil
}

func (f *fakeStore) SetHighWaterMark(_ context.Context, objectType string, mark time.Time) error {
	f.marks[objectType] = mark
	return nil
}

func (f *fakeStore) SyncedTime(_ context.Context, direction checkpoint.Direction) (*time.Time, error) {
	if t, ok := f.synced[direction]; ok {
		return &t, nil
	}
	return nil, nil
}

func (f *fakeStore) SetSyncedTime(_ context.Context, direction checkpoint.Direction, t time.Time) error {
	f.synced[direction] = t
	return nil
}

// fakeCatalog is an in-memory Catalog.
type fakeCatalog struct {
	entries map[string]string
	saves   int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{entries: make(map[string]string)}
}

func (f *fakeCatalog) DatabaseID(objectType string) (string, bool) {
	id, ok := f.entries[objectType]
	return id, ok
}

func (f *fakeCatalog) SetDatabaseID(objectType, databaseID string) error {
	f.entries[objectType] = databaseID
	f.saves++
	return nil
}
