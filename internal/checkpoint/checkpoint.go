// Package checkpoint persists sync high-water marks: the per-object-type
// forward watermark (latest Salesforce modification time already pushed to
// Notion) and the per-direction synced time used to bound the reverse pass.
//
// Two backends are provided. The sqlite store is the default and keeps
// everything in a local file; the mongo store matches deployments that
// already run MongoDB and want checkpoints alongside other job state.
package checkpoint

import (
	"context"
	"time"
)

// Direction identifies a sync direction for the synced-time mark.
type Direction string

const (
	// Forward is Salesforce → Notion.
	Forward Direction = "forward"
	// Reverse is Notion → Salesforce.
	Reverse Direction = "reverse"
)

// Store is the durable checkpoint interface the engine consumes.
//
// All marks have upsert, last-write-wins semantics with no history.
// The store does not enforce monotonicity; the engine must never write
// an earlier mark than the one it read.
type Store interface {
	// HighWaterMark returns the forward watermark for an object type,
	// or nil if the object type has never completed a forward pass.
	HighWaterMark(ctx context.Context, objectType string) (*time.Time, error)

	// SetHighWaterMark upserts the forward watermark for an object type.
	SetHighWaterMark(ctx context.Context, objectType string, mark time.Time) error

	// SyncedTime returns the last synced time for a direction, or nil if
	// that direction has never completed.
	SyncedTime(ctx context.Context, direction Direction) (*time.Time, error)

	// SetSyncedTime upserts the synced time for a direction.
	SetSyncedTime(ctx context.Context, direction Direction, t time.Time) error
}
