package domain

import (
	"context"

	"ledgerpipe/internal/core/event"
)

// QueuePort accumulates sync items and releases them in batches
type QueuePort interface {
	// Enqueue appends an item. Never blocks on the network; a flush it
	// triggers runs asynchronously
	Enqueue(item event.SyncItem)

	// Drain flushes pending items until the queue is empty or ctx expires.
	// Used at shutdown
	Drain(ctx context.Context) error

	// Stats returns a point-in-time snapshot
	Stats() QueueStats
}

// SinkPort writes one batch to the ledger store
type SinkPort interface {
	// WriteBatch attempts a single write of the whole batch. An error
	// means the entire batch must be retried or dropped; partial
	// acknowledgement is reported as an error
	WriteBatch(ctx context.Context, b Batch) error
}

// ListenerPort runs the notification subscription loop
type ListenerPort interface {
	// Listen blocks until ctx is cancelled or the subscription fails
	// beyond recovery
	Listen(ctx context.Context) error
}

// ProvisionerPort installs the notification triggers on the source store
type ProvisionerPort interface {
	// EnsureTriggers is idempotent and safe to run on every startup
	EnsureTriggers(ctx context.Context) error
}
