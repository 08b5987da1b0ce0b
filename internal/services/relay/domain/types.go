// Package domain defines the core types and interfaces for the relay service
package domain

import (
	"ledgerpipe/internal/core/event"
)

// Batch is an ordered run of sync items owned by exactly one writer at a
// time: the queue until handoff, the sink for the write attempt, the retry
// supervisor after a failure
type Batch struct {
	ID    string
	Items []event.SyncItem
}

// Size returns the number of items in the batch
func (b Batch) Size() int { return len(b.Items) }

// Kinds returns the distinct record kinds present in the batch, in first
// occurrence order. Used for drop reporting
func (b Batch) Kinds() []event.Kind {
	seen := make(map[event.Kind]bool, 3)
	var out []event.Kind
	for _, it := range b.Items {
		if !seen[it.Kind] {
			seen[it.Kind] = true
			out = append(out, it.Kind)
		}
	}
	return out
}

// RetryState is the supervisor's FSM state for one batch
type RetryState string

const (
	// RetryAttempting means attempt n is in progress or scheduled
	RetryAttempting RetryState = "attempting"
	// RetryDone means the batch was written successfully
	RetryDone RetryState = "done"
	// RetryDropped means all attempts were exhausted and the batch discarded
	RetryDropped RetryState = "dropped"
)

// QueueStats is a point-in-time snapshot for status reporting
type QueueStats struct {
	Pending       int   `json:"pending"`
	InFlight      bool  `json:"in_flight"`
	Enqueued      int64 `json:"enqueued"`
	Flushed       int64 `json:"flushed"`
	WrittenItems  int64 `json:"written_items"`
	DroppedBatch  int64 `json:"dropped_batches"`
	DroppedItems  int64 `json:"dropped_items"`
	RetryAttempts int64 `json:"retry_attempts"`
}
