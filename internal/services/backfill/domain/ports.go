package domain

import (
	"context"
	"time"
)

// RunnerPort is the external port for the backfill job
type RunnerPort interface {
	RunRange(ctx context.Context, in Input) (Result, error)
}

// StorageRepo reads source rows in keyset order
type StorageRepo interface {
	// ListEvents returns up to limit website_event rows created inside
	// [start, end) strictly after the cursor, plus the cursor for the
	// next page
	ListEvents(ctx context.Context, start, end time.Time, after Cursor, limit int) ([]EventRow, Cursor, error)

	// ListSessions is ListEvents for the session table
	ListSessions(ctx context.Context, start, end time.Time, after Cursor, limit int) ([]SessionRow, Cursor, error)
}
