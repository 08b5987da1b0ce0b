// Package domain defines the core types and interfaces for the backfill service
package domain

import (
	"time"

	"ledgerpipe/internal/core/event"
)

// Input controls the scan window and batching
type Input struct {
	Start     time.Time // inclusive
	End       time.Time // exclusive
	ChunkSize int       // rows per ledger write; <=0 -> default
	PageSize  int       // rows per source query; <=0 -> default
	DryRun    bool      // scan and normalize without writing
}

// Result summarizes one backfill run
type Result struct {
	Scanned    int // source rows read
	Normalized int // rows that produced a sync item
	Written    int // items acknowledged by the ledger
	Skipped    int // rows dropped by normalization
	Batches    int // ledger write calls
}

// Cursor is a keyset position in a source table scan
type Cursor struct {
	At time.Time
	ID string
}

// Zero reports whether the cursor is at the start of the scan
func (c Cursor) Zero() bool { return c.At.IsZero() && c.ID == "" }

// EventRow is one website_event row in scan order. EventType routes the row
// to the pageview or custom-event normalizer
type EventRow struct {
	EventID        string
	WebsiteID      string
	SessionID      string
	CreatedAt      time.Time
	EventType      int
	Hostname       string
	URLPath        string
	URLQuery       string
	ReferrerPath   string
	ReferrerDomain string
	PageTitle      string
	EventName      string
	Tag            string
}

// Kind returns the record kind the row normalizes into
func (r EventRow) Kind() event.Kind {
	if r.EventType == 2 {
		return event.KindEvent
	}
	return event.KindPageView
}

// SessionRow is one session row in scan order
type SessionRow struct {
	SessionID string
	WebsiteID string
	CreatedAt time.Time
	Hostname  string
	Browser   string
	OS        string
	Device    string
	Screen    string
	Language  string
	Country   string
	Region    string
	City      string
}
