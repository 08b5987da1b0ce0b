package event

import (
	"time"

	perr "ledgerpipe/internal/platform/errors"
)

// Tags is a flat metadata bag attached to a SyncItem. Values are restricted
// to strings and numbers so they survive the trip into ledger annotations
// unchanged. Duplicate keys are last-write-wins
type Tags map[string]any

// Set assigns k=v and returns the receiver for chaining
func (t Tags) Set(k string, v any) Tags {
	t[k] = v
	return t
}

// Validate rejects empty keys and non-scalar values
func (t Tags) Validate() error {
	for k, v := range t {
		if k == "" {
			return perr.InvalidArgf("tag with empty key")
		}
		switch v.(type) {
		case string, int, int32, int64, float32, float64:
		default:
			return perr.InvalidArgf("tag %q has non-scalar value %T", k, v)
		}
	}
	return nil
}

// SyncItem is the unit of work flowing from the listener to the sink: one
// normalized source-store change, immutable once constructed. SourceID is
// best-effort (used downstream for de-duplication and debugging); its
// absence never blocks enqueue
type SyncItem struct {
	Kind       Kind
	WebsiteID  string
	SourceID   string
	OccurredAt time.Time
	Body       map[string]any
	Tags       Tags
}

// NewSyncItem validates the identity fields and freezes the item.
// Kind, WebsiteID and OccurredAt are mandatory; everything else is not
func NewSyncItem(kind Kind, websiteID, sourceID string, occurredAt time.Time, body map[string]any, tags Tags) (SyncItem, error) {
	if !kind.Valid() {
		return SyncItem{}, perr.InvalidArgf("sync item: invalid kind %q", kind)
	}
	if websiteID == "" {
		return SyncItem{}, perr.InvalidArgf("sync item: missing website id")
	}
	if occurredAt.IsZero() {
		return SyncItem{}, perr.InvalidArgf("sync item: missing timestamp")
	}
	if tags == nil {
		tags = Tags{}
	}
	if err := tags.Validate(); err != nil {
		return SyncItem{}, err
	}
	return SyncItem{
		Kind:       kind,
		WebsiteID:  websiteID,
		SourceID:   sourceID,
		OccurredAt: occurredAt.UTC(),
		Body:       body,
		Tags:       tags,
	}, nil
}
