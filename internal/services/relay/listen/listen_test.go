package listen

import (
	"context"
	"sync"
	"testing"

	"ledgerpipe/internal/core/event"
	"ledgerpipe/internal/platform/logger"
	"ledgerpipe/internal/services/relay/domain"
)

// captureQueue records enqueued items
type captureQueue struct {
	mu    sync.Mutex
	items []event.SyncItem
}

func (c *captureQueue) Enqueue(item event.SyncItem) {
	c.mu.Lock()
	c.items = append(c.items, item)
	c.mu.Unlock()
}

func (c *captureQueue) Drain(ctx context.Context) error { return nil }
func (c *captureQueue) Stats() domain.QueueStats        { return domain.QueueStats{} }

const pageviewPayload = `{
	"event_id": "42",
	"website_id": "S1",
	"session_id": "sess-1",
	"created_at": "2024-01-01T00:00:00+00:00",
	"url_path": "/pricing",
	"event_type": 1,
	"visit_id": "ignored-column"
}`

func TestHandle_EnqueuesDecodedNotification(t *testing.T) {
	q := &captureQueue{}
	l := New(Config{URL: "postgres://unused"}, q, *logger.Get())

	l.handle("ledgerpipe_pageview", pageviewPayload)

	if len(q.items) != 1 {
		t.Fatalf("items = %d", len(q.items))
	}
	it := q.items[0]
	if it.Kind != event.KindPageView || it.WebsiteID != "S1" || it.SourceID != "42" {
		t.Fatalf("item = %+v", it)
	}
}

func TestHandle_DropsBadPayloadsWithoutStalling(t *testing.T) {
	q := &captureQueue{}
	l := New(Config{URL: "postgres://unused"}, q, *logger.Get())

	bad := []string{
		`not json at all`,
		`{"website_id": "S1"}`,                                 // missing identity fields
		`{"event_id": "1", "website_id": "", "created_at": ""}`, // empty identity fields
	}
	for _, p := range bad {
		l.handle("ledgerpipe_pageview", p)
	}
	l.handle("ledgerpipe_bogus", pageviewPayload) // unknown channel

	// the stream keeps flowing: a good payload after the bad ones lands
	l.handle("ledgerpipe_pageview", pageviewPayload)

	if len(q.items) != 1 {
		t.Fatalf("items = %d, want 1", len(q.items))
	}
}

func TestDecode_PerKindShapes(t *testing.T) {
	tests := []struct {
		name    string
		kind    event.Kind
		payload string
		want    event.Kind
	}{
		{
			name: "custom event",
			kind: event.KindEvent,
			payload: `{
				"event_id": "e-9",
				"website_id": "S1",
				"created_at": "2024-06-15T10:30:00+00:00",
				"event_name": "signup"
			}`,
			want: event.KindEvent,
		},
		{
			name: "session",
			kind: event.KindSession,
			payload: `{
				"session_id": "sess-7",
				"website_id": "S2",
				"created_at": "2024-03-01T12:00:00+00:00",
				"browser": "firefox"
			}`,
			want: event.KindSession,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			it, err := decode(tc.kind, []byte(tc.payload))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if it.Kind != tc.want {
				t.Fatalf("kind = %q, want %q", it.Kind, tc.want)
			}
		})
	}
}

func TestBackoff_CapsAtCeiling(t *testing.T) {
	l := New(Config{URL: "postgres://unused"}, &captureQueue{}, *logger.Get())
	if l.backoff(1) != l.cfg.ReconnectDelay {
		t.Fatalf("backoff(1) = %v", l.backoff(1))
	}
	if l.backoff(30) != l.cfg.MaxReconnectGap {
		t.Fatalf("backoff(30) = %v", l.backoff(30))
	}
}
