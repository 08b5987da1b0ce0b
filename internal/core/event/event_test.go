package event

import (
	"testing"
	"time"

	perr "ledgerpipe/internal/platform/errors"
)

func TestKindFromChannel(t *testing.T) {
	tests := []struct {
		channel string
		want    Kind
		wantErr bool
	}{
		{"ledgerpipe_pageview", KindPageView, false},
		{"ledgerpipe_event", KindEvent, false},
		{"ledgerpipe_session", KindSession, false},
		{"ledgerpipe_bogus", "", true},
		{"pageview", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		got, err := KindFromChannel(tc.channel)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("KindFromChannel(%q): expected error", tc.channel)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("KindFromChannel(%q) = %q, %v; want %q", tc.channel, got, err, tc.want)
		}
	}
}

func TestKindChannelRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		got, err := KindFromChannel(k.Channel())
		if err != nil || got != k {
			t.Fatalf("round trip %q: got %q, %v", k, got, err)
		}
	}
}

func TestNormalizePageView(t *testing.T) {
	item, err := NormalizePageView(RawPageView{
		EventID:   "42",
		WebsiteID: "S1",
		SessionID: "sess-1",
		CreatedAt: "2024-01-01T00:00:00+00:00",
		URLPath:   "/pricing",
		Hostname:  "example.com",
	})
	if err != nil {
		t.Fatalf("NormalizePageView: %v", err)
	}
	if item.Kind != KindPageView || item.WebsiteID != "S1" || item.SourceID != "42" {
		t.Fatalf("identity fields = %+v", item)
	}
	if got := item.OccurredAt.Format(time.RFC3339); got != "2024-01-01T00:00:00Z" {
		t.Fatalf("OccurredAt = %q", got)
	}
	if item.Tags["url_path"] != "/pricing" {
		t.Fatalf("url_path tag = %v", item.Tags["url_path"])
	}
	// descriptive fields absent from the payload come back as the sentinel
	if item.Tags["referrer_domain"] != UnknownValue {
		t.Fatalf("referrer_domain tag = %v", item.Tags["referrer_domain"])
	}
	if item.Body["page_title"] != UnknownValue {
		t.Fatalf("page_title body = %v", item.Body["page_title"])
	}
}

func TestNormalizePageView_MissingIdentity(t *testing.T) {
	tests := []struct {
		name string
		raw  RawPageView
	}{
		{"missing website", RawPageView{EventID: "42", CreatedAt: "2024-01-01T00:00:00Z"}},
		{"missing timestamp", RawPageView{EventID: "42", WebsiteID: "S1"}},
		{"garbage timestamp", RawPageView{EventID: "42", WebsiteID: "S1", CreatedAt: "yesterday"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NormalizePageView(tc.raw); perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
				t.Fatalf("CodeOf = %v, want InvalidArgument", perr.CodeOf(err))
			}
		})
	}
}

func TestNormalizeEvent(t *testing.T) {
	item, err := NormalizeEvent(RawEvent{
		EventID:   "e-9",
		WebsiteID: "S1",
		CreatedAt: "2024-06-15T10:30:00.123456+02:00",
		EventName: "signup",
	})
	if err != nil {
		t.Fatalf("NormalizeEvent: %v", err)
	}
	if item.Kind != KindEvent || item.Tags["event_name"] != "signup" {
		t.Fatalf("item = %+v", item)
	}
	// timestamps land in UTC regardless of the source offset
	if item.OccurredAt.Location() != time.UTC {
		t.Fatalf("OccurredAt location = %v", item.OccurredAt.Location())
	}
	if got := item.OccurredAt.Format(time.RFC3339); got != "2024-06-15T08:30:00Z" {
		t.Fatalf("OccurredAt = %q", got)
	}
}

func TestNormalizeSession(t *testing.T) {
	item, err := NormalizeSession(RawSession{
		SessionID: "sess-7",
		WebsiteID: "S2",
		CreatedAt: "2024-03-01T12:00:00", // timestamp without zone
		Browser:   "firefox",
		Country:   "NL",
	})
	if err != nil {
		t.Fatalf("NormalizeSession: %v", err)
	}
	if item.Kind != KindSession || item.SourceID != "sess-7" {
		t.Fatalf("item = %+v", item)
	}
	if item.Tags["browser"] != "firefox" || item.Tags["country"] != "NL" {
		t.Fatalf("tags = %v", item.Tags)
	}
	if item.Tags["os"] != UnknownValue || item.Tags["device"] != UnknownValue {
		t.Fatalf("sentinel tags = %v", item.Tags)
	}
}

func TestDescNFC(t *testing.T) {
	// "café" with a combining acute accent normalizes to the precomposed form
	if got := desc("café"); got != "café" {
		t.Fatalf("desc = %q", got)
	}
	if got := desc(""); got != UnknownValue {
		t.Fatalf("desc(\"\") = %q", got)
	}
}

func TestNewSyncItem_Validation(t *testing.T) {
	now := time.Now()
	if _, err := NewSyncItem("bogus", "S1", "1", now, nil, nil); err == nil {
		t.Fatal("invalid kind should fail")
	}
	if _, err := NewSyncItem(KindPageView, "", "1", now, nil, nil); err == nil {
		t.Fatal("missing website id should fail")
	}
	if _, err := NewSyncItem(KindPageView, "S1", "1", time.Time{}, nil, nil); err == nil {
		t.Fatal("zero timestamp should fail")
	}
	if _, err := NewSyncItem(KindPageView, "S1", "1", now, nil, Tags{"k": []int{1}}); err == nil {
		t.Fatal("non-scalar tag should fail")
	}

	// source id is best-effort and never blocks construction
	item, err := NewSyncItem(KindPageView, "S1", "", now, nil, nil)
	if err != nil {
		t.Fatalf("missing source id should not fail: %v", err)
	}
	if item.Tags == nil {
		t.Fatal("tags should be initialized")
	}
}
