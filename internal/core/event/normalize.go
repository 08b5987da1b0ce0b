package event

import (
	"time"

	perr "ledgerpipe/internal/platform/errors"

	"golang.org/x/text/unicode/norm"
)

// UnknownValue is substituted for missing descriptive fields. Identity
// fields (website id, record id, timestamp) never fall back to it
const UnknownValue = "unknown"

// RawPageView is the decoded notification payload for a website_event row
// with event_type = pageview. The validate tags cover identity fields only;
// descriptive fields default to UnknownValue during normalization
type RawPageView struct {
	EventID        string `json:"event_id"    validate:"required"`
	WebsiteID      string `json:"website_id"  validate:"required"`
	SessionID      string `json:"session_id"`
	CreatedAt      string `json:"created_at"  validate:"required"`
	Hostname       string `json:"hostname"`
	URLPath        string `json:"url_path"`
	URLQuery       string `json:"url_query"`
	ReferrerPath   string `json:"referrer_path"`
	ReferrerDomain string `json:"referrer_domain"`
	PageTitle      string `json:"page_title"`
}

// RawEvent is the decoded payload for a custom event row
type RawEvent struct {
	EventID   string `json:"event_id"    validate:"required"`
	WebsiteID string `json:"website_id"  validate:"required"`
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"  validate:"required"`
	EventName string `json:"event_name"`
	Hostname  string `json:"hostname"`
	URLPath   string `json:"url_path"`
	PageTitle string `json:"page_title"`
	Tag       string `json:"tag"`
}

// RawSession is the decoded payload for a session row
type RawSession struct {
	SessionID string `json:"session_id"  validate:"required"`
	WebsiteID string `json:"website_id"  validate:"required"`
	CreatedAt string `json:"created_at"  validate:"required"`
	Hostname  string `json:"hostname"`
	Browser   string `json:"browser"`
	OS        string `json:"os"`
	Device    string `json:"device"`
	Screen    string `json:"screen"`
	Language  string `json:"language"`
	Country   string `json:"country"`
	Region    string `json:"subdivision1"`
	City      string `json:"city"`
}

// timestamp layouts as row_to_json renders them: timestamptz with offset,
// plain timestamp without zone, with or without fractional seconds
var tsLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range tsLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, perr.InvalidArgf("unparseable timestamp %q", s)
}

// desc normalizes a descriptive field: NFC so visually identical values
// compare equal in ledger queries, UnknownValue when absent
func desc(s string) string {
	if s == "" {
		return UnknownValue
	}
	return norm.NFC.String(s)
}

// NormalizePageView maps a decoded pageview payload into a SyncItem
func NormalizePageView(raw RawPageView) (SyncItem, error) {
	ts, err := parseTimestamp(raw.CreatedAt)
	if err != nil {
		return SyncItem{}, err
	}
	body := map[string]any{
		"event_id":        raw.EventID,
		"website_id":      raw.WebsiteID,
		"session_id":      raw.SessionID,
		"created_at":      ts.Format(time.RFC3339),
		"hostname":        desc(raw.Hostname),
		"url_path":        desc(raw.URLPath),
		"url_query":       raw.URLQuery,
		"referrer_path":   raw.ReferrerPath,
		"referrer_domain": desc(raw.ReferrerDomain),
		"page_title":      desc(raw.PageTitle),
	}
	tags := Tags{}.
		Set("url_path", desc(raw.URLPath)).
		Set("hostname", desc(raw.Hostname)).
		Set("referrer_domain", desc(raw.ReferrerDomain))
	return NewSyncItem(KindPageView, raw.WebsiteID, raw.EventID, ts, body, tags)
}

// NormalizeEvent maps a decoded custom-event payload into a SyncItem
func NormalizeEvent(raw RawEvent) (SyncItem, error) {
	ts, err := parseTimestamp(raw.CreatedAt)
	if err != nil {
		return SyncItem{}, err
	}
	body := map[string]any{
		"event_id":   raw.EventID,
		"website_id": raw.WebsiteID,
		"session_id": raw.SessionID,
		"created_at": ts.Format(time.RFC3339),
		"event_name": desc(raw.EventName),
		"hostname":   desc(raw.Hostname),
		"url_path":   desc(raw.URLPath),
		"page_title": desc(raw.PageTitle),
		"tag":        raw.Tag,
	}
	tags := Tags{}.
		Set("event_name", desc(raw.EventName)).
		Set("url_path", desc(raw.URLPath)).
		Set("hostname", desc(raw.Hostname))
	return NewSyncItem(KindEvent, raw.WebsiteID, raw.EventID, ts, body, tags)
}

// NormalizeSession maps a decoded session payload into a SyncItem
func NormalizeSession(raw RawSession) (SyncItem, error) {
	ts, err := parseTimestamp(raw.CreatedAt)
	if err != nil {
		return SyncItem{}, err
	}
	body := map[string]any{
		"session_id": raw.SessionID,
		"website_id": raw.WebsiteID,
		"created_at": ts.Format(time.RFC3339),
		"hostname":   desc(raw.Hostname),
		"browser":    desc(raw.Browser),
		"os":         desc(raw.OS),
		"device":     desc(raw.Device),
		"screen":     raw.Screen,
		"language":   desc(raw.Language),
		"country":    desc(raw.Country),
		"region":     raw.Region,
		"city":       raw.City,
	}
	tags := Tags{}.
		Set("browser", desc(raw.Browser)).
		Set("os", desc(raw.OS)).
		Set("device", desc(raw.Device)).
		Set("country", desc(raw.Country)).
		Set("hostname", desc(raw.Hostname))
	return NewSyncItem(KindSession, raw.WebsiteID, raw.SessionID, ts, body, tags)
}
