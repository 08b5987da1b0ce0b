// Package repo provides the backfill repository implementation.
package repo

import (
	"context"
	"time"

	"ledgerpipe/internal/modkit/repokit"
	"ledgerpipe/internal/platform/store"
	"ledgerpipe/internal/services/backfill/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[domain.StorageRepo] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) domain.StorageRepo { return &pg{q: q} }

// ListEvents implements domain.StorageRepo. Keyset pagination on
// (created_at, event_id) keeps each page cheap regardless of window size
func (s *pg) ListEvents(
	ctx context.Context,
	start, end time.Time,
	after domain.Cursor,
	limit int,
) ([]domain.EventRow, domain.Cursor, error) {
	const q = `
		SELECT event_id::text, website_id::text, COALESCE(session_id::text, ''),
			created_at, event_type,
			COALESCE(hostname, ''), COALESCE(url_path, ''), COALESCE(url_query, ''),
			COALESCE(referrer_path, ''), COALESCE(referrer_domain, ''),
			COALESCE(page_title, ''), COALESCE(event_name, ''), COALESCE(tag, '')
		FROM website_event
		WHERE created_at >= $1 AND created_at < $2
			AND (created_at, event_id::text) > ($3, $4)
		ORDER BY created_at, event_id::text
		LIMIT $5`

	var out []domain.EventRow
	next := after
	err := store.Each(ctx, s.q, func(rs repokit.Rows) error {
		var r domain.EventRow
		if err := rs.Scan(
			&r.EventID, &r.WebsiteID, &r.SessionID,
			&r.CreatedAt, &r.EventType,
			&r.Hostname, &r.URLPath, &r.URLQuery,
			&r.ReferrerPath, &r.ReferrerDomain,
			&r.PageTitle, &r.EventName, &r.Tag,
		); err != nil {
			return err
		}
		out = append(out, r)
		next = domain.Cursor{At: r.CreatedAt, ID: r.EventID}
		return nil
	}, q, start, end, cursorAt(after), after.ID, limit)
	if err != nil {
		return nil, after, err
	}
	return out, next, nil
}

// ListSessions implements domain.StorageRepo
func (s *pg) ListSessions(
	ctx context.Context,
	start, end time.Time,
	after domain.Cursor,
	limit int,
) ([]domain.SessionRow, domain.Cursor, error) {
	const q = `
		SELECT session_id::text, website_id::text, created_at,
			COALESCE(hostname, ''), COALESCE(browser, ''), COALESCE(os, ''),
			COALESCE(device, ''), COALESCE(screen, ''), COALESCE(language, ''),
			COALESCE(country, ''), COALESCE(subdivision1, ''), COALESCE(city, '')
		FROM session
		WHERE created_at >= $1 AND created_at < $2
			AND (created_at, session_id::text) > ($3, $4)
		ORDER BY created_at, session_id::text
		LIMIT $5`

	var out []domain.SessionRow
	next := after
	err := store.Each(ctx, s.q, func(rs repokit.Rows) error {
		var r domain.SessionRow
		if err := rs.Scan(
			&r.SessionID, &r.WebsiteID, &r.CreatedAt,
			&r.Hostname, &r.Browser, &r.OS,
			&r.Device, &r.Screen, &r.Language,
			&r.Country, &r.Region, &r.City,
		); err != nil {
			return err
		}
		out = append(out, r)
		next = domain.Cursor{At: r.CreatedAt, ID: r.SessionID}
		return nil
	}, q, start, end, cursorAt(after), after.ID, limit)
	if err != nil {
		return nil, after, err
	}
	return out, next, nil
}

// cursorAt maps the zero cursor to a timestamp below any real row so the
// first page uses the same query shape as the rest
func cursorAt(c domain.Cursor) time.Time {
	if c.Zero() {
		return time.Unix(0, 0).UTC()
	}
	return c.At
}
