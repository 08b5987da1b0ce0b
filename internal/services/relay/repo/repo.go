// Package repo installs the change-capture triggers on the source store.
package repo

import (
	"context"

	"ledgerpipe/internal/modkit/repokit"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the relay repository
type Storage interface {
	EnsureTriggers(ctx context.Context) error
}

// provisioning statements, executed in order. CREATE OR REPLACE plus
// DROP IF EXISTS keeps the whole sequence idempotent, so every startup
// can run it unconditionally
var triggerDDL = []string{
	// website_event carries both pageviews and custom events; the
	// function routes on event_type so each kind gets its own channel
	`CREATE OR REPLACE FUNCTION ledgerpipe_notify_website_event() RETURNS trigger AS $$
	BEGIN
		IF NEW.event_type = 2 THEN
			PERFORM pg_notify('ledgerpipe_event', row_to_json(NEW)::text);
		ELSE
			PERFORM pg_notify('ledgerpipe_pageview', row_to_json(NEW)::text);
		END IF;
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,

	`CREATE OR REPLACE FUNCTION ledgerpipe_notify_session() RETURNS trigger AS $$
	BEGIN
		PERFORM pg_notify('ledgerpipe_session', row_to_json(NEW)::text);
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,

	`DROP TRIGGER IF EXISTS ledgerpipe_website_event_insert ON website_event`,

	`CREATE TRIGGER ledgerpipe_website_event_insert
		AFTER INSERT ON website_event
		FOR EACH ROW EXECUTE FUNCTION ledgerpipe_notify_website_event()`,

	`DROP TRIGGER IF EXISTS ledgerpipe_session_insert ON session`,

	`CREATE TRIGGER ledgerpipe_session_insert
		AFTER INSERT ON session
		FOR EACH ROW EXECUTE FUNCTION ledgerpipe_notify_session()`,
}

// EnsureTriggers implements Storage
func (s *pg) EnsureTriggers(ctx context.Context) error {
	for _, stmt := range triggerDDL {
		if _, err := s.q.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
