// Package service provides the backfill service implementation
package service

import (
	"context"
	"time"

	"ledgerpipe/internal/core/event"
	"ledgerpipe/internal/modkit/repokit"
	perr "ledgerpipe/internal/platform/errors"
	"ledgerpipe/internal/platform/logger"
	"ledgerpipe/internal/services/backfill/domain"
	relaydom "ledgerpipe/internal/services/relay/domain"

	"github.com/google/uuid"
)

// Config holds configuration options for the backfill service
type Config struct {
	ChunkSize     int // items per ledger write; <=0 -> 100
	PageSize      int // rows per source query; <=0 -> 500
	MaxRangeHours int // 0 = unlimited
}

// Service implements domain.RunnerPort: it replays a historical window of
// source rows through the same sink path the live relay uses
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]
	Sink   relaydom.SinkPort
	Cfg    Config
}

// New constructs the backfill service
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], sink relaydom.SinkPort, cfg Config) *Service {
	if db == nil {
		panic("backfill.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("backfill.Service requires a non nil Repo binder")
	}
	if sink == nil {
		panic("backfill.Service requires a non nil Sink")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 100
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	return &Service{DB: db, Binder: binder, Sink: sink, Cfg: cfg}
}

// RunRange implements domain.RunnerPort
func (s *Service) RunRange(ctx context.Context, in domain.Input) (domain.Result, error) {
	start := in.Start.UTC()
	end := in.End.UTC()
	if !end.After(start) {
		return domain.Result{}, perr.InvalidArgf("end must be after start")
	}
	if s.Cfg.MaxRangeHours > 0 && end.Sub(start) > time.Duration(s.Cfg.MaxRangeHours)*time.Hour {
		return domain.Result{}, perr.InvalidArgf("range exceeds %d hours", s.Cfg.MaxRangeHours)
	}
	if in.ChunkSize <= 0 {
		in.ChunkSize = s.Cfg.ChunkSize
	}
	if in.PageSize <= 0 {
		in.PageSize = s.Cfg.PageSize
	}

	var res domain.Result
	chunk := make([]event.SyncItem, 0, in.ChunkSize)

	emit := func(items []event.SyncItem, force bool) error {
		chunk = append(chunk, items...)
		for len(chunk) >= in.ChunkSize || (force && len(chunk) > 0) {
			n := min(len(chunk), in.ChunkSize)
			if err := s.writeChunk(ctx, in, chunk[:n], &res); err != nil {
				return err
			}
			chunk = append(chunk[:0], chunk[n:]...)
		}
		return nil
	}

	if err := s.scanEvents(ctx, start, end, in, &res, emit); err != nil {
		return res, err
	}
	if err := s.scanSessions(ctx, start, end, in, &res, emit); err != nil {
		return res, err
	}
	// final partial chunk
	if err := emit(nil, true); err != nil {
		return res, err
	}

	logger.C(ctx).Info().
		Int("scanned", res.Scanned).
		Int("written", res.Written).
		Int("skipped", res.Skipped).
		Int("batches", res.Batches).
		Msg("backfill complete")
	return res, nil
}

func (s *Service) writeChunk(ctx context.Context, in domain.Input, items []event.SyncItem, res *domain.Result) error {
	res.Batches++
	if in.DryRun {
		res.Written += len(items)
		return nil
	}
	batch := relaydom.Batch{ID: uuid.NewString(), Items: append([]event.SyncItem(nil), items...)}
	if err := s.Sink.WriteBatch(logger.WithBatch(ctx, batch.ID, ""), batch); err != nil {
		return err
	}
	res.Written += len(items)
	return nil
}

func (s *Service) scanEvents(
	ctx context.Context,
	start, end time.Time,
	in domain.Input,
	res *domain.Result,
	emit func([]event.SyncItem, bool) error,
) error {
	var cur domain.Cursor
	for {
		var rows []domain.EventRow
		err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
			var e error
			rows, cur, e = s.Binder.Bind(q).ListEvents(ctx, start, end, cur, in.PageSize)
			return e
		})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		items := make([]event.SyncItem, 0, len(rows))
		for _, r := range rows {
			res.Scanned++
			it, err := normalizeEventRow(r)
			if err != nil {
				res.Skipped++
				logger.C(ctx).Warn().Err(err).
					Str("event_id", r.EventID).
					Msg("skipping unnormalizable row")
				continue
			}
			res.Normalized++
			items = append(items, it)
		}
		if err := emit(items, false); err != nil {
			return err
		}
		if len(rows) < in.PageSize {
			return nil
		}
	}
}

func (s *Service) scanSessions(
	ctx context.Context,
	start, end time.Time,
	in domain.Input,
	res *domain.Result,
	emit func([]event.SyncItem, bool) error,
) error {
	var cur domain.Cursor
	for {
		var rows []domain.SessionRow
		err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
			var e error
			rows, cur, e = s.Binder.Bind(q).ListSessions(ctx, start, end, cur, in.PageSize)
			return e
		})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		items := make([]event.SyncItem, 0, len(rows))
		for _, r := range rows {
			res.Scanned++
			it, err := event.NormalizeSession(event.RawSession{
				SessionID: r.SessionID,
				WebsiteID: r.WebsiteID,
				CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339Nano),
				Hostname:  r.Hostname,
				Browser:   r.Browser,
				OS:        r.OS,
				Device:    r.Device,
				Screen:    r.Screen,
				Language:  r.Language,
				Country:   r.Country,
				Region:    r.Region,
				City:      r.City,
			})
			if err != nil {
				res.Skipped++
				logger.C(ctx).Warn().Err(err).
					Str("session_id", r.SessionID).
					Msg("skipping unnormalizable row")
				continue
			}
			res.Normalized++
			items = append(items, it)
		}
		if err := emit(items, false); err != nil {
			return err
		}
		if len(rows) < in.PageSize {
			return nil
		}
	}
}

// normalizeEventRow routes a website_event row to the right normalizer
func normalizeEventRow(r domain.EventRow) (event.SyncItem, error) {
	created := r.CreatedAt.UTC().Format(time.RFC3339Nano)
	if r.Kind() == event.KindEvent {
		return event.NormalizeEvent(event.RawEvent{
			EventID:   r.EventID,
			WebsiteID: r.WebsiteID,
			SessionID: r.SessionID,
			CreatedAt: created,
			EventName: r.EventName,
			Hostname:  r.Hostname,
			URLPath:   r.URLPath,
			PageTitle: r.PageTitle,
			Tag:       r.Tag,
		})
	}
	return event.NormalizePageView(event.RawPageView{
		EventID:        r.EventID,
		WebsiteID:      r.WebsiteID,
		SessionID:      r.SessionID,
		CreatedAt:      created,
		Hostname:       r.Hostname,
		URLPath:        r.URLPath,
		URLQuery:       r.URLQuery,
		ReferrerPath:   r.ReferrerPath,
		ReferrerDomain: r.ReferrerDomain,
		PageTitle:      r.PageTitle,
	})
}
