package service

import (
	"context"
	"encoding/json"
	"time"

	"ledgerpipe/internal/adapters/ledger"
	perr "ledgerpipe/internal/platform/errors"
	"ledgerpipe/internal/platform/logger"
	"ledgerpipe/internal/services/relay/domain"
)

// SinkConfig controls entity construction
type SinkConfig struct {
	Source string        // fixed source annotation on every entity
	Expiry time.Duration // retention window for live pipeline data
}

func (c SinkConfig) withDefaults() SinkConfig {
	if c.Source == "" {
		c.Source = "umami"
	}
	if c.Expiry <= 0 {
		c.Expiry = 720 * time.Hour
	}
	return c
}

// Sink turns batches into ledger entities and writes them in one call
type Sink struct {
	w   ledger.Writer
	cfg SinkConfig
	log logger.Logger
}

// NewSink constructs a sink over a ledger writer
func NewSink(w ledger.Writer, cfg SinkConfig, log logger.Logger) *Sink {
	return &Sink{w: w, cfg: cfg.withDefaults(), log: log}
}

// WriteBatch implements domain.SinkPort. Success requires the ledger to
// acknowledge exactly as many entities as were submitted; a short count is
// a partial write and the whole batch is reported as failed, since ledger
// writes are idempotent appends and safe to resubmit in full
func (s *Sink) WriteBatch(ctx context.Context, b domain.Batch) error {
	if b.Size() == 0 {
		return nil
	}

	syncTime := time.Now().UTC().UnixMilli()
	entities := make([]ledger.Entity, 0, b.Size())
	for _, it := range b.Items {
		payload, err := json.Marshal(it.Body)
		if err != nil {
			return perr.JSONErrf("encode %s body: %v", it.Kind, err)
		}
		ann := ledger.Annotations{}.
			Merge(it.Tags).
			Set("type", string(it.Kind)).
			Set("source", s.cfg.Source).
			Set("website_id", it.WebsiteID).
			Set("timestamp", it.OccurredAt.Format(time.RFC3339)).
			Set("umami_id", it.SourceID).
			Set("sync_time", syncTime).
			Set("batch_size", b.Size())
		entities = append(entities, ledger.Entity{
			Payload:     payload,
			ContentType: "application/json",
			Annotations: ann,
			Expiry:      s.cfg.Expiry,
		})
	}

	ids, err := s.w.CreateEntities(ctx, entities)
	if err != nil {
		return err
	}
	if len(ids) != len(entities) {
		return perr.PartialWritef("ledger acked %d of %d entities", len(ids), len(entities))
	}

	logger.C(ctx).Debug().
		Int("entities", len(ids)).
		Msg("batch written")
	return nil
}
