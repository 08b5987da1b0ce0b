// Package service provides the ops service implementation
package service

import (
	"context"

	"ledgerpipe/internal/core/version"
	"ledgerpipe/internal/platform/store"
	"ledgerpipe/internal/services/ops/domain"
	relaydom "ledgerpipe/internal/services/relay/domain"
)

// Pinger matches anything that can report readiness
type Pinger interface {
	Ping(ctx context.Context) error
}

// Service implements domain.StatusPort
type Service struct {
	pg     store.TxRunner
	ledger Pinger
	queue  relaydom.QueuePort
}

// New constructs the ops service. queue may be nil when running a binary
// without a live relay (backfill exposes no queue)
func New(pg store.TxRunner, ledger Pinger, queue relaydom.QueuePort) *Service {
	return &Service{pg: pg, ledger: ledger, queue: queue}
}

// Health implements domain.StatusPort
func (s *Service) Health() domain.Health {
	return domain.Health{Status: "ok"}
}

// Ready implements domain.StatusPort
func (s *Service) Ready(ctx context.Context) domain.Readiness {
	r := domain.Readiness{Ready: true, Source: "ok", Ledger: "ok"}
	if s.pg != nil {
		if _, err := store.Scalar[int](ctx, s.pg, "select 1"); err != nil {
			r.Ready = false
			r.Source = err.Error()
		}
	}
	if s.ledger != nil {
		if err := s.ledger.Ping(ctx); err != nil {
			r.Ready = false
			r.Ledger = err.Error()
		}
	}
	return r
}

// Status implements domain.StatusPort
func (s *Service) Status(ctx context.Context) domain.Status {
	st := domain.Status{
		Build: version.Info(),
		Ready: s.Ready(ctx),
	}
	if s.queue != nil {
		st.Queue = s.queue.Stats()
	}
	return st
}
