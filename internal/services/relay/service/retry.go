package service

import (
	"context"
	"time"

	perr "ledgerpipe/internal/platform/errors"
	"ledgerpipe/internal/platform/logger"
	"ledgerpipe/internal/services/relay/domain"
)

// RetryConfig controls the supervisor
type RetryConfig struct {
	MaxRetries int           // retries after the initial attempt
	Base       time.Duration // first backoff; doubles per retry
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Base <= 0 {
		c.Base = time.Second
	}
	return c
}

// Supervisor wraps a sink with bounded exponential retry. It implements
// domain.SinkPort itself so the queue stays oblivious to retry policy.
// A batch walks a small FSM: attempting(n) -> done on success, -> dropped
// when retries are exhausted or the error is not worth repeating
type Supervisor struct {
	sink    domain.SinkPort
	cfg     RetryConfig
	log     logger.Logger
	onRetry func() // optional counter hook
}

// NewSupervisor wraps sink with the retry policy in cfg
func NewSupervisor(sink domain.SinkPort, cfg RetryConfig, log logger.Logger) *Supervisor {
	return &Supervisor{sink: sink, cfg: cfg.withDefaults(), log: log}
}

// OnRetry registers a hook invoked once per retry attempt
func (s *Supervisor) OnRetry(fn func()) { s.onRetry = fn }

// WriteBatch implements domain.SinkPort
func (s *Supervisor) WriteBatch(ctx context.Context, b domain.Batch) error {
	state := domain.RetryAttempting
	attempts := 0

	var last error
	for attempt := 0; ; attempt++ {
		attempts++
		last = s.sink.WriteBatch(ctx, b)
		if last == nil {
			state = domain.RetryDone
			break
		}
		if !perr.Retryable(last) {
			logger.C(ctx).Warn().Err(last).
				Str("batch", b.ID).
				Msg("batch failed with non-retryable error")
			state = domain.RetryDropped
			break
		}
		if attempt >= s.cfg.MaxRetries {
			state = domain.RetryDropped
			break
		}

		wait := s.cfg.Base << attempt // 1s, 2s, 4s with defaults
		logger.C(ctx).Warn().Err(last).
			Str("batch", b.ID).
			Int("attempt", attempt+1).
			Dur("backoff", wait).
			Msg("batch write failed, will retry")
		if s.onRetry != nil {
			s.onRetry()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	if state == domain.RetryDone {
		return nil
	}

	// terminal drop: report enough to reconstruct what was lost
	kinds := make([]string, 0, 3)
	for _, k := range b.Kinds() {
		kinds = append(kinds, string(k))
	}
	logger.C(ctx).Error().Err(last).
		Str("batch", b.ID).
		Int("size", b.Size()).
		Int("attempts", attempts).
		Strs("kinds", kinds).
		Msg("batch dropped")
	return perr.Exhaustedf("batch %s dropped after %d attempts: %v", b.ID, attempts, last)
}
