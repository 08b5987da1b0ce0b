// Package service implements the relay pipeline core: the batch queue, the
// ledger sink and the retry supervisor
package service

import (
	"context"
	"sync"
	"time"

	"ledgerpipe/internal/core/event"
	perr "ledgerpipe/internal/platform/errors"
	"ledgerpipe/internal/platform/logger"
	"ledgerpipe/internal/services/relay/domain"

	"github.com/google/uuid"
)

// QueueConfig controls batching behavior
type QueueConfig struct {
	BatchSize  int           // flush immediately at this many pending items
	FlushDelay time.Duration // flush this long after the first pending item
	RearmDelay time.Duration // delay before the next flush when items remain
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.FlushDelay <= 0 {
		c.FlushDelay = 5 * time.Second
	}
	if c.RearmDelay <= 0 {
		c.RearmDelay = 100 * time.Millisecond
	}
	return c
}

// Queue is a bounded-delay buffer releasing FIFO batches to a sink with at
// most one write in flight. Invariant: the timer is armed iff pending is
// non-empty and no flush is in flight
type Queue struct {
	cfg  QueueConfig
	sink domain.SinkPort
	log  logger.Logger

	// ctx bounds the async flush goroutines spawned by enqueue and the timer
	ctx context.Context

	mu       sync.Mutex
	pending  []event.SyncItem
	inFlight bool
	timer    *time.Timer
	timerGen uint64 // bumped on every arm/stop so a stale fire is a no-op

	enqueued      int64
	flushed       int64
	writtenItems  int64
	droppedBatch  int64
	droppedItems  int64
	retryAttempts int64
}

// NewQueue constructs a queue whose async flushes are bounded by ctx
func NewQueue(ctx context.Context, cfg QueueConfig, sink domain.SinkPort, log logger.Logger) *Queue {
	return &Queue{
		cfg:  cfg.withDefaults(),
		sink: sink,
		log:  log,
		ctx:  ctx,
	}
}

// Enqueue implements domain.QueuePort. It never waits on the network: a
// flush it triggers runs on its own goroutine
func (q *Queue) Enqueue(item event.SyncItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, item)
	q.enqueued++

	if q.inFlight {
		// the completion path re-arms once the current write settles
		return
	}
	if len(q.pending) >= q.cfg.BatchSize {
		q.stopTimerLocked()
		q.startFlushLocked()
		return
	}
	if q.timer == nil {
		q.armTimerLocked(q.cfg.FlushDelay)
	}
}

// Drain flushes until pending is empty and nothing is in flight, or ctx
// expires. Called once at shutdown after the listener has stopped
func (q *Queue) Drain(ctx context.Context) error {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 && !q.inFlight {
			q.mu.Unlock()
			return nil
		}
		if !q.inFlight {
			q.stopTimerLocked()
			q.startFlushLocked()
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			q.mu.Lock()
			n := len(q.pending)
			q.mu.Unlock()
			return perr.Exhaustedf("drain aborted with %d items pending", n)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Stats implements domain.QueuePort
func (q *Queue) Stats() domain.QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return domain.QueueStats{
		Pending:       len(q.pending),
		InFlight:      q.inFlight,
		Enqueued:      q.enqueued,
		Flushed:       q.flushed,
		WrittenItems:  q.writtenItems,
		DroppedBatch:  q.droppedBatch,
		DroppedItems:  q.droppedItems,
		RetryAttempts: q.retryAttempts,
	}
}

// timerFired runs the scheduled flush. gen guards against a fire that was
// already in flight when the timer it belongs to was stopped or replaced
func (q *Queue) timerFired(gen uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if gen != q.timerGen {
		return
	}
	q.timer = nil
	if q.inFlight || len(q.pending) == 0 {
		return
	}
	q.startFlushLocked()
}

// armTimerLocked schedules a flush after d. Caller holds q.mu
func (q *Queue) armTimerLocked(d time.Duration) {
	q.timerGen++
	gen := q.timerGen
	q.timer = time.AfterFunc(d, func() { q.timerFired(gen) })
}

func (q *Queue) stopTimerLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
		q.timerGen++
	}
}

// startFlushLocked takes up to BatchSize items off the front and hands them
// to the sink on a fresh goroutine. Caller holds q.mu and has checked that
// no flush is in flight and pending is non-empty
func (q *Queue) startFlushLocked() {
	n := len(q.pending)
	if n > q.cfg.BatchSize {
		n = q.cfg.BatchSize
	}
	items := make([]event.SyncItem, n)
	copy(items, q.pending[:n])
	q.pending = append(q.pending[:0], q.pending[n:]...)
	q.inFlight = true
	q.flushed++

	batch := domain.Batch{ID: uuid.NewString(), Items: items}
	go q.write(batch)
}

func (q *Queue) write(b domain.Batch) {
	ctx := logger.WithBatch(q.ctx, b.ID, "")
	err := q.sink.WriteBatch(ctx, b)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.inFlight = false
	if err != nil {
		q.droppedBatch++
		q.droppedItems += int64(b.Size())
	} else {
		q.writtenItems += int64(b.Size())
	}
	// re-arm with the short delay rather than flushing immediately, so a
	// slow sink does not turn this loop into a hot spin
	if len(q.pending) > 0 && q.timer == nil {
		q.armTimerLocked(q.cfg.RearmDelay)
	}
}

// RecordRetry bumps the retry counter; wired into the supervisor so status
// reporting sees attempts without the supervisor owning any queue state
func (q *Queue) RecordRetry() {
	q.mu.Lock()
	q.retryAttempts++
	q.mu.Unlock()
}
