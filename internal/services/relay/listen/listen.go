// Package listen maintains the notification subscription against the source
// store and feeds decoded payloads into the relay queue
package listen

import (
	"context"
	"time"

	"ledgerpipe/internal/core/event"
	perr "ledgerpipe/internal/platform/errors"
	"ledgerpipe/internal/platform/logger"
	"ledgerpipe/internal/platform/net/http/bind"
	"ledgerpipe/internal/services/relay/domain"

	"github.com/jackc/pgx/v5"
)

// Config controls the listener connection
type Config struct {
	URL             string        // source store DSN; required
	ConnectRetries  int           // startup connect attempts
	ReconnectDelay  time.Duration // base delay between reconnects
	MaxReconnectGap time.Duration // backoff ceiling
}

func (c Config) withDefaults() Config {
	if c.ConnectRetries <= 0 {
		c.ConnectRetries = 5
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = time.Second
	}
	if c.MaxReconnectGap <= 0 {
		c.MaxReconnectGap = 30 * time.Second
	}
	return c
}

// Listener owns a dedicated connection for LISTEN traffic. It is not a pool
// member: WaitForNotification monopolizes the connection for its lifetime
type Listener struct {
	cfg   Config
	queue domain.QueuePort
	log   logger.Logger
}

// New constructs a listener feeding q
func New(cfg Config, q domain.QueuePort, log logger.Logger) *Listener {
	return &Listener{cfg: cfg.withDefaults(), queue: q, log: log}
}

// Listen implements domain.ListenerPort. It blocks until ctx is cancelled.
// A dead connection after startup is re-established with backoff; only a
// failure to connect at startup is fatal
func (l *Listener) Listen(ctx context.Context) error {
	conn, err := l.connect(ctx)
	if err != nil {
		return err
	}

	for {
		err := l.run(ctx, conn)
		_ = conn.Close(context.Background())
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Warn().Err(err).Msg("notification connection lost, reconnecting")

		conn = l.reconnect(ctx)
		if conn == nil {
			return ctx.Err()
		}
	}
}

// connect dials and subscribes, retrying up to ConnectRetries times
func (l *Listener) connect(ctx context.Context) (*pgx.Conn, error) {
	var last error
	for i := 0; i < l.cfg.ConnectRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(l.backoff(i)):
			}
		}
		conn, err := pgx.Connect(ctx, l.cfg.URL)
		if err != nil {
			last = err
			continue
		}
		if err := l.subscribe(ctx, conn); err != nil {
			_ = conn.Close(context.Background())
			last = err
			continue
		}
		return conn, nil
	}
	return nil, perr.Unavailablef("listener connect: %v", last)
}

// reconnect keeps trying until it succeeds or ctx is cancelled
func (l *Listener) reconnect(ctx context.Context) *pgx.Conn {
	for i := 1; ; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.backoff(i)):
		}
		conn, err := pgx.Connect(ctx, l.cfg.URL)
		if err != nil {
			l.log.Warn().Err(err).Int("attempt", i).Msg("listener reconnect failed")
			continue
		}
		if err := l.subscribe(ctx, conn); err != nil {
			_ = conn.Close(context.Background())
			l.log.Warn().Err(err).Int("attempt", i).Msg("listener resubscribe failed")
			continue
		}
		l.log.Info().Int("attempt", i).Msg("listener reconnected")
		return conn
	}
}

func (l *Listener) backoff(attempt int) time.Duration {
	d := l.cfg.ReconnectDelay << uint(attempt-1)
	if d > l.cfg.MaxReconnectGap || d <= 0 {
		d = l.cfg.MaxReconnectGap
	}
	return d
}

func (l *Listener) subscribe(ctx context.Context, conn *pgx.Conn) error {
	for _, k := range event.Kinds() {
		// channel names come from a fixed enum, not user input
		if _, err := conn.Exec(ctx, "LISTEN "+k.Channel()); err != nil {
			return err
		}
	}
	l.log.Info().Msg("subscribed to notification channels")
	return nil
}

// run pumps notifications until the connection dies or ctx is cancelled
func (l *Listener) run(ctx context.Context, conn *pgx.Conn) error {
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.handle(n.Channel, n.Payload)
	}
}

// handle decodes one notification. Failures are logged and the notification
// dropped; one bad payload never stalls the stream
func (l *Listener) handle(channel, payload string) {
	kind, err := event.KindFromChannel(channel)
	if err != nil {
		l.log.Warn().Str("channel", channel).Msg("notification on unknown channel")
		return
	}

	item, err := decode(kind, []byte(payload))
	if err != nil {
		l.log.Warn().Err(err).
			Str("channel", channel).
			Msg("dropping undecodable notification")
		return
	}

	l.queue.Enqueue(item)
	l.log.Debug().
		Str("channel", channel).
		Str("website_id", item.WebsiteID).
		Msg("notification enqueued")
}

// decode picks the per-kind payload shape, validates it and normalizes
func decode(kind event.Kind, payload []byte) (event.SyncItem, error) {
	switch kind {
	case event.KindPageView:
		raw, err := bind.DecodePayload[event.RawPageView](payload)
		if err != nil {
			return event.SyncItem{}, err
		}
		return event.NormalizePageView(raw)
	case event.KindEvent:
		raw, err := bind.DecodePayload[event.RawEvent](payload)
		if err != nil {
			return event.SyncItem{}, err
		}
		return event.NormalizeEvent(raw)
	case event.KindSession:
		raw, err := bind.DecodePayload[event.RawSession](payload)
		if err != nil {
			return event.SyncItem{}, err
		}
		return event.NormalizeSession(raw)
	default:
		return event.SyncItem{}, perr.InvalidArgf("no decoder for kind %q", kind)
	}
}
