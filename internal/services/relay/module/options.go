package module

import (
	"time"

	"ledgerpipe/internal/platform/config"
)

// Options holds configuration settings for the relay module
type Options struct {
	BatchSize  int
	FlushDelay time.Duration
	RearmDelay time.Duration

	MaxRetries int
	RetryBase  time.Duration

	Source string
	Expiry time.Duration

	ListenURL       string
	ConnectRetries  int
	ReconnectDelay  time.Duration
	MaxReconnectGap time.Duration
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	rf := cfg.Prefix("CORE_RELAY_")
	return Options{
		BatchSize:  rf.MayInt("BATCH_SIZE", 10),
		FlushDelay: rf.MayDuration("FLUSH_DELAY", 5*time.Second),
		RearmDelay: rf.MayDuration("REARM_DELAY", 100*time.Millisecond),

		MaxRetries: rf.MayInt("MAX_RETRIES", 3),
		RetryBase:  rf.MayDuration("RETRY_BASE", time.Second),

		Source: rf.MayString("SOURCE", "umami"),
		Expiry: rf.MayDuration("EXPIRY", 720*time.Hour),

		ListenURL:       cfg.Prefix("SERVICE_PGSQL_").MustString("URL"),
		ConnectRetries:  rf.MayInt("CONNECT_RETRIES", 5),
		ReconnectDelay:  rf.MayDuration("RECONNECT_DELAY", time.Second),
		MaxReconnectGap: rf.MayDuration("MAX_RECONNECT_GAP", 30*time.Second),
	}
}
