package module

import (
	"time"

	"ledgerpipe/internal/platform/config"
)

// Options holds configuration settings for the backfill module
type Options struct {
	ChunkSize     int
	PageSize      int
	MaxRangeHours int

	Source string
	Expiry time.Duration

	MaxRetries int
	RetryBase  time.Duration
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	bf := cfg.Prefix("CORE_BACKFILL_")
	return Options{
		ChunkSize:     bf.MayInt("CHUNK_SIZE", 100),
		PageSize:      bf.MayInt("PAGE_SIZE", 500),
		MaxRangeHours: bf.MayInt("MAX_RANGE_HOURS", 0),

		// a distinct source tag keeps backfilled entities separable from
		// live relay writes when querying the ledger
		Source: bf.MayString("SOURCE", "umami-backfill"),
		// backfilled entities expire quickly; the live relay owns long retention
		Expiry: bf.MayDuration("EXPIRY", time.Hour),

		MaxRetries: bf.MayInt("MAX_RETRIES", 3),
		RetryBase:  bf.MayDuration("RETRY_BASE", time.Second),
	}
}
