// ledgerpipe-backfill replays a historical window of analytics rows into
// the ledger store with short retention
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"ledgerpipe/internal/adapters/ledger"
	"ledgerpipe/internal/modkit"
	"ledgerpipe/internal/modkit/module"
	"ledgerpipe/internal/modkit/repokit"
	"ledgerpipe/internal/platform/config"
	"ledgerpipe/internal/platform/logger"
	"ledgerpipe/internal/platform/store"

	"ledgerpipe/internal/services/backfill/domain"
	backfillmod "ledgerpipe/internal/services/backfill/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	ledgerCfg := root.Prefix("SERVICE_LEDGER_")

	l := logger.Get()

	var (
		fStart  = flag.String("start", "", "UTC window start, RFC3339 (e.g. 2024-01-01T00:00:00Z)")
		fEnd    = flag.String("end", "", "UTC window end, RFC3339, exclusive")
		fChunk  = flag.Int("chunk", 0, "items per ledger write (0 = configured default)")
		fDryRun = flag.Bool("dry-run", false, "scan and normalize without writing to the ledger")
	)
	flag.Parse()

	start, err := time.Parse(time.RFC3339, *fStart)
	if err != nil {
		l.Fatal().Str("start", *fStart).Msg("-start must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, *fEnd)
	if err != nil {
		l.Fatal().Str("end", *fEnd).Msg("-end must be RFC3339")
	}

	st, err := store.Open(context.Background(), store.Config{
		AppName: "ledgerpipe-backfill",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("URL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	repokit.MustGuard(context.Background(), st)

	lc := ledger.New(ledger.FromConf(ledgerCfg), *l)
	repokit.MustPing(context.Background(), "ledger", lc)

	deps := modkit.Deps{
		Log:    *l,
		Cfg:    root,
		PG:     st.PG,
		Ledger: lc,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bf := backfillmod.New(deps)
	ports := module.MustPortsOf[backfillmod.Ports](bf)

	res, err := ports.Runner.RunRange(ctx, domain.Input{
		Start:     start,
		End:       end,
		ChunkSize: *fChunk,
		DryRun:    *fDryRun,
	})
	if err != nil {
		l.Fatal().Err(err).Msg("backfill failed")
	}
	l.Info().
		Int("scanned", res.Scanned).
		Int("written", res.Written).
		Int("skipped", res.Skipped).
		Int("batches", res.Batches).
		Bool("dry_run", *fDryRun).
		Msg("backfill finished")
}
