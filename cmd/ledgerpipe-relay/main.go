// ledgerpipe-relay mirrors new analytics rows into the ledger store:
// install the capture triggers, listen for change notifications, batch
// them and write ledger entities, with an ops HTTP surface on the side
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"ledgerpipe/internal/adapters/ledger"
	"ledgerpipe/internal/modkit"
	"ledgerpipe/internal/modkit/module"
	"ledgerpipe/internal/modkit/repokit"
	"ledgerpipe/internal/platform/config"
	"ledgerpipe/internal/platform/logger"
	phttp "ledgerpipe/internal/platform/net/http"
	"ledgerpipe/internal/platform/net/middleware"
	"ledgerpipe/internal/platform/store"

	opsmod "ledgerpipe/internal/services/ops/module"
	relaymod "ledgerpipe/internal/services/relay/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	ledgerCfg := root.Prefix("SERVICE_LEDGER_")
	opsCfg := root.Prefix("CORE_OPS_")

	l := logger.Get()

	st, err := store.Open(context.Background(), store.Config{
		AppName: "ledgerpipe-relay",
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

	deps := modkit.Deps{
		Log:    *l,
		Cfg:    root,
		PG:     st.PG,
		Ledger: lc,
	}

	// pipeline lifetime: cancelled on SIGINT/SIGTERM; the queue drains
	// inside a separate bounded context afterwards
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	relay := relaymod.New(context.Background(), deps)
	ports := module.MustPortsOf[relaymod.Ports](relay)

	// triggers must exist before the first LISTEN, or inserts race the
	// subscription
	if err := ports.Provisioner.EnsureTriggers(ctx); err != nil {
		l.Panic().Err(err).Msg("trigger provisioning failed")
	}
	l.Info().Msg("capture triggers provisioned")

	// ops server (CORE_OPS_PORT)
	srv := phttp.NewServer(opsCfg)
	r := srv.Router()
	r.Use(middleware.RealIP())
	r.Use(middleware.RequestID())
	r.Use(middleware.RecoverJSON)
	r.Use(middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: time.Second}))
	r.Use(middleware.CORS(middleware.CORSOptions{
		AllowedOrigins: opsCfg.MayCSV("CORS_ORIGINS", []string{"*"}),
	}))
	opsmod.New(deps, ports.Queue, lc).MountRoutes(r)
	phttp.MountSwagger(r, opsCfg.MayBool("SWAGGER", true))
	go func() {
		if err := srv.Run(context.Background()); err != nil {
			l.Error().Err(err).Msg("ops server stopped")
		}
	}()

	// listener blocks until shutdown
	if err := ports.Listener.Listen(ctx); err != nil && ctx.Err() == nil {
		l.Error().Err(err).Msg("listener stopped")
	}

	// bounded drain of whatever the listener enqueued before it stopped
	drainBound := opsCfg.MayDuration("DRAIN_BOUND", 10*time.Second)
	drainCtx, cancel := context.WithTimeout(context.Background(), drainBound)
	defer cancel()
	if err := ports.Queue.Drain(drainCtx); err != nil {
		l.Error().Err(err).Msg("drain incomplete")
	} else {
		l.Info().Msg("queue drained")
	}

	if err := srv.Shutdown(drainCtx); err != nil {
		l.Error().Err(err).Msg("ops server shutdown failed")
	}
}
