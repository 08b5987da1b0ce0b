// Package module wires the relay service: provisioner, listener, queue,
// sink and retry supervisor
package module

import (
	"context"

	"ledgerpipe/internal/modkit"
	"ledgerpipe/internal/modkit/repokit"
	phttp "ledgerpipe/internal/platform/net/http"
	"ledgerpipe/internal/services/relay/domain"
	"ledgerpipe/internal/services/relay/listen"
	"ledgerpipe/internal/services/relay/repo"
	"ledgerpipe/internal/services/relay/service"
)

// Ports exposed by the relay module
type Ports struct {
	Queue       domain.QueuePort
	Listener    domain.ListenerPort
	Provisioner domain.ProvisionerPort
}

// Module implements the relay service module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the relay module. The queue's async flushes are bounded by
// ctx, which should outlive the listener and be cancelled only after Drain
func New(ctx context.Context, deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	sink := service.NewSink(deps.Ledger, service.SinkConfig{
		Source: opts.Source,
		Expiry: opts.Expiry,
	}, deps.Log)

	retry := service.NewSupervisor(sink, service.RetryConfig{
		MaxRetries: opts.MaxRetries,
		Base:       opts.RetryBase,
	}, deps.Log)

	queue := service.NewQueue(ctx, service.QueueConfig{
		BatchSize:  opts.BatchSize,
		FlushDelay: opts.FlushDelay,
		RearmDelay: opts.RearmDelay,
	}, retry, deps.Log)
	retry.OnRetry(queue.RecordRetry)

	listener := listen.New(listen.Config{
		URL:             opts.ListenURL,
		ConnectRetries:  opts.ConnectRetries,
		ReconnectDelay:  opts.ReconnectDelay,
		MaxReconnectGap: opts.MaxReconnectGap,
	}, queue, deps.Log)

	m := &Module{deps: deps}
	m.ports = Ports{
		Queue:       queue,
		Listener:    listener,
		Provisioner: &provisioner{deps: deps},
	}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "relay" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes satisfies modkit.Module; the relay has no HTTP surface
func (m *Module) MountRoutes(r phttp.Router) {}

// provisioner adapts the repo behind the domain port, running the DDL
// inside a transaction so a half-installed trigger set never survives
type provisioner struct {
	deps modkit.Deps
}

func (p *provisioner) EnsureTriggers(ctx context.Context) error {
	binder := repo.NewPG()
	return repokit.WithTx(ctx, p.deps.PG, func(q repokit.Queryer) error {
		return repokit.MustBind(binder, q).EnsureTriggers(ctx)
	})
}
