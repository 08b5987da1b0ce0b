// Package module wires the backfill service over the shared sink path
package module

import (
	"ledgerpipe/internal/modkit"
	phttp "ledgerpipe/internal/platform/net/http"
	"ledgerpipe/internal/services/backfill/domain"
	"ledgerpipe/internal/services/backfill/repo"
	"ledgerpipe/internal/services/backfill/service"
	relaysvc "ledgerpipe/internal/services/relay/service"
)

// Ports exposed by the backfill module
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the backfill service module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the backfill module. Writes go through the same sink and
// retry supervisor as the live relay, just with backfill retention
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	sink := relaysvc.NewSink(deps.Ledger, relaysvc.SinkConfig{
		Source: opts.Source,
		Expiry: opts.Expiry,
	}, deps.Log)
	retry := relaysvc.NewSupervisor(sink, relaysvc.RetryConfig{
		MaxRetries: opts.MaxRetries,
		Base:       opts.RetryBase,
	}, deps.Log)

	svc := service.New(deps.PG, repo.NewPG(), retry, service.Config{
		ChunkSize:     opts.ChunkSize,
		PageSize:      opts.PageSize,
		MaxRangeHours: opts.MaxRangeHours,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "backfill" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes satisfies modkit.Module; backfill is CLI-driven
func (m *Module) MountRoutes(r phttp.Router) {}
