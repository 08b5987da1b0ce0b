// Package module wires the ops service: health, readiness, status and the
// ledger query passthrough
package module

import (
	"ledgerpipe/internal/adapters/ledger"
	"ledgerpipe/internal/modkit"
	phttp "ledgerpipe/internal/platform/net/http"
	"ledgerpipe/internal/services/ops/domain"
	opshttp "ledgerpipe/internal/services/ops/http"
	"ledgerpipe/internal/services/ops/service"
	relaydom "ledgerpipe/internal/services/relay/domain"
)

// Ports exposed by the ops module
type Ports struct {
	Status domain.StatusPort
}

// Module implements the ops service module
type Module struct {
	deps    modkit.Deps
	ports   Ports
	querier ledger.Querier
}

// New constructs the ops module. queue and querier are optional
func New(deps modkit.Deps, queue relaydom.QueuePort, querier ledger.Querier) *Module {
	var ping service.Pinger
	if deps.Ledger != nil {
		ping = deps.Ledger
	}
	svc := service.New(deps.PG, ping, queue)

	m := &Module{deps: deps, querier: querier}
	m.ports = Ports{Status: svc}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "ops" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(r phttp.Router) {
	opshttp.Register(r, m.ports.Status, m.querier)
}
