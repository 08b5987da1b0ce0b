// Package http provides http transport for ops
package http

import (
	stdhttp "net/http"

	"ledgerpipe/internal/adapters/ledger"
	perr "ledgerpipe/internal/platform/errors"
	phttp "ledgerpipe/internal/platform/net/http"
	"ledgerpipe/internal/platform/net/http/bind"
	"ledgerpipe/internal/services/ops/domain"
)

// Register mounts ops endpoints on the given router
func Register(r phttp.Router, s domain.StatusPort, q ledger.Querier) {
	h := &handlers{svc: s, querier: q}

	r.Get("/healthz", phttp.Handle(h.health))
	r.Get("/readyz", phttp.Handle(h.ready))
	r.Get("/status", phttp.Handle(h.status))
	r.Post("/entities/query", phttp.Handle(h.query))
}

type handlers struct {
	svc     domain.StatusPort
	querier ledger.Querier
}

func (h *handlers) health(r *stdhttp.Request) (any, error) {
	return h.svc.Health(), nil
}

func (h *handlers) ready(r *stdhttp.Request) (any, error) {
	rd := h.svc.Ready(r.Context())
	if !rd.Ready {
		return nil, perr.Unavailablef("source=%s ledger=%s", rd.Source, rd.Ledger)
	}
	return rd, nil
}

func (h *handlers) status(r *stdhttp.Request) (any, error) {
	return h.svc.Status(r.Context()), nil
}

// queryInput narrows the passthrough surface: annotation filters only
type queryInput struct {
	Where    map[string]any `json:"where" validate:"required,min=1"`
	PageSize int            `json:"page_size" validate:"omitempty,min=1,max=1000"`
	Cursor   string         `json:"cursor"`
}

// query proxies an annotation query to the ledger, for spot-checking what
// the pipeline has written without direct ledger access
func (h *handlers) query(r *stdhttp.Request) (any, error) {
	if h.querier == nil {
		return nil, perr.Unavailablef("ledger querier not configured")
	}
	in, err := bind.ParseJSON[queryInput](r)
	if err != nil {
		return nil, err
	}
	return h.querier.Query(r.Context(), ledger.Query{
		Where:    in.Where,
		PageSize: in.PageSize,
		Cursor:   in.Cursor,
	})
}
