package domain

import "context"

// StatusPort exposes operational snapshots for the HTTP surface
type StatusPort interface {
	Health() Health
	Ready(ctx context.Context) Readiness
	Status(ctx context.Context) Status
}
