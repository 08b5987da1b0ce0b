// Package domain defines the core types and interfaces for the ops service
package domain

import (
	"ledgerpipe/internal/core/version"
	relaydom "ledgerpipe/internal/services/relay/domain"
)

// Health is the liveness snapshot
type Health struct {
	Status string `json:"status"`
}

// Readiness reports each dependency separately so probes can tell which
// side of the pipeline is unhealthy
type Readiness struct {
	Ready  bool   `json:"ready"`
	Source string `json:"source"` // "ok" or the ping error
	Ledger string `json:"ledger"`
}

// Status is the full operational snapshot
type Status struct {
	Build version.BuildInfo   `json:"build"`
	Ready Readiness           `json:"ready"`
	Queue relaydom.QueueStats `json:"queue"`
}
