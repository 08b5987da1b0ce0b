// Package ledger is the client for the append-only ledger store. Entities
// carry an opaque payload, searchable annotations, and an expiry after which
// the store no longer guarantees retrieval.
package ledger

import (
	"time"

	perr "ledgerpipe/internal/platform/errors"
)

// Entity is one write-only record sent to the ledger store
type Entity struct {
	Payload     []byte      `json:"payload"`
	ContentType string      `json:"content_type"`
	Annotations Annotations `json:"annotations"`
	// Expiry is serialized as whole seconds on the wire
	Expiry time.Duration `json:"-"`
}

// Annotations are the searchable key/value pairs attached to an entity.
// Values are strings or numbers; duplicate keys are last-write-wins
type Annotations map[string]any

// Set assigns k=v and returns the map so calls chain during construction
func (a Annotations) Set(k string, v any) Annotations {
	a[k] = v
	return a
}

// Merge copies src into a, overwriting existing keys
func (a Annotations) Merge(src map[string]any) Annotations {
	for k, v := range src {
		a[k] = v
	}
	return a
}

// Validate rejects empty keys and values that are neither string nor number
func (a Annotations) Validate() error {
	for k, v := range a {
		if k == "" {
			return perr.InvalidArgf("annotation with empty key")
		}
		switch v.(type) {
		case string, int, int32, int64, float32, float64:
		default:
			return perr.InvalidArgf("annotation %q has unsupported value type %T", k, v)
		}
	}
	return nil
}
