// Package event defines the normalized change-record model for the relay
// pipeline: record kinds, the SyncItem unit of work, and the pure mapping
// from decoded notification payloads into SyncItems. No I/O lives here
package event

import (
	"strings"

	perr "ledgerpipe/internal/platform/errors"
)

// Kind discriminates the three record families mirrored to the ledger
type Kind string

const (
	KindPageView Kind = "pageview"
	KindEvent    Kind = "event"
	KindSession  Kind = "session"
)

// ChannelPrefix namespaces the notification channels so a shared database
// can carry unrelated LISTEN traffic without collisions
const ChannelPrefix = "ledgerpipe_"

// Valid reports whether k is one of the three known kinds
func (k Kind) Valid() bool {
	switch k {
	case KindPageView, KindEvent, KindSession:
		return true
	}
	return false
}

// Channel returns the notification channel name for k
func (k Kind) Channel() string { return ChannelPrefix + string(k) }

// Kinds returns all kinds in channel-subscription order
func Kinds() []Kind { return []Kind{KindPageView, KindEvent, KindSession} }

// KindFromChannel maps a notification channel name back to its Kind
func KindFromChannel(ch string) (Kind, error) {
	k := Kind(strings.TrimPrefix(ch, ChannelPrefix))
	if !strings.HasPrefix(ch, ChannelPrefix) || !k.Valid() {
		return "", perr.InvalidArgf("unknown notification channel %q", ch)
	}
	return k, nil
}
