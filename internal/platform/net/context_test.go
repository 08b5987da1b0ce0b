package net_test

import (
	"context"
	"testing"

	pnet "ledgerpipe/internal/platform/net"
)

func TestWithRequestID_RoundTrip(t *testing.T) {
	ctx := pnet.WithRequestID(context.Background(), "req-123")
	if got := pnet.RequestID(ctx); got != "req-123" {
		t.Fatalf("RequestID = %q, want %q", got, "req-123")
	}
}

func TestRequestID_EmptyContext(t *testing.T) {
	if got := pnet.RequestID(context.Background()); got != "" {
		t.Fatalf("RequestID on empty ctx = %q, want empty", got)
	}
}

func TestWithRequestID_EmptyNoop(t *testing.T) {
	base := context.Background()
	if got := pnet.WithRequestID(base, ""); got != base {
		t.Fatal("empty request id should not allocate a new context")
	}
}
