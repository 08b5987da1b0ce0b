package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	perr "ledgerpipe/internal/platform/errors"

	"github.com/rs/zerolog"
)

func testClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{URL: srv.URL, Timeout: 2 * time.Second}, zerolog.Nop()), srv
}

func TestCreateEntities_SendsWireShapeAndReturnsIDs(t *testing.T) {
	var got createRequest
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/entities" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(createResponse{IDs: []string{"e1", "e2"}})
	})

	ids, err := c.CreateEntities(context.Background(), []Entity{
		{
			Payload:     []byte(`{"url":"/"}`),
			ContentType: "application/json",
			Annotations: Annotations{"type": "pageview", "website_id": "S1"},
			Expiry:      30 * 24 * time.Hour,
		},
		{
			Payload:     []byte(`{"name":"signup"}`),
			ContentType: "application/json",
			Annotations: Annotations{"type": "event"},
			Expiry:      time.Hour,
		},
	})
	if err != nil {
		t.Fatalf("CreateEntities: %v", err)
	}
	if len(ids) != 2 || ids[0] != "e1" {
		t.Fatalf("ids = %v", ids)
	}
	if len(got.Entities) != 2 {
		t.Fatalf("wire entities = %d", len(got.Entities))
	}
	if got.Entities[0].ExpirySecs != int64((30 * 24 * time.Hour).Seconds()) {
		t.Fatalf("expiry_seconds = %d", got.Entities[0].ExpirySecs)
	}
	if got.Entities[1].ExpirySecs != 3600 {
		t.Fatalf("second expiry_seconds = %d", got.Entities[1].ExpirySecs)
	}
}

func TestCreateEntities_EmptyBatchIsNoop(t *testing.T) {
	called := false
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	ids, err := c.CreateEntities(context.Background(), nil)
	if err != nil || ids != nil {
		t.Fatalf("empty batch: ids=%v err=%v", ids, err)
	}
	if called {
		t.Fatal("no call expected for empty batch")
	}
}

func TestCreateEntities_RejectsBadAnnotations(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be reached")
	})

	_, err := c.CreateEntities(context.Background(), []Entity{
		{Annotations: Annotations{"bad": []string{"not", "scalar"}}},
	})
	if perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
		t.Fatalf("CodeOf = %v, want InvalidArgument", perr.CodeOf(err))
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status    int
		wantCode  perr.ErrorCode
		retryable bool
	}{
		{http.StatusInternalServerError, perr.ErrorCodeUnavailable, true},
		{http.StatusBadGateway, perr.ErrorCodeUnavailable, true},
		{http.StatusTooManyRequests, perr.ErrorCodeUnavailable, true},
		{http.StatusBadRequest, perr.ErrorCodeInvalidArgument, false},
		{http.StatusUnauthorized, perr.ErrorCodeInvalidArgument, false},
	}
	for _, tc := range cases {
		c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		})
		_, err := c.CreateEntities(context.Background(), []Entity{{Annotations: Annotations{}}})
		if perr.CodeOf(err) != tc.wantCode {
			t.Fatalf("status %d: CodeOf = %v, want %v", tc.status, perr.CodeOf(err), tc.wantCode)
		}
		if perr.Retryable(err) != tc.retryable {
			t.Fatalf("status %d: Retryable = %v, want %v", tc.status, perr.Retryable(err), tc.retryable)
		}
	}
}

func TestQuery_PagesThroughCursor(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		var q Query
		_ = json.NewDecoder(r.Body).Decode(&q)
		if q.Cursor == "" {
			_ = json.NewEncoder(w).Encode(Page{
				Entities:   []QueriedEntity{{ID: "a"}, {ID: "b"}},
				NextCursor: "p2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(Page{Entities: []QueriedEntity{{ID: "c"}}})
	})

	p1, err := c.Query(context.Background(), Query{
		Where:    map[string]any{"type": "pageview", "website_id": "S1"},
		PageSize: 2,
	})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if p1.NextCursor != "p2" || len(p1.Entities) != 2 {
		t.Fatalf("page 1 = %+v", p1)
	}

	p2, err := c.Query(context.Background(), Query{Cursor: p1.NextCursor})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if p2.NextCursor != "" || len(p2.Entities) != 1 {
		t.Fatalf("page 2 = %+v", p2)
	}
}

func TestPing(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/healthz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestPing_DownStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // dead endpoint
	c := New(Config{URL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if err := c.Ping(context.Background()); perr.CodeOf(err) != perr.ErrorCodeUnavailable {
		t.Fatalf("CodeOf = %v, want Unavailable", perr.CodeOf(err))
	}
}

func TestAuthHeader(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(createResponse{})
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, APIKey: "sekrit"}, zerolog.Nop())
	_, _ = c.CreateEntities(context.Background(), []Entity{{Annotations: Annotations{}}})
	if auth != "Bearer sekrit" {
		t.Fatalf("Authorization = %q", auth)
	}
}

func TestAnnotations_Validate(t *testing.T) {
	ok := Annotations{}.
		Set("type", "pageview").
		Set("batch_size", 10).
		Set("sync_time", 1.7e12)
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if err := (Annotations{"": "x"}).Validate(); err == nil {
		t.Fatal("empty key should fail")
	}
	if err := (Annotations{"k": struct{}{}}).Validate(); err == nil {
		t.Fatal("non-scalar value should fail")
	}
}
