package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ledgerpipe/internal/adapters/ledger"
	phttp "ledgerpipe/internal/platform/net/http"
	"ledgerpipe/internal/services/ops/domain"

	"github.com/go-chi/chi/v5"
)

type fakeStatus struct {
	ready bool
}

func (f *fakeStatus) Health() domain.Health { return domain.Health{Status: "ok"} }

func (f *fakeStatus) Ready(ctx context.Context) domain.Readiness {
	if f.ready {
		return domain.Readiness{Ready: true, Source: "ok", Ledger: "ok"}
	}
	return domain.Readiness{Ready: false, Source: "ok", Ledger: "connection refused"}
}

func (f *fakeStatus) Status(ctx context.Context) domain.Status {
	return domain.Status{Ready: f.Ready(ctx)}
}

type fakeQuerier struct {
	got ledger.Query
}

func (f *fakeQuerier) Query(ctx context.Context, q ledger.Query) (*ledger.Page, error) {
	f.got = q
	return &ledger.Page{Entities: []ledger.QueriedEntity{{ID: "e1"}}}, nil
}

func mount(t *testing.T, s domain.StatusPort, q ledger.Querier) *httptest.Server {
	t.Helper()
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), s, q)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthz(t *testing.T) {
	srv := mount(t, &fakeStatus{ready: true}, nil)
	resp, err := stdhttp.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestReadyz_DependencyDown(t *testing.T) {
	srv := mount(t, &fakeStatus{ready: false}, nil)
	resp, err := stdhttp.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestQueryPassthrough(t *testing.T) {
	q := &fakeQuerier{}
	srv := mount(t, &fakeStatus{ready: true}, q)

	body := `{"where":{"type":"pageview","website_id":"S1"},"page_size":10}`
	resp, err := stdhttp.Post(srv.URL+"/entities/query", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if q.got.Where["type"] != "pageview" || q.got.PageSize != 10 {
		t.Fatalf("forwarded query = %+v", q.got)
	}

	var env phttp.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.StatusCode != stdhttp.StatusOK {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestQueryPassthrough_RejectsEmptyWhere(t *testing.T) {
	srv := mount(t, &fakeStatus{ready: true}, &fakeQuerier{})
	resp, err := stdhttp.Post(srv.URL+"/entities/query", "application/json", strings.NewReader(`{"where":{}}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == stdhttp.StatusOK {
		t.Fatal("empty where must be rejected")
	}
}
