package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ledgerpipe/internal/adapters/ledger"
	"ledgerpipe/internal/modkit/repokit"
	perr "ledgerpipe/internal/platform/errors"
	"ledgerpipe/internal/platform/logger"
	"ledgerpipe/internal/platform/store"
	"ledgerpipe/internal/services/backfill/domain"
	relaydom "ledgerpipe/internal/services/relay/domain"
	relaysvc "ledgerpipe/internal/services/relay/service"
)

// fakeTx satisfies store.TxRunner without a database; repos in these tests
// are scripted, so the queryer is never touched
type fakeTx struct{}

func (fakeTx) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	return nil, nil
}
func (fakeTx) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	return nil, nil
}
func (fakeTx) QueryRow(ctx context.Context, sql string, args ...any) store.Row { return nil }
func (f fakeTx) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	return fn(f)
}

// fakeRepo pages through fixed row slices
type fakeRepo struct {
	events   []domain.EventRow
	sessions []domain.SessionRow
}

func (f *fakeRepo) ListEvents(
	ctx context.Context, start, end time.Time, after domain.Cursor, limit int,
) ([]domain.EventRow, domain.Cursor, error) {
	var out []domain.EventRow
	for _, r := range f.events {
		if !after.Zero() && !r.CreatedAt.After(after.At) && r.EventID <= after.ID {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	next := after
	if len(out) > 0 {
		last := out[len(out)-1]
		next = domain.Cursor{At: last.CreatedAt, ID: last.EventID}
	}
	return out, next, nil
}

func (f *fakeRepo) ListSessions(
	ctx context.Context, start, end time.Time, after domain.Cursor, limit int,
) ([]domain.SessionRow, domain.Cursor, error) {
	var out []domain.SessionRow
	for _, r := range f.sessions {
		if !after.Zero() && !r.CreatedAt.After(after.At) && r.SessionID <= after.ID {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	next := after
	if len(out) > 0 {
		last := out[len(out)-1]
		next = domain.Cursor{At: last.CreatedAt, ID: last.SessionID}
	}
	return out, next, nil
}

// recordSink collects batches
type recordSink struct {
	mu      sync.Mutex
	batches []relaydom.Batch
	err     error
}

func (r *recordSink) WriteBatch(ctx context.Context, b relaydom.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, b)
	return nil
}

func eventRow(id string, min int) domain.EventRow {
	return domain.EventRow{
		EventID:   id,
		WebsiteID: "S1",
		CreatedAt: time.Date(2024, 1, 1, 0, min, 0, 0, time.UTC),
		EventType: 1,
		URLPath:   "/",
	}
}

func sessionRow(id string, min int) domain.SessionRow {
	return domain.SessionRow{
		SessionID: id,
		WebsiteID: "S1",
		CreatedAt: time.Date(2024, 1, 1, 0, min, 0, 0, time.UTC),
		Browser:   "firefox",
	}
}

func window() (time.Time, time.Time) {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
}

func newTestService(repo domain.StorageRepo, sink relaydom.SinkPort, cfg Config) *Service {
	binder := repokit.BindFunc[domain.StorageRepo](func(q repokit.Queryer) domain.StorageRepo {
		return repo
	})
	return New(fakeTx{}, binder, sink, cfg)
}

func TestRunRange_ScansAndWritesBothTables(t *testing.T) {
	repo := &fakeRepo{
		events:   []domain.EventRow{eventRow("e1", 1), eventRow("e2", 2), eventRow("e3", 3)},
		sessions: []domain.SessionRow{sessionRow("s1", 1), sessionRow("s2", 2)},
	}
	sink := &recordSink{}
	svc := newTestService(repo, sink, Config{ChunkSize: 2, PageSize: 10})

	start, end := window()
	res, err := svc.RunRange(context.Background(), domain.Input{Start: start, End: end})
	if err != nil {
		t.Fatalf("RunRange: %v", err)
	}
	if res.Scanned != 5 || res.Written != 5 || res.Skipped != 0 {
		t.Fatalf("result = %+v", res)
	}
	if res.Batches != 3 { // 2 + 2 + 1
		t.Fatalf("batches = %d", res.Batches)
	}
	total := 0
	for _, b := range sink.batches {
		total += b.Size()
	}
	if total != 5 {
		t.Fatalf("items written = %d", total)
	}
}

func TestRunRange_SkipsRowsThatWontNormalize(t *testing.T) {
	bad := eventRow("e9", 1)
	bad.WebsiteID = "" // identity field lost in the source row
	repo := &fakeRepo{events: []domain.EventRow{eventRow("e1", 1), bad}}
	sink := &recordSink{}
	svc := newTestService(repo, sink, Config{})

	start, end := window()
	res, err := svc.RunRange(context.Background(), domain.Input{Start: start, End: end})
	if err != nil {
		t.Fatalf("RunRange: %v", err)
	}
	if res.Scanned != 2 || res.Written != 1 || res.Skipped != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestRunRange_DryRunWritesNothing(t *testing.T) {
	repo := &fakeRepo{events: []domain.EventRow{eventRow("e1", 1)}}
	sink := &recordSink{err: perr.Unavailablef("must not be called")}
	svc := newTestService(repo, sink, Config{})

	start, end := window()
	res, err := svc.RunRange(context.Background(), domain.Input{Start: start, End: end, DryRun: true})
	if err != nil {
		t.Fatalf("RunRange: %v", err)
	}
	if res.Written != 1 || res.Batches != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestRunRange_RejectsBadWindows(t *testing.T) {
	svc := newTestService(&fakeRepo{}, &recordSink{}, Config{MaxRangeHours: 24})
	start, _ := window()

	if _, err := svc.RunRange(context.Background(), domain.Input{Start: start, End: start}); err == nil {
		t.Fatal("empty window should fail")
	}
	if _, err := svc.RunRange(context.Background(), domain.Input{
		Start: start, End: start.Add(48 * time.Hour),
	}); perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
		t.Fatal("oversized window should fail")
	}
}

func TestRunRange_PropagatesSinkFailure(t *testing.T) {
	repo := &fakeRepo{events: []domain.EventRow{eventRow("e1", 1)}}
	sink := &recordSink{err: perr.Exhaustedf("ledger down")}
	svc := newTestService(repo, sink, Config{})

	start, end := window()
	if _, err := svc.RunRange(context.Background(), domain.Input{Start: start, End: end}); err == nil {
		t.Fatal("sink failure should propagate")
	}
}

func TestRunRange_EventTypeRouting(t *testing.T) {
	custom := eventRow("e2", 2)
	custom.EventType = 2
	custom.EventName = "signup"
	repo := &fakeRepo{events: []domain.EventRow{eventRow("e1", 1), custom}}
	sink := &recordSink{}
	svc := newTestService(repo, sink, Config{})

	start, end := window()
	if _, err := svc.RunRange(context.Background(), domain.Input{Start: start, End: end}); err != nil {
		t.Fatalf("RunRange: %v", err)
	}
	kinds := sink.batches[0].Kinds()
	if len(kinds) != 2 {
		t.Fatalf("kinds = %v", kinds)
	}
}

// fakeWriter is an in-memory ledger.Writer acking every entity
type fakeWriter struct {
	mu       sync.Mutex
	entities []ledger.Entity
}

func (f *fakeWriter) CreateEntities(ctx context.Context, es []ledger.Entity) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entities = append(f.entities, es...)
	return make([]string, len(es)), nil
}

func (f *fakeWriter) Ping(ctx context.Context) error { return nil }

func TestRunRange_TagsEntitiesWithBackfillSource(t *testing.T) {
	repo := &fakeRepo{
		events:   []domain.EventRow{eventRow("e1", 1)},
		sessions: []domain.SessionRow{sessionRow("s1", 1)},
	}
	fw := &fakeWriter{}
	sink := relaysvc.NewSink(fw, relaysvc.SinkConfig{
		Source: "umami-backfill",
		Expiry: time.Hour,
	}, *logger.Get())
	svc := newTestService(repo, sink, Config{})

	start, end := window()
	if _, err := svc.RunRange(context.Background(), domain.Input{Start: start, End: end}); err != nil {
		t.Fatalf("RunRange: %v", err)
	}
	if len(fw.entities) != 2 {
		t.Fatalf("entities written = %d, want 2", len(fw.entities))
	}
	for _, e := range fw.entities {
		if got := e.Annotations["source"]; got != "umami-backfill" {
			t.Fatalf("source annotation = %v, want umami-backfill", got)
		}
		if e.Expiry != time.Hour {
			t.Fatalf("expiry = %v, want 1h", e.Expiry)
		}
	}
}
