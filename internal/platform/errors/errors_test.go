package errors

import (
	stderrs "errors"
	"net/http"
	"testing"
)

func TestWrap_And_Root(t *testing.T) {
	base := stderrs.New("dial tcp: connection refused")
	err := Wrap(base, ErrorCodeUnavailable, "ledger write failed")

	e, ok := As(err)
	if !ok {
		t.Fatal("As failed on wrapped error")
	}
	if e.Code() != ErrorCodeUnavailable {
		t.Fatalf("Code = %v", e.Code())
	}
	if Root(err) != base {
		t.Fatalf("Root = %v, want base", Root(err))
	}
	if got := err.Error(); got != "ledger write failed: dial tcp: connection refused" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestCodeOf_ForeignError(t *testing.T) {
	if got := CodeOf(stderrs.New("plain")); got != ErrorCodeUnknown {
		t.Fatalf("CodeOf = %v, want Unknown", got)
	}
}

func TestHTTPStatus_Mapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFoundf("missing"), http.StatusNotFound},
		{InvalidArgf("bad"), http.StatusUnprocessableEntity},
		{Validationf("invalid"), http.StatusBadRequest},
		{JSONErrf("parse"), http.StatusBadRequest},
		{Unavailablef("down"), http.StatusServiceUnavailable},
		{PartialWritef("short ack"), http.StatusServiceUnavailable},
		{Exhaustedf("dropped"), http.StatusInternalServerError},
		{DBf("pg"), http.StatusInternalServerError},
		{stderrs.New("foreign"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestRetryable_WritePathCodes(t *testing.T) {
	if !Retryable(Unavailablef("ledger 503")) {
		t.Fatal("Unavailable should be retryable")
	}
	if !Retryable(PartialWritef("acked 3 of 5")) {
		t.Fatal("PartialWrite should be retryable")
	}
	if Retryable(Validationf("bad payload")) {
		t.Fatal("Validation should not be retryable")
	}
	if Retryable(nil) {
		t.Fatal("nil should not be retryable")
	}
}

func TestWithOpAndField_CopyOnWrite(t *testing.T) {
	orig := New(ErrorCodeValidation, "missing website_id")
	withField := WithField(orig, "website_id")

	oe, _ := As(orig)
	fe, _ := As(withField)
	if oe.Field() != "" {
		t.Fatal("original mutated")
	}
	if fe.Field() != "website_id" {
		t.Fatalf("Field = %q", fe.Field())
	}

	withOp := WithOp(withField, "relay.enqueue")
	opE, _ := As(withOp)
	if opE.Op() != "relay.enqueue" {
		t.Fatalf("Op = %q", opE.Op())
	}
}

func TestWireFrom(t *testing.T) {
	w := WireFrom(PartialWritef("acked 3 of 5"))
	if w.Code != ErrorCodePartialWrite || w.Message != "acked 3 of 5" {
		t.Fatalf("WireFrom = %+v", w)
	}
	if z := WireFrom(nil); z.Code != 0 || z.Message != "" {
		t.Fatalf("WireFrom(nil) = %+v", z)
	}
}
