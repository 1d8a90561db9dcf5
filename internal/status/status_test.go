package status

import (
	"errors"
	"testing"
)

func TestStatusStates(t *testing.T) {
	l := Loading[int]()
	if !l.IsLoading() || l.IsSuccess() || l.IsError() {
		t.Fatalf("expected loading state, got %v", l.State())
	}

	s := Success(42)
	if !s.IsSuccess() {
		t.Fatalf("expected success state, got %v", s.State())
	}
	if v, ok := s.Get(); !ok || v != 42 {
		t.Fatalf("expected (42, true), got (%d, %v)", v, ok)
	}

	cause := errors.New("connection refused")
	e := Error[int](IO, cause)
	if !e.IsError() {
		t.Fatalf("expected error state, got %v", e.State())
	}
	if e.Kind() != IO {
		t.Fatalf("expected IO kind, got %v", e.Kind())
	}
	if e.Cause() != cause {
		t.Fatalf("cause not preserved")
	}
	if v, ok := e.Get(); ok || v != 0 {
		t.Fatalf("expected (0, false), got (%d, %v)", v, ok)
	}
}

func TestMapPreservesErrorKind(t *testing.T) {
	e := Error[int](InvalidCredentials, nil)
	mapped := Map(e, func(v int) string { return "unused" })
	if !mapped.IsError() || mapped.Kind() != InvalidCredentials {
		t.Fatalf("expected invalid_credentials error, got state=%v kind=%v", mapped.State(), mapped.Kind())
	}

	s := Map(Success(7), func(v int) string {
		if v != 7 {
			t.Fatalf("unexpected input %d", v)
		}
		return "seven"
	})
	if v, ok := s.Get(); !ok || v != "seven" {
		t.Fatalf("expected (seven, true), got (%q, %v)", v, ok)
	}

	l := Map(Loading[int](), func(v int) string { return "" })
	if !l.IsLoading() {
		t.Fatalf("expected loading passthrough, got %v", l.State())
	}
}

func TestErrorKindString(t *testing.T) {
	cases := map[ErrorKind]string{
		NotFound:           "not_found",
		IO:                 "io",
		InvalidCredentials: "invalid_credentials",
		NotImplemented:     "not_implemented",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("String(%d) = %q, want %q", int(kind), got, want)
		}
	}
}
