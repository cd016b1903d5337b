package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestKindOf(t *testing.T) {
	err := New(Validation, "symptoms text is required")
	if KindOf(err) != Validation {
		t.Errorf("expected Validation, got %v", KindOf(err))
	}
	if KindOf(errors.New("plain")) != Internal {
		t.Error("expected Internal for plain error")
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("respond: %w", New(InvalidState, "request already responded"))
	if KindOf(err) != InvalidState {
		t.Errorf("expected InvalidState through wrapping, got %v", KindOf(err))
	}
}

func TestErrorIs_MatchesByKind(t *testing.T) {
	err := Wrap(Transient, context.DeadlineExceeded, "query timed out")
	if !errors.Is(err, New(Transient, "")) {
		t.Error("expected Is to match by kind")
	}
	if errors.Is(err, New(Validation, "")) {
		t.Error("kinds differ, Is must not match")
	}
}

func TestFromDB(t *testing.T) {
	if KindOf(FromDB(pgx.ErrNoRows, "booking")) != NotFound {
		t.Error("ErrNoRows should map to NotFound")
	}
	if KindOf(FromDB(context.DeadlineExceeded, "booking")) != Transient {
		t.Error("deadline expiry should map to Transient")
	}
	if FromDB(nil, "booking") != nil {
		t.Error("nil should pass through")
	}
	plain := errors.New("syntax error")
	if FromDB(plain, "booking") != plain {
		t.Error("unknown errors should pass through unchanged")
	}
}

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{New(Validation, "bad"), http.StatusBadRequest},
		{New(Authorization, "no"), http.StatusForbidden},
		{New(InvalidState, "done"), http.StatusConflict},
		{New(InvalidTransition, "edge"), http.StatusConflict},
		{New(NotFound, "gone"), http.StatusNotFound},
		{New(Transient, "later"), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := Status(tc.err); got != tc.want {
			t.Errorf("Status(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
