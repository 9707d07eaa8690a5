package apperr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/oops"
)

func TestCodeOf(t *testing.T) {
	if code := CodeOf(Parse("empty input")); code != CodeParse {
		t.Errorf("code = %q, want %q", code, CodeParse)
	}
	if code := CodeOf(errors.New("plain")); code != "" {
		t.Errorf("plain error code = %q, want empty", code)
	}
	if code := CodeOf(oops.Errorf("wrapped but uncoded")); code != "" {
		t.Errorf("uncoded oops error code = %q, want empty", code)
	}
}

func TestPredicates(t *testing.T) {
	base := errors.New("boom")

	if !IsTransient(Transient(base, "rate limited")) {
		t.Error("expected transient")
	}
	if !IsFatal(Fatal(base, "bad token")) {
		t.Error("expected fatal")
	}
	if !IsIndex(Index("dimension mismatch")) {
		t.Error("expected index error")
	}
	if IsTransient(Fatal(base, "bad token")) {
		t.Error("fatal must not be transient")
	}
}

func TestRetry_RetriesTransient(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return Transient(errors.New("429"), "rate limited")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetry_StopsOnFatal(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return Fatal(errors.New("401"), "bad credentials")
	})

	if !IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on fatal)", calls)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return Transient(errors.New("timeout"), "request timed out")
	})

	if !IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
