package utils

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func quietLogger() *Logger { return NewLogger(io.Discard) }

func TestRetryStopsOnSuccess(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 5, Logger: quietLogger()}

	calls := 0
	err := r.Do(context.Background(), "op", func(attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls: got %d, want 3", calls)
	}
}

func TestRetryExhaustsBudget(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, Logger: quietLogger()}
	sentinel := errors.New("always")

	var seen []int
	err := r.Do(context.Background(), "op", func(attempt int) error {
		seen = append(seen, attempt)
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Errorf("attempt numbers: got %v, want [1 2 3]", seen)
	}
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	r := &RetryConfig{}
	calls := 0
	_ = r.Do(context.Background(), "op", func(int) error {
		calls++
		return errors.New("x")
	})
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &RetryConfig{MaxAttempts: 10, MinDelay: time.Hour, MaxDelay: time.Hour}

	calls := 0
	err := r.Do(ctx, "op", func(int) error {
		calls++
		cancel()
		return errors.New("x")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

func TestJitterBounds(t *testing.T) {
	min, max := 10*time.Millisecond, 30*time.Millisecond
	for i := 0; i < 200; i++ {
		d := Jitter(min, max)
		if d < min || d > max {
			t.Fatalf("Jitter out of range: %v", d)
		}
	}
	if got := Jitter(5*time.Second, time.Second); got != 5*time.Second {
		t.Errorf("inverted range: got %v, want min", got)
	}
}

func TestRetryBaseDelayDoubles(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond}

	var stamps []time.Time
	_ = r.Do(context.Background(), "op", func(int) error {
		stamps = append(stamps, time.Now())
		return errors.New("x")
	})
	if len(stamps) != 4 {
		t.Fatalf("calls: got %d, want 4", len(stamps))
	}
	for i, want := range []time.Duration{10, 20, 40} {
		if gap := stamps[i+1].Sub(stamps[i]); gap < want*time.Millisecond {
			t.Errorf("pause %d: got %v, want at least %v", i+1, gap, want*time.Millisecond)
		}
	}
}
