package importer

import (
	"context"
	"testing"
	"time"
)

func TestRunLimiter_AcquireRelease(t *testing.T) {
	l := NewRunLimiter(2, time.Second)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if got := l.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount() = %d, want 2", got)
	}

	l.Release()
	if got := l.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount() after Release = %d, want 1", got)
	}
}

func TestRunLimiter_RejectsWhenFull(t *testing.T) {
	l := NewRunLimiter(1, 20*time.Millisecond)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	err := l.Acquire(context.Background())
	if err != ErrTooManyImports {
		t.Errorf("Acquire() on full limiter = %v, want ErrTooManyImports", err)
	}

	l.Release()
}

func TestRunLimiter_ContextCancellation(t *testing.T) {
	l := NewRunLimiter(1, time.Minute)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Acquire(ctx); err != context.Canceled {
		t.Errorf("Acquire() with cancelled context = %v, want context.Canceled", err)
	}

	l.Release()
}

func TestRunLimiter_WaitForDrain(t *testing.T) {
	l := NewRunLimiter(1, time.Second)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	go func() {
		time.Sleep(150 * time.Millisecond)
		l.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := l.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain() error = %v", err)
	}
}

func TestRunLimiter_DefaultsApplied(t *testing.T) {
	l := NewRunLimiter(0, 0)

	if got := l.MaxConcurrent(); got != DefaultMaxConcurrentRuns {
		t.Errorf("MaxConcurrent() = %d, want %d", got, DefaultMaxConcurrentRuns)
	}
}
