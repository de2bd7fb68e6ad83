package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sony/gobreaker/v2"
)

// TestBreaker_PassesSuccessThrough verifies the decorator is transparent
// on the happy path.
func TestBreaker_PassesSuccessThrough(t *testing.T) {
	reg := NewBreakerRegistry(nil)
	wrapped := reg.Wrap(&stubExecutor{id: "claude"})

	res, err := wrapped.Run(context.Background(), Request{TaskID: "task-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Error("Expected success passing through breaker")
	}
	if wrapped.ID() != "claude" {
		t.Errorf("ID() = %q, want claude", wrapped.ID())
	}
}

// TestBreaker_FailureResultsDoNotTrip verifies application-level failures
// (Success=false, nil error) never open the breaker.
func TestBreaker_FailureResultsDoNotTrip(t *testing.T) {
	reg := NewBreakerRegistry(nil)
	wrapped := reg.Wrap(&stubExecutor{
		id: "claude",
		onRun: func(ctx context.Context, req Request) (*Result, error) {
			return &Result{Success: false, ErrorText: "task went wrong"}, nil
		},
	})

	for i := 0; i < 10; i++ {
		res, err := wrapped.Run(context.Background(), Request{TaskID: "task-1"})
		if err != nil {
			t.Fatalf("dispatch %d: breaker opened on failure results: %v", i, err)
		}
		if res.Success {
			t.Fatal("expected failure result")
		}
	}
}

// TestBreaker_TransportErrorsTrip verifies the breaker opens after
// repeated transport failures and then fails fast.
func TestBreaker_TransportErrorsTrip(t *testing.T) {
	reg := NewBreakerRegistry(nil)
	wrapped := reg.Wrap(&stubExecutor{
		id: "broken",
		onRun: func(ctx context.Context, req Request) (*Result, error) {
			return nil, fmt.Errorf("spawn failed")
		},
	})

	// Five consecutive failures trip the breaker
	for i := 0; i < 5; i++ {
		if _, err := wrapped.Run(context.Background(), Request{TaskID: "task-1"}); err == nil {
			t.Fatalf("dispatch %d: expected error", i)
		}
	}

	_, err := wrapped.Run(context.Background(), Request{TaskID: "task-1"})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Expected ErrOpenState after 5 consecutive failures, got: %v", err)
	}
}

// TestBreaker_CancellationDoesNotTrip verifies caller cancellation never
// counts against executor health.
func TestBreaker_CancellationDoesNotTrip(t *testing.T) {
	reg := NewBreakerRegistry(nil)
	wrapped := reg.Wrap(&stubExecutor{
		id: "claude",
		onRun: func(ctx context.Context, req Request) (*Result, error) {
			return nil, context.Canceled
		},
	})

	for i := 0; i < 10; i++ {
		_, err := wrapped.Run(context.Background(), Request{TaskID: "task-1"})
		if errors.Is(err, gobreaker.ErrOpenState) {
			t.Fatalf("dispatch %d: breaker opened on cancellation errors", i)
		}
	}
}

// TestBreakerRegistry_PerExecutorIsolation verifies one executor's open
// breaker never affects another's.
func TestBreakerRegistry_PerExecutorIsolation(t *testing.T) {
	reg := NewBreakerRegistry(nil)
	broken := reg.Wrap(&stubExecutor{
		id: "broken",
		onRun: func(ctx context.Context, req Request) (*Result, error) {
			return nil, fmt.Errorf("spawn failed")
		},
	})
	healthy := reg.Wrap(&stubExecutor{id: "healthy"})

	for i := 0; i < 6; i++ {
		broken.Run(context.Background(), Request{TaskID: "task-1"})
	}

	res, err := healthy.Run(context.Background(), Request{TaskID: "task-2"})
	if err != nil {
		t.Fatalf("healthy executor affected by broken one: %v", err)
	}
	if !res.Success {
		t.Error("expected healthy executor to succeed")
	}
}
