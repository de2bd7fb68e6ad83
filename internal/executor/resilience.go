package executor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/johnsonfarmsus/claw-conductor/internal/logging"
)

// BreakerRegistry manages one circuit breaker per executor ID. When an
// executor keeps failing at the transport level (spawn failures, broken
// installs), its breaker opens and later dispatches fail fast instead of
// burning a worker slot on a doomed subprocess. The breaker never retries;
// each task still gets exactly one attempt.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*Result]
	log      *logging.Logger
}

// NewBreakerRegistry creates an empty breaker registry.
func NewBreakerRegistry(log *logging.Logger) *BreakerRegistry {
	if log == nil {
		log = logging.Nop()
	}
	return &BreakerRegistry{
		breakers: make(map[string]*gobreaker.CircuitBreaker[*Result]),
		log:      log.WithComponent("breaker"),
	}
}

// Get returns the circuit breaker for the given executor ID, creating it
// on first use.
func (r *BreakerRegistry) Get(executorID string) *gobreaker.CircuitBreaker[*Result] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[executorID]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        executorID,
		MaxRequests: 3,                // Test requests allowed in half-open state
		Interval:    0,                // Don't clear counts automatically
		Timeout:     30 * time.Second, // Stay open for 30s before testing recovery
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			r.log.Warn("circuit breaker state change",
				"executor", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// Cancellation is the caller's doing, not executor health
			if err == nil {
				return true
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			return false
		},
	})

	r.breakers[executorID] = cb
	return cb
}

// Wrap decorates an executor with its circuit breaker. Failure Results
// pass through untouched; only transport errors count against the breaker.
func (r *BreakerRegistry) Wrap(e Executor) Executor {
	return &breakerExecutor{
		inner: e,
		cb:    r.Get(e.ID()),
	}
}

type breakerExecutor struct {
	inner Executor
	cb    *gobreaker.CircuitBreaker[*Result]
}

func (b *breakerExecutor) ID() string {
	return b.inner.ID()
}

func (b *breakerExecutor) Run(ctx context.Context, req Request) (*Result, error) {
	res, err := b.cb.Execute(func() (*Result, error) {
		return b.inner.Run(ctx, req)
	})
	if err != nil {
		// Includes gobreaker.ErrOpenState when failing fast
		return nil, err
	}
	return res, nil
}
