package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

type ErrorClassification struct {
	Retryable     bool
	RecordFailure bool
}

type ErrorClassifier func(err error) ErrorClassification

// Executor runs outbound calls (embedding, generation, queue publish) with
// bounded retries behind one circuit breaker per operation name.
type Executor struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		cfg:      cfg.normalize(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

// Execute calls fn under the retry policy. A nil Executor calls fn once.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, classifier ErrorClassifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	if e == nil {
		return fn(ctx)
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classifier == nil {
		classifier = defaultClassifier
	}

	attempt := func() error { return e.retry(ctx, op, fn, classifier) }
	if !e.cfg.BreakerEnabled {
		return attempt()
	}
	_, err := e.breaker(op, classifier).Execute(func() (struct{}, error) {
		return struct{}{}, attempt()
	})
	return err
}

// Do is Execute for calls that produce a value.
func Do[T any](ctx context.Context, e *Executor, operation string, fn func(context.Context) (T, error), classifier ErrorClassifier) (T, error) {
	var out T
	err := e.Execute(ctx, operation, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			out = v
		}
		return err
	}, classifier)
	return out, err
}

// BreakerStates reports the state of every breaker created so far.
func (e *Executor) BreakerStates() map[string]string {
	if e == nil {
		return map[string]string{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.breakers))
	for name, b := range e.breakers {
		out[name] = b.State().String()
	}
	return out
}

func (e *Executor) retry(ctx context.Context, op string, fn func(context.Context) error, classifier ErrorClassifier) error {
	delays := e.backoff()
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= e.cfg.RetryMaxAttempts || !classifier(err).Retryable {
			return err
		}

		wait := delays()
		slog.Warn("retry_attempt",
			"operation", op,
			"attempt", attempt,
			"max_attempts", e.cfg.RetryMaxAttempts,
			"backoff_ms", float64(wait.Microseconds())/1000.0,
			"error", err,
		)
		if !sleep(ctx, wait) {
			return err
		}
	}
}

// backoff yields exponentially growing delays capped at RetryMaxBackoff.
func (e *Executor) backoff() func() time.Duration {
	next := e.cfg.RetryInitialBackoff
	return func() time.Duration {
		cur := min(next, e.cfg.RetryMaxBackoff)
		next = min(time.Duration(float64(next)*e.cfg.RetryMultiplier), e.cfg.RetryMaxBackoff)
		return cur
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Executor) breaker(op string, classifier ErrorClassifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.breakers[op]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[struct{}](breakerSettings(op, e.cfg, classifier))
	e.breakers[op] = b
	return b
}

func breakerSettings(op string, cfg Config, classifier ErrorClassifier) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        op,
		MaxRequests: cfg.BreakerHalfOpenMaxCalls,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= cfg.BreakerMinRequests &&
				float64(c.TotalFailures)/float64(c.Requests) >= cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classifier(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	}
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func defaultClassifier(error) ErrorClassification {
	return ErrorClassification{RecordFailure: true}
}
