package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// ErrRetriesExhausted matches every *ExhaustedError via errors.Is.
var ErrRetriesExhausted = errors.New("retries exhausted")

// ExhaustedError reports that the attempt or wait budget ran out while the
// operation kept failing with retryable errors.
type ExhaustedError struct {
	Attempts int
	Waited   time.Duration
	Cause    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts (waited %s): %v", e.Attempts, e.Waited.Round(time.Millisecond), e.Cause)
}

// Is reports whether target is ErrRetriesExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// Unwrap returns the last underlying failure.
func (e *ExhaustedError) Unwrap() error {
	return e.Cause
}

// Event describes a scheduled retry.
type Event struct {
	Attempt int
	Class   Class
	Delay   time.Duration
	Err     error
}

// Retrier applies a Policy to operations.
type Retrier struct {
	policy   Policy
	sleeper  func(context.Context, time.Duration) error
	random   func() float64
	classify func(error) Class
	onRetry  func(Event)
}

// Option customizes a Retrier.
type Option func(*Retrier)

// WithSleeper overrides how backoff sleeps are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(r *Retrier) {
		if sleeper != nil {
			r.sleeper = sleeper
		}
	}
}

// WithRandom overrides the jitter source. The function must return values in [0, 1).
func WithRandom(random func() float64) Option {
	return func(r *Retrier) {
		if random != nil {
			r.random = random
		}
	}
}

// WithClassifier overrides error classification.
func WithClassifier(classify func(error) Class) Option {
	return func(r *Retrier) {
		if classify != nil {
			r.classify = classify
		}
	}
}

// WithRetryHook registers a callback invoked before each backoff sleep.
func WithRetryHook(hook func(Event)) Option {
	return func(r *Retrier) {
		r.onRetry = hook
	}
}

// New constructs a Retrier for the supplied policy.
func New(policy Policy, opts ...Option) *Retrier {
	r := &Retrier{
		policy:   policy,
		sleeper:  sleepContext,
		random:   rand.Float64,
		classify: Classify,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the policy the retrier applies.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do calls op until it succeeds, fails fatally, or the budget runs out.
// Fatal errors are returned unchanged; an exhausted budget yields an
// *ExhaustedError wrapping the last failure.
func (r *Retrier) Do(ctx context.Context, op func(context.Context) error) error {
	_, err := DoValue(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that return a value.
func DoValue[T any](ctx context.Context, r *Retrier, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if r == nil {
		r = New(Default())
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attempts := r.policy.attempts()
	var (
		waited  time.Duration
		lastErr error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return zero, err
		}

		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err

		class := r.classify(err)
		if class == ClassFatal {
			return zero, err
		}
		if attempt == attempts {
			break
		}

		delay := r.delay(class, attempt, err)
		if r.policy.MaxTotalWait > 0 {
			remaining := r.policy.MaxTotalWait - waited
			if remaining <= 0 {
				return zero, &ExhaustedError{Attempts: attempt, Waited: waited, Cause: err}
			}
			if delay > remaining {
				delay = remaining
			}
		}
		if r.onRetry != nil {
			r.onRetry(Event{Attempt: attempt, Class: class, Delay: delay, Err: err})
		}
		if err := r.sleeper(ctx, delay); err != nil {
			return zero, fmt.Errorf("%w (last error: %v)", err, lastErr)
		}
		waited += delay
	}
	return zero, &ExhaustedError{Attempts: attempts, Waited: waited, Cause: lastErr}
}

// delay returns the sleep that precedes retry number attempt (1-based) for a
// failure of the given class. A server-provided hint replaces the computed
// backoff but still respects the class cap.
func (r *Retrier) delay(class Class, attempt int, err error) time.Duration {
	limit := r.policy.capFor(class)
	if hint := retryAfterHint(err); hint > 0 {
		if hint > limit {
			return limit
		}
		return hint
	}
	delay := r.policy.backoff(class, attempt)
	if r.policy.Jitter > 0 && r.random != nil {
		delay += time.Duration(r.random() * float64(r.policy.Jitter))
	}
	if delay > limit {
		return limit
	}
	return delay
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
