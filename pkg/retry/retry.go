// Package retry runs an operation again after transient failures, backing
// off exponentially with jitter. Lock acquisition and store connections use
// it.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR CLASSIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// markedError tags an error as worth another attempt or as final.
type markedError struct {
	err   error
	again bool
}

func (e *markedError) Error() string { return e.err.Error() }
func (e *markedError) Unwrap() error { return e.err }

// Retryable marks err as transient. Unmarked errors end the loop.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err, again: true}
}

// Permanent marks err as final even when a RetryIf predicate would accept it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	var m *markedError
	return errors.As(err, &m) && m.again
}

func isPermanent(err error) bool {
	var m *markedError
	return errors.As(err, &m) && !m.again
}

// unmark strips the outermost classification so callers see their own error.
func unmark(err error) error {
	if m, ok := err.(*markedError); ok {
		return m.err
	}
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// POLICY
// ══════════════════════════════════════════════════════════════════════════════

// Policy controls how many attempts are made and how long to wait between
// them. The n-th wait is InitialDelay * Multiplier^(n-1), capped at MaxDelay
// and spread by ±Jitter of itself.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64

	// RetryIf overrides the Retryable marker when set.
	RetryIf func(error) bool
	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

func defaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		Jitter:       0.1,
	}
}

// Option adjusts a Policy. Out-of-range values are ignored.
type Option func(*Policy)

func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.MaxAttempts = n
		}
	}
}

func WithInitialDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.InitialDelay = d
		}
	}
}

func WithMaxDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.MaxDelay = d
		}
	}
}

// WithJitter sets the jitter fraction, between 0 and 1.
func WithJitter(j float64) Option {
	return func(p *Policy) {
		if j >= 0 && j <= 1 {
			p.Jitter = j
		}
	}
}

func WithRetryIf(fn func(error) bool) Option {
	return func(p *Policy) { p.RetryIf = fn }
}

func WithOnRetry(fn func(attempt int, err error, wait time.Duration)) Option {
	return func(p *Policy) { p.OnRetry = fn }
}

// ══════════════════════════════════════════════════════════════════════════════
// RETRIER
// ══════════════════════════════════════════════════════════════════════════════

// Retrier applies one Policy. It holds no per-call state and may be shared.
type Retrier struct {
	policy Policy
}

// New returns a Retrier built from the default policy and opts.
func New(opts ...Option) *Retrier {
	p := defaultPolicy()
	for _, opt := range opts {
		opt(&p)
	}
	return &Retrier{policy: p}
}

// With returns a copy of r with opts applied on top of its policy.
func (r *Retrier) With(opts ...Option) *Retrier {
	p := r.policy
	for _, opt := range opts {
		opt(&p)
	}
	return &Retrier{policy: p}
}

// Attempts returns the attempt budget, the first try included.
func (r *Retrier) Attempts() int {
	return r.policy.MaxAttempts
}

// Do calls op until it succeeds, returns an error that should not be
// retried, the budget runs out or ctx ends. The returned error has its
// Retryable or Permanent marker removed.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var last error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if last != nil {
				return unmark(last)
			}
			return ctxErr
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		last = err

		if !r.shouldRetry(err) || attempt >= r.policy.MaxAttempts {
			return unmark(err)
		}

		wait := r.backoff(attempt)
		if r.policy.OnRetry != nil {
			r.policy.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return unmark(last)
		case <-timer.C:
		}
	}
}

func (r *Retrier) shouldRetry(err error) bool {
	if isPermanent(err) {
		return false
	}
	if r.policy.RetryIf != nil {
		return r.policy.RetryIf(err)
	}
	return IsRetryable(err)
}

// backoff returns the wait after the given failed attempt.
func (r *Retrier) backoff(attempt int) time.Duration {
	p := r.policy
	wait := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	wait = math.Min(wait, float64(p.MaxDelay))
	if p.Jitter > 0 {
		wait += wait * p.Jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(math.Max(wait, 0))
}

// Do runs op with a one-off Retrier.
func Do(ctx context.Context, op func(ctx context.Context) error, opts ...Option) error {
	return New(opts...).Do(ctx, op)
}

// ══════════════════════════════════════════════════════════════════════════════
// PRESETS
// ══════════════════════════════════════════════════════════════════════════════

func preset(attempts int, initial, ceiling time.Duration, multiplier, jitter float64) *Retrier {
	return &Retrier{policy: Policy{
		MaxAttempts:  attempts,
		InitialDelay: initial,
		MaxDelay:     ceiling,
		Multiplier:   multiplier,
		Jitter:       jitter,
	}}
}

// LockRetrier polls a contended lock for roughly ten seconds.
func LockRetrier() *Retrier {
	return preset(40, 20*time.Millisecond, 500*time.Millisecond, 1.5, 0.2)
}

// RedisRetrier covers a single Redis round trip.
func RedisRetrier() *Retrier {
	return preset(3, 25*time.Millisecond, 250*time.Millisecond, 2, 0.1)
}

// DatabaseRetrier covers opening the Postgres pool.
func DatabaseRetrier() *Retrier {
	return preset(3, 50*time.Millisecond, time.Second, 2, 0.05)
}
