// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package retry bounds store operations with a per-attempt timeout and
// retries them a small number of times when they fail for a transient
// reason.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// ErrTimeout is returned when an attempt does not finish within the
// policy timeout.
var ErrTimeout = errors.New("operation timed out")

// Default timeouts per environment.
const (
	DefaultProductionTimeout  = 12 * time.Second
	DefaultDevelopmentTimeout = 30 * time.Second
	DefaultMaxRetries         = 1
	DefaultBaseDelay          = 500 * time.Millisecond
	DefaultMaxDelay           = time.Second
)

// Policy controls how an operation is bounded and retried.
type Policy struct {
	// Timeout bounds each attempt. Zero disables the per-attempt timer.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay and MaxDelay shape the backoff between attempts.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// OnTransient runs after a transient failure and before the next
	// attempt is scheduled.
	OnTransient func(ctx context.Context, cause Cause, err error)
}

// DefaultPolicy returns the policy used for store calls.
func DefaultPolicy(production bool) Policy {
	timeout := DefaultDevelopmentTimeout
	if production {
		timeout = DefaultProductionTimeout
	}
	return Policy{
		Timeout:    timeout,
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
	}
}

// TransientError is the error returned once retries are exhausted.
type TransientError struct {
	Cause    Cause
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", e.Cause, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is, or wraps, a transient failure.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return Classify(err).Transient()
}

// Run executes op under policy p.
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do executes op under policy p and returns its value.
//
// Non-transient failures are returned immediately, unwrapped. Transient
// failures are retried up to p.MaxRetries times; when they run out the
// last failure is returned as a *TransientError.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		result   T
		attempts int
	)

	err := goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		v, err := attempt(ctx, p.Timeout, op)
		attempts++
		if err == nil {
			result = v
			return nil
		}

		cause := Classify(err)
		if !cause.Transient() {
			return err
		}
		if attempts <= p.MaxRetries && p.OnTransient != nil {
			p.OnTransient(ctx, cause, err)
		}
		return goretry.RetryableError(&TransientError{Cause: cause, Attempts: attempts, Err: err})
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func (p Policy) backoff() goretry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	// Fibonacci from base gives base, 2*base, 3*base... which the cap
	// flattens to base, 2*base, max, max.
	b := goretry.NewFibonacci(base)
	b = goretry.WithCappedDuration(maxDelay, b)
	return goretry.WithMaxRetries(uint64(retries), b)
}

// attempt runs op once, racing it against timeout.
func attempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}

	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := op(actx)
		done <- outcome{v: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
			return o.v, fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, o.err)
		}
		return o.v, o.err
	case <-actx.Done():
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
