package database

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/satishbabariya/bear/database/driver"
	"github.com/satishbabariya/bear/internal/debug"
)

// RetryConfig bounds how often and how fast a failed command is retried.
type RetryConfig struct {
	MaxAttempts   int           // total attempts including the first one
	InitialDelay  time.Duration // wait before the first retry
	MaxDelay      time.Duration // upper bound for the wait between retries
	BackoffFactor float64       // growth of the wait per retry
	Jitter        bool          // randomise waits by ±25%
}

// DefaultRetryConfig returns the retry policy used when none is configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   2,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// RetryStrategy decides whether a failed attempt should be retried. It
// may repair state (for example reconnect) before answering.
type RetryStrategy interface {
	ShouldRetry(ctx context.Context, err error, attempt int) bool
}

// CommandRetry runs commands under a RetryStrategy.
type CommandRetry struct {
	strategy RetryStrategy
	config   RetryConfig
}

// NewCommandRetry creates a CommandRetry. A zero MaxAttempts runs each
// command once.
func NewCommandRetry(strategy RetryStrategy, config RetryConfig) *CommandRetry {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.BackoffFactor < 1 {
		config.BackoffFactor = 1
	}
	return &CommandRetry{strategy: strategy, config: config}
}

// Run executes fn until it succeeds, the strategy refuses to retry, or the
// attempts run out. A refused error is returned unchanged; running out of
// attempts wraps the last error with ErrRetryExhausted.
func (r *CommandRetry) Run(ctx context.Context, fn func() error) error {
	delay := r.config.InitialDelay
	var lastErr error

	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt == r.config.MaxAttempts-1 {
			break
		}
		if r.strategy == nil || !r.strategy.ShouldRetry(ctx, err, attempt) {
			return err
		}

		wait := delay
		if r.config.Jitter && delay > 0 {
			spread := delay / 4
			if spread > 0 {
				wait = delay - spread + time.Duration(rand.Int63n(int64(spread)*2))
			}
		}
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		delay = time.Duration(float64(delay) * r.config.BackoffFactor)
		if r.config.MaxDelay > 0 && delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
	}

	if r.config.MaxAttempts == 1 {
		return lastErr
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, r.config.MaxAttempts, lastErr)
}

// ReconnectStrategy retries transient connection errors after
// reconnecting. It never reconnects while a transaction is open.
type ReconnectStrategy struct {
	conn *Connection
}

// NewReconnectStrategy creates a strategy for conn.
func NewReconnectStrategy(conn *Connection) *ReconnectStrategy {
	return &ReconnectStrategy{conn: conn}
}

// ShouldRetry reports whether err is transient and the reconnect worked.
func (s *ReconnectStrategy) ShouldRetry(ctx context.Context, err error, attempt int) bool {
	if !driver.IsTransient(err) {
		return false
	}
	if s.conn.InTransaction() {
		debug.Warn("not reconnecting inside a transaction", "error", err)
		return false
	}

	debug.Warn("reconnecting after transient error", "attempt", attempt+1, "error", err)
	return s.conn.reconnect(ctx) == nil
}
