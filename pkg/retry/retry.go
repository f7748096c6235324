// Package retry provides exponential backoff for transient failures,
// used around assistant provider calls.
package retry

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior with exponential backoff.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// JitterFactor in [0,1] spreads delays by +/- that share to avoid
	// synchronized retries.
	JitterFactor float64
}

// DefaultConfig suits remote completion endpoints: 3 retries from 500ms,
// doubling, capped at 8s, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func applyJitter(delay time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return delay
	}
	jitter := float64(delay) * factor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// IsTransient reports whether an error looks worth retrying: rate limits,
// timeouts, and server-side failures. Anything else (bad request, auth)
// fails fast.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"rate limit",
		"429",
		"timeout",
		"deadline exceeded",
		"connection refused",
		"connection reset",
		"overloaded",
		"500", "502", "503", "529",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Do runs fn with backoff until it succeeds, returns a non-transient error,
// or retries are exhausted. Context cancellation is honored during waits.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	delay := cfg.InitialDelay
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransient(err) || attempt == cfg.MaxRetries {
			break
		}
		select {
		case <-time.After(applyJitter(delay, cfg.JitterFactor)):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return lastErr
}
