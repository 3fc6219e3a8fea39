// Package retry re-runs operations that failed on transient network errors.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config configures the exponential backoff.
type Config struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	Multiplier   float64
}

// DefaultConfig suits a media download: a few slow attempts.
func DefaultConfig() Config {
	return Config{
		InitialDelay: 10 * time.Second,
		MaxDelay:     2 * time.Minute,
		MaxAttempts:  3,
		Multiplier:   2.0,
	}
}

var networkIndicators = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"no route to host",
	"host is down",
	"i/o timeout",
	"timed out",
	"timeout",
	"temporary failure in name resolution",
	"http error 502",
	"http error 503",
	"http error 504",
}

// IsNetworkError reports whether err looks transient. yt-dlp failures only
// carry text, so the message is checked as well as the error chain.
func IsNetworkError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, indicator := range networkIndicators {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}

// Do runs fn until it succeeds, fails with a non-network error, or runs
// out of attempts. The last error is returned.
func Do(ctx context.Context, name string, cfg Config, logger zerolog.Logger, fn func() error) error {
	attempts := max(cfg.MaxAttempts, 1)
	delay := cfg.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().Str("operation", name).Int("attempt", attempt).Msg("Operation succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if !IsNetworkError(err) || attempt == attempts {
			break
		}

		logger.Warn().
			Err(err).
			Str("operation", name).
			Int("attempt", attempt).
			Int("maxAttempts", attempts).
			Dur("nextRetryIn", delay).
			Msg("Network error, will retry")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = next(delay, cfg)
	}
	return lastErr
}

func next(delay time.Duration, cfg Config) time.Duration {
	n := time.Duration(float64(delay) * cfg.Multiplier)
	if cfg.MaxDelay > 0 && n > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return n
}
