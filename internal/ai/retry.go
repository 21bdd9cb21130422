package ai

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"
)

// retryPolicy bounds how often and how long a runtime retries one request.
type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
}

func newRetryPolicy(attempts int, base, max time.Duration) retryPolicy {
	if attempts <= 0 {
		attempts = 3
	}
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if max <= 0 {
		max = 4 * time.Second
	}
	return retryPolicy{attempts: attempts, base: base, max: max}
}

// attemptFunc performs one try. retry marks the failure as transient; a
// positive wait overrides the computed backoff (Retry-After).
type attemptFunc func(attempt int) (retry bool, wait time.Duration, err error)

// run calls fn until it succeeds, fails permanently or the attempts run out.
// Sleeps between attempts are cut short by ctx.
func (p retryPolicy) run(ctx context.Context, fn attemptFunc) error {
	backoff := p.base
	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}
		retry, wait, err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == p.attempts {
			return err
		}
		if wait <= 0 {
			wait = withJitter(backoff)
			if p.max > 0 && wait > p.max {
				wait = p.max
			}
			backoff *= 2
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryableStatus reports whether an HTTP status is worth another attempt.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// retryAfter reads the Retry-After header as a duration; 0 when absent or invalid.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := parseRetryAfterSeconds(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// parseRetryAfterSeconds interprets a Retry-After value as seconds or an HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, errors.New("invalid Retry-After: " + strconv.Quote(v))
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
