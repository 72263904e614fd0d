package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
)

type limiterKey struct{}

// WithRequestLimiter attaches a rate limiter to ctx. The caller waits on it before the first attempt;
// [RetryTransport] waits on it again before every retry so paced providers stay paced.
func WithRequestLimiter(ctx context.Context, limiter *rate.Limiter) context.Context {
	if limiter == nil {
		return ctx
	}
	return context.WithValue(ctx, limiterKey{}, limiter)
}

func requestLimiter(ctx context.Context) *rate.Limiter {
	l, _ := ctx.Value(limiterKey{}).(*rate.Limiter)
	return l
}

// RetryTransport retries requests that fail at the transport level or come back with 429 or 5xx.
//
// Backoff doubles per attempt starting at Backoff unless the response carries a Retry-After header.
// Retries of a request carrying a limiter from [WithRequestLimiter] also wait on that limiter.
type RetryTransport struct {
	Base       http.RoundTripper
	MaxRetries int
	Backoff    time.Duration
	Logger     *log.Logger
}

// NewRetryClient wraps the transport of base (or [http.DefaultTransport]) in a [RetryTransport].
func NewRetryClient(base *http.Client, logger *log.Logger) *http.Client {
	var rt http.RoundTripper = http.DefaultTransport
	timeout := time.Duration(0)
	if base != nil {
		if base.Transport != nil {
			rt = base.Transport
		}
		timeout = base.Timeout
	}

	return &http.Client{
		Transport: &RetryTransport{Base: rt, Logger: logger},
		Timeout:   timeout,
	}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	maxRetries := t.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := t.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	getBody := req.GetBody
	if req.Body != nil && req.Body != http.NoBody && getBody == nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: read request body: %v", shared.ErrAPIRequest, err)
		}
		_ = req.Body.Close()
		getBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}

	ctx := req.Context()
	limiter := requestLimiter(ctx)
	for attempt := range maxRetries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 0 && limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		attemptReq := req
		if getBody != nil {
			body, err := getBody()
			if err != nil {
				return nil, fmt.Errorf("%w: reset request body: %v", shared.ErrAPIRequest, err)
			}
			attemptReq = req.Clone(ctx)
			attemptReq.Body = body
		}

		resp, err := base.RoundTrip(attemptReq)
		retryAfter, retry := shouldRetry(resp, err)
		if !retry || attempt == maxRetries-1 {
			return resp, err
		}

		if err != nil {
			t.logger().Warn("retrying request", "url", req.URL.Redacted(), "attempt", attempt+1, "error", err)
		} else {
			t.logger().Warn("retrying request", "url", req.URL.Redacted(), "attempt", attempt+1, "status", resp.StatusCode)
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}

		delay := backoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			delay = retryAfter
		}
		if err := sleepWithContext(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts", maxRetries)
}

func (t *RetryTransport) logger() *log.Logger {
	if t.Logger == nil {
		return log.Default()
	}
	return t.Logger
}

func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp == nil {
		return 0, false
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}
	return 0, false
}

func parseRetryAfter(resp *http.Response) time.Duration {
	value := resp.Header.Get("Retry-After")
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
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
