// Package resilience wraps outbound HTTP calls with retries, exponential
// backoff, and a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/sony/gobreaker"
)

// Backoff controls retry behaviour. MaxRetries counts retries after the
// first attempt.
type Backoff struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultBackoff retries twice, starting at 200ms and capping at 5s.
var DefaultBackoff = Backoff{MaxRetries: 2, InitialInterval: 200 * time.Millisecond, MaxInterval: 5 * time.Second}

var (
	ErrRateLimited  = errors.New("rate limited")
	ErrServerError  = errors.New("server error")
	ErrCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
	errBadBackoff   = errors.New("invalid backoff configuration")
)

// StatusError reports a non-retryable, non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Client executes requests through a named circuit breaker.
type Client struct {
	http    *http.Client
	backoff Backoff
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a Client. The breaker opens after five consecutive
// failures and half-opens after timeout. Non-retryable 4xx responses do not
// count as failures. State transitions are logged.
func NewClient(name string, httpClient *http.Client, backoff Backoff, logger *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful:  isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Client{http: httpClient, backoff: backoff, breaker: cb}
}

// isSuccessful treats a 4xx StatusError as a healthy upstream.
func isSuccessful(err error) bool {
	var status *StatusError
	return err == nil || errors.As(err, &status)
}

// Do sends the request built by build, retrying transport errors, 429s, and
// 5xx responses. The caller owns the returned body.
func (c *Client) Do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	if c.http == nil {
		return nil, errNoHTTPClient
	}
	if c.backoff.MaxRetries < 0 || c.backoff.InitialInterval <= 0 || c.backoff.MaxInterval < c.backoff.InitialInterval {
		return nil, errBadBackoff
	}

	delay := c.backoff.InitialInterval
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := build(ctx)
		if err != nil {
			return nil, err
		}

		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.send(req)
		})
		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, errors.New("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}
		var status *StatusError
		if errors.As(err, &status) || attempt >= c.backoff.MaxRetries {
			return nil, err
		}

		if !sharedretry.SleepWithContext(ctx, delay) {
			return nil, ctx.Err()
		}
		delay = sharedretry.NextBackoff(delay, c.backoff.MaxInterval)
	}
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	_ = resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %d", ErrServerError, resp.StatusCode)
	default:
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
}
