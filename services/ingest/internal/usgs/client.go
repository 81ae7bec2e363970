package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/semaphore"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	defaultTimeout     = 5 * time.Minute
	defaultMaxInFlight = 5
)

// Client fetches USGS water-services resources with a bounded per-request
// timeout, exponential-backoff retry, and a shared in-flight request limit
// across all concurrent callers. Responses outside 2xx are failures.
type Client struct {
	httpClient  *http.Client
	limiter     *semaphore.Weighted
	clock       clockwork.Clock
	logger      *slog.Logger
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration
}

// ClientOption tunes a Client.
type ClientOption func(*Client)

// WithMaxAttempts sets the total attempt budget per request.
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the first retry delay; later delays double it.
func WithBaseDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.baseDelay = d
		}
	}
}

// WithTimeout sets the absolute per-attempt timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxInFlight bounds concurrent upstream requests across all callers.
func WithMaxInFlight(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.limiter = semaphore.NewWeighted(n)
		}
	}
}

// WithClock injects the time source used for backoff sleeps.
func WithClock(clock clockwork.Clock) ClientOption {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewClient builds a Client with sensible defaults for the USGS services.
func NewClient(logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		limiter:     semaphore.NewWeighted(defaultMaxInFlight),
		clock:       clockwork.NewRealClock(),
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		timeout:     defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON fetches url and decodes the response body into dest. It retries
// transient failures with exponential backoff plus additive jitter, and
// returns the last error once the attempt budget is exhausted.
func (c *Client) GetJSON(ctx context.Context, url string, dest any) error {
	if err := c.limiter.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.limiter.Release(1)

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt-1)); err != nil {
				return err
			}
		}

		lastErr = c.getOnce(ctx, url, dest)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}

		c.logger.Warn("fetch attempt failed",
			"url", url,
			"attempt", attempt+1,
			"max_attempts", c.maxAttempts,
			"error", lastErr,
		)
	}

	return fmt.Errorf("all %d attempts failed: %w", c.maxAttempts, lastErr)
}

func (c *Client) getOnce(ctx context.Context, url string, dest any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %s: %s", resp.Status, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// backoff returns baseDelay * 2^retryIndex plus up to half the base delay of
// jitter, so concurrent callers failing together do not retry in lockstep.
func (c *Client) backoff(retryIndex int) time.Duration {
	delay := c.baseDelay << uint(retryIndex)
	jitter := time.Duration(rand.Int63n(int64(c.baseDelay)/2 + 1))
	return delay + jitter
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := c.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
