package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"zillow-scraper/proxy"
	"zillow-scraper/utils"
)

// ErrTerminal marks a fetch that exhausted its attempt budget.
var ErrTerminal = errors.New("fetch failed terminally")

// StatusError is a response that arrived with a status other than 200.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// TerminalError is returned once every attempt for URL has failed. Callers
// log it and skip the item; it never aborts a run by itself.
type TerminalError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("fetch %s: gave up after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *TerminalError) Unwrap() error { return e.Err }

func (e *TerminalError) Is(target error) bool { return target == ErrTerminal }

// ClientOptions configures the retry and proxy-rotation policy.
type ClientOptions struct {
	MaxAttempts  int
	Timeout      time.Duration
	MinDelay     time.Duration
	MaxDelay     time.Duration
	RateLimitRPS float64
}

// DefaultClientOptions returns three attempts, a 30s timeout per attempt and
// a 1-3s pause between attempts.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		MaxAttempts: 3,
		Timeout:     30 * time.Second,
		MinDelay:    time.Second,
		MaxDelay:    3 * time.Second,
	}
}

// Client wraps a Fetcher with bounded retries. Every attempt goes through an
// endpoint picked independently from the pool.
type Client struct {
	fetcher Fetcher
	pool    *proxy.Pool
	opts    ClientOptions
	logger  *utils.Logger
	retry   *utils.RetryConfig
	limiter *rate.Limiter
}

// NewClient creates a Client. Zero option fields fall back to the defaults.
func NewClient(f Fetcher, pool *proxy.Pool, opts ClientOptions, logger *utils.Logger) *Client {
	def := DefaultClientOptions()
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MinDelay < 0 {
		opts.MinDelay = 0
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}

	c := &Client{
		fetcher: f,
		pool:    pool,
		opts:    opts,
		logger:  logger,
		retry: &utils.RetryConfig{
			MaxAttempts: opts.MaxAttempts,
			MinDelay:    opts.MinDelay,
			MaxDelay:    opts.MaxDelay,
			Logger:      logger,
		},
	}
	if opts.RateLimitRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1)
	}
	return c
}

// Fetch returns the body of the first attempt answered with 200. When the
// budget is spent it returns a *TerminalError; when ctx is cancelled it
// returns ctx.Err().
func (c *Client) Fetch(ctx context.Context, target string) ([]byte, error) {
	var body []byte

	err := c.retry.Do(ctx, "fetch "+target, func(attempt int) error {
		if c.limiter != nil {
			r := c.limiter.Reserve()
			if err := utils.Sleep(ctx, r.Delay()); err != nil {
				r.Cancel()
				return err
			}
		}

		ep := c.pool.Pick()
		resp, err := c.attempt(ctx, target, ep)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Error("[fetch] attempt %d/%d failed with error: %v for URL: %s (proxy %s)",
					attempt, c.opts.MaxAttempts, err, target, proxy.Redact(ep))
			}
			return err
		}
		if resp.StatusCode != http.StatusOK {
			c.logger.Warn("[fetch] attempt %d/%d failed with status code %d for URL: %s (proxy %s)",
				attempt, c.opts.MaxAttempts, resp.StatusCode, target, proxy.Redact(ep))
			return &StatusError{StatusCode: resp.StatusCode}
		}

		c.logger.Info("[fetch] attempt %d/%d succeeded with status code %d for URL: %s (proxy %s)",
			attempt, c.opts.MaxAttempts, resp.StatusCode, target, proxy.Redact(ep))
		body = resp.Body
		return nil
	})
	if err == nil {
		return body, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c.logger.Error("[fetch] failed to fetch data for %s after %d attempts", target, c.opts.MaxAttempts)
	return nil, &TerminalError{URL: target, Attempts: c.opts.MaxAttempts, Err: errors.Unwrap(err)}
}

func (c *Client) attempt(ctx context.Context, target, ep string) (*Response, error) {
	actx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	return c.fetcher.Fetch(actx, target, ep)
}
