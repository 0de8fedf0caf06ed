// Package strava fetches athlete activities from the Strava v3 API.
package strava

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/joshdurbin/strava-trends/internal/logging"
)

const (
	defaultBaseURL  = "https://www.strava.com/api/v3"
	defaultPageSize = 200
	requestTimeout  = 30 * time.Second
)

var (
	// ErrRateLimited is returned when 429s persist after every retry
	ErrRateLimited = errors.New("rate limited")

	// ErrUnauthorized is returned when the access token is rejected
	ErrUnauthorized = errors.New("access token rejected")
)

// RetryConfig controls retry and backoff for API calls
type RetryConfig struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryConfig retries five times between one second and five minutes
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 5,
		MinWait:    time.Second,
		MaxWait:    5 * time.Minute,
	}
}

// Option customizes a Client
type Option func(*Client)

// WithBaseURL points the client at another API root, such as an httptest server
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithRetry replaces the retry settings
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) {
		c.http.RetryMax = cfg.MaxRetries
		c.http.RetryWaitMin = cfg.MinWait
		c.http.RetryWaitMax = cfg.MaxWait
	}
}

// WithPageSize sets how many activities are requested per page
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// Client is a Strava API client with retry, backoff and rate limit tracking
type Client struct {
	http        *retryablehttp.Client
	accessToken string
	baseURL     string
	pageSize    int

	mu     sync.RWMutex
	limits RateLimitInfo
}

// NewClient creates a client authenticated with accessToken
func NewClient(accessToken string, opts ...Option) *Client {
	c := &Client{
		http:        newRetryClient(DefaultRetryConfig()),
		accessToken: accessToken,
		baseURL:     defaultBaseURL,
		pageSize:    defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newRetryClient(cfg RetryConfig) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = cfg.MinWait
	rc.RetryWaitMax = cfg.MaxWait
	rc.HTTPClient.Timeout = requestTimeout
	rc.Logger = &logging.LeveledLogger{}
	rc.CheckRetry = checkRetry
	rc.Backoff = backoff
	// Hand the final response back so exhausted 429s surface as ErrRateLimited
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.RequestLogHook = logRequest
	rc.ResponseLogHook = logResponse
	return rc
}

// checkRetry retries connection errors, 429 and 5xx. Everything else is final.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return true, nil
	case resp.StatusCode >= 500:
		return true, nil
	default:
		return false, nil
	}
}

// backoff honors Retry-After, otherwise waits out the 15-minute window on 429
// and backs off exponentially on everything else.
func backoff(min, max time.Duration, attempt int, resp *http.Response) time.Duration {
	log := logging.Logger

	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			wait := time.Duration(seconds) * time.Second
			log.Info().Dur("wait", wait).Int("attempt", attempt).Msg("rate limited, honoring Retry-After")
			return wait
		}
		wait := untilNextWindow(time.Now())
		log.Info().Dur("wait", wait).Int("attempt", attempt).Msg("rate limited, waiting for 15-minute window reset")
		return wait
	}

	wait := min << uint(attempt)
	if wait <= 0 || wait > max {
		wait = max
	}
	log.Info().Dur("wait", wait).Int("attempt", attempt).Msg("backing off before retry")
	return wait
}

func logRequest(_ retryablehttp.Logger, req *http.Request, retry int) {
	log := logging.Logger
	if retry > 0 {
		log.Info().Str("url", req.URL.Path).Int("attempt", retry+1).Msg("retrying request")
	}
	if logging.IsTraceEnabled() {
		log.Debug().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Str("headers", redactedHeaders(req.Header)).
			Msg("request headers")
	}
}

func logResponse(_ retryablehttp.Logger, resp *http.Response) {
	log := logging.Logger
	if logging.IsTraceEnabled() {
		log.Debug().
			Int("status", resp.StatusCode).
			Str("url", resp.Request.URL.Path).
			Str("headers", redactedHeaders(resp.Header)).
			Msg("response headers")
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		info := parseRateLimitHeaders(resp.Header, time.Now())
		log.Warn().
			Str("url", resp.Request.URL.Path).
			Str("15min_usage", fmt.Sprintf("%d/%d", info.Usage15Min, info.Limit15Min)).
			Str("daily_usage", fmt.Sprintf("%d/%d", info.UsageDaily, info.LimitDaily)).
			Dur("wait_for_reset", info.TimeUntil15MinReset).
			Msg("rate limited by API")
	}
}

// RateLimit returns the last observed limits with reset times relative to now
func (c *Client) RateLimit() RateLimitInfo {
	c.mu.RLock()
	info := c.limits
	c.mu.RUnlock()
	info.evaluate(time.Now())
	return info
}

// WaitForRateLimit blocks until the API budget allows more requests
func (c *Client) WaitForRateLimit(ctx context.Context) error {
	info := c.RateLimit()
	if info.RecommendedWait <= 0 {
		return nil
	}

	logging.Logger.Info().
		Dur("wait", info.RecommendedWait).
		Str("15min_usage", fmt.Sprintf("%d/%d", info.Usage15Min, info.Limit15Min)).
		Str("daily_usage", fmt.Sprintf("%d/%d", info.UsageDaily, info.LimitDaily)).
		Msg("waiting for rate limit window to reset")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(info.RecommendedWait):
		return nil
	}
}

func (c *Client) recordLimits(resp *http.Response) RateLimitInfo {
	info := parseRateLimitHeaders(resp.Header, time.Now())
	if resp.StatusCode == http.StatusTooManyRequests {
		info.IsRateLimited = true
	}
	c.mu.Lock()
	c.limits = info
	c.mu.Unlock()
	return info
}

// redactedHeaders renders headers in key order with credentials masked
func redactedHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		value := strings.Join(headers[k], ", ")
		switch strings.ToLower(k) {
		case "authorization", "cookie", "set-cookie":
			value = "[REDACTED]"
		}
		parts = append(parts, fmt.Sprintf("%s: %q", k, value))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
