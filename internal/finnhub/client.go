// Package finnhub is a small client for the Finnhub REST API: quotes and the
// exchange holiday list.
package finnhub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/pcdogyu/market-dashboard/internal/quote"
)

var (
	// ErrRateLimited is returned for HTTP 429. It is not retried.
	ErrRateLimited = quote.ErrRateLimited
	// ErrNoData is returned when a quote carries no current price.
	ErrNoData = quote.ErrNoData
)

const DefaultBaseURL = "https://finnhub.io/api/v1"

type Options struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
	// Backoff is the first retry delay; it triples on each retry.
	Backoff time.Duration
}

type Client struct {
	hc          *http.Client
	baseURL     string
	apiKey      string
	maxAttempts int
	backoff     time.Duration
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	return &Client{
		hc: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: opts.Timeout,
		},
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
	}
}

func (c *Client) endpoint(path string, q url.Values) string {
	q.Set("token", c.apiKey)
	return c.baseURL + path + "?" + q.Encode()
}

// getBody GETs u and returns the body of a 200 response. Network errors and
// 5xx are retried with backoff; 429 and other statuses are not.
func (c *Client) getBody(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	backoff := c.backoff

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 3
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "mdash/1.0")
		req.Header.Set("Accept", "application/json")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		b, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = readErr
				continue
			}
			return b, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, ErrRateLimited
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("http %d: %s", resp.StatusCode, truncate(b, 200))
			continue
		default:
			return nil, fmt.Errorf("http %d: %s", resp.StatusCode, truncate(b, 200))
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("unknown error")
	}
	return nil, fmt.Errorf("after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values) (gjson.Result, error) {
	b, err := c.getBody(ctx, c.endpoint(path, q))
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(b) {
		return gjson.Result{}, fmt.Errorf("invalid json from %s", path)
	}
	res := gjson.ParseBytes(b)
	if msg := res.Get("error"); msg.Exists() {
		return gjson.Result{}, fmt.Errorf("finnhub: %s", msg.String())
	}
	return res, nil
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n]
	}
	return s
}
