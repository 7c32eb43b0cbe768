// Package httpretry wraps an HTTP client with exponential backoff for
// flaky external fetches, such as the blog RSS feed.
package httpretry

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"
)

// Client retries transient failures with jittered exponential backoff.
// Client errors (4xx other than 429) are returned immediately.
type Client struct {
	base      *http.Client
	retries   int
	baseDelay time.Duration
	maxDelay  time.Duration
}

// New returns a retrying client over base. A nil base gets a 30s
// timeout client. retries is the number of attempts after the first.
func New(base *http.Client, retries int) *Client {
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}
	if retries <= 0 {
		retries = 3
	}
	return &Client{
		base:      base,
		retries:   retries,
		baseDelay: time.Second,
		maxDelay:  30 * time.Second,
	}
}

// Do executes the request, retrying on network errors and on 429/5xx
// responses. The last response is returned as-is so callers can read
// the status and body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("reset request body: %w", err)
				}
				req.Body = body
			}
			delay := c.backoff(attempt)
			log.Printf("[HTTPRetry] attempt %d/%d for %s %s in %s", attempt, c.retries, req.Method, req.URL.Host, delay)
			select {
			case <-time.After(delay):
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
		}

		resp, err := c.base.Do(req)
		if err != nil {
			if req.Context().Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}
		if !retryable(resp.StatusCode) || attempt == c.retries {
			return resp, nil
		}

		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil, fmt.Errorf("all %d attempts failed, last: %w", c.retries+1, lastErr)
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.baseDelay << (attempt - 1)
	if d > c.maxDelay {
		d = c.maxDelay
	}
	jittered := time.Duration(rand.Float64() * float64(d))
	if jittered < 100*time.Millisecond {
		jittered = 100 * time.Millisecond
	}
	return jittered
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
