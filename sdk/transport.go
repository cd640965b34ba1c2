package sdk

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// doRequestWithRetry performs an HTTP request with exponential backoff retry logic.
// It will retry on network errors and 5xx server errors. newRequest is called
// for every attempt so the request body is fresh each time.
func (c *Client) doRequestWithRetry(ctx context.Context, newRequest func() (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response
	var err error

	for attempt := 0; attempt <= c.retryAttempts; attempt++ {
		req, buildErr := newRequest()
		if buildErr != nil {
			return nil, fmt.Errorf("failed to create request: %w", buildErr)
		}

		resp, err = c.httpClient.Do(req)

		// Anything below 500 is an answer from the appliance, not a transport failure
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		if resp != nil {
			drainAndCloseBody(resp)
		}

		if attempt == c.retryAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.calculateBackoff(attempt)):
		}
	}

	if err != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", c.retryAttempts+1, err)
	}

	return nil, fmt.Errorf("%w: status code %d", ErrServerError, resp.StatusCode)
}

// calculateBackoff calculates the backoff duration for a retry attempt.
// It uses exponential backoff with jitter to avoid thundering herd.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := float64(c.retryWaitMin) * math.Pow(2, float64(attempt))

	if backoff > float64(c.retryWaitMax) {
		backoff = float64(c.retryWaitMax)
	}

	// Full jitter, never below the minimum wait
	jitter := rand.Float64() * backoff
	if jitter < float64(c.retryWaitMin) {
		jitter = float64(c.retryWaitMin)
	}

	return time.Duration(jitter)
}

// drainAndCloseBody reads and closes the response body to ensure connection reuse.
func drainAndCloseBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
}
