package samsara

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// ErrUnauthorized marks a 401/403 from the API. Authorization failures
// are fatal for the call; the engine never retries them.
var ErrUnauthorized = errors.New("samsara: unauthorized (check API token)")

// fixedRetryDelay is the pause before retrying transport faults and
// unexpected statuses. Rate limiting uses exponential backoff instead.
const fixedRetryDelay = time.Second

// retryDelay computes the pause before retry number attempt+1.
// Rate-limited attempts back off exponentially (2^(attempt+1) seconds);
// everything else waits a fixed short delay.
func retryDelay(attempt int, rateLimited bool) time.Duration {
	if rateLimited {
		return time.Duration(1<<(attempt+1)) * time.Second
	}
	return fixedRetryDelay
}

// request performs one authenticated API call with the retry policy
// applied. It returns the raw 200 response body; callers parse it.
// Callers are expected to hold a session scope; when none is live the
// call acquires its own, which is logged as abnormal.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body []byte, maxRetries int) ([]byte, error) {
	httpClient := c.currentSession()
	if httpClient == nil {
		c.log.Warn("request issued without a session scope, acquiring one for this call",
			zap.String("path", path))
		release := c.Acquire()
		defer release()
		httpClient = c.currentSession()
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		result, retryable, rateLimited, err := c.attempt(ctx, httpClient, method, reqURL, body)
		if err == nil {
			return result, nil
		}
		if !retryable {
			return nil, err
		}
		if attempt >= maxRetries {
			c.log.Warn("request failed after exhausting retries",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempts", attempt+1),
				zap.Error(err))
			return nil, err
		}

		delay := retryDelay(attempt, rateLimited)
		c.log.Warn("request failed, retrying",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return nil, sleepErr
		}
	}
}

// attempt performs a single HTTP exchange and classifies the outcome.
func (c *Client) attempt(ctx context.Context, httpClient *http.Client, method, reqURL string, body []byte) (result []byte, retryable, rateLimited bool, err error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, false, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, false, ctx.Err()
		}
		return nil, true, false, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, true, false, fmt.Errorf("reading response: %w", readErr)
		}
		return data, false, false, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.log.Error("authorization failure from API", zap.Int("status", resp.StatusCode))
		return nil, false, false, ErrUnauthorized

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, true, fmt.Errorf("API rate limited (status %d)", resp.StatusCode)

	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, true, false, fmt.Errorf("API returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
