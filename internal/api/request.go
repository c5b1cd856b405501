package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrFetchFailed marks every error returned by a fetch: transport, status, or parse failures.
var ErrFetchFailed = errors.New("fetch failed")

// errTooManyRedirects is returned when a redirect points at another redirect.
var errTooManyRedirects = errors.New("redirected more than once")

// APIError represents a non-2xx response from the GW2 API.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gw2 api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// isRedirect reports whether the status carries a Location to follow.
func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// doRequest performs an HTTP request, following at most one redirect by switching
// scheme and host while keeping the original path and query.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	target, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	for hop := 0; ; hop++ {
		resp, body, err := c.send(ctx, method, target)
		if err != nil {
			return nil, err
		}

		if isRedirect(resp.StatusCode) {
			if hop > 0 {
				return nil, errTooManyRedirects
			}
			loc, err := resp.Location()
			if err != nil {
				return nil, fmt.Errorf("redirect without location: %w", err)
			}
			c.logger.Debug("following redirect",
				"from", target.Scheme+"://"+target.Host,
				"to", loc.Scheme+"://"+loc.Host,
				"path", path,
			)
			target.Scheme = loc.Scheme
			target.Host = loc.Host
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    http.StatusText(resp.StatusCode),
				Body:       body,
			}
		}

		return body, nil
	}
}

// send issues a single request and reads the whole body.
func (c *Client) send(ctx context.Context, method string, target *url.URL) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	return resp, body, nil
}

// doWithRetry performs a request, retrying retryable failures after a fixed delay.
func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"delay", c.retryDelay,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		body, err := c.doRequest(ctx, method, path, query)
		if err == nil {
			return body, nil
		}

		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs a GET request with retries and decodes the JSON body.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	body, err := c.doWithRetry(ctx, http.MethodGet, path, query)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: unmarshal response: %w", ErrFetchFailed, err)
	}

	return nil
}
