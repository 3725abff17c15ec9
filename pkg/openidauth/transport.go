package openidauth

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fedora-infra/openidclient/pkg/slogx"
)

// do delivers one HTTP request, retrying transport-level failures within
// the configured budget. form is the POST body; GET targets carry their
// parameters in rawURL already. HTTP error statuses are results, not
// failures: they come back as a Response like any other.
func (c *Client) do(ctx context.Context, method, rawURL string, form url.Values) (*Response, error) {
	attempts := 0
	for {
		resp, err := c.attempt(ctx, method, rawURL, form)
		attempts++
		if err == nil {
			return resp, nil
		}

		slogx.FromContext(ctx).DebugContext(ctx, "request attempt failed",
			"method", method, "url", rawURL, "attempt", attempts, "error", err)

		if c.cfg.Retries >= 0 && attempts > c.cfg.Retries {
			return nil, &RequestError{Verb: method, URL: rawURL, Attempts: attempts, Err: err}
		}
		// The limiter paces retries client-wide and honors cancellation
		// while waiting.
		if waitErr := c.retryLimiter.Wait(ctx); waitErr != nil {
			return nil, &RequestError{Verb: method, URL: rawURL, Attempts: attempts, Err: err}
		}
	}
}

// attempt sends one request and drains the response. A body-read failure
// counts as a transport failure: a Response is only ever returned complete.
func (c *Client) attempt(ctx context.Context, method, rawURL string, form url.Values) (*Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// resp.Request points at the last request of a redirect chain. Custom
	// transports do not always populate it.
	finalURL := req.URL
	if resp.Request != nil {
		finalURL = resp.Request.URL
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
		URL:        finalURL,
	}, nil
}
