package openidauth

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fedora-infra/openidclient/pkg/slogx"
)

// SendRequest delivers one call to the service, attaching the cached
// session tokens when the request claims to need them.
//
// An authenticated request answered with the provider's login page fails
// with LoginRequiredError and drops the stale service token from the cache.
// The client never retries an expired session itself: the caller owns the
// credentials and decides whether to Login and repeat the call.
func (c *Client) SendRequest(ctx context.Context, req Request) (*Response, error) {
	verb, err := normalizeVerb(req.Verb)
	if err != nil {
		return nil, err
	}

	target, err := c.resolvePath(req.Path)
	if err != nil {
		return nil, err
	}

	ctx = slogx.WithContext(ctx, c.logger)

	if req.Auth {
		c.seedCookies(ctx)
	}

	var form url.Values
	switch verb {
	case http.MethodGet:
		if len(req.Params) > 0 {
			q := target.Query()
			for name, values := range req.Params {
				for _, v := range values {
					q.Add(name, v)
				}
			}
			target.RawQuery = q.Encode()
		}
	case http.MethodPost:
		form = req.Params
		if form == nil {
			form = url.Values{}
		}
	}

	resp, err := c.do(ctx, verb, target.String(), form)
	if err != nil {
		return nil, err
	}

	if req.Auth && bytes.Contains(resp.Body, []byte(transactionMarker)) {
		// The service bounced us to the provider, so the cached service
		// token is dead. The login page is withheld: the caller asked for
		// service output.
		key := c.serviceKey("")
		if err := c.sessions.delete(ctx, key); err != nil {
			c.logger.WarnContext(ctx, "failed to drop stale session token",
				"base_url", key.BaseURL, "error", err)
		}
		return nil, &LoginRequiredError{URL: resp.URL.String()}
	}

	return resp, nil
}

// normalizeVerb folds the verb to its canonical method. Empty defaults to
// POST.
func normalizeVerb(verb string) (string, error) {
	switch strings.ToUpper(verb) {
	case "", http.MethodPost:
		return http.MethodPost, nil
	case http.MethodGet:
		return http.MethodGet, nil
	default:
		return "", &UnsupportedVerbError{Verb: verb}
	}
}

// resolvePath makes the request target absolute. Relative paths resolve
// against the configured base URL; absolute URLs pass through, which lets
// one client address sibling services that share its session.
func (c *Client) resolvePath(p string) (*url.URL, error) {
	target, err := c.baseURL.Parse(p)
	if err != nil {
		return nil, fmt.Errorf("openidauth: resolve path %q: %w", p, err)
	}
	return target, nil
}
