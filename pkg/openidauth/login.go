package openidauth

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/oklog/ulid/v2"

	"github.com/fedora-infra/openidclient/pkg/htmlform"
	"github.com/fedora-infra/openidclient/pkg/slogx"
)

// transactionMarker is the page title the identity provider machinery emits
// while a login is mid-flight. Its presence in a response means the session
// is not authenticated; its absence after a completed login sequence means
// it is.
const transactionMarker = "<title>OpenID transaction in progress</title>"

// Login sequence states. ProtocolError.State names the one the walk had
// reached when a page stopped it; a failed walk surfaces as the returned
// error, logged under stateFailed.
const (
	stateStart                   = "START"
	stateAwaitingProviderLogin   = "AWAITING_PROVIDER_LOGIN"
	stateAwaitingCredentials     = "AWAITING_CREDENTIALS"
	stateAwaitingConsent         = "AWAITING_CONSENT"
	stateAwaitingServiceCallback = "AWAITING_SERVICE_CALLBACK"
	stateAuthenticated           = "AUTHENTICATED"
	stateFailed                  = "FAILED"
)

// Login authenticates against the service by emulating the browser side of
// its OpenID redirect dance, then caches the session tokens the dance
// produced. An empty username falls back to Config.Username. The otp value
// is accepted for call-site compatibility and never sent.
//
// When the cached session is still valid the service answers the first
// request with regular content and Login returns it at once; the identity
// provider is never contacted. Otherwise the walk runs: the service's
// OpenID form is handed to the provider, credentials are submitted if the
// provider asks for them, consent is granted, and the provider's answer is
// posted back to the service.
func (c *Client) Login(ctx context.Context, username, password, otp string) (*Response, error) {
	_ = otp

	if username == "" {
		username = c.cfg.Username
	}
	c.username = username

	ctx = slogx.WithContext(ctx, c.logger.With("username", username))
	ctx = slogx.WithAttemptID(ctx, ulid.Make().String())
	logger := slogx.FromContext(ctx)

	c.seedCookies(ctx)

	logger.DebugContext(ctx, "login sequence started",
		"state", stateStart, "url", c.cfg.LoginURL)

	resp, err := c.do(ctx, http.MethodGet, c.cfg.LoginURL, nil)
	if err != nil {
		return nil, err
	}

	if !bytes.Contains(resp.Body, []byte(transactionMarker)) {
		logger.DebugContext(ctx, "session already authenticated", "state", stateAuthenticated)
		return resp, nil
	}

	// The cached tokens did not carry the session. Drop the memory copies
	// so a walk that fails halfway does not leave them looking valid.
	c.sessions.invalidate(c.serviceKey(""))
	c.sessions.invalidate(c.providerKey())

	// The marker page carries the service's OpenID request as a form
	// targeting the provider.
	form, err := htmlform.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, c.failLogin(ctx, stateStart, "extract service login form", err)
	}

	resp, err = c.postForm(ctx, stateStart, resp, form)
	if err != nil {
		return nil, err
	}
	providerURL := resp.URL

	state := stateAwaitingProviderLogin
	form, err = htmlform.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, c.failLogin(ctx, state, "extract identity provider form", err)
	}

	// A username field means the provider wants credentials. Without one it
	// recognised its own session cookie and served the consent form
	// directly.
	if form.Fields.Has("username") {
		state = stateAwaitingCredentials
		logger.DebugContext(ctx, "submitting credentials", "state", state)

		form.Fields.Set("username", username)
		form.Fields.Set("password", password)

		resp, err = c.postForm(ctx, state, resp, form)
		if err != nil {
			return nil, err
		}
		providerURL = resp.URL

		form, err = htmlform.Parse(bytes.NewReader(resp.Body))
		if err != nil {
			return nil, c.failLogin(ctx, state, "extract consent form", err)
		}
	}

	// Consent: drop the deny button and submit what remains, which approves
	// the request.
	form.Fields.Del("decided_deny")

	state = stateAwaitingConsent
	logger.DebugContext(ctx, "submitting consent", "state", state)
	resp, err = c.postForm(ctx, state, resp, form)
	if err != nil {
		return nil, err
	}
	providerURL = resp.URL

	form, err = htmlform.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, c.failLogin(ctx, state, "extract service callback form", err)
	}

	state = stateAwaitingServiceCallback
	resp, err = c.postForm(ctx, state, resp, form)
	if err != nil {
		return nil, err
	}

	if bytes.Contains(resp.Body, []byte(transactionMarker)) {
		return nil, c.failLogin(ctx, state, "service callback returned the login page again", nil)
	}

	c.harvestTokens(ctx, providerURL)

	logger.InfoContext(ctx, "login complete",
		"state", stateAuthenticated, "url", resp.URL.String())
	return resp, nil
}

// postForm resolves the form's action against the page that served it and
// submits the fields. Provider pages routinely use relative actions.
func (c *Client) postForm(ctx context.Context, state string, page *Response, form *htmlform.Form) (*Response, error) {
	action, err := page.URL.Parse(form.Action)
	if err != nil {
		return nil, c.failLogin(ctx, state, fmt.Sprintf("resolve form action %q", form.Action), err)
	}
	return c.do(ctx, http.MethodPost, action.String(), form.Fields)
}

func (c *Client) failLogin(ctx context.Context, state, step string, err error) error {
	slogx.FromContext(ctx).DebugContext(ctx, "login sequence failed",
		"state", stateFailed, "at", state, "step", step, "error", err)
	return &ProtocolError{State: state, Step: step, Err: err}
}

// seedCookies copies cached session tokens into the cookie jar: the service
// token at the service origin, the provider token at the provider origin.
// Tokens we do not hold are simply not seeded.
func (c *Client) seedCookies(ctx context.Context) {
	if token, ok := c.sessions.get(ctx, c.serviceKey("")); ok {
		c.setJarCookie(c.baseURL, c.cfg.SessionCookieName, token)
	}
	if token, ok := c.sessions.get(ctx, c.providerKey()); ok {
		c.setJarCookie(c.providerBase, c.cfg.ProviderCookieName, token)
	}
}

func (c *Client) setJarCookie(u *url.URL, name, value string) {
	c.httpClient.Jar.SetCookies(u, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

// harvestTokens pulls the session cookies the walk produced out of the jar
// and writes them through the cache. A missing cookie is logged and
// skipped: a provider that set only one of the two still produced a usable
// session.
func (c *Client) harvestTokens(ctx context.Context, providerURL *url.URL) {
	c.harvestToken(ctx, c.baseURL, c.cfg.SessionCookieName, c.serviceKey(""))
	c.harvestToken(ctx, providerURL, c.cfg.ProviderCookieName, c.providerKey())
}

func (c *Client) harvestToken(ctx context.Context, u *url.URL, name string, key SessionKey) {
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == name {
			c.sessions.set(ctx, key, cookie.Value)
			return
		}
	}
	slogx.FromContext(ctx).WarnContext(ctx, "session cookie not found after login",
		"cookie", name, "url", u.String())
}
