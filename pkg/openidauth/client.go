package openidauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/fedora-infra/openidclient/pkg/httpx"
)

// Client authenticates against one service and sends requests on its
// behalf. It is not safe for concurrent use: it models a single browsing
// session, and the login walk and cookie jar behind it are stateful. Use
// one Client per goroutine.
type Client struct {
	cfg      Config
	username string

	logger       *slog.Logger
	httpClient   *http.Client
	retryLimiter *rate.Limiter
	sessions     *sessionCache

	baseURL      *url.URL
	providerBase *url.URL
}

// New builds a Client from cfg. Construction never fails for storage
// reasons: an unusable session cache file degrades the client to in-memory
// caching with one logged warning.
func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("openidauth: parse base URL: %w", err)
	}
	providerBase, err := url.Parse(cfg.ProviderBaseURL)
	if err != nil {
		return nil, fmt.Errorf("openidauth: parse provider base URL: %w", err)
	}

	httpClient, err := httpx.New(httpx.Options{
		UserAgent:          cfg.UserAgent,
		ConnectTimeout:     cfg.ConnectTimeout,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Transport:          cfg.Transport,
		Logger:             cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("openidauth: build http client: %w", err)
	}

	c := &Client{
		cfg:          cfg,
		username:     cfg.Username,
		logger:       cfg.Logger,
		httpClient:   httpClient,
		retryLimiter: rate.NewLimiter(rate.Every(cfg.RetryInterval), 1),
		sessions:     newSessionCache(cfg),
		baseURL:      baseURL,
		providerBase: providerBase,
	}

	// Token seeds go through the normal write path, so a configured
	// username persists them like a fresh login would.
	if cfg.SessionToken != "" {
		c.sessions.set(context.Background(), c.serviceKey(""), cfg.SessionToken)
	}
	if cfg.ProviderSessionToken != "" {
		c.sessions.set(context.Background(), c.providerKey(), cfg.ProviderSessionToken)
	}

	return c, nil
}

// Close releases the session cache. The Client must not be used after
// Close.
func (c *Client) Close() error {
	return c.sessions.close()
}

// Logout forgets the cached sessions for the current username, both the
// service token and the provider token, and resets the cookie jar. It is
// local only: the provider is not notified, so its server-side session
// expires on its own schedule.
func (c *Client) Logout(ctx context.Context) error {
	err := errors.Join(
		c.sessions.delete(ctx, c.serviceKey("")),
		c.sessions.delete(ctx, c.providerKey()),
	)

	jar, jarErr := httpx.NewJar()
	if jarErr != nil {
		return errors.Join(err, jarErr)
	}
	c.httpClient.Jar = jar
	return err
}

func (c *Client) serviceKey(baseURLOverride string) SessionKey {
	return resolveKey(c.cfg, c.username, baseURLOverride, KindService)
}

func (c *Client) providerKey() SessionKey {
	return resolveKey(c.cfg, c.username, "", KindProvider)
}
