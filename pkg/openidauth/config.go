package openidauth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Defaults applied by New when the corresponding Config field is left zero.
const (
	// DefaultUserAgent identifies the client to the service and the
	// identity provider.
	DefaultUserAgent = "Fedora BaseClient/1.0"

	// DefaultConnectTimeout bounds connection establishment only. Response
	// downloads are unbounded: some endpoints stream large bodies.
	DefaultConnectTimeout = 120 * time.Second

	// DefaultRetryInterval paces attempts after transport failures.
	DefaultRetryInterval = 2 * time.Second

	// DefaultSessionCookieName is the cookie the service issues once the
	// login sequence completes.
	DefaultSessionCookieName = "tg-visit"

	// DefaultProviderCookieName is the cookie the identity provider issues.
	// One provider session covers every service that trusts the provider.
	DefaultProviderCookieName = "FAS_OPENID"

	// DefaultProviderBaseURL is the well-known identity provider the
	// services this client targets delegate their logins to.
	DefaultProviderBaseURL = "https://id.fedoraproject.org"
)

// The session cache lives under the user's home directory so every client
// of the same account shares it.
const (
	cacheDirName  = ".fedora"
	cacheFileName = "baseclient-sessions.sqlite"
)

// Config controls a Client. BaseURL is the only required field; the zero
// value of every other field selects the documented default. A Config is
// read once by New and never reloaded.
type Config struct {
	BaseURL  string // Required: root URL of the service the client talks to
	LoginURL string // Optional: login endpoint (default: BaseURL + "/login")
	Username string // Optional: account to act as; empty means anonymous, with a memory-only session cache

	UserAgent          string        // Optional: User-Agent header (default: "Fedora BaseClient/1.0")
	InsecureSkipVerify bool          // Optional: skip TLS verification, for staging servers (default: false)
	ConnectTimeout     time.Duration // Optional: connection establishment timeout (default: 120s)
	Retries            int           // Optional: extra attempts after a transport failure; negative retries forever (default: 0)
	RetryInterval      time.Duration // Optional: pacing between retry attempts (default: 2s)

	SessionCookieName  string // Optional: name of the service session cookie (default: "tg-visit")
	ProviderCookieName string // Optional: name of the identity provider session cookie (default: "FAS_OPENID")
	ProviderBaseURL    string // Optional: identity provider root URL (default: "https://id.fedoraproject.org")

	DisableCache bool   // Optional: keep sessions in memory only, never on disk (default: false)
	CachePath    string // Optional: session cache file (default: ~/.fedora/baseclient-sessions.sqlite)

	SessionToken         string // Optional: known service session token to seed the cache with
	ProviderSessionToken string // Optional: known identity provider session token to seed the cache with

	Logger    *slog.Logger      // Optional: destination for client logs (default: slog.Default())
	Transport http.RoundTripper // Optional: overrides the HTTP transport, for tests and instrumentation
}

// withDefaults returns a copy of c with every unset optional field filled
// in.
func (c Config) withDefaults() Config {
	if c.LoginURL == "" {
		c.LoginURL = strings.TrimSuffix(c.BaseURL, "/") + "/login"
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.SessionCookieName == "" {
		c.SessionCookieName = DefaultSessionCookieName
	}
	if c.ProviderCookieName == "" {
		c.ProviderCookieName = DefaultProviderCookieName
	}
	if c.ProviderBaseURL == "" {
		c.ProviderBaseURL = DefaultProviderBaseURL
	}
	if c.CachePath == "" {
		c.CachePath = defaultCachePath()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// validate runs after withDefaults, so only fields without defaults can
// still be missing.
func (c Config) validate() error {
	if c.BaseURL == "" {
		return errors.New("openidauth: Config.BaseURL is required")
	}
	if err := checkAbsoluteURL("Config.BaseURL", c.BaseURL); err != nil {
		return err
	}
	return checkAbsoluteURL("Config.ProviderBaseURL", c.ProviderBaseURL)
}

func checkAbsoluteURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("openidauth: %s: %w", field, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("openidauth: %s %q is not an absolute URL", field, raw)
	}
	return nil
}

// defaultCachePath locates the shared session cache. An unresolvable home
// directory returns empty, which downgrades the client to a memory-only
// cache instead of failing construction.
func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, cacheDirName, cacheFileName)
}
