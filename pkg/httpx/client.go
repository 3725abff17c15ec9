// Package httpx builds the HTTP plumbing a browser-emulating client needs:
// an http.Client with a cookie jar, a connection-establishment timeout that
// leaves response downloads unbounded, optional TLS verification bypass for
// staging servers, and a user-agent decorating transport.
package httpx

import (
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/fedora-infra/openidclient/pkg/slogx"
)

// Options controls the client built by New.
type Options struct {
	// UserAgent is set on every request that does not already carry one.
	UserAgent string

	// ConnectTimeout bounds connection establishment (dial plus TLS
	// handshake), not the download of the response body. Zero means no
	// limit.
	ConnectTimeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification. Meant for
	// staging servers with self-signed certificates; leave it off in
	// production.
	InsecureSkipVerify bool

	// Logger, when set, logs every request at debug level via
	// slogx.Transport.
	Logger *slog.Logger

	// Transport overrides the base RoundTripper. When set, ConnectTimeout
	// and InsecureSkipVerify are the caller's responsibility.
	Transport http.RoundTripper
}

// New builds an http.Client with a fresh in-memory cookie jar. The jar is
// what carries a session across the redirects of a login sequence, so one
// client must serve a whole sequence.
func New(opts Options) (*http.Client, error) {
	jar, err := NewJar()
	if err != nil {
		return nil, err
	}

	base := opts.Transport
	if base == nil {
		dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
		transport := &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: opts.ConnectTimeout,
			ForceAttemptHTTP2:   true,
		}
		if opts.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		base = transport
	}

	if opts.Logger != nil {
		base = &slogx.Transport{Base: base, Logger: opts.Logger}
	}

	return &http.Client{
		Jar:       jar,
		Transport: &userAgentTransport{base: base, userAgent: opts.UserAgent},
	}, nil
}

// NewJar returns an empty cookie jar with public suffix protection, the same
// kind New installs. Callers use it to reset a client's session state
// without rebuilding the whole client.
func NewJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}
