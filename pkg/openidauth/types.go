package openidauth

import (
	"net/http"
	"net/url"
)

// Request describes one service call made through SendRequest.
type Request struct {
	// Path is resolved against the client's base URL. An absolute URL is
	// used as-is, which lets one client talk to sibling services that share
	// the session.
	Path string

	// Verb is the HTTP method. Empty defaults to POST, matching the
	// form-driven APIs this client was built for. Only GET and POST are
	// supported; anything else fails with UnsupportedVerbError.
	Verb string

	// Auth marks the call as needing an authenticated session. Cached
	// session tokens are attached as cookies before sending, and a login
	// page in the answer becomes a LoginRequiredError.
	Auth bool

	// Params carries the query parameters (GET) or form fields (POST).
	Params url.Values
}

// Response is the outcome of a delivered request. The body has been read in
// full and the underlying connection released by the time the caller sees
// it, so there is nothing to close.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte

	// URL is the address that produced this response, after any redirects.
	URL *url.URL
}
