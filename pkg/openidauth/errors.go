package openidauth

import "fmt"

// ============================================================================
// Session State Errors
// ============================================================================

// LoginRequiredError reports that a request needing an authenticated session
// was answered with the identity provider's login page instead of service
// output. The stale service token has already been dropped from the cache by
// the time the caller sees this error; logging in and repeating the request
// is the caller's move.
type LoginRequiredError struct {
	// URL is the address the service redirected to, after all redirects.
	URL string
}

func (e *LoginRequiredError) Error() string {
	return fmt.Sprintf("openidauth: login required (redirected to %s)", e.URL)
}

// ============================================================================
// Login Protocol Errors
// ============================================================================

// ProtocolError reports that the service or the identity provider answered a
// login step with a page the client cannot drive, for example a page without
// a form or a form whose action cannot be resolved. State names the point
// the login sequence had reached, Step the request that produced the page.
type ProtocolError struct {
	State string
	Step  string
	Err   error
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("openidauth: protocol error at %s: %s", e.State, e.Step)
	}
	return fmt.Sprintf("openidauth: protocol error at %s: %s: %v", e.State, e.Step, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ============================================================================
// Request Delivery Errors
// ============================================================================

// UnsupportedVerbError reports a SendRequest call with an HTTP verb the
// client does not implement. It is returned before any network traffic.
type UnsupportedVerbError struct {
	Verb string
}

func (e *UnsupportedVerbError) Error() string {
	return fmt.Sprintf("openidauth: unsupported verb %q", e.Verb)
}

// RequestError reports that a request never produced a response: every
// attempt failed at the transport level and the retry budget is spent.
// Attempts counts the requests actually sent. It wraps the last transport
// error.
type RequestError struct {
	Verb     string
	URL      string
	Attempts int
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("openidauth: %s %s failed after %d attempt(s): %v", e.Verb, e.URL, e.Attempts, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }
