package openidauth

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeEnv wires a fake service and a fake identity provider together so
// tests can run the whole login dance in-process. Both sides issue and
// honor session cookies the way the real ones do; the dance is driven
// purely by the HTML forms they serve.
type fakeEnv struct {
	service  *httptest.Server
	provider *httptest.Server

	// Tokens each side currently honors. Empty means no valid session.
	validServiceToken  string
	validProviderToken string

	loginGets       int
	providerPosts   int
	credentialPosts int
	consentPosts    int
	callbackPosts   int

	lastCredentials url.Values
	lastConsentForm url.Values

	whoamiCalls       int
	lastWhoamiMethod  string
	lastWhoamiQuery   url.Values
	lastWhoamiForm    url.Values
	lastWhoamiCookies []*http.Cookie

	breakLoginForm bool // serve the marker page without a form
	bounceCallback bool // answer the callback with the marker page again
}

func newFakeEnv(t *testing.T) *fakeEnv {
	t.Helper()
	env := &fakeEnv{}

	serviceMux := http.NewServeMux()
	serviceMux.HandleFunc("/login", env.handleLogin)
	serviceMux.HandleFunc("/callback", env.handleCallback)
	serviceMux.HandleFunc("/api/whoami", env.handleWhoami)
	env.service = httptest.NewServer(serviceMux)
	t.Cleanup(env.service.Close)

	providerMux := http.NewServeMux()
	providerMux.HandleFunc("/openid/login", env.handleProviderLogin)
	providerMux.HandleFunc("/openid/password", env.handleCredentials)
	providerMux.HandleFunc("/openid/consent", env.handleConsent)
	env.provider = httptest.NewServer(providerMux)
	t.Cleanup(env.provider.Close)

	return env
}

func (e *fakeEnv) authenticated(r *http.Request) bool {
	c, err := r.Cookie("tg-visit")
	return err == nil && e.validServiceToken != "" && c.Value == e.validServiceToken
}

func (e *fakeEnv) handleLogin(w http.ResponseWriter, r *http.Request) {
	e.loginGets++
	if e.authenticated(r) {
		fmt.Fprint(w, "<html><head><title>Home</title></head><body>Welcome back!</body></html>")
		return
	}
	if e.breakLoginForm {
		fmt.Fprintf(w, "<html><head>%s</head><body>no form here</body></html>", transactionMarker)
		return
	}
	fmt.Fprintf(w, `<html><head>%s</head><body onload="document.forms[0].submit()">
<form action="%s/openid/login" method="post">
<input type="hidden" name="openid.mode" value="checkid_setup">
<input type="hidden" name="openid.return_to" value="%s/callback">
<input type="submit" value="Continue">
</form></body></html>`, transactionMarker, e.provider.URL, e.service.URL)
}

func (e *fakeEnv) handleProviderLogin(w http.ResponseWriter, r *http.Request) {
	e.providerPosts++
	if c, err := r.Cookie("FAS_OPENID"); err == nil && e.validProviderToken != "" && c.Value == e.validProviderToken {
		e.writeConsentForm(w)
		return
	}
	// Relative action: the client must resolve it against this page's URL.
	fmt.Fprint(w, `<html><head><title>Provider login</title></head><body>
<form action="/openid/password" method="post">
<input type="text" name="username" value="">
<input type="password" name="password">
<input type="hidden" name="openid.mode" value="checkid_setup">
<input type="submit" name="login" value="Log in">
</form></body></html>`)
}

func (e *fakeEnv) handleCredentials(w http.ResponseWriter, r *http.Request) {
	e.credentialPosts++
	_ = r.ParseForm()
	e.lastCredentials = r.PostForm

	e.validProviderToken = "prov-" + strconv.Itoa(e.credentialPosts)
	http.SetCookie(w, &http.Cookie{Name: "FAS_OPENID", Value: e.validProviderToken, Path: "/"})
	e.writeConsentForm(w)
}

func (e *fakeEnv) writeConsentForm(w http.ResponseWriter) {
	fmt.Fprint(w, `<html><head><title>Confirm</title></head><body>
<form action="/openid/consent" method="post">
<input type="hidden" name="openid.mode" value="id_res">
<input type="submit" name="decided_allow" value="Approve">
<input type="submit" name="decided_deny" value="Deny">
</form></body></html>`)
}

func (e *fakeEnv) handleConsent(w http.ResponseWriter, r *http.Request) {
	e.consentPosts++
	_ = r.ParseForm()
	e.lastConsentForm = r.PostForm

	if r.PostForm.Has("decided_deny") {
		fmt.Fprint(w, "<html><body>request denied</body></html>")
		return
	}
	fmt.Fprintf(w, `<html><head><title>Returning</title></head><body>
<form action="%s/callback" method="post">
<input type="hidden" name="assertion" value="ok">
<input type="hidden" name="openid.sig" value="sig-val">
<input type="submit" value="Continue">
</form></body></html>`, e.service.URL)
}

func (e *fakeEnv) handleCallback(w http.ResponseWriter, r *http.Request) {
	e.callbackPosts++
	_ = r.ParseForm()
	if e.bounceCallback || r.PostForm.Get("assertion") != "ok" {
		fmt.Fprintf(w, "<html><head>%s</head><body>try again</body></html>", transactionMarker)
		return
	}

	e.validServiceToken = "svc-" + strconv.Itoa(e.callbackPosts)
	http.SetCookie(w, &http.Cookie{Name: "tg-visit", Value: e.validServiceToken, Path: "/"})
	fmt.Fprint(w, "<html><head><title>Home</title></head><body>Welcome alice!</body></html>")
}

func (e *fakeEnv) handleWhoami(w http.ResponseWriter, r *http.Request) {
	e.whoamiCalls++
	_ = r.ParseForm()
	e.lastWhoamiMethod = r.Method
	e.lastWhoamiQuery = r.URL.Query()
	e.lastWhoamiForm = r.PostForm
	e.lastWhoamiCookies = r.Cookies()

	if !e.authenticated(r) {
		fmt.Fprintf(w, "<html><head>%s</head><body>login needed</body></html>", transactionMarker)
		return
	}
	fmt.Fprint(w, `{"username": "alice"}`)
}

// newTestClient builds a Client against the fake environment. Tests adjust
// the config through mutate before construction.
func newTestClient(t *testing.T, env *fakeEnv, mutate func(*Config)) *Client {
	t.Helper()

	cfg := Config{
		BaseURL:         env.service.URL,
		ProviderBaseURL: env.provider.URL,
		Username:        "alice",
		DisableCache:    true,
		Logger:          slog.New(slog.DiscardHandler),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	client, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, client.Close()) })
	return client
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
