package openidauth_test

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedora-infra/openidclient/pkg/openidauth"
	"github.com/fedora-infra/openidclient/pkg/slogx"
)

const marker = "<title>OpenID transaction in progress</title>"

// fakeProvider plays the identity provider. It threads the openid.return_to
// field through its forms the way a real provider does, so any number of
// services can share it.
type fakeProvider struct {
	srv *httptest.Server

	validToken      string
	credentialPosts int
	consentPosts    int
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{}

	mux := http.NewServeMux()
	mux.HandleFunc("/openid/login", p.handleLogin)
	mux.HandleFunc("/openid/password", p.handleCredentials)
	mux.HandleFunc("/openid/consent", p.handleConsent)
	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)

	return p
}

func (p *fakeProvider) handleLogin(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	returnTo := r.PostForm.Get("openid.return_to")

	if c, err := r.Cookie("FAS_OPENID"); err == nil && p.validToken != "" && c.Value == p.validToken {
		p.writeConsentForm(w, returnTo)
		return
	}
	fmt.Fprintf(w, `<html><head><title>Provider login</title></head><body>
<form action="/openid/password" method="post">
<input type="text" name="username" value="">
<input type="password" name="password">
<input type="hidden" name="openid.return_to" value="%s">
<input type="submit" name="login" value="Log in">
</form></body></html>`, returnTo)
}

func (p *fakeProvider) handleCredentials(w http.ResponseWriter, r *http.Request) {
	p.credentialPosts++
	_ = r.ParseForm()

	p.validToken = "prov-" + strconv.Itoa(p.credentialPosts)
	http.SetCookie(w, &http.Cookie{Name: "FAS_OPENID", Value: p.validToken, Path: "/"})
	p.writeConsentForm(w, r.PostForm.Get("openid.return_to"))
}

func (p *fakeProvider) writeConsentForm(w http.ResponseWriter, returnTo string) {
	fmt.Fprintf(w, `<html><head><title>Confirm</title></head><body>
<form action="/openid/consent" method="post">
<input type="hidden" name="openid.return_to" value="%s">
<input type="submit" name="decided_allow" value="Approve">
<input type="submit" name="decided_deny" value="Deny">
</form></body></html>`, returnTo)
}

func (p *fakeProvider) handleConsent(w http.ResponseWriter, r *http.Request) {
	p.consentPosts++
	_ = r.ParseForm()

	fmt.Fprintf(w, `<html><head><title>Returning</title></head><body>
<form action="%s" method="post">
<input type="hidden" name="assertion" value="ok">
<input type="submit" value="Continue">
</form></body></html>`, r.PostForm.Get("openid.return_to"))
}

// fakeService plays one web service that delegates its logins to a
// fakeProvider. name keeps the tokens of parallel services distinct.
type fakeService struct {
	name     string
	srv      *httptest.Server
	provider *fakeProvider

	validToken    string
	issuedTokens  int
	loginGets     int
	groupAPICalls int
}

func newFakeService(t *testing.T, provider *fakeProvider, name string) *fakeService {
	t.Helper()
	s := &fakeService{name: name, provider: provider}

	mux := http.NewServeMux()
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/callback", s.handleCallback)
	mux.HandleFunc("/api/groups", s.handleGroups)
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)

	return s
}

// expireSessions drops every session the service has issued, emulating
// server-side expiry.
func (s *fakeService) expireSessions() {
	s.validToken = ""
}

func (s *fakeService) authenticated(r *http.Request) bool {
	c, err := r.Cookie("tg-visit")
	return err == nil && s.validToken != "" && c.Value == s.validToken
}

func (s *fakeService) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.loginGets++
	if s.authenticated(r) {
		fmt.Fprint(w, "<html><head><title>Home</title></head><body>Welcome back!</body></html>")
		return
	}
	fmt.Fprintf(w, `<html><head>%s</head><body onload="document.forms[0].submit()">
<form action="%s/openid/login" method="post">
<input type="hidden" name="openid.mode" value="checkid_setup">
<input type="hidden" name="openid.return_to" value="%s/callback">
<input type="submit" value="Continue">
</form></body></html>`, marker, s.provider.srv.URL, s.srv.URL)
}

func (s *fakeService) handleCallback(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	if r.PostForm.Get("assertion") != "ok" {
		fmt.Fprintf(w, "<html><head>%s</head><body>try again</body></html>", marker)
		return
	}

	s.issuedTokens++
	s.validToken = s.name + "-session-" + strconv.Itoa(s.issuedTokens)
	http.SetCookie(w, &http.Cookie{Name: "tg-visit", Value: s.validToken, Path: "/"})
	fmt.Fprint(w, "<html><head><title>Home</title></head><body>Welcome alice!</body></html>")
}

func (s *fakeService) handleGroups(w http.ResponseWriter, r *http.Request) {
	s.groupAPICalls++
	if !s.authenticated(r) {
		fmt.Fprintf(w, "<html><head>%s</head><body>login needed</body></html>", marker)
		return
	}
	fmt.Fprint(w, `["sysadmin-main","packager"]`)
}

// newClient builds a client for the given service and session cache file.
func newClient(t *testing.T, service *fakeService, cachePath string) *openidauth.Client {
	t.Helper()

	client, err := openidauth.New(openidauth.Config{
		BaseURL:         service.srv.URL,
		ProviderBaseURL: service.provider.srv.URL,
		Username:        "alice",
		CachePath:       cachePath,
		Logger:          discardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, client.Close()) })
	return client
}

func discardLogger() *slog.Logger {
	return slogx.New(slogx.Config{Service: "openidclient-e2e", Level: "error", Output: io.Discard})
}
