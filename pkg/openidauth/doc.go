/*
Package openidauth logs a client into web services that delegate
authentication to an OpenID identity provider, and sends requests on the
resulting session.

# Overview

Services in this family never see a password. When a client needs to log
in, the service hands it an HTML form addressed to the identity provider;
the provider authenticates the user, asks for consent, and hands back
another form addressed to the service. A browser plays this game invisibly
through auto-submitting forms. This package plays it explicitly: it walks
the forms, fills in credentials where the provider asks for them, and keeps
the session cookies the dance produces.

Sessions are cached in memory and, for named users, in a sqlite file shared
by every client of the same account, so short-lived processes reuse
sessions instead of logging in on every run.

# Logging In

Create a Client with the service's base URL, then Login:

	client, err := openidauth.New(openidauth.Config{
		BaseURL:  "https://admin.fedoraproject.org/accounts",
		Username: "alice",
	})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	resp, err := client.Login(ctx, "", "secret", "")

Login is cheap when the cached session still works: the service answers the
first request with regular content and no provider traffic happens. Only a
stale or missing session triggers the full walk.

# Sending Requests

SendRequest addresses the service relative to the configured base URL:

	resp, err := client.SendRequest(ctx, openidauth.Request{
		Path: "user/view",
		Verb: "POST",
		Auth: true,
		Params: url.Values{"username": {"alice"}},
	})

Auth attaches the cached session tokens as cookies. When the service
answers an authenticated request with the provider's login page instead of
service output, SendRequest drops the stale token and fails with
LoginRequiredError; the caller logs in again and repeats the call:

	resp, err := client.SendRequest(ctx, req)
	var loginErr *openidauth.LoginRequiredError
	if errors.As(err, &loginErr) {
		if _, err := client.Login(ctx, "", password, ""); err != nil {
			return err
		}
		resp, err = client.SendRequest(ctx, req)
	}

The client never performs that retry itself: it holds session tokens, not
credentials.

# Error Handling

Failures carry types that say what the caller can do about them:

  - LoginRequiredError: session expired or absent; log in and repeat.
  - ProtocolError: the service or provider served a page the walk cannot
    drive; inspect State and Step.
  - RequestError: the network failed for every attempt in the retry
    budget; wraps the last transport error.
  - UnsupportedVerbError: the Request named an HTTP verb the client does
    not implement.

Transport failures are retried according to Config.Retries; HTTP error
statuses are never retried and come back as ordinary Responses.

# Concurrency

A Client is not safe for concurrent use. It models one browsing session:
the login walk mutates a shared cookie jar, and the session cache is
unlocked. Use one Client per goroutine. Sequential calls on one Client,
including across Login and SendRequest, are the intended shape.
*/
package openidauth
