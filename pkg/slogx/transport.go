package slogx

import (
	"log/slog"
	"net/http"
	"time"
)

// Transport is an http.RoundTripper that logs every outgoing request at
// debug level. When the request context carries a contextual logger (see
// WithContext) that one is used, so multi-request operations keep their
// correlation attributes; otherwise it falls back to Logger.
type Transport struct {
	// Base performs the actual round trip. http.DefaultTransport when nil.
	Base http.RoundTripper

	// Logger is used for requests without a contextual logger.
	Logger *slog.Logger
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	logger := t.logger(req)

	resp, err := base.RoundTrip(req)
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		logger.Debug("http_request_error",
			"method", req.Method,
			"url", req.URL.String(),
			"duration_ms", durationMS,
			"error", err,
		)
		return nil, err
	}

	logger.Debug("http_request",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration_ms", durationMS,
	)
	return resp, nil
}

func (t *Transport) logger(req *http.Request) *slog.Logger {
	if l, ok := loggerFrom(req.Context()); ok {
		return l
	}
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}
