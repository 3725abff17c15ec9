package slogx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := loggerFrom(ctx)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithAttemptID derives a contextual logger tagged with a correlation id for
// one multi-request operation (such as a login sequence) and stores it back
// in the context.
func WithAttemptID(ctx context.Context, attemptID string) context.Context {
	l := FromContext(ctx)
	return WithContext(ctx, l.With("attempt_id", attemptID))
}

func loggerFrom(ctx context.Context) (*slog.Logger, bool) {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	return l, ok
}
