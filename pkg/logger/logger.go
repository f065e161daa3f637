package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// redactedKeys never reach the log sink with their value. Transcripts and analysis text are
// customer data; credentials are credentials.
var redactedKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"transcript":    {},
	"authorization": {},
	"access_token":  {},
	"refresh_token": {},
	"api_key":       {},
	"dsn":           {},
}

const redacted = "[REDACTED]"

// New returns a JSON structured logger writing to stdout.
func New(appEnv string) *slog.Logger {
	return NewWithWriter(os.Stdout, appEnv)
}

// NewWithWriter is New with an explicit sink; debug level for local and dev.
func NewWithWriter(w io.Writer, appEnv string) *slog.Logger {
	level := slog.LevelInfo
	if appEnv == "local" || appEnv == "dev" {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redact,
	})
	return slog.New(h).With("service", "callnotes")
}

func redact(groups []string, a slog.Attr) slog.Attr {
	if _, ok := redactedKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
