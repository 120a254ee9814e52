package logger

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
	trackKey     contextKey = "track"
)

// tracker lets an outer middleware see the user id an inner one resolved.
type tracker struct {
	userID string
}

var base = newLogger("info", false)

func newLogger(level string, json bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// Init replaces the process logger. JSON output is used in production.
func Init(level string, production bool) {
	base = newLogger(level, production)
}

func L() *logrus.Logger {
	return base
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func WithUserID(ctx context.Context, id string) context.Context {
	if t, ok := ctx.Value(trackKey).(*tracker); ok {
		t.userID = id
	}
	return context.WithValue(ctx, userIDKey, id)
}

// Track returns a context in which later WithUserID calls are recorded, so
// that TrackedUserID on it reports them after the request is handled.
func Track(ctx context.Context) context.Context {
	return context.WithValue(ctx, trackKey, &tracker{})
}

func TrackedUserID(ctx context.Context) string {
	if t, ok := ctx.Value(trackKey).(*tracker); ok {
		return t.userID
	}
	return ""
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithContext returns an entry tagged with whatever request scoped ids the
// context carries.
func WithContext(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{}
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		fields["request_id"] = id
	}
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		fields["user_id"] = id
	}
	return base.WithFields(fields)
}
