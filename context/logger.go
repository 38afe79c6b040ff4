package context

import (
	"context"

	"github.com/sirupsen/logrus"
)

type contextkey string

const (
	loggerKey contextkey = "logger"
)

// ContextSetLogger binds a request-scoped log entry to ctx.
func ContextSetLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey, entry)
}

// ContextGetLogger returns the request-scoped log entry.
// Falls back to an entry on the standard logger if none is set,
// so callers never need a nil check.
func ContextGetLogger(ctx context.Context) *logrus.Entry {
	val := ctx.Value(loggerKey)
	entry, ok := val.(*logrus.Entry)
	if !ok {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return entry
}
