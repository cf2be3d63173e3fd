// Package logging provides structured logging with run/trace ID propagation
// for the migration core.
package logging

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	traceIDKey    contextKey = "trace_id"
	providerIDKey contextKey = "provider_id"

	// Redacted is substituted for any field that might carry token or
	// credential material. The Session Manager relies on this constant
	// rather than its own ad-hoc string so log scrapers have one pattern
	// to match on.
	Redacted = "[redacted]"
)

// Logger wraps *logrus.Logger with migration-core specific helpers.
type Logger struct {
	*logrus.Logger
	component string
}

// New builds a Logger for the named component ("orchestrator", "caller",
// "session", ...). level is a logrus level name; format is "json" or
// "text".
func New(component, level, format string) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	switch strings.ToLower(format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}

	return &Logger{Logger: l, component: component}
}

// NewFromEnv reads LOG_LEVEL / LOG_FORMAT from the environment, defaulting
// to info/text.
func NewFromEnv(component string) *Logger {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	format := os.Getenv("LOG_FORMAT")
	if format == "" {
		format = "text"
	}
	return New(component, level, format)
}

// WithContext returns a logrus.Entry carrying run_id/trace_id/provider_id
// extracted from ctx plus the component name.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{"component": l.component}
	if v := RunID(ctx); v != "" {
		fields["run_id"] = v
	}
	if v := TraceID(ctx); v != "" {
		fields["trace_id"] = v
	}
	if v := ProviderID(ctx); v != "" {
		fields["provider_id"] = v
	}
	return l.Logger.WithFields(fields)
}

// WithFields is a convenience passthrough that also stamps the component.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	fields["component"] = l.component
	return l.Logger.WithFields(fields)
}

// WithRunID returns a derived context carrying the run ID.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID extracts the run ID from ctx, or "" if absent.
func RunID(ctx context.Context) string {
	if v, ok := ctx.Value(runIDKey).(string); ok {
		return v
	}
	return ""
}

// WithTraceID returns a derived context carrying the trace ID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID extracts the trace ID from ctx, or "" if absent.
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// WithProviderID returns a derived context carrying the provider ID.
func WithProviderID(ctx context.Context, providerID string) context.Context {
	return context.WithValue(ctx, providerIDKey, providerID)
}

// ProviderID extracts the provider ID from ctx, or "" if absent.
func ProviderID(ctx context.Context) string {
	if v, ok := ctx.Value(providerIDKey).(string); ok {
		return v
	}
	return ""
}
