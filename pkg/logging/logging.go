// Package logging threads a structured logr.Logger through a
// context.Context, the way the teacher's controllers pull their logger
// from sigs.k8s.io/controller-runtime/pkg/log. This engine has no
// Kubernetes API server to borrow that package from, so the same idiom is
// reimplemented directly over go-logr/logr and go.uber.org/zap.
package logging

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

type contextKey struct{}

var rootLogger = logr.Discard()

// NewZapLogger builds the process's root logr.Logger over zap, matching
// the teacher's production/development split (JSON vs. console encoding).
func NewZapLogger(development bool) (logr.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	zl, err := cfg.Build()
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}

// SetRoot installs the process-wide fallback logger returned by
// FromContext when no logger has been attached to the context.
func SetRoot(l logr.Logger) {
	rootLogger = l
}

// IntoContext returns a new context with the logger attached.
func IntoContext(ctx context.Context, l logr.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger attached to ctx, or the process root
// logger if none was attached.
func FromContext(ctx context.Context) logr.Logger {
	if l, ok := ctx.Value(contextKey{}).(logr.Logger); ok {
		return l
	}
	return rootLogger
}
