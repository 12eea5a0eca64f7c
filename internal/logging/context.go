// internal/logging/context.go
package logging

import (
	"context"

	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field

	if org := OrgFromContext(ctx); org != "" {
		fields = append(fields, zap.String("org", org))
	}

	return fields
}

// orgCtxKey is the context key for the target organization.
type orgCtxKey struct{}

// WithOrg adds the target organization to context. Loggers pick it up
// through ContextFields on every call.
func WithOrg(ctx context.Context, org string) context.Context {
	return context.WithValue(ctx, orgCtxKey{}, org)
}

// OrgFromContext extracts the organization from context.
func OrgFromContext(ctx context.Context) string {
	if o, ok := ctx.Value(orgCtxKey{}).(string); ok {
		return o
	}
	return ""
}

// loggerCtxKey is the context key for Logger.
type loggerCtxKey struct{}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
