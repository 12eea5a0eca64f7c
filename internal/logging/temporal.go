// internal/logging/temporal.go
package logging

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// temporalLogger adapts Logger to the Temporal SDK log interface.
type temporalLogger struct {
	sugar *zap.SugaredLogger
}

// NewTemporalLogger returns a Temporal SDK logger backed by l.
func NewTemporalLogger(l *Logger) log.Logger {
	// The SDK reports its own caller, so skip ours.
	return &temporalLogger{
		sugar: l.zap.WithOptions(zap.WithCaller(false)).Sugar(),
	}
}

func (t *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	t.sugar.Debugw(msg, keyvals...)
}

func (t *temporalLogger) Info(msg string, keyvals ...interface{}) {
	t.sugar.Infow(msg, keyvals...)
}

func (t *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	t.sugar.Warnw(msg, keyvals...)
}

func (t *temporalLogger) Error(msg string, keyvals ...interface{}) {
	t.sugar.Errorw(msg, keyvals...)
}
