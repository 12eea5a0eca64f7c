package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Run("creates logger with defaults", func(t *testing.T) {
		logger, err := NewLogger(NewDefaultConfig())
		require.NoError(t, err)
		require.NotNil(t, logger)

		assert.True(t, logger.Enabled(zapcore.InfoLevel))
		assert.False(t, logger.Enabled(zapcore.DebugLevel))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Format = "xml"
		_, err := NewLogger(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "format")
	})

	t.Run("debug level enables debug", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Level = zapcore.DebugLevel
		logger, err := NewLogger(cfg)
		require.NoError(t, err)
		assert.True(t, logger.Enabled(zapcore.DebugLevel))
	})
}

func TestContextFields(t *testing.T) {
	t.Run("empty context yields no fields", func(t *testing.T) {
		assert.Empty(t, ContextFields(context.Background()))
	})

	t.Run("extracts the organization", func(t *testing.T) {
		ctx := WithOrg(context.Background(), "acme-corp")

		fields := ContextFields(ctx)
		require.Len(t, fields, 1)
		assert.Equal(t, "org", fields[0].Key)
		assert.Equal(t, "acme-corp", fields[0].String)
	})
}

func TestFromContext(t *testing.T) {
	t.Run("returns nop logger when absent", func(t *testing.T) {
		logger := FromContext(context.Background())
		require.NotNil(t, logger)
	})

	t.Run("round trips through context", func(t *testing.T) {
		logger := NewNop()
		ctx := WithLogger(context.Background(), logger)
		assert.Same(t, logger, FromContext(ctx))
	})
}

func TestNewTemporalLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig())
	require.NoError(t, err)

	tl := NewTemporalLogger(logger)
	require.NotNil(t, tl)

	// Must not panic on keyval pairs.
	tl.Info("worker started", "task_queue", "packagebot-task-queue")
	tl.Error("activity failed", "attempt", 3)
}
