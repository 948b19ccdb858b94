package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"library-catalog/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("Production config by default", func(t *testing.T) {
		logger, err := newLogger(&config.Config{LogLevel: zapcore.InfoLevel})
		require.NoError(t, err)

		assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
		// DPanic only panics in development loggers
		assert.NotPanics(t, func() { logger.DPanic("test") })
	})

	t.Run("Debug level stays on the production config", func(t *testing.T) {
		logger, err := newLogger(&config.Config{LogLevel: zapcore.DebugLevel})
		require.NoError(t, err)

		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
		assert.NotPanics(t, func() { logger.DPanic("test") })
	})

	t.Run("Development config", func(t *testing.T) {
		logger, err := newLogger(&config.Config{LogLevel: zapcore.WarnLevel, Development: true})
		require.NoError(t, err)

		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.Panics(t, func() { logger.DPanic("test") })
	})
}
