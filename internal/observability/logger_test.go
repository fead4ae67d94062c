package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akmonengine/ragdoll/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// -- Test Cases --

func TestInitialize(t *testing.T) {
	t.Run("should initialize console logger with colors", func(t *testing.T) {
		ResetForTest()
		var buf bytes.Buffer

		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "ragdoll",
			Colors:      config.ColorConfig{Info: "green"},
		}, zapcore.AddSync(&buf))
		GetLogger().Info("Skeleton assembled", zap.Int("bodies", 16))

		output := buf.String()
		assert.Contains(t, output, colorMap["green"]+"INFO"+colorReset)
		assert.Contains(t, output, "ragdoll.")
		assert.Contains(t, output, "Skeleton assembled")
		assert.Contains(t, output, "bodies")
	})

	t.Run("should initialize json logger", func(t *testing.T) {
		ResetForTest()
		var buf bytes.Buffer

		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "ragdoll"}, zapcore.AddSync(&buf))
		GetLogger().Named("limiter").Warn("Using fallback torque axis", zap.String("joint", "neck"))

		var logEntry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry), "Log output should be valid JSON")
		assert.Equal(t, "WARN", logEntry["level"])
		assert.Equal(t, "ragdoll.limiter", logEntry["logger"])
		assert.Equal(t, "neck", logEntry["joint"])
	})

	t.Run("should respect the level", func(t *testing.T) {
		ResetForTest()
		var buf bytes.Buffer

		Initialize(config.LoggerConfig{Level: "warn", Format: "json"}, zapcore.AddSync(&buf))
		GetLogger().Info("hidden")
		GetLogger().Debug("hidden")

		assert.Empty(t, buf.String())
	})

	t.Run("should fall back to info on an unknown level", func(t *testing.T) {
		ResetForTest()
		var buf bytes.Buffer

		Initialize(config.LoggerConfig{Level: "loud", Format: "json"}, zapcore.AddSync(&buf))
		GetLogger().Debug("hidden")
		GetLogger().Info("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("should write to a log file if configured", func(t *testing.T) {
		ResetForTest()
		logFile := filepath.Join(t.TempDir(), "ragdoll.log")
		var buf bytes.Buffer

		Initialize(config.LoggerConfig{Level: "debug", Format: "console", LogFile: logFile, MaxSize: 1}, zapcore.AddSync(&buf))
		GetLogger().Debug("to the file")
		Sync()

		content, err := os.ReadFile(logFile)
		require.NoError(t, err)
		line := strings.TrimSpace(string(content))
		var logEntry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &logEntry), "the file is always JSON")
		assert.Equal(t, "to the file", logEntry["msg"])
	})

	t.Run("should only initialize once", func(t *testing.T) {
		ResetForTest()
		var first, second bytes.Buffer

		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&first))
		Initialize(config.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&second))
		GetLogger().Info("once")

		assert.Contains(t, first.String(), "once")
		assert.Empty(t, second.String())
	})

	ResetForTest()
}

func TestGetLogger_BeforeInitialize(t *testing.T) {
	ResetForTest()

	logger := GetLogger()
	require.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.Info("dropped") })
	assert.NotPanics(t, Sync)
}
