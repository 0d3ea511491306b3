package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitialize_FileOutput(t *testing.T) {
	t.Cleanup(func() {
		Logger = zap.NewNop()
		Sugar = Logger.Sugar()
	})

	path := filepath.Join(t.TempDir(), "connector.log")
	require.NoError(t, Initialize(Config{Level: "debug", Format: "json", Output: path}))

	Debug("dry-run complete", zap.Int("records", 3))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"dry-run complete"`)
	assert.Contains(t, string(data), `"records":3`)
}

func TestInitialize_LevelFilters(t *testing.T) {
	t.Cleanup(func() {
		Logger = zap.NewNop()
		Sugar = Logger.Sugar()
	})

	path := filepath.Join(t.TempDir(), "connector.log")
	require.NoError(t, Initialize(Config{Level: "warn", Format: "json", Output: path}))

	Info("hidden")
	Warn("shown")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestInitialize_BadLevelFallsBack(t *testing.T) {
	t.Cleanup(func() {
		Logger = zap.NewNop()
		Sugar = Logger.Sugar()
	})

	require.NoError(t, Initialize(Config{Level: "loud", Output: "stderr"}))
	assert.False(t, Logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, Logger.Core().Enabled(zap.WarnLevel))
}

func TestDefaultLoggerIsSilent(t *testing.T) {
	assert.NotNil(t, Logger)
	assert.NotPanics(t, func() { Debug("nothing") })
}
