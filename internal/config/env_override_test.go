package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("PYRUN_PYTHON replaces binary", func(t *testing.T) {
		t.Setenv("PYRUN_PYTHON", "/opt/py/bin/python")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/opt/py/bin/python", cfg.Python.Binary)
		assert.Equal(t, []string{"-u"}, cfg.Python.Args)
	})

	t.Run("directories", func(t *testing.T) {
		t.Setenv("PYRUN_STAGING_DIR", "/tmp/stage")
		t.Setenv("PYRUN_STATE_DIR", "/tmp/state")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/stage", cfg.Staging.Dir)
		assert.Equal(t, "/tmp/state", cfg.StateDir)
		assert.Equal(t, filepath.Join("/tmp/state", "history.db"), cfg.HistoryPath())
	})

	t.Run("debug and level", func(t *testing.T) {
		t.Setenv("PYRUN_DEBUG", "true")
		t.Setenv("PYRUN_LOG_LEVEL", "DEBUG")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Logging.DebugMode)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("unparseable booleans are ignored", func(t *testing.T) {
		t.Setenv("PYRUN_DEBUG", "maybe")
		t.Setenv("PYRUN_HISTORY", "nah")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.False(t, cfg.Logging.DebugMode)
		assert.True(t, cfg.History.Enabled)
	})

	t.Run("history can be disabled", func(t *testing.T) {
		t.Setenv("PYRUN_HISTORY", "0")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.False(t, cfg.History.Enabled)
	})
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("python:\n  binary: from-file\n"), 0644))
	t.Setenv("PYRUN_PYTHON", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Python.Binary)
}
