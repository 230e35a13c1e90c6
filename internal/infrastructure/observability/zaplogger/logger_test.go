package zaplogger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pivend/vend/internal/observability"
)

func TestNewDuplicatesOutputToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "controller.log")
	t.Setenv(logFileEnv, path)

	l := New(observability.F("service", "vendtest"))
	l.Info("log_file_check", observability.F("slot_code", "A1"))
	if s, ok := l.(interface{ Sync() error }); ok {
		_ = s.Sync() // stdout sync may fail on some platforms; the file still flushes
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "log_file_check")
	assert.Contains(t, string(data), "vendtest")
}

func TestWithAddsPersistentFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "controller.log")
	t.Setenv(logFileEnv, path)

	l := New().With(observability.F("component", "dispenser"))
	l.Warn("jammed")
	if s, ok := l.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dispenser")
	assert.Contains(t, string(data), "jammed")
}
