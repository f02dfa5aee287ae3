package logging

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The log directory is resolved once per process, so one test drives the
// whole file-backed path under a scratch home.
func TestRunScopedFileLogging(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	first, err := NewLogger("browser")
	require.NoError(t, err)
	second, err := NewLogger("registry")
	require.NoError(t, err)

	assert.Equal(t, first.RunID(), second.RunID(), "components share the process run ID")
	assert.Equal(t, RunID(), first.RunID())
	assert.Equal(t, first.LogPath(), second.LogPath(), "components share the run's file")
	assert.Contains(t, first.LogPath(), first.RunID())

	first.Infof("session %q ready", "default")
	second.Warnf("probe timed out")
	first.Debugf("quiet window %dms", 500)
	first.Errorf("context close failed")

	data, err := os.ReadFile(first.LogPath())
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, `[browser] [INFO] session "default" ready`)
	assert.Contains(t, content, "[registry] [WARN] probe timed out")
	assert.Contains(t, content, "[browser] [DEBUG] quiet window 500ms")
	assert.Contains(t, content, "[browser] [ERROR] context close failed")

	require.NoError(t, first.Close())
	require.NoError(t, first.Close(), "close is idempotent")
	require.NoError(t, second.Close())
}

func TestLogEntryFormat(t *testing.T) {
	l := &Logger{component: "test"}
	entry := l.formatLogEntry("INFO", "hello")
	parts := strings.SplitN(entry, "] ", 3)
	require.Len(t, parts, 3)
	assert.Equal(t, "[test", parts[1])
	assert.Equal(t, "[INFO] hello", parts[2])
}
