package browser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/stakeout/pkg/config"
)

func TestScreenshotFileName(t *testing.T) {
	now := time.Unix(1700000000, 123456789)
	assert.Equal(t, "login.png", screenshotFileName("login", false, now))
	assert.Equal(t, "login_1700000000123456789.png", screenshotFileName("login", true, now))
}

func TestTraceFileName(t *testing.T) {
	assert.Equal(t, "trace_1700000000.zip", traceFileName(time.Unix(1700000000, 500)))
}

func TestVideoFileName(t *testing.T) {
	assert.Equal(t, "example_com_checkout_default.webm",
		videoFileName("https://example.com/checkout", "default"))
}

func TestURLSlug(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/path?q=1", "example_com_path_q_1"},
		{"http://localhost:3000/", "localhost_3000"},
		{"about:blank", "about_blank"},
		{"", "page"},
		{"https://!!!", "page"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, urlSlug(tt.url), "slug of %q", tt.url)
	}
}

func TestURLSlugBoundsLength(t *testing.T) {
	long := "https://example.com/"
	for i := 0; i < 30; i++ {
		long += "segment/"
	}
	slug := urlSlug(long)
	assert.LessOrEqual(t, len(slug), 80)
	assert.NotContains(t, slug, "/")
}

func TestMoveFileAcrossDirectories(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	src := filepath.Join(srcDir, "recording.webm")
	dst := filepath.Join(dstDir, "final.webm")

	require.NoError(t, os.WriteFile(src, []byte("webm-bytes"), 0640))
	require.NoError(t, moveFile(src, dst))

	moved, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("webm-bytes"), moved)

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err), "source must be gone after the move")
}

func TestMoveFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := moveFile(filepath.Join(dir, "absent"), filepath.Join(dir, "out"))
	assert.Error(t, err)
}

func TestArtifactPathsLayout(t *testing.T) {
	root := t.TempDir()
	paths, err := newArtifactPaths(root)
	require.NoError(t, err)

	require.NoError(t, paths.ensure())
	for _, dir := range []string{paths.screenshots(), paths.video(), paths.trace()} {
		info, statErr := os.Stat(dir)
		require.NoError(t, statErr)
		assert.True(t, info.IsDir())
	}
}

func TestArtifactCaptureInventoryCopy(t *testing.T) {
	paths, err := newArtifactPaths(t.TempDir())
	require.NoError(t, err)

	capture := newArtifactCapture(config.Default().Artifacts, paths, "default", nil)
	capture.inventory.ScreenshotCount = 3
	capture.inventory.LastScreenshot = "/tmp/a.png"

	got := capture.artifacts()
	got.ScreenshotCount = 99
	assert.Equal(t, 3, capture.artifacts().ScreenshotCount, "artifacts() must return a copy")
}

func TestLastScreenshotReturnsCopy(t *testing.T) {
	paths, err := newArtifactPaths(t.TempDir())
	require.NoError(t, err)
	capture := newArtifactCapture(config.Default().Artifacts, paths, "default", nil)

	assert.Nil(t, capture.lastScreenshot())

	capture.lastBytes = []byte{1, 2, 3}
	got := capture.lastScreenshot()
	require.Equal(t, []byte{1, 2, 3}, got)

	got[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, capture.lastScreenshot(), "callers must not alias the cache")
}
