package browser

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/stakeout/pkg/config"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.zip")
	file, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(file)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, file.Close())
	return path
}

func TestUnzipTo(t *testing.T) {
	archive := writeZip(t, map[string]string{
		"manifest.json":     `{"name": "helper"}`,
		"scripts/inject.js": "console.log('hi')",
	})
	dir := filepath.Join(t.TempDir(), "out")

	require.NoError(t, unzipTo(archive, dir))

	manifest, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"name": "helper"}`, string(manifest))

	script, err := os.ReadFile(filepath.Join(dir, "scripts", "inject.js"))
	require.NoError(t, err)
	assert.Equal(t, "console.log('hi')", string(script))
}

func TestUnzipToRejectsEscapingEntries(t *testing.T) {
	archive := writeZip(t, map[string]string{
		"../escape.txt": "nope",
	})
	dir := filepath.Join(t.TempDir(), "out")

	err := unzipTo(archive, dir)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(filepath.Dir(dir), "escape.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func testController(t *testing.T) *Controller {
	t.Helper()
	paths, err := newArtifactPaths(t.TempDir())
	require.NoError(t, err)
	return newController("default", config.Default(), nil, paths, nil)
}

func TestProfileDirPersistentDefault(t *testing.T) {
	c := testController(t)

	dir, ephemeral, err := c.profileDir(false)
	require.NoError(t, err)
	assert.False(t, ephemeral)
	assert.Equal(t, filepath.Join(c.paths.root, "profiles", "default"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestProfileDirHonorsConfiguredDirectory(t *testing.T) {
	c := testController(t)
	custom := filepath.Join(t.TempDir(), "profile")
	c.settings.Browser.UserDataDir = custom

	dir, ephemeral, err := c.profileDir(false)
	require.NoError(t, err)
	assert.False(t, ephemeral)
	assert.Equal(t, custom, dir)
}

func TestProfileDirVideoIsEphemeral(t *testing.T) {
	c := testController(t)

	dir, ephemeral, err := c.profileDir(true)
	require.NoError(t, err)
	assert.True(t, ephemeral)
	assert.NotEqual(t, c.settings.Browser.UserDataDir, dir)
	t.Cleanup(func() { os.RemoveAll(dir) })
}

func TestPrepareExtensionUnpackedDirectory(t *testing.T) {
	c := testController(t)
	extDir := t.TempDir()

	dir, err := c.prepareExtension(extDir)
	require.NoError(t, err)
	assert.Equal(t, extDir, dir)
}

func TestPrepareExtensionZipBundle(t *testing.T) {
	c := testController(t)
	archive := writeZip(t, map[string]string{"manifest.json": "{}"})

	dir, err := c.prepareExtension(archive)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "manifest.json"))

	// Second call reuses the extracted cache.
	again, err := c.prepareExtension(archive)
	require.NoError(t, err)
	assert.Equal(t, dir, again)
}

func TestPrepareExtensionRejectsOtherFiles(t *testing.T) {
	c := testController(t)
	stray := filepath.Join(t.TempDir(), "ext.crx")
	require.NoError(t, os.WriteFile(stray, []byte("crx"), 0600))

	_, err := c.prepareExtension(stray)
	assert.Error(t, err)

	_, err = c.prepareExtension(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
