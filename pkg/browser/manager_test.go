package browser

import (
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/stakeout/pkg/config"
	"github.com/entrhq/stakeout/pkg/logging"
)

// testManager wires a manager directly to an already-running driver so tests
// never trigger a binary download.
func testManager(t *testing.T, pw *playwright.Playwright) *Manager {
	t.Helper()
	log, _ := logging.NewLogger("manager-test")

	settings := config.Default()
	settings.Artifacts.Dir = t.TempDir()
	settings.Browser.UserDataDir = t.TempDir()
	settings.Browser.HomeURL = ""

	paths, err := newArtifactPaths(settings.Artifacts.Dir)
	require.NoError(t, err)

	m := &Manager{
		settings:    settings,
		pw:          pw,
		registry:    newRegistry(settings, pw, paths, log),
		log:         log,
		initialized: true,
	}
	t.Cleanup(m.CloseAllSessions)
	return m
}

func TestCaptureFailuresAreLoggedNotReturned(t *testing.T) {
	pw := startEngine(t)
	m := testManager(t, pw)

	page, err := m.GetCurrentPage("", false)
	require.NoError(t, err)
	require.NoError(t, page.SetContent(`<html><body><p id="ready">ready</p></body></html>`))

	// A selector matching nothing degrades; the caller never sees an error.
	assert.NoError(t, m.CaptureElementBoundingBoxScreenshot("", "#absent", "missing-element"))

	// A successful capture lands in the inventory.
	require.NoError(t, m.TakeScreenshot("", "ready", ScreenshotOptions{}))
	artifacts, err := m.Artifacts("")
	require.NoError(t, err)
	assert.Equal(t, 1, artifacts.ScreenshotCount)
	assert.NotEmpty(t, artifacts.LastScreenshot)
}

func TestManagerRequiresInitialization(t *testing.T) {
	m := NewManager(config.Default())
	_, err := m.GetCurrentPage("", false)
	assert.Error(t, err)
	// Session acquisition errors still surface, unlike capture failures.
	assert.Error(t, m.TakeScreenshot("", "x", ScreenshotOptions{}))
}
