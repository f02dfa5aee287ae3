package browser

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/stakeout/pkg/config"
	"github.com/entrhq/stakeout/pkg/logging"
)

// Manager is the package's front door. It owns the engine process, the
// session registry, and the run-scoped logger; every operation takes an
// optional stake key, where the empty string addresses the default session.
type Manager struct {
	mu          sync.Mutex
	settings    config.Settings
	pw          *playwright.Playwright
	registry    *Registry
	log         *logging.Logger
	initialized bool
}

// NewManager creates a manager from settings. No browser work happens until
// Initialize.
func NewManager(settings config.Settings) *Manager {
	log, _ := logging.NewLogger("browser") // falls back to stderr on error
	return &Manager{
		settings: settings,
		log:      log,
	}
}

// Initialize installs browser binaries if needed and starts the engine
// driver. Idempotent. Driver output is discarded so it never corrupts the
// caller's terminal.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install browser engine: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start browser engine: %w", err)
	}

	paths, err := newArtifactPaths(m.settings.Artifacts.Dir)
	if err != nil {
		pw.Stop()
		return err
	}

	m.pw = pw
	m.registry = newRegistry(m.settings, pw, paths, m.log)
	m.initialized = true
	m.log.Infof("manager: engine started, run %s", m.log.RunID())
	return nil
}

func (m *Manager) session(stake string) (*Controller, error) {
	m.mu.Lock()
	registry := m.registry
	m.mu.Unlock()
	if registry == nil {
		return nil, fmt.Errorf("browser: manager not initialized")
	}
	return registry.GetOrCreate(stake)
}

// GetCurrentPage returns a live page for the stake's session, creating the
// session on first use. With forceNew the page is always a fresh tab.
func (m *Manager) GetCurrentPage(stake string, forceNew bool) (playwright.Page, error) {
	ctrl, err := m.session(stake)
	if err != nil {
		return nil, err
	}
	return ctrl.CurrentPage(forceNew)
}

// Navigate drives the stake's current page to a URL and waits for the
// document to commit.
func (m *Manager) Navigate(stake, url string) error {
	page, err := m.GetCurrentPage(stake, false)
	if err != nil {
		return err
	}
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// WaitForPageLoad blocks until the stake's page reaches network stability or
// the ceiling elapses. Advisory: it never fails the caller.
func (m *Manager) WaitForPageLoad(stake string, timeout time.Duration) {
	ctrl, err := m.session(stake)
	if err != nil {
		m.log.Warnf("page load wait: %v", err)
		return
	}
	ctrl.WaitForPageLoad(timeout)
}

// FindElement resolves a selector on the stake's current page, descending
// into shadow roots and same-origin frames. A missing element is (nil, nil).
func (m *Manager) FindElement(stake, selector string) (playwright.ElementHandle, error) {
	page, err := m.GetCurrentPage(stake, false)
	if err != nil {
		return nil, err
	}
	return FindElement(page, selector)
}

// IsElementPresent reports whether a selector currently matches, with the
// same deep traversal as FindElement.
func (m *Manager) IsElementPresent(stake, selector string) (bool, error) {
	page, err := m.GetCurrentPage(stake, false)
	if err != nil {
		return false, err
	}
	return isElementPresent(page, selector)
}

// TakeScreenshot captures the stake's current page into the artifact
// inventory. Capture failures are logged outcomes, never errors; only
// session acquisition can fail the caller.
func (m *Manager) TakeScreenshot(stake, name string, opts ScreenshotOptions) error {
	ctrl, err := m.session(stake)
	if err != nil {
		return err
	}
	page, err := ctrl.CurrentPage(false)
	if err != nil {
		return err
	}
	logOutcome(m.log, ctrl.Capture().takeScreenshot(page, name, opts.FullPage, opts.IncludeTimestamp))
	return nil
}

// CaptureElementBoundingBoxScreenshot finds an element and captures the page
// with the element's bounding box and a metadata panel drawn over it.
// Capture failures, including a selector that matches nothing, are logged
// outcomes, never errors.
func (m *Manager) CaptureElementBoundingBoxScreenshot(stake, selector, name string) error {
	const op = "element bounding-box screenshot"
	ctrl, err := m.session(stake)
	if err != nil {
		return err
	}
	page, err := ctrl.CurrentPage(false)
	if err != nil {
		return err
	}
	element, err := FindElement(page, selector)
	if err != nil {
		logOutcome(m.log, Failed(op, err))
		return nil
	}
	logOutcome(m.log, ctrl.Capture().captureElementWithBox(page, element, selector, name))
	return nil
}

// CloseExtraTabs closes every tab of the stake's session except the current
// one.
func (m *Manager) CloseExtraTabs(stake string) error {
	ctrl, err := m.session(stake)
	if err != nil {
		return err
	}
	page, err := ctrl.CurrentPage(false)
	if err != nil {
		return err
	}
	ctrl.CloseExtraTabs(page)
	return nil
}

// SubscribeDomChanges registers a callback for the stake's mutation batches.
func (m *Manager) SubscribeDomChanges(stake string, cb DomChangeCallback) (*DomSubscription, error) {
	ctrl, err := m.session(stake)
	if err != nil {
		return nil, err
	}
	return ctrl.SubscribeDomChanges(cb), nil
}

// UnsubscribeDomChanges removes a mutation callback from the stake's session.
func (m *Manager) UnsubscribeDomChanges(stake string, sub *DomSubscription) error {
	ctrl, err := m.session(stake)
	if err != nil {
		return err
	}
	ctrl.UnsubscribeDomChanges(sub)
	return nil
}

// SetViewport resizes the stake's current page.
func (m *Manager) SetViewport(stake string, width, height int) error {
	ctrl, err := m.session(stake)
	if err != nil {
		return err
	}
	return ctrl.SetViewport(width, height)
}

// SetGeolocation emulates a position on the stake's context.
func (m *Manager) SetGeolocation(stake string, geo Geolocation) error {
	ctrl, err := m.session(stake)
	if err != nil {
		return err
	}
	return ctrl.SetGeolocation(geo)
}

// SetColorScheme applies a preferred color scheme to the stake's page.
func (m *Manager) SetColorScheme(stake, scheme string) error {
	ctrl, err := m.session(stake)
	if err != nil {
		return err
	}
	return ctrl.SetColorScheme(scheme)
}

// SetLocale changes the stake's locale, recreating its context.
func (m *Manager) SetLocale(stake, locale string) error {
	ctrl, err := m.session(stake)
	if err != nil {
		return err
	}
	return ctrl.SetLocale(locale)
}

// SetTimezone changes the stake's timezone, recreating its context.
func (m *Manager) SetTimezone(stake, timezone string) error {
	ctrl, err := m.session(stake)
	if err != nil {
		return err
	}
	return ctrl.SetTimezone(timezone)
}

// Artifacts returns the stake's artifact inventory without creating a
// session.
func (m *Manager) Artifacts(stake string) (SessionArtifacts, error) {
	m.mu.Lock()
	registry := m.registry
	m.mu.Unlock()
	if registry == nil {
		return SessionArtifacts{}, fmt.Errorf("browser: manager not initialized")
	}
	ctrl, err := registry.Get(stake)
	if err != nil {
		return SessionArtifacts{}, err
	}
	return ctrl.Artifacts(), nil
}

// LastScreenshot returns the bytes of the stake's most recent capture, nil
// when nothing has been captured.
func (m *Manager) LastScreenshot(stake string) ([]byte, error) {
	m.mu.Lock()
	registry := m.registry
	m.mu.Unlock()
	if registry == nil {
		return nil, fmt.Errorf("browser: manager not initialized")
	}
	ctrl, err := registry.Get(stake)
	if err != nil {
		return nil, err
	}
	return ctrl.Capture().lastScreenshot(), nil
}

// Stakes lists the open session keys.
func (m *Manager) Stakes() []string {
	m.mu.Lock()
	registry := m.registry
	m.mu.Unlock()
	if registry == nil {
		return nil
	}
	return registry.Stakes()
}

// CloseSession tears down one session. Closing the default session promotes
// another open session to default.
func (m *Manager) CloseSession(stake string) {
	m.mu.Lock()
	registry := m.registry
	m.mu.Unlock()
	if registry != nil {
		registry.Close(stake)
	}
}

// CloseAllSessions tears down every session but leaves the engine running.
func (m *Manager) CloseAllSessions() {
	m.mu.Lock()
	registry := m.registry
	m.mu.Unlock()
	if registry != nil {
		registry.CloseAll()
	}
}

// Shutdown closes every session, stops the engine driver, and closes the
// run log. The manager cannot be reused afterwards.
func (m *Manager) Shutdown() {
	m.CloseAllSessions()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pw != nil {
		if err := m.pw.Stop(); err != nil {
			m.log.Errorf("manager: engine stop: %v", err)
		}
		m.pw = nil
	}
	m.initialized = false
	m.log.Infof("manager: shut down")
	m.log.Close()
}
