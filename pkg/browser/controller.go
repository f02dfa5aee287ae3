package browser

import (
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/stakeout/pkg/config"
	"github.com/entrhq/stakeout/pkg/logging"
)

// Controller owns the full lifecycle of one browser context, from cold
// start to teardown, for a single stake. All mutating operations hold the
// controller mutex, so lifecycle phases never interleave; blocking engine
// calls happen while holding it, which matches the single-threaded
// cooperative model of a test run.
type Controller struct {
	mu    sync.Mutex
	state lifecycleState

	stake    string
	settings config.Settings
	pw       *playwright.Playwright
	log      *logging.Logger

	paths   artifactPaths
	tabs    *tabManager
	bridge  *mutationBridge
	capture *artifactCapture

	// browser is non-nil when this controller owns a Browser handle
	// (remote attach); persistent local launches own only the context.
	browser playwright.Browser
	context playwright.BrowserContext

	// recording / traceActive describe the current context, not the
	// configuration; a device-farm attach disables recording even when
	// video capture is configured on.
	recording   bool
	traceActive bool

	// hookedPages tracks pages with navigation handlers installed so the
	// observer is wired exactly once per page object.
	hookedPages map[playwright.Page]struct{}
}

func newController(stake string, settings config.Settings, pw *playwright.Playwright, paths artifactPaths, log *logging.Logger) *Controller {
	return &Controller{
		state:       stateUninitialized,
		stake:       stake,
		settings:    settings,
		pw:          pw,
		paths:       paths,
		log:         log,
		tabs:        newTabManager(log),
		bridge:      newMutationBridge(log),
		capture:     newArtifactCapture(settings.Artifacts, paths, stake, log),
		hookedPages: make(map[playwright.Page]struct{}),
	}
}

// Initialize brings the controller to Ready: creates the artifact
// directories, ensures a context exists, wires navigation handlers, and
// navigates to the configured home page. Idempotent: a Ready controller
// returns immediately. Only directory creation and context construction
// are fatal; every later step logs and continues.
func (c *Controller) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateReady:
		return nil
	case stateClosed:
		return ErrClosed
	}

	if err := c.transition(stateStarting); err != nil {
		return err
	}

	if err := c.paths.ensure(); err != nil {
		_ = c.transition(stateUninitialized)
		return err
	}

	if err := c.ensureContextLocked(); err != nil {
		_ = c.transition(stateUninitialized)
		return err
	}

	c.navigateHomeLocked()

	return c.transition(stateReady)
}

// ensureContextLocked creates a context if none exists, choosing remote
// attach when an endpoint is configured and local launch otherwise, then
// runs the post-construction steps shared by both strategies: cookie
// injection, tracing start, and mutation-bridge binding.
func (c *Controller) ensureContextLocked() error {
	if c.context != nil {
		return nil
	}

	var err error
	if c.settings.Browser.RemoteEndpoint != "" {
		err = c.attachRemote()
	} else {
		err = c.launchLocal()
	}
	if err != nil {
		return err
	}
	if c.context == nil {
		return ErrNoContext
	}

	logOutcome(c.log, injectCookies(c.context, c.settings.Browser.CookiesFile))

	if c.settings.Artifacts.Trace {
		if err := c.context.Tracing().Start(playwright.TracingStartOptions{
			Screenshots: playwright.Bool(true),
			Snapshots:   playwright.Bool(true),
			Title:       playwright.String(c.stake),
		}); err != nil {
			logOutcome(c.log, Failed("tracing start", err))
		} else {
			c.traceActive = true
			logOutcome(c.log, OK("tracing start"))
		}
	}

	if err := c.bridge.bind(c.context); err != nil {
		logOutcome(c.log, Degraded("mutation bridge bind", err.Error()))
	}
	for _, page := range c.context.Pages() {
		c.hookPageLocked(page)
	}
	if c.log != nil {
		c.log.Debugf("context for stake %q ready, injected scripts: %s", c.stake, injectedScriptVersions())
	}
	return nil
}

// hookPageLocked installs the navigation handlers that keep the mutation
// observer alive across navigations: reinstall on every committed top-frame
// navigation, and install into each newly attached frame.
func (c *Controller) hookPageLocked(page playwright.Page) {
	if _, ok := c.hookedPages[page]; ok {
		return
	}
	c.hookedPages[page] = struct{}{}

	page.OnDOMContentLoaded(func(p playwright.Page) {
		logOutcome(c.log, c.bridge.install(p))
	})
	page.OnFrameAttached(func(f playwright.Frame) {
		logOutcome(c.log, c.bridge.installFrame(f))
	})
	logOutcome(c.log, c.bridge.install(page))
}

// navigateHomeLocked navigates the current page to the configured home
// URL. Remote attaches skip this unless explicitly configured, preserving
// whatever state the attacher staged. Best effort.
func (c *Controller) navigateHomeLocked() {
	const op = "home navigation"
	if c.settings.Browser.RemoteEndpoint != "" && !c.settings.Browser.NavigateOnAttach {
		logOutcome(c.log, Degraded(op, "remote attach without navigate_on_attach"))
		return
	}
	home := c.settings.Browser.HomeURL
	if home == "" {
		return
	}
	page, err := c.currentPageLocked(false)
	if err != nil {
		logOutcome(c.log, Failed(op, err))
		return
	}
	if _, err := page.Goto(home, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		logOutcome(c.log, Failed(op, fmt.Errorf("goto %s: %w", home, err)))
		return
	}
	logOutcome(c.log, OK(op))
}

// CurrentPage returns a usable page, reusing an existing responsive tab or
// creating a new one. With forceNew the returned page is always freshly
// created.
func (c *Controller) CurrentPage(forceNew bool) (playwright.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPageLocked(forceNew)
}

func (c *Controller) currentPageLocked(forceNew bool) (playwright.Page, error) {
	if err := c.requireOpenLocked(); err != nil {
		return nil, err
	}
	tab, err := c.tabs.reuseOrCreate(contextTabs{ctx: c.context}, forceNew)
	if err != nil {
		return nil, err
	}
	page, ok := tab.(playwright.Page)
	if !ok {
		return nil, fmt.Errorf("browser: tab host returned non-engine page %T", tab)
	}
	c.hookPageLocked(page)
	return page, nil
}

// CloseExtraTabs closes every open tab except the given one. This is the
// only operation that ever closes tabs implicitly.
func (c *Controller) CloseExtraTabs(keep playwright.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.context == nil {
		return
	}
	for _, page := range c.context.Pages() {
		if page == keep {
			continue
		}
		if err := page.Close(); err != nil {
			logOutcome(c.log, Failed("close extra tab", err))
		}
	}
}

// WaitForPageLoad waits for the page's network activity to quiesce.
// Advisory: the result is logged, never raised, and the wait self-cancels
// at its absolute ceiling.
func (c *Controller) WaitForPageLoad(timeoutOverride time.Duration) {
	c.mu.Lock()
	page, err := c.currentPageLocked(false)
	cfg := c.stabilityConfigLocked()
	c.mu.Unlock()
	if err != nil {
		logOutcome(c.log, Failed("page load wait", err))
		return
	}
	if timeoutOverride > 0 {
		cfg.maxWait = timeoutOverride
	}
	logOutcome(c.log, waitForStableNetwork(page, cfg))
}

func (c *Controller) stabilityConfigLocked() stabilityConfig {
	n := c.settings.Network
	return newStabilityConfig(n.QuietMillis, n.MaxWaitMillis, n.PollMillis, n.DenyPatterns)
}

// SubscribeDomChanges registers a callback for parsed mutation batches.
func (c *Controller) SubscribeDomChanges(cb DomChangeCallback) *DomSubscription {
	return c.bridge.subscribe(cb)
}

// UnsubscribeDomChanges removes a previously registered callback.
func (c *Controller) UnsubscribeDomChanges(sub *DomSubscription) {
	c.bridge.unsubscribe(sub)
}

// SetViewport applies a viewport size to the current page in place.
func (c *Controller) SetViewport(width, height int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	page, err := c.currentPageLocked(false)
	if err != nil {
		return err
	}
	if err := page.SetViewportSize(width, height); err != nil {
		return fmt.Errorf("failed to set viewport %dx%d: %w", width, height, err)
	}
	c.settings.Emulation.ViewportWidth = width
	c.settings.Emulation.ViewportHeight = height
	return nil
}

// SetGeolocation applies an emulated position to the live context.
func (c *Controller) SetGeolocation(geo Geolocation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireOpenLocked(); err != nil {
		return err
	}
	if err := c.context.SetGeolocation(&playwright.Geolocation{
		Latitude:  geo.Latitude,
		Longitude: geo.Longitude,
	}); err != nil {
		return fmt.Errorf("failed to set geolocation: %w", err)
	}
	c.settings.Emulation.Latitude = &geo.Latitude
	c.settings.Emulation.Longitude = &geo.Longitude
	return nil
}

// SetColorScheme applies a color scheme to the current page in place.
func (c *Controller) SetColorScheme(scheme string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	page, err := c.currentPageLocked(false)
	if err != nil {
		return err
	}
	if err := page.EmulateMedia(playwright.PageEmulateMediaOptions{
		ColorScheme: colorSchemeOption(scheme),
	}); err != nil {
		return fmt.Errorf("failed to set color scheme %q: %w", scheme, err)
	}
	c.settings.Emulation.ColorScheme = scheme
	return nil
}

func colorSchemeOption(scheme string) *playwright.ColorScheme {
	switch scheme {
	case "dark":
		return playwright.ColorSchemeDark
	case "light":
		return playwright.ColorSchemeLight
	default:
		return playwright.ColorSchemeNoPreference
	}
}

// SetLocale updates the context locale. The engine cannot change locale on
// a live context, so every call recreates it.
func (c *Controller) SetLocale(locale string) error {
	c.mu.Lock()
	c.settings.Emulation.Locale = locale
	c.mu.Unlock()
	return c.Recreate()
}

// SetTimezone updates the context timezone, recreating the context like
// SetLocale.
func (c *Controller) SetTimezone(timezone string) error {
	c.mu.Lock()
	c.settings.Emulation.Timezone = timezone
	c.mu.Unlock()
	return c.Recreate()
}

// Recreate tears the current context down and builds a fresh one with the
// current settings, then re-navigates to home. Used when runtime-immutable
// emulation settings change.
func (c *Controller) Recreate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.transition(stateRecreating); err != nil {
		return err
	}
	c.closeContextLocked()
	if err := c.ensureContextLocked(); err != nil {
		_ = c.transition(stateClosed)
		return err
	}
	c.navigateHomeLocked()
	return c.transition(stateReady)
}

// Teardown finalizes recordings, exports the trace, and closes the context
// and any owned browser handle. Idempotent: the second call is a no-op and
// never raises.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return
	}
	c.closeContextLocked()
	if c.browser != nil {
		if err := c.browser.Close(); err != nil {
			logOutcome(c.log, Failed("browser close", err))
		}
		c.browser = nil
	}
	_ = c.transition(stateClosed)
}

// closeContextLocked runs the shared shutdown path for Recreate and
// Teardown: video finalization per recorded page, trace export, context
// close. Every step is best effort; the context is always closed last and
// the handle cleared.
func (c *Controller) closeContextLocked() {
	if c.context == nil {
		return
	}

	if c.recording {
		for _, page := range c.context.Pages() {
			logOutcome(c.log, c.capture.finalizeVideo(page))
		}
	}

	if c.traceActive {
		logOutcome(c.log, c.capture.exportTrace(c.context))
		c.traceActive = false
	}

	if err := c.context.Close(); err != nil {
		logOutcome(c.log, Failed("context close", err))
	}
	c.context = nil
	c.recording = false
	c.hookedPages = make(map[playwright.Page]struct{})
}

// Capture exposes the session's artifact capture.
func (c *Controller) Capture() *artifactCapture { return c.capture }

// Artifacts returns the session's artifact inventory.
func (c *Controller) Artifacts() SessionArtifacts { return c.capture.artifacts() }

// State returns the current lifecycle state name, for logs and tests.
func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.String()
}

func (c *Controller) requireOpenLocked() error {
	if c.state == stateClosed {
		return ErrClosed
	}
	if c.context == nil {
		return ErrNoContext
	}
	return nil
}
