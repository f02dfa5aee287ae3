package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// deviceFarmHosts identifies hosted browser grids that speak the playwright
// wire protocol but not CDP. Attaching to one uses the plain connect path
// and disables video recording, which those grids manage themselves.
var deviceFarmHosts = []string{
	"browserstack",
	"lambdatest",
	"saucelabs",
}

// attachPlaceholder is set on a reused blank tab when home navigation is
// disabled, so downstream consumers never observe a contextless about:blank.
const attachPlaceholder = `<html><head><title>stakeout</title></head><body></body></html>`

func isDeviceFarmEndpoint(endpoint string) bool {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, farm := range deviceFarmHosts {
		if strings.Contains(host, farm) {
			return true
		}
	}
	return false
}

// attachRemote connects to an already-running browser instead of launching
// one. Device farm endpoints use the playwright protocol; everything else
// attaches over CDP. An existing context and its busiest page are reused
// when present, so attaching to a developer's live browser picks up their
// current tab rather than spawning a new window.
func (c *Controller) attachRemote() error {
	endpoint := c.settings.Browser.RemoteEndpoint

	if isDeviceFarmEndpoint(endpoint) {
		return c.attachDeviceFarm(endpoint)
	}

	browser, err := c.pw.Chromium.ConnectOverCDP(endpoint)
	if err != nil {
		return fmt.Errorf("failed to attach to %s over CDP: %w", endpoint, err)
	}
	c.browser = browser

	if ctx := pickExistingContext(browser); ctx != nil {
		c.context = ctx
		c.recording = false
		c.adoptRemotePage(ctx)
		return nil
	}

	ctx, err := c.newRemoteContext(browser)
	if err != nil {
		browser.Close()
		c.browser = nil
		return err
	}
	c.context = ctx
	if _, err := ctx.NewPage(); err != nil {
		return fmt.Errorf("failed to open a page on the attached browser: %w", err)
	}
	return nil
}

// attachDeviceFarm connects to a hosted grid endpoint. Recording stays off;
// the grid records on its side.
func (c *Controller) attachDeviceFarm(endpoint string) error {
	browser, err := c.pw.Chromium.Connect(endpoint)
	if err != nil {
		return fmt.Errorf("failed to attach to device farm %s: %w", endpoint, err)
	}
	c.browser = browser

	ctx, err := browser.NewContext()
	if err != nil {
		browser.Close()
		c.browser = nil
		return fmt.Errorf("failed to create a context on device farm %s: %w", endpoint, err)
	}
	c.context = ctx
	c.recording = false
	if _, err := ctx.NewPage(); err != nil {
		return fmt.Errorf("failed to open a page on device farm %s: %w", endpoint, err)
	}
	return nil
}

// pickExistingContext returns the first context of an attached browser, or
// nil when the browser has none.
func pickExistingContext(browser playwright.Browser) playwright.BrowserContext {
	contexts := browser.Contexts()
	if len(contexts) == 0 {
		return nil
	}
	return contexts[0]
}

// newRemoteContext creates a fresh context on the attached browser. A fresh
// remote context can record video, unlike a reused one whose pages predate
// the attachment.
func (c *Controller) newRemoteContext(browser playwright.Browser) (playwright.BrowserContext, error) {
	opts := playwright.BrowserNewContextOptions{}
	if c.settings.Artifacts.Video {
		opts.RecordVideo = &playwright.RecordVideo{Dir: c.paths.video()}
		c.recording = true
	}
	ctx, err := browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create a context on the attached browser: %w", err)
	}
	return ctx, nil
}

// adoptRemotePage selects the page attachment will continue on: the first
// page with a real URL wins, otherwise the first page. A blank adopted page
// gets placeholder content when home navigation is disabled, and the choice
// is logged so reuse of a live tab is never silent.
func (c *Controller) adoptRemotePage(ctx playwright.BrowserContext) {
	pages := ctx.Pages()
	if len(pages) == 0 {
		if _, err := ctx.NewPage(); err != nil {
			c.log.Warnf("attach: failed to open a page on the reused context: %v", err)
		}
		return
	}

	adopted := pages[0]
	for _, page := range pages {
		if !isBlankURL(page.URL()) {
			adopted = page
			break
		}
	}
	c.log.Infof("attach: adopted existing page %s (%d open)", adopted.URL(), len(pages))

	if isBlankURL(adopted.URL()) && !c.settings.Browser.NavigateOnAttach {
		if err := adopted.SetContent(attachPlaceholder); err != nil {
			c.log.Warnf("attach: failed to set placeholder content: %v", err)
		}
	}
}

func isBlankURL(u string) bool {
	return u == "" || u == "about:blank"
}
