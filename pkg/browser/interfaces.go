package browser

import (
	"github.com/playwright-community/playwright-go"
)

// The interfaces below isolate the slices of the Playwright surface that
// lifecycle logic actually touches, so tab reuse, stability tracking and
// capture decisions are testable without a live browser. Real pages and
// contexts satisfy them structurally.

// enginePage is the page surface needed by the tab picker, the element
// resolver's presence check, and screenshot gating.
type enginePage interface {
	Evaluate(expression string, arg ...interface{}) (interface{}, error)
	WaitForLoadState(options ...playwright.PageWaitForLoadStateOptions) error
	URL() string
	IsClosed() bool
	BringToFront() error
}

// tabHost enumerates and creates tabs. The lifecycle controller adapts a
// playwright.BrowserContext to this; tests supply fakes.
type tabHost interface {
	Tabs() []enginePage
	NewTab() (enginePage, error)
}

// contextTabs adapts a live BrowserContext to tabHost. Pages() preserves
// the engine's open order, so the last entry is the most recently opened.
type contextTabs struct {
	ctx playwright.BrowserContext
}

func (c contextTabs) Tabs() []enginePage {
	pages := c.ctx.Pages()
	tabs := make([]enginePage, 0, len(pages))
	for _, p := range pages {
		tabs = append(tabs, p)
	}
	return tabs
}

func (c contextTabs) NewTab() (enginePage, error) {
	return c.ctx.NewPage()
}
