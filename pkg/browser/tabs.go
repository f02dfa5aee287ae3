package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/stakeout/pkg/logging"
)

// tabManager selects an existing tab to reuse or creates a new one.
//
// Reuse prefers the most recently opened tab: device-farm and remote-attach
// scenarios frequently present a single long-lived tab that must not be
// abandoned, while local launches may accumulate stale tabs from prior
// failed interactions. Probing is strictly sequential from most to least
// recent so the decision is deterministic and explainable from logs.
type tabManager struct {
	settleTimeout time.Duration
	probeTimeout  time.Duration
	log           *logging.Logger
}

func newTabManager(log *logging.Logger) *tabManager {
	return &tabManager{
		settleTimeout: DefaultSettleTimeout,
		probeTimeout:  DefaultProbeTimeout,
		log:           log,
	}
}

// reuseOrCreate returns a usable tab. With forceNew, or when no tabs exist,
// a fresh tab is created. Otherwise candidates are probed newest-first and
// the first responsive one wins; if every existing tab is unresponsive a
// brand-new tab is the final fallback.
func (m *tabManager) reuseOrCreate(host tabHost, forceNew bool) (enginePage, error) {
	tabs := host.Tabs()

	if forceNew || len(tabs) == 0 {
		tab, err := host.NewTab()
		if err != nil {
			return nil, fmt.Errorf("failed to create tab: %w", err)
		}
		return tab, nil
	}

	// Most recently opened first.
	newest := tabs[len(tabs)-1]
	m.settle(newest)
	if m.probe(newest) {
		m.front(newest)
		return newest, nil
	}
	if m.log != nil {
		m.log.Warnf("tab manager: newest tab %s unresponsive, probing older tabs", newest.URL())
	}

	for i := len(tabs) - 2; i >= 0; i-- {
		candidate := tabs[i]
		if m.probe(candidate) {
			m.front(candidate)
			return candidate, nil
		}
	}

	if m.log != nil {
		m.log.Warnf("tab manager: all %d tabs unresponsive, creating a new tab", len(tabs))
	}
	tab, err := host.NewTab()
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback tab: %w", err)
	}
	return tab, nil
}

// settle gives a candidate tab a bounded chance to quiet down before the
// probe: a short network-quiet wait, falling back to DOM ready when the
// quiet wait itself errors. Failures here are not disqualifying.
func (m *tabManager) settle(tab enginePage) {
	timeout := playwright.Float(float64(m.settleTimeout.Milliseconds()))
	err := tab.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: timeout,
	})
	if err != nil {
		_ = tab.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateDomcontentloaded,
			Timeout: timeout,
		})
	}
}

// probe evaluates a trivial expression to check the tab's script engine is
// alive. Evaluate has no per-call timeout in the engine binding, so the
// call races a timer; a hung evaluation counts as unresponsive.
func (m *tabManager) probe(tab enginePage) bool {
	if tab.IsClosed() {
		return false
	}

	done := make(chan bool, 1)
	go func() {
		_, err := tab.Evaluate("1 + 1")
		done <- err == nil
	}()

	select {
	case ok := <-done:
		return ok
	case <-time.After(m.probeTimeout):
		return false
	}
}

// front brings the chosen tab forward. Best effort; some remote endpoints
// reject it.
func (m *tabManager) front(tab enginePage) {
	if err := tab.BringToFront(); err != nil {
		logOutcome(m.log, Failed("bring tab to front", err))
	}
}
