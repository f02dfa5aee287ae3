package browser

import (
	"errors"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTab struct {
	url       string
	closed    bool
	evalErr   error
	evalDelay time.Duration
	fronted   bool
	probes    int
}

func (f *fakeTab) Evaluate(expression string, arg ...interface{}) (interface{}, error) {
	f.probes++
	if f.evalDelay > 0 {
		time.Sleep(f.evalDelay)
	}
	if f.evalErr != nil {
		return nil, f.evalErr
	}
	return 2, nil
}

func (f *fakeTab) WaitForLoadState(options ...playwright.PageWaitForLoadStateOptions) error {
	return nil
}

func (f *fakeTab) URL() string         { return f.url }
func (f *fakeTab) IsClosed() bool      { return f.closed }
func (f *fakeTab) BringToFront() error { f.fronted = true; return nil }

type fakeHost struct {
	tabs    []enginePage
	created int
	newErr  error
}

func (h *fakeHost) Tabs() []enginePage { return h.tabs }

func (h *fakeHost) NewTab() (enginePage, error) {
	if h.newErr != nil {
		return nil, h.newErr
	}
	h.created++
	tab := &fakeTab{url: "about:blank"}
	h.tabs = append(h.tabs, tab)
	return tab, nil
}

func testTabManager() *tabManager {
	return &tabManager{
		settleTimeout: 10 * time.Millisecond,
		probeTimeout:  50 * time.Millisecond,
	}
}

func TestReuseOrCreateEmptyHostCreates(t *testing.T) {
	host := &fakeHost{}
	tab, err := testTabManager().reuseOrCreate(host, false)
	require.NoError(t, err)
	require.NotNil(t, tab)
	assert.Equal(t, 1, host.created)
}

func TestReuseOrCreateForceNewAlwaysCreates(t *testing.T) {
	existing := &fakeTab{url: "https://example.com"}
	host := &fakeHost{tabs: []enginePage{existing}}

	tab, err := testTabManager().reuseOrCreate(host, true)
	require.NoError(t, err)
	assert.NotSame(t, existing, tab)
	assert.Equal(t, 1, host.created)
	assert.Zero(t, existing.probes, "existing tabs are not probed under forceNew")
}

func TestReuseOrCreatePrefersNewestResponsive(t *testing.T) {
	older := &fakeTab{url: "https://old.example.com"}
	newest := &fakeTab{url: "https://new.example.com"}
	host := &fakeHost{tabs: []enginePage{older, newest}}

	tab, err := testTabManager().reuseOrCreate(host, false)
	require.NoError(t, err)
	assert.Same(t, newest, tab.(*fakeTab))
	assert.True(t, newest.fronted)
	assert.Zero(t, older.probes)
	assert.Zero(t, host.created)
}

func TestReuseOrCreateFallsBackToOlderTab(t *testing.T) {
	responsive := &fakeTab{url: "https://a.example.com"}
	dead := &fakeTab{url: "https://b.example.com", evalErr: errors.New("target crashed")}
	closed := &fakeTab{url: "https://c.example.com", closed: true}
	host := &fakeHost{tabs: []enginePage{responsive, dead, closed}}

	tab, err := testTabManager().reuseOrCreate(host, false)
	require.NoError(t, err)
	assert.Same(t, responsive, tab.(*fakeTab))
	assert.Zero(t, host.created)
}

func TestReuseOrCreateAllDeadCreatesNew(t *testing.T) {
	dead1 := &fakeTab{evalErr: errors.New("gone")}
	dead2 := &fakeTab{closed: true}
	host := &fakeHost{tabs: []enginePage{dead1, dead2}}

	tab, err := testTabManager().reuseOrCreate(host, false)
	require.NoError(t, err)
	require.NotNil(t, tab)
	assert.Equal(t, 1, host.created)
}

func TestProbeTimesOutOnHungEvaluate(t *testing.T) {
	m := testTabManager()
	hung := &fakeTab{evalDelay: 500 * time.Millisecond}

	start := time.Now()
	ok := m.probe(hung)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 400*time.Millisecond, "probe must give up at its timeout")
}

func TestProbeClosedTabFailsWithoutEvaluating(t *testing.T) {
	closed := &fakeTab{closed: true}
	assert.False(t, testTabManager().probe(closed))
	assert.Zero(t, closed.probes)
}

func TestReuseOrCreateNewTabError(t *testing.T) {
	host := &fakeHost{newErr: errors.New("context closed")}
	_, err := testTabManager().reuseOrCreate(host, false)
	assert.Error(t, err)
}
