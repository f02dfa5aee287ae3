package browser

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/playwright-community/playwright-go"
)

// relevantResourceTypes is the allow-list of resource types that count
// toward page-load stability. Everything else (xhr polling, websockets,
// beacons, media) is background noise for load purposes.
var relevantResourceTypes = map[string]struct{}{
	"document":   {},
	"stylesheet": {},
	"image":      {},
	"font":       {},
	"script":     {},
	"iframe":     {},
}

// denySubstrings filters out analytics, tracking, chat widgets and
// streaming infrastructure whose requests never settle or never matter.
var denySubstrings = []string{
	"google-analytics",
	"googletagmanager",
	"doubleclick",
	"facebook.com/tr",
	"connect.facebook.net",
	"hotjar",
	"segment.io",
	"segment.com",
	"mixpanel",
	"amplitude",
	"intercom",
	"crisp.chat",
	"livechat",
	"drift.com",
	"zdassets",
	"zendesk",
	"sentry.io",
	"bugsnag",
	"newrelic",
	"nr-data.net",
	"datadoghq",
	"clarity.ms",
	"pusher.com",
	"ably.io",
	"firebaseio.com",
	"launchdarkly",
}

// discardContentTypes marks response payloads that never "complete" in the
// traditional sense; their arrival neither counts as activity nor keeps the
// pending set populated.
var discardContentTypes = []string{
	"text/event-stream",
	"video/",
	"audio/",
	"application/octet-stream",
	"application/grpc",
	"multipart/x-mixed-replace",
}

// discardSizeCeiling is the content-length above which a response is
// treated as streaming-class regardless of its content type.
const discardSizeCeiling = int64(5 << 20)

// stabilityConfig tunes one wait loop.
type stabilityConfig struct {
	quiet   time.Duration
	maxWait time.Duration
	poll    time.Duration
	deny    []glob.Glob
}

func defaultStabilityConfig() stabilityConfig {
	return stabilityConfig{
		quiet:   500 * time.Millisecond,
		maxWait: 15 * time.Second,
		poll:    100 * time.Millisecond,
	}
}

// newStabilityConfig builds a config from duration values in milliseconds,
// compiling extra deny patterns as globs. Invalid patterns are skipped; the
// built-in substring deny list always applies.
func newStabilityConfig(quietMillis, maxWaitMillis, pollMillis int, denyPatterns []string) stabilityConfig {
	cfg := defaultStabilityConfig()
	if quietMillis > 0 {
		cfg.quiet = time.Duration(quietMillis) * time.Millisecond
	}
	if maxWaitMillis > 0 {
		cfg.maxWait = time.Duration(maxWaitMillis) * time.Millisecond
	}
	if pollMillis > 0 {
		cfg.poll = time.Duration(pollMillis) * time.Millisecond
	}
	for _, pattern := range denyPatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			continue
		}
		cfg.deny = append(cfg.deny, g)
	}
	return cfg
}

// isRelevantRequest decides whether a request counts toward stability.
// headers exposes request headers by lower-case name, returning "" when
// absent.
func (c stabilityConfig) isRelevantRequest(resourceType, url string, headers func(string) string) bool {
	if _, ok := relevantResourceTypes[resourceType]; !ok {
		return false
	}
	if strings.HasPrefix(url, "data:") || strings.HasPrefix(url, "blob:") {
		return false
	}
	lowered := strings.ToLower(url)
	for _, substr := range denySubstrings {
		if strings.Contains(lowered, substr) {
			return false
		}
	}
	for _, g := range c.deny {
		if g.Match(url) {
			return false
		}
	}
	if headers != nil {
		if purpose := headers("purpose") + headers("sec-purpose"); strings.Contains(strings.ToLower(purpose), "prefetch") {
			return false
		}
		accept := strings.ToLower(headers("accept"))
		if strings.HasPrefix(accept, "video/") || strings.HasPrefix(accept, "audio/") {
			return false
		}
	}
	return true
}

// shouldDiscardResponse reports whether a response's completion must be
// dropped from the pending set without counting as activity.
func shouldDiscardResponse(contentType string, contentLength int64) bool {
	lowered := strings.ToLower(contentType)
	for _, t := range discardContentTypes {
		if strings.Contains(lowered, t) {
			return true
		}
	}
	return contentLength > discardSizeCeiling
}

// stabilityTracker holds the pending set and last-activity timestamp for a
// single wait invocation. Keys are opaque request identities.
type stabilityTracker struct {
	mu      sync.Mutex
	cfg     stabilityConfig
	pending map[interface{}]struct{}
	last    time.Time
	now     func() time.Time // test seam
}

func newStabilityTracker(cfg stabilityConfig) *stabilityTracker {
	t := &stabilityTracker{
		cfg:     cfg,
		pending: make(map[interface{}]struct{}),
		now:     time.Now,
	}
	t.last = t.now()
	return t
}

// requestStarted records a relevant in-flight request and resets the
// last-activity clock. Irrelevant requests are ignored entirely.
func (t *stabilityTracker) requestStarted(key interface{}, resourceType, url string, headers func(string) string) {
	if !t.cfg.isRelevantRequest(resourceType, url, headers) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[key] = struct{}{}
	t.last = t.now()
}

// responseFinished completes a pending request. Streaming-class and
// oversized responses leave the pending set without registering activity,
// so they can never block termination.
func (t *stabilityTracker) responseFinished(key interface{}, contentType string, contentLength int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[key]; !ok {
		return
	}
	delete(t.pending, key)
	if !shouldDiscardResponse(contentType, contentLength) {
		t.last = t.now()
	}
}

// stable reports whether the pending set is empty and the quiet window has
// elapsed since the last activity.
func (t *stabilityTracker) stable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending) == 0 && t.now().Sub(t.last) >= t.cfg.quiet
}

// await polls until stability or until the absolute ceiling expires,
// whichever comes first. It always terminates within maxWait + poll.
func (t *stabilityTracker) await() {
	deadline := t.now().Add(t.cfg.maxWait)
	for {
		if t.stable() {
			return
		}
		if !t.now().Before(deadline) {
			return
		}
		time.Sleep(t.cfg.poll)
	}
}

// waitForStableNetwork subscribes to a page's request/response stream and
// blocks until network activity has quiesced (or the ceiling expires).
// Listeners are removed on every exit path. The result is advisory: a
// failure here must never abort the caller's broader page-load wait, so it
// is reported as an Outcome rather than an error.
func waitForStableNetwork(page playwright.Page, cfg stabilityConfig) (outcome Outcome) {
	const op = "network stability wait"

	defer func() {
		if r := recover(); r != nil {
			outcome = Failed(op, fmt.Errorf("panic during stability wait: %v", r))
		}
	}()

	tracker := newStabilityTracker(cfg)

	onRequest := func(req playwright.Request) {
		tracker.requestStarted(req, req.ResourceType(), req.URL(), func(name string) string {
			value, err := req.HeaderValue(name)
			if err != nil {
				return ""
			}
			return value
		})
	}
	onResponse := func(resp playwright.Response) {
		contentType, err := resp.HeaderValue("content-type")
		if err != nil {
			contentType = ""
		}
		var contentLength int64
		if raw, err := resp.HeaderValue("content-length"); err == nil && raw != "" {
			if n, perr := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); perr == nil {
				contentLength = n
			}
		}
		tracker.responseFinished(resp.Request(), contentType, contentLength)
	}

	page.On("request", onRequest)
	page.On("response", onResponse)
	defer func() {
		page.RemoveListener("request", onRequest)
		page.RemoveListener("response", onResponse)
	}()

	tracker.await()
	return OK(op)
}
