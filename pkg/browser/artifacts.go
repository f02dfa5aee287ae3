package browser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/stakeout/pkg/config"
	"github.com/entrhq/stakeout/pkg/logging"
)

// artifactPaths lays out the persisted artifact tree under one root. Each
// directory is created on first use and nothing beneath them is ever
// deleted by this package; retention belongs to the caller.
type artifactPaths struct {
	root string
}

func newArtifactPaths(root string) (artifactPaths, error) {
	if root == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return artifactPaths{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		root = filepath.Join(homeDir, ".stakeout", "artifacts")
	}
	return artifactPaths{root: root}, nil
}

func (p artifactPaths) screenshots() string { return filepath.Join(p.root, "screenshots") }
func (p artifactPaths) video() string       { return filepath.Join(p.root, "video") }
func (p artifactPaths) trace() string       { return filepath.Join(p.root, "trace") }

// ensure creates all artifact directories. Failure here is fatal for
// initialization: without the directories no artifact can ever land.
func (p artifactPaths) ensure() error {
	for _, dir := range []string{p.screenshots(), p.video(), p.trace()} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
		}
	}
	return nil
}

// screenshotFileName renders "{name}.png" or "{name}_{nanos}.png".
func screenshotFileName(name string, includeTimestamp bool, now time.Time) string {
	if includeTimestamp {
		return fmt.Sprintf("%s_%d.png", name, now.UnixNano())
	}
	return name + ".png"
}

// traceFileName renders "trace_{unixSeconds}.zip".
func traceFileName(now time.Time) string {
	return fmt.Sprintf("trace_%d.zip", now.Unix())
}

// videoFileName renders "{urlSlug}_{stakeID}.webm".
func videoFileName(url, stake string) string {
	return fmt.Sprintf("%s_%s.webm", urlSlug(url), stake)
}

// urlSlug reduces a URL to a filesystem-safe slug: scheme stripped,
// non-alphanumeric runs collapsed to single underscores, bounded length.
func urlSlug(url string) string {
	s := url
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		slug = "page"
	}
	const maxSlug = 80
	if len(slug) > maxSlug {
		slug = slug[:maxSlug]
	}
	return slug
}

// moveFile renames src to dst, falling back to copy-and-remove when the
// rename crosses filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", dst, err)
	}
	in.Close()
	return os.Remove(src)
}

// artifactCapture produces screenshots, finalizes video, and exports
// traces for one session. Every operation is best effort: failures are
// logged outcomes, never errors to the caller.
type artifactCapture struct {
	mu       sync.Mutex
	settings config.ArtifactSettings
	paths    artifactPaths
	stake    string
	log      *logging.Logger

	// lastBytes caches the most recent screenshot for overlay reuse.
	lastBytes []byte

	inventory SessionArtifacts
}

func newArtifactCapture(settings config.ArtifactSettings, paths artifactPaths, stake string, log *logging.Logger) *artifactCapture {
	return &artifactCapture{
		settings: settings,
		paths:    paths,
		stake:    stake,
		log:      log,
	}
}

// artifacts returns a copy of the session's artifact inventory.
func (c *artifactCapture) artifacts() SessionArtifacts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inventory
}

// lastScreenshot returns a copy of the most recent capture's bytes, or nil
// when nothing has been captured yet. Callers embed these in reports without
// re-reading the file.
func (c *artifactCapture) lastScreenshot() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastBytes == nil {
		return nil
	}
	out := make([]byte, len(c.lastBytes))
	copy(out, c.lastBytes)
	return out
}

// screenshotLoadState maps the configured load-state name to the engine
// enum, defaulting to "load".
func (c *artifactCapture) screenshotLoadState() *playwright.LoadState {
	switch c.settings.ScreenshotLoadState {
	case "domcontentloaded":
		return playwright.LoadStateDomcontentloaded
	case "networkidle":
		return playwright.LoadStateNetworkidle
	default:
		return playwright.LoadStateLoad
	}
}

// takeScreenshot captures the page to the screenshots directory. No-op when
// screenshot capture is disabled. The load-state wait is bounded and its
// failure does not block the capture attempt.
func (c *artifactCapture) takeScreenshot(page playwright.Page, name string, fullPage, includeTimestamp bool) Outcome {
	const op = "screenshot"
	if !c.settings.Screenshots {
		return Degraded(op, "screenshot capture disabled")
	}

	_ = page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   c.screenshotLoadState(),
		Timeout: playwright.Float(float64(DefaultScreenshotWait.Milliseconds())),
	})

	path := filepath.Join(c.paths.screenshots(), screenshotFileName(name, includeTimestamp, time.Now()))
	bytes, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(fullPage),
	})
	if err != nil {
		return Failed(op, fmt.Errorf("capture %q: %w", name, err))
	}

	c.mu.Lock()
	c.lastBytes = bytes
	c.inventory.ScreenshotCount++
	c.inventory.LastScreenshot = path
	c.mu.Unlock()
	return OK(op)
}

// elementLabelAttrs is scanned in order for a display label.
var elementLabelAttrs = []string{"aria-label", "role", "name", "title"}

// captureElementWithBox takes a full-page screenshot and composites a
// bounding-box outline plus a metadata panel (timestamp, wrapped URL,
// stake, element label) over it. Any failure degrades to "no overlay
// produced".
func (c *artifactCapture) captureElementWithBox(page playwright.Page, element playwright.ElementHandle, selector, name string) Outcome {
	const op = "element bounding-box screenshot"
	if !c.settings.Screenshots {
		return Degraded(op, "screenshot capture disabled")
	}
	if element == nil {
		return Degraded(op, "no element handle")
	}

	box, err := element.BoundingBox()
	if err != nil || box == nil {
		return Failed(op, fmt.Errorf("bounding box for %q: %w", selector, err))
	}

	label := selector
	for _, attr := range elementLabelAttrs {
		value, err := element.GetAttribute(attr)
		if err == nil && strings.TrimSpace(value) != "" {
			label = strings.TrimSpace(value)
			break
		}
	}

	shot, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return Failed(op, fmt.Errorf("base capture for %q: %w", selector, err))
	}

	annotated, err := renderOverlay(shot, overlayInfo{
		BoxX:      box.X,
		BoxY:      box.Y,
		BoxWidth:  box.Width,
		BoxHeight: box.Height,
		Label:     label,
		URL:       page.URL(),
		Stake:     c.stake,
		Timestamp: time.Now(),
	})
	if err != nil {
		return Failed(op, fmt.Errorf("overlay for %q: %w", selector, err))
	}

	path := filepath.Join(c.paths.screenshots(), screenshotFileName(name, true, time.Now()))
	if err := os.WriteFile(path, annotated, 0640); err != nil {
		return Failed(op, fmt.Errorf("write %s: %w", path, err))
	}

	c.mu.Lock()
	c.lastBytes = annotated
	c.inventory.ScreenshotCount++
	c.inventory.LastScreenshot = path
	c.mu.Unlock()
	return OK(op)
}

// finalizeVideo resolves a page's recording, moves it into the video
// directory under "{urlSlug}_{stakeID}.webm", and records it as the
// session's latest video. Called during teardown only.
func (c *artifactCapture) finalizeVideo(page playwright.Page) Outcome {
	const op = "video finalization"
	video := page.Video()
	if video == nil {
		return Degraded(op, "no recording on page")
	}
	src, err := video.Path()
	if err != nil {
		return Failed(op, fmt.Errorf("resolve video path: %w", err))
	}
	dst := filepath.Join(c.paths.video(), videoFileName(page.URL(), c.stake))
	if err := moveFile(src, dst); err != nil {
		return Failed(op, err)
	}
	c.mu.Lock()
	c.inventory.LastVideo = dst
	c.mu.Unlock()
	return OK(op)
}

// exportTrace stops the context's trace and writes it to a timestamped
// archive. Called during teardown only.
func (c *artifactCapture) exportTrace(ctx playwright.BrowserContext) Outcome {
	const op = "trace export"
	path := filepath.Join(c.paths.trace(), traceFileName(time.Now()))
	if err := ctx.Tracing().Stop(path); err != nil {
		return Failed(op, fmt.Errorf("stop trace: %w", err))
	}
	c.mu.Lock()
	c.inventory.LastTrace = path
	c.mu.Unlock()
	return OK(op)
}
