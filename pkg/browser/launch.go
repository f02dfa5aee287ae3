package browser

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

// chromiumBaseArgs suppresses first-run prompts and default-browser nags so
// a fresh profile starts clean.
var chromiumBaseArgs = []string{
	"--no-first-run",
	"--no-default-browser-check",
	"--disable-blink-features=AutomationControlled",
}

// firefoxBasePrefs mirrors the same intent for firefox profiles.
var firefoxBasePrefs = map[string]interface{}{
	"browser.shell.checkDefaultBrowser":        false,
	"browser.startup.homepage_override.mstone": "ignore",
	"permissions.default.desktop-notification": 1,
}

// launchLocal prepares extensions, builds the emulation option set, and
// launches a persistent profile (the default) or an ephemeral profile with
// video recording. A stale-profile failure is retried once with a fresh
// temporary profile; a missing browser binary is a non-retryable
// configuration error.
func (c *Controller) launchLocal() error {
	browserType, err := c.browserType()
	if err != nil {
		return err
	}

	extensionArgs := c.prepareExtensions()

	video := c.settings.Artifacts.Video
	profileDir, ephemeral, err := c.profileDir(video)
	if err != nil {
		return err
	}

	opts := c.buildLaunchOptions(extensionArgs, video)

	ctx, err := browserType.LaunchPersistentContext(profileDir, opts)
	if err != nil {
		if isMissingExecutable(err) {
			return &InstallError{
				Browser:        c.settings.Browser.Name,
				Channel:        c.settings.Browser.Channel,
				ExecutablePath: c.settings.Browser.ExecutablePath,
				Err:            err,
			}
		}
		if isStaleProfile(err) && !ephemeral {
			c.log.Warnf("launch: profile %s is stale, retrying with a temporary profile: %v", profileDir, err)
			freshDir, mkErr := os.MkdirTemp("", "stakeout-profile-"+uuid.NewString()[:8]+"-")
			if mkErr != nil {
				return fmt.Errorf("failed to create temporary profile: %w", mkErr)
			}
			ctx, err = browserType.LaunchPersistentContext(freshDir, opts)
			if err != nil {
				return fmt.Errorf("launch retry with temporary profile failed: %w", err)
			}
		} else {
			return fmt.Errorf("failed to launch %s: %w", c.settings.Browser.Name, err)
		}
	}

	c.context = ctx
	c.recording = video
	return nil
}

// browserType maps the configured engine name to its launcher.
func (c *Controller) browserType() (playwright.BrowserType, error) {
	switch c.settings.Browser.Name {
	case "", "chromium":
		return c.pw.Chromium, nil
	case "firefox":
		return c.pw.Firefox, nil
	case "webkit":
		return c.pw.WebKit, nil
	default:
		return nil, fmt.Errorf("browser: unknown engine %q", c.settings.Browser.Name)
	}
}

// profileDir picks the user-data directory. Persistent launches use the
// configured directory (or one under the artifacts root, keyed by stake);
// video launches get an ephemeral profile so recordings never pollute the
// reusable profile. Temporary directories are left for external cleanup.
func (c *Controller) profileDir(video bool) (dir string, ephemeral bool, err error) {
	if video {
		dir, err = os.MkdirTemp("", "stakeout-ephemeral-")
		if err != nil {
			return "", false, fmt.Errorf("failed to create ephemeral profile: %w", err)
		}
		return dir, true, nil
	}
	dir = c.settings.Browser.UserDataDir
	if dir == "" {
		dir = filepath.Join(c.paths.root, "profiles", c.stake)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", false, fmt.Errorf("failed to create profile directory %s: %w", dir, err)
	}
	return dir, false, nil
}

// buildLaunchOptions assembles the persistent-launch option set: headless
// flag, channel/executable selection, argument list, browser preferences,
// and the emulation option set (device descriptor or explicit viewport,
// locale, timezone, geolocation, color scheme, permission grants).
func (c *Controller) buildLaunchOptions(extensionArgs []string, video bool) playwright.BrowserTypeLaunchPersistentContextOptions {
	b := c.settings.Browser
	e := c.settings.Emulation

	opts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(b.Headless),
	}
	if b.Channel != "" {
		opts.Channel = playwright.String(b.Channel)
	}
	if b.ExecutablePath != "" {
		opts.ExecutablePath = playwright.String(b.ExecutablePath)
	}

	switch b.Name {
	case "", "chromium":
		opts.Args = append(opts.Args, chromiumBaseArgs...)
		opts.Args = append(opts.Args, extensionArgs...)
	case "firefox":
		opts.FirefoxUserPrefs = firefoxBasePrefs
	}
	opts.Args = append(opts.Args, b.Args...)

	// Device descriptor first; explicit settings override its fields.
	if e.Device != "" {
		if device, ok := c.pw.Devices[e.Device]; ok {
			opts.UserAgent = playwright.String(device.UserAgent)
			opts.Viewport = device.Viewport
			opts.DeviceScaleFactor = playwright.Float(device.DeviceScaleFactor)
			opts.IsMobile = playwright.Bool(device.IsMobile)
			opts.HasTouch = playwright.Bool(device.HasTouch)
		} else {
			c.log.Warnf("launch: unknown device descriptor %q, using explicit emulation settings", e.Device)
		}
	}
	if e.ViewportWidth > 0 && e.ViewportHeight > 0 {
		opts.Viewport = &playwright.Size{Width: e.ViewportWidth, Height: e.ViewportHeight}
	}
	if e.Locale != "" {
		opts.Locale = playwright.String(e.Locale)
	}
	if e.Timezone != "" {
		opts.TimezoneId = playwright.String(e.Timezone)
	}
	if e.Latitude != nil && e.Longitude != nil {
		opts.Geolocation = &playwright.Geolocation{
			Latitude:  *e.Latitude,
			Longitude: *e.Longitude,
		}
	}
	if e.ColorScheme != "" {
		opts.ColorScheme = colorSchemeOption(e.ColorScheme)
	}
	if len(e.Permissions) > 0 {
		opts.Permissions = e.Permissions
	}

	if video {
		opts.RecordVideo = &playwright.RecordVideo{
			Dir: c.paths.video(),
		}
	}
	return opts
}

// prepareExtensions resolves configured extension bundles into chromium
// load arguments. Zip bundles are extracted into a cache under the
// artifacts root. Best effort: a bundle that cannot be prepared degrades
// to "no extension" with a logged warning, never a launch failure.
func (c *Controller) prepareExtensions() []string {
	const op = "extension preparation"
	if len(c.settings.Browser.Extensions) == 0 {
		return nil
	}

	var dirs []string
	for _, source := range c.settings.Browser.Extensions {
		dir, err := c.prepareExtension(source)
		if err != nil {
			logOutcome(c.log, Failed(op, fmt.Errorf("%s: %w", source, err)))
			continue
		}
		dirs = append(dirs, dir)
	}
	if len(dirs) == 0 {
		logOutcome(c.log, Degraded(op, "no usable extensions"))
		return nil
	}

	joined := strings.Join(dirs, ",")
	logOutcome(c.log, OK(op))
	return []string{
		"--disable-extensions-except=" + joined,
		"--load-extension=" + joined,
	}
}

func (c *Controller) prepareExtension(source string) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("extension source not found: %w", err)
	}
	if info.IsDir() {
		return source, nil
	}
	if strings.ToLower(filepath.Ext(source)) != ".zip" {
		return "", fmt.Errorf("extension source %s is neither a directory nor a zip bundle", source)
	}

	cacheDir := filepath.Join(c.paths.root, "extensions", strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)))
	if _, err := os.Stat(filepath.Join(cacheDir, "manifest.json")); err == nil {
		return cacheDir, nil // already extracted
	}
	if err := unzipTo(source, cacheDir); err != nil {
		return "", err
	}
	return cacheDir, nil
}

// unzipTo extracts a zip archive into dir, refusing entries that escape it.
func unzipTo(archive, dir string) error {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", archive, err)
	}
	defer reader.Close()

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	for _, file := range reader.File {
		target := filepath.Join(dir, file.Name)
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(dir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes extraction directory", file.Name)
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("failed to create %s: %w", target, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
		}
		src, err := file.Open()
		if err != nil {
			return fmt.Errorf("failed to read archive entry %s: %w", file.Name, err)
		}
		dst, err := os.Create(target)
		if err != nil {
			src.Close()
			return fmt.Errorf("failed to create %s: %w", target, err)
		}
		_, copyErr := io.Copy(dst, src)
		src.Close()
		closeErr := dst.Close()
		if copyErr != nil {
			return fmt.Errorf("failed to extract %s: %w", file.Name, copyErr)
		}
		if closeErr != nil {
			return fmt.Errorf("failed to finalize %s: %w", target, closeErr)
		}
	}
	return nil
}
