// Package config holds the typed settings consumed by the browser lifecycle
// manager. Settings are read from a JSON file (default
// ~/.stakeout/config.json) and can be overridden per field with STAKEOUT_*
// environment variables. The file is optional; zero-config runs get the
// defaults below.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Settings is the root configuration consumed by pkg/browser.
type Settings struct {
	Browser   BrowserSettings   `json:"browser"`
	Emulation EmulationSettings `json:"emulation"`
	Network   NetworkSettings   `json:"network"`
	Artifacts ArtifactSettings  `json:"artifacts"`
}

// BrowserSettings controls how browser contexts are constructed.
type BrowserSettings struct {
	// Name selects the engine: chromium, firefox or webkit.
	Name string `json:"name"`

	// Channel selects a release channel for chromium (chrome, msedge, ...).
	Channel string `json:"channel"`

	// ExecutablePath points at a custom browser binary. Empty means the
	// engine-managed installation.
	ExecutablePath string `json:"executable_path"`

	Headless bool `json:"headless"`

	// UserDataDir is the persistent profile directory for local launches.
	// Empty selects a directory under the artifacts root.
	UserDataDir string `json:"user_data_dir"`

	// RemoteEndpoint, when set, switches from local launch to remote attach.
	RemoteEndpoint string `json:"remote_endpoint"`

	// NavigateOnAttach forces navigation to HomeURL after a remote attach.
	// Off by default so attacher-provided session state survives.
	NavigateOnAttach bool `json:"navigate_on_attach"`

	// HomeURL is navigated to after initialization and recreation.
	HomeURL string `json:"home_url"`

	// Extensions lists unpacked extension directories or .zip bundles to
	// load into chromium launches. Best effort.
	Extensions []string `json:"extensions"`

	// CookiesFile is a JSON or YAML cookie jar injected after context
	// creation. Best effort.
	CookiesFile string `json:"cookies_file"`

	// Args are extra engine arguments appended to the launch argument list.
	Args []string `json:"args"`
}

// EmulationSettings is the emulation option set applied at context creation.
// Locale and Timezone cannot be changed on a live context; updating them
// forces a context recreation.
type EmulationSettings struct {
	// Device names a descriptor from the engine's device registry
	// (e.g. "iPhone 13"). When set it supplies viewport, user agent, scale
	// factor and touch flags; an explicit Viewport still wins.
	Device string `json:"device"`

	ViewportWidth  int `json:"viewport_width"`
	ViewportHeight int `json:"viewport_height"`

	Locale   string `json:"locale"`
	Timezone string `json:"timezone"`

	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	// ColorScheme is "light", "dark" or empty for the engine default.
	ColorScheme string `json:"color_scheme"`

	// Permissions are granted to the context at creation
	// (e.g. "geolocation", "clipboard-read").
	Permissions []string `json:"permissions"`
}

// NetworkSettings tunes the page-load stability heuristic.
type NetworkSettings struct {
	// QuietMillis is the minimum duration without relevant network activity
	// before a page is considered stable.
	QuietMillis int `json:"quiet_millis"`

	// MaxWaitMillis is the absolute ceiling on a stability wait.
	MaxWaitMillis int `json:"max_wait_millis"`

	// PollMillis is the poll interval of the wait loop.
	PollMillis int `json:"poll_millis"`

	// DenyPatterns extends the built-in deny list with glob patterns
	// matched against request URLs.
	DenyPatterns []string `json:"deny_patterns"`
}

// ArtifactSettings controls diagnostic artifact capture.
type ArtifactSettings struct {
	// Dir is the artifacts root. Screenshot, video and trace directories
	// are created beneath it on first use. Empty means
	// ~/.stakeout/artifacts.
	Dir string `json:"dir"`

	Screenshots bool `json:"screenshots"`
	Video       bool `json:"video"`
	Trace       bool `json:"trace"`

	// ScreenshotLoadState is the load-state signal waited for before a
	// capture: "load", "domcontentloaded" or "networkidle".
	ScreenshotLoadState string `json:"screenshot_load_state"`
}

// Default returns the zero-config settings.
func Default() Settings {
	return Settings{
		Browser: BrowserSettings{
			Name:     "chromium",
			Headless: true,
			HomeURL:  "about:blank",
		},
		Emulation: EmulationSettings{
			ViewportWidth:  1280,
			ViewportHeight: 720,
		},
		Network: NetworkSettings{
			QuietMillis:   500,
			MaxWaitMillis: 15000,
			PollMillis:    100,
		},
		Artifacts: ArtifactSettings{
			Screenshots:         true,
			ScreenshotLoadState: "load",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".stakeout", "config.json"), nil
}

// Load reads settings from the given path, layering file values over the
// defaults and environment overrides over both. A missing file is not an
// error; a malformed one is.
func Load(path string) (Settings, error) {
	s := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return s, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return s, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&s)
	return s, nil
}

// applyEnvOverrides maps STAKEOUT_* variables onto the settings that are
// commonly flipped per CI job without editing the config file.
func applyEnvOverrides(s *Settings) {
	if v, ok := os.LookupEnv("STAKEOUT_BROWSER"); ok {
		s.Browser.Name = v
	}
	if v, ok := os.LookupEnv("STAKEOUT_CHANNEL"); ok {
		s.Browser.Channel = v
	}
	if v, ok := os.LookupEnv("STAKEOUT_EXECUTABLE_PATH"); ok {
		s.Browser.ExecutablePath = v
	}
	if v, ok := os.LookupEnv("STAKEOUT_HEADLESS"); ok {
		s.Browser.Headless = parseBool(v, s.Browser.Headless)
	}
	if v, ok := os.LookupEnv("STAKEOUT_REMOTE_ENDPOINT"); ok {
		s.Browser.RemoteEndpoint = v
	}
	if v, ok := os.LookupEnv("STAKEOUT_HOME_URL"); ok {
		s.Browser.HomeURL = v
	}
	if v, ok := os.LookupEnv("STAKEOUT_ARTIFACTS_DIR"); ok {
		s.Artifacts.Dir = v
	}
	if v, ok := os.LookupEnv("STAKEOUT_VIDEO"); ok {
		s.Artifacts.Video = parseBool(v, s.Artifacts.Video)
	}
	if v, ok := os.LookupEnv("STAKEOUT_TRACE"); ok {
		s.Artifacts.Trace = parseBool(v, s.Artifacts.Trace)
	}
	if v, ok := os.LookupEnv("STAKEOUT_SCREENSHOTS"); ok {
		s.Artifacts.Screenshots = parseBool(v, s.Artifacts.Screenshots)
	}
	if v, ok := os.LookupEnv("STAKEOUT_LOCALE"); ok {
		s.Emulation.Locale = v
	}
	if v, ok := os.LookupEnv("STAKEOUT_TIMEZONE"); ok {
		s.Emulation.Timezone = v
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return b
}
