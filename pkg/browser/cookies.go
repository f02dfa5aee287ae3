package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/playwright-community/playwright-go"
	"gopkg.in/yaml.v3"
)

// Cookie is one entry of a cookie jar file. Either URL or Domain+Path must
// be present, matching the engine's requirements.
type Cookie struct {
	Name     string  `json:"name" yaml:"name"`
	Value    string  `json:"value" yaml:"value"`
	URL      string  `json:"url,omitempty" yaml:"url,omitempty"`
	Domain   string  `json:"domain,omitempty" yaml:"domain,omitempty"`
	Path     string  `json:"path,omitempty" yaml:"path,omitempty"`
	Expires  float64 `json:"expires,omitempty" yaml:"expires,omitempty"`
	Secure   bool    `json:"secure,omitempty" yaml:"secure,omitempty"`
	HTTPOnly bool    `json:"http_only,omitempty" yaml:"http_only,omitempty"`
}

// loadCookieJar reads a cookie jar file. Format follows the extension:
// .yaml/.yml parses as YAML, anything else as JSON.
func loadCookieJar(path string) ([]Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookie jar %s: %w", path, err)
	}

	var cookies []Cookie
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cookies); err != nil {
			return nil, fmt.Errorf("failed to parse cookie jar %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cookies); err != nil {
			return nil, fmt.Errorf("failed to parse cookie jar %s: %w", path, err)
		}
	}
	return cookies, nil
}

func toEngineCookies(cookies []Cookie) []playwright.OptionalCookie {
	out := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		cookie := playwright.OptionalCookie{
			Name:  c.Name,
			Value: c.Value,
		}
		if c.URL != "" {
			cookie.URL = playwright.String(c.URL)
		}
		if c.Domain != "" {
			cookie.Domain = playwright.String(c.Domain)
		}
		if c.Path != "" {
			cookie.Path = playwright.String(c.Path)
		}
		if c.Expires != 0 {
			cookie.Expires = playwright.Float(c.Expires)
		}
		if c.Secure {
			cookie.Secure = playwright.Bool(true)
		}
		if c.HTTPOnly {
			cookie.HttpOnly = playwright.Bool(true)
		}
		out = append(out, cookie)
	}
	return out
}

// injectCookies loads the configured jar and adds its cookies to the
// context. Runs after context creation in both construction strategies;
// best effort.
func injectCookies(ctx playwright.BrowserContext, jarPath string) Outcome {
	const op = "cookie injection"
	if jarPath == "" {
		return Degraded(op, "no cookie jar configured")
	}
	cookies, err := loadCookieJar(jarPath)
	if err != nil {
		return Failed(op, err)
	}
	if len(cookies) == 0 {
		return Degraded(op, "cookie jar is empty")
	}
	if err := ctx.AddCookies(toEngineCookies(cookies)); err != nil {
		return Failed(op, fmt.Errorf("failed to add cookies: %w", err))
	}
	return OK(op)
}
