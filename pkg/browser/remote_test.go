package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDeviceFarmEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"wss://cdp.browserstack.com/playwright?caps=...", true},
		{"wss://cloud.lambdatest.com/playwright", true},
		{"wss://ondemand.us-west-1.saucelabs.com/v1/playwright", true},
		{"ws://127.0.0.1:9222/devtools/browser/abc", false},
		{"http://localhost:9222", false},
		{"wss://grid.internal.example.com/session", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isDeviceFarmEndpoint(tt.endpoint), "endpoint %q", tt.endpoint)
	}
}

func TestIsBlankURL(t *testing.T) {
	assert.True(t, isBlankURL(""))
	assert.True(t, isBlankURL("about:blank"))
	assert.False(t, isBlankURL("https://example.com"))
	assert.False(t, isBlankURL("about:config"))
}
