package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateXPathPriorityOrder(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]string
		want  string
	}{
		{
			name: "id outranks class",
			attrs: map[string]string{
				"tagName": "button",
				"id":      "submit-1",
				"class":   "btn btn-primary",
			},
			want: "//button[@id='submit-1']",
		},
		{
			name: "test hook attribute",
			attrs: map[string]string{
				"tagName": "div",
				"data-qa": "card",
			},
			want: "//div[@data-qa='card']",
		},
		{
			name: "class uses contains with first token",
			attrs: map[string]string{
				"tagName": "span",
				"class":   "badge badge-lg",
			},
			want: "//span[contains(@class, 'badge')]",
		},
		{
			name: "fallback picks lexicographically first other attribute",
			attrs: map[string]string{
				"tagName":     "input",
				"placeholder": "Search",
				"maxlength":   "20",
			},
			want: "//input[@maxlength='20']",
		},
		{
			name: "no attributes yields bare tag",
			attrs: map[string]string{
				"tagName": "section",
			},
			want: "//section",
		},
		{
			name:  "missing tag falls back to wildcard",
			attrs: map[string]string{"id": "x"},
			want:  "//*[@id='x']",
		},
		{
			name: "empty values are skipped",
			attrs: map[string]string{
				"tagName": "a",
				"id":      "",
				"href":    "/home",
			},
			want: "//a[@href='/home']",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateXPath(tt.attrs))
		})
	}
}

func TestGenerateXPathEmitsSinglePredicate(t *testing.T) {
	xpath := GenerateXPath(map[string]string{
		"tagName": "button",
		"id":      "go",
		"name":    "go-button",
		"class":   "btn",
		"title":   "Go",
	})
	assert.Equal(t, 1, strings.Count(xpath, "["))
	assert.Equal(t, 1, strings.Count(xpath, "]"))
}

func TestXPathLiteralQuoting(t *testing.T) {
	assert.Equal(t, "'plain'", xpathLiteral("plain"))
	assert.Equal(t, `"it's"`, xpathLiteral("it's"))
	assert.Equal(t, `'say "hi"'`, xpathLiteral(`say "hi"`))
	assert.Equal(t, `concat('it', "'", 's "x"')`, xpathLiteral(`it's "x"`))
}

func TestFirstClassToken(t *testing.T) {
	assert.Equal(t, "btn", firstClassToken("btn btn-primary active"))
	assert.Equal(t, "solo", firstClassToken("solo"))
	assert.Equal(t, "", firstClassToken(""))
}
