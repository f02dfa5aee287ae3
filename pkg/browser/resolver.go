package browser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// FindElement locates the first element matching selector on the page,
// searching across shadow roots and same-origin iframes depth-first.
// Returns nil (and no error) when nothing matches anywhere in the tree.
//
// The returned handle is transient: it is invalid once the node detaches or
// the page navigates. Callers re-resolve from the selector instead of
// caching handles across navigations.
func FindElement(page playwright.Page, selector string) (playwright.ElementHandle, error) {
	handle, err := page.EvaluateHandle(deepQueryScript, selector)
	if err != nil {
		return nil, fmt.Errorf("deep query failed for %q: %w", selector, err)
	}
	element := handle.AsElement()
	if element == nil {
		// Dispose the null handle; nothing was found.
		_ = handle.Dispose()
		return nil, nil
	}
	return element, nil
}

// isElementPresent is the boolean form of FindElement, usable on any page
// surface that can evaluate script.
func isElementPresent(page enginePage, selector string) (bool, error) {
	result, err := page.Evaluate(deepPresenceScript, selector)
	if err != nil {
		return false, fmt.Errorf("presence check failed for %q: %w", selector, err)
	}
	present, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("presence check for %q returned %T, want bool", selector, result)
	}
	return present, nil
}

// xpathPriorityAttrs is scanned in order; the first attribute present in
// the bag supplies the single predicate of the generated XPath.
var xpathPriorityAttrs = []string{
	"id",
	"name",
	"data-testid",
	"data-test-id",
	"data-test",
	"data-qa",
	"data-cy",
	"aria-label",
	"title",
	"class",
	"href",
	"src",
	"value",
	"type",
	"alt",
	"role",
}

// GenerateXPath builds a best-effort XPath locator from a tag name and an
// attribute bag, using the first priority attribute found as an equality
// predicate (substring-contains for class, whose value is a token list).
// When no priority attribute is present, the lexicographically first
// non-empty other attribute is used instead. Exactly one predicate is ever
// emitted; this is a "good enough" locator generator, not a uniqueness
// guarantee.
func GenerateXPath(attrs map[string]string) string {
	tag := strings.ToLower(strings.TrimSpace(attrs["tagName"]))
	if tag == "" {
		tag = "*"
	}

	for _, name := range xpathPriorityAttrs {
		value, ok := attrs[name]
		if !ok || value == "" {
			continue
		}
		if name == "class" {
			return fmt.Sprintf("//%s[contains(@class, %s)]", tag, xpathLiteral(firstClassToken(value)))
		}
		return fmt.Sprintf("//%s[@%s=%s]", tag, name, xpathLiteral(value))
	}

	// Fallback: any other non-empty attribute, picked deterministically.
	var names []string
	for name, value := range attrs {
		if name == "tagName" || value == "" {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "//" + tag
	}
	sort.Strings(names)
	name := names[0]
	return fmt.Sprintf("//%s[@%s=%s]", tag, name, xpathLiteral(attrs[name]))
}

// firstClassToken narrows a multi-class value to its first token so the
// contains() predicate stays stable when utility classes reorder.
func firstClassToken(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return value
	}
	return fields[0]
}

// xpathLiteral quotes a string for embedding in an XPath expression. XPath
// 1.0 has no escape sequences, so values containing both quote kinds are
// assembled with concat().
func xpathLiteral(value string) string {
	switch {
	case !strings.Contains(value, "'"):
		return "'" + value + "'"
	case !strings.Contains(value, `"`):
		return `"` + value + `"`
	default:
		parts := strings.Split(value, "'")
		quoted := make([]string, 0, len(parts)*2)
		for i, part := range parts {
			if i > 0 {
				quoted = append(quoted, `"'"`)
			}
			quoted = append(quoted, "'"+part+"'")
		}
		return "concat(" + strings.Join(quoted, ", ") + ")"
	}
}
