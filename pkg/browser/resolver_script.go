package browser

import "fmt"

// Injected DOM-traversal routines. These must run inside the page's script
// engine: shadow roots and iframe documents are not reachable from the host
// process. Each script is a versioned constant; bump the version when the
// traversal semantics change so page-side behavior can be correlated with
// host releases from logs alone.

// deepQueryScriptVersion identifies the traversal generation in use.
const deepQueryScriptVersion = 2

// injectedScriptVersions names the script generations a context was set up
// with, for the context-ready log line.
func injectedScriptVersions() string {
	return fmt.Sprintf("deep query v%d, observer v%d", deepQueryScriptVersion, observerScriptVersion)
}

// deepQueryScript locates the first element matching a selector, searching
// the given root, then depth-first through every descendant's shadow root
// and every same-origin iframe document. Cross-origin iframes are skipped
// silently. Returns the element or null.
const deepQueryScript = `(selector) => {
	const search = (root) => {
		let direct = null;
		try {
			direct = root.querySelector(selector);
		} catch (e) {
			return null; // invalid selector
		}
		if (direct) return direct;
		const hosts = root.querySelectorAll('*');
		for (const el of hosts) {
			if (el.shadowRoot) {
				const found = search(el.shadowRoot);
				if (found) return found;
			}
			if (el.tagName === 'IFRAME' || el.tagName === 'FRAME') {
				let doc = null;
				try {
					doc = el.contentDocument;
				} catch (e) {
					doc = null; // cross-origin
				}
				if (doc) {
					const found = search(doc);
					if (found) return found;
				}
			}
		}
		return null;
	};
	return search(document);
}`

// deepPresenceScript is the boolean form of deepQueryScript.
const deepPresenceScript = `(selector) => {
	const search = (root) => {
		let direct = null;
		try {
			direct = root.querySelector(selector);
		} catch (e) {
			return null;
		}
		if (direct) return direct;
		const hosts = root.querySelectorAll('*');
		for (const el of hosts) {
			if (el.shadowRoot) {
				const found = search(el.shadowRoot);
				if (found) return found;
			}
			if (el.tagName === 'IFRAME' || el.tagName === 'FRAME') {
				let doc = null;
				try {
					doc = el.contentDocument;
				} catch (e) {
					doc = null;
				}
				if (doc) {
					const found = search(doc);
					if (found) return found;
				}
			}
		}
		return null;
	};
	return search(document) !== null;
}`
