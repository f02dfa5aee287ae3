package browser

// observerBindingName is the host-callable function the injected observer
// delivers batches to. It is exposed context-wide so every frame of every
// page can reach it.
const observerBindingName = "__stakeoutReportDomChanges"

// overlayContainerID is the reserved container used by in-page tooling;
// mutations inside it are never reported.
const overlayContainerID = "__stakeout_overlay__"

// observerScriptVersion identifies the observer generation in use.
const observerScriptVersion = 4

// observerScript installs a mutation observer rooted at the document,
// recursively attaching further observers to every existing and
// newly-discovered shadow root and same-origin iframe document. It reports:
//
//   - added element nodes with no script/style/noscript or display:none
//     ancestor (the node itself included), outside the reserved overlay
//     container, carrying non-empty visible text;
//   - character-data mutations whose element ancestor chain passes the same
//     filter, de-duplicated within the batch.
//
// Each qualifying batch is serialized once and handed to the host binding.
// Installation is idempotent per document lifetime; navigation resets the
// guard flag along with the document.
const observerScript = `() => {
	if (window.__stakeoutObserverInstalled) return;
	window.__stakeoutObserverInstalled = true;

	const OVERLAY_ID = '__stakeout_overlay__';
	const SKIP = { SCRIPT: true, STYLE: true, NOSCRIPT: true };

	const isVisible = (el) => {
		try {
			const style = el.ownerDocument.defaultView.getComputedStyle(el);
			return !style || style.display !== 'none';
		} catch (e) {
			return true;
		}
	};

	const inOverlay = (node) => {
		let el = node.nodeType === Node.ELEMENT_NODE ? node : node.parentElement;
		while (el) {
			if (el.id === OVERLAY_ID) return true;
			el = el.parentElement || (el.getRootNode && el.getRootNode().host) || null;
		}
		return false;
	};

	// A node is suppressed when it, or any element ancestor (crossing shadow
	// boundaries through the host), is a skipped tag or not rendered. Text
	// appended inside a style or script element must never be reported.
	const suppressed = (node) => {
		let el = node.nodeType === Node.ELEMENT_NODE ? node : node.parentElement;
		while (el) {
			if (SKIP[el.tagName] || !isVisible(el)) return true;
			el = el.parentElement || (el.getRootNode && el.getRootNode().host) || null;
		}
		return false;
	};

	const deliver = (batch) => {
		if (!batch.length) return;
		const fn = window.__stakeoutReportDomChanges;
		if (typeof fn === 'function') fn(JSON.stringify(batch));
	};

	const attachAll = (root) => {
		observe(root);
		const all = root.querySelectorAll ? root.querySelectorAll('*') : [];
		for (const el of all) {
			if (el.shadowRoot) attachAll(el.shadowRoot);
			if (el.tagName === 'IFRAME' || el.tagName === 'FRAME') {
				let doc = null;
				try { doc = el.contentDocument; } catch (e) { doc = null; }
				if (doc) attachAll(doc);
			}
		}
	};

	const collectAdded = (el, batch, seen) => {
		if (!el.tagName || inOverlay(el) || suppressed(el)) return;
		const text = (el.textContent || '').trim();
		if (text) {
			const key = 'added:' + el.tagName + ':' + text;
			if (!seen[key]) {
				seen[key] = true;
				batch.push({ kind: 'added', tag: el.tagName.toLowerCase(), text: text });
			}
		}
		if (el.shadowRoot) {
			attachAll(el.shadowRoot);
			for (const child of el.shadowRoot.children) collectAdded(child, batch, seen);
		}
		if (el.tagName === 'IFRAME' || el.tagName === 'FRAME') {
			let doc = null;
			try { doc = el.contentDocument; } catch (e) { doc = null; }
			if (doc) {
				attachAll(doc);
				if (doc.body) for (const child of doc.body.children) collectAdded(child, batch, seen);
			}
		}
	};

	const observe = (root) => {
		if (root.__stakeoutObserved) return;
		root.__stakeoutObserved = true;
		const observer = new MutationObserver((mutations) => {
			const batch = [];
			const seen = {};
			for (const m of mutations) {
				if (m.type === 'childList') {
					for (const node of m.addedNodes) {
						if (node.nodeType === Node.ELEMENT_NODE) collectAdded(node, batch, seen);
					}
				} else if (m.type === 'characterData') {
					const parent = m.target.parentElement;
					if (!parent || inOverlay(parent) || suppressed(parent)) continue;
					const text = (m.target.data || '').trim();
					if (!text) continue;
					const key = 'text:' + parent.tagName + ':' + text;
					if (seen[key]) continue;
					seen[key] = true;
					batch.push({ kind: 'text', tag: parent.tagName.toLowerCase(), text: text });
				}
			}
			deliver(batch);
		});
		const target = root.documentElement || root;
		observer.observe(target, {
			childList: true,
			subtree: true,
			characterData: true
		});
	};

	attachAll(document);
}`
