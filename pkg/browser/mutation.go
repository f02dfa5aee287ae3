package browser

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/stakeout/pkg/logging"
)

// DomSubscription identifies one registered DOM-change callback.
type DomSubscription struct {
	id uint64
}

// mutationBridge is the host half of the mutation observer: it owns the
// subscriber list and parses the serialized batches the injected script
// delivers through the exposed binding.
//
// Subscribers are invoked in subscription order. Dispatch runs against a
// snapshot of the list, so callbacks may subscribe or unsubscribe freely;
// changes take effect from the next batch.
type mutationBridge struct {
	mu     sync.Mutex
	nextID uint64
	order  []uint64
	subs   map[uint64]DomChangeCallback
	log    *logging.Logger
}

func newMutationBridge(log *logging.Logger) *mutationBridge {
	return &mutationBridge{
		subs: make(map[uint64]DomChangeCallback),
		log:  log,
	}
}

// subscribe appends a callback to the dispatch list.
func (b *mutationBridge) subscribe(cb DomChangeCallback) *DomSubscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.order = append(b.order, id)
	b.subs[id] = cb
	return &DomSubscription{id: id}
}

// unsubscribe removes a callback. Unknown or already-removed subscriptions
// are a no-op.
func (b *mutationBridge) unsubscribe(sub *DomSubscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	for i, id := range b.order {
		if id == sub.id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// snapshot returns the callbacks in subscription order.
func (b *mutationBridge) snapshot() []DomChangeCallback {
	b.mu.Lock()
	defer b.mu.Unlock()
	callbacks := make([]DomChangeCallback, 0, len(b.order))
	for _, id := range b.order {
		if cb, ok := b.subs[id]; ok {
			callbacks = append(callbacks, cb)
		}
	}
	return callbacks
}

// handleBatch parses one serialized batch and fans it out. Malformed or
// empty payloads are dropped with a log line; a bad batch must never take
// down the binding.
func (b *mutationBridge) handleBatch(payload string) {
	var changes []DomChange
	if err := json.Unmarshal([]byte(payload), &changes); err != nil {
		if b.log != nil {
			b.log.Warnf("mutation bridge: dropping malformed batch: %v", err)
		}
		return
	}
	if len(changes) == 0 {
		return
	}
	for _, cb := range b.snapshot() {
		cb(changes)
	}
}

// bind exposes the batch sink to every frame of every page in the context.
// Must be called once per context; a second call fails inside the engine
// and is reported as a degraded outcome by the caller.
func (b *mutationBridge) bind(ctx playwright.BrowserContext) error {
	return ctx.ExposeFunction(observerBindingName, func(args ...interface{}) interface{} {
		if len(args) == 0 {
			return nil
		}
		payload, ok := args[0].(string)
		if !ok {
			return nil
		}
		b.handleBatch(payload)
		return nil
	})
}

// install (re)injects the observer into a page's main frame. Called on
// every navigation-committed event; the script's own guard flag makes
// repeat installs within one document lifetime a no-op.
func (b *mutationBridge) install(page playwright.Page) Outcome {
	const op = "mutation observer install"
	if _, err := page.Evaluate(observerScript); err != nil {
		return Failed(op, fmt.Errorf("page %s: %w", page.URL(), err))
	}
	return OK(op)
}

// installFrame injects the observer into a newly attached frame.
// Cross-origin frames cannot be evaluated into and are skipped silently.
func (b *mutationBridge) installFrame(frame playwright.Frame) Outcome {
	const op = "mutation observer frame install"
	if _, err := frame.Evaluate(observerScript); err != nil {
		return Degraded(op, "frame not inspectable (likely cross-origin)")
	}
	return OK(op)
}
