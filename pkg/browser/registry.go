package browser

import (
	"sort"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/stakeout/pkg/config"
	"github.com/entrhq/stakeout/pkg/logging"
)

// Registry maps stake keys to their controllers. Lookup with the same key
// always yields the same controller until that session is closed; an empty
// key resolves to the default session, which is the first session ever
// created (or whichever session was promoted after the default closed).
type Registry struct {
	mu         sync.Mutex
	sessions   map[string]*Controller
	defaultKey string

	settings config.Settings
	pw       *playwright.Playwright
	paths    artifactPaths
	log      *logging.Logger
}

func newRegistry(settings config.Settings, pw *playwright.Playwright, paths artifactPaths, log *logging.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Controller),
		settings: settings,
		pw:       pw,
		paths:    paths,
		log:      log,
	}
}

// resolve maps the empty key to the default session's key. When no default
// exists yet, the sentinel key names the session about to be created.
func (r *Registry) resolve(stake string) string {
	if stake != "" {
		return stake
	}
	if r.defaultKey != "" {
		return r.defaultKey
	}
	return DefaultStake
}

// GetOrCreate returns the controller for a stake, creating and initializing
// it on first use. Creation is atomic under the registry lock, so two
// callers racing on a new key observe one controller. The first session
// created becomes the default.
func (r *Registry) GetOrCreate(stake string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.resolve(stake)
	if ctrl, ok := r.sessions[key]; ok {
		if err := ctrl.Initialize(); err != nil {
			return nil, err
		}
		return ctrl, nil
	}

	ctrl := newController(key, r.settings, r.pw, r.paths, r.log)
	if err := ctrl.Initialize(); err != nil {
		return nil, err
	}
	r.sessions[key] = ctrl
	if r.defaultKey == "" {
		r.defaultKey = key
		r.log.Infof("registry: session %q is the default", key)
	}
	r.log.Infof("registry: created session %q (%d open)", key, len(r.sessions))
	return ctrl, nil
}

// Get returns the controller for a stake without creating one.
func (r *Registry) Get(stake string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctrl, ok := r.sessions[r.resolve(stake)]
	if !ok {
		return nil, ErrUnknownStake
	}
	return ctrl, nil
}

// Stakes returns the open session keys in sorted order.
func (r *Registry) Stakes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.sessions))
	for key := range r.sessions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Close tears a session down and removes it. Closing the default session
// promotes the lowest remaining key to default so the empty-key lookup
// stays deterministic. Closing an unknown stake is a no-op.
func (r *Registry) Close(stake string) {
	r.mu.Lock()
	key := r.resolve(stake)
	ctrl, ok := r.sessions[key]
	if ok {
		delete(r.sessions, key)
		if key == r.defaultKey {
			r.defaultKey = ""
			remaining := make([]string, 0, len(r.sessions))
			for k := range r.sessions {
				remaining = append(remaining, k)
			}
			if len(remaining) > 0 {
				sort.Strings(remaining)
				r.defaultKey = remaining[0]
				r.log.Infof("registry: promoted session %q to default", r.defaultKey)
			}
		}
	}
	r.mu.Unlock()

	if ok {
		ctrl.Teardown()
		r.log.Infof("registry: closed session %q", key)
	}
}

// CloseAll tears every session down and clears the registry.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Controller)
	r.defaultKey = ""
	r.mu.Unlock()

	for key, ctrl := range sessions {
		ctrl.Teardown()
		r.log.Infof("registry: closed session %q", key)
	}
}
