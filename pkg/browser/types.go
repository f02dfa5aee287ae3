package browser

import (
	"time"
)

// DefaultStake is the reserved key used when no stake ID is supplied.
// Supplying it explicitly is equivalent to omitting the key.
const DefaultStake = "default"

// Default values for lifecycle operations.
const (
	// DefaultProbeTimeout bounds the trivial-expression responsiveness
	// probe used during tab reuse.
	DefaultProbeTimeout = 2 * time.Second

	// DefaultSettleTimeout bounds the pre-probe settle wait on a candidate
	// tab.
	DefaultSettleTimeout = 3 * time.Second

	// DefaultScreenshotWait bounds the load-state wait before a capture.
	DefaultScreenshotWait = 5 * time.Second
)

// Geolocation is an emulated position applied to a context.
type Geolocation struct {
	Latitude  float64
	Longitude float64
}

// DomChange is one entry of a mutation batch reported by the injected
// observer: an added element or a changed text node, reduced to its visible
// text content.
type DomChange struct {
	// Kind is "added" for new element nodes, "text" for character-data
	// mutations.
	Kind string `json:"kind"`

	// Tag is the lower-case tag name of the element (or of the nearest
	// element ancestor for text changes).
	Tag string `json:"tag"`

	// Text is the trimmed visible text content.
	Text string `json:"text"`
}

// DomChangeCallback receives each parsed mutation batch. Callbacks run in
// subscription order; a callback that blocks delays the rest of the batch
// fan-out, matching the single-threaded dispatch model.
type DomChangeCallback func(changes []DomChange)

// ScreenshotOptions configures TakeScreenshot.
type ScreenshotOptions struct {
	// FullPage captures the full scrollable page instead of the viewport.
	FullPage bool

	// IncludeTimestamp appends a nanosecond timestamp to the file name,
	// keeping repeated captures under the same logical name distinct.
	IncludeTimestamp bool
}

// SessionArtifacts is the artifact inventory of one session, queryable by
// external callers for reporting.
type SessionArtifacts struct {
	ScreenshotCount int
	LastScreenshot  string
	LastVideo       string
	LastTrace       string
}
