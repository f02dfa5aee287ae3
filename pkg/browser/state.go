package browser

import "fmt"

// lifecycleState names the phases of a controller's browser context. The
// explicit machine keeps Recreate and Teardown from racing Initialize:
// every transition is guarded, and illegal ones fail loudly instead of
// corrupting a half-built context.
type lifecycleState int

const (
	stateUninitialized lifecycleState = iota
	stateStarting
	stateReady
	stateRecreating
	stateClosed
)

func (s lifecycleState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateStarting:
		return "starting"
	case stateReady:
		return "ready"
	case stateRecreating:
		return "recreating"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("lifecycleState(%d)", int(s))
	}
}

// validTransitions enumerates the legal edges. Closed is terminal except
// for the idempotent close-on-closed no-op, which is handled before the
// guard.
var validTransitions = map[lifecycleState][]lifecycleState{
	stateUninitialized: {stateStarting, stateClosed},
	stateStarting:      {stateReady, stateUninitialized, stateClosed},
	stateReady:         {stateRecreating, stateClosed},
	stateRecreating:    {stateReady, stateClosed},
	stateClosed:        {},
}

// transition moves the machine to a new state, or errors when the edge is
// not legal from the current state.
func (c *Controller) transition(to lifecycleState) error {
	for _, allowed := range validTransitions[c.state] {
		if allowed == to {
			c.state = to
			return nil
		}
	}
	return fmt.Errorf("browser: invalid lifecycle transition %s -> %s for stake %q", c.state, to, c.stake)
}
