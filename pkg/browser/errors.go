package browser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrClosed is returned for operations on a session whose controller
	// has been torn down.
	ErrClosed = errors.New("browser: session closed")

	// ErrNoContext is returned when a context is required but could not be
	// constructed.
	ErrNoContext = errors.New("browser: no browser context")

	// ErrUnknownStake is returned by lookups that do not create.
	ErrUnknownStake = errors.New("browser: unknown stake")
)

// InstallError reports that the requested browser binary is not installed.
// It is the only configuration-class error: not retried, surfaced to the
// caller with everything needed to fix the configuration.
type InstallError struct {
	Browser        string
	Channel        string
	ExecutablePath string
	Err            error
}

func (e *InstallError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "browser %q is not installed", e.Browser)
	if e.Channel != "" {
		fmt.Fprintf(&b, " (channel %q)", e.Channel)
	}
	if e.ExecutablePath != "" {
		fmt.Fprintf(&b, " (executable path %q)", e.ExecutablePath)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *InstallError) Unwrap() error { return e.Err }

// isMissingExecutable classifies engine launch errors caused by an absent
// browser binary.
func isMissingExecutable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "executable doesn't exist") ||
		strings.Contains(msg, "executable does not exist") ||
		strings.Contains(msg, "no such file or directory")
}

// isStaleProfile classifies launch errors caused by a profile directory left
// in a bad state by a previous run. These are retried once with a fresh
// temporary profile.
func isStaleProfile(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "has been closed") ||
		strings.Contains(msg, "context already closed") ||
		strings.Contains(msg, "singletonlock") ||
		strings.Contains(msg, "profile directory is already in use")
}
