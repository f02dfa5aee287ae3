package browser

import "fmt"

// Status classifies the result of a best-effort operation.
type Status int

const (
	// StatusOK means the operation completed fully.
	StatusOK Status = iota

	// StatusDegraded means the operation was skipped or partially
	// completed by design (disabled feature, absent precondition).
	StatusDegraded

	// StatusFailed means the operation failed but the failure is absorbed
	// at this boundary rather than propagated.
	StatusFailed
)

// Outcome is the explicit result of a best-effort operation. The lifecycle
// controller logs every non-OK outcome at one boundary, so "ignored by
// design" and "silently broken" stay distinguishable in code, tests and
// logs.
type Outcome struct {
	Op     string
	Status Status
	Reason string
	Err    error
}

// OK reports a fully completed operation.
func OK(op string) Outcome {
	return Outcome{Op: op, Status: StatusOK}
}

// Degraded reports an operation skipped or reduced by design.
func Degraded(op, reason string) Outcome {
	return Outcome{Op: op, Status: StatusDegraded, Reason: reason}
}

// Failed reports an absorbed failure.
func Failed(op string, err error) Outcome {
	return Outcome{Op: op, Status: StatusFailed, Err: err}
}

func (o Outcome) String() string {
	switch o.Status {
	case StatusOK:
		return fmt.Sprintf("%s: ok", o.Op)
	case StatusDegraded:
		return fmt.Sprintf("%s: degraded (%s)", o.Op, o.Reason)
	default:
		return fmt.Sprintf("%s: failed: %v", o.Op, o.Err)
	}
}

// outcomeLogger is the single boundary where best-effort results become log
// lines. OK outcomes log at debug so the happy path stays quiet.
type outcomeLogger interface {
	Debugf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

func logOutcome(log outcomeLogger, o Outcome) {
	if log == nil {
		return
	}
	switch o.Status {
	case StatusOK:
		log.Debugf("%s", o)
	case StatusDegraded:
		log.Warnf("%s", o)
	default:
		log.Errorf("%s", o)
	}
}
