package deferral

import (
	"errors"
	"fmt"
)

// Status classifies the result of one Process call.
type Status int

const (
	// StatusOK means the batch was handled, possibly with per-declaration
	// deferrals.
	StatusOK Status = iota

	// StatusDeferred means the call gave up on the batch with a single
	// signal, scoped by Scope.
	StatusDeferred

	// StatusFault means the generator failed unexpectedly. The failure is
	// isolated to this generator and reported as one diagnostic.
	StatusFault

	// StatusFatal means the run must abort.
	StatusFatal
)

// String returns a lower-case name for the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDeferred:
		return "deferred"
	case StatusFault:
		return "fault"
	case StatusFatal:
		return "fatal"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the typed result of Generator.Process.
type Outcome struct {
	Status Status

	// Deferrals holds per-declaration deferral requests (StatusOK), or the
	// single batch-wide signal (StatusDeferred).
	Deferrals []*Signal

	// Err is set for StatusFault and StatusFatal.
	Err error
}

// OK reports a handled batch with zero or more deferral requests.
func OK(deferrals ...*Signal) Outcome {
	return Outcome{Status: StatusOK, Deferrals: deferrals}
}

// Deferred reports that the whole call was deferred by sig.
func Deferred(sig *Signal) Outcome {
	return Outcome{Status: StatusDeferred, Deferrals: []*Signal{sig}}
}

// Fault reports an isolated generator failure.
func Fault(err error) Outcome {
	return Outcome{Status: StatusFault, Err: err}
}

// Fatal reports a failure that aborts the run.
func Fatal(err error) Outcome {
	return Outcome{Status: StatusFatal, Err: err}
}

// FromError classifies err returned by a generator:
//   - nil: OK
//   - *Signal (possibly wrapped): Deferred
//   - *FatalError (possibly wrapped): Fatal
//   - anything else: Fault
func FromError(err error) Outcome {
	if err == nil {
		return OK()
	}
	if IsFatal(err) {
		return Fatal(err)
	}
	if sig, ok := AsSignal(err); ok {
		return Deferred(sig)
	}
	return Fault(err)
}

// FatalError marks a generator error as fatal to the run.
type FatalError struct {
	Err error
}

// MarkFatal wraps err so that FromError classifies it as Fatal.
func MarkFatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err carries a FatalError marker.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
