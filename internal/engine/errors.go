package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/turbine/internal/generator"
)

// ErrRunComplete is returned by RunPass after the final pass has run.
var ErrRunComplete = errors.New("run already complete")

// FatalError is an error that aborts the run.
//
// Fatal errors include:
//   - Finalize failures: a generator's Finalize returned an error or panicked
//   - Extraction failures: a generator could not read required data from a
//     validly tagged declaration
//   - Process fatal: any other Fatal outcome from Process
//   - Configuration: invalid registration (e.g. two generators claim a tag)
//
// Deferrals and generator faults never become FatalErrors; they are
// contained within the pass.
type FatalError struct {
	// Code identifies the error category.
	Code FatalErrorCode

	// Generator names the generator involved, if any.
	Generator string

	// Phase is the engine phase the error occurred in.
	Phase Phase

	// Pass is the 1-based pass number, or 0 during construction.
	Pass int

	// Err is the underlying error.
	Err error
}

// FatalErrorCode categorizes fatal errors.
type FatalErrorCode string

const (
	// ErrCodeFinalizeFailed indicates Finalize returned an error.
	ErrCodeFinalizeFailed FatalErrorCode = "FINALIZE_FAILED"

	// ErrCodeExtractionFailed indicates a generator could not extract
	// required data from a declaration.
	ErrCodeExtractionFailed FatalErrorCode = "EXTRACTION_FAILED"

	// ErrCodeProcessFatal indicates Process returned a Fatal outcome.
	ErrCodeProcessFatal FatalErrorCode = "PROCESS_FATAL"

	// ErrCodeConfigInvalid indicates an invalid registration table.
	ErrCodeConfigInvalid FatalErrorCode = "CONFIG_INVALID"
)

// Phase names where in the run an error occurred.
type Phase string

const (
	PhaseConstruct Phase = "construct"
	PhaseProcess   Phase = "process"
	PhaseFinalize  Phase = "finalize"
)

// Error implements the error interface.
func (e *FatalError) Error() string {
	if e.Generator != "" {
		return fmt.Sprintf("%s: generator %s (%s): %v", e.Code, e.Generator, e.Phase, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Phase, e.Err)
}

// Unwrap returns the underlying error.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if err is (or wraps) a FatalError.
// Uses errors.As to handle wrapped errors.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsConfigError returns true if err is a configuration FatalError.
func IsConfigError(err error) bool {
	return hasCode(err, ErrCodeConfigInvalid)
}

// IsFinalizeError returns true if err is a finalize FatalError.
func IsFinalizeError(err error) bool {
	return hasCode(err, ErrCodeFinalizeFailed)
}

// IsExtractionError returns true if err is an extraction FatalError.
func IsExtractionError(err error) bool {
	return hasCode(err, ErrCodeExtractionFailed)
}

func hasCode(err error, code FatalErrorCode) bool {
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

func newConfigError(name string, format string, args ...any) *FatalError {
	return &FatalError{
		Code:      ErrCodeConfigInvalid,
		Generator: name,
		Phase:     PhaseConstruct,
		Err:       fmt.Errorf(format, args...),
	}
}

// newProcessFatal classifies a Fatal outcome from Process.
func newProcessFatal(name string, pass int, err error) *FatalError {
	code := ErrCodeProcessFatal
	var ee *generator.ExtractionError
	if errors.As(err, &ee) {
		code = ErrCodeExtractionFailed
	}
	return &FatalError{
		Code:      code,
		Generator: name,
		Phase:     PhaseProcess,
		Pass:      pass,
		Err:       err,
	}
}

func newFinalizeError(name string, pass int, err error) *FatalError {
	return &FatalError{
		Code:      ErrCodeFinalizeFailed,
		Generator: name,
		Phase:     PhaseFinalize,
		Pass:      pass,
		Err:       err,
	}
}
