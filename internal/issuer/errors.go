package issuer

import (
	"errors"
	"fmt"
)

// Step identifies the issuance pipeline stage an error came from.
type Step string

const (
	StepConfig        Step = "config"
	StepKeyGeneration Step = "key-generation"
	StepSerial        Step = "serial"
	StepExtension     Step = "extension"
	StepSigning       Step = "signing"
	StepBuild         Step = "build"
	StepNotYetValid   Step = "not-yet-valid"
	StepExpired       Step = "expired"
	StepVerification  Step = "verification"
)

// Error is the failure type returned by Issue. The pipeline stops at
// the first failing stage, so exactly one Error escapes a failed
// issuance and Step names that stage.
type Error struct {
	Step Step
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(step Step, format string, args ...interface{}) *Error {
	return &Error{Step: step, Err: fmt.Errorf(format, args...)}
}

// StepOf returns the pipeline step recorded on err, or the empty
// string when err carries none.
func StepOf(err error) Step {
	var e *Error
	if errors.As(err, &e) {
		return e.Step
	}
	return ""
}

// IsValidityError reports whether err is a validity window failure on
// either side of the window.
func IsValidityError(err error) bool {
	s := StepOf(err)
	return s == StepNotYetValid || s == StepExpired
}
