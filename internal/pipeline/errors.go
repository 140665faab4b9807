package pipeline

import (
	"errors"
	"fmt"
)

// ErrMissingDescription gates the first stage.
var ErrMissingDescription = errors.New("product description is required")

// ErrNoRecords marks a required stage that produced no valid records.
var ErrNoRecords = errors.New("no valid records")

// StageError is a stage failure. Hard failures abort dependent stages and
// clear the run's success flag; soft failures are only reported.
type StageError struct {
	Stage string
	Hard  bool
	Err   error
}

func (e *StageError) Error() string {
	severity := "soft"
	if e.Hard {
		severity = "hard"
	}
	return fmt.Sprintf("stage %s failed (%s): %v", e.Stage, severity, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// IsHardFailure reports whether err is a hard StageError.
func IsHardFailure(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Hard
	}
	return false
}

// panicError wraps a recovered panic value.
type panicError struct {
	value any
}

func (p *panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }
