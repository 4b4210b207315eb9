package pipeline

import (
	"errors"
	"fmt"
)

// ErrEmptyDocument is returned by Run for an empty input buffer.
var ErrEmptyDocument = errors.New("document is empty")

// StageError aborts the pipeline. It records the stage that failed, the
// reports of every stage attempted up to and including it, and unwraps to
// the remote operation error that caused it.
type StageError struct {
	Stage   State
	Tool    string
	Err     error
	Reports []Report
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline aborted at %s (%s): %v", e.Stage, e.Tool, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage recorded in err's StageError, or "" if none.
func FailedStage(err error) State {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// FailedReports returns the stage reports carried by err's StageError, or nil.
func FailedReports(err error) []Report {
	var se *StageError
	if errors.As(err, &se) {
		return se.Reports
	}
	return nil
}
