package trigger

import (
	"errors"
	"fmt"
)

var (
	// ErrTriggerEvaluation marks any failure inside Trigger.Evaluate, including fetch errors.
	ErrTriggerEvaluation = errors.New("trigger evaluation failed")

	// ErrCallback marks any failure inside a batch callback.
	ErrCallback = errors.New("callback failed")

	errNoItemSource    = errors.New("no item source")
	errNoListingSource = errors.New("no listing source")
)

// EvaluationError reports a trigger that failed during a batch run.
type EvaluationError struct {
	Batch   string
	Trigger string
	Index   int
	Err     error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("batch %q: trigger %d (%s): %v", e.Batch, e.Index, e.Trigger, e.Err)
}

func (e *EvaluationError) Unwrap() []error {
	return []error{ErrTriggerEvaluation, e.Err}
}

// CallbackError reports a callback that failed during a batch run.
type CallbackError struct {
	Batch string
	Index int
	Err   error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("batch %q: callback %d: %v", e.Batch, e.Index, e.Err)
}

func (e *CallbackError) Unwrap() []error {
	return []error{ErrCallback, e.Err}
}

// panicError turns a recovered value into an error.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
