package trigger

import (
	"context"

	"github.com/rickgao/tpwatch/internal/model"
)

// Callback receives the combined output of a batch's triggers.
// Every callback of a batch gets the same slice and must not modify it.
type Callback func(ctx context.Context, data []model.Entity) error

// Batch groups triggers with the callbacks they feed.
type Batch struct {
	Name      string
	Triggers  []*Trigger
	Callbacks []Callback
}

// BatchResult summarizes one Run. It is informational; failures have already been logged.
type BatchResult struct {
	Fired          int
	TriggerErrors  []error
	CallbackErrors []error
}

// NewBatch creates a batch.
func NewBatch(name string, triggers []*Trigger, callbacks ...Callback) *Batch {
	return &Batch{
		Name:      name,
		Triggers:  triggers,
		Callbacks: callbacks,
	}
}

// Run evaluates every trigger and, if any produced data, invokes every callback once.
func (b *Batch) Run(ctx context.Context, pc PollContext) BatchResult {
	data, triggerErrs := b.RunTriggers(ctx, pc)

	result := BatchResult{
		Fired:         len(data),
		TriggerErrors: triggerErrs,
	}
	if len(data) > 0 {
		result.CallbackErrors = b.RunCallbacks(ctx, pc, data)
	}
	return result
}

// RunTriggers evaluates the triggers in order and concatenates their output.
// A failing trigger is logged and skipped.
func (b *Batch) RunTriggers(ctx context.Context, pc PollContext) ([]model.Entity, []error) {
	logger := pc.logger()

	var data []model.Entity
	var errs []error
	for i, t := range b.Triggers {
		out, err := evaluate(ctx, t, pc)
		if err != nil {
			evalErr := &EvaluationError{Batch: b.Name, Trigger: t.Name(), Index: i, Err: err}
			logger.Warn("trigger evaluation failed",
				"batch", b.Name,
				"trigger", t.Name(),
				"index", i,
				"err", err,
			)
			errs = append(errs, evalErr)
			continue
		}
		data = append(data, out...)
	}
	return data, errs
}

// RunCallbacks invokes each callback with data. A failing callback is logged and
// does not prevent the rest from running.
func (b *Batch) RunCallbacks(ctx context.Context, pc PollContext, data []model.Entity) []error {
	logger := pc.logger()

	var errs []error
	for i, cb := range b.Callbacks {
		if err := invoke(ctx, cb, data); err != nil {
			logger.Warn("callback failed",
				"batch", b.Name,
				"index", i,
				"entities", len(data),
				"err", err,
			)
			errs = append(errs, &CallbackError{Batch: b.Name, Index: i, Err: err})
		}
	}
	return errs
}

func evaluate(ctx context.Context, t *Trigger, pc PollContext) (out []model.Entity, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, panicError(r)
		}
	}()
	return t.Evaluate(ctx, pc)
}

func invoke(ctx context.Context, cb Callback, data []model.Entity) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return cb(ctx, data)
}
