package outrights

import "fmt"

// Kind identifies one entry of the error taxonomy in spec.md §7. It is a
// classification, not a Go type hierarchy: every failure surfaced by this
// package carries exactly one Kind plus structured Context.
type Kind string

const (
	KindMissingData        Kind = "MissingData"
	KindMalformedData       Kind = "MalformedData"
	KindIdentifierConflict  Kind = "IdentifierConflict"
	KindInsufficientData    Kind = "InsufficientData"
	KindTrainingFailed      Kind = "TrainingFailed"
	KindSeedingInfeasible   Kind = "SeedingInfeasible"
	KindCalibrationSkipped  Kind = "CalibrationSkipped"
	KindCancelled           Kind = "Cancelled"
)

// PipelineError is a structured error: a Kind plus a human-readable message
// plus context identifying where it occurred (season, team, component).
// Adapted from the teacher's ValidationError/ValidationErrors
// (pkg/outrights-mle/validation.go), generalized from a single "field +
// message" validation concern to the full error taxonomy of spec.md §7.
type PipelineError struct {
	Kind    Kind
	Message string
	Context map[string]string
	Cause   error
}

func (e *PipelineError) Error() string {
	if len(e.Context) == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s %v", e.Kind, e.Message, e.Context)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

// newError constructs a PipelineError with the given kind, message, and
// context pairs (key, value, key, value, ...). An odd-length ctx is a
// programmer error and panics, matching the teacher's preference for loud
// failure over a silently truncated context map.
func newError(kind Kind, message string, ctx ...string) *PipelineError {
	if len(ctx)%2 != 0 {
		panic("outrights: newError called with odd number of context args")
	}
	var m map[string]string
	if len(ctx) > 0 {
		m = make(map[string]string, len(ctx)/2)
		for i := 0; i < len(ctx); i += 2 {
			m[ctx[i]] = ctx[i+1]
		}
	}
	return &PipelineError{Kind: kind, Message: message, Context: m}
}

// wrapError is like newError but attaches an underlying cause for errors.Is/
// errors.As chains.
func wrapError(kind Kind, message string, cause error, ctx ...string) *PipelineError {
	e := newError(kind, message, ctx...)
	e.Cause = cause
	return e
}

// Errors aggregates multiple PipelineErrors raised during one validation
// pass (e.g. Config.Validate checking every option before reporting).
// Adapted from the teacher's ValidationErrors.
type Errors struct {
	Errors []*PipelineError
}

func (e *Errors) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d errors:", len(e.Errors))
	for _, sub := range e.Errors {
		msg += " [" + sub.Error() + "]"
	}
	return msg
}

// IsKind reports whether err is a *PipelineError (directly or via Unwrap)
// with the given Kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if pe, ok := err.(*PipelineError); ok {
			return pe.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
