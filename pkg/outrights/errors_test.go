package outrights

import "testing"

func TestNewErrorPanicsOnOddContext(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected newError to panic on an odd number of context args")
		}
	}()
	newError(KindMalformedData, "bad context", "only-key")
}

func TestIsKindMatchesDirectError(t *testing.T) {
	err := newError(KindSeedingInfeasible, "nope")
	if !IsKind(err, KindSeedingInfeasible) {
		t.Error("expected IsKind to match a direct PipelineError")
	}
	if IsKind(err, KindMissingData) {
		t.Error("expected IsKind to reject the wrong Kind")
	}
}

func TestIsKindMatchesWrappedError(t *testing.T) {
	inner := newError(KindTrainingFailed, "optimizer diverged")
	outer := wrapError(KindTrainingFailed, "fit failed", inner)
	if !IsKind(outer, KindTrainingFailed) {
		t.Error("expected IsKind to match via the wrapped error's own Kind")
	}
}

func TestErrorsErrorJoinsMultipleMessages(t *testing.T) {
	errs := &Errors{Errors: []*PipelineError{
		newError(KindMalformedData, "field a bad"),
		newError(KindMalformedData, "field b bad"),
	}}
	msg := errs.Error()
	if msg == "" {
		t.Error("expected a non-empty aggregated error message")
	}
}

func TestErrorsErrorSingleElement(t *testing.T) {
	single := &Errors{Errors: []*PipelineError{newError(KindMissingData, "oops")}}
	if single.Error() != "MissingData: oops" {
		t.Errorf("Error() = %q, want %q", single.Error(), "MissingData: oops")
	}
}
