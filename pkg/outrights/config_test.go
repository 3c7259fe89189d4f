package outrights

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig should validate cleanly, got %v", err)
	}
}

func TestConfigValidateAggregatesMultipleViolations(t *testing.T) {
	cfg := Config{
		NumTrials:        1,
		RecencyDecayRate: 10,
		CupWinnerBoost:   0,
		RecentFormWindow: -1,
		BracketPolicy:    "nonsense",
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	aggregate, ok := err.(*Errors)
	if !ok {
		t.Fatalf("expected *Errors, got %T", err)
	}
	if len(aggregate.Errors) != 5 {
		t.Errorf("expected all 5 field violations reported, got %d: %v", len(aggregate.Errors), aggregate.Errors)
	}
}

func TestConfigRecencyLambdaClampsToDocumentedBand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecencyDecayRate = 0.01
	if got := cfg.recencyLambda(); got != 0.10 {
		t.Errorf("recencyLambda() = %v, want clamped to 0.10", got)
	}
	cfg.RecencyDecayRate = 0.5
	if got := cfg.recencyLambda(); got != 0.20 {
		t.Errorf("recencyLambda() = %v, want clamped to 0.20", got)
	}
}

func TestConfigRecencyLambdaDisabledAtZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecencyDecayRate = 0
	if got := cfg.recencyLambda(); got != 0 {
		t.Errorf("recencyLambda() = %v, want 0 when RecencyDecayRate is 0", got)
	}
}
