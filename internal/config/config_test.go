package config

import "testing"

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	rc, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if rc.Pipeline.NumTrials != 10000 {
		t.Errorf("NumTrials = %d, want the default 10000", rc.Pipeline.NumTrials)
	}
	if rc.CacheEnabled {
		t.Error("expected cache.enabled to default to false")
	}
}

func TestLoadRejectsMissingConfigFile(t *testing.T) {
	if _, err := Load("/nonexistent/outrights.yaml"); err == nil {
		t.Error("expected an error loading a nonexistent explicit config file")
	}
}
