package kernel

import "testing"

func TestInterpolateCrossingMidpointLinear(t *testing.T) {
	// A linear ramp from 0 to 2 with constant slope 2 crosses threshold
	// 1.0 exactly at the midpoint, regardless of the spline fit.
	offset, err := InterpolateCrossing(0.0, 2.0, 2.0, 2.0, 1.0)
	if err != nil {
		t.Fatalf("InterpolateCrossing: %v", err)
	}
	if diff := offset - 0.5; diff < -1e-6 || diff > 1e-6 {
		t.Fatalf("offset = %v, want ~0.5", offset)
	}
}

func TestInterpolateCrossingRejectsNonBracketingSamples(t *testing.T) {
	if _, err := InterpolateCrossing(1.0, 0.0, 2.0, 0.0, 0.5); err == nil {
		t.Fatal("expected an error when v0 already exceeds threshold")
	}
	if _, err := InterpolateCrossing(0.0, 0.0, 1.0, 0.0, 1.5); err == nil {
		t.Fatal("expected an error when v1 never reaches threshold")
	}
}
