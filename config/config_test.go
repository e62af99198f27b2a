package config

import "testing"

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	d, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if d.Resolution != 0.1 {
		t.Errorf("Resolution = %v, want 0.1", d.Resolution)
	}
	if d.BufferSizeSpikeData != 256 {
		t.Errorf("BufferSizeSpikeData = %d, want 256", d.BufferSizeSpikeData)
	}
	if !d.AdaptiveSpikeBuffers {
		t.Errorf("AdaptiveSpikeBuffers = false, want true")
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("SPIKEKERNEL_BUFFER_SIZE_SPIKE_DATA", "64")
	d, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if d.BufferSizeSpikeData != 64 {
		t.Errorf("BufferSizeSpikeData = %d, want 64 (env override)", d.BufferSizeSpikeData)
	}
}
