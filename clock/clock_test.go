package clock

import "testing"

func TestSliceBoundsSpanMinDelay(t *testing.T) {
	c := New(0.1, 1000)
	if err := c.SetDelayBounds(3, 7); err != nil {
		t.Fatalf("SetDelayBounds: %v", err)
	}
	from, to := c.SliceBounds()
	if from != 0 {
		t.Fatalf("expected from=0, got %d", from)
	}
	if to-from != c.MinDelay() {
		t.Fatalf("slice width = %d, want min_delay = %d", to-from, c.MinDelay())
	}
}

func TestAdvanceIsExactlyMinDelay(t *testing.T) {
	c := New(0.1, 1000)
	c.SetDelayBounds(5, 9)
	before := c.NowSteps()
	c.Advance()
	if c.NowSteps()-before != 5 {
		t.Fatalf("clock advanced by %d, want min_delay=5", c.NowSteps()-before)
	}
}

func TestResolutionLockedAfterNetworkNonEmpty(t *testing.T) {
	c := New(0.1, 1000)
	c.MarkNetworkNonEmpty()
	if err := c.SetResolution(0.5); err == nil {
		t.Fatal("expected BadProperty once network is non-empty")
	}
}

func TestSetDelayBoundsRejectsInverted(t *testing.T) {
	c := New(0.1, 1000)
	if err := c.SetDelayBounds(5, 3); err == nil {
		t.Fatal("expected KernelException when max_delay < min_delay")
	}
	if err := c.SetDelayBounds(0, 3); err == nil {
		t.Fatal("expected KernelException when min_delay < 1")
	}
}

func TestMinDelayEqualsMaxDelayRingLengthTwo(t *testing.T) {
	c := New(0.1, 1000)
	c.SetDelayBounds(1, 1)
	if c.RingLength() != 2 {
		t.Fatalf("ring length = %d, want 2 (min_delay == max_delay boundary case)", c.RingLength())
	}
}
