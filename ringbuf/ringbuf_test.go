package ringbuf

import (
	"testing"

	"github.com/SynapticNetworks/spike-kernel/clock"
)

func TestGetValueZeroesSlot(t *testing.T) {
	c := clock.New(0.1, 1000)
	if err := c.SetDelayBounds(2, 5); err != nil {
		t.Fatalf("SetDelayBounds: %v", err)
	}
	table := clock.NewModuloTable(c)
	rb := New(table)

	rb.AddValue(3, 7.5)
	if got := rb.GetValue(3); got != 7.5 {
		t.Fatalf("GetValue = %v, want 7.5", got)
	}
	if got := rb.GetValue(3); got != 0 {
		t.Fatalf("second GetValue = %v, want 0 (idempotence)", got)
	}
}

func TestAddValueAccumulates(t *testing.T) {
	c := clock.New(0.1, 1000)
	c.SetDelayBounds(2, 5)
	table := clock.NewModuloTable(c)
	rb := New(table)

	rb.AddValue(1, 2.0)
	rb.AddValue(1, 3.0)
	if got := rb.GetValue(1); got != 5.0 {
		t.Fatalf("accumulated value = %v, want 5.0", got)
	}
}

func TestClearZeroesAllSlots(t *testing.T) {
	c := clock.New(0.1, 1000)
	c.SetDelayBounds(2, 5)
	table := clock.NewModuloTable(c)
	rb := New(table)
	for d := 0; d < rb.Len(); d++ {
		rb.AddValue(d, 1.0)
	}
	rb.Clear()
	for lag := 0; lag < int(c.MinDelay()); lag++ {
		if got := rb.GetValue(lag); got != 0 {
			t.Fatalf("slot %d not cleared: %v", lag, got)
		}
	}
}
