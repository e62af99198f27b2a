package clock

import "testing"

func TestModuliMatchesFormula(t *testing.T) {
	c := New(0.1, 1000)
	c.SetDelayBounds(3, 5)
	table := NewModuloTable(c)

	L := int(c.RingLength())
	for d := 0; d < L; d++ {
		want := mod(int(c.NowSteps())+d, L)
		if got := table.Moduli(d); got != want {
			t.Errorf("moduli[%d] = %d, want %d", d, got, want)
		}
	}
}

func TestRotateMatchesRecompute(t *testing.T) {
	c := New(0.1, 1000)
	c.SetDelayBounds(4, 6)
	table := NewModuloTable(c)

	for slice := 0; slice < 5; slice++ {
		c.Advance()
		table.Rotate(c)

		fresh := NewModuloTable(c)
		for d := 0; d < table.Len(); d++ {
			if table.Moduli(d) != fresh.Moduli(d) {
				t.Fatalf("slice %d: rotate diverged from recompute at d=%d: %d != %d",
					slice, d, table.Moduli(d), fresh.Moduli(d))
			}
		}
	}
}

func TestModuliInvariantAfterUpdate(t *testing.T) {
	// Invariant: after any moduli update, for all d in
	// [0, L): moduli[d] == (clock_steps + d) mod L.
	c := New(0.1, 1000)
	c.SetDelayBounds(2, 9)
	table := NewModuloTable(c)
	c.Advance()
	table.Rotate(c)

	L := int(c.RingLength())
	for d := 0; d < L; d++ {
		want := mod(int(c.NowSteps())+d, L)
		if got := table.Moduli(d); got != want {
			t.Errorf("moduli[%d] = %d, want %d", d, got, want)
		}
	}
}
