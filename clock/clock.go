/*
=================================================================================
CLOCK & SLICING
=================================================================================

The clock holds simulated time as an integer step counter so arithmetic
never drifts the way repeated floating-point ms addition would over a
long run. Time only ever moves forward, and only ever by whole slices:
a slice is the half-open interval [from, from+minDelay)
during which every node is advanced independently by its owning
thread, and min_delay is chosen (by the network's connection set) so
that no spike produced inside a slice can be needed by any node before
the slice ends - that causal-isolation bound is what makes per-thread,
lock-free updates within a slice safe in the first place.
=================================================================================
*/

package clock

import (
	"github.com/SynapticNetworks/spike-kernel/kernelapi"
	"github.com/SynapticNetworks/spike-kernel/types"
)

// Clock is the monotonically non-decreasing simulated-time counter
// plus the derived slicing bounds used by every other kernel
// component. It is not safe for concurrent use; the simulation
// manager owns it and only ever touches it from the single driver
// goroutine, between parallel regions.
type Clock struct {
	ticsPerMS   types.Tic
	ticsPerStep types.Tic

	steps types.Step // current simulation time, in steps

	minDelay types.Step // smallest connection delay across the network, in steps
	maxDelay types.Step // largest connection delay across the network, in steps

	networkEmpty bool // true until the first node/connection is created; once false, resolution is frozen
}

// New constructs a clock at step 0 with the given resolution. h is the
// resolution in ms; ticsPerMS is the tic granularity. ticsPerStep is
// derived so that one step equals h ms exactly under that granularity.
func New(h, ticsPerMS float64) *Clock {
	tpms := types.Tic(ticsPerMS)
	tps := types.Tic(h * ticsPerMS)
	if tps < 1 {
		tps = 1
	}
	return &Clock{
		ticsPerMS:    tpms,
		ticsPerStep:  tps,
		minDelay:     1,
		maxDelay:     1,
		networkEmpty: true,
	}
}

// NowSteps returns the current simulated time in steps.
func (c *Clock) NowSteps() types.Step { return c.steps }

// NowMS returns the current simulated time in milliseconds.
func (c *Clock) NowMS() float64 {
	t := types.Time{Tics: types.Tic(c.steps) * c.ticsPerStep, TicsPerStep: c.ticsPerStep, TicsPerMS: c.ticsPerMS}
	return t.MS()
}

// Resolution returns h in milliseconds.
func (c *Clock) Resolution() float64 {
	return float64(c.ticsPerStep) / float64(c.ticsPerMS)
}

// TicsPerMS and TicsPerStep are read-only after the first node or
// connection is created.
func (c *Clock) TicsPerMS() types.Tic   { return c.ticsPerMS }
func (c *Clock) TicsPerStep() types.Tic { return c.ticsPerStep }

// SetResolution changes h. Only legal while the network is empty.
func (c *Clock) SetResolution(h float64) error {
	if !c.networkEmpty {
		return &kernelapi.BadProperty{Property: "resolution", Reason: "network is not empty"}
	}
	tps := types.Tic(h * float64(c.ticsPerMS))
	if tps < 1 {
		return &kernelapi.BadProperty{Property: "resolution", Reason: "resolution must resolve to at least one tic per step"}
	}
	c.ticsPerStep = tps
	return nil
}

// MarkNetworkNonEmpty freezes the resolution. Called by Create/Connect
// the first time either is invoked.
func (c *Clock) MarkNetworkNonEmpty() { c.networkEmpty = false }

// SetDelayBounds installs the [min_delay, max_delay] pair computed
// from the connection set. Both are in steps and must satisfy
// 1 <= minDelay <= maxDelay. Dynamic reconfiguration of delay bounds
// mid-simulation is not supported; callers are expected to only call
// this before a run starts or between runs after ResetKernel.
func (c *Clock) SetDelayBounds(minDelay, maxDelay types.Step) error {
	if minDelay < 1 {
		return &kernelapi.KernelException{Reason: "min_delay must be >= 1"}
	}
	if maxDelay < minDelay {
		return &kernelapi.KernelException{Reason: "max_delay must be >= min_delay"}
	}
	c.minDelay = minDelay
	c.maxDelay = maxDelay
	return nil
}

// MinDelay and MaxDelay are the global, constant-for-the-run delay
// bounds in steps.
func (c *Clock) MinDelay() types.Step { return c.minDelay }
func (c *Clock) MaxDelay() types.Step { return c.maxDelay }

// RingLength is L = min_delay + max_delay, the ring buffer and moduli
// table length.
func (c *Clock) RingLength() types.Step { return c.minDelay + c.maxDelay }

// SliceBounds returns the current slice's [from, to) step interval;
// to - from is always exactly MinDelay.
func (c *Clock) SliceBounds() (from, to types.Step) {
	return c.steps, c.steps + c.minDelay
}

// Advance moves the clock forward by exactly one slice: between the
// start of two successive slices the clock advances by exactly
// min_delay steps. It is the only way the clock moves.
func (c *Clock) Advance() {
	c.steps += c.minDelay
}
