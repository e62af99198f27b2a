/*
=================================================================================
SIMULATION MANAGER - THE DRIVER LOOP
=================================================================================

Simulate is the driver loop made concrete: for every slice in
[now, now+duration) step by min_delay, update every node on its owning
thread in parallel (a fork-join region - every other thread blocks at
the same barrier until the whole region returns), gather spike data to
completion, advance the clock by exactly one slice, and rotate the
modulo table to match. The secondary-event phase and target-table
gather happen once - the former at the very end of the call, the
latter lazily the first time Simulate runs after any Connect calls.

Grounded on extracellular/matrix.go's top-level Tick/Update
orchestration, generalized from a continuous-time tick loop to a
fixed-slice discrete-event one.
=================================================================================
*/

package kernel

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/SynapticNetworks/spike-kernel/delivery"
	"github.com/SynapticNetworks/spike-kernel/types"
)

// Simulate advances the kernel by durationMS milliseconds, in whole
// slices, returning an error if any node update or gather round fails.
func (c *Context) Simulate(ctx context.Context, durationMS float64) error {
	if err := c.ensureGatherReady(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	startStep := c.clk.NowSteps()
	stepResolution := c.clk.Resolution()
	c.mu.Unlock()

	targetStep := startStep + types.Step(durationMS/stepResolution+0.5)

	for {
		c.mu.Lock()
		from, to := c.clk.SliceBounds()
		mgr := c.mgr
		c.mu.Unlock()
		if from >= targetStep {
			break
		}

		if err := c.updateSlice(ctx, from, to); err != nil {
			return err
		}
		if err := mgr.GatherSpikeData(ctx, from, to); err != nil {
			return err
		}

		c.mu.Lock()
		c.clk.Advance()
		c.table.Rotate(c.clk)
		c.mu.Unlock()
	}

	c.mu.Lock()
	mgr, pending, secondTransport := c.mgr, c.pendingSecondary, c.secondTransport
	c.mu.Unlock()
	return mgr.GatherSecondaryEvents(ctx, pending, secondTransport)
}

// ensureGatherReady lazily builds the delivery manager and runs the
// connect-time target gather exactly once, the first time Simulate is
// called after construction or after any Connect call that followed a
// prior gather.
func (c *Context) ensureGatherReady(ctx context.Context) error {
	c.mu.Lock()
	if c.mgr == nil {
		c.mgr = delivery.New(delivery.Config{
			Clock:            c.clk,
			Table:            c.table,
			Registers:        c.regs,
			Connections:      c.conns,
			OnGridTransport:  c.onGridTransport,
			OffGridTransport: c.offGridTransport,
			OffGridSpiking:   c.status.OffGridSpiking,
			AdaptiveBuffers:  c.status.AdaptiveSpikeBuffers,
			ChunkSize:        c.status.BufferSizeSpikeData,
		})
	}
	needsGather := !c.targetGatherDone
	c.targetGatherDone = true
	mgr, pending, targetTransport := c.mgr, c.pendingTargets, c.targetTransport
	c.mu.Unlock()

	if !needsGather {
		return nil
	}
	return mgr.GatherTargetData(ctx, pending, targetTransport)
}

// updateSlice runs Update(origin, 0, minDelay) on every node, one
// goroutine per thread, and waits for all of them (the fork-join
// barrier).
func (c *Context) updateSlice(ctx context.Context, from, to types.Step) error {
	c.mu.Lock()
	minDelay := int32(c.clk.MinDelay())
	c.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for t := 0; t < c.numThreads; t++ {
		t := t
		g.Go(func() error {
			c.mu.Lock()
			threadNodes := c.nodes[t]
			c.mu.Unlock()
			for _, n := range threadNodes {
				if err := n.Update(from, 0, minDelay); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
