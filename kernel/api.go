/*
=================================================================================
EXTERNAL API
=================================================================================

The eight calls that make up the kernel's entire public surface.
Node/connection model construction is always reached through a
registered factory (kernelapi.Factory / kernelapi.ConnectionFactory)
rather than a type switch, keeping model libraries external
collaborators rather than core types - a registry pattern generalized
from health-monitored component registration (component.ComponentType-
style registered construction) to node/connection models.
=================================================================================
*/

package kernel

import (
	"fmt"
	"sync/atomic"

	"github.com/SynapticNetworks/spike-kernel/clock"
	"github.com/SynapticNetworks/spike-kernel/delivery"
	"github.com/SynapticNetworks/spike-kernel/kernelapi"
	"github.com/SynapticNetworks/spike-kernel/register"
	"github.com/SynapticNetworks/spike-kernel/types"
)

// RegisterNodeModel makes a node model available to later Create
// calls under name.
func (c *Context) RegisterNodeModel(name string, factory kernelapi.Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodeModels[name] = factory
}

// RegisterConnectionModel makes a connection (synapse) model available
// to later Connect calls under name.
func (c *Context) RegisterConnectionModel(name string, factory kernelapi.ConnectionFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectionModels[name] = factory
}

// nextGID is shared by every Context in the process, so global ids
// are unique process-wide; it is only touched atomically.
var nextGID int64 = 1

// Create instantiates one node of the registered model on thread tid,
// returning its global id. Creating any node freezes the clock's
// resolution.
func (c *Context) Create(model string, tid int32, params map[string]any) (int64, error) {
	c.mu.Lock()
	factory, ok := c.nodeModels[model]
	if !ok {
		c.mu.Unlock()
		return 0, &kernelapi.UnknownModel{Name: model}
	}
	if int(tid) >= c.numThreads || tid < 0 {
		c.mu.Unlock()
		return 0, &kernelapi.BadProperty{Property: "tid", Reason: "out of range for total_num_virtual_procs"}
	}
	gid := atomic.AddInt64(&nextGID, 1) - 1
	c.clk.MarkNetworkNonEmpty()
	if c.regs == nil {
		c.regs = register.NewRegisters(c.numThreads, int32(c.clk.MinDelay()))
	}
	// Resolved through c rather than captured as a fixed *Register:
	// Connect may still grow min_delay and rebuild c.regs with wider
	// lag buckets before the first Simulate call, and this EmitFunc
	// must see that final sizing, not whatever existed at Create time.
	emit := kernelapi.EmitFunc(func(lag int32, target types.Target) {
		c.mu.Lock()
		reg := c.regs.For(tid)
		c.mu.Unlock()
		reg.Emit(lag, target)
	})
	c.mu.Unlock()

	node, err := factory(gid, tid, params, emit)
	if err != nil {
		return 0, fmt.Errorf("kernel: create %q: %w", model, err)
	}

	c.mu.Lock()
	c.nodes[tid][gid] = node
	c.mu.Unlock()
	return gid, nil
}

// Connect creates one connection of the registered synapse model from
// source to target with the given delay (in steps): it configures the
// local connection table immediately (Connections.Configure) and
// queues the connect-time target gather so the source's presynaptic
// identity reaches the target's table too. delay also widens the
// clock's [min_delay, max_delay] bounds if needed.
func (c *Context) Connect(model string, sourceGID int64, targetTid int32, synID, lcid int32, delay types.Step, params map[string]any) error {
	c.mu.Lock()
	factory, ok := c.connectionModels[model]
	if !ok {
		c.mu.Unlock()
		return &kernelapi.UnknownSynapse{Name: model}
	}
	c.clk.MarkNetworkNonEmpty()
	min, max := c.clk.MinDelay(), c.clk.MaxDelay()
	first := true
	for _, cn := range c.conns {
		if cn != nil {
			first = false
			break
		}
	}
	if first {
		// The first connection sets both bounds rather than widening
		// the construction-time defaults.
		min, max = delay, delay
	}
	if delay < min {
		min = delay
	}
	if delay > max {
		max = delay
	}
	if min != c.clk.MinDelay() || max != c.clk.MaxDelay() {
		if err := c.clk.SetDelayBounds(min, max); err != nil {
			c.mu.Unlock()
			return err
		}
		c.table.Recompute(c.clk)
		if c.regs != nil {
			c.regs = register.NewRegisters(c.numThreads, int32(min))
		}
	}
	if c.conns[targetTid] == nil {
		conn, err := factory(targetTid, synID, params)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("kernel: connect %q: %w", model, err)
		}
		c.conns[targetTid] = conn
	}
	conn := c.conns[targetTid]
	c.targetGatherDone = false
	c.mu.Unlock()

	if err := conn.Configure(sourceGID, synID, lcid, params); err != nil {
		return fmt.Errorf("kernel: connect %q: %w", model, err)
	}

	c.pendingTargets.Add(0, types.TargetData{
		SourceNodeID: sourceGID,
		Rank:         0,
		Tid:          targetTid,
		SynID:        synID,
		LCID:         lcid,
	})
	return nil
}

// WithCurrentSubnet sets the context's current subnet to subnetGID for
// the duration of fn, then restores the previous current subnet when fn
// returns: an explicit scoped form instead of a bare reset call that is
// easy to forget to pair. Create does not read the current subnet, so
// nodes created inside fn are not nested under subnetGID.
func (c *Context) WithCurrentSubnet(subnetGID int64, fn func()) {
	c.mu.Lock()
	prev := c.currentSubnet
	c.currentSubnet = subnetGID
	c.mu.Unlock()

	fn()

	c.mu.Lock()
	c.currentSubnet = prev
	c.mu.Unlock()
}

// ResetKernel discards every node, connection and registered model and
// restores the status dict to its defaults, matching this
// "ResetKernel returns the instance to its post-construction state."
func (c *Context) ResetKernel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for t := range c.nodes {
		c.nodes[t] = make(map[int64]kernelapi.Node)
	}
	c.conns = make([]kernelapi.Connections, c.numThreads)
	c.nodeModels = make(map[string]kernelapi.Factory)
	c.connectionModels = make(map[string]kernelapi.ConnectionFactory)
	c.regs = nil
	c.status = defaultStatus(c.numThreads)
	c.clk = clock.New(c.status.Resolution, c.status.TicsPerMS)
	c.table = clock.NewModuloTable(c.clk)
	c.mgr = nil
	c.pendingTargets = delivery.NewPendingTargets(c.numThreads)
	c.pendingSecondary = delivery.NewPendingSecondary(c.numThreads)
	c.targetGatherDone = false
}
