/*
=================================================================================
KERNEL STATUS DICTIONARY
=================================================================================

SetKernelStatus/GetKernelStatus are dict-in, dict-out calls against a
fixed set of named properties. Status is that dict's typed Go shape;
config.Load (config package) produces the initial values via viper,
and SetKernelStatus mutates this struct field by field with the usual
guards applied (resolution frozen once the network is non-empty,
tics_per_step read-only always).
=================================================================================
*/

package kernel

import "github.com/SynapticNetworks/spike-kernel/kernelapi"

// Status mirrors the kernel's named, settable properties.
type Status struct {
	Resolution            float64 // ms per step; SetResolution requires an empty network
	TicsPerMS             float64
	TotalNumVirtualProcs  int
	OffGridSpiking        bool
	OverwriteFiles        bool
	AdaptiveSpikeBuffers  bool
	AdaptiveTargetBuffers bool
	BufferSizeSpikeData   int
	BufferSizeTargetData  int

	// TicsPerStep is derived and read-only; exposed for GetKernelStatus
	// only, never settable through SetKernelStatus.
	TicsPerStep int64
}

func defaultStatus(numThreads int) Status {
	return Status{
		Resolution:            0.1,
		TicsPerMS:              1000.0,
		TotalNumVirtualProcs:  numThreads,
		OffGridSpiking:        false,
		OverwriteFiles:        false,
		AdaptiveSpikeBuffers:  true,
		AdaptiveTargetBuffers: true,
		BufferSizeSpikeData:   256,
		BufferSizeTargetData:  256,
	}
}

// GetKernelStatus returns a snapshot of the current status dict, plus
// the read-only derived fields. Run counters are reported by Stats.
func (c *Context) GetKernelStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.status
	s.TicsPerStep = int64(c.clk.TicsPerStep())
	return s
}

// SetKernelStatus applies a partial update, using apply to mutate a
// copy of the current status before validating and committing it:
// callers set exactly the fields they want changed, without needing a
// reflection-based dict type.
func (c *Context) SetKernelStatus(apply func(*Status)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.status
	apply(&next)

	if next.TotalNumVirtualProcs != c.status.TotalNumVirtualProcs {
		return &kernelapi.BadProperty{Property: "total_num_virtual_procs", Reason: "cannot change thread count after construction"}
	}
	if next.Resolution != c.status.Resolution {
		if err := c.clk.SetResolution(next.Resolution); err != nil {
			return err
		}
	}
	c.status = next
	return nil
}
