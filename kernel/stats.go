package kernel

import "github.com/SynapticNetworks/spike-kernel/delivery"

// Stats exposes the run counters: comm_rounds_spike_data,
// comm_rounds_target_data, adaptive-buffer doublings, and the
// spikes-collocated/delivered conservation pair used by the
// boundary-case tests.
func (c *Context) Stats() delivery.Stats {
	c.mu.Lock()
	mgr := c.mgr
	c.mu.Unlock()
	if mgr == nil {
		return delivery.Stats{}
	}
	return mgr.Stats.Snapshot()
}
