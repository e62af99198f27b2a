/*
=================================================================================
RING BUFFER - ON-GRID ACCUMULATOR
=================================================================================

Every target owns exactly one RingBuffer: a circular array of length
L = min_delay + max_delay that accumulates contributions by arrival
step. All access goes through the shared clock.ModuloTable so the
buffer itself never does modular arithmetic on the clock - it only
ever indexes by an already-resolved offset.

Because each target is owned by exactly one thread, this type does no
locking; concurrent access from more than one goroutine is a caller
bug, not something RingBuffer defends against.
=================================================================================
*/

package ringbuf

import "github.com/SynapticNetworks/spike-kernel/clock"

// RingBuffer is the on-grid (double-accumulator) per-target delay
// line, with min_delay+max_delay accumulator slots.
type RingBuffer struct {
	slots []float64
	table *clock.ModuloTable
}

// New allocates a RingBuffer addressed through table, whose length
// must already reflect min_delay+max_delay.
func New(table *clock.ModuloTable) *RingBuffer {
	return &RingBuffer{
		slots: make([]float64, table.Len()),
		table: table,
	}
}

// AddValue accumulates x into the slot for arrival step t+offset,
// where offset is the caller-resolved combined index
// (lag + delay - 1) into the moduli table,.
func (r *RingBuffer) AddValue(offset int, x float64) {
	idx := r.table.Moduli(offset)
	r.slots[idx] += x
}

// GetValue returns the accumulated contribution for the given
// spike-arrival lag of the current slice, and zeros the slot so the
// buffer is immediately reusable by the next slice's rotation - the
// slot must be zeroed before returning, or accumulation would leak
// into a future slice that reuses the same ring index.
func (r *RingBuffer) GetValue(lag int) float64 {
	idx := r.table.Moduli(lag)
	v := r.slots[idx]
	r.slots[idx] = 0
	return v
}

// Resize grows the buffer if the modulo table's length changed (e.g.
// after max_delay increased from a new connection). Existing slots
// are discarded; the invariant only needs to hold from the next slice
// the resized buffer participates in.
func (r *RingBuffer) Resize() {
	if len(r.slots) == r.table.Len() {
		return
	}
	r.slots = make([]float64, r.table.Len())
}

// Clear zeros every slot.
func (r *RingBuffer) Clear() {
	for i := range r.slots {
		r.slots[i] = 0
	}
}

// Len reports the buffer's current length, L = min_delay + max_delay.
func (r *RingBuffer) Len() int { return len(r.slots) }
