/*
=================================================================================
SLICE RING BUFFER - OFF-GRID (PRECISE) DELIVERY QUEUE
=================================================================================

Precise neurons need sub-step delivery order, not just sub-step
accumulation, so the off-grid path replaces RingBuffer's flat
accumulator with nbuff = ceil(L/min_delay) bins, each a min-heap
ordered by (deliver_step, offset). Refractory-end markers share the
same heap as spikes and are defined to tie-break before an
equally-timed spike , since a neuron leaving its
refractory period must be able to re-integrate the spike that arrives
in the very same instant.

container/heap is the stdlib priority-queue primitive; nothing in the
retrieved pack reaches for a third-party heap, so this is the one
ring-buffer piece built directly on the standard library (see
DESIGN.md).
=================================================================================
*/

package ringbuf

import (
	"container/heap"

	"github.com/SynapticNetworks/spike-kernel/clock"
	"github.com/SynapticNetworks/spike-kernel/types"
)

type sliceEntry struct {
	step         types.Step
	offset       float64
	weight       float64
	isRefractory bool
}

// entryHeap implements container/heap.Interface, ordering by
// (step, offset) ascending with refractory-end entries sorting first
// among equal (step, offset) pairs.
type entryHeap []sliceEntry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].step != h[j].step {
		return h[i].step < h[j].step
	}
	if h[i].offset != h[j].offset {
		return h[i].offset < h[j].offset
	}
	return h[i].isRefractory && !h[j].isRefractory
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)   { *h = append(*h, x.(sliceEntry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// SliceRingBuffer is the off-grid analogue of RingBuffer: nbuff bins,
// each a priority queue of pending spikes/refractory markers.
type SliceRingBuffer struct {
	bins  []entryHeap
	table *clock.ModuloTable
}

// NewSlice allocates a SliceRingBuffer with table.NBuff() bins.
func NewSlice(table *clock.ModuloTable) *SliceRingBuffer {
	return &SliceRingBuffer{
		bins:  make([]entryHeap, table.NBuff()),
		table: table,
	}
}

// AddSpike enqueues a precise spike. relDeliverLag is the lag within
// the arriving slice the spike resolves to, stampSteps is the step it
// is delivered at, offset is the sub-step position in [0, h), and
// weight is the resolved connection weight.
func (s *SliceRingBuffer) AddSpike(relDeliverLag int, stampSteps types.Step, offset, weight float64) {
	bin := s.table.SliceModuli(relDeliverLag)
	heap.Push(&s.bins[bin], sliceEntry{step: stampSteps, offset: offset, weight: weight})
}

// AddRefractory enqueues a refractory-end marker at the given step and
// sub-step offset, in the bin matching that (lag-relative) position.
func (s *SliceRingBuffer) AddRefractory(relDeliverLag int, step types.Step, offset float64) {
	bin := s.table.SliceModuli(relDeliverLag)
	heap.Push(&s.bins[bin], sliceEntry{step: step, offset: offset, isRefractory: true})
}

// PrepareDelivery ensures the bin for the current slice is ready to be
// drained in (step, offset) order. container/heap already maintains
// the heap invariant on every push, so this is a no-op kept for
// parity with the reference implementation's explicit sort step and
// as the extension point for a future non-heap backing store.
func (s *SliceRingBuffer) PrepareDelivery(bin int) {}

// GetNextSpike pops the next due entry from bin whose step is <= upTo.
// It returns ok=false if the bin is empty or its head is not yet due.
// When subtractRefractory is true and the head entry is a refractory
// marker, isRefractoryEnd is reported so the caller can transition the
// node back to NodeIntegrating instead of treating it as a spike.
func (s *SliceRingBuffer) GetNextSpike(bin int, upTo types.Step, subtractRefractory bool) (offset, weight float64, isRefractoryEnd bool, ok bool) {
	h := &s.bins[bin]
	if h.Len() == 0 {
		return 0, 0, false, false
	}
	head := (*h)[0]
	if head.step > upTo {
		return 0, 0, false, false
	}
	heap.Pop(h)
	if head.isRefractory {
		if subtractRefractory {
			return head.offset, 0, true, true
		}
		// Refractory markers are only meaningful when the caller asked
		// for them; otherwise skip past it and try the next entry.
		return s.GetNextSpike(bin, upTo, subtractRefractory)
	}
	return head.offset, head.weight, false, true
}

// Pending reports whether bin still has entries left.
func (s *SliceRingBuffer) Pending(bin int) bool { return s.bins[bin].Len() > 0 }

// NBuff is the number of bins.
func (s *SliceRingBuffer) NBuff() int { return len(s.bins) }
