/*
=================================================================================
SPIKE REGISTER
=================================================================================

The spike register is the handoff point between node update and the
gather phase: while a thread updates its nodes it appends one Target
per outgoing connection per firing neuron, partitioned by
(owning thread, collating thread, lag). The owning-thread axis needs no
lock since a node's owning thread is also the only thread that ever
emits on its behalf (Emit never needs a lock). The collating-thread
axis exists so the gather phase's per-rank drain can run one goroutine
per collating thread with no two goroutines ever touching the same
(lag, Target) slot: a given Target is written into exactly one
collator's bucket, chosen by the destination rank's round-robin owner,
the same partition delivery.assignedRanks computes. Dropping this axis
(as an earlier revision of this file did) means every collating thread
must scan every owning thread's whole register and filter by rank,
which leaves multiple goroutines writing Target.Processed on the same
slice elements - exactly the kind of concurrent, unsynchronized write
this design is built to avoid.

Grounded on NEST's own spike_register_5g_, a
[owning thread][collating thread][lag] structure for the identical
reason (nestkernel/event_delivery_manager.cpp).
=================================================================================
*/

package register

import "github.com/SynapticNetworks/spike-kernel/types"

// Visitor is called once per (lag, *Target) pair during IterateFor. It
// returns true if the Target was successfully collocated into a send
// chunk this round, which IterateFor records as Target.Processed.
type Visitor func(lag int32, target *types.Target) (processed bool)

// Register holds one owning thread's outstanding spikes, bucketed by
// the local thread that will collate them (chosen by destination rank
// at Emit time) and then by lag within the current slice.
type Register struct {
	numCollators int
	minDelay     int32
	byCollator   [][][]types.Target // [collator][lag]
}

// New allocates a Register for a slice with the given min_delay (the
// number of lag buckets), partitioned across numCollators collating
// threads (the process's local thread count).
func New(numCollators int, minDelay int32) *Register {
	byCollator := make([][][]types.Target, numCollators)
	for c := range byCollator {
		byCollator[c] = make([][]types.Target, minDelay)
	}
	return &Register{
		numCollators: numCollators,
		minDelay:     minDelay,
		byCollator:   byCollator,
	}
}

// collatorFor returns the local thread responsible for collating
// sends to target.Rank, round-robin - the same rule
// delivery.assignedRanks partitions by.
func (r *Register) collatorFor(target types.Target) int {
	if r.numCollators <= 0 {
		return 0
	}
	return int(target.Rank) % r.numCollators
}

// Emit appends target to the bucket for lag, within the collator
// bucket its destination rank round-robins to. Never blocks, never
// locks: the caller is assumed to be the register's one owning
// thread, and only that owning thread ever writes here.
func (r *Register) Emit(lag int32, target types.Target) {
	c := r.collatorFor(target)
	r.byCollator[c][lag] = append(r.byCollator[c][lag], target)
}

// IterateFor calls visit once for every (lag, Target) pair currently
// held in collator's bucket, in lag order, marking each Target's
// Processed flag from the visitor's return value. Safe to call
// concurrently with another goroutine's IterateFor on a different
// collator index of the same Register, since the two never touch the
// same bucket. It may be called more than once per slice (once per
// gather round); entries already CleanFor-ed from a prior round are
// not seen again.
func (r *Register) IterateFor(collator int32, visit Visitor) {
	buckets := r.byCollator[collator]
	for lag := range buckets {
		bucket := buckets[lag]
		for i := range bucket {
			bucket[i].Processed = visit(int32(lag), &bucket[i])
		}
	}
}

// CleanFor removes every Target flagged Processed from collator's
// bucket, compacting each lag slice in place. Called between gather
// rounds, once per collator, and only ever by the one goroutine
// responsible for that collator this round.
func (r *Register) CleanFor(collator int32) {
	buckets := r.byCollator[collator]
	for lag := range buckets {
		bucket := buckets[lag]
		kept := bucket[:0]
		for _, t := range bucket {
			if !t.Processed {
				kept = append(kept, t)
			}
		}
		buckets[lag] = kept
	}
}

// Reset clears every bucket, across every collator. Called at slice
// start and slice end.
func (r *Register) Reset() {
	for c := range r.byCollator {
		for lag := range r.byCollator[c] {
			r.byCollator[c][lag] = r.byCollator[c][lag][:0]
		}
	}
}

// EmptyFor reports whether collator's bucket has been fully drained.
func (r *Register) EmptyFor(collator int32) bool {
	for _, bucket := range r.byCollator[collator] {
		if len(bucket) > 0 {
			return false
		}
	}
	return true
}

// Empty reports whether every collator's bucket has been fully
// drained - the "local register empty" half of the gather completion
// rule, from the owning thread's point of view.
func (r *Register) Empty() bool {
	for c := range r.byCollator {
		if !r.EmptyFor(int32(c)) {
			return false
		}
	}
	return true
}

// Len returns the total number of outstanding Targets across every
// collator and lag, for buffer-sizing and back-pressure decisions.
func (r *Register) Len() int {
	n := 0
	for c := range r.byCollator {
		for _, bucket := range r.byCollator[c] {
			n += len(bucket)
		}
	}
	return n
}
