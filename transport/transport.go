/*
=================================================================================
ALL-TO-ALL TRANSPORT
=================================================================================

The inter-process transport itself stays out of the core's scope; it
is named only by its interface: an opaque all-to-all primitive with
fixed per-rank chunk sizes. AllToAller is that interface, generic over
the fixed-size wire record type it carries (types.SpikeData,
types.OffGridSpikeData, types.TargetData or types.SecondaryEventData)
so the delivery manager
never has to flatten records to bytes itself - no byte-order
conversion is performed, a homogeneous cluster is assumed, so passing
typed Go slices straight through (as InProcess does) is exactly that
assumption made concrete; only a transport that actually crosses a
real wire (MPI) needs to serialize, and it does so internally.

Two implementations:
  - InProcess: ranks sharing one mutex- and condition-variable-guarded
    Hub (no channels, no goroutines of its own) for single-rank runs and for
    exercising multi-rank protocol logic inside one process (tests,
    the CLI demo). Grounded on channel-based neuron message passing,
    generalized from neuron-to-neuron to rank-to-rank.
  - MPI: wraps github.com/emer/empi/v2/mpi for real multi-process runs,
    grounded on emer/emergent's own dependency on emer/empi (see
    DESIGN.md).
=================================================================================
*/

package transport

import "context"

// AllToAller exchanges one fixed-size chunk of T per rank with every
// other rank: AllToAll(ctx, send) returns a buffer of the same total
// shape where recv[r*chunkSize:(r+1)*chunkSize] holds what rank r
// sent to this rank.
type AllToAller[T any] interface {
	// Rank is this process's rank in [0, NumRanks()).
	Rank() int
	// NumRanks is the total number of participating ranks.
	NumRanks() int
	// AllToAll exchanges send (len(send) must be NumRanks()*chunkSize)
	// and returns the received buffer of the same shape.
	AllToAll(ctx context.Context, send []T, chunkSize int) ([]T, error)
	// Barrier blocks until every rank has called Barrier, used for
	// optional cross-rank synchronization for measurement purposes.
	Barrier(ctx context.Context) error
}
