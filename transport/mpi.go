/*
=================================================================================
MPI-BACKED TRANSPORT
=================================================================================

MPI wraps github.com/emer/empi/v2/mpi's communicator for real
multi-process runs. emer/empi is the MPI binding already present in
the retrieved pack's dependency graph (emer/emergent requires it, and
other_examples' ccnlab-map-nav simulation driver holds an *mpi.Comm on
its top-level struct exactly the way the Event Delivery Manager holds
an AllToAller here) - it is the one real Go MPI wrapper grounded in
this corpus, so it is the domain-stack choice for the opaque
all-to-all primitive the transport package defines.

mpi.Comm does not expose a raw fixed-stride AllToAll primitive; its
collective is AllGatherV (gather variable-length byte contributions
from every rank to every rank), which subsumes a fixed-chunk all-to-all
when every rank's contribution is padded to the same chunkSize -
exactly the fixed per-rank chunk size shape AllToAller already
requires. Because AllGatherV moves bytes, not Go structs, MPI[T] takes
an explicit Encode/Decode pair at construction: the homogeneous-cluster
assumption licenses a fixed binary.LittleEndian layout with no
per-field byte-order negotiation, but the encoding must still happen
somewhere, and this is the one transport where it's real.
=================================================================================
*/

package transport

import (
	"context"
	"fmt"

	"github.com/emer/empi/v2/mpi"
)

// MPI adapts an *mpi.Comm to AllToAller[T], given a fixed per-record
// byte width and an Encode/Decode pair.
type MPI[T any] struct {
	comm       *mpi.Comm
	recordSize int
	encode     func(T, []byte)
	decode     func([]byte) T
}

// NewMPI wraps an already-initialized MPI communicator. Callers are
// responsible for calling mpi.Init/mpi.Finalize around the process
// lifetime; the kernel never initializes MPI itself. recordSize is the
// fixed encoded width of one T.
func NewMPI[T any](comm *mpi.Comm, recordSize int, encode func(T, []byte), decode func([]byte) T) *MPI[T] {
	return &MPI[T]{comm: comm, recordSize: recordSize, encode: encode, decode: decode}
}

func (m *MPI[T]) Rank() int     { return m.comm.Rank() }
func (m *MPI[T]) NumRanks() int { return m.comm.AllN() }

// AllToAll encodes send to a flat byte buffer, all-gathers it, then
// slices out this rank's view: src's contribution to this rank sits at
// myRank*chunkSize*recordSize..+chunkSize*recordSize within src's row of
// the gathered buffer, since AllGatherV concatenates every rank's full
// contribution (each laid out per-destination-rank) in rank order.
func (m *MPI[T]) AllToAll(ctx context.Context, send []T, chunkSize int) ([]T, error) {
	n := m.NumRanks()
	if len(send) != n*chunkSize {
		return nil, fmt.Errorf("transport/mpi: send has %d records, want %d (numRanks*chunkSize)", len(send), n*chunkSize)
	}

	sendBytes := make([]byte, len(send)*m.recordSize)
	for i, rec := range send {
		m.encode(rec, sendBytes[i*m.recordSize:(i+1)*m.recordSize])
	}

	gathered, err := m.comm.AllGatherV(sendBytes)
	if err != nil {
		return nil, fmt.Errorf("transport/mpi: AllGatherV: %w", err)
	}

	rowBytes := n * chunkSize * m.recordSize
	chunkBytes := chunkSize * m.recordSize
	myRank := m.Rank()
	recv := make([]T, n*chunkSize)
	for src := 0; src < n; src++ {
		start := src*rowBytes + myRank*chunkBytes
		for i := 0; i < chunkSize; i++ {
			off := start + i*m.recordSize
			recv[src*chunkSize+i] = m.decode(gathered[off : off+m.recordSize])
		}
	}
	return recv, nil
}

// Barrier blocks until every rank has called it.
func (m *MPI[T]) Barrier(ctx context.Context) error {
	return m.comm.Barrier()
}
