/*
=================================================================================
SECONDARY-EVENT PHASE
=================================================================================

Current, rate and data-logging events are rare compared to spikes, so
they get their own exchange rather than sharing the spike buffers: run
once at the final slice of a Simulate call, over a fixed-stride chunk
(each chunk carries its records followed by an End marker, or is
marked Invalid when empty) and
terminated the moment every rank's chunk carries Complete - there is no
adaptive growth here: this phase is scoped to low volume, fixed width.
=================================================================================
*/

package delivery

import (
	"context"

	"github.com/SynapticNetworks/spike-kernel/transport"
	"github.com/SynapticNetworks/spike-kernel/types"
	"github.com/SynapticNetworks/spike-kernel/wire"
)

// PendingSecondary accumulates per-thread secondary-event rows awaiting
// the end-of-run exchange.
type PendingSecondary struct {
	rows [][]secondaryRow
}

type secondaryRow struct {
	destRank int32
	data     types.SecondaryEventData
}

// NewPendingSecondary allocates a PendingSecondary for numThreads
// threads.
func NewPendingSecondary(numThreads int) *PendingSecondary {
	return &PendingSecondary{rows: make([][]secondaryRow, numThreads)}
}

// Add records that thread tid must deliver data to destRank.
func (p *PendingSecondary) Add(tid int, destRank int32, data types.SecondaryEventData) {
	p.rows[tid] = append(p.rows[tid], secondaryRow{destRank: destRank, data: data})
}

// GatherSecondaryEvents runs the dense fixed-stride exchange to
// completion, delivering every record to the owning thread's
// Connections.Send.
func (m *Manager) GatherSecondaryEvents(ctx context.Context, pending *PendingSecondary, secondaryTransport transport.AllToAller[types.SecondaryEventData]) error {
	numRanks := secondaryTransport.NumRanks()

	sendBuf := wire.NewSecondaryBuffer(numRanks, m.chunkSize)
	recvBuf := wire.NewSecondaryBuffer(numRanks, m.chunkSize)

	doneFromRank := make([][]bool, m.numThreads)
	for t := range doneFromRank {
		doneFromRank[t] = make([]bool, numRanks)
	}

	for {
		sendBuf.Reset()

		if err := m.parallelThreads(ctx, func(tid int) error {
			rows := pending.rows[tid]
			pending.rows[tid] = nil
			touched := make(map[int32]bool, len(rows))
			var leftover []secondaryRow
			for _, row := range rows {
				if !sendBuf.Place(int(row.destRank), row.data) {
					leftover = append(leftover, row)
					continue
				}
				touched[row.destRank] = true
			}
			pending.rows[tid] = leftover
			for r := 0; r < numRanks; r++ {
				if touched[int32(r)] {
					sendBuf.SetEndMarker(r)
				} else {
					sendBuf.SetInvalidMarker(r)
				}
				if len(leftover) == 0 {
					sendBuf.SetCompleteMarker(r)
				}
			}
			return nil
		}); err != nil {
			return err
		}

		recvFlat, err := secondaryTransport.AllToAll(ctx, sendBuf.Raw(), sendBuf.ChunkSize())
		if err != nil {
			return err
		}
		recvBuf.SetRaw(recvFlat)

		if err := m.parallelThreads(ctx, func(tid int) error {
			conn := m.conns[tid]
			for r := 0; r < numRanks; r++ {
				records, complete := recvBuf.ReadChunk(r)
				if complete {
					doneFromRank[tid][r] = true
				}
				for _, rec := range records {
					if int(rec.Tid) != tid {
						continue
					}
					if err := conn.Send(rec.Tid, rec.SynID, rec.LCID, rec.ToEvent()); err != nil {
						return err
					}
				}
			}
			return nil
		}); err != nil {
			return err
		}

		allDone := true
		for t := 0; t < m.numThreads; t++ {
			for r := 0; r < numRanks; r++ {
				if !doneFromRank[t][r] {
					allDone = false
				}
			}
		}
		if allDone {
			break
		}
	}

	return nil
}
