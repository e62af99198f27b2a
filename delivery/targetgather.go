/*
=================================================================================
TARGET-TABLE GATHER
=================================================================================

Connect() calls build the target table lazily and locally: each thread
learns the (rank, tid, syn_id, lcid) tuples its own nodes need to send
to, but not yet which remote nodes point back at it. GatherTargetData
runs the same collocate/exchange/deliver shape as the per-slice spike
gather, but once, over types.TargetData instead of types.SpikeData,
and resolves into kernelapi.Connections.AddTarget rather than Send -
symmetric to the spike-data protocol, just run once at connect time
rather than once per slice.
=================================================================================
*/

package delivery

import (
	"context"
	"sync"

	"github.com/SynapticNetworks/spike-kernel/transport"
	"github.com/SynapticNetworks/spike-kernel/types"
	"github.com/SynapticNetworks/spike-kernel/wire"
)

// PendingTargets accumulates target-table rows awaiting their
// one-time connect-phase exchange, bucketed by the local thread that
// will collate them to their destination rank (round-robin, the same
// partition delivery.assignedRanks computes) rather than by the
// thread whose Connect call produced the row - the collate phase below
// drains and places rows for one collator per goroutine, so the two
// must agree on what "owns" a row or multiple goroutines end up
// calling sendBuf.Place for the same rank.
type PendingTargets struct {
	mu         sync.Mutex
	numThreads int
	rows       [][]pendingRow
}

type pendingRow struct {
	destRank int32
	data     types.TargetData
}

// NewPendingTargets allocates a PendingTargets for numThreads collating
// threads.
func NewPendingTargets(numThreads int) *PendingTargets {
	return &PendingTargets{numThreads: numThreads, rows: make([][]pendingRow, numThreads)}
}

// collatorFor returns the local thread responsible for collating
// sends to destRank, round-robin.
func (p *PendingTargets) collatorFor(destRank int32) int {
	if p.numThreads <= 0 {
		return 0
	}
	return int(destRank) % p.numThreads
}

// Add records that destRank must learn about data at connect time.
func (p *PendingTargets) Add(destRank int32, data types.TargetData) {
	c := p.collatorFor(destRank)
	p.mu.Lock()
	p.rows[c] = append(p.rows[c], pendingRow{destRank: destRank, data: data})
	p.mu.Unlock()
}

func (p *PendingTargets) drain(tid int) []pendingRow {
	p.mu.Lock()
	rows := p.rows[tid]
	p.rows[tid] = nil
	p.mu.Unlock()
	return rows
}

func (p *PendingTargets) anyRemaining() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.rows {
		if len(r) > 0 {
			return true
		}
	}
	return false
}

// GatherTargetData runs the connect-time target-table exchange to
// completion, delivering every TargetData record to the owning
// thread's Connections.AddTarget.
func (m *Manager) GatherTargetData(ctx context.Context, pending *PendingTargets, targetTransport transport.AllToAller[types.TargetData]) error {
	numRanks := targetTransport.NumRanks()
	myRank := int32(targetTransport.Rank())

	sendBuf := wire.NewTargetBuffer(numRanks, m.chunkSize)
	recvBuf := wire.NewTargetBuffer(numRanks, m.chunkSize)

	completeFromRank := make([][]bool, m.numThreads)
	for t := range completeFromRank {
		completeFromRank[t] = make([]bool, numRanks)
	}

	for {
		sendBuf.Reset()

		if err := m.parallelThreads(ctx, func(tid int) error {
			// tid only ever places rows it drained (bucketed by
			// PendingTargets.Add to this same collator index), so it
			// only ever needs to set markers for the ranks it
			// collates - assignedRanks gives the identical disjoint
			// partition collocateOnGrid uses, so no two threads ever
			// write a marker for the same rank's chunk.
			ranks := assignedRanks(tid, m.numThreads, numRanks)
			rows := pending.drain(tid)
			touched := make(map[int32]bool, len(rows))
			for _, row := range rows {
				if !sendBuf.Place(int(row.destRank), row.data) {
					// Buffer exhausted for this rank this round: put it
					// back for the next round.
					pending.Add(row.destRank, row.data)
					continue
				}
				touched[row.destRank] = true
			}
			done := !pending.anyRemaining()
			for _, r := range ranks {
				if touched[int32(r)] {
					sendBuf.SetEndMarker(r)
				} else {
					sendBuf.SetInvalidMarker(r)
				}
				if done {
					sendBuf.SetCompleteMarker(r)
				}
			}
			return nil
		}); err != nil {
			return err
		}

		m.Stats.addTargetRound()

		recvFlat, err := targetTransport.AllToAll(ctx, sendBuf.Raw(), sendBuf.ChunkSize())
		if err != nil {
			return err
		}
		recvBuf.SetRaw(recvFlat)

		if err := m.parallelThreads(ctx, func(tid int) error {
			conn := m.conns[tid]
			for r := 0; r < numRanks; r++ {
				records, complete := recvBuf.ReadChunk(r)
				if complete {
					completeFromRank[tid][r] = true
				}
				for _, rec := range records {
					if int(rec.Tid) != tid {
						continue
					}
					if err := conn.AddTarget(rec.Tid, myRank, rec); err != nil {
						return err
					}
				}
			}
			return nil
		}); err != nil {
			return err
		}

		allCompleteCount := 0
		for t := 0; t < m.numThreads; t++ {
			allRanksDone := true
			for r := 0; r < numRanks; r++ {
				if !completeFromRank[t][r] {
					allRanksDone = false
					break
				}
			}
			if allRanksDone {
				allCompleteCount++
			}
		}
		if allCompleteCount == m.numThreads {
			break
		}
	}

	return nil
}
