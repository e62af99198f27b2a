/*
=================================================================================
OFF-GRID (PRECISE) SPIKE GATHER
=================================================================================

Mirrors gatherOnGrid/collocateOnGrid/deliverOnGrid exactly, but moves
types.OffGridSpikeData records (spike plus a sub-step offset,
precise-spike handling) and forwards the offset through
the delivered Event so the receiving Connections implementation can
queue it against its own per-target SliceRingBuffer rather than this
manager owning that state - the off-grid ring buffer is a property of
the target (where the spike lands and must be ordered against other
near-simultaneous arrivals), not of the transport round.
=================================================================================
*/

package delivery

import (
	"context"

	"github.com/SynapticNetworks/spike-kernel/types"
)

func (m *Manager) gatherOffGrid(ctx context.Context, from, to types.Step) error {
	numRanks := m.offGridTransport.NumRanks()
	myRank := m.offGridTransport.Rank()

	completeFromRank := make([][]bool, m.numThreads)
	for t := range completeFromRank {
		completeFromRank[t] = make([]bool, numRanks)
	}

	for {
		m.offSendBuf.Reset()

		if err := m.parallelThreads(ctx, func(tid int) error {
			return m.collocateOffGrid(tid, numRanks, myRank)
		}); err != nil {
			return err
		}

		m.Stats.addRound()

		recvFlat, err := m.offGridTransport.AllToAll(ctx, m.offSendBuf.Raw(), m.offSendBuf.ChunkSize())
		if err != nil {
			return err
		}
		m.offRecvBuf.SetRaw(recvFlat)

		if err := m.parallelThreads(ctx, func(tid int) error {
			_, err := m.deliverOffGrid(tid, numRanks, from, completeFromRank[tid])
			return err
		}); err != nil {
			return err
		}

		emptyCount := 0
		allCompleteCount := 0
		for t := 0; t < m.numThreads; t++ {
			if m.registers.For(int32(t)).Empty() {
				emptyCount++
			}
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

		if emptyCount+allCompleteCount == 2*m.numThreads {
			break
		}
		if m.adaptiveBuffers {
			anyLeftover := false
			for t := 0; t < m.numThreads; t++ {
				if !m.registers.For(int32(t)).Empty() {
					anyLeftover = true
					break
				}
			}
			if anyLeftover {
				m.growBuffers()
			}
		}
	}

	m.registers.ResetAll()
	return nil
}

// collocateOffGrid mirrors collocateOnGrid exactly (see its comment):
// every owning thread's register is scanned, filtered to thread tid's
// own collator bucket rather than tid's own register, so no two
// collating threads ever touch the same Target or the same offSendBuf
// rank chunk.
func (m *Manager) collocateOffGrid(tid, numRanks, myRank int) error {
	ranks := assignedRanks(tid, m.numThreads, numRanks)

	touched := make(map[int]bool, len(ranks))
	collocated := int64(0)
	for owner := 0; owner < m.numThreads; owner++ {
		reg := m.registers.For(int32(owner))
		reg.IterateFor(int32(tid), func(lag int32, target *types.Target) bool {
			sd := types.OffGridSpikeData{
				SpikeData: types.SpikeData{
					Rank:  int32(myRank),
					Tid:   target.Tid,
					SynID: target.SynID,
					LCID:  target.LCID,
					Lag:   lag,
				},
				Offset: target.Offset,
			}
			placed := m.offSendBuf.Place(int(target.Rank), sd)
			if placed {
				touched[int(target.Rank)] = true
				collocated++
			}
			return placed
		})
		reg.CleanFor(int32(tid))
	}
	m.Stats.addCollocated(collocated)

	done := true
	for owner := 0; owner < m.numThreads; owner++ {
		if !m.registers.For(int32(owner)).EmptyFor(int32(tid)) {
			done = false
			break
		}
	}
	for _, r := range ranks {
		if touched[r] {
			m.offSendBuf.SetEndMarker(r)
		} else {
			m.offSendBuf.SetInvalidMarker(r)
		}
		if done {
			m.offSendBuf.SetCompleteMarker(r)
		}
	}
	return nil
}

func (m *Manager) deliverOffGrid(tid, numRanks int, from types.Step, completeFromRank []bool) (bool, error) {
	conn := m.conns[tid]
	delivered := int64(0)
	for r := 0; r < numRanks; r++ {
		records, complete := m.offRecvBuf.ReadChunk(r)
		if complete {
			completeFromRank[r] = true
		}
		for _, rec := range records {
			if int(rec.Tid) != tid {
				continue
			}
			ev := types.Event{
				Kind:   types.EventSpike,
				Stamp:  from + types.Step(rec.Lag) + 1,
				Offset: rec.Offset,
			}
			if err := conn.Send(rec.Tid, rec.SynID, rec.LCID, ev); err != nil {
				return false, err
			}
			delivered++
		}
	}
	m.Stats.addDelivered(delivered)
	allDone := true
	for r := 0; r < numRanks; r++ {
		if !completeFromRank[r] {
			allDone = false
			break
		}
	}
	return allDone, nil
}
