/*
=================================================================================
EVENT DELIVERY MANAGER
=================================================================================

This is the protocol heart of the kernel: per slice, drain the spike
register into send-buffer chunks (collocate), exchange chunks with
every rank over the opaque transport (exchange), resolve incoming
records against the local connection table (deliver), and repeat until
every thread's register is empty and every rank has signalled
completion.

The per-thread parallel regions use golang.org/x/sync/errgroup - one
goroutine per thread per region, Wait() as the barrier - generalizing
a one-goroutine-per-neuron concurrency model to one-goroutine-per-
thread, and the single-thread exchange section runs only after every
region's errgroup.Wait() has returned, so all other threads block at
the same barrier.
=================================================================================
*/

package delivery

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/SynapticNetworks/spike-kernel/clock"
	"github.com/SynapticNetworks/spike-kernel/kernelapi"
	"github.com/SynapticNetworks/spike-kernel/register"
	"github.com/SynapticNetworks/spike-kernel/transport"
	"github.com/SynapticNetworks/spike-kernel/types"
	"github.com/SynapticNetworks/spike-kernel/wire"
)

// Stats accumulates the per-run counters kernel.Context.Stats surfaces.
type Stats struct {
	mu                   sync.Mutex
	CommRoundsSpikeData  int
	CommRoundsTargetData int
	BufferDoublings      int
	SpikesCollocated     int64
	SpikesDelivered      int64
}

func (s *Stats) addRound()             { s.mu.Lock(); s.CommRoundsSpikeData++; s.mu.Unlock() }
func (s *Stats) addTargetRound()       { s.mu.Lock(); s.CommRoundsTargetData++; s.mu.Unlock() }
func (s *Stats) addDoubling()          { s.mu.Lock(); s.BufferDoublings++; s.mu.Unlock() }
func (s *Stats) addCollocated(n int64) { s.mu.Lock(); s.SpikesCollocated += n; s.mu.Unlock() }
func (s *Stats) addDelivered(n int64)  { s.mu.Lock(); s.SpikesDelivered += n; s.mu.Unlock() }

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		CommRoundsSpikeData:  s.CommRoundsSpikeData,
		CommRoundsTargetData: s.CommRoundsTargetData,
		BufferDoublings:      s.BufferDoublings,
		SpikesCollocated:     s.SpikesCollocated,
		SpikesDelivered:      s.SpikesDelivered,
	}
}

// Manager orchestrates the per-slice spike gather protocol.
type Manager struct {
	clk        *clock.Clock
	table      *clock.ModuloTable
	registers  *register.Registers
	conns      []kernelapi.Connections // one per thread, indexed by tid
	numThreads int

	offGrid         bool
	adaptiveBuffers bool
	chunkSize       int

	onGridTransport  transport.AllToAller[types.SpikeData]
	offGridTransport transport.AllToAller[types.OffGridSpikeData]

	sendBuf *wire.SpikeBuffer
	recvBuf *wire.SpikeBuffer

	offSendBuf *wire.OffGridBuffer
	offRecvBuf *wire.OffGridBuffer

	Stats Stats
}

// Config collects Manager's construction-time parameters.
type Config struct {
	Clock            *clock.Clock
	Table            *clock.ModuloTable
	Registers        *register.Registers
	Connections      []kernelapi.Connections
	OnGridTransport  transport.AllToAller[types.SpikeData]
	OffGridTransport transport.AllToAller[types.OffGridSpikeData]
	OffGridSpiking   bool
	AdaptiveBuffers  bool
	ChunkSize        int // initial per-rank chunk size (records), including the reserved marker slot
}

// New constructs a Manager from cfg.
func New(cfg Config) *Manager {
	m := &Manager{
		clk:              cfg.Clock,
		table:            cfg.Table,
		registers:        cfg.Registers,
		conns:            cfg.Connections,
		numThreads:       len(cfg.Connections),
		offGrid:          cfg.OffGridSpiking,
		adaptiveBuffers:  cfg.AdaptiveBuffers,
		chunkSize:        cfg.ChunkSize,
		onGridTransport:  cfg.OnGridTransport,
		offGridTransport: cfg.OffGridTransport,
	}
	// A Manager used only for the connect-time target gather or the
	// end-of-run secondary-event gather never touches the spike
	// send/recv buffers, so leaving the unused transport unset is fine.
	if m.offGrid && cfg.OffGridTransport != nil {
		numRanks := cfg.OffGridTransport.NumRanks()
		m.offSendBuf = wire.NewOffGridBuffer(numRanks, cfg.ChunkSize)
		m.offRecvBuf = wire.NewOffGridBuffer(numRanks, cfg.ChunkSize)
	} else if !m.offGrid && cfg.OnGridTransport != nil {
		numRanks := cfg.OnGridTransport.NumRanks()
		m.sendBuf = wire.NewSpikeBuffer(numRanks, cfg.ChunkSize)
		m.recvBuf = wire.NewSpikeBuffer(numRanks, cfg.ChunkSize)
	}
	return m
}

// GatherSpikeData runs the collocate/exchange/deliver loop to
// completion for the slice [from, to) currently held by the clock,
// then resets every thread's spike register.
func (m *Manager) GatherSpikeData(ctx context.Context, from, to types.Step) error {
	if m.offGrid {
		return m.gatherOffGrid(ctx, from, to)
	}
	return m.gatherOnGrid(ctx, from, to)
}

func (m *Manager) gatherOnGrid(ctx context.Context, from, to types.Step) error {
	numRanks := m.onGridTransport.NumRanks()
	myRank := m.onGridTransport.Rank()

	// completeFromRank[t][r] latches once thread t has observed a
	// Complete marker from rank r; it persists across rounds within
	// this slice's gather.
	completeFromRank := make([][]bool, m.numThreads)
	for t := range completeFromRank {
		completeFromRank[t] = make([]bool, numRanks)
	}

	for {
		m.sendBuf.Reset()

		if err := m.parallelThreads(ctx, func(tid int) error {
			return m.collocateOnGrid(tid, numRanks, myRank)
		}); err != nil {
			return err
		}

		m.Stats.addRound()

		recvFlat, err := m.onGridTransport.AllToAll(ctx, m.sendBuf.Raw(), m.sendBuf.ChunkSize())
		if err != nil {
			return err
		}
		m.recvBuf.SetRaw(recvFlat)

		if err := m.parallelThreads(ctx, func(tid int) error {
			_, err := m.deliverOnGrid(tid, numRanks, from, completeFromRank[tid])
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
			// Back-pressure: at least one thread still had un-collocated
			// spikes after this round; double the chunk size for the
			// rounds that follow (and for subsequent slices).
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

// collocateOnGrid drains every owning thread's register into the send
// chunks for the ranks thread tid collates (assignedRanks), one
// collator-indexed bucket at a time - each owning thread's Register
// partitions its Targets by collator at Emit time (register.Register),
// so tid is the only goroutine that ever touches
// registers.For(owner).IterateFor(tid, ...) for any owner, and no two
// threads running this concurrently via parallelThreads ever write the
// same Target.Processed slot or the same sendBuf rank chunk.
func (m *Manager) collocateOnGrid(tid, numRanks, myRank int) error {
	ranks := assignedRanks(tid, m.numThreads, numRanks)

	touched := make(map[int]bool, len(ranks))
	collocated := int64(0)
	for owner := 0; owner < m.numThreads; owner++ {
		reg := m.registers.For(int32(owner))
		reg.IterateFor(int32(tid), func(lag int32, target *types.Target) bool {
			sd := types.SpikeData{
				Rank:  int32(myRank),
				Tid:   target.Tid,
				SynID: target.SynID,
				LCID:  target.LCID,
				Lag:   lag,
			}
			placed := m.sendBuf.Place(int(target.Rank), sd)
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
			m.sendBuf.SetEndMarker(r)
		} else {
			m.sendBuf.SetInvalidMarker(r)
		}
		if done {
			m.sendBuf.SetCompleteMarker(r)
		}
	}
	return nil
}

func (m *Manager) deliverOnGrid(tid, numRanks int, from types.Step, completeFromRank []bool) (bool, error) {
	conn := m.conns[tid]
	delivered := int64(0)
	for r := 0; r < numRanks; r++ {
		records, complete := m.recvBuf.ReadChunk(r)
		if complete {
			completeFromRank[r] = true
		}
		for _, rec := range records {
			if int(rec.Tid) != tid {
				continue
			}
			ev := types.Event{
				Kind:  types.EventSpike,
				Stamp: from + types.Step(rec.Lag) + 1,
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

// parallelThreads runs fn(tid) for every thread concurrently via
// errgroup, returning the first error (if any) after every goroutine
// has returned - the fork-join barrier for one parallel region.
func (m *Manager) parallelThreads(ctx context.Context, fn func(tid int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for t := 0; t < m.numThreads; t++ {
		t := t
		g.Go(func() error { return fn(t) })
	}
	return g.Wait()
}

func (m *Manager) growBuffers() {
	newSize := m.chunkSize * 2
	if m.offGrid {
		m.offSendBuf.Grow(newSize)
		m.offRecvBuf.Grow(newSize)
	} else {
		m.sendBuf.Grow(newSize)
		m.recvBuf.Grow(newSize)
	}
	m.chunkSize = newSize
	m.Stats.addDoubling()
}
