package delivery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SynapticNetworks/spike-kernel/clock"
	"github.com/SynapticNetworks/spike-kernel/kernelapi"
	"github.com/SynapticNetworks/spike-kernel/register"
	"github.com/SynapticNetworks/spike-kernel/transport"
	"github.com/SynapticNetworks/spike-kernel/types"
)

// recordingConn is a minimal kernelapi.Connections that just records
// every event it's asked to Send.
type recordingConn struct {
	mu  sync.Mutex
	got []types.Event
}

func (c *recordingConn) Send(tid int32, synID, lcid int32, ev types.Event) error {
	c.mu.Lock()
	c.got = append(c.got, ev)
	c.mu.Unlock()
	return nil
}
func (c *recordingConn) Configure(sourceGID int64, synID, lcid int32, params map[string]any) error {
	return nil
}
func (c *recordingConn) AddTarget(tid int32, rank int32, td types.TargetData) error { return nil }
func (c *recordingConn) WeightRecorder(tid int32, synID, lcid int32) bool           { return false }

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func newClockForTest(minDelay types.Step) (*clock.Clock, *clock.ModuloTable) {
	c := clock.New(1.0, 1.0)
	c.MarkNetworkNonEmpty()
	if err := c.SetDelayBounds(minDelay, minDelay); err != nil {
		panic(err)
	}
	return c, clock.NewModuloTable(c)
}

func TestGatherSpikeDataZeroSpikeBoundary(t *testing.T) {
	clk, table := newClockForTest(2)
	regs := register.NewRegisters(1, 2)
	conn := &recordingConn{}
	hub := transport.NewHub[types.SpikeData](1)

	m := New(Config{
		Clock:           clk,
		Table:           table,
		Registers:       regs,
		Connections:     []kernelapi.Connections{conn},
		OnGridTransport: hub.Rank(0),
		ChunkSize:       4,
	})

	if err := m.GatherSpikeData(context.Background(), 0, 2); err != nil {
		t.Fatalf("GatherSpikeData: %v", err)
	}
	if conn.count() != 0 {
		t.Fatalf("expected zero delivered events, got %d", conn.count())
	}
	if !regs.AllEmpty() {
		t.Fatalf("registers should be empty after gather")
	}
}

func TestGatherSpikeDataConservation(t *testing.T) {
	clk, table := newClockForTest(2)
	regs := register.NewRegisters(1, 2)
	conn := &recordingConn{}
	hub := transport.NewHub[types.SpikeData](1)

	regs.For(0).Emit(0, types.Target{Rank: 0, Tid: 0, SynID: 1, LCID: 7})
	regs.For(0).Emit(1, types.Target{Rank: 0, Tid: 0, SynID: 1, LCID: 8})

	m := New(Config{
		Clock:           clk,
		Table:           table,
		Registers:       regs,
		Connections:     []kernelapi.Connections{conn},
		OnGridTransport: hub.Rank(0),
		ChunkSize:       4,
	})

	if err := m.GatherSpikeData(context.Background(), 0, 2); err != nil {
		t.Fatalf("GatherSpikeData: %v", err)
	}

	snap := m.Stats.Snapshot()
	if snap.SpikesCollocated != 2 || snap.SpikesDelivered != 2 {
		t.Fatalf("conservation violated: collocated=%d delivered=%d", snap.SpikesCollocated, snap.SpikesDelivered)
	}
	if conn.count() != 2 {
		t.Fatalf("expected 2 delivered events, got %d", conn.count())
	}
}

func TestGatherSpikeDataBufferDoubling(t *testing.T) {
	clk, table := newClockForTest(2)
	regs := register.NewRegisters(1, 2)
	conn := &recordingConn{}
	hub := transport.NewHub[types.SpikeData](1)

	for i := 0; i < 5; i++ {
		regs.For(0).Emit(0, types.Target{Rank: 0, Tid: 0, SynID: 1, LCID: int32(i)})
	}

	m := New(Config{
		Clock:           clk,
		Table:           table,
		Registers:       regs,
		Connections:     []kernelapi.Connections{conn},
		OnGridTransport: hub.Rank(0),
		AdaptiveBuffers: true,
		ChunkSize:       2, // only 1 usable slot per round before the reserved marker slot
	})

	if err := m.GatherSpikeData(context.Background(), 0, 2); err != nil {
		t.Fatalf("GatherSpikeData: %v", err)
	}

	snap := m.Stats.Snapshot()
	if snap.SpikesDelivered != 5 {
		t.Fatalf("expected all 5 spikes eventually delivered, got %d", snap.SpikesDelivered)
	}
	if snap.BufferDoublings == 0 {
		t.Fatalf("expected at least one buffer doubling under back pressure")
	}
	if snap.CommRoundsSpikeData < 2 {
		t.Fatalf("expected more than one comm round, got %d", snap.CommRoundsSpikeData)
	}
}

func TestGatherSpikeDataTwoRanksAllToAll(t *testing.T) {
	clk, table := newClockForTest(2)
	hub := transport.NewHub[types.SpikeData](2)

	regsA := register.NewRegisters(1, 2)
	regsB := register.NewRegisters(1, 2)
	connA := &recordingConn{}
	connB := &recordingConn{}

	// Rank 0's node targets a connection on rank 1, and vice versa.
	for i := 0; i < 50; i++ {
		regsA.For(0).Emit(0, types.Target{Rank: 1, Tid: 0, SynID: 1, LCID: int32(i)})
	}
	for i := 0; i < 50; i++ {
		regsB.For(0).Emit(0, types.Target{Rank: 0, Tid: 0, SynID: 2, LCID: int32(i)})
	}

	mA := New(Config{Clock: clk, Table: table, Registers: regsA, Connections: []kernelapi.Connections{connA}, OnGridTransport: hub.Rank(0), ChunkSize: 64})
	mB := New(Config{Clock: clk, Table: table, Registers: regsB, Connections: []kernelapi.Connections{connB}, OnGridTransport: hub.Rank(1), ChunkSize: 64})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); errs[0] = mA.GatherSpikeData(context.Background(), 0, 2) }()
	go func() { defer wg.Done(); errs[1] = mB.GatherSpikeData(context.Background(), 0, 2) }()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatalf("GatherSpikeData: %v", err)
		}
	}
	if connB.count() != 50 {
		t.Fatalf("rank 1 should have received 50 events from rank 0, got %d", connB.count())
	}
	if connA.count() != 50 {
		t.Fatalf("rank 0 should have received 50 events from rank 1, got %d", connA.count())
	}
}

// TestGatherSpikeDataMultiThreadSingleRank drives two local threads
// under a single rank, with the only emitting node owned by thread 1
// while rank 0 (the only rank) round-robins to thread 0's collator
// assignment. collocateOnGrid(tid) used to read only
// registers.For(tid)'s own register, so thread 1's spikes - owned by
// thread 1 but destined for a rank thread 0 collates - were never
// collocated and the gather loop's completion count was unreachable.
// Run under a deadline so a regression surfaces as a test failure
// instead of a hung test binary.
func TestGatherSpikeDataMultiThreadSingleRank(t *testing.T) {
	clk, table := newClockForTest(2)
	regs := register.NewRegisters(2, 2)
	connT0 := &recordingConn{}
	connT1 := &recordingConn{}
	hub := transport.NewHub[types.SpikeData](1)

	regs.For(1).Emit(0, types.Target{Rank: 0, Tid: 1, SynID: 3, LCID: 1})
	regs.For(1).Emit(1, types.Target{Rank: 0, Tid: 1, SynID: 3, LCID: 2})

	m := New(Config{
		Clock:           clk,
		Table:           table,
		Registers:       regs,
		Connections:     []kernelapi.Connections{connT0, connT1},
		OnGridTransport: hub.Rank(0),
		ChunkSize:       8,
	})

	done := make(chan error, 1)
	go func() { done <- m.GatherSpikeData(context.Background(), 0, 2) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("GatherSpikeData: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("GatherSpikeData hung: thread 1's register was never drained by thread 0's collator")
	}

	if !regs.AllEmpty() {
		t.Fatal("registers should be empty after gather")
	}
	if connT1.count() != 2 {
		t.Fatalf("thread 1's target should have received 2 events, got %d", connT1.count())
	}
	if connT0.count() != 0 {
		t.Fatalf("thread 0 has no connections targeted, expected 0, got %d", connT0.count())
	}
}
