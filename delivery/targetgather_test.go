package delivery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SynapticNetworks/spike-kernel/kernelapi"
	"github.com/SynapticNetworks/spike-kernel/register"
	"github.com/SynapticNetworks/spike-kernel/transport"
	"github.com/SynapticNetworks/spike-kernel/types"
)

type targetRecordingConn struct {
	mu   sync.Mutex
	seen []types.TargetData
}

func (c *targetRecordingConn) Configure(sourceGID int64, synID, lcid int32, params map[string]any) error {
	return nil
}
func (c *targetRecordingConn) Send(tid int32, synID, lcid int32, ev types.Event) error { return nil }
func (c *targetRecordingConn) AddTarget(tid int32, rank int32, td types.TargetData) error {
	c.mu.Lock()
	c.seen = append(c.seen, td)
	c.mu.Unlock()
	return nil
}
func (c *targetRecordingConn) WeightRecorder(tid int32, synID, lcid int32) bool { return false }

func (c *targetRecordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func TestGatherTargetDataDeliversAcrossRanks(t *testing.T) {
	hub := transport.NewHub[types.TargetData](2)

	connA := &targetRecordingConn{}
	connB := &targetRecordingConn{}
	regsA := register.NewRegisters(1, 2)
	regsB := register.NewRegisters(1, 2)

	mA := New(Config{Registers: regsA, Connections: []kernelapi.Connections{connA}, ChunkSize: 8})
	mB := New(Config{Registers: regsB, Connections: []kernelapi.Connections{connB}, ChunkSize: 8})

	pendA := NewPendingTargets(1)
	pendB := NewPendingTargets(1)
	for i := 0; i < 10; i++ {
		pendA.Add(1, types.TargetData{SourceNodeID: int64(i), Rank: 0, Tid: 0, SynID: 1, LCID: int32(i)})
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() { defer wg.Done(); errs[0] = mA.GatherTargetData(context.Background(), pendA, hub.Rank(0)) }()
	go func() { defer wg.Done(); errs[1] = mB.GatherTargetData(context.Background(), pendB, hub.Rank(1)) }()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Fatalf("GatherTargetData: %v", err)
		}
	}
	if connB.count() != 10 {
		t.Fatalf("rank 1 should have learned 10 targets from rank 0, got %d", connB.count())
	}
	if connA.count() != 0 {
		t.Fatalf("rank 0 sent nothing to itself and should see 0 targets, got %d", connA.count())
	}
}

// TestGatherTargetDataMultiThreadSameRankNoRace drives two local
// threads' Connect calls (rows destined to different local Tids, but
// - under the single-rank transport every real Connect caller uses -
// the same destRank). PendingTargets.Add used to bucket rows by the
// thread whose Connect call produced them rather than by the thread
// that collates sends to their destination rank, so two local
// goroutines could call the shared send buffer's Place for the same
// rank concurrently. Bucketing by destination-rank collator instead
// means exactly one goroutine ever touches a given rank's chunk; this
// asserts the resulting delivery is still complete and correctly
// routed per destination thread.
func TestGatherTargetDataMultiThreadSameRankNoRace(t *testing.T) {
	hub := transport.NewHub[types.TargetData](1)

	connT0 := &targetRecordingConn{}
	connT1 := &targetRecordingConn{}
	regs := register.NewRegisters(2, 2)

	m := New(Config{Registers: regs, Connections: []kernelapi.Connections{connT0, connT1}, ChunkSize: 8})

	pend := NewPendingTargets(2)
	for i := 0; i < 10; i++ {
		pend.Add(0, types.TargetData{SourceNodeID: int64(i), Rank: 0, Tid: 0, SynID: 1, LCID: int32(i)})
		pend.Add(0, types.TargetData{SourceNodeID: int64(i), Rank: 0, Tid: 1, SynID: 2, LCID: int32(i)})
	}

	done := make(chan error, 1)
	go func() { done <- m.GatherTargetData(context.Background(), pend, hub.Rank(0)) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("GatherTargetData: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("GatherTargetData hung")
	}

	if connT0.count() != 10 {
		t.Fatalf("thread 0's connection table should have learned 10 targets, got %d", connT0.count())
	}
	if connT1.count() != 10 {
		t.Fatalf("thread 1's connection table should have learned 10 targets, got %d", connT1.count())
	}
}
