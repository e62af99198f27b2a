package demo

import (
	"testing"

	"github.com/SynapticNetworks/spike-kernel/kernelapi"
	"github.com/SynapticNetworks/spike-kernel/types"
)

type fakeNodeResolver struct {
	nodes map[int64]kernelapi.Node
}

func (f *fakeNodeResolver) NodeByGID(gid int64) (kernelapi.Node, bool) {
	n, ok := f.nodes[gid]
	return n, ok
}

func TestConfigureThenSendDeliversToTargetNode(t *testing.T) {
	var emitted []types.Target
	emit := kernelapi.EmitFunc(func(lag int32, target types.Target) {
		emitted = append(emitted, target)
	})

	src, err := NewIFNode(1, 0, map[string]any{"threshold": 0.5, "tau": 5.0}, emit)
	if err != nil {
		t.Fatalf("new source node: %v", err)
	}
	dst, err := NewIFNode(2, 0, map[string]any{"threshold": 0.5, "tau": 5.0}, nil)
	if err != nil {
		t.Fatalf("new target node: %v", err)
	}

	resolver := &fakeNodeResolver{nodes: map[int64]kernelapi.Node{1: src, 2: dst}}
	factory := NewIFConnections(resolver.NodeByGID)
	conn, err := factory(0, 0, nil)
	if err != nil {
		t.Fatalf("connection factory: %v", err)
	}
	ifconn := conn.(*IFConnections)

	if err := ifconn.Configure(1, 0, 0, map[string]any{"weight": 0.9, "target_gid": int64(2)}); err != nil {
		t.Fatalf("configure: %v", err)
	}

	// Configure must have registered the routing target on the source
	// node directly, not just the connection table's own route.
	if err := src.Update(0, 0, 1); err != nil {
		t.Fatalf("update source: %v", err)
	}
	if len(emitted) == 0 {
		// threshold not crossed with these params in one lag; force a
		// spike via direct current injection instead.
		if err := src.Handle(types.Event{Kind: types.EventCurrent, Current: 10.0}); err != nil {
			t.Fatalf("handle current: %v", err)
		}
		if err := src.Update(0, 0, 1); err != nil {
			t.Fatalf("update source after injection: %v", err)
		}
	}
	if len(emitted) == 0 {
		t.Fatal("expected source node to emit at least one target after crossing threshold")
	}

	ev := types.Event{Kind: types.EventSpike}
	if err := ifconn.Send(0, emitted[0].SynID, emitted[0].LCID, ev); err != nil {
		t.Fatalf("send: %v", err)
	}

	dstIF := dst.(*IFNode)
	if dstIF.pendingCurrent != 0.9 {
		t.Fatalf("target node pendingCurrent = %v, want 0.9 (the configured weight)", dstIF.pendingCurrent)
	}
}

func TestAddTargetRecordsPresynapticPartner(t *testing.T) {
	factory := NewIFConnections(func(int64) (kernelapi.Node, bool) { return nil, false })
	conn, err := factory(0, 0, nil)
	if err != nil {
		t.Fatalf("connection factory: %v", err)
	}
	ifconn := conn.(*IFConnections)

	if err := ifconn.AddTarget(0, 0, types.TargetData{SourceNodeID: 7, SynID: 0, LCID: 3}); err != nil {
		t.Fatalf("add target: %v", err)
	}
	gid, ok := ifconn.SourceOf(0, 3)
	if !ok || gid != 7 {
		t.Fatalf("SourceOf(0,3) = (%d, %v), want (7, true)", gid, ok)
	}
}

func TestOffGridEmitComputesCrossingOffset(t *testing.T) {
	var emitted []types.Target
	emit := kernelapi.EmitFunc(func(lag int32, target types.Target) {
		emitted = append(emitted, target)
	})
	node, err := NewIFNode(1, 0, map[string]any{
		"threshold": 0.5, "tau": 5.0, "off_grid": true,
	}, emit)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	ifn := node.(*IFNode)
	ifn.targets = []types.Target{{Tid: 0, SynID: 0, LCID: 0}}

	if err := node.Handle(types.Event{Kind: types.EventCurrent, Current: 10.0}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := node.Update(0, 0, 1); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(emitted) != 1 {
		t.Fatalf("expected exactly one emitted target, got %d", len(emitted))
	}
	if !emitted[0].HasOffset {
		t.Fatal("expected off-grid emit to set HasOffset")
	}
	if emitted[0].Offset < 0 || emitted[0].Offset >= 1 {
		t.Fatalf("offset = %v, want in [0,1)", emitted[0].Offset)
	}
}
