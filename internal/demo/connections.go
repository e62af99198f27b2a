package demo

import (
	"sync"

	"github.com/SynapticNetworks/spike-kernel/kernelapi"
	"github.com/SynapticNetworks/spike-kernel/types"
)

// synKey identifies one connection within a Connections table.
type synKey struct {
	synID, lcid int32
}

// route is one resolved (synID, lcid) entry: the destination node gid
// and the weight Connect configured it with.
type route struct {
	targetGID int64
	weight    float64
}

// IFConnections is the per-thread connection table for the demo
// model: a dense map from (synID, lcid) to a resolved route, plus the
// presynaptic partner each route was last told about by the
// connect-time target gather.
type IFConnections struct {
	mu sync.Mutex

	tid     int32
	nodesOf func(gid int64) (kernelapi.Node, bool)

	byKey    map[synKey]route
	sourceOf map[synKey]int64 // from AddTarget, keyed by the same synKey
}

// NewIFConnections is the kernelapi.ConnectionFactory bound to the
// "demo_static_synapse" model name. nodesOf resolves a gid to the
// live node on this connection table's owning thread; the demo wiring
// code supplies a closure over the owning kernel.Context's node arena.
func NewIFConnections(nodesOf func(gid int64) (kernelapi.Node, bool)) kernelapi.ConnectionFactory {
	return func(tid int32, synID int32, params map[string]any) (kernelapi.Connections, error) {
		return &IFConnections{
			tid:      tid,
			nodesOf:  nodesOf,
			byKey:    make(map[synKey]route),
			sourceOf: make(map[synKey]int64),
		}, nil
	}
}

// Configure resolves (synID, lcid) to the destination node named by
// params["target_gid"] and records the weight (params["weight"],
// default 1.0). It also registers the routing target on the source
// node (sourceGID) so the source's own Update emits to it - Connect
// is the only caller, and it is the only place that has both the
// source gid and the destination's per-connection identity at once.
func (c *IFConnections) Configure(sourceGID int64, synID, lcid int32, params map[string]any) error {
	gid, ok := params["target_gid"].(int64)
	if !ok {
		return &kernelapi.BadProperty{Property: "target_gid", Reason: "demo_static_synapse requires an int64 target_gid param"}
	}
	w := 1.0
	if v, ok := params["weight"].(float64); ok {
		w = v
	}

	c.mu.Lock()
	c.byKey[synKey{synID: synID, lcid: lcid}] = route{targetGID: gid, weight: w}
	c.mu.Unlock()

	if src, ok := c.nodesOf(sourceGID); ok {
		if ifn, ok := src.(*IFNode); ok {
			ifn.addTarget(types.Target{Tid: c.tid, SynID: synID, LCID: lcid})
		}
	}
	return nil
}

// AddTarget records the presynaptic partner for (td.SynID, td.LCID),
// learned from the connect-time target gather. The demo model doesn't
// consult this for delivery (Configure already resolved the route
// locally); it exists so source-aware bookkeeping - a weight recorder
// or STDP rule - has a presynaptic gid to key off.
func (c *IFConnections) AddTarget(tid int32, rank int32, td types.TargetData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sourceOf[synKey{synID: td.SynID, lcid: td.LCID}] = td.SourceNodeID
	return nil
}

// SourceOf reports the presynaptic gid recorded by AddTarget for
// (synID, lcid), if the connect-time target gather has run.
func (c *IFConnections) SourceOf(synID, lcid int32) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gid, ok := c.sourceOf[synKey{synID: synID, lcid: lcid}]
	return gid, ok
}

// Send resolves (synID, lcid) to the route Configure recorded and
// delivers ev via the target node's Handle, stamping the configured
// weight. tid identifies this table's owning thread and is not used;
// the table itself is already scoped to one thread.
func (c *IFConnections) Send(tid int32, synID, lcid int32, ev types.Event) error {
	c.mu.Lock()
	r, ok := c.byKey[synKey{synID: synID, lcid: lcid}]
	c.mu.Unlock()
	if !ok {
		return &kernelapi.BadProperty{Property: "lcid", Reason: "no route configured for this connection"}
	}
	ev.Weight = r.weight
	node, ok := c.nodesOf(r.targetGID)
	if !ok {
		return &kernelapi.BadProperty{Property: "tid", Reason: "no node arena entry for target gid"}
	}
	return node.Handle(ev)
}

// WeightRecorder always reports false: the demo model never attaches
// a weight recorder, matching kernelapi.Connections' documented
// no-op-when-absent contract.
func (c *IFConnections) WeightRecorder(tid int32, synID, lcid int32) bool {
	return false
}
