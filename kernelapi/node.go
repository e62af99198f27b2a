/*
=================================================================================
NODE AND CONNECTIONS - THE CORE'S ONLY VIEW OF THE MODEL LIBRARIES
=================================================================================

The neuron-model and connection-model libraries stay out of the
core's scope deliberately: the core only ever calls Update/Handle on a
Node and Send/AddTarget on a Connections table. These two interfaces
are that boundary. Everything on the other side of them - integration
of V_m, synaptic currents, threshold tests, STDP - is a collaborator's
problem, not the kernel's.

Arena indexing: nodes live in a per-thread arena addressed by (tid,
local id); a Target never holds a pointer to a Node, only the indices
the arena resolves at delivery time. That is what lets the spike
register and wire records stay plain, copyable structs with no
ownership cycle back into the node graph.
=================================================================================
*/

package kernelapi

import "github.com/SynapticNetworks/spike-kernel/types"

// NodeState is the coarse state machine the core observes (but does
// not define) on every node.
type NodeState int8

const (
	NodeQuiescent NodeState = iota
	NodeIntegrating
	NodeRefractory
)

func (s NodeState) String() string {
	switch s {
	case NodeQuiescent:
		return "Quiescent"
	case NodeIntegrating:
		return "Integrating"
	case NodeRefractory:
		return "Refractory"
	default:
		return "Unknown"
	}
}

// Node is the opaque per-neuron update/handle contract the
// simulation manager drives once per slice.
type Node interface {
	// GID is the node's global id, the value Connect takes as
	// sourceGID and sends as TargetData.SourceNodeID.
	GID() int64

	// Tid is the thread that owns this node; the simulation manager
	// uses it to route the node into the correct parallel region.
	Tid() int32

	// Update advances the node through lags [from, to) of the slice
	// beginning at step origin. A node that crosses threshold during
	// this call must emit its spike via the EmitFunc it was
	// constructed with rather than returning a value, matching
	// this "Transition integrating -> refractory emits a
	// SpikeEvent via event_delivery_manager.send".
	Update(origin types.Step, from, to int32) error

	// Handle delivers an event previously resolved by a Connections
	// table. Kind-specific handling is left to the node.
	Handle(ev types.Event) error

	// State reports the node's current coarse state for observers
	// ; the core never branches on it.
	State() NodeState
}

// EmitFunc is handed to node factories so a node can raise a spike
// without importing the delivery package (which would create an
// import cycle back into kernelapi). register.Register.Emit is bound
// to this signature by the kernel at node-creation time.
type EmitFunc func(lag int32, target types.Target)

// Connections is the opaque per-thread connection table the delivery
// manager hands resolved events to, and the per-connect-time target
// gather populates.
type Connections interface {
	// Configure registers one local connection (synID, lcid) with its
	// connect-time parameters. Called once per Connect call on the
	// connection's owning thread, before the target gather runs -
	// this is how the table learns which of its own nodes a given
	// (synID, lcid) resolves to, since Connect itself never carries a
	// destination gid in its own signature (only the owning thread).
	// sourceGID is passed through from Connect's own argument, not
	// threaded through params, since every caller already has it.
	Configure(sourceGID int64, synID, lcid int32, params map[string]any) error

	// Send resolves the local connection (tid, synID, lcID) and
	// invokes the target node's Handle with ev.
	Send(tid int32, synID, lcid int32, ev types.Event) error

	// AddTarget records the presynaptic partner for a connection,
	// resolved via the connect-time target gather (td.SourceNodeID).
	// Called once per record whose Tid matches this table's owning
	// thread. This is bookkeeping for source-aware delivery (weight
	// recorders, STDP) - Send's routing is established by Configure,
	// not by this call.
	AddTarget(tid int32, rank int32, td types.TargetData) error

	// WeightRecorder reports whether a weight recorder is attached to
	// the connection (tid, synID, lcid). Open question resolved in
	// DESIGN.md: weight-recorder delivery is a no-op when WeightRecorder
	// returns false, and a normal event send when it returns true.
	WeightRecorder(tid int32, synID, lcid int32) bool
}

// Factory builds a Node for global id gid given a construction-time
// parameter dictionary. RegisterNodeModel stores these by name.
type Factory func(gid int64, tid int32, params map[string]any, emit EmitFunc) (Node, error)

// ConnectionFactory builds the Connections table for one thread; the
// kernel calls it on the first Connect that targets that thread, and
// the table then serves every synID on it. RegisterConnectionModel
// stores these by name.
type ConnectionFactory func(tid int32, synID int32, params map[string]any) (Connections, error)
