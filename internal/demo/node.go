/*
=================================================================================
DEMO LEAKY INTEGRATE-AND-FIRE NODE
=================================================================================

A minimal kernelapi.Node/Connections pair used only to exercise the
kernel end-to-end from cmd/simulate and the kernel package's own
integration tests. Model definitions are explicitly out of the core's
scope - this package is a collaborator, not part of the kernel
surface, named "demo" rather than given a name that could be mistaken
for a real neuron model library.

Grounded on the pack's own leaky-integration-plus-bubbletea/lipgloss
CLI pairing (the module cmd/simulate's own stack choice is drawn from),
reimplemented here against kernelapi.Node as a single point neuron.
=================================================================================
*/

package demo

import (
	"math"
	"sync"

	"github.com/SynapticNetworks/spike-kernel/kernel"
	"github.com/SynapticNetworks/spike-kernel/kernelapi"
	"github.com/SynapticNetworks/spike-kernel/types"
)

// IFParams configures one IFNode at construction time, read out of the
// params map Create/the node factory receive.
type IFParams struct {
	Threshold float64
	Tau       float64 // membrane time constant, in steps
	Resting   float64
	OffGrid   bool // compute a precise sub-step crossing offset on emit
}

func paramsFrom(m map[string]any) IFParams {
	p := IFParams{Threshold: 1.0, Tau: 10.0, Resting: 0.0}
	if v, ok := m["threshold"].(float64); ok {
		p.Threshold = v
	}
	if v, ok := m["tau"].(float64); ok {
		p.Tau = v
	}
	if v, ok := m["resting"].(float64); ok {
		p.Resting = v
	}
	if v, ok := m["off_grid"].(bool); ok {
		p.OffGrid = v
	}
	return p
}

// IFNode is a leaky integrate-and-fire point neuron: Update decays Vm
// toward Resting, applies any accumulated synaptic current, and emits
// a spike to every registered target on each lag where Vm crosses
// Threshold, resetting to Resting after each spike.
type IFNode struct {
	mu sync.Mutex

	gid int64
	tid int32

	params IFParams
	vm     float64
	state  kernelapi.NodeState

	pendingCurrent float64
	targets        []types.Target

	emit kernelapi.EmitFunc

	// lastVm0/lastVm1 record the pre/post-step membrane potential for
	// the step a threshold crossing occurred, so off-grid delivery can
	// interpolate the exact crossing time (kernel.InterpolateCrossing).
	lastVm0, lastVm1 float64
}

// NewIFNode is the kernelapi.Factory bound to the "demo_iaf" model
// name by RegisterModels.
func NewIFNode(gid int64, tid int32, params map[string]any, emit kernelapi.EmitFunc) (kernelapi.Node, error) {
	p := paramsFrom(params)
	return &IFNode{
		gid:    gid,
		tid:    tid,
		params: p,
		vm:     p.Resting,
		state:  kernelapi.NodeQuiescent,
		emit:   emit,
	}, nil
}

func (n *IFNode) GID() int64 { return n.gid }
func (n *IFNode) Tid() int32 { return n.tid }

func (n *IFNode) State() kernelapi.NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// addTarget records a routing target this node should emit to on
// every spike - called by IFConnections.Configure at connect time,
// not directly by the kernel.
func (n *IFNode) addTarget(t types.Target) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, t)
}

// Update integrates one lag at a time across [from, to) of the slice
// starting at origin, applying exponential decay toward Resting plus
// any pending synaptic current, and emits on every lag a threshold
// crossing is detected.
func (n *IFNode) Update(origin types.Step, from, to int32) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	decay := math.Exp(-1.0 / n.params.Tau)
	for lag := from; lag < to; lag++ {
		n.lastVm0 = n.vm
		n.vm = n.params.Resting + (n.vm-n.params.Resting)*decay + n.pendingCurrent
		n.pendingCurrent = 0
		n.lastVm1 = n.vm

		if n.vm >= n.params.Threshold {
			n.state = kernelapi.NodeIntegrating
			offset, hasOffset := 0.0, false
			if n.params.OffGrid {
				v0, dv0, v1, dv1, threshold := n.crossingSamplesLocked()
				if off, err := kernel.InterpolateCrossing(v0, dv0, v1, dv1, threshold); err == nil {
					offset, hasOffset = off, true
				}
			}
			for _, t := range n.targets {
				t.Offset, t.HasOffset = offset, hasOffset
				n.emit(lag, t)
			}
			n.vm = n.params.Resting
			n.state = kernelapi.NodeRefractory
		} else {
			n.state = kernelapi.NodeIntegrating
		}
	}
	return nil
}

// crossingSamplesLocked computes the value/derivative pair at each
// endpoint of the step that just crossed threshold, from the
// continuous leaky-integrator ODE this node's Update discretizes
// (dV/dt = -(V-Resting)/tau). Caller must hold n.mu.
func (n *IFNode) crossingSamplesLocked() (v0, dv0, v1, dv1, threshold float64) {
	dv0 = -(n.lastVm0 - n.params.Resting) / n.params.Tau
	dv1 = -(n.lastVm1 - n.params.Resting) / n.params.Tau
	return n.lastVm0, dv0, n.lastVm1, dv1, n.params.Threshold
}

// Handle applies an incoming event's effect on membrane state.
// EventSpike and EventCurrent both deposit into pendingCurrent, scaled
// by Event.Weight for spikes; the other kinds are accepted and
// ignored, matching this note that unhandled event kinds are
// a collaborator concern, not a kernel error.
func (n *IFNode) Handle(ev types.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch ev.Kind {
	case types.EventSpike:
		n.pendingCurrent += ev.Weight
	case types.EventCurrent:
		n.pendingCurrent += ev.Current
	}
	return nil
}

// LastCrossing returns the pre/post-step membrane samples and their
// derivatives from the most recent lag processed, for
// kernel.InterpolateCrossing to fit a Hermite spline through. The
// derivatives come from the continuous leaky-integrator ODE this
// node's Update discretizes (dV/dt = -(V-Resting)/tau), evaluated at
// each endpoint rather than tracked incrementally.
func (n *IFNode) LastCrossing() (v0, dv0, v1, dv1, threshold float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.crossingSamplesLocked()
}
