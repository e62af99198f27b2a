/*
=================================================================================
KERNEL CONTEXT
=================================================================================

A package-level mutable singleton would force every test to serialize
on it and make embedding two kernels in one process impossible.
Context is the explicit handle that avoids that - every external API
call in api.go takes one, instead of reaching for a package-level
variable.
=================================================================================
*/

package kernel

import (
	"sync"

	"github.com/SynapticNetworks/spike-kernel/clock"
	"github.com/SynapticNetworks/spike-kernel/delivery"
	"github.com/SynapticNetworks/spike-kernel/kernelapi"
	"github.com/SynapticNetworks/spike-kernel/register"
	"github.com/SynapticNetworks/spike-kernel/transport"
	"github.com/SynapticNetworks/spike-kernel/types"
)

// Context is one independent kernel instance: its own clock, node
// arena, connection tables and delivery manager. The only package-level
// state it touches is the atomic global-id counter in api.go, so a
// process can run more than one Context concurrently (e.g. in tests)
// without interference.
type Context struct {
	mu sync.Mutex

	clk   *clock.Clock
	table *clock.ModuloTable
	regs  *register.Registers

	numThreads int
	numRanks   int

	nodeModels       map[string]kernelapi.Factory
	connectionModels map[string]kernelapi.ConnectionFactory

	nodes []map[int64]kernelapi.Node // per-thread arena, keyed by gid
	conns []kernelapi.Connections    // one per thread

	onGridTransport  transport.AllToAller[types.SpikeData]
	offGridTransport transport.AllToAller[types.OffGridSpikeData]
	targetTransport  transport.AllToAller[types.TargetData]
	secondTransport  transport.AllToAller[types.SecondaryEventData]

	mgr *delivery.Manager

	pendingTargets   *delivery.PendingTargets
	pendingSecondary *delivery.PendingSecondary

	status Status

	currentSubnet    int64 // subnet gid set by WithCurrentSubnet; 0 is root; Create does not read it
	targetGatherDone bool  // true once the connect-time target gather has run for the current connection set
}

// New constructs a Context for numThreads local threads participating
// in a cluster of numRanks total ranks, wired to the given transports.
// A single-process run passes a transport.Hub-backed transport for
// each of the four wire shapes; NewLocal below is the common case.
func New(numThreads, numRanks int, onGrid transport.AllToAller[types.SpikeData], offGrid transport.AllToAller[types.OffGridSpikeData], target transport.AllToAller[types.TargetData], secondary transport.AllToAller[types.SecondaryEventData]) *Context {
	c := &Context{
		numThreads:       numThreads,
		numRanks:         numRanks,
		nodeModels:       make(map[string]kernelapi.Factory),
		connectionModels: make(map[string]kernelapi.ConnectionFactory),
		nodes:            make([]map[int64]kernelapi.Node, numThreads),
		conns:            make([]kernelapi.Connections, numThreads),
		onGridTransport:  onGrid,
		offGridTransport: offGrid,
		targetTransport:  target,
		secondTransport:  secondary,
		pendingTargets:   delivery.NewPendingTargets(numThreads),
		pendingSecondary: delivery.NewPendingSecondary(numThreads),
		status:           defaultStatus(numThreads),
	}
	for t := range c.nodes {
		c.nodes[t] = make(map[int64]kernelapi.Node)
	}
	c.clk = clock.New(c.status.Resolution, c.status.TicsPerMS)
	c.table = clock.NewModuloTable(c.clk)
	return c
}

// NodeByGID looks up a node by global id across every thread's arena.
// Exposed for collaborator Connections implementations (internal/demo)
// that need to resolve a target gid to a live Node outside the
// kernel's own Send path.
func (c *Context) NodeByGID(gid int64) (kernelapi.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, arena := range c.nodes {
		if n, ok := arena[gid]; ok {
			return n, true
		}
	}
	return nil, false
}

// NewLocal builds a Context for a single-process run of numThreads
// threads and no remote ranks, with every transport backed by an
// in-process Hub of size 1 - the common case for the CLI demo and
// single-process tests.
func NewLocal(numThreads int) *Context {
	onGridHub := transport.NewHub[types.SpikeData](1)
	offGridHub := transport.NewHub[types.OffGridSpikeData](1)
	targetHub := transport.NewHub[types.TargetData](1)
	secondHub := transport.NewHub[types.SecondaryEventData](1)
	return New(numThreads, 1, onGridHub.Rank(0), offGridHub.Rank(0), targetHub.Rank(0), secondHub.Rank(0))
}
