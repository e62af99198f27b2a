package demo

import "github.com/SynapticNetworks/spike-kernel/kernelapi"

// RegisterModels registers the demo integrate-and-fire node and its
// static synapse under fixed names on ctx, where ctx is anything
// exposing the two registration calls (kernel.Context satisfies this
// structurally). Kept as an interface rather than a concrete
// *kernel.Context parameter so the demo models stay testable against a
// fake registry.
type ModelRegistry interface {
	RegisterNodeModel(name string, factory kernelapi.Factory)
	RegisterConnectionModel(name string, factory kernelapi.ConnectionFactory)
}

// NodeResolver resolves a global id to a live node, satisfied by
// kernel.Context.NodeByGID.
type NodeResolver interface {
	NodeByGID(gid int64) (kernelapi.Node, bool)
}

const (
	NodeModel       = "demo_iaf"
	ConnectionModel = "demo_static_synapse"
)

// RegisterModels wires the demo node/connection pair into ctx under
// NodeModel/ConnectionModel.
func RegisterModels(ctx ModelRegistry, resolver NodeResolver) {
	ctx.RegisterNodeModel(NodeModel, NewIFNode)
	ctx.RegisterConnectionModel(ConnectionModel, NewIFConnections(resolver.NodeByGID))
}
