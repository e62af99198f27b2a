package wire

import "github.com/SynapticNetworks/spike-kernel/types"

// SpikeBuffer, OffGridBuffer, TargetBuffer and SecondaryBuffer are the
// four concrete buffer shapes the delivery manager uses, spelling out Buffer's two
// type parameters once so call sites don't have to.
type (
	SpikeBuffer     = Buffer[types.SpikeData, *types.SpikeData]
	OffGridBuffer   = Buffer[types.OffGridSpikeData, *types.OffGridSpikeData]
	TargetBuffer    = Buffer[types.TargetData, *types.TargetData]
	SecondaryBuffer = Buffer[types.SecondaryEventData, *types.SecondaryEventData]
)

// NewSpikeBuffer, NewOffGridBuffer, NewTargetBuffer and
// NewSecondaryBuffer construct the corresponding concrete buffer.
func NewSpikeBuffer(numRanks, chunkSize int) *SpikeBuffer {
	return NewBuffer[types.SpikeData, *types.SpikeData](numRanks, chunkSize)
}

func NewOffGridBuffer(numRanks, chunkSize int) *OffGridBuffer {
	return NewBuffer[types.OffGridSpikeData, *types.OffGridSpikeData](numRanks, chunkSize)
}

func NewTargetBuffer(numRanks, chunkSize int) *TargetBuffer {
	return NewBuffer[types.TargetData, *types.TargetData](numRanks, chunkSize)
}

func NewSecondaryBuffer(numRanks, chunkSize int) *SecondaryBuffer {
	return NewBuffer[types.SecondaryEventData, *types.SecondaryEventData](numRanks, chunkSize)
}
