/*
=================================================================================
IN-PROCESS TRANSPORT
=================================================================================

InProcess simulates an N-rank all-to-all inside a single process: the
InProcess endpoints of all N logical ranks share one Hub, a mutex- and
cond-guarded round buffer, used the way channel-based neuron models exchange
Message values over their input channels. It is the default transport
for single-rank runs (chunkSize == len(send), no actual fan-out needed)
and is exercised directly by the kernel's own tests to check the
collocate/exchange/deliver protocol without standing up real OS
processes.

Hub is generic over the wire record type T (types.SpikeData,
types.OffGridSpikeData, types.TargetData, types.SecondaryEventData) so that no rank ever
serializes to bytes: this "no byte-order conversion performed"
is realized here as literally passing typed Go values between
goroutines, not as a same-endianness assumption about an encoded form.
=================================================================================
*/

package transport

import (
	"context"
	"fmt"
	"sync"
)

// Hub coordinates a fixed set of InProcess ranks that all participate
// in the same simulated cluster.
type Hub[T any] struct {
	numRanks int

	mu       sync.Mutex
	cond     *sync.Cond
	round    int
	arrived  int
	sendBufs [][]T
	chunk    []int

	barArrived int
	barRound   int
}

// NewHub creates a coordination hub for numRanks InProcess endpoints.
func NewHub[T any](numRanks int) *Hub[T] {
	h := &Hub[T]{
		numRanks: numRanks,
		sendBufs: make([][]T, numRanks),
		chunk:    make([]int, numRanks),
	}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Rank returns an AllToAller bound to rank r of this hub.
func (h *Hub[T]) Rank(r int) AllToAller[T] {
	return &InProcess[T]{hub: h, rank: r}
}

// InProcess is one rank's view of a Hub.
type InProcess[T any] struct {
	hub  *Hub[T]
	rank int
}

func (p *InProcess[T]) Rank() int     { return p.rank }
func (p *InProcess[T]) NumRanks() int { return p.hub.numRanks }

// AllToAll publishes this rank's chunk and blocks until every rank has
// published for the current round, then returns the concatenation of
// every rank's contribution to this rank's slice.
func (p *InProcess[T]) AllToAll(ctx context.Context, send []T, chunkSize int) ([]T, error) {
	h := p.hub
	if len(send) != h.numRanks*chunkSize {
		return nil, fmt.Errorf("transport: rank %d send has %d records, want %d (numRanks*chunkSize)", p.rank, len(send), h.numRanks*chunkSize)
	}

	h.mu.Lock()
	myRound := h.round
	h.sendBufs[p.rank] = send
	h.chunk[p.rank] = chunkSize
	h.arrived++
	if h.arrived == h.numRanks {
		h.round++
		h.arrived = 0
		h.cond.Broadcast()
	} else {
		for h.round == myRound {
			h.cond.Wait()
			select {
			case <-ctx.Done():
				h.mu.Unlock()
				return nil, ctx.Err()
			default:
			}
		}
	}

	n := h.numRanks
	recv := make([]T, n*chunkSize)
	for src := 0; src < n; src++ {
		buf := h.sendBufs[src]
		if h.chunk[src] != chunkSize {
			h.mu.Unlock()
			return nil, fmt.Errorf("transport: rank %d used chunk size %d, rank %d used %d", src, h.chunk[src], p.rank, chunkSize)
		}
		start := p.rank * chunkSize
		copy(recv[src*chunkSize:(src+1)*chunkSize], buf[start:start+chunkSize])
	}
	h.mu.Unlock()
	return recv, nil
}

// Barrier blocks until every rank has called Barrier for the current
// barrier round.
func (p *InProcess[T]) Barrier(ctx context.Context) error {
	h := p.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	myRound := h.barRound
	h.barArrived++
	if h.barArrived == h.numRanks {
		h.barRound++
		h.barArrived = 0
		h.cond.Broadcast()
		return nil
	}
	for h.barRound == myRound {
		h.cond.Wait()
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}
