/*
=================================================================================
TARGET AND WIRE RECORDS
=================================================================================

Target is the routing descriptor the spike register fills during node
update and the delivery manager later resolves against a connection
table: (rank, thread, synapse model, local connection index), plus an
optional sub-step offset for off-grid delivery. SpikeData/
OffGridSpikeData are the wire-shaped records that actually cross the
all-to-all exchange - same fields, plus the per-slice lag and the
chunk marker.

The core treats all three as opaque fixed-size records; it never
inspects SynID/LCID beyond passing them to kernelapi.Connections.Send.
=================================================================================
*/

package types

// Target identifies one connection endpoint: a specific synapse model
// (SynID) and local connection index (LCID) on a specific thread
// (Tid) of a specific process (Rank).
type Target struct {
	Rank      int32
	Tid       int32
	SynID     int32
	LCID      int32
	Offset    float64 // sub-step offset in [0, h); only meaningful when HasOffset
	HasOffset bool

	// Processed is set by the spike register's iterate visitor once a
	// Target has been successfully collocated into a send chunk. It is
	// the flag the register's CleanFor uses to compact between rounds.
	Processed bool
}

// SpikeData is the on-grid wire record carried by the spike gather's
// send/recv buffers.
type SpikeData struct {
	Rank   int32
	Tid    int32
	SynID  int32
	LCID   int32
	Lag    int32 // arrival lag within the receiving slice, [0, min_delay)
	Marker Marker
}

// OffGridSpikeData extends SpikeData with the sub-step offset used by
// precise (off-grid) neurons.
type OffGridSpikeData struct {
	SpikeData
	Offset float64 // in [0, h)
}

// TargetData is the wire record used by the (connect-time, not
// per-slice) target-table gather: it carries a source node id instead
// of a lag, and is consumed by kernelapi.Connections.AddTarget.
type TargetData struct {
	SourceNodeID int64
	Rank         int32
	Tid          int32
	SynID        int32
	LCID         int32
	Marker       Marker
}

// GetMarker and SetMarker satisfy wire.Markable.
func (s SpikeData) GetMarker() Marker          { return s.Marker }
func (s *SpikeData) SetMarker(m Marker)        { s.Marker = m }
func (s OffGridSpikeData) GetMarker() Marker   { return s.SpikeData.Marker }
func (s *OffGridSpikeData) SetMarker(m Marker) { s.SpikeData.Marker = m }
func (t TargetData) GetMarker() Marker         { return t.Marker }
func (t *TargetData) SetMarker(m Marker)       { t.Marker = m }

// ToTarget drops the lag/marker and recovers the routing descriptor a
// delivered spike resolves against.
func (s SpikeData) ToTarget() Target {
	return Target{Rank: s.Rank, Tid: s.Tid, SynID: s.SynID, LCID: s.LCID}
}

// ToTarget recovers the routing descriptor, carrying the sub-step
// offset through for precise delivery.
func (s OffGridSpikeData) ToTarget() Target {
	t := s.SpikeData.ToTarget()
	t.Offset = s.Offset
	t.HasOffset = true
	return t
}
