package dataType

import "simnet/internal/wire"

// DVInfinity is the distance-vector unreachability bound: a hop count at
// or above it never enters the routing table.
const DVInfinity = 16

// RouteEntry maps a destination to its next-hop gate and metrics. An
// unknown destination simply has no entry, which reads as an infinite
// metric.
type RouteEntry struct {
	Dest       wire.Addr
	NextHop    int // gate index
	Metric     float64
	Bandwidth  float64 // available bandwidth, Mbps
	Delay      float64 // link delay, ms
	HopCount   int
	LastUpdate float64
}

// LinkStateKey identifies a link-state record by its origin router and
// the origin's local link id.
type LinkStateKey struct {
	Origin wire.Addr
	LinkID int64
}

// LinkState is one record of the link-state database. Timestamp is
// monotonically increasing per key; older records are ignored.
type LinkState struct {
	Origin    wire.Addr
	LinkID    int64
	Neighbor  wire.Addr
	Cost      float64
	Bandwidth float64
	Delay     float64
	Timestamp float64
}
