package router

import (
	"fmt"
	"math"

	"simnet/internal/dataType"
	"simnet/internal/sim"
	"simnet/internal/wire"
)

// sendHellos advertises liveness on every gate. Receipt is how
// neighbors learn which router sits behind which gate.
func (r *Router) sendHellos(ctx *sim.Context) {
	for i := range r.txs {
		hello := wire.New(wire.OSPFHello, r.cfg.Addr, wire.Broadcast)
		hello.Priority = wire.PriorityHigh
		r.txs[i].Enqueue(ctx, hello)
	}
	ctx.Log().Debug(fmt.Sprintf("Router %d sent OSPF Hello", r.cfg.Addr))
}

func (r *Router) handleHello(ctx *sim.Context, f *wire.Frame, arrivalGate int) {
	r.neighbors[arrivalGate] = f.Src
	ctx.Log().Debug(fmt.Sprintf("Router %d received OSPF Hello from %d", r.cfg.Addr, f.Src))
}

// sendLSAs originates one advertisement per local link with the
// traffic-engineering cost 1/(bandwidth - utilization + 1), installs it
// in the local database, and floods it on every other gate.
func (r *Router) sendLSAs(ctx *sim.Context) {
	now := ctx.Now()
	for i := range r.txs {
		avail := r.bw[i] - r.util[i]
		ls := dataType.LinkState{
			Origin:    r.cfg.Addr,
			LinkID:    int64(i),
			Neighbor:  r.neighbors[i],
			Cost:      1.0 / (avail + 1),
			Bandwidth: avail,
			Delay:     ctx.LinkDelayMs(i),
			Timestamp: now,
		}
		r.lsdb[dataType.LinkStateKey{Origin: ls.Origin, LinkID: ls.LinkID}] = ls

		lsa := wire.New(wire.OSPFLSA, r.cfg.Addr, wire.Broadcast)
		lsa.Priority = wire.PriorityHigh
		lsa.Fields = &wire.LSAFields{
			LinkID:     ls.LinkID,
			Cost:       ls.Cost,
			Bandwidth:  ls.Bandwidth,
			Delay:      ls.Delay,
			NeighborID: ls.Neighbor,
			Timestamp:  ls.Timestamp,
		}
		r.seen[lsa.ID] = now
		for j := range r.txs {
			if j != i {
				r.txs[j].Enqueue(ctx, lsa.Clone())
			}
		}
	}
	r.computeRoutes(ctx)
	ctx.Log().Debug(fmt.Sprintf("Router %d sent OSPF-TE LSA", r.cfg.Addr))
}

// handleLSA installs a received advertisement and re-floods it. Two
// brakes keep the flood finite: the per-frame seen set, and the per-key
// timestamp check that ignores records older than what is already held.
func (r *Router) handleLSA(ctx *sim.Context, f *wire.Frame, arrivalGate int) {
	fields, ok := f.Fields.(*wire.LSAFields)
	if !ok {
		ctx.Log().Warn(fmt.Sprintf("[DROP] Router %d LSA without link state from %d", r.cfg.Addr, f.Src))
		return
	}
	if _, dup := r.seen[f.ID]; dup {
		return
	}
	r.seen[f.ID] = ctx.Now()

	key := dataType.LinkStateKey{Origin: f.Src, LinkID: fields.LinkID}
	if existing, held := r.lsdb[key]; held && fields.Timestamp <= existing.Timestamp {
		return
	}
	r.lsdb[key] = dataType.LinkState{
		Origin:    f.Src,
		LinkID:    fields.LinkID,
		Neighbor:  fields.NeighborID,
		Cost:      fields.Cost,
		Bandwidth: fields.Bandwidth,
		Delay:     fields.Delay,
		Timestamp: fields.Timestamp,
	}

	r.computeRoutes(ctx)

	for i := range r.txs {
		if i != arrivalGate {
			r.txs[i].Enqueue(ctx, f.Clone())
		}
	}
	ctx.Log().Debug(fmt.Sprintf("Router %d processed OSPF-TE LSA from %d", r.cfg.Addr, f.Src))
}

// computeRoutes runs Dijkstra over the link-state database and installs
// a next-hop gate for every reachable router. Host routes configured
// statically are left alone; the graph only knows routers.
func (r *Router) computeRoutes(ctx *sim.Context) {
	type edge struct {
		to   wire.Addr
		cost float64
	}
	adj := make(map[wire.Addr][]edge)
	for _, ls := range r.lsdb {
		if ls.Neighbor == 0 {
			// Link whose far end is not yet known from Hellos.
			continue
		}
		adj[ls.Origin] = append(adj[ls.Origin], edge{to: ls.Neighbor, cost: ls.Cost})
	}

	dist := map[wire.Addr]float64{r.cfg.Addr: 0}
	hops := map[wire.Addr]int{r.cfg.Addr: 0}
	firstHop := make(map[wire.Addr]wire.Addr)
	visited := make(map[wire.Addr]bool)

	for {
		u := wire.Addr(0)
		best := math.Inf(1)
		for v, d := range dist {
			if !visited[v] && d < best {
				best, u = d, v
			}
		}
		if math.IsInf(best, 1) {
			break
		}
		visited[u] = true
		for _, e := range adj[u] {
			nd := dist[u] + e.cost
			if old, known := dist[e.to]; !known || nd < old {
				dist[e.to] = nd
				hops[e.to] = hops[u] + 1
				if u == r.cfg.Addr {
					firstHop[e.to] = e.to
				} else {
					firstHop[e.to] = firstHop[u]
				}
			}
		}
	}

	now := ctx.Now()
	for dest, fh := range firstHop {
		gate := r.gateTo(fh)
		if gate < 0 {
			continue
		}
		r.table[dest] = dataType.RouteEntry{
			Dest:       dest,
			NextHop:    gate,
			Metric:     dist[dest],
			Bandwidth:  r.bw[gate] - r.util[gate],
			Delay:      ctx.LinkDelayMs(gate),
			HopCount:   hops[dest],
			LastUpdate: now,
		}
	}
}

// gateTo finds the gate whose Hello-learned neighbor is the given
// router, -1 when none is.
func (r *Router) gateTo(neighbor wire.Addr) int {
	for g, n := range r.neighbors {
		if n == neighbor {
			return g
		}
	}
	return -1
}
