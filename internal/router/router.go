package router

import (
	"fmt"

	"simnet/internal/dataType"
	"simnet/internal/sim"
	"simnet/internal/transport"
	"simnet/internal/utils"
	"simnet/internal/wire"
)

// Routing protocol selection, per router.
const (
	ProtocolOSPFTE = "OSPF-TE"
	ProtocolRIP    = "RIP"
	ProtocolStatic = "STATIC"
)

const (
	// synResetInterval clears the per-source SYN counters.
	synResetInterval = 1.0
	// seenSweepInterval / seenMaxAge bound the flooded-LSA dedup set.
	seenSweepInterval = 60.0
	seenMaxAge        = 300.0
)

// Config is one router's startup configuration.
type Config struct {
	Addr              wire.Addr
	Protocol          string
	StaticRoutes      []utils.StaticRoute
	HelloInterval     float64
	LSAInterval       float64
	RIPUpdateInterval float64
	SynRateLimit      int64
}

// Router forwards priority-tagged frames between its gates and runs the
// configured control plane on the side.
type Router struct {
	cfg Config

	table     map[wire.Addr]dataType.RouteEntry
	lsdb      map[dataType.LinkStateKey]dataType.LinkState
	neighbors map[int]wire.Addr // gate -> neighbor router id, learned from Hellos

	// seen is the flooded-LSA dedup set, keyed by frame ID. Same job as
	// a gossip node's seen-message map: a flood must terminate.
	seen map[string]float64

	txs   []*transport.Transmitter
	prioQ []*dataType.FrameQueue
	bw    []float64 // per-gate link bandwidth, Mbps
	util  []float64 // per-gate accrued utilization, Mbps

	syn *dataType.SynTracker

	helloTimer    *sim.Timer
	lsaTimer      *sim.Timer
	ripTimer      *sim.Timer
	synResetTimer *sim.Timer
	seenSweep     *sim.Timer
}

func New(cfg Config) *Router {
	return &Router{
		cfg:           cfg,
		table:         make(map[wire.Addr]dataType.RouteEntry),
		lsdb:          make(map[dataType.LinkStateKey]dataType.LinkState),
		neighbors:     make(map[int]wire.Addr),
		seen:          make(map[string]float64),
		syn:           dataType.NewSynTracker(synResetInterval),
		helloTimer:    &sim.Timer{Name: "ospfHello"},
		lsaTimer:      &sim.Timer{Name: "ospfLSA"},
		ripTimer:      &sim.Timer{Name: "ripUpdate"},
		synResetTimer: &sim.Timer{Name: "rateLimitReset"},
		seenSweep:     &sim.Timer{Name: "seenSweep"},
	}
}

func (r *Router) Initialize(ctx *sim.Context) {
	n := ctx.GateCount()
	r.txs = make([]*transport.Transmitter, n)
	r.prioQ = make([]*dataType.FrameQueue, n)
	r.bw = make([]float64, n)
	r.util = make([]float64, n)
	for i := 0; i < n; i++ {
		gate := i
		r.txs[i] = transport.New(i)
		r.txs[i].OnIdle = func(ctx *sim.Context) { r.drainPriorityQueue(ctx, gate) }
		r.prioQ[i] = dataType.NewFrameQueue()
		r.bw[i] = ctx.LinkBandwidthMbps(i)
	}

	for _, sr := range r.cfg.StaticRoutes {
		r.table[sr.Dest] = dataType.RouteEntry{
			Dest: sr.Dest, NextHop: sr.Gate, Metric: 1.0,
			Bandwidth: 100.0, Delay: 1.0, HopCount: 1,
		}
	}

	ctx.ScheduleAt(ctx.Now()+synResetInterval, r.synResetTimer)

	switch r.cfg.Protocol {
	case ProtocolOSPFTE:
		ctx.ScheduleAt(ctx.Now()+ctx.Rand().Float64(), r.helloTimer)
		ctx.ScheduleAt(ctx.Now()+ctx.Rand().Float64()*2, r.lsaTimer)
		ctx.ScheduleAt(ctx.Now()+seenSweepInterval, r.seenSweep)
		ctx.Log().Info(fmt.Sprintf("Router %d initialized with OSPF-TE", r.cfg.Addr))
	case ProtocolRIP:
		ctx.ScheduleAt(ctx.Now()+ctx.Rand().Float64()*r.cfg.RIPUpdateInterval, r.ripTimer)
		ctx.Log().Info(fmt.Sprintf("Router %d initialized with RIP", r.cfg.Addr))
	default:
		ctx.Log().Info(fmt.Sprintf("Router %d initialized with static routes", r.cfg.Addr))
	}
}

func (r *Router) HandleTimer(ctx *sim.Context, t *sim.Timer) {
	for _, tx := range r.txs {
		if tx.HandleTimer(ctx, t) {
			return
		}
	}
	switch t {
	case r.helloTimer:
		r.sendHellos(ctx)
		ctx.ScheduleAt(ctx.Now()+r.cfg.HelloInterval, r.helloTimer)
	case r.lsaTimer:
		r.sendLSAs(ctx)
		ctx.ScheduleAt(ctx.Now()+r.cfg.LSAInterval, r.lsaTimer)
	case r.ripTimer:
		r.sendRIPUpdate(ctx)
		ctx.ScheduleAt(ctx.Now()+r.cfg.RIPUpdateInterval, r.ripTimer)
	case r.synResetTimer:
		r.syn.Clear()
		ctx.ScheduleAt(ctx.Now()+synResetInterval, r.synResetTimer)
	case r.seenSweep:
		now := ctx.Now()
		for id, ts := range r.seen {
			if now-ts > seenMaxAge {
				delete(r.seen, id)
			}
		}
		ctx.ScheduleAt(now+seenSweepInterval, r.seenSweep)
	}
}

func (r *Router) HandleMessage(ctx *sim.Context, f *wire.Frame, arrivalGate int) {
	switch f.Kind {
	case wire.OSPFHello:
		r.handleHello(ctx, f, arrivalGate)
		return
	case wire.OSPFLSA, wire.OSPFTEUpdate:
		r.handleLSA(ctx, f, arrivalGate)
		return
	case wire.RIPUpdate:
		r.handleRIPUpdate(ctx, f, arrivalGate)
		return
	case wire.RIPRequest:
		r.sendRIPUpdate(ctx)
		return
	}

	if f.Kind == wire.TCPSyn {
		if r.syn.Bump(f.Src, ctx.Now()) > r.cfg.SynRateLimit {
			ctx.Log().Warn(fmt.Sprintf("[DROP] Router %d dropping SYN from %d - rate limit exceeded", r.cfg.Addr, f.Src))
			return
		}
	}

	r.forward(ctx, f, arrivalGate)
}

// forward moves one data frame toward its destination: routed when the
// table knows it, flooded everywhere but the arrival gate when not.
func (r *Router) forward(ctx *sim.Context, f *wire.Frame, arrivalGate int) {
	if entry, ok := r.table[f.Dst]; ok && entry.NextHop >= 0 && entry.NextHop < len(r.txs) {
		g := entry.NextHop
		r.util[g] += float64(f.ByteLength) / 1e6

		// High priority cuts straight to the transmitter. Everything else
		// does too while the gate is quiet; once it is not, frames wait in
		// the priority queue and leave in priority order as the gate idles.
		if f.Priority >= wire.PriorityHigh || (r.prioQ[g].Empty() && r.txs[g].Idle(ctx)) {
			r.txs[g].Enqueue(ctx, f)
			ctx.Log().Debug(fmt.Sprintf("Router %d forwarded %s to gate %d (priority %d)", r.cfg.Addr, f.Kind, g, f.Priority))
		} else {
			r.prioQ[g].Push(f)
			ctx.Log().Debug(fmt.Sprintf("Router %d queued %s for gate %d", r.cfg.Addr, f.Kind, g))
		}
		return
	}

	ctx.Log().Warn(fmt.Sprintf("Router %d no route to %d, flooding", r.cfg.Addr, f.Dst))
	r.flood(ctx, f, arrivalGate)
}

// flood clones the frame onto every gate except the arrival gate and
// consumes the original.
func (r *Router) flood(ctx *sim.Context, f *wire.Frame, arrivalGate int) {
	for i := range r.txs {
		if i == arrivalGate {
			continue
		}
		r.txs[i].Enqueue(ctx, f.Clone())
	}
}

// drainPriorityQueue hands the next queued frame to the now-idle gate.
// One frame per idle event keeps the transmitter's FIFO shallow so a
// late critical frame still overtakes.
func (r *Router) drainPriorityQueue(ctx *sim.Context, gate int) {
	if f := r.prioQ[gate].Pop(); f != nil {
		r.txs[gate].Enqueue(ctx, f)
	}
}

// Route exposes a routing table entry for tests.
func (r *Router) Route(dest wire.Addr) (dataType.RouteEntry, bool) {
	e, ok := r.table[dest]
	return e, ok
}

// RemoveRoute withdraws a destination, as when an attached network goes
// away. The next periodic update simply stops advertising it.
func (r *Router) RemoveRoute(dest wire.Addr) {
	delete(r.table, dest)
}

// LinkState exposes a database record for tests.
func (r *Router) LinkState(origin wire.Addr, linkID int64) (dataType.LinkState, bool) {
	ls, ok := r.lsdb[dataType.LinkStateKey{Origin: origin, LinkID: linkID}]
	return ls, ok
}

// Neighbor exposes the Hello-learned router on a gate.
func (r *Router) Neighbor(gate int) (wire.Addr, bool) {
	n, ok := r.neighbors[gate]
	return n, ok
}

// Utilization exposes a gate's accrued utilization in Mbps.
func (r *Router) Utilization(gate int) float64 { return r.util[gate] }

func (r *Router) Finish(ctx *sim.Context) {
	ctx.Cancel(r.helloTimer)
	ctx.Cancel(r.lsaTimer)
	ctx.Cancel(r.ripTimer)
	ctx.Cancel(r.synResetTimer)
	ctx.Cancel(r.seenSweep)
	for i, tx := range r.txs {
		tx.Shutdown(ctx)
		r.prioQ[i].Drain()
	}
}
