package sim

import (
	"container/heap"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"simnet/internal/utils"
	"simnet/internal/wire"
)

// Node is a single-threaded reactor. Every method runs to completion on
// the kernel goroutine and must not block; waiting is expressed as
// scheduled timers.
type Node interface {
	Initialize(ctx *Context)
	HandleMessage(ctx *Context, f *wire.Frame, arrivalGate int)
	HandleTimer(ctx *Context, t *Timer)
	Finish(ctx *Context)
}

// Timer is a cancellable self-event. Nodes keep Timer pointers as fields
// and dispatch on identity in HandleTimer. Data optionally carries a
// deferred frame or other payload.
type Timer struct {
	Name string
	Data any
	ev   *event
}

// Scheduled reports whether the timer has a pending firing.
func (t *Timer) Scheduled() bool { return t.ev != nil }

type event struct {
	at       float64
	seq      uint64
	canceled bool

	// exactly one of timer / frame is set
	target *nodeState
	timer  *Timer
	frame  *wire.Frame
	gate   int
}

type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(*event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// channel is one direction of a point-to-point link.
type channel struct {
	bandwidth float64 // bits per second
	delay     float64 // propagation delay, seconds
	busyUntil float64
}

type gate struct {
	ch       *channel
	peer     *nodeState
	peerGate int
}

type nodeState struct {
	name  string
	node  Node
	gates []*gate
	ctx   Context
}

// Kernel is the discrete-event scheduler. Delivery order is total and
// non-decreasing in simulation time; ties break by insertion order.
type Kernel struct {
	now      float64
	seq      uint64
	pq       eventHeap
	nodes    []*nodeState
	rng      *rand.Rand
	secret   uint64
	logs     *utils.LogxManager
	events   uint64
	started  bool
	finished bool
}

// NewKernel seeds the deterministic RNG and draws the process-wide
// SYN-cookie secret from it.
func NewKernel(seed int64, logs *utils.LogxManager) *Kernel {
	if logs == nil {
		logs = utils.NewNopManager()
	}
	rng := rand.New(rand.NewSource(seed))
	return &Kernel{
		rng:    rng,
		secret: rng.Uint64(),
		logs:   logs,
	}
}

func (k *Kernel) Now() float64     { return k.now }
func (k *Kernel) Secret() uint64   { return k.secret }
func (k *Kernel) Rand() *rand.Rand { return k.rng }

// AddNode registers a reactor under a unique name and returns its index.
func (k *Kernel) AddNode(name string, n Node) int {
	ns := &nodeState{name: name, node: n}
	ns.ctx = Context{k: k, ns: ns}
	k.nodes = append(k.nodes, ns)
	return len(k.nodes) - 1
}

// Connect wires a duplex point-to-point link between two nodes and
// returns the new gate index on each side.
func (k *Kernel) Connect(a, b int, bandwidthMbps, delayMs float64) (int, int) {
	na, nb := k.nodes[a], k.nodes[b]
	bps := bandwidthMbps * 1e6
	d := delayMs / 1e3
	ga := &gate{ch: &channel{bandwidth: bps, delay: d}, peer: nb}
	gb := &gate{ch: &channel{bandwidth: bps, delay: d}, peer: na}
	na.gates = append(na.gates, ga)
	nb.gates = append(nb.gates, gb)
	ga.peerGate = len(nb.gates) - 1
	gb.peerGate = len(na.gates) - 1
	return len(na.gates) - 1, len(nb.gates) - 1
}

func (k *Kernel) push(e *event) {
	k.seq++
	e.seq = k.seq
	heap.Push(&k.pq, e)
}

// Run drains the event queue up to the given simulation time. The first
// call runs every node's Initialize hook; repeated calls resume where
// the previous one stopped.
func (k *Kernel) Run(until float64) {
	if !k.started {
		k.started = true
		for _, ns := range k.nodes {
			ns.node.Initialize(&ns.ctx)
		}
	}
	for k.pq.Len() > 0 {
		top := k.pq[0]
		if top.at > until {
			break
		}
		e := heap.Pop(&k.pq).(*event)
		if e.canceled {
			continue
		}
		k.now = e.at
		k.events++
		if e.timer != nil {
			e.timer.ev = nil
			e.target.node.HandleTimer(&e.target.ctx, e.timer)
		} else {
			e.target.node.HandleMessage(&e.target.ctx, e.frame, e.gate)
		}
	}
	if until > k.now {
		k.now = until
	}
}

// Finish runs every node's Finish hook once: timers cancelled, queues
// drained, held frames destroyed.
func (k *Kernel) Finish() {
	if k.finished {
		return
	}
	k.finished = true
	for _, ns := range k.nodes {
		ns.node.Finish(&ns.ctx)
	}
	k.logs.Get("kernel").Info(fmt.Sprintf("simulation ended at t=%.6f after %d events", k.now, k.events))
}

// Context binds the kernel to one node. All reactor interaction with the
// scheduler and the channels goes through it.
type Context struct {
	k  *Kernel
	ns *nodeState
}

func (c *Context) Now() float64     { return c.k.now }
func (c *Context) Name() string     { return c.ns.name }
func (c *Context) GateCount() int   { return len(c.ns.gates) }
func (c *Context) Rand() *rand.Rand { return c.k.rng }
func (c *Context) Secret() uint64   { return c.k.secret }

func (c *Context) Log() *zap.Logger { return c.k.logs.Get(c.ns.name) }

// ScheduleAt queues a timer firing at simulation time at. A timer that
// is already pending is rescheduled.
func (c *Context) ScheduleAt(at float64, t *Timer) {
	if t.ev != nil {
		t.ev.canceled = true
	}
	if at < c.k.now {
		at = c.k.now
	}
	e := &event{at: at, target: c.ns, timer: t}
	t.ev = e
	c.k.push(e)
}

// Cancel unschedules a pending timer. Cancelling an idle timer is a no-op.
func (c *Context) Cancel(t *Timer) {
	if t.ev != nil {
		t.ev.canceled = true
		t.ev = nil
	}
}

// TransmissionFinishTime reports when the gate's channel next becomes
// idle. A value <= Now means the channel is free.
func (c *Context) TransmissionFinishTime(gateIndex int) float64 {
	return c.ns.gates[gateIndex].ch.busyUntil
}

// LinkBandwidthMbps exposes the configured channel rate for the gate,
// used by the router's TE cost computation.
func (c *Context) LinkBandwidthMbps(gateIndex int) float64 {
	return c.ns.gates[gateIndex].ch.bandwidth / 1e6
}

// LinkDelayMs exposes the configured propagation delay for the gate.
func (c *Context) LinkDelayMs(gateIndex int) float64 {
	return c.ns.gates[gateIndex].ch.delay * 1e3
}

// Send hands the frame to the gate's channel. The channel must be idle:
// the transmitter is the only correct caller, and a busy channel here is
// a programming error, not a recoverable condition.
func (c *Context) Send(f *wire.Frame, gateIndex int) {
	g := c.ns.gates[gateIndex]
	ch := g.ch
	if ch.busyUntil > c.k.now {
		panic(fmt.Sprintf("sim: node %s sent on busy gate %d (busy until %f, now %f)",
			c.ns.name, gateIndex, ch.busyUntil, c.k.now))
	}
	txDur := float64(f.ByteLength*8) / ch.bandwidth
	ch.busyUntil = c.k.now + txDur
	c.k.push(&event{
		at:     ch.busyUntil + ch.delay,
		target: g.peer,
		frame:  f,
		gate:   g.peerGate,
	})
}
