package server

import (
	"fmt"

	"simnet/internal/action"
	"simnet/internal/dataType"
	"simnet/internal/secure"
	"simnet/internal/sim"
	"simnet/internal/tcp"
	"simnet/internal/transport"
	"simnet/internal/wire"
)

const (
	// synWindow is how long a source's SYN history is remembered before
	// the sweep reaps it.
	synWindow = 60.0
	// synSweepInterval drives the reap timer.
	synSweepInterval = 1.0
	// queuePullInterval paces the deferred-response queue drain.
	queuePullInterval = 0.001
)

// Base carries the state every server reactor shares: the output
// transmitter, the TCP connection table, shared keys, SYN-flood
// tracking and the priority response queue. Concrete servers embed it
// and dispatch kinds onto its handlers.
type Base struct {
	Addr wire.Addr

	TX    *transport.Transmitter
	Conns *tcp.Table
	Keys  map[wire.Addr]string
	KP    secure.KeyPair

	Syn          *dataType.SynTracker
	SynRateLimit int64

	RespQueue *dataType.FrameQueue

	// Handshake policy: what a fresh accepted connection starts with.
	InitialCwnd     float64
	InitialSsthresh float64

	processTimer *sim.Timer
	synSweep     *sim.Timer
}

func NewBase(addr wire.Addr, synRateLimit int64) *Base {
	return &Base{
		Addr:            addr,
		TX:              transport.New(0),
		Conns:           tcp.NewTable(),
		Keys:            make(map[wire.Addr]string),
		KP:              secure.NewKeyPair(addr),
		Syn:             dataType.NewSynTracker(synWindow),
		SynRateLimit:    synRateLimit,
		RespQueue:       dataType.NewFrameQueue(),
		InitialCwnd:     1.0,
		InitialSsthresh: 64.0,
		processTimer:    &sim.Timer{Name: "processQueue"},
		synSweep:        &sim.Timer{Name: "synFloodCheck"},
	}
}

// Init schedules the SYN sweep. Concrete servers call it from their
// Initialize hook.
func (b *Base) Init(ctx *sim.Context) {
	ctx.ScheduleAt(ctx.Now()+synSweepInterval, b.synSweep)
}

// HandleTimer consumes base-owned timers; returns false for anything it
// does not recognize so the embedding server can keep dispatching.
func (b *Base) HandleTimer(ctx *sim.Context, t *sim.Timer) bool {
	if b.TX.HandleTimer(ctx, t) {
		return true
	}
	switch t {
	case b.synSweep:
		b.Syn.Reap(ctx.Now())
		ctx.ScheduleAt(ctx.Now()+synSweepInterval, b.synSweep)
		return true
	case b.processTimer:
		if f := b.RespQueue.Pop(); f != nil {
			b.TX.Enqueue(ctx, f)
			if !b.RespQueue.Empty() {
				ctx.ScheduleAt(ctx.Now()+queuePullInterval, b.processTimer)
			}
		}
		return true
	}
	if t.Name == "delayedSend" {
		f, ok := t.Data.(*wire.Frame)
		if !ok {
			return true
		}
		b.TX.Enqueue(ctx, f)
		return true
	}
	return false
}

// HandleCommon processes the kinds every server understands. Returns
// true when the frame was consumed.
func (b *Base) HandleCommon(ctx *sim.Context, f *wire.Frame) bool {
	switch f.Kind {
	case wire.KeyExchange:
		b.handleKeyExchange(ctx, f)
	case wire.TCPSyn:
		b.handleSyn(ctx, f)
	case wire.TCPAck:
		b.handleAck(ctx, f)
	case wire.TCPFin:
		b.handleFin(ctx, f)
	default:
		return false
	}
	return true
}

// handleKeyExchange stores the shared secret. A reply goes out only when
// no key was held for the peer yet; a duplicate exchange just refreshes
// the key.
func (b *Base) handleKeyExchange(ctx *sim.Context, f *wire.Frame) {
	kx, ok := f.Fields.(*wire.KeyExchangeFields)
	if !ok {
		ctx.Log().Warn(fmt.Sprintf("[DROP] %s key exchange without public key from %d", ctx.Name(), f.Src))
		return
	}
	_, had := b.Keys[f.Src]
	b.Keys[f.Src] = b.KP.SharedSecret(kx.PublicKey)
	if !had {
		resp := wire.New(wire.KeyExchange, b.Addr, f.Src)
		resp.Priority = wire.PriorityHigh
		resp.Fields = &wire.KeyExchangeFields{PublicKey: b.KP.Public}
		b.TX.Enqueue(ctx, resp)
	}
	ctx.Log().Info(fmt.Sprintf("%s completed key exchange with %d", ctx.Name(), f.Src))
}

// handleSyn runs the ingress chain (flood limit, then cookie), and on
// allow answers with a SYN-ACK and a SYN_RECEIVED connection.
func (b *Base) handleSyn(ctx *sim.Context, f *wire.Frame) {
	decision := action.NewDecision()
	for _, chk := range synChecks {
		chk(ctx, f, b, decision)
		if decision.Get() == action.Drop {
			ctx.Log().Warn(fmt.Sprintf("[DROP] %s SYN from %d: %s", ctx.Name(), f.Src, decision.Reason()))
			return
		}
	}

	serverSeq := isn(ctx)
	synAck := wire.New(wire.TCPSynAck, b.Addr, f.Src)
	synAck.Seq = serverSeq
	synAck.Ack = f.Seq + 1
	synAck.Priority = wire.PriorityHigh
	synAck.Fields = &wire.SynFields{Cookie: tcp.Cookie(ctx.Secret(), b.Addr, f.Src, serverSeq)}
	b.TX.Enqueue(ctx, synAck)

	b.Conns.Accept(f.Src, serverSeq, f.Seq, b.InitialCwnd, b.InitialSsthresh)
	ctx.Log().Info(fmt.Sprintf("%s sent SYN-ACK to %d", ctx.Name(), f.Src))
}

func (b *Base) handleAck(ctx *sim.Context, f *wire.Frame) {
	c, ok := b.Conns.Get(f.Src)
	if !ok {
		ctx.Log().Warn(fmt.Sprintf("[DROP] %s ACK from unknown peer %d", ctx.Name(), f.Src))
		return
	}
	if c.State == tcp.SynReceived {
		c.State = tcp.Established
		ctx.Log().Info(fmt.Sprintf("%s TCP connection established with %d", ctx.Name(), f.Src))
	}
	c.OnAck()
}

func (b *Base) handleFin(ctx *sim.Context, f *wire.Frame) {
	if _, ok := b.Conns.Get(f.Src); !ok {
		ctx.Log().Warn(fmt.Sprintf("[DROP] %s FIN from unknown peer %d", ctx.Name(), f.Src))
		return
	}
	finAck := wire.New(wire.TCPFin, b.Addr, f.Src)
	b.TX.Enqueue(ctx, finAck)
	b.Conns.Delete(f.Src)
	ctx.Log().Info(fmt.Sprintf("%s closed TCP connection with %d", ctx.Name(), f.Src))
}

// StampTCP fills a response's sequence numbers from the connection and
// post-increments the send sequence. No connection, no stamping.
func (b *Base) StampTCP(dst wire.Addr, resp *wire.Frame) {
	if c, ok := b.Conns.Get(dst); ok {
		resp.Seq = c.NextSendSeq()
		resp.Ack = c.RecvSeq
	}
}

// Respond applies the priority policy: priority >= high goes out after
// serviceTime*fastFactor; everything else waits on the response queue,
// pulled one frame per tick once the full service time elapses.
func (b *Base) Respond(ctx *sim.Context, resp *wire.Frame, serviceTime, fastFactor float64) {
	if resp.Priority >= wire.PriorityHigh {
		t := &sim.Timer{Name: "delayedSend", Data: resp}
		ctx.ScheduleAt(ctx.Now()+serviceTime*fastFactor, t)
		return
	}
	b.RespQueue.Push(resp)
	if !b.processTimer.Scheduled() {
		ctx.ScheduleAt(ctx.Now()+serviceTime, b.processTimer)
	}
}

// Encrypt returns the XOR representation of data under the key shared
// with peer, and whether a key was held at all.
func (b *Base) Encrypt(peer wire.Addr, data string) (string, bool) {
	key, ok := b.Keys[peer]
	if !ok {
		return data, false
	}
	return secure.Crypt(data, key), true
}

// Decrypt reverses Encrypt when the encrypted flag is set.
func (b *Base) Decrypt(peer wire.Addr, data string, encrypted bool) string {
	if !encrypted {
		return data
	}
	key, ok := b.Keys[peer]
	if !ok {
		return data
	}
	return secure.Crypt(data, key)
}

// Shutdown cancels base timers and drains queues. Finish-hook duty.
func (b *Base) Shutdown(ctx *sim.Context) {
	ctx.Cancel(b.processTimer)
	ctx.Cancel(b.synSweep)
	b.RespQueue.Drain()
	b.TX.Shutdown(ctx)
}

// isn draws a random initial sequence number.
func isn(ctx *sim.Context) int64 {
	return 1000 + ctx.Rand().Int63n(9000)
}
