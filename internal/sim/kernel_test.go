package sim

import (
	"testing"

	"simnet/internal/wire"
)

// probe is a minimal reactor for kernel tests.
type probe struct {
	fired    []string
	arrived  []*wire.Frame
	times    []float64
	gates    []int
	onInit   func(ctx *Context)
	onFrame  func(ctx *Context, f *wire.Frame, gate int)
	finished bool
}

func (p *probe) Initialize(ctx *Context) {
	if p.onInit != nil {
		p.onInit(ctx)
	}
}

func (p *probe) HandleMessage(ctx *Context, f *wire.Frame, gate int) {
	p.arrived = append(p.arrived, f)
	p.times = append(p.times, ctx.Now())
	p.gates = append(p.gates, gate)
	if p.onFrame != nil {
		p.onFrame(ctx, f, gate)
	}
}

func (p *probe) HandleTimer(ctx *Context, t *Timer) {
	p.fired = append(p.fired, t.Name)
	p.times = append(p.times, ctx.Now())
}

func (p *probe) Finish(ctx *Context) { p.finished = true }

func TestTimerOrderingAndTieBreak(t *testing.T) {
	p := &probe{}
	p.onInit = func(ctx *Context) {
		// Scheduled out of order; same-time events keep insertion order.
		ctx.ScheduleAt(2.0, &Timer{Name: "late"})
		ctx.ScheduleAt(1.0, &Timer{Name: "first"})
		ctx.ScheduleAt(1.0, &Timer{Name: "second"})
	}
	k := NewKernel(1, nil)
	k.AddNode("p", p)
	k.Run(10)
	k.Finish()

	want := []string{"first", "second", "late"}
	if len(p.fired) != len(want) {
		t.Fatalf("fired %v, want %v", p.fired, want)
	}
	for i := range want {
		if p.fired[i] != want[i] {
			t.Fatalf("fired %v, want %v", p.fired, want)
		}
	}
	if !p.finished {
		t.Error("Finish hook must run")
	}
}

func TestTimerCancel(t *testing.T) {
	p := &probe{}
	doomed := &Timer{Name: "doomed"}
	p.onInit = func(ctx *Context) {
		ctx.ScheduleAt(1.0, doomed)
		ctx.Cancel(doomed)
		ctx.ScheduleAt(2.0, &Timer{Name: "kept"})
	}
	k := NewKernel(1, nil)
	k.AddNode("p", p)
	k.Run(10)

	if len(p.fired) != 1 || p.fired[0] != "kept" {
		t.Fatalf("fired %v, want only kept", p.fired)
	}
	if doomed.Scheduled() {
		t.Error("cancelled timer must not stay scheduled")
	}
}

func TestChannelTiming(t *testing.T) {
	// 1000 bytes at 100 Mbps is 80 us on the wire, plus 1 ms propagation.
	a := &probe{}
	b := &probe{}
	k := NewKernel(1, nil)
	ia := k.AddNode("a", a)
	ib := k.AddNode("b", b)
	k.Connect(ia, ib, 100, 1)

	a.onInit = func(ctx *Context) {
		ctx.Send(wire.New(wire.UDPData, 1, 2), 0)
	}
	k.Run(1)

	if len(b.arrived) != 1 {
		t.Fatalf("b received %d frames, want 1", len(b.arrived))
	}
	wantAt := 1000*8/100e6 + 1e-3
	if got := b.times[0]; got < wantAt-1e-9 || got > wantAt+1e-9 {
		t.Errorf("arrival at %g, want %g", got, wantAt)
	}
}

func TestSendOnBusyChannelPanics(t *testing.T) {
	a := &probe{}
	b := &probe{}
	k := NewKernel(1, nil)
	ia := k.AddNode("a", a)
	ib := k.AddNode("b", b)
	k.Connect(ia, ib, 100, 1)

	defer func() {
		if recover() == nil {
			t.Fatal("second send on a busy channel must panic")
		}
	}()
	a.onInit = func(ctx *Context) {
		ctx.Send(wire.New(wire.UDPData, 1, 2), 0)
		ctx.Send(wire.New(wire.UDPData, 1, 2), 0)
	}
	k.Run(1)
}

func TestDeliveryCarriesArrivalGate(t *testing.T) {
	hub := &probe{}
	s1 := &probe{}
	s2 := &probe{}
	k := NewKernel(1, nil)
	ih := k.AddNode("hub", hub)
	i1 := k.AddNode("s1", s1)
	i2 := k.AddNode("s2", s2)
	k.Connect(i1, ih, 100, 1) // hub gate 0
	k.Connect(i2, ih, 100, 1) // hub gate 1

	s2.onInit = func(ctx *Context) {
		ctx.Send(wire.New(wire.UDPData, 2, 9), 0)
	}
	k.Run(1)

	if len(hub.arrived) != 1 || hub.gates[0] != 1 {
		t.Fatalf("hub gates = %v, want [1]", hub.gates)
	}
}

func TestDeterministicSecret(t *testing.T) {
	k1 := NewKernel(7, nil)
	k2 := NewKernel(7, nil)
	if k1.Secret() != k2.Secret() {
		t.Error("same seed must derive the same process secret")
	}
}
