package transport

import (
	"testing"

	"simnet/internal/sim"
	"simnet/internal/wire"
)

// sender pushes a burst of frames through one transmitter.
type sender struct {
	tx     *Transmitter
	burst  []*wire.Frame
	onIdle func(ctx *sim.Context)
}

func (s *sender) Initialize(ctx *sim.Context) {
	s.tx = New(0)
	s.tx.OnIdle = s.onIdle
	for _, f := range s.burst {
		s.tx.Enqueue(ctx, f)
	}
}

func (s *sender) HandleMessage(ctx *sim.Context, f *wire.Frame, gate int) {}

func (s *sender) HandleTimer(ctx *sim.Context, t *sim.Timer) {
	s.tx.HandleTimer(ctx, t)
}

func (s *sender) Finish(ctx *sim.Context) { s.tx.Shutdown(ctx) }

// sink records deliveries with their times.
type sink struct {
	frames []*wire.Frame
	times  []float64
}

func (s *sink) Initialize(ctx *sim.Context) {}
func (s *sink) HandleMessage(ctx *sim.Context, f *wire.Frame, gate int) {
	s.frames = append(s.frames, f)
	s.times = append(s.times, ctx.Now())
}
func (s *sink) HandleTimer(ctx *sim.Context, t *sim.Timer) {}
func (s *sink) Finish(ctx *sim.Context)                    {}

func runPair(t *testing.T, snd *sender, until float64) *sink {
	t.Helper()
	rcv := &sink{}
	k := sim.NewKernel(1, nil)
	is := k.AddNode("snd", snd)
	ir := k.AddNode("rcv", rcv)
	k.Connect(is, ir, 100, 1)
	k.Run(until)
	return rcv
}

func TestSerializesBurstInFIFOOrder(t *testing.T) {
	const n = 5
	snd := &sender{}
	for i := 0; i < n; i++ {
		f := wire.New(wire.UDPData, 1, 2)
		f.Seq = int64(i)
		snd.burst = append(snd.burst, f)
	}

	rcv := runPair(t, snd, 1)

	if len(rcv.frames) != n {
		t.Fatalf("received %d frames, want %d", len(rcv.frames), n)
	}
	for i, f := range rcv.frames {
		if f.Seq != int64(i) {
			t.Fatalf("frame %d has seq %d: FIFO order violated", i, f.Seq)
		}
	}

	// Serializer safety: consecutive arrivals are at least one
	// transmission time apart, so no two frames overlapped on the wire.
	txTime := 1000 * 8 / 100e6
	for i := 1; i < n; i++ {
		gap := rcv.times[i] - rcv.times[i-1]
		if gap < txTime-1e-12 {
			t.Fatalf("frames %d and %d overlap: gap %g < tx time %g", i-1, i, gap, txTime)
		}
	}
}

func TestEnqueueWhileIdleSendsImmediately(t *testing.T) {
	snd := &sender{burst: []*wire.Frame{wire.New(wire.UDPData, 1, 2)}}
	rcv := runPair(t, snd, 1)

	if len(rcv.frames) != 1 {
		t.Fatalf("received %d frames, want 1", len(rcv.frames))
	}
	if snd.tx.QueueLen() != 0 {
		t.Error("nothing should remain queued")
	}
}

func TestOnIdleFiresAfterDrain(t *testing.T) {
	calls := 0
	snd := &sender{
		burst:  []*wire.Frame{wire.New(wire.UDPData, 1, 2), wire.New(wire.UDPData, 1, 2)},
		onIdle: func(ctx *sim.Context) { calls++ },
	}
	rcv := runPair(t, snd, 1)

	if len(rcv.frames) != 2 {
		t.Fatalf("received %d frames, want 2", len(rcv.frames))
	}
	if calls != 1 {
		t.Fatalf("OnIdle fired %d times, want 1 (after the FIFO drained)", calls)
	}
}
