package transport

import (
	"fmt"

	"simnet/internal/sim"
	"simnet/internal/wire"
)

// Transmitter serializes frames onto one output gate's channel. At most
// one frame is on the wire per gate at any simulation time; a send while
// the channel is busy queues instead of overlapping. It does not
// retransmit; reliability belongs to the TCP endpoint.
type Transmitter struct {
	gate  int
	queue []*wire.Frame // FIFO of frames waiting for the channel
	endTx *sim.Timer

	// OnIdle, when set, fires after the FIFO drains and the channel goes
	// idle. The router hooks it to drain its priority queue.
	OnIdle func(ctx *sim.Context)
}

func New(gate int) *Transmitter {
	return &Transmitter{
		gate:  gate,
		endTx: &sim.Timer{Name: fmt.Sprintf("endTx-%d", gate)},
	}
}

func (tx *Transmitter) Gate() int { return tx.gate }

// Enqueue schedules the frame onto the gate's channel, respecting
// busy-until. Busy channel or in-flight end-of-transmission timer means
// the frame waits its turn in FIFO order.
func (tx *Transmitter) Enqueue(ctx *sim.Context, f *wire.Frame) {
	finish := ctx.TransmissionFinishTime(tx.gate)
	if finish > ctx.Now() || tx.endTx.Scheduled() {
		tx.queue = append(tx.queue, f)
		ctx.Log().Debug(fmt.Sprintf("%s gate %d busy, queued %s", ctx.Name(), tx.gate, f.Kind))
		return
	}
	tx.start(ctx, f)
}

func (tx *Transmitter) start(ctx *sim.Context, f *wire.Frame) {
	ctx.Send(f, tx.gate)
	finish := ctx.TransmissionFinishTime(tx.gate)
	ctx.ScheduleAt(finish, tx.endTx)
}

// HandleTimer consumes the end-of-transmission event. Returns false when
// the timer is not this transmitter's, so nodes can chain dispatch.
func (tx *Transmitter) HandleTimer(ctx *sim.Context, t *sim.Timer) bool {
	if t != tx.endTx {
		return false
	}
	if len(tx.queue) > 0 {
		next := tx.queue[0]
		tx.queue = tx.queue[1:]
		tx.start(ctx, next)
		return true
	}
	if tx.OnIdle != nil {
		tx.OnIdle(ctx)
	}
	return true
}

func (tx *Transmitter) QueueLen() int { return len(tx.queue) }

// Idle reports whether the gate could take a frame right now without
// queueing: empty FIFO, no transmission in progress, channel free.
func (tx *Transmitter) Idle(ctx *sim.Context) bool {
	return len(tx.queue) == 0 && !tx.endTx.Scheduled() && ctx.TransmissionFinishTime(tx.gate) <= ctx.Now()
}

// Shutdown cancels the pending end-of-transmission event and destroys
// queued frames. Called from the owning node's Finish hook.
func (tx *Transmitter) Shutdown(ctx *sim.Context) {
	ctx.Cancel(tx.endTx)
	tx.queue = nil
}
