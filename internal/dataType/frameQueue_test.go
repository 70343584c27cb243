package dataType

import (
	"testing"

	"simnet/internal/wire"
)

func frameWithPriority(p wire.Priority, seq int64) *wire.Frame {
	f := wire.New(wire.TCPData, 1, 2)
	f.Priority = p
	f.Seq = seq
	return f
}

func TestFrameQueuePriorityOrder(t *testing.T) {
	q := NewFrameQueue()
	q.Push(frameWithPriority(wire.PriorityLow, 1))
	q.Push(frameWithPriority(wire.PriorityCritical, 2))
	q.Push(frameWithPriority(wire.PriorityNormal, 3))
	q.Push(frameWithPriority(wire.PriorityHigh, 4))

	var got []wire.Priority
	for !q.Empty() {
		got = append(got, q.Pop().Priority)
	}
	want := []wire.Priority{wire.PriorityCritical, wire.PriorityHigh, wire.PriorityNormal, wire.PriorityLow}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("drain order %v, want %v", got, want)
		}
	}
}

func TestFrameQueueFIFOWithinPriority(t *testing.T) {
	q := NewFrameQueue()
	for seq := int64(0); seq < 5; seq++ {
		q.Push(frameWithPriority(wire.PriorityNormal, seq))
	}
	for seq := int64(0); seq < 5; seq++ {
		if f := q.Pop(); f.Seq != seq {
			t.Fatalf("popped seq %d, want %d: ties must keep insertion order", f.Seq, seq)
		}
	}
}

func TestFrameQueuePopEmpty(t *testing.T) {
	q := NewFrameQueue()
	if q.Pop() != nil {
		t.Fatal("pop on empty queue must return nil")
	}
}

func TestFrameQueueDrain(t *testing.T) {
	q := NewFrameQueue()
	q.Push(frameWithPriority(wire.PriorityNormal, 1))
	q.Drain()
	if !q.Empty() {
		t.Fatal("drain must empty the queue")
	}
}
