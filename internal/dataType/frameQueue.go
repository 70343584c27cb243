package dataType

import (
	"container/heap"

	"simnet/internal/wire"
)

// FrameQueue is a max-priority queue of frames. Equal priorities drain
// in insertion order.
type FrameQueue struct {
	h frameHeap
}

type frameItem struct {
	frame *wire.Frame
	seq   uint64
}

type frameHeap struct {
	items []frameItem
	seq   uint64
}

func (h frameHeap) Len() int { return len(h.items) }
func (h frameHeap) Less(i, j int) bool {
	if h.items[i].frame.Priority != h.items[j].frame.Priority {
		return h.items[i].frame.Priority > h.items[j].frame.Priority
	}
	return h.items[i].seq < h.items[j].seq
}
func (h frameHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *frameHeap) Push(x any)   { h.items = append(h.items, x.(frameItem)) }
func (h *frameHeap) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	h.items = old[:n-1]
	return it
}

func NewFrameQueue() *FrameQueue { return &FrameQueue{} }

func (q *FrameQueue) Push(f *wire.Frame) {
	q.h.seq++
	heap.Push(&q.h, frameItem{frame: f, seq: q.h.seq})
}

// Pop removes and returns the highest-priority frame, or nil when empty.
func (q *FrameQueue) Pop() *wire.Frame {
	if len(q.h.items) == 0 {
		return nil
	}
	return heap.Pop(&q.h).(frameItem).frame
}

func (q *FrameQueue) Len() int    { return len(q.h.items) }
func (q *FrameQueue) Empty() bool { return len(q.h.items) == 0 }

// Drain empties the queue, dropping its contents. Node shutdown.
func (q *FrameQueue) Drain() {
	q.h.items = nil
}
