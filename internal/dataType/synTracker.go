package dataType

import "simnet/internal/wire"

// SynTracker counts SYNs per source address together with the time of
// the most recent one. Servers reap entries older than the window on a
// periodic sweep; routers clear the whole table every second.
type SynTracker struct {
	counts   map[wire.Addr]int64
	lastSeen map[wire.Addr]float64
	window   float64
}

func NewSynTracker(window float64) *SynTracker {
	return &SynTracker{
		counts:   make(map[wire.Addr]int64),
		lastSeen: make(map[wire.Addr]float64),
		window:   window,
	}
}

// Bump records one SYN from src at time now and returns the source's
// count since its entry was last reaped or cleared.
func (t *SynTracker) Bump(src wire.Addr, now float64) int64 {
	t.counts[src]++
	t.lastSeen[src] = now
	return t.counts[src]
}

func (t *SynTracker) Count(src wire.Addr) int64 {
	return t.counts[src]
}

// Reap evicts sources whose last SYN is older than the window.
func (t *SynTracker) Reap(now float64) {
	for src, ts := range t.lastSeen {
		if now-ts > t.window {
			delete(t.counts, src)
			delete(t.lastSeen, src)
		}
	}
}

// Clear resets every counter. The router's 1 s rate-limit reset.
func (t *SynTracker) Clear() {
	t.counts = make(map[wire.Addr]int64)
	t.lastSeen = make(map[wire.Addr]float64)
}

func (t *SynTracker) Len() int { return len(t.counts) }
