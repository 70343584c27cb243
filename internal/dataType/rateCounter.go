package dataType

import (
	"log"

	"github.com/cespare/xxhash/v2"
)

// Counter is a per-key sliding-window rate counter over whole simulation
// seconds. The simulation is single-threaded, so unlike a wall-clock
// counter there is no locking; keys are still stored hashed.

type timeSegment struct {
	timestamp int64
	count     int64
}

type counterElement struct {
	segments    []timeSegment
	segSize     int64
	lastUpdated int64
}

func newCounterElement(segments int) *counterElement {
	return &counterElement{
		segments: make([]timeSegment, segments),
		segSize:  int64(segments),
	}
}

func (c *counterElement) counterElementAdd(ts int64, value int64) {
	idx := ts % c.segSize
	if c.segments[idx].timestamp != ts {
		c.segments[idx].timestamp = ts
		c.segments[idx].count = value
	} else {
		c.segments[idx].count += value
	}
	c.lastUpdated = ts
}

func (c *counterElement) counterElementQuery(lastN int64, now int64) int64 {
	var sum int64
	if lastN > c.segSize {
		lastN = c.segSize
		log.Printf("Error: lastN exceeds segment size, resetting to segment size")
	}
	for i := int64(0); i < lastN; i++ {
		sec := now - lastN + 1 + i
		idx := sec % c.segSize
		if c.segments[idx].timestamp == sec {
			sum += c.segments[idx].count
		}
	}
	return sum
}

type Counter struct {
	counters map[uint64]*counterElement
	segSize  int64
}

// NewCounter sizes every key's ring to size one-second segments.
func NewCounter(size int64) *Counter {
	return &Counter{
		counters: make(map[uint64]*counterElement),
		segSize:  size,
	}
}

// Add records value for key at simulation time now (seconds).
func (tc *Counter) Add(key string, value int64, now float64) {
	ts := int64(now)
	hashKey := xxhash.Sum64String(key)
	counter, exists := tc.counters[hashKey]
	if !exists {
		counter = newCounterElement(int(tc.segSize))
		tc.counters[hashKey] = counter
	}
	counter.counterElementAdd(ts, value)
}

// Query sums key's events over the last lastN seconds ending at now.
func (tc *Counter) Query(key string, lastN int64, now float64) int64 {
	hashKey := xxhash.Sum64String(key)
	if counter, exists := tc.counters[hashKey]; exists {
		return counter.counterElementQuery(lastN, int64(now))
	}
	return 0
}

func (tc *Counter) Reset(key string) {
	delete(tc.counters, xxhash.Sum64String(key))
}

// GC drops keys idle for longer than the window. Driven by each node's
// sweep timer rather than a background goroutine.
func (tc *Counter) GC(now float64) {
	expireThreshold := int64(now) - tc.segSize
	for key, counter := range tc.counters {
		if counter.lastUpdated < expireThreshold {
			delete(tc.counters, key)
		}
	}
}
