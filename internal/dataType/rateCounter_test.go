package dataType

import "testing"

func TestCounterSlidingWindow(t *testing.T) {
	c := NewCounter(10)

	c.Add("99", 1, 1.0)
	c.Add("99", 1, 1.2)
	c.Add("99", 1, 2.0)

	if got := c.Query("99", 1, 1.9); got != 2 {
		t.Errorf("second 1 holds %d events, want 2", got)
	}
	if got := c.Query("99", 2, 2.0); got != 3 {
		t.Errorf("last 2 seconds hold %d events, want 3", got)
	}
	// Ten seconds later the old segments are out of the window.
	if got := c.Query("99", 2, 12.0); got != 0 {
		t.Errorf("stale window holds %d events, want 0", got)
	}
}

func TestCounterKeysAreIndependent(t *testing.T) {
	c := NewCounter(10)
	c.Add("a", 5, 1.0)
	if got := c.Query("b", 10, 1.0); got != 0 {
		t.Errorf("key b holds %d, want 0", got)
	}
}

func TestCounterReset(t *testing.T) {
	c := NewCounter(10)
	c.Add("a", 5, 1.0)
	c.Reset("a")
	if got := c.Query("a", 10, 1.0); got != 0 {
		t.Errorf("reset key holds %d, want 0", got)
	}
}

func TestCounterGC(t *testing.T) {
	c := NewCounter(10)
	c.Add("a", 1, 1.0)
	c.Add("b", 1, 50.0)
	c.GC(50.0)
	if len(c.counters) != 1 {
		t.Errorf("GC kept %d keys, want 1", len(c.counters))
	}
}

func TestSynTrackerBumpAndReap(t *testing.T) {
	tr := NewSynTracker(60)

	for i := 0; i < 3; i++ {
		tr.Bump(99, 0.5)
	}
	if got := tr.Count(99); got != 3 {
		t.Fatalf("count = %d, want 3", got)
	}

	// Inside the window nothing is reaped.
	tr.Reap(30)
	if tr.Len() != 1 {
		t.Fatal("entry reaped inside the window")
	}

	// Past the window the entry goes away.
	tr.Reap(61)
	if tr.Len() != 0 {
		t.Fatal("entry survived past the window")
	}
}

func TestSynTrackerClear(t *testing.T) {
	tr := NewSynTracker(60)
	tr.Bump(1, 0)
	tr.Bump(2, 0)
	tr.Clear()
	if tr.Count(1) != 0 || tr.Len() != 0 {
		t.Fatal("clear must drop every counter")
	}
}
