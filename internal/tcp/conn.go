package tcp

import (
	"fmt"

	"simnet/internal/wire"
)

// State is a TCP connection state. Transitions are owned exclusively by
// the endpoint that owns the connection table.
type State int

const (
	Closed State = iota
	Listen
	SynSent
	SynReceived
	Established
	FinWait
	CloseWait
	Closing
	TimeWait
)

var stateNames = [...]string{
	"CLOSED", "LISTEN", "SYN_SENT", "SYN_RECEIVED", "ESTABLISHED",
	"FIN_WAIT", "CLOSE_WAIT", "CLOSING", "TIME_WAIT",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("STATE_%d", int(s))
}

// Conn tracks one peer. Sequence numbers advance per frame, not per
// byte; that simplification is load-bearing for the rest of the
// simulation and is kept deliberately.
type Conn struct {
	Remote    wire.Addr
	State     State
	SendSeq   int64
	RecvSeq   int64
	Cwnd      float64
	Ssthresh  float64
	DupAcks   int
	LastSent  float64
	SharedKey string
}

// OnAck applies one ACK's worth of congestion window growth: doubling
// below ssthresh, additive 1/cwnd above it. Growth is monotonic absent
// a timeout.
func (c *Conn) OnAck() {
	if c.Cwnd < c.Ssthresh {
		c.Cwnd *= 2
	} else {
		c.Cwnd += 1.0 / c.Cwnd
	}
	c.DupAcks = 0
}

// OnCongestionTimeout halves ssthresh and restarts slow start.
func (c *Conn) OnCongestionTimeout() {
	c.Ssthresh = c.Cwnd / 2
	c.Cwnd = 1.0
	c.DupAcks = 0
}

// NextSendSeq stamps and post-increments the send sequence.
func (c *Conn) NextSendSeq() int64 {
	s := c.SendSeq
	c.SendSeq++
	return s
}

// Table is a node's per-peer connection map.
type Table struct {
	conns map[wire.Addr]*Conn
}

func NewTable() *Table {
	return &Table{conns: make(map[wire.Addr]*Conn)}
}

func (t *Table) Get(remote wire.Addr) (*Conn, bool) {
	c, ok := t.conns[remote]
	return c, ok
}

// Open creates the client side of a handshake: state SYN_SENT, send
// sequence one past the initial sequence carried in the SYN.
func (t *Table) Open(remote wire.Addr, isn int64, now float64) *Conn {
	c := &Conn{
		Remote:   remote,
		State:    SynSent,
		SendSeq:  isn + 1,
		Cwnd:     1.0,
		Ssthresh: 64.0,
		LastSent: now,
	}
	t.conns[remote] = c
	return c
}

// Accept creates the server side after a valid SYN: state SYN_RECEIVED.
// cwnd and ssthresh are the owner's policy (database servers start
// wider).
func (t *Table) Accept(remote wire.Addr, serverSeq, clientSeq int64, cwnd, ssthresh float64) *Conn {
	c := &Conn{
		Remote:   remote,
		State:    SynReceived,
		SendSeq:  serverSeq + 1,
		RecvSeq:  clientSeq + 1,
		Cwnd:     cwnd,
		Ssthresh: ssthresh,
	}
	t.conns[remote] = c
	return c
}

func (t *Table) Delete(remote wire.Addr) {
	delete(t.conns, remote)
}

func (t *Table) Len() int { return len(t.conns) }

// Each visits every connection. Iteration order is unspecified.
func (t *Table) Each(fn func(*Conn)) {
	for _, c := range t.conns {
		fn(c)
	}
}
