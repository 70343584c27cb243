package server

import (
	"fmt"

	"simnet/internal/dataType"
	"simnet/internal/sim"
	"simnet/internal/wire"
)

// rateWindow is the DNS query rate-limit window in seconds.
const rateWindow = 1

// DNS answers name lookups with the configured answer address. Queries
// arrive over UDP (low latency) or over an established TCP connection;
// the response mirrors the transport it came in on.
type DNS struct {
	*Base
	Answer    wire.Addr
	RateLimit int64

	queries *dataType.Counter
}

func NewDNS(addr, answer wire.Addr, rateLimit, synRateLimit int64) *DNS {
	return &DNS{
		Base:      NewBase(addr, synRateLimit),
		Answer:    answer,
		RateLimit: rateLimit,
		queries:   dataType.NewCounter(rateWindow * 2),
	}
}

func (s *DNS) Initialize(ctx *sim.Context) {
	s.Init(ctx)
	ctx.Log().Info(fmt.Sprintf("DNS server %d initialized with rate limit %d", s.Addr, s.RateLimit))
}

func (s *DNS) HandleTimer(ctx *sim.Context, t *sim.Timer) {
	s.Base.HandleTimer(ctx, t)
}

func (s *DNS) HandleMessage(ctx *sim.Context, f *wire.Frame, arrivalGate int) {
	if s.HandleCommon(ctx, f) {
		return
	}
	switch f.Kind {
	case wire.DNSQuery, wire.UDPData:
		s.handleQuery(ctx, f, f.Kind == wire.UDPData)
	case wire.TCPData:
		if _, ok := f.Fields.(*wire.DNSQueryFields); ok {
			s.ackData(ctx, f)
			s.handleQuery(ctx, f, false)
			return
		}
		ctx.Log().Warn(fmt.Sprintf("[DROP] DNS %d TCP data without query from %d", s.Addr, f.Src))
	default:
		ctx.Log().Warn(fmt.Sprintf("[DROP] DNS %d unexpected kind=%s", s.Addr, f.Kind))
	}
}

func (s *DNS) ackData(ctx *sim.Context, f *wire.Frame) {
	ack := wire.New(wire.TCPAck, s.Addr, f.Src)
	ack.Ack = f.Seq + 1
	ack.Priority = wire.PriorityHigh
	if c, ok := s.Conns.Get(f.Src); ok {
		c.RecvSeq = f.Seq + 1
	}
	s.TX.Enqueue(ctx, ack)
}

// handleQuery resolves one lookup. The rate limit counts queries only;
// handshake frames and key exchanges are not the client's fault.
func (s *DNS) handleQuery(ctx *sim.Context, f *wire.Frame, viaUDP bool) {
	q, ok := f.Fields.(*wire.DNSQueryFields)
	if !ok {
		ctx.Log().Warn(fmt.Sprintf("[DROP] DNS %d query without qname from %d", s.Addr, f.Src))
		return
	}

	key := fmt.Sprintf("%d", f.Src)
	s.queries.Add(key, 1, ctx.Now())
	if s.queries.Query(key, rateWindow, ctx.Now()) > s.RateLimit {
		ctx.Log().Warn(fmt.Sprintf("[DROP] DNS %d rate limit exceeded for %d", s.Addr, f.Src))
		return
	}

	qname := s.Decrypt(f.Src, q.QName, q.Encrypted)
	viaUDP = viaUDP || q.Protocol == "UDP"
	ctx.Log().Info(fmt.Sprintf("DNS %d received query for '%s' from %d (udp=%v)", s.Addr, qname, f.Src, viaUDP))

	respKind := wire.DNSResponse
	if viaUDP {
		respKind = wire.UDPData
	} else if f.Kind == wire.TCPData {
		respKind = wire.TCPData
	}

	resp := wire.New(respKind, s.Addr, f.Src)
	resp.Priority = f.Priority
	echo, encrypted := s.Encrypt(f.Src, qname)
	resp.Fields = &wire.DNSResponseFields{QName: echo, Answer: s.Answer, Encrypted: encrypted}
	if respKind == wire.TCPData {
		s.StampTCP(f.Src, resp)
	}
	s.TX.Enqueue(ctx, resp)
	ctx.Log().Info(fmt.Sprintf("DNS %d sent response to %d", s.Addr, f.Src))
}

func (s *DNS) Finish(ctx *sim.Context) {
	s.Shutdown(ctx)
}
