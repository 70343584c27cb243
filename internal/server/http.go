package server

import (
	"fmt"

	"simnet/internal/sim"
	"simnet/internal/utils"
	"simnet/internal/wire"
)

// Service-time factors: a high-priority response bypasses the queue and
// goes out after the reduced fraction of the service time.
const (
	httpFastFactor    = 0.5
	httpUDPFastFactor = 0.3
)

// HTTP serves GET requests over TCP and a low-latency UDP fast path.
type HTTP struct {
	*Base
	PageSizeBytes int64
	ServiceTime   float64
}

func NewHTTP(addr wire.Addr, pageSizeBytes int64, serviceTime float64, synRateLimit int64) *HTTP {
	return &HTTP{
		Base:          NewBase(addr, synRateLimit),
		PageSizeBytes: pageSizeBytes,
		ServiceTime:   serviceTime,
	}
}

func (s *HTTP) Initialize(ctx *sim.Context) {
	s.Init(ctx)
	ctx.Log().Info(fmt.Sprintf("HTTP server %d initialized", s.Addr))
}

func (s *HTTP) HandleTimer(ctx *sim.Context, t *sim.Timer) {
	s.Base.HandleTimer(ctx, t)
}

func (s *HTTP) HandleMessage(ctx *sim.Context, f *wire.Frame, arrivalGate int) {
	if s.HandleCommon(ctx, f) {
		return
	}
	switch f.Kind {
	case wire.HTTPGet:
		s.handleGet(ctx, f, false)
	case wire.TCPData:
		if _, ok := f.Fields.(*wire.HTTPGetFields); ok {
			s.handleGet(ctx, f, false)
			return
		}
		// Data with no request payload still deserves its ACK.
		ack := wire.New(wire.TCPAck, s.Addr, f.Src)
		ack.Ack = f.Seq + 1
		ack.Priority = wire.PriorityHigh
		s.TX.Enqueue(ctx, ack)
	case wire.UDPData:
		s.handleGet(ctx, f, true)
	default:
		ctx.Log().Warn(fmt.Sprintf("[DROP] HTTP %d unexpected kind=%s", s.Addr, f.Kind))
	}
}

func (s *HTTP) handleGet(ctx *sim.Context, f *wire.Frame, viaUDP bool) {
	get, ok := f.Fields.(*wire.HTTPGetFields)
	if !ok {
		ctx.Log().Warn(fmt.Sprintf("[DROP] HTTP %d request without path from %d", s.Addr, f.Src))
		return
	}
	path := s.Decrypt(f.Src, get.Path, get.Encrypted)

	// Access log line: who, what, with which browser.
	ua := utils.SummarizeUserAgent(get.UserAgent)
	ctx.Log().Info(fmt.Sprintf("HTTP %d GET '%s' from %d [%s]", s.Addr, path, f.Src, ua))

	respKind := wire.HTTPResponse
	switch {
	case viaUDP:
		respKind = wire.UDPData
	case f.Kind == wire.TCPData:
		respKind = wire.TCPData
	}

	resp := wire.New(respKind, s.Addr, f.Src)
	resp.Priority = f.Priority
	resp.ByteLength = s.PageSizeBytes
	fields := &wire.ResponseFields{Bytes: s.PageSizeBytes}
	if enc, ok := s.Encrypt(f.Src, "HTTP_DATA"); ok {
		fields.EncData = enc
		fields.Encrypted = true
	}
	resp.Fields = fields

	if respKind == wire.TCPData {
		if c, ok := s.Conns.Get(f.Src); ok {
			c.RecvSeq = f.Seq + 1
		}
		s.StampTCP(f.Src, resp)
	}

	if viaUDP {
		// UDP fast path: no reliability, minimal delay.
		t := &sim.Timer{Name: "delayedSend", Data: resp}
		ctx.ScheduleAt(ctx.Now()+s.ServiceTime*httpUDPFastFactor, t)
		return
	}
	s.Respond(ctx, resp, s.ServiceTime, httpFastFactor)
}

func (s *HTTP) Finish(ctx *sim.Context) {
	s.Shutdown(ctx)
}
