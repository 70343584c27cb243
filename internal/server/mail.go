package server

import (
	"fmt"

	"simnet/internal/sim"
	"simnet/internal/wire"
)

const mailFastFactor = 0.7

// Mail handles mail requests over TCP. Same shape as HTTP with its own
// service-time policy.
type Mail struct {
	*Base
	MailSizeBytes int64
	ServiceTime   float64
}

func NewMail(addr wire.Addr, mailSizeBytes int64, serviceTime float64, synRateLimit int64) *Mail {
	return &Mail{
		Base:          NewBase(addr, synRateLimit),
		MailSizeBytes: mailSizeBytes,
		ServiceTime:   serviceTime,
	}
}

func (s *Mail) Initialize(ctx *sim.Context) {
	s.Init(ctx)
	ctx.Log().Info(fmt.Sprintf("Mail server %d initialized", s.Addr))
}

func (s *Mail) HandleTimer(ctx *sim.Context, t *sim.Timer) {
	s.Base.HandleTimer(ctx, t)
}

func (s *Mail) HandleMessage(ctx *sim.Context, f *wire.Frame, arrivalGate int) {
	if s.HandleCommon(ctx, f) {
		return
	}
	switch f.Kind {
	case wire.MailRequest:
		s.handleRequest(ctx, f)
	case wire.TCPData:
		if _, ok := f.Fields.(*wire.MailRequestFields); ok {
			s.handleRequest(ctx, f)
			return
		}
		ctx.Log().Warn(fmt.Sprintf("[DROP] Mail %d TCP data without request from %d", s.Addr, f.Src))
	default:
		ctx.Log().Warn(fmt.Sprintf("[DROP] Mail %d unexpected kind=%s", s.Addr, f.Kind))
	}
}

func (s *Mail) handleRequest(ctx *sim.Context, f *wire.Frame) {
	req, ok := f.Fields.(*wire.MailRequestFields)
	if !ok {
		ctx.Log().Warn(fmt.Sprintf("[DROP] Mail %d request without rcpt from %d", s.Addr, f.Src))
		return
	}
	rcpt := s.Decrypt(f.Src, req.Rcpt, req.Encrypted)
	ctx.Log().Info(fmt.Sprintf("Mail %d request for '%s' from %d", s.Addr, rcpt, f.Src))

	respKind := wire.MailResponse
	if f.Kind == wire.TCPData {
		respKind = wire.TCPData
	}
	resp := wire.New(respKind, s.Addr, f.Src)
	resp.Priority = f.Priority
	resp.ByteLength = s.MailSizeBytes
	fields := &wire.ResponseFields{Bytes: s.MailSizeBytes}
	if enc, ok := s.Encrypt(f.Src, "MAIL_DATA"); ok {
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

	s.Respond(ctx, resp, s.ServiceTime, mailFastFactor)
}

func (s *Mail) Finish(ctx *sim.Context) {
	s.Shutdown(ctx)
}
