package server

import (
	"fmt"

	"simnet/internal/sim"
	"simnet/internal/wire"
)

const videoChunkBytes = 1400

// Video streams a request as a series of chunk responses through the
// priority queue, one chunk per queue pull.
type Video struct {
	*Base
	ServiceTime float64
}

func NewVideo(addr wire.Addr, serviceTime float64, synRateLimit int64) *Video {
	return &Video{
		Base:        NewBase(addr, synRateLimit),
		ServiceTime: serviceTime,
	}
}

func (s *Video) Initialize(ctx *sim.Context) {
	s.Init(ctx)
	ctx.Log().Info(fmt.Sprintf("Video server %d initialized", s.Addr))
}

func (s *Video) HandleTimer(ctx *sim.Context, t *sim.Timer) {
	s.Base.HandleTimer(ctx, t)
}

func (s *Video) HandleMessage(ctx *sim.Context, f *wire.Frame, arrivalGate int) {
	if s.HandleCommon(ctx, f) {
		return
	}
	switch f.Kind {
	case wire.VideoRequest:
		s.handleRequest(ctx, f)
	case wire.TCPData:
		if _, ok := f.Fields.(*wire.VideoRequestFields); ok {
			s.handleRequest(ctx, f)
			return
		}
		ctx.Log().Warn(fmt.Sprintf("[DROP] Video %d TCP data without request from %d", s.Addr, f.Src))
	default:
		ctx.Log().Warn(fmt.Sprintf("[DROP] Video %d unexpected kind=%s", s.Addr, f.Kind))
	}
}

func (s *Video) handleRequest(ctx *sim.Context, f *wire.Frame) {
	req, ok := f.Fields.(*wire.VideoRequestFields)
	if !ok {
		ctx.Log().Warn(fmt.Sprintf("[DROP] Video %d request without title from %d", s.Addr, f.Src))
		return
	}
	chunks := req.Chunks
	if chunks <= 0 {
		chunks = 1
	}
	ctx.Log().Info(fmt.Sprintf("Video %d streaming '%s' in %d chunks to %d", s.Addr, req.Title, chunks, f.Src))

	if c, ok := s.Conns.Get(f.Src); ok {
		c.RecvSeq = f.Seq + 1
	}

	for i := int64(0); i < chunks; i++ {
		chunk := wire.New(wire.VideoChunk, s.Addr, f.Src)
		chunk.Priority = f.Priority
		chunk.ByteLength = videoChunkBytes
		chunk.Fields = &wire.ResponseFields{Bytes: videoChunkBytes, ChunkIndex: i, ChunkTotal: chunks}
		s.StampTCP(f.Src, chunk)
		s.Respond(ctx, chunk, s.ServiceTime, httpFastFactor)
	}
}

func (s *Video) Finish(ctx *sim.Context) {
	s.Shutdown(ctx)
}
