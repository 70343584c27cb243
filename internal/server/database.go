package server

import (
	"fmt"

	"simnet/internal/sim"
	"simnet/internal/wire"
)

const dbFastFactor = 0.5

// Database answers queries over TCP only. Policy differences from the
// other servers: connections start with a wider window (cwnd 2.0,
// ssthresh 128) and every query bumps a per-client transaction counter
// that is echoed on the response.
type Database struct {
	*Base
	ResponseBytes int64
	QueryTime     float64

	transactions map[wire.Addr]int64
}

func NewDatabase(addr wire.Addr, responseBytes int64, queryTime float64, synRateLimit int64) *Database {
	s := &Database{
		Base:          NewBase(addr, synRateLimit),
		ResponseBytes: responseBytes,
		QueryTime:     queryTime,
		transactions:  make(map[wire.Addr]int64),
	}
	s.InitialCwnd = 2.0
	s.InitialSsthresh = 128.0
	return s
}

func (s *Database) Initialize(ctx *sim.Context) {
	s.Init(ctx)
	ctx.Log().Info(fmt.Sprintf("Database server %d initialized", s.Addr))
}

func (s *Database) HandleTimer(ctx *sim.Context, t *sim.Timer) {
	s.Base.HandleTimer(ctx, t)
}

func (s *Database) HandleMessage(ctx *sim.Context, f *wire.Frame, arrivalGate int) {
	if f.Kind == wire.TCPFin {
		// FIN tears down the transaction history with the connection.
		delete(s.transactions, f.Src)
	}
	if s.HandleCommon(ctx, f) {
		return
	}
	switch f.Kind {
	case wire.TCPData, wire.DBQuery:
		s.handleQuery(ctx, f)
	default:
		ctx.Log().Warn(fmt.Sprintf("[DROP] DatabaseServer %d unexpected kind=%s", s.Addr, f.Kind))
	}
}

func (s *Database) handleQuery(ctx *sim.Context, f *wire.Frame) {
	q, ok := f.Fields.(*wire.DBQueryFields)
	if !ok {
		ctx.Log().Warn(fmt.Sprintf("[DROP] DatabaseServer %d data without query from %d", s.Addr, f.Src))
		return
	}
	query := s.Decrypt(f.Src, q.Query, q.Encrypted)

	s.transactions[f.Src]++
	txn := s.transactions[f.Src]
	ctx.Log().Info(fmt.Sprintf("DatabaseServer %d query '%s' from %d [transaction #%d]", s.Addr, query, f.Src, txn))

	resp := wire.New(wire.TCPData, s.Addr, f.Src)
	resp.Priority = f.Priority
	resp.ByteLength = s.ResponseBytes
	fields := &wire.ResponseFields{Bytes: s.ResponseBytes, TransactionID: txn}
	if enc, ok := s.Encrypt(f.Src, "DATABASE_QUERY_RESULT"); ok {
		fields.EncData = enc
		fields.Encrypted = true
	}
	resp.Fields = fields

	if c, ok := s.Conns.Get(f.Src); ok {
		c.RecvSeq = f.Seq + 1
	}
	s.StampTCP(f.Src, resp)

	// Queries at high priority ship after the reduced query time; the
	// rest wait on the queue. One dispatch path only.
	s.Respond(ctx, resp, s.QueryTime, dbFastFactor)
}

func (s *Database) ActiveTransactions(client wire.Addr) int64 {
	return s.transactions[client]
}

func (s *Database) Finish(ctx *sim.Context) {
	s.Shutdown(ctx)
}
