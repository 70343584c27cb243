package client

import (
	"fmt"

	"simnet/internal/secure"
	"simnet/internal/sim"
	"simnet/internal/tcp"
	"simnet/internal/transport"
	"simnet/internal/wire"
)

// handshakeRetransmit is how long a SYN may sit unanswered before it is
// resent.
const handshakeRetransmit = 3.0

// defaultUserAgent rides on HTTP GETs so the server's access log has
// something to classify.
const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Config is the per-client scenario configuration.
type Config struct {
	Addr         wire.Addr
	DNSAddr      wire.Addr
	DBAddr       wire.Addr
	DNSQuery     string
	Protocol     string // TCP, UDP or AUTO: transport of the DNS phase
	HTTPProtocol string // TCP (default) or UDP: transport of the HTTP phase
	StartAt      float64
	UserAgent    string
}

// Client drives the deterministic DNS, HTTP, then database request chain.
type Client struct {
	cfg Config

	tx    *transport.Transmitter
	conns *tcp.Table
	keys  map[wire.Addr]string
	kp    secure.KeyPair

	httpAddr wire.Addr

	startEvt   *sim.Timer
	retransmit *sim.Timer
	congestion *sim.Timer

	gotDNS  bool
	gotHTTP bool
	gotDB   bool

	// Counters the scenarios assert on.
	SynsSent        int
	SynAcksReceived int
	FinsSent        int
}

func New(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.HTTPProtocol == "" {
		cfg.HTTPProtocol = "TCP"
	}
	return &Client{
		cfg:        cfg,
		tx:         transport.New(0),
		conns:      tcp.NewTable(),
		keys:       make(map[wire.Addr]string),
		kp:         secure.NewKeyPair(cfg.Addr),
		startEvt:   &sim.Timer{Name: "start"},
		retransmit: &sim.Timer{Name: "retransmit"},
		congestion: &sim.Timer{Name: "congestion"},
	}
}

func (c *Client) Initialize(ctx *sim.Context) {
	ctx.ScheduleAt(ctx.Now()+c.cfg.StartAt, c.startEvt)
	ctx.Log().Info(fmt.Sprintf("PC%d initialized with protocol=%s", c.cfg.Addr, c.cfg.Protocol))
}

func (c *Client) HandleTimer(ctx *sim.Context, t *sim.Timer) {
	if c.tx.HandleTimer(ctx, t) {
		return
	}
	switch t {
	case c.startEvt:
		c.initiateKeyExchange(ctx, c.cfg.DNSAddr)
		if c.cfg.Protocol == "UDP" || c.cfg.Protocol == "AUTO" {
			c.sendDNSQueryUDP(ctx)
		} else {
			c.openTCP(ctx, c.cfg.DNSAddr, wire.PriorityHigh)
		}
	case c.retransmit:
		c.handleRetransmit(ctx)
	case c.congestion:
		c.handleCongestionTimeout(ctx)
	}
}

func (c *Client) HandleMessage(ctx *sim.Context, f *wire.Frame, arrivalGate int) {
	switch f.Kind {
	case wire.DNSResponse:
		c.handleDNSResponse(ctx, f)
	case wire.HTTPResponse:
		c.handleHTTPResponse(ctx, f)
	case wire.TCPSynAck:
		c.handleTCPSynAck(ctx, f)
	case wire.TCPAck:
		c.handleTCPAck(ctx, f)
	case wire.TCPData:
		c.handleTCPData(ctx, f)
	case wire.TCPFin:
		c.handleTCPFin(ctx, f)
	case wire.UDPData:
		c.handleUDPData(ctx, f)
	case wire.KeyExchange:
		c.handleKeyExchange(ctx, f)
	case wire.EncryptedData:
		// Opaque pass-through; nothing to do beyond owning the drop.
	default:
		ctx.Log().Warn(fmt.Sprintf("PC%d unexpected kind=%s", c.cfg.Addr, f.Kind))
	}
}

func (c *Client) initiateKeyExchange(ctx *sim.Context, peer wire.Addr) {
	kx := wire.New(wire.KeyExchange, c.cfg.Addr, peer)
	kx.Priority = wire.PriorityHigh
	kx.Fields = &wire.KeyExchangeFields{PublicKey: c.kp.Public}
	c.tx.Enqueue(ctx, kx)
	ctx.Log().Info(fmt.Sprintf("PC%d initiated key exchange with %d", c.cfg.Addr, peer))
}

func (c *Client) handleKeyExchange(ctx *sim.Context, f *wire.Frame) {
	kx, ok := f.Fields.(*wire.KeyExchangeFields)
	if !ok {
		ctx.Log().Warn(fmt.Sprintf("PC%d key exchange without public key from %d", c.cfg.Addr, f.Src))
		return
	}
	c.keys[f.Src] = c.kp.SharedSecret(kx.PublicKey)
	ctx.Log().Info(fmt.Sprintf("PC%d completed key exchange with %d", c.cfg.Addr, f.Src))
}

// openTCP starts the three-way handshake toward peer.
func (c *Client) openTCP(ctx *sim.Context, peer wire.Addr, prio wire.Priority) {
	seq := 1000 + ctx.Rand().Int63n(9000)
	syn := wire.New(wire.TCPSyn, c.cfg.Addr, peer)
	syn.Seq = seq
	syn.Priority = prio
	syn.Fields = &wire.SynFields{Cookie: tcp.Cookie(ctx.Secret(), c.cfg.Addr, peer, seq)}

	c.conns.Open(peer, seq, ctx.Now())
	c.tx.Enqueue(ctx, syn)
	c.SynsSent++
	ctx.Log().Info(fmt.Sprintf("PC%d sent TCP SYN to %d", c.cfg.Addr, peer))

	if !c.retransmit.Scheduled() {
		ctx.ScheduleAt(ctx.Now()+handshakeRetransmit, c.retransmit)
	}
}

func (c *Client) sendDNSQueryUDP(ctx *sim.Context) {
	query := wire.New(wire.DNSQuery, c.cfg.Addr, c.cfg.DNSAddr)
	query.Priority = wire.PriorityHigh
	qname, encrypted := c.encrypt(c.cfg.DNSAddr, c.cfg.DNSQuery)
	query.Fields = &wire.DNSQueryFields{QName: qname, Protocol: "UDP", Encrypted: encrypted}
	c.tx.Enqueue(ctx, query)
	ctx.Log().Info(fmt.Sprintf("PC%d sent UDP DNS query for %s", c.cfg.Addr, c.cfg.DNSQuery))
}

func (c *Client) handleTCPSynAck(ctx *sim.Context, f *wire.Frame) {
	conn, ok := c.conns.Get(f.Src)
	if !ok || conn.State != tcp.SynSent {
		ctx.Log().Warn(fmt.Sprintf("PC%d stray SYN-ACK from %d", c.cfg.Addr, f.Src))
		return
	}
	syn, ok := f.Fields.(*wire.SynFields)
	if !ok || !tcp.ValidCookie(ctx.Secret(), syn.Cookie, f.Src, c.cfg.Addr, f.Seq) {
		ctx.Log().Warn(fmt.Sprintf("PC%d invalid SYN cookie from %d", c.cfg.Addr, f.Src))
		return
	}
	c.SynAcksReceived++

	ack := wire.New(wire.TCPAck, c.cfg.Addr, f.Src)
	ack.Seq = conn.SendSeq
	ack.Ack = f.Seq + 1
	ack.Priority = wire.PriorityHigh
	c.tx.Enqueue(ctx, ack)

	conn.State = tcp.Established
	conn.RecvSeq = f.Seq + 1
	ctx.Log().Info(fmt.Sprintf("PC%d TCP connection established with %d", c.cfg.Addr, f.Src))

	// The connection is up; push the application data it was opened for.
	switch f.Src {
	case c.cfg.DNSAddr:
		c.sendDNSDataTCP(ctx, f.Src)
	case c.cfg.DBAddr:
		c.sendDBQueryTCP(ctx, f.Src)
	default:
		c.sendHTTPGetTCP(ctx, f.Src)
	}
}

func (c *Client) sendDNSDataTCP(ctx *sim.Context, peer wire.Addr) {
	data := wire.New(wire.TCPData, c.cfg.Addr, peer)
	qname, encrypted := c.encrypt(peer, c.cfg.DNSQuery)
	data.Fields = &wire.DNSQueryFields{QName: qname, Protocol: "TCP", Encrypted: encrypted}
	c.stamp(peer, data)
	c.tx.Enqueue(ctx, data)
	ctx.Log().Info(fmt.Sprintf("PC%d sent TCP DNS query", c.cfg.Addr))
}

func (c *Client) sendHTTPGetTCP(ctx *sim.Context, peer wire.Addr) {
	get := wire.New(wire.TCPData, c.cfg.Addr, peer)
	path, encrypted := c.encrypt(peer, "/")
	get.Fields = &wire.HTTPGetFields{Path: path, UserAgent: c.cfg.UserAgent, Encrypted: encrypted}
	c.stamp(peer, get)
	c.tx.Enqueue(ctx, get)
	ctx.Log().Info(fmt.Sprintf("PC%d sent TCP HTTP GET request", c.cfg.Addr))
}

func (c *Client) sendHTTPGetUDP(ctx *sim.Context, peer wire.Addr) {
	get := wire.New(wire.UDPData, c.cfg.Addr, peer)
	path, encrypted := c.encrypt(peer, "/")
	get.Fields = &wire.HTTPGetFields{Path: path, UserAgent: c.cfg.UserAgent, Encrypted: encrypted}
	c.tx.Enqueue(ctx, get)
	ctx.Log().Info(fmt.Sprintf("PC%d sent UDP HTTP GET request", c.cfg.Addr))
}

func (c *Client) sendDBQueryTCP(ctx *sim.Context, peer wire.Addr) {
	data := wire.New(wire.TCPData, c.cfg.Addr, peer)
	query, encrypted := c.encrypt(peer, "SELECT * FROM users")
	data.Fields = &wire.DBQueryFields{Query: query, Encrypted: encrypted}
	c.stamp(peer, data)
	c.tx.Enqueue(ctx, data)
	ctx.Log().Info(fmt.Sprintf("PC%d sent TCP DB query", c.cfg.Addr))
}

func (c *Client) handleTCPAck(ctx *sim.Context, f *wire.Frame) {
	conn, ok := c.conns.Get(f.Src)
	if !ok {
		ctx.Log().Warn(fmt.Sprintf("PC%d ACK from unknown peer %d", c.cfg.Addr, f.Src))
		return
	}
	conn.OnAck()
	ctx.Log().Info(fmt.Sprintf("PC%d received ACK, cwnd=%.2f", c.cfg.Addr, conn.Cwnd))
}

func (c *Client) handleTCPData(ctx *sim.Context, f *wire.Frame) {
	if conn, ok := c.conns.Get(f.Src); ok {
		conn.RecvSeq = f.Seq + 1
	}
	ack := wire.New(wire.TCPAck, c.cfg.Addr, f.Src)
	ack.Ack = f.Seq + 1
	ack.Priority = wire.PriorityHigh
	c.tx.Enqueue(ctx, ack)

	switch fields := f.Fields.(type) {
	case *wire.DNSResponseFields:
		c.onDNSAnswer(ctx, f.Src, fields)
	case *wire.ResponseFields:
		c.onResponse(ctx, f.Src, fields)
	default:
		ctx.Log().Info(fmt.Sprintf("PC%d received TCP data from %d", c.cfg.Addr, f.Src))
	}
}

func (c *Client) handleUDPData(ctx *sim.Context, f *wire.Frame) {
	switch fields := f.Fields.(type) {
	case *wire.DNSResponseFields:
		c.onDNSAnswer(ctx, f.Src, fields)
	case *wire.ResponseFields:
		c.onResponse(ctx, f.Src, fields)
	default:
		ctx.Log().Info(fmt.Sprintf("PC%d received UDP data", c.cfg.Addr))
	}
}

func (c *Client) handleDNSResponse(ctx *sim.Context, f *wire.Frame) {
	fields, ok := f.Fields.(*wire.DNSResponseFields)
	if !ok {
		ctx.Log().Warn(fmt.Sprintf("PC%d DNS response without answer", c.cfg.Addr))
		return
	}
	c.onDNSAnswer(ctx, f.Src, fields)
}

func (c *Client) handleHTTPResponse(ctx *sim.Context, f *wire.Frame) {
	fields, ok := f.Fields.(*wire.ResponseFields)
	if !ok {
		ctx.Log().Warn(fmt.Sprintf("PC%d HTTP response without bytes", c.cfg.Addr))
		return
	}
	c.onResponse(ctx, f.Src, fields)
}

// onDNSAnswer runs step 2 of the chain: keys for the HTTP and DB
// servers, then the HTTP request over the configured transport.
func (c *Client) onDNSAnswer(ctx *sim.Context, src wire.Addr, fields *wire.DNSResponseFields) {
	if c.gotDNS {
		return
	}
	c.gotDNS = true
	c.httpAddr = fields.Answer

	qname := fields.QName
	if fields.Encrypted {
		if key, ok := c.keys[src]; ok {
			qname = secure.Crypt(qname, key)
		}
	}
	ctx.Log().Info(fmt.Sprintf("PC%d DNS: %s -> %d", c.cfg.Addr, qname, c.httpAddr))

	c.initiateKeyExchange(ctx, c.httpAddr)
	c.initiateKeyExchange(ctx, c.cfg.DBAddr)

	if c.cfg.HTTPProtocol == "UDP" {
		c.sendHTTPGetUDP(ctx, c.httpAddr)
	} else {
		c.openTCP(ctx, c.httpAddr, wire.PriorityNormal)
	}
}

// onResponse distinguishes the HTTP and DB phases by the responder.
func (c *Client) onResponse(ctx *sim.Context, src wire.Addr, fields *wire.ResponseFields) {
	switch src {
	case c.cfg.DBAddr:
		if c.gotDB {
			return
		}
		c.gotDB = true
		ctx.Log().Info(fmt.Sprintf("PC%d received DB response: %d bytes (transaction #%d)", c.cfg.Addr, fields.Bytes, fields.TransactionID))
		c.teardown(ctx)
	default:
		if c.gotHTTP {
			return
		}
		c.gotHTTP = true
		ctx.Log().Info(fmt.Sprintf("PC%d received HTTP response: %d bytes", c.cfg.Addr, fields.Bytes))
		c.openTCP(ctx, c.cfg.DBAddr, wire.PriorityNormal)
	}
}

// teardown closes the data connections once the chain completes.
func (c *Client) teardown(ctx *sim.Context) {
	for _, peer := range []wire.Addr{c.httpAddr, c.cfg.DBAddr} {
		conn, ok := c.conns.Get(peer)
		if !ok || conn.State != tcp.Established {
			continue
		}
		fin := wire.New(wire.TCPFin, c.cfg.Addr, peer)
		c.tx.Enqueue(ctx, fin)
		conn.State = tcp.FinWait
		c.FinsSent++
		ctx.Log().Info(fmt.Sprintf("PC%d sent FIN to %d", c.cfg.Addr, peer))
	}
}

func (c *Client) handleTCPFin(ctx *sim.Context, f *wire.Frame) {
	conn, ok := c.conns.Get(f.Src)
	if !ok {
		ctx.Log().Warn(fmt.Sprintf("PC%d FIN from unknown peer %d", c.cfg.Addr, f.Src))
		return
	}
	if conn.State == tcp.FinWait {
		// The peer's FIN answers ours; the entry just goes away.
		c.conns.Delete(f.Src)
		ctx.Log().Info(fmt.Sprintf("PC%d teardown with %d complete", c.cfg.Addr, f.Src))
		return
	}
	fin := wire.New(wire.TCPFin, c.cfg.Addr, f.Src)
	c.tx.Enqueue(ctx, fin)
	c.conns.Delete(f.Src)
	ctx.Log().Info(fmt.Sprintf("PC%d closed TCP connection with %d", c.cfg.Addr, f.Src))
}

// handleRetransmit resends the SYN for every handshake still stuck in
// SYN_SENT and re-arms itself while any remain.
func (c *Client) handleRetransmit(ctx *sim.Context) {
	stuck := false
	c.conns.Each(func(conn *tcp.Conn) {
		if conn.State != tcp.SynSent {
			return
		}
		stuck = true
		seq := conn.SendSeq - 1
		syn := wire.New(wire.TCPSyn, c.cfg.Addr, conn.Remote)
		syn.Seq = seq
		syn.Priority = wire.PriorityHigh
		syn.Fields = &wire.SynFields{Cookie: tcp.Cookie(ctx.Secret(), c.cfg.Addr, conn.Remote, seq)}
		c.tx.Enqueue(ctx, syn)
		c.SynsSent++
		conn.LastSent = ctx.Now()
		ctx.Log().Warn(fmt.Sprintf("PC%d retransmitting SYN to %d", c.cfg.Addr, conn.Remote))
	})
	if stuck {
		ctx.ScheduleAt(ctx.Now()+handshakeRetransmit, c.retransmit)
	}
}

func (c *Client) handleCongestionTimeout(ctx *sim.Context) {
	c.conns.Each(func(conn *tcp.Conn) {
		conn.OnCongestionTimeout()
	})
	ctx.Log().Info(fmt.Sprintf("PC%d congestion timeout, cwnd reset", c.cfg.Addr))
}

func (c *Client) stamp(peer wire.Addr, f *wire.Frame) {
	if conn, ok := c.conns.Get(peer); ok {
		f.Seq = conn.NextSendSeq()
		f.Ack = conn.RecvSeq
	}
}

func (c *Client) encrypt(peer wire.Addr, data string) (string, bool) {
	key, ok := c.keys[peer]
	if !ok {
		return data, false
	}
	return secure.Crypt(data, key), true
}

// Done reports whether the whole request chain completed.
func (c *Client) Done() bool { return c.gotDB }

// ChainState exposes the per-phase progress for assertions.
func (c *Client) ChainState() (dns, http, db bool) { return c.gotDNS, c.gotHTTP, c.gotDB }

// Conn exposes the client-side connection entry for a peer.
func (c *Client) Conn(peer wire.Addr) (*tcp.Conn, bool) { return c.conns.Get(peer) }

func (c *Client) Finish(ctx *sim.Context) {
	ctx.Cancel(c.startEvt)
	ctx.Cancel(c.retransmit)
	ctx.Cancel(c.congestion)
	c.tx.Shutdown(ctx)
}
