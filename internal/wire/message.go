package wire

import (
	"fmt"

	"github.com/google/uuid"
)

// Addr is a 32-bit logical node identifier, unique for the simulation's lifetime.
type Addr uint32

// Broadcast is the destination of control-plane frames addressed to
// whoever is on the link rather than to a node.
const Broadcast Addr = ^Addr(0)

// Kind tags a frame. The numeric values are the wire tags.
type Kind int

const (
	// DNS
	DNSQuery    Kind = 10
	DNSResponse Kind = 11
	// HTTP
	HTTPGet      Kind = 20
	HTTPResponse Kind = 21
	// TCP
	TCPSyn    Kind = 30
	TCPSynAck Kind = 31
	TCPAck    Kind = 32
	TCPData   Kind = 33
	TCPFin    Kind = 34
	// UDP
	UDPData Kind = 40
	// Security
	KeyExchange   Kind = 50
	EncryptedData Kind = 51
	// Routing
	OSPFHello    Kind = 60
	OSPFLSA      Kind = 61
	OSPFTEUpdate Kind = 62
	RIPUpdate    Kind = 63
	RIPRequest   Kind = 64
	// BGP (declared for the kind space, pass-through only)
	BGPUpdate    Kind = 70
	BGPKeepalive Kind = 71
	// Application layer
	MailRequest   Kind = 80
	MailResponse  Kind = 81
	VideoRequest  Kind = 82
	VideoChunk    Kind = 83
	DBQuery       Kind = 84
	DBResponse    Kind = 85
)

var kindNames = map[Kind]string{
	DNSQuery: "DNS_QUERY", DNSResponse: "DNS_RESPONSE",
	HTTPGet: "HTTP_GET", HTTPResponse: "HTTP_RESPONSE",
	TCPSyn: "TCP_SYN", TCPSynAck: "TCP_SYN_ACK", TCPAck: "TCP_ACK",
	TCPData: "TCP_DATA", TCPFin: "TCP_FIN",
	UDPData:     "UDP_DATA",
	KeyExchange: "KEY_EXCHANGE", EncryptedData: "ENCRYPTED_DATA",
	OSPFHello: "OSPF_HELLO", OSPFLSA: "OSPF_LSA", OSPFTEUpdate: "OSPF_TE_UPDATE",
	RIPUpdate: "RIP_UPDATE", RIPRequest: "RIP_REQUEST",
	BGPUpdate: "BGP_UPDATE", BGPKeepalive: "BGP_KEEPALIVE",
	MailRequest: "MAIL_REQUEST", MailResponse: "MAIL_RESPONSE",
	VideoRequest: "VIDEO_REQUEST", VideoChunk: "VIDEO_CHUNK",
	DBQuery: "DB_QUERY", DBResponse: "DB_RESPONSE",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("KIND_%d", int(k))
}

// Priority levels for traffic management. Max-priority wins in output queues.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// Fields is the kind-specific payload of a frame. Receivers type-assert
// the variant they require; a failed assertion is the missing-attribute
// case and the frame must be dropped.
type Fields interface {
	wireFields()
}

// SynFields rides on TCP_SYN and TCP_SYN_ACK.
type SynFields struct {
	Cookie int64
}

// KeyExchangeFields carries the peer's public key (opaque hex string).
type KeyExchangeFields struct {
	PublicKey string
}

// DNSQueryFields: Protocol is "TCP" or "UDP"; QName may be the
// XOR-transformed representation when Encrypted is set.
type DNSQueryFields struct {
	QName     string
	Protocol  string
	Encrypted bool
}

type DNSResponseFields struct {
	QName     string
	Answer    Addr
	Encrypted bool
}

// HTTPGetFields: UserAgent travels with the request so the server's
// access log can classify the client.
type HTTPGetFields struct {
	Path      string
	UserAgent string
	Encrypted bool
}

// ResponseFields is shared by HTTP, mail, DB and video responses.
type ResponseFields struct {
	Bytes         int64
	EncData       string
	Encrypted     bool
	TransactionID int64
	ChunkIndex    int64
	ChunkTotal    int64
}

type MailRequestFields struct {
	Rcpt      string
	Encrypted bool
}

type DBQueryFields struct {
	Query     string
	Encrypted bool
}

type VideoRequestFields struct {
	Title  string
	Chunks int64
}

// LSAFields carries one link's traffic-engineering state. NeighborID is
// the router on the far end of the advertised link, learned from Hellos;
// it is what makes the advertisement usable as a graph edge.
type LSAFields struct {
	LinkID     int64
	Cost       float64
	Bandwidth  float64
	Delay      float64
	NeighborID Addr
	Timestamp  float64
}

// DVUpdateFields carries a full routing table serialized as
// "dest:metric:hops," pairs. Parsing is the receiver's problem; entries
// that do not parse are skipped.
type DVUpdateFields struct {
	Routes string
}

type EncryptedFields struct {
	EncData string
}

func (SynFields) wireFields()          {}
func (KeyExchangeFields) wireFields()  {}
func (DNSQueryFields) wireFields()     {}
func (DNSResponseFields) wireFields()  {}
func (HTTPGetFields) wireFields()      {}
func (ResponseFields) wireFields()     {}
func (MailRequestFields) wireFields()  {}
func (DBQueryFields) wireFields()      {}
func (VideoRequestFields) wireFields() {}
func (LSAFields) wireFields()          {}
func (DVUpdateFields) wireFields()     {}
func (EncryptedFields) wireFields()    {}

// Frame is one wire message instance. A frame is uniquely owned: the
// sender owns it until handed to the kernel, the receiver owns it on
// delivery, and whoever drops it is the last owner.
type Frame struct {
	ID         string
	Src        Addr
	Dst        Addr
	Kind       Kind
	Seq        int64
	Ack        int64
	Priority   Priority
	ByteLength int64
	Fields     Fields
}

// New builds a frame with the construction defaults: seq=0, ack=0,
// priority=normal, byte length=1000.
func New(kind Kind, src, dst Addr) *Frame {
	return &Frame{
		ID:         uuid.NewString(),
		Src:        src,
		Dst:        dst,
		Kind:       kind,
		Priority:   PriorityNormal,
		ByteLength: 1000,
	}
}

// Clone duplicates the frame for flooding. The copy keeps the original's
// ID so downstream deduplication sees flooded copies as one message.
func (f *Frame) Clone() *Frame {
	c := *f
	return &c
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s %d->%d seq=%d ack=%d prio=%d", f.Kind, f.Src, f.Dst, f.Seq, f.Ack, f.Priority)
}
