package scenario

import (
	"testing"

	"simnet/internal/config"
	"simnet/internal/tcp"
)

// twoRouterTopology is the canonical end-to-end layout: one client, a
// DNS, an HTTP and a database server, all behind a linear two-router
// path.
func twoRouterTopology(protocol string) *config.Config {
	cfg := &config.Config{
		RunUntil: 30,
		Nodes: []config.NodeConfig{
			{Name: "pc1", Type: "client", Address: 1, Client: &config.ClientConfig{
				DNSAddr: 2, DBAddr: 601, DNSQuery: "www.example", Protocol: protocol, StartAt: 0.1,
			}},
			{Name: "dns1", Type: "dns", Address: 2, Server: &config.ServerConfig{AnswerAddr: 3}},
			{Name: "http1", Type: "http", Address: 3, Server: &config.ServerConfig{PageSizeBytes: 2000}},
			{Name: "db1", Type: "database", Address: 601, Server: &config.ServerConfig{ResponseBytes: 4000}},
			{Name: "r1", Type: "router", Address: 901, Router: &config.RouterConfig{
				RoutingProtocol: "STATIC", Routes: "1:0,2:1,3:1,601:1", SynRateLimit: 50,
			}},
			{Name: "r2", Type: "router", Address: 902, Router: &config.RouterConfig{
				RoutingProtocol: "STATIC", Routes: "1:0,2:1,3:2,601:3", SynRateLimit: 50,
			}},
		},
		Links: []config.LinkConfig{
			{A: "pc1", B: "r1"},
			{A: "r1", B: "r2"},
			{A: "r2", B: "dns1"},
			{A: "r2", B: "http1"},
			{A: "r2", B: "db1"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// Scenario: UDP DNS phase, then TCP to the HTTP server and the
// database. The chain must complete and both data connections must
// tear down with FINs.
func TestRequestChainUDPDNS(t *testing.T) {
	cfg := twoRouterTopology("UDP")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config invalid: %v", err)
	}
	net, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	net.Kernel.Run(cfg.RunUntil)

	pc := net.Clients["pc1"]
	dns, http, db := pc.ChainState()
	if !dns || !http || !db {
		t.Fatalf("chain incomplete: dns=%v http=%v db=%v", dns, http, db)
	}

	// UDP DNS means exactly two handshakes: HTTP and database.
	if pc.SynsSent != 2 || pc.SynAcksReceived != 2 {
		t.Errorf("SYNs=%d SYN-ACKs=%d, want 2/2", pc.SynsSent, pc.SynAcksReceived)
	}
	if pc.FinsSent != 2 {
		t.Errorf("FINs sent = %d, want 2 (HTTP and database teardown)", pc.FinsSent)
	}
	// Teardown completed: the data connections are gone on both sides.
	if _, open := pc.Conn(3); open {
		t.Error("client still holds the HTTP connection after teardown")
	}
	if _, open := pc.Conn(601); open {
		t.Error("client still holds the database connection after teardown")
	}
	if _, open := net.HTTP["http1"].Conns.Get(1); open {
		t.Error("HTTP server still holds the client connection after teardown")
	}
	if _, open := net.Databases["db1"].Conns.Get(1); open {
		t.Error("database server still holds the client connection after teardown")
	}
}

// Scenario: same chain with the DNS phase over TCP: one more handshake,
// three SYNs and three SYN-ACKs in total.
func TestRequestChainTCPDNS(t *testing.T) {
	cfg := twoRouterTopology("TCP")
	net, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	net.Kernel.Run(cfg.RunUntil)

	pc := net.Clients["pc1"]
	if !pc.Done() {
		t.Fatal("chain incomplete over TCP DNS")
	}
	if pc.SynsSent != 3 {
		t.Errorf("SYNs sent = %d, want 3 (DNS, HTTP, DB)", pc.SynsSent)
	}
	if pc.SynAcksReceived != 3 {
		t.Errorf("SYN-ACKs = %d, want 3", pc.SynAcksReceived)
	}

	// The DNS connection is left established; only the data connections
	// get torn down.
	conn, ok := pc.Conn(2)
	if !ok || conn.State != tcp.Established {
		t.Error("DNS connection should remain established")
	}
}

// The client's congestion window grows over the chain: the DNS server's
// ACK of the query doubles it from its initial 1.0 (no timeout fires in
// a clean scenario).
func TestClientWindowGrowsOverChain(t *testing.T) {
	cfg := twoRouterTopology("TCP")
	net, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	net.Kernel.Run(cfg.RunUntil)

	pc := net.Clients["pc1"]
	conn, ok := pc.Conn(2)
	if !ok {
		t.Fatal("DNS connection missing")
	}
	if conn.Cwnd <= 1.0 {
		t.Errorf("cwnd = %f, must have grown above the initial 1.0", conn.Cwnd)
	}
}

func TestFinishDrainsCleanly(t *testing.T) {
	cfg := twoRouterTopology("UDP")
	net, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	net.Kernel.Run(0.2) // stop mid-chain with traffic in flight
	net.Kernel.Finish() // must not panic with queued frames and live timers
}
