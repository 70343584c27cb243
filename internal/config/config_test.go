package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	c := &Config{
		RunUntil: 10,
		Nodes: []NodeConfig{
			{Name: "pc1", Type: "client", Address: 1, Client: &ClientConfig{DNSAddr: 2, DNSQuery: "www.example"}},
			{Name: "dns1", Type: "dns", Address: 2, Server: &ServerConfig{AnswerAddr: 3}},
		},
		Links: []LinkConfig{{A: "pc1", B: "dns1", BandwidthMbps: 100, DelayMs: 1}},
	}
	c.ApplyDefaults()
	return c
}

func TestValidConfigPasses(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDuplicateAddressRejected(t *testing.T) {
	c := validConfig()
	c.Nodes[1].Address = 1
	if err := c.Validate(); err == nil {
		t.Fatal("duplicate address must fail validation")
	}
}

func TestDuplicateNameRejected(t *testing.T) {
	c := validConfig()
	c.Nodes[1].Name = "pc1"
	if err := c.Validate(); err == nil {
		t.Fatal("duplicate name must fail validation")
	}
}

func TestUnknownLinkEndpointRejected(t *testing.T) {
	c := validConfig()
	c.Links[0].B = "ghost"
	if err := c.Validate(); err == nil {
		t.Fatal("link to unknown node must fail validation")
	}
}

func TestSelfLinkRejected(t *testing.T) {
	c := validConfig()
	c.Links[0].B = "pc1"
	if err := c.Validate(); err == nil {
		t.Fatal("self-link must fail validation")
	}
}

func TestBadProtocolRejected(t *testing.T) {
	c := validConfig()
	c.Nodes[0].Client.Protocol = "QUIC"
	if err := c.Validate(); err == nil {
		t.Fatal("unknown client protocol must fail validation")
	}
}

func TestBadNodeTypeRejected(t *testing.T) {
	c := validConfig()
	c.Nodes[0].Type = "toaster"
	if err := c.Validate(); err == nil {
		t.Fatal("unknown node type must fail validation")
	}
}

func TestDefaultsApplied(t *testing.T) {
	c := &Config{
		Nodes: []NodeConfig{
			{Name: "pc1", Type: "client", Address: 1},
			{Name: "db1", Type: "database", Address: 601},
			{Name: "r1", Type: "router", Address: 901},
		},
		Links: []LinkConfig{{A: "pc1", B: "r1"}},
	}
	c.ApplyDefaults()

	if c.RunUntil != DefaultRunUntil {
		t.Errorf("run_until default = %v", c.RunUntil)
	}
	if c.Nodes[0].Client.Protocol != "TCP" || c.Nodes[0].Client.DBAddr != DefaultDBAddr {
		t.Errorf("client defaults not applied: %+v", c.Nodes[0].Client)
	}
	if c.Nodes[1].Server.QueryTime != DefaultQueryTime {
		t.Errorf("server defaults not applied: %+v", c.Nodes[1].Server)
	}
	if c.Nodes[2].Router.RoutingProtocol != "STATIC" || c.Nodes[2].Router.OSPFLSAInterval != DefaultLSAInterval {
		t.Errorf("router defaults not applied: %+v", c.Nodes[2].Router)
	}
	if c.Links[0].BandwidthMbps != DefaultBandwidthMbps || c.Links[0].DelayMs != DefaultDelayMs {
		t.Errorf("link defaults not applied: %+v", c.Links[0])
	}
}

func TestLoadMainConfig(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "config"), 0755); err != nil {
		t.Fatal(err)
	}
	yml := `
run_until: 15.0
nodes:
  - name: pc1
    type: client
    address: 1
    client: { dns_addr: 2, dns_query: www.example, protocol: UDP, start_at: 0.1 }
  - name: dns1
    type: dns
    address: 2
    server: { answer_addr: 3 }
links:
  - { a: pc1, b: dns1 }
`
	if err := os.WriteFile(filepath.Join(base, "config", "simnet.yml"), []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadMainConfig(base)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.RunUntil != 15.0 {
		t.Errorf("run_until = %v, want 15", cfg.RunUntil)
	}
	if cfg.Nodes[0].Client.Protocol != "UDP" {
		t.Errorf("client protocol = %q", cfg.Nodes[0].Client.Protocol)
	}
	if cfg.Nodes[1].Server.RateLimit != DefaultRateLimit {
		t.Errorf("rate limit default not applied")
	}
}

func TestLoadMainConfigMissingFile(t *testing.T) {
	if _, err := LoadMainConfig(t.TempDir()); err == nil {
		t.Fatal("missing config file must error")
	}
}
