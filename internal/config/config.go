package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the topology and scenario description for one simulation run.
type Config struct {
	RunUntil float64 `yaml:"run_until" validate:"gt=0"`
	Seed     int64   `yaml:"seed"`
	LogPath  string  `yaml:"log_path"`

	Nodes []NodeConfig `yaml:"nodes" validate:"required,min=1,dive"`
	Links []LinkConfig `yaml:"links" validate:"dive"`
}

type NodeConfig struct {
	Name    string `yaml:"name" validate:"required"`
	Type    string `yaml:"type" validate:"required,oneof=client dns http mail database video router"`
	Address uint32 `yaml:"address" validate:"required"`

	Client *ClientConfig `yaml:"client"`
	Server *ServerConfig `yaml:"server"`
	Router *RouterConfig `yaml:"router"`
}

type ClientConfig struct {
	DNSAddr      uint32  `yaml:"dns_addr"`
	DBAddr       uint32  `yaml:"db_addr"`
	DNSQuery     string  `yaml:"dns_query"`
	Protocol     string  `yaml:"protocol" validate:"omitempty,oneof=TCP UDP AUTO"`
	HTTPProtocol string  `yaml:"http_protocol" validate:"omitempty,oneof=TCP UDP"`
	StartAt      float64 `yaml:"start_at" validate:"gte=0"`
	UserAgent    string  `yaml:"user_agent"`
}

type ServerConfig struct {
	AnswerAddr    uint32  `yaml:"answer_addr"`
	RateLimit     int64   `yaml:"rate_limit" validate:"gte=0"`
	PageSizeBytes int64   `yaml:"page_size_bytes" validate:"gte=0"`
	ResponseBytes int64   `yaml:"response_bytes" validate:"gte=0"`
	MailSizeBytes int64   `yaml:"mail_size_bytes" validate:"gte=0"`
	ServiceTime   float64 `yaml:"service_time" validate:"gte=0"`
	QueryTime     float64 `yaml:"query_time" validate:"gte=0"`
	SynRateLimit  int64   `yaml:"syn_rate_limit" validate:"gte=0"`
}

type RouterConfig struct {
	RoutingProtocol   string  `yaml:"routing_protocol" validate:"omitempty,oneof=OSPF-TE RIP STATIC"`
	Routes            string  `yaml:"routes"`
	OSPFHelloInterval float64 `yaml:"ospf_hello_interval" validate:"gte=0"`
	OSPFLSAInterval   float64 `yaml:"ospf_lsa_interval" validate:"gte=0"`
	RIPUpdateInterval float64 `yaml:"rip_update_interval" validate:"gte=0"`
	SynRateLimit      int64   `yaml:"syn_rate_limit" validate:"gte=0"`
}

type LinkConfig struct {
	A             string  `yaml:"a" validate:"required"`
	B             string  `yaml:"b" validate:"required"`
	BandwidthMbps float64 `yaml:"bandwidth_mbps" validate:"gte=0"`
	DelayMs       float64 `yaml:"delay_ms" validate:"gte=0"`
}

// Defaults applied where the file stays silent.
const (
	DefaultRunUntil      = 120.0
	DefaultSeed          = 1
	DefaultBandwidthMbps = 100.0
	DefaultDelayMs       = 1.0
	DefaultRateLimit     = 100
	DefaultSynRateLimit  = 10
	DefaultPageSize      = 2000
	DefaultResponseBytes = 4000
	DefaultMailSize      = 1500
	DefaultServiceTime   = 0.01
	DefaultQueryTime     = 0.02
	DefaultHelloInterval = 5.0
	DefaultLSAInterval   = 10.0
	DefaultRIPInterval   = 30.0
	DefaultDBAddr        = 601
)

// LoadMainConfig reads config/simnet.yml under the base path, fills
// defaults, and validates the result.
func LoadMainConfig(basePath string) (*Config, error) {
	if basePath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return nil, err
		}
		basePath = filepath.Dir(exePath)
	}
	configPath := filepath.Join(basePath, "config", "simnet.yml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values so a minimal topology file stays minimal.
func (c *Config) ApplyDefaults() {
	if c.RunUntil == 0 {
		c.RunUntil = DefaultRunUntil
	}
	if c.Seed == 0 {
		c.Seed = DefaultSeed
	}
	for i := range c.Links {
		if c.Links[i].BandwidthMbps == 0 {
			c.Links[i].BandwidthMbps = DefaultBandwidthMbps
		}
		if c.Links[i].DelayMs == 0 {
			c.Links[i].DelayMs = DefaultDelayMs
		}
	}
	for i := range c.Nodes {
		n := &c.Nodes[i]
		switch n.Type {
		case "client":
			if n.Client == nil {
				n.Client = &ClientConfig{}
			}
			if n.Client.Protocol == "" {
				n.Client.Protocol = "TCP"
			}
			if n.Client.HTTPProtocol == "" {
				n.Client.HTTPProtocol = "TCP"
			}
			if n.Client.DBAddr == 0 {
				n.Client.DBAddr = DefaultDBAddr
			}
		case "router":
			if n.Router == nil {
				n.Router = &RouterConfig{}
			}
			if n.Router.RoutingProtocol == "" {
				n.Router.RoutingProtocol = "STATIC"
			}
			if n.Router.OSPFHelloInterval == 0 {
				n.Router.OSPFHelloInterval = DefaultHelloInterval
			}
			if n.Router.OSPFLSAInterval == 0 {
				n.Router.OSPFLSAInterval = DefaultLSAInterval
			}
			if n.Router.RIPUpdateInterval == 0 {
				n.Router.RIPUpdateInterval = DefaultRIPInterval
			}
			if n.Router.SynRateLimit == 0 {
				n.Router.SynRateLimit = DefaultSynRateLimit
			}
		default:
			if n.Server == nil {
				n.Server = &ServerConfig{}
			}
			s := n.Server
			if s.RateLimit == 0 {
				s.RateLimit = DefaultRateLimit
			}
			if s.SynRateLimit == 0 {
				s.SynRateLimit = DefaultSynRateLimit
			}
			if s.PageSizeBytes == 0 {
				s.PageSizeBytes = DefaultPageSize
			}
			if s.ResponseBytes == 0 {
				s.ResponseBytes = DefaultResponseBytes
			}
			if s.MailSizeBytes == 0 {
				s.MailSizeBytes = DefaultMailSize
			}
			if s.ServiceTime == 0 {
				s.ServiceTime = DefaultServiceTime
			}
			if s.QueryTime == 0 {
				s.QueryTime = DefaultQueryTime
			}
		}
	}
}

// Validate runs struct validation plus the cross-field checks the tags
// cannot express: unique names and addresses, links naming known nodes.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	names := make(map[string]bool)
	addrs := make(map[uint32]bool)
	for _, n := range c.Nodes {
		if names[n.Name] {
			return fmt.Errorf("invalid config: duplicate node name %q", n.Name)
		}
		names[n.Name] = true
		if addrs[n.Address] {
			return fmt.Errorf("invalid config: duplicate node address %d", n.Address)
		}
		addrs[n.Address] = true
	}
	for _, l := range c.Links {
		if !names[l.A] || !names[l.B] {
			return fmt.Errorf("invalid config: link %s-%s references unknown node", l.A, l.B)
		}
		if l.A == l.B {
			return fmt.Errorf("invalid config: link %s-%s connects a node to itself", l.A, l.B)
		}
	}
	return nil
}
