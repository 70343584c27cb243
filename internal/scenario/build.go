// Package scenario assembles a running network from a configuration:
// one kernel, one reactor per node, one duplex link per topology edge.
// Both main and the end-to-end tests build through it.
package scenario

import (
	"fmt"

	"simnet/internal/client"
	"simnet/internal/config"
	"simnet/internal/router"
	"simnet/internal/server"
	"simnet/internal/sim"
	"simnet/internal/utils"
	"simnet/internal/wire"
)

// Network is the built topology with typed handles for inspection.
type Network struct {
	Kernel *sim.Kernel

	Clients   map[string]*client.Client
	Routers   map[string]*router.Router
	DNS       map[string]*server.DNS
	HTTP      map[string]*server.HTTP
	Mail      map[string]*server.Mail
	Databases map[string]*server.Database
	Video     map[string]*server.Video
}

// Build turns a validated config into a ready-to-run network.
func Build(cfg *config.Config, logs *utils.LogxManager) (*Network, error) {
	k := sim.NewKernel(cfg.Seed, logs)
	net := &Network{
		Kernel:    k,
		Clients:   make(map[string]*client.Client),
		Routers:   make(map[string]*router.Router),
		DNS:       make(map[string]*server.DNS),
		HTTP:      make(map[string]*server.HTTP),
		Mail:      make(map[string]*server.Mail),
		Databases: make(map[string]*server.Database),
		Video:     make(map[string]*server.Video),
	}

	ids := make(map[string]int)
	for _, nc := range cfg.Nodes {
		node, err := buildNode(nc, net)
		if err != nil {
			return nil, err
		}
		ids[nc.Name] = k.AddNode(nc.Name, node)
	}

	for _, lc := range cfg.Links {
		k.Connect(ids[lc.A], ids[lc.B], lc.BandwidthMbps, lc.DelayMs)
	}
	return net, nil
}

func buildNode(nc config.NodeConfig, net *Network) (sim.Node, error) {
	addr := wire.Addr(nc.Address)
	switch nc.Type {
	case "client":
		cc := nc.Client
		c := client.New(client.Config{
			Addr:         addr,
			DNSAddr:      wire.Addr(cc.DNSAddr),
			DBAddr:       wire.Addr(cc.DBAddr),
			DNSQuery:     cc.DNSQuery,
			Protocol:     cc.Protocol,
			HTTPProtocol: cc.HTTPProtocol,
			StartAt:      cc.StartAt,
			UserAgent:    cc.UserAgent,
		})
		net.Clients[nc.Name] = c
		return c, nil
	case "dns":
		sc := nc.Server
		s := server.NewDNS(addr, wire.Addr(sc.AnswerAddr), sc.RateLimit, sc.SynRateLimit)
		net.DNS[nc.Name] = s
		return s, nil
	case "http":
		sc := nc.Server
		s := server.NewHTTP(addr, sc.PageSizeBytes, sc.ServiceTime, sc.SynRateLimit)
		net.HTTP[nc.Name] = s
		return s, nil
	case "mail":
		sc := nc.Server
		s := server.NewMail(addr, sc.MailSizeBytes, sc.ServiceTime, sc.SynRateLimit)
		net.Mail[nc.Name] = s
		return s, nil
	case "database":
		sc := nc.Server
		s := server.NewDatabase(addr, sc.ResponseBytes, sc.QueryTime, sc.SynRateLimit)
		net.Databases[nc.Name] = s
		return s, nil
	case "video":
		sc := nc.Server
		s := server.NewVideo(addr, sc.ServiceTime, sc.SynRateLimit)
		net.Video[nc.Name] = s
		return s, nil
	case "router":
		rc := nc.Router
		routes, err := utils.ParseStaticRoutes(rc.Routes)
		if err != nil {
			return nil, fmt.Errorf("router %s: %w", nc.Name, err)
		}
		r := router.New(router.Config{
			Addr:              addr,
			Protocol:          rc.RoutingProtocol,
			StaticRoutes:      routes,
			HelloInterval:     rc.OSPFHelloInterval,
			LSAInterval:       rc.OSPFLSAInterval,
			RIPUpdateInterval: rc.RIPUpdateInterval,
			SynRateLimit:      rc.SynRateLimit,
		})
		net.Routers[nc.Name] = r
		return r, nil
	}
	return nil, fmt.Errorf("unknown node type %q for %s", nc.Type, nc.Name)
}
