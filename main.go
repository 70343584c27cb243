package main

import (
	"flag"
	"log"

	"simnet/internal/config"
	"simnet/internal/scenario"
	"simnet/internal/utils"
)

func main() {
	var basePath string
	flag.StringVar(&basePath, "prefix", "", "Config file base path")
	flag.Parse()

	cfg, err := config.LoadMainConfig(basePath)
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	var logs *utils.LogxManager
	if cfg.LogPath != "" {
		logs = utils.NewManager(cfg.LogPath)
	} else {
		logs = utils.NewConsoleManager()
	}

	net, err := scenario.Build(cfg, logs)
	if err != nil {
		log.Fatalf("Build topology failed: %v", err)
	}

	log.Printf("Ready to run %d nodes until t=%.1fs", len(cfg.Nodes), cfg.RunUntil)
	net.Kernel.Run(cfg.RunUntil)
	net.Kernel.Finish()

	for name, c := range net.Clients {
		dns, http, db := c.ChainState()
		log.Printf("client %s: dns=%v http=%v db=%v", name, dns, http, db)
	}
	log.Println("Simulation finished")
}
