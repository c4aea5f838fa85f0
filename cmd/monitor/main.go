// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/motion_collector/internal/app"
	"github.com/relabs-tech/motion_collector/internal/config"
)

func main() {
	configPath := flag.String("config", "./motion_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting motion-collector monitor (event log subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath, config.ModeMonitor); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunMonitor(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
