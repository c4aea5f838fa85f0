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

	log.Println("starting motion-collector producer (phone → event log)")

	// Load configuration
	if err := config.InitGlobal(*configPath, config.ModeProducer); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunProducer(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
