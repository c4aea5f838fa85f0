// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/relabs-tech/motion_collector/internal/app"
	"github.com/relabs-tech/motion_collector/internal/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-config path] <activity>\n\nactivities:\n", os.Args[0])
	for _, a := range config.Activities {
		fmt.Fprintf(os.Stderr, "  %s\n", a)
	}
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "./motion_config.txt", "path to configuration file")
	flag.Usage = usage
	flag.Parse()

	// The activity is checked before anything else is opened.
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}
	activity := args[len(args)-1]
	if err := config.ValidateActivity(activity); err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage()
		os.Exit(1)
	}

	log.Printf("starting motion-collector training capture (%s)", activity)

	// Load configuration
	if err := config.InitGlobal(*configPath, config.ModeTrain); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunTrain(activity); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
