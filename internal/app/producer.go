// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/relabs-tech/motion_collector/internal/config"
	"github.com/relabs-tech/motion_collector/internal/session"
	"github.com/relabs-tech/motion_collector/internal/sink"
)

// RunProducer streams combined samples to the configured event-log topic
// (or time series) until interrupted.
func RunProducer() error {
	cfg := config.Get()
	id := uuid.NewString()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	snk, err := newProducerSink(ctx, cfg, id)
	if err != nil {
		return err
	}

	policy := session.Unbounded()
	policy.StopOnDisconnect = cfg.StopOnDisconnect

	srv, err := newServer(cfg, snk, session.Options{
		ID:           id,
		WarmupCount:  cfg.WarmupCount,
		Policy:       policy,
		DrainTimeout: cfg.DrainTimeout,
	}, os.Stdout)
	if err != nil {
		return err
	}

	log.Printf("ignoring the first %d readings before sending", cfg.WarmupCount)
	return srv.Run(ctx)
}

func newProducerSink(ctx context.Context, cfg *config.Config, id string) (sink.Sink, error) {
	switch cfg.Sink {
	case config.SinkSeries:
		log.Printf("writing samples to InfluxDB at %s (%s/%s)", cfg.InfluxURL, cfg.InfluxOrg, cfg.InfluxBucket)
		return sink.NewSeriesSink(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, id), nil

	case config.SinkTopic:
		var (
			p   sink.Producer
			err error
		)
		switch cfg.LogBackend {
		case config.BackendMQTT:
			log.Printf("using MQTT broker at %s", cfg.MQTTBroker)
			p, err = sink.NewMQTTProducer(cfg.MQTTBroker, cfg.MQTTClientID)
		default:
			log.Printf("using Kafka cluster at %v", cfg.KafkaBootstrap)
			p, err = sink.NewKafkaProducer(ctx, cfg.KafkaBootstrap, cfg.KafkaClientID)
		}
		if err != nil {
			return nil, err
		}
		log.Printf("producing sensor events to %s", cfg.Topic)
		return sink.NewLogSink(p, cfg.Topic), nil
	}
	return nil, fmt.Errorf("%w: sink %q is not available to the producer", config.ErrConfiguration, cfg.Sink)
}
