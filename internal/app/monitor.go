// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"

	"github.com/relabs-tech/motion_collector/internal/config"
	"github.com/relabs-tech/motion_collector/internal/imu"
)

// RunMonitor prints every sample published on the configured topic until
// Ctrl+C.
func RunMonitor() error {
	cfg := config.Get()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch cfg.LogBackend {
	case config.BackendMQTT:
		err = monitorMQTT(ctx, cfg.MQTTBroker, cfg.MQTTClientID, cfg.Topic, os.Stdout)
	default:
		err = monitorKafka(ctx, cfg.KafkaBootstrap, cfg.KafkaClientID+"-monitor", cfg.Topic, os.Stdout)
	}
	log.Println("monitor: shutting down")
	return err
}

// FormatSample renders one sample the way the monitor prints it.
func FormatSample(s imu.CombinedSample) string {
	return fmt.Sprintf(
		"[SAMPLE] ax=%8.3f ay=%8.3f az=%8.3f  gx=%8.3f gy=%8.3f gz=%8.3f",
		s.Accel.X, s.Accel.Y, s.Accel.Z, s.Gyro.X, s.Gyro.Y, s.Gyro.Z,
	)
}

func printSample(w io.Writer, payload []byte) {
	s, err := imu.ParseCSV(string(payload))
	if err != nil {
		log.Printf("monitor: %v", err)
		return
	}
	fmt.Fprintln(w, FormatSample(s))
}

func monitorMQTT(ctx context.Context, broker, clientID, topic string, w io.Writer) error {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	defer client.Disconnect(250)
	log.Printf("monitor: connected to MQTT broker at %s", broker)

	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		printSample(w, msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("monitor: subscribed to %s", topic)

	<-ctx.Done()
	return nil
}

func monitorKafka(ctx context.Context, brokers []string, groupID, topic string, w io.Writer) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		StartOffset: kafka.LastOffset,
	})
	defer r.Close()
	log.Printf("monitor: reading %s from %v", topic, brokers)

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("kafka read: %w", err)
		}
		printSample(w, m.Value)
	}
}
