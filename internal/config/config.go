// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sosodev/duration"
)

// ErrConfiguration is wrapped by every invalid or missing setting. It is
// fatal at startup.
var ErrConfiguration = errors.New("configuration error")

// Mode selects which program is being configured.
type Mode int

const (
	// ModeProducer streams samples to an event-log topic (or time series).
	ModeProducer Mode = iota
	// ModeTrain collects labeled samples into a local file.
	ModeTrain
	// ModeMonitor reads the sample topic back.
	ModeMonitor
)

// Sink kinds.
const (
	SinkTopic  = "topic"
	SinkFile   = "file"
	SinkSeries = "series"
)

// Log backends for the topic sink.
const (
	BackendKafka = "kafka"
	BackendMQTT  = "mqtt"
)

// Activities is the closed vocabulary of training labels.
var Activities = []string{
	// phone on the table, not held or touched
	"idle",
	// in a pocket while sitting down
	"pocketsitting",
	// in a pocket while standing or walking around
	"pocketmoving",
	// in hand and in use
	"inhand",
	// in hand while running
	"running",
}

// ValidateActivity checks label against Activities.
func ValidateActivity(label string) error {
	for _, a := range Activities {
		if a == label {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown activity %q (valid: %s)", ErrConfiguration, label, strings.Join(Activities, ", "))
}

// Config holds all application configuration values.
type Config struct {
	// Transport
	ListenAddr     string
	SerialPort     string
	SerialBaudRate int

	// Sink selection
	Sink       string
	LogBackend string
	Topic      string

	// Kafka
	KafkaBootstrap []string
	KafkaClientID  string

	// MQTT
	MQTTBroker   string
	MQTTClientID string

	// InfluxDB
	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	// Session
	WarmupCount      int
	TrainingDataDir  string
	TrainingDuration time.Duration
	StopOnDisconnect bool
	DrainTimeout     time.Duration
	QueueSize        int
}

// keys lists every accepted KEY; each may be overridden by an environment
// variable of the same name.
var keys = []string{
	"LISTEN_ADDR", "SERIAL_PORT", "SERIAL_BAUD_RATE",
	"SINK_KIND", "LOG_BACKEND", "RAW_EVENTS_TOPIC",
	"KAFKA_BOOTSTRAP", "KAFKA_CLIENT_ID",
	"MQTT_BROKER", "MQTT_CLIENT_ID",
	"INFLUX_URL", "INFLUX_TOKEN", "INFLUX_ORG", "INFLUX_BUCKET",
	"WARMUP_COUNT", "TRAINING_DATA_DIR", "TRAINING_DURATION",
	"STOP_ON_DISCONNECT", "DRAIN_TIMEOUT", "QUEUE_SIZE",
}

// Package-level singleton, as set by InitGlobal and read by Get.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Defaults returns the configuration used for keys that are not set.
func Defaults(mode Mode) *Config {
	cfg := &Config{
		ListenAddr:       ":3000",
		SerialBaudRate:   115200,
		Sink:             SinkTopic,
		LogBackend:       BackendKafka,
		Topic:            "sensor-readings",
		KafkaClientID:    "iphone",
		MQTTClientID:     "motion-producer-" + uuid.NewString(),
		InfluxURL:        "http://localhost:8086",
		WarmupCount:      15,
		TrainingDataDir:  "trainingdata",
		TrainingDuration: 60 * time.Second,
		DrainTimeout:     5 * time.Second,
		QueueSize:        1024,
	}
	switch mode {
	case ModeTrain:
		cfg.Sink = SinkFile
		cfg.WarmupCount = 50
		cfg.StopOnDisconnect = true
	case ModeMonitor:
		cfg.MQTTClientID = "motion-monitor-" + uuid.NewString()
	}
	return cfg
}

// Load reads the KEY=VALUE file at configPath, applies environment
// overrides and validates the result for mode. A missing file is not an
// error; defaults and the environment still apply.
func Load(configPath string, mode Mode) (*Config, error) {
	values := map[string]string{}
	if configPath != "" {
		fileValues, err := godotenv.Read(configPath)
		switch {
		case err == nil:
			values = fileValues
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		}
	}

	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	cfg := Defaults(mode)
	for key, value := range values {
		if err := cfg.setValue(key, strings.TrimSpace(value)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	}

	if mode == ModeTrain {
		cfg.Sink = SinkFile
	}

	if err := cfg.validate(mode); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Transport
	case "LISTEN_ADDR":
		c.ListenAddr = value
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_BAUD_RATE %q: %w", value, err)
		}
		c.SerialBaudRate = rate

	// Sink selection
	case "SINK_KIND":
		switch value {
		case SinkTopic, SinkFile, SinkSeries:
			c.Sink = value
		default:
			return fmt.Errorf("SINK_KIND must be %s, %s or %s, got %q", SinkTopic, SinkFile, SinkSeries, value)
		}
	case "LOG_BACKEND":
		switch value {
		case BackendKafka, BackendMQTT:
			c.LogBackend = value
		default:
			return fmt.Errorf("LOG_BACKEND must be %s or %s, got %q", BackendKafka, BackendMQTT, value)
		}
	case "RAW_EVENTS_TOPIC":
		c.Topic = value

	// Kafka
	case "KAFKA_BOOTSTRAP":
		c.KafkaBootstrap = nil
		for _, b := range strings.Split(value, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.KafkaBootstrap = append(c.KafkaBootstrap, b)
			}
		}
	case "KAFKA_CLIENT_ID":
		c.KafkaClientID = value

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value

	// InfluxDB
	case "INFLUX_URL":
		c.InfluxURL = value
	case "INFLUX_TOKEN":
		c.InfluxToken = value
	case "INFLUX_ORG":
		c.InfluxOrg = value
	case "INFLUX_BUCKET":
		c.InfluxBucket = value

	// Session
	case "WARMUP_COUNT":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WARMUP_COUNT %q: %w", value, err)
		}
		if n < 0 {
			return fmt.Errorf("WARMUP_COUNT must be >= 0, got %d", n)
		}
		c.WarmupCount = n
	case "TRAINING_DATA_DIR":
		c.TrainingDataDir = value
	case "TRAINING_DURATION":
		d, err := parseSeconds(value)
		if err != nil {
			return fmt.Errorf("invalid TRAINING_DURATION %q: %w", value, err)
		}
		c.TrainingDuration = d
	case "STOP_ON_DISCONNECT":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid STOP_ON_DISCONNECT %q: %w", value, err)
		}
		c.StopOnDisconnect = b
	case "DRAIN_TIMEOUT":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid DRAIN_TIMEOUT %q: %w", value, err)
		}
		c.DrainTimeout = d
	case "QUEUE_SIZE":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid QUEUE_SIZE %q: %w", value, err)
		}
		c.QueueSize = n

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// parseSeconds accepts a plain number of seconds or an ISO 8601 duration (PT90S).
func parseSeconds(value string) (time.Duration, error) {
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := duration.Parse(value)
	if err != nil {
		return 0, err
	}
	return d.ToTimeDuration(), nil
}

// validate checks that the fields required by mode are set.
func (c *Config) validate(mode Mode) error {
	if c.QueueSize <= 0 {
		return fmt.Errorf("QUEUE_SIZE must be > 0, got %d", c.QueueSize)
	}
	if c.TrainingDuration <= 0 {
		return fmt.Errorf("TRAINING_DURATION must be > 0")
	}
	if mode != ModeMonitor && c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR is required")
	}

	sink := c.Sink
	if mode == ModeMonitor {
		sink = SinkTopic
	}

	switch sink {
	case SinkFile:
		if mode == ModeProducer {
			return fmt.Errorf("SINK_KIND=%s is only available to the train program", SinkFile)
		}
		if c.TrainingDataDir == "" {
			return fmt.Errorf("TRAINING_DATA_DIR is required")
		}
	case SinkSeries:
		if c.InfluxURL == "" || c.InfluxOrg == "" || c.InfluxBucket == "" {
			return fmt.Errorf("INFLUX_URL, INFLUX_ORG and INFLUX_BUCKET are required for the %s sink", SinkSeries)
		}
	case SinkTopic:
		if c.Topic == "" {
			return fmt.Errorf("RAW_EVENTS_TOPIC is required")
		}
		switch c.LogBackend {
		case BackendKafka:
			if len(c.KafkaBootstrap) == 0 {
				return fmt.Errorf("KAFKA_BOOTSTRAP is required for the %s backend", BackendKafka)
			}
		case BackendMQTT:
			if c.MQTTBroker == "" {
				return fmt.Errorf("MQTT_BROKER is required for the %s backend", BackendMQTT)
			}
		}
	}
	return nil
}

// InitGlobal initializes the global configuration. Only the first call loads.
func InitGlobal(configPath string, mode Mode) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath, mode)
	})
	return err
}

// Get returns the global configuration instance, or nil before InitGlobal.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
