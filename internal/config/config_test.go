package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "motion_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadProducerConfig(t *testing.T) {
	path := writeConfig(t, `
# producer
LISTEN_ADDR=:4000
KAFKA_BOOTSTRAP=broker-1:9092, broker-2:9092
RAW_EVENTS_TOPIC=phone-raw
WARMUP_COUNT=3
DRAIN_TIMEOUT=250ms
`)

	cfg, err := Load(path, ModeProducer)
	require.NoError(t, err)
	require.Equal(t, ":4000", cfg.ListenAddr)
	require.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBootstrap)
	require.Equal(t, "phone-raw", cfg.Topic)
	require.Equal(t, SinkTopic, cfg.Sink)
	require.Equal(t, BackendKafka, cfg.LogBackend)
	require.Equal(t, 3, cfg.WarmupCount)
	require.Equal(t, 250*time.Millisecond, cfg.DrainTimeout)
	require.False(t, cfg.StopOnDisconnect)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "KAFKA_BOOTSTRAP=file:9092\nRAW_EVENTS_TOPIC=from-file\n")
	t.Setenv("KAFKA_BOOTSTRAP", "env:9092")

	cfg, err := Load(path, ModeProducer)
	require.NoError(t, err)
	require.Equal(t, []string{"env:9092"}, cfg.KafkaBootstrap)
	require.Equal(t, "from-file", cfg.Topic)
}

func TestMissingClusterAddress(t *testing.T) {
	_, err := Load(writeConfig(t, "LOG_BACKEND=kafka\n"), ModeProducer)
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = Load(writeConfig(t, "LOG_BACKEND=mqtt\n"), ModeProducer)
	require.ErrorIs(t, err, ErrConfiguration)

	cfg, err := Load(writeConfig(t, "LOG_BACKEND=mqtt\nMQTT_BROKER=tcp://localhost:1883\n"), ModeProducer)
	require.NoError(t, err)
	require.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
}

func TestTrainDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.txt"), ModeTrain)
	require.NoError(t, err)
	require.Equal(t, SinkFile, cfg.Sink)
	require.Equal(t, 50, cfg.WarmupCount)
	require.Equal(t, 60*time.Second, cfg.TrainingDuration)
	require.True(t, cfg.StopOnDisconnect)
	require.Equal(t, "trainingdata", cfg.TrainingDataDir)
}

func TestTrainingDurationFormats(t *testing.T) {
	cfg, err := Load(writeConfig(t, "TRAINING_DURATION=90\n"), ModeTrain)
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, cfg.TrainingDuration)

	cfg, err = Load(writeConfig(t, "TRAINING_DURATION=PT2M\n"), ModeTrain)
	require.NoError(t, err)
	require.Equal(t, 2*time.Minute, cfg.TrainingDuration)

	_, err = Load(writeConfig(t, "TRAINING_DURATION=soon\n"), ModeTrain)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestRejectsBadValues(t *testing.T) {
	for _, body := range []string{
		"NOT_A_KEY=1\n",
		"WARMUP_COUNT=-1\n",
		"WARMUP_COUNT=many\n",
		"SINK_KIND=printer\n",
		"LOG_BACKEND=carrier-pigeon\n",
		"QUEUE_SIZE=0\n",
		"STOP_ON_DISCONNECT=perhaps\n",
	} {
		_, err := Load(writeConfig(t, body), ModeTrain)
		require.ErrorIs(t, err, ErrConfiguration, "config %q", body)
	}
}

func TestSeriesSinkRequiresInflux(t *testing.T) {
	_, err := Load(writeConfig(t, "SINK_KIND=series\n"), ModeProducer)
	require.ErrorIs(t, err, ErrConfiguration)

	cfg, err := Load(writeConfig(t, "SINK_KIND=series\nINFLUX_ORG=lab\nINFLUX_BUCKET=motion\n"), ModeProducer)
	require.NoError(t, err)
	require.Equal(t, SinkSeries, cfg.Sink)
}

func TestFileSinkIsTrainOnly(t *testing.T) {
	_, err := Load(writeConfig(t, "SINK_KIND=file\n"), ModeProducer)
	require.ErrorIs(t, err, ErrConfiguration)

	cfg, err := Load(writeConfig(t, "SINK_KIND=topic\n"), ModeTrain)
	require.NoError(t, err)
	require.Equal(t, SinkFile, cfg.Sink)
}

func TestValidateActivity(t *testing.T) {
	for _, a := range Activities {
		require.NoError(t, ValidateActivity(a))
	}
	require.ErrorIs(t, ValidateActivity("sleeping"), ErrConfiguration)
	require.ErrorIs(t, ValidateActivity(""), ErrConfiguration)
}
