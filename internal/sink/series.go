package sink

import (
	"context"
	"log"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/relabs-tech/motion_collector/internal/imu"
)

// Measurement is the InfluxDB measurement name for combined samples.
const Measurement = "motion"

// SeriesSink writes samples as points through the non-blocking write API.
// Write errors arrive asynchronously and are logged.
type SeriesSink struct {
	client  influxdb2.Client
	writer  api.WriteAPI
	session string
}

func NewSeriesSink(url, token, org, bucket, session string) *SeriesSink {
	client := influxdb2.NewClient(url, token)
	writer := client.WriteAPI(org, bucket)
	s := &SeriesSink{
		client:  client,
		writer:  writer,
		session: session,
	}
	errs := writer.Errors()
	go func() {
		for err := range errs {
			log.Printf("influx: write error: %v", err)
		}
	}()
	return s
}

func (s *SeriesSink) Write(_ context.Context, smp imu.CombinedSample) error {
	p := influxdb2.NewPointWithMeasurement(Measurement).
		AddTag("session", s.session).
		AddField("accel_x", smp.Accel.X).
		AddField("accel_y", smp.Accel.Y).
		AddField("accel_z", smp.Accel.Z).
		AddField("gyro_x", smp.Gyro.X).
		AddField("gyro_y", smp.Gyro.Y).
		AddField("gyro_z", smp.Gyro.Z).
		AddField("seq", int64(smp.Sequence)).
		SetTime(smp.ProducedAt)

	s.writer.WritePoint(p)
	return nil
}

// Close flushes buffered points and releases the client.
func (s *SeriesSink) Close() error {
	s.writer.Flush()
	s.client.Close()
	return nil
}
