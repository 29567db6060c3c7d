package telemetry

import (
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"

	"servopanel/internal/config"
	"servopanel/internal/logger"
)

type influxSink struct {
	client   influxdb2.Client
	writeApi api.WriteApi
}

// NewInflux returns a recorder writing to InfluxDB, or a no-op recorder when
// no URL is configured. Writes are asynchronous; errors are logged.
func NewInflux(cfg config.InfluxConfig, log *logger.Logger) *Recorder {
	if cfg.URL == "" {
		return Nop()
	}
	log = log.Named("telemetry")

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	writeApi := client.WriteApi(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeApi.Errors() {
			log.Warnw("influx_write_failed", "err", err)
		}
	}()
	log.Infow("telemetry_enabled", "url", cfg.URL, "org", cfg.Org, "bucket", cfg.Bucket)
	return newRecorder(&influxSink{client: client, writeApi: writeApi})
}

func (s *influxSink) write(sm Sample) {
	s.writeApi.WritePoint(influxdb2.NewPoint(sm.Measurement, sm.Tags, sm.Fields, sm.At))
}

func (s *influxSink) flush() { s.writeApi.Flush() }

func (s *influxSink) close() {
	s.writeApi.Close()
	s.client.Close()
}
