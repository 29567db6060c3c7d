// Package telemetry turns coordinator events into time-series points.
package telemetry

import (
	"context"
	"time"

	"servopanel/internal/models"
)

// Measurement names.
const (
	MeasurementPosition     = "servo_position"
	MeasurementConnectivity = "backend_connectivity"
)

// Sample is one point ready to be written.
type Sample struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]interface{}
	At          time.Time
}

// sink receives samples. The influx writer is the production sink.
type sink interface {
	write(s Sample)
	flush()
	close()
}

// Recorder consumes the event stream and forwards the samples it yields.
type Recorder struct {
	sink sink
}

func newRecorder(s sink) *Recorder { return &Recorder{sink: s} }

// Nop returns a recorder that drops everything.
func Nop() *Recorder { return newRecorder(nopSink{}) }

// Consume forwards samples until ctx is canceled or events is closed, then
// flushes.
func (r *Recorder) Consume(ctx context.Context, events <-chan models.Event) {
	defer r.sink.flush()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if s, ok := sampleFor(e); ok {
				r.sink.write(s)
			}
		}
	}
}

func (r *Recorder) Close() { r.sink.close() }

// sampleFor maps position and connectivity events; everything else is
// skipped.
func sampleFor(e models.Event) (Sample, bool) {
	at := e.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	switch e.Type {
	case models.EventPosition:
		meta, _ := e.Metadata.(map[string]any)
		angle, ok := meta["angle"].(int)
		if !ok || e.ActuatorID == "" {
			return Sample{}, false
		}
		source, _ := meta["source"].(string)
		return Sample{
			Measurement: MeasurementPosition,
			Tags:        map[string]string{"actuator": e.ActuatorID, "source": source},
			Fields:      map[string]interface{}{"angle": angle},
			At:          at,
		}, true
	case models.EventConnectivity:
		report, ok := e.Metadata.(models.ConnectivityReport)
		if !ok {
			return Sample{}, false
		}
		return Sample{
			Measurement: MeasurementConnectivity,
			Tags:        map[string]string{"state": string(report.State)},
			Fields: map[string]interface{}{
				"connected":       report.State == models.Connected,
				"backend_running": report.BackendRunning,
				"servo_count":     report.ServoCount,
			},
			At: at,
		}, true
	}
	return Sample{}, false
}

type nopSink struct{}

func (nopSink) write(Sample) {}
func (nopSink) flush()       {}
func (nopSink) close()       {}
