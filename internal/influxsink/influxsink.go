// Package influxsink streams recording signal frames into InfluxDB (or a
// VictoriaMetrics endpoint speaking the same line protocol) for ad-hoc
// visualisation.
package influxsink

import (
	"math"

	"github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/annotations"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/signalframe"
)

// Config is the connection configuration for the sink.
type Config struct {
	Host      string `yaml:"host"`
	AuthToken string `yaml:"auth_token"`
	Org       string `yaml:"org"`
	Bucket    string `yaml:"bucket"`
}

// Writer streams points through the client's batching write API.
type Writer struct {
	client influxdb2.Client
	api    api.WriteAPI
	logger *zap.Logger
}

func NewWriter(config Config, logger *zap.Logger) *Writer {
	client := influxdb2.NewClient(config.Host, config.AuthToken)
	return &Writer{
		client: client,
		api:    client.WriteAPI(config.Org, config.Bucket),
		logger: logger,
	}
}

// Close flushes pending writes and releases the client.
func (w *Writer) Close() {
	w.api.Flush()
	w.client.Close()
}

// WriteFrame writes every sample of the frame as one field per channel. NaN
// cells (the padding of channels slower than the frame rate) carry no
// information and are skipped.
func (w *Writer) WriteFrame(frame *signalframe.Frame, measurement string, tags map[string]string) {
	index := frame.Index()
	written := 0
	for _, label := range frame.Labels() {
		column, ok := frame.Column(label)
		if !ok {
			continue
		}
		for i, v := range column {
			if math.IsNaN(v) {
				continue
			}
			p := influxdb2.NewPointWithMeasurement(measurement).
				AddField(label, v).
				SetTime(index[i])
			for k, tv := range tags {
				p.AddTag(k, tv)
			}
			w.api.WritePoint(p)
			written++
		}
	}
	w.logger.Debug("wrote frame",
		zap.String("measurement", measurement),
		zap.Int("points", written))
}

// WriteEvents marks each seizure as a pulse on its electric onset (falling
// back to the clinical onset), so the events overlay the signal traces.
func (w *Writer) WriteEvents(events []annotations.Event, measurement string) {
	for _, e := range events {
		at := e.ElectricOnset
		if at == nil {
			at = e.ClinicalOnset
		}
		if at == nil {
			continue
		}
		w.api.WritePoint(influxdb2.NewPointWithMeasurement(measurement).
			AddTag("patient", e.PatientNum).
			AddTag("type", e.Type).
			AddField("seizure", 1).
			SetTime(*at))
	}
}
