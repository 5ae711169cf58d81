// Package hexoskin loads recordings from the Hexoskin physiological wearable.
// Exports are EDF files whose channels run at heterogeneous rates (ECG at
// 256 Hz down to 1 Hz activity metrics), so loading means scattering every
// channel onto the fastest channel's time grid, with NaN gaps where a slower
// channel has no sample.
package hexoskin

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ishiikurisu/edf"
	"go.uber.org/zap"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/errdefs"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/signalframe"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/timeindex"
)

// rawSignal is one decoded channel: its cleaned label, own sample rate,
// physical unit and full sample sequence.
type rawSignal struct {
	Label     string
	Rate      float64
	Dimension string
	Samples   []float64
}

// Loader reads Hexoskin .edf files.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// parseLabel strips the numeric id prefix of a Hexoskin channel label.
// Labels have the form "<id>:<name>"; only the name identifies the metric.
func parseLabel(label string) string {
	if i := strings.Index(label, ":"); i >= 0 {
		return label[i+1:]
	}
	return label
}

// bookkeeping channels present in EDF+ exports that carry no samples of the
// recording itself.
func isServiceChannel(label string) bool {
	return label == "EDF Annotations" || label == "Crc16"
}

// decodePhysical runs the external EDF decoder. The decoder reports failures
// by panicking, so the call is fenced and surfaced as an error.
func decodePhysical(path string) (rec [][]float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("edf decoder failed on %s: %v", path, r)
		}
	}()
	data := edf.ReadFile(path)
	return data.PhysicalRecords, nil
}

// decodeFile reads the header and the physical samples of an .edf file,
// pairing them by signal index and dropping service channels.
func (l *Loader) decodeFile(path string) ([]rawSignal, *fileHeader, error) {
	if !strings.EqualFold(filepath.Ext(path), ".edf") {
		return nil, nil, fmt.Errorf("%w: %s is not a .edf file", errdefs.ErrInvalidFormat, path)
	}
	l.logger.Debug("reading hexoskin file", zap.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	hdr, err := readHeader(f)
	f.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	records, err := decodePhysical(path)
	if err != nil {
		return nil, nil, err
	}
	if len(records) < len(hdr.signals) {
		return nil, nil, fmt.Errorf("decoder returned %d signals, header declares %d",
			len(records), len(hdr.signals))
	}

	signals := make([]rawSignal, 0, len(hdr.signals))
	for i, spec := range hdr.signals {
		if isServiceChannel(spec.label) || isServiceChannel(parseLabel(spec.label)) {
			continue
		}
		signals = append(signals, rawSignal{
			Label:     parseLabel(spec.label),
			Rate:      hdr.rate(i),
			Dimension: spec.dimension,
			Samples:   records[i],
		})
	}
	return signals, hdr, nil
}

// assembleFrame scatters every channel onto the master grid defined by the
// fastest channel: a channel at 1/k of the maximum rate lands on every k-th
// row, with NaN in between. The master index starts at the header start
// instant and spans the longest channel.
func assembleFrame(signals []rawSignal, start time.Time) (*signalframe.Frame, error) {
	if len(signals) == 0 {
		return nil, fmt.Errorf("recording holds no signal channels")
	}

	var maxRate float64
	var maxLength int
	for _, sig := range signals {
		if sig.Rate > maxRate {
			maxRate = sig.Rate
		}
		if len(sig.Samples) > maxLength {
			maxLength = len(sig.Samples)
		}
	}

	index := timeindex.Synthesize(start, timeindex.PeriodForRate(maxRate), maxLength)

	labels := make([]string, len(signals))
	columns := make([][]float64, len(signals))
	for c, sig := range signals {
		ratio := maxRate / sig.Rate
		stride := math.Round(ratio)
		// The scatter is only exact for integer rate ratios; anything else
		// would shift every sample of the channel off its true instant.
		if math.Abs(ratio-stride) > 1e-9 || stride < 1 {
			return nil, fmt.Errorf("%w: channel %q rate %g Hz does not divide the maximum rate %g Hz",
				errdefs.ErrInvalidFormat, sig.Label, sig.Rate, maxRate)
		}

		column := make([]float64, maxLength)
		for i := range column {
			column[i] = math.NaN()
		}
		for i, v := range sig.Samples {
			pos := i * int(stride)
			if pos >= maxLength {
				break
			}
			column[pos] = v
		}
		labels[c] = sig.Label
		columns[c] = column
	}

	return signalframe.New(index, labels, columns)
}

// LoadFrame reads a .edf file into the unified table: one column per channel
// on the fastest channel's time grid, NaN at the gap positions of slower
// channels. Forward-fill or Compact the result depending on the analysis.
func (l *Loader) LoadFrame(path string) (*signalframe.Frame, error) {
	signals, hdr, err := l.decodeFile(path)
	if err != nil {
		return nil, err
	}
	frame, err := assembleFrame(signals, hdr.start)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble frame for %s: %w", path, err)
	}
	l.logger.Debug("assembled hexoskin frame",
		zap.Int("channels", len(frame.Labels())),
		zap.Int("rows", frame.Rows()),
		zap.Time("start", hdr.start))
	return frame, nil
}

// LoadSeries reads a .edf file as one compacted series per channel: no NaN
// sentinels, each channel at its own natural length with its own timestamps.
func (l *Loader) LoadSeries(path string) (map[string]signalframe.Series, error) {
	frame, err := l.LoadFrame(path)
	if err != nil {
		return nil, err
	}
	series := make(map[string]signalframe.Series, len(frame.Labels()))
	for _, label := range frame.Labels() {
		s, _ := frame.Compact(label)
		series[label] = s
	}
	return series, nil
}
