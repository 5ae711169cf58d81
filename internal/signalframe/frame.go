// Package signalframe holds the unified tabular form both device loaders emit:
// one column per channel, one row per time step, and a monotonic evenly-spaced
// timestamp index.
package signalframe

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/errdefs"
)

// AccelerationSuffixes are the axis markers a vector-valued sensor appends to
// its label. A channel ending in one of these carries acceleration data;
// every other channel is a scalar EMG signal.
var AccelerationSuffixes = []string{":X", ":Y", ":Z"}

// IsAcceleration reports whether a channel label names an acceleration axis.
func IsAcceleration(label string) bool {
	for _, suffix := range AccelerationSuffixes {
		if strings.HasSuffix(label, suffix) {
			return true
		}
	}
	return false
}

// Frame is an ordered table of samples indexed by timestamp.
type Frame struct {
	labels  []string
	columns [][]float64
	index   []time.Time
}

// New builds a Frame from a timestamp index, channel labels and column-major
// samples. Every column must have exactly one sample per index entry.
func New(index []time.Time, labels []string, columns [][]float64) (*Frame, error) {
	if len(labels) != len(columns) {
		return nil, fmt.Errorf("got %d labels for %d columns", len(labels), len(columns))
	}
	for i, col := range columns {
		if len(col) != len(index) {
			return nil, fmt.Errorf("channel %q has %d samples for %d timestamps",
				labels[i], len(col), len(index))
		}
	}
	return &Frame{labels: labels, columns: columns, index: index}, nil
}

// Rows returns the number of time steps.
func (f *Frame) Rows() int { return len(f.index) }

// Labels returns the channel labels in column order.
func (f *Frame) Labels() []string { return f.labels }

// Index returns the timestamp index, one entry per row.
func (f *Frame) Index() []time.Time { return f.index }

// Column returns the samples of the named channel.
func (f *Frame) Column(label string) ([]float64, bool) {
	for i, l := range f.labels {
		if l == label {
			return f.columns[i], true
		}
	}
	return nil, false
}

// Select returns a Frame keeping only the channels for which keep returns
// true. The selected columns share storage with the receiver.
func (f *Frame) Select(keep func(label string) bool) *Frame {
	sub := &Frame{index: f.index}
	for i, label := range f.labels {
		if keep(label) {
			sub.labels = append(sub.labels, label)
			sub.columns = append(sub.columns, f.columns[i])
		}
	}
	return sub
}

// EMG returns the scalar (non-acceleration) channels.
func (f *Frame) EMG() *Frame {
	return f.Select(func(label string) bool { return !IsAcceleration(label) })
}

// Acceleration returns the acceleration-axis channels.
func (f *Frame) Acceleration() *Frame {
	return f.Select(IsAcceleration)
}

// Downsample keeps every ratio-th row: ratio 2 keeps half the data, 3 keeps a
// third. The result owns its storage and never aliases the receiver.
func (f *Frame) Downsample(ratio int) (*Frame, error) {
	if ratio < 1 {
		return nil, fmt.Errorf("%w: downsample ratio must be >= 1, got %d",
			errdefs.ErrConfiguration, ratio)
	}

	rows := (f.Rows() + ratio - 1) / ratio
	down := &Frame{
		labels:  append([]string(nil), f.labels...),
		columns: make([][]float64, len(f.columns)),
		index:   make([]time.Time, 0, rows),
	}
	for i := 0; i < f.Rows(); i += ratio {
		down.index = append(down.index, f.index[i])
	}
	for c, col := range f.columns {
		kept := make([]float64, 0, rows)
		for i := 0; i < len(col); i += ratio {
			kept = append(kept, col[i])
		}
		down.columns[c] = kept
	}
	return down, nil
}

// Series is one channel compacted to its natural length: sentinel-free values
// with one timestamp per real sample.
type Series struct {
	Label  string
	Times  []time.Time
	Values []float64
}

// Compact strips the NaN gap positions of the named channel, keeping the
// timestamps of the surviving samples.
func (f *Frame) Compact(label string) (Series, bool) {
	col, ok := f.Column(label)
	if !ok {
		return Series{}, false
	}
	s := Series{Label: label}
	for i, v := range col {
		if math.IsNaN(v) {
			continue
		}
		s.Times = append(s.Times, f.index[i])
		s.Values = append(s.Values, v)
	}
	return s, true
}
