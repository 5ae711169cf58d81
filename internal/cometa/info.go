package cometa

import (
	"fmt"
	"time"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/signalframe"
)

// RecordingInfo summarizes a recording: sampling rate, extent and channels.
// Duration is always End minus Start and never negative for a well-formed
// ascending index.
type RecordingInfo struct {
	Rate     float64
	Samples  int
	Channels []string
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// InfoFromFrame derives the recording summary from an already loaded table.
// The rate is the reciprocal of the gap between the first two timestamps.
func InfoFromFrame(f *signalframe.Frame) (RecordingInfo, error) {
	index := f.Index()
	if len(index) < 2 {
		return RecordingInfo{}, fmt.Errorf("need at least 2 samples to derive a rate, got %d", len(index))
	}
	start, end := index[0], index[len(index)-1]
	return RecordingInfo{
		Rate:     1 / index[1].Sub(start).Seconds(),
		Samples:  f.Rows(),
		Channels: f.Labels(),
		Start:    start,
		End:      end,
		Duration: end.Sub(start),
	}, nil
}

// Info loads a .c3d file and returns its recording summary.
func (l *Loader) Info(path string) (RecordingInfo, error) {
	rec, err := l.Load(path)
	if err != nil {
		return RecordingInfo{}, err
	}
	return InfoFromFrame(rec.Frame)
}
