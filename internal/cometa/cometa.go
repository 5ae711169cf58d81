// Package cometa loads recordings from the Cometa motion-capture/EMG device.
// The binary C3D container is decoded by an external collaborator; this
// package owns everything after the raw samples: channel label cleanup,
// trailing-pad detection, and reconstruction of the absent time axis from the
// file's modification time.
package cometa

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/errdefs"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/signalframe"
	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/timeindex"
)

// SensorLabels is the default montage installed for the epilepsy monitoring
// protocol. It needs updating if the sensor placement is edited.
var SensorLabels = []string{
	"L.Upper Trap.",
	"R.Upper Trap.",
	"L.Ant.Deltoid",
	"R.Ant.Deltoid",
	"L.Biceps Br.",
	"R.Biceps Br.",
	"L.Tib.Ant.",
	"R.Tib.Ant.",
}

// Decoding is the raw output of a C3D decoder: the per-frame analog blocks in
// file order, the analog channel labels, and the analog sample rate. Each
// block holds one row per sample tick and one column per channel.
type Decoding struct {
	Blocks [][][]float64
	Labels []string
	Rate   float64
}

// Decoder turns a C3D byte stream into its analog content. The structural
// parsing of the container (frame iteration, parameter sections) lives behind
// this boundary.
type Decoder interface {
	Decode(r io.Reader) (*Decoding, error)
}

// Recording is a loaded Cometa file: the full-length signal table plus the
// effective per-channel sample counts once trailing zero-padding is excluded.
// A channel that stopped early is padded with exact zeros by the device; the
// table keeps the padded tail (one row per original sample index) and
// EffectiveLength marks where each channel's real data ends.
type Recording struct {
	Frame           *signalframe.Frame
	EffectiveLength map[string]int
}

// Loader reads Cometa .c3d files through an injected decoder.
type Loader struct {
	dec    Decoder
	logger *zap.Logger
}

func NewLoader(dec Decoder, logger *zap.Logger) *Loader {
	return &Loader{dec: dec, logger: logger}
}

var innerSpaceRE = regexp.MustCompile(`\s+`)

// normalizeLabel trims surrounding whitespace and collapses internal runs of
// whitespace to a single space, matching the vendor software's display form.
func normalizeLabel(label string) string {
	return innerSpaceRE.ReplaceAllString(strings.TrimSpace(label), " ")
}

// Load reads a .c3d file into a Recording. The timestamp index is inferred
// from the file's last-modification time: the device writes the file when the
// recording stops, so mtime marks the final sample.
func (l *Loader) Load(path string) (*Recording, error) {
	if !strings.EqualFold(filepath.Ext(path), ".c3d") {
		return nil, fmt.Errorf("%w: %s is not a .c3d file", errdefs.ErrInvalidFormat, path)
	}
	l.logger.Debug("reading cometa file", zap.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	dec, err := l.dec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	columns, rows, err := concatBlocks(dec)
	if err != nil {
		return nil, fmt.Errorf("bad decode of %s: %w", path, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("recording %s holds no samples", path)
	}
	labels := make([]string, len(dec.Labels))
	for i, label := range dec.Labels {
		labels[i] = normalizeLabel(label)
	}

	effective := make(map[string]int, len(labels))
	for i, label := range labels {
		effective[label] = trimmedLength(columns[i])
	}

	period := timeindex.PeriodForRate(dec.Rate)
	start := timeindex.InferStart(stat.ModTime(), period, rows)
	index := timeindex.Synthesize(start, period, rows)
	l.logger.Debug("synthesized time index",
		zap.Float64("rate_hz", dec.Rate),
		zap.Int("samples", rows),
		zap.Time("start", start),
		zap.Time("end", index[len(index)-1]))

	frame, err := signalframe.New(index, labels, columns)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble frame for %s: %w", path, err)
	}
	return &Recording{Frame: frame, EffectiveLength: effective}, nil
}

// concatBlocks joins the per-frame analog blocks along the time axis into
// column-major channel slices. Every tick must carry exactly one value per
// declared label; a decoder that disagrees with its own label list is
// reported instead of scattering samples into the wrong channels.
func concatBlocks(dec *Decoding) (columns [][]float64, rows int, err error) {
	for _, block := range dec.Blocks {
		rows += len(block)
	}
	columns = make([][]float64, len(dec.Labels))
	for c := range columns {
		columns[c] = make([]float64, 0, rows)
	}
	for _, block := range dec.Blocks {
		for _, tick := range block {
			if len(tick) != len(columns) {
				return nil, 0, fmt.Errorf("decoder produced a %d-channel sample for %d labels",
					len(tick), len(columns))
			}
			for c, v := range tick {
				columns[c] = append(columns[c], v)
			}
		}
	}
	return columns, rows, nil
}

// trimmedLength returns the sample count of a channel once trailing exact
// zeros are excluded, i.e. where the device-side padding begins.
func trimmedLength(col []float64) int {
	n := len(col)
	for n > 0 && col[n-1] == 0 {
		n--
	}
	return n
}
