package hexoskin

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// signalSpec is the per-signal slice of the EDF header: label, physical unit
// and samples per data record (from which the signal's own rate follows).
type signalSpec struct {
	label            string
	dimension        string
	samplesPerRecord int
}

// fileHeader is the fixed-width EDF header of a Hexoskin export. The decoder
// dependency keeps its parsed header private and only surfaces the physical
// sample values, so the patient/recording identification, the local start
// instant and the per-signal rates and units are scanned here.
type fileHeader struct {
	patient        string
	recording      string
	start          time.Time
	dataRecords    int
	recordDuration time.Duration
	signals        []signalSpec
}

// rate returns the sample rate in Hz of signal i.
func (h *fileHeader) rate(i int) float64 {
	return float64(h.signals[i].samplesPerRecord) / h.recordDuration.Seconds()
}

// signalColumns lays out the per-signal block that follows the 256-byte
// preamble: each column is written for all signals before the next column
// starts. Columns this package does not consume carry a nil assign.
var signalColumns = []struct {
	width  int
	assign func(s *signalSpec, field string)
}{
	{16, func(s *signalSpec, field string) { s.label = field }},
	{80, nil}, // transducer type
	{8, func(s *signalSpec, field string) { s.dimension = field }},
	{8, nil},  // physical minimum
	{8, nil},  // physical maximum
	{8, nil},  // digital minimum
	{8, nil},  // digital maximum
	{80, nil}, // prefiltering
	{8, func(s *signalSpec, field string) { s.samplesPerRecord, _ = strconv.Atoi(field) }},
}

// readHeader scans the fields of an EDF header this package consumes: the
// identification strings, the record geometry and the signal table. Hexoskin
// writes the start date and time in the wearer's local time, so the instant
// is recomposed in time.Local.
func readHeader(r io.Reader) (*fileHeader, error) {
	b := make([]byte, 256)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("truncated header: %w", err)
	}
	field := func(from, to int) string {
		return strings.TrimSpace(string(b[from:to]))
	}

	hdr := &fileHeader{
		patient:   field(8, 88),
		recording: field(88, 168),
	}

	start, err := time.ParseInLocation("02.01.06 15.04.05",
		field(168, 176)+" "+field(176, 184), time.Local)
	if err != nil {
		return nil, fmt.Errorf("bad start instant: %w", err)
	}
	hdr.start = start

	hdr.dataRecords, err = strconv.Atoi(field(236, 244))
	if err != nil {
		return nil, fmt.Errorf("bad data record count: %w", err)
	}
	recordSeconds, err := strconv.ParseFloat(field(244, 252), 64)
	if err != nil {
		return nil, fmt.Errorf("bad data record duration: %w", err)
	}
	hdr.recordDuration = time.Duration(recordSeconds * float64(time.Second))

	signalCount, err := strconv.Atoi(field(252, 256))
	if err != nil {
		return nil, fmt.Errorf("bad signal count: %w", err)
	}

	hdr.signals = make([]signalSpec, signalCount)
	for _, col := range signalColumns {
		buf := make([]byte, col.width)
		for i := range hdr.signals {
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("truncated signal table: %w", err)
			}
			if col.assign != nil {
				col.assign(&hdr.signals[i], strings.TrimSpace(string(buf)))
			}
		}
	}
	return hdr, nil
}
