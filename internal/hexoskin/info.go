package hexoskin

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/errdefs"
)

// SignalHeader describes one channel of a recording.
type SignalHeader struct {
	Label      string
	SampleRate float64
	Dimension  string
}

// RecordingInfo is the header-level summary of a Hexoskin recording: who was
// recorded, when it started, and the channel layout. RecordID and UserID are
// the identifiers assigned by the Hexoskin platform.
type RecordingInfo struct {
	PatientName string
	Sex         string
	StartTime   time.Time
	BirthDate   time.Time
	RecordID    int
	UserID      int
	Signals     []SignalHeader
}

// Info reads the recording summary of a .edf file. Only the header is read;
// the sample payload is never decoded.
func Info(path string) (*RecordingInfo, error) {
	if !strings.EqualFold(filepath.Ext(path), ".edf") {
		return nil, fmt.Errorf("%w: %s is not a .edf file", errdefs.ErrInvalidFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	hdr, err := readHeader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	info := &RecordingInfo{StartTime: hdr.start}
	if err := parsePatientField(hdr.patient, info); err != nil {
		return nil, fmt.Errorf("failed to parse patient field of %s: %w", path, err)
	}
	info.RecordID = findPlatformID(hdr.recording, "hexoskin_record_id=")
	info.UserID = findPlatformID(hdr.patient+" "+hdr.recording, "hexoskin_user_id=")

	for i, spec := range hdr.signals {
		if isServiceChannel(spec.label) || isServiceChannel(parseLabel(spec.label)) {
			continue
		}
		info.Signals = append(info.Signals, SignalHeader{
			Label:      parseLabel(spec.label),
			SampleRate: hdr.rate(i),
			Dimension:  spec.dimension,
		})
	}
	return info, nil
}

// parsePatientField splits the EDF+ local patient identification field:
// four space-separated subfields (code, sex, birthdate, name), underscores
// standing in for spaces inside a subfield.
func parsePatientField(field string, info *RecordingInfo) error {
	parts := strings.Fields(field)
	if len(parts) < 4 {
		return fmt.Errorf("patient field %q has %d subfields, want 4", field, len(parts))
	}
	info.Sex = parts[1]
	info.PatientName = strings.ReplaceAll(parts[3], "_", "")

	birth, err := parseHeaderDate(parts[2])
	if err != nil {
		return err
	}
	info.BirthDate = birth
	return nil
}

// parseHeaderDate parses the dd-MMM-yyyy date subfield. The month
// abbreviation arrives in arbitrary case (Hexoskin writes it upper-case).
func parseHeaderDate(field string) (time.Time, error) {
	parts := strings.Split(field, "-")
	if len(parts) == 3 && len(parts[1]) == 3 {
		month := strings.ToUpper(parts[1][:1]) + strings.ToLower(parts[1][1:])
		field = parts[0] + "-" + month + "-" + parts[2]
	}
	return time.Parse("02-Jan-2006", field)
}

// findPlatformID scans the whitespace-separated tokens of a header field for
// a prefixed key=value identifier. Returns 0 when absent.
func findPlatformID(field, prefix string) int {
	for _, token := range strings.Fields(field) {
		if rest, ok := strings.CutPrefix(token, prefix); ok {
			if id, err := strconv.Atoi(rest); err == nil {
				return id
			}
		}
	}
	return 0
}
