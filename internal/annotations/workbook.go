// Package annotations parses the clinical annotation workbook: one sheet per
// patient holding monitoring metadata in the first rows and one seizure event
// per row after a fixed header offset. Everything in the sheets is typed by
// hand by clinical staff, so cell parsing never aborts a sheet: a value that
// does not parse becomes a missing field.
package annotations

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/CRCHUM-Epilepsy-Group/epilepsy-tools/internal/errdefs"
)

// headerRow is the 0-based row index of the column header line in every
// patient sheet; the rows above it hold free-form monitoring metadata.
const headerRow = 4

// patientSheetRE matches the sheet names that hold patient annotations.
var patientSheetRE = regexp.MustCompile(`^[pP][0-9]+$`)

// Workbook is an open annotation workbook.
type Workbook struct {
	f *excelize.File
}

// Open opens the annotation workbook. A workbook with fewer than two sheets
// holds no annotation sheets (the first sheet is the legend) and is rejected.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotation workbook %s: %w", path, err)
	}
	if len(f.GetSheetList()) < 2 {
		f.Close()
		return nil, fmt.Errorf("no valid annotation sheets found in %s", path)
	}
	return &Workbook{f: f}, nil
}

func (w *Workbook) Close() error {
	return w.f.Close()
}

// PatientNumbers returns the patient codes to process. Selection "all" takes
// every sheet named like a patient code; "range" generates p<start>..p<end>.
func (w *Workbook) PatientNumbers(selection string, pRange []int) ([]string, error) {
	switch selection {
	case "all":
		var codes []string
		for _, name := range w.f.GetSheetList() {
			if patientSheetRE.MatchString(name) {
				codes = append(codes, name)
			}
		}
		return codes, nil
	case "range":
		if len(pRange) != 2 {
			return nil, fmt.Errorf("%w: range selection needs [start, end], got %v",
				errdefs.ErrConfiguration, pRange)
		}
		start, end := pRange[0], pRange[1]
		if start > end {
			return nil, fmt.Errorf("%w: range start %d is after end %d",
				errdefs.ErrConfiguration, start, end)
		}
		codes := make([]string, 0, end-start+1)
		for n := start; n <= end; n++ {
			codes = append(codes, fmt.Sprintf("p%d", n))
		}
		return codes, nil
	default:
		return nil, fmt.Errorf("%w: unknown selection mode %q, use \"all\" or \"range\"",
			errdefs.ErrConfiguration, selection)
	}
}

// sheetName resolves a patient code to the actual sheet name, matching
// case-insensitively.
func (w *Workbook) sheetName(code string) (string, error) {
	for _, name := range w.f.GetSheetList() {
		if strings.EqualFold(name, code) {
			return name, nil
		}
	}
	return "", fmt.Errorf("no annotation sheet for patient %s", code)
}

// ParseSheet reads one patient's sheet: the header line at the fixed offset
// names the columns, every following row is one seizure event.
func (w *Workbook) ParseSheet(code string) (*Sheet, error) {
	name, err := w.sheetName(code)
	if err != nil {
		return nil, err
	}
	rows, err := w.f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}
	if len(rows) <= headerRow {
		return nil, fmt.Errorf("sheet %s has no header row at offset %d", name, headerRow)
	}

	s := &Sheet{
		Patient: code,
		columns: make(map[string]int),
		rows:    rows[headerRow+1:],
	}
	for i, header := range rows[headerRow] {
		s.columns[strings.TrimSpace(header)] = i
	}
	return s, nil
}

// MonitoringDates reads the monitoring start and end dates from their fixed
// cell positions in the metadata rows. Unparseable cells yield nil, never an
// error.
func (w *Workbook) MonitoringDates(code string) (start, end *time.Time) {
	name, err := w.sheetName(code)
	if err != nil {
		return nil, nil
	}
	if raw, err := w.f.GetCellValue(name, "B1"); err == nil {
		start = parseDate(raw)
	}
	if raw, err := w.f.GetCellValue(name, "B2"); err == nil {
		end = parseDate(raw)
	}
	return start, end
}
