package annotations

import (
	"strconv"
	"strings"
	"time"
)

// Column names of the seizure log. The electrical-onset column exists under
// two spellings across workbook revisions; colElectricOnset lists both in
// preference order.
const (
	colClassification = "Seizure_Classification"
	colCount          = "Seizure_count"
	colDate           = "Seizure_Date"
	colClinicalOnset  = "Clinical_Onset"
	colGeneralization = "Generalization"
	colMotorOnset     = "Motor_Onset"
	colEnd            = "End"
)

var colElectricOnset = []string{"Electric_Onset", "Electrical_Onset"}

// KnownClassifications is the working vocabulary of the seizure
// classification column. The set grows as the protocol evolves; values
// outside it are processed anyway but worth a diagnostic.
var KnownClassifications = map[string]bool{
	"FAS":         true,
	"FIAS":        true,
	"FBTC":        true,
	"GTC":         true,
	"Myoclonic":   true,
	"Absence":     true,
	"Subclinical": true,
	"Unknown":     true,
}

// Sheet is one patient's parsed annotation sheet: the column index derived
// from the header row, and the event rows after it.
type Sheet struct {
	Patient string
	columns map[string]int
	rows    [][]string
}

// value reads the named column of an event row, tolerating the ragged rows
// the spreadsheet reader produces for trailing empty cells.
func (s *Sheet) value(row []string, column string) string {
	i, ok := s.columns[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// electricColumn returns whichever spelling of the electrical-onset column
// this sheet uses.
func (s *Sheet) electricColumn() string {
	for _, name := range colElectricOnset {
		if _, ok := s.columns[name]; ok {
			return name
		}
	}
	return colElectricOnset[0]
}

// Classifications returns the distinct classification values present, in
// first-appearance order. Rows with an empty classification are ignored.
func (s *Sheet) Classifications() []string {
	var distinct []string
	seen := make(map[string]bool)
	for _, row := range s.rows {
		c := s.value(row, colClassification)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		distinct = append(distinct, c)
	}
	return distinct
}

// allTypes reports whether a type filter means "every classification".
func allTypes(types []string) bool {
	return types == nil || (len(types) == 1 && types[0] == "all")
}

// CountEvents counts the patient's seizures per classification. With no
// filter every classification present is counted and ok is always true, a
// genuine zero included. With a filter, requested types absent from the sheet
// contribute zero, and ok is false when nothing matched at all, so the caller
// can tell "no qualifying events" apart from "no filter applied".
func CountEvents(s *Sheet, types []string) (counts map[string]int, total int, ok bool) {
	perType := make(map[string]int)
	for _, row := range s.rows {
		if c := s.value(row, colClassification); c != "" {
			perType[c]++
		}
	}

	counts = make(map[string]int)
	filtered := !allTypes(types)
	if filtered {
		for _, t := range types {
			counts[t] = perType[t]
		}
	} else {
		counts = perType
	}
	for _, n := range counts {
		total += n
	}
	return counts, total, !filtered || total > 0
}

// Event is one seizure reconstructed from an annotation row. The five
// instants combine the event date with independently parsed time cells; any
// of them can be nil without affecting the others.
type Event struct {
	PatientNum     string
	SeizureID      *int
	Type           string
	Date           *time.Time
	ElectricOnset  *time.Time
	ClinicalOnset  *time.Time
	Generalization *time.Time
	MotorOnset     *time.Time
	Offset         *time.Time
}

// ExtractEvents materializes one Event per row matching the requested
// classifications. A nil or "all" filter takes every classification present
// in the sheet.
func ExtractEvents(s *Sheet, types []string) []Event {
	if allTypes(types) {
		types = s.Classifications()
	}
	electricCol := s.electricColumn()

	var events []Event
	for _, seizureType := range types {
		for _, row := range s.rows {
			if s.value(row, colClassification) != seizureType {
				continue
			}

			date := parseDate(s.value(row, colDate))
			event := Event{
				PatientNum:     s.Patient,
				SeizureID:      parseSeizureID(s.value(row, colCount)),
				Type:           seizureType,
				Date:           date,
				ElectricOnset:  BuildEventTimestamp(date, ParseTimeValue(s.value(row, electricCol))),
				ClinicalOnset:  BuildEventTimestamp(date, ParseTimeValue(s.value(row, colClinicalOnset))),
				Generalization: BuildEventTimestamp(date, ParseTimeValue(s.value(row, colGeneralization))),
				MotorOnset:     BuildEventTimestamp(date, ParseTimeValue(s.value(row, colMotorOnset))),
				Offset:         BuildEventTimestamp(date, ParseTimeValue(s.value(row, colEnd))),
			}
			events = append(events, event)
		}
	}
	return events
}

// parseSeizureID reads the sequence-id cell; anything that is not an integer
// is treated as absent rather than an error.
func parseSeizureID(raw string) *int {
	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &id
}
