package annotations

import (
	"strconv"
	"strings"
	"time"
)

// Layouts a date cell can arrive in once excelize renders it: ISO dates the
// annotators type by hand, plus the formats Excel applies to real date cells.
var dateLayouts = []string{
	"2006-01-02",
	"01-02-06",
	"1/2/2006",
	"1/2/06",
	"02-Jan-06",
	"2-Jan-06",
	"2006/01/02",
}

// Clock cells are usually HH:MM:SS but some annotators drop the seconds.
var clockLayouts = []string{
	"15:04:05",
	"15:04",
}

var dateTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/06 15:04",
	"01-02-06 15:04",
	time.RFC3339,
}

// excelEpoch is day zero of Excel's 1900 date system.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// dayFraction converts a fraction of a day into a duration, rounded to the
// second (annotation times never carry sub-second precision).
func dayFraction(frac float64) time.Duration {
	return time.Duration(frac*24*3600+0.5) * time.Second
}

// serialToTime converts an Excel serial number into an instant.
func serialToTime(serial float64) time.Time {
	days := int(serial)
	return excelEpoch.AddDate(0, 0, days).Add(dayFraction(serial - float64(days)))
}

// parseDate coerces a raw cell into a calendar date (or datetime), returning
// nil for anything unparseable.
func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range append(dateLayouts, dateTimeLayouts...) {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	// Date cells sometimes surface as bare serial numbers.
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial >= 1 {
		t := serialToTime(serial)
		return &t
	}
	return nil
}
