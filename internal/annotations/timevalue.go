package annotations

import (
	"strconv"
	"strings"
	"time"
)

// TimeKind tags the representation a time-of-day cell arrived in. The
// workbook mixes real clock strings, HHMMSS integer codes, Excel day-fraction
// serials and "yes"/"no" data-entry placeholders in the same columns, so every
// cell is classified once at ingestion and matched exhaustively afterwards.
type TimeKind int

const (
	// TimeMissing is an empty cell.
	TimeMissing TimeKind = iota
	// TimePlaceholder is a literal "yes"/"no": the event happened but the
	// time was not recorded.
	TimePlaceholder
	// TimeClock is a clock string such as "12:34:56".
	TimeClock
	// TimeCode is an integer read as a zero-padded HHMMSS code.
	TimeCode
	// TimeOffset is a duration past midnight (Excel stores times as day
	// fractions).
	TimeOffset
	// TimeInstant is a full date-and-time value; only its clock part is
	// used, the date always comes from the event's date column.
	TimeInstant
)

// TimeValue is a time-of-day cell in tagged form.
type TimeValue struct {
	Kind    TimeKind
	Clock   string
	Code    int
	Offset  time.Duration
	Instant time.Time
}

// ParseTimeValue classifies a raw cell into its TimeValue variant. The
// classification itself never fails; a string that fits no representation
// stays a Clock and fails later, at combination time, into a nil field.
func ParseTimeValue(raw string) TimeValue {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TimeValue{Kind: TimeMissing}
	}
	switch strings.ToLower(raw) {
	case "yes", "no":
		return TimeValue{Kind: TimePlaceholder}
	}

	if strings.Contains(raw, ":") {
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return TimeValue{Kind: TimeInstant, Instant: t}
			}
		}
		return TimeValue{Kind: TimeClock, Clock: raw}
	}

	if code, err := strconv.Atoi(raw); err == nil {
		return TimeValue{Kind: TimeCode, Code: code}
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if serial < 1 {
			// A bare day fraction: an offset past midnight.
			return TimeValue{Kind: TimeOffset, Offset: dayFraction(serial)}
		}
		return TimeValue{Kind: TimeInstant, Instant: serialToTime(serial)}
	}

	return TimeValue{Kind: TimeClock, Clock: raw}
}

// BuildEventTimestamp combines an event's date with a time-of-day cell into
// one instant. Missing or placeholder cells and any parse failure yield nil:
// malformed annotation data degrades to missing data.
func BuildEventTimestamp(date *time.Time, tv TimeValue) *time.Time {
	if date == nil {
		return nil
	}

	var h, m, s, ns int
	switch tv.Kind {
	case TimeMissing, TimePlaceholder:
		return nil
	case TimeClock:
		var clock time.Time
		var err error
		for _, layout := range clockLayouts {
			if clock, err = time.Parse(layout, tv.Clock); err == nil {
				break
			}
		}
		if err != nil {
			return nil
		}
		h, m, s = clock.Hour(), clock.Minute(), clock.Second()
	case TimeCode:
		// Zero-padded HHMMSS numeric code, e.g. 123456 or 90000.
		if tv.Code < 0 || tv.Code > 235959 {
			return nil
		}
		h, m, s = tv.Code/10000, tv.Code/100%100, tv.Code%100
		if h > 23 || m > 59 || s > 59 {
			return nil
		}
	case TimeOffset:
		combined := time.Date(date.Year(), date.Month(), date.Day(),
			0, 0, 0, 0, dateLocation(date)).Add(tv.Offset)
		return &combined
	case TimeInstant:
		h, m, s = tv.Instant.Hour(), tv.Instant.Minute(), tv.Instant.Second()
		ns = tv.Instant.Nanosecond()
	default:
		return nil
	}

	combined := time.Date(date.Year(), date.Month(), date.Day(), h, m, s, ns, dateLocation(date))
	return &combined
}

func dateLocation(date *time.Time) *time.Location {
	if loc := date.Location(); loc != nil {
		return loc
	}
	return time.UTC
}
