// Package timeindex reconstructs the time axis of a recording from its sample
// count and sample rate. Neither device embeds one timestamp per sample: the
// Cometa C3D container stores no start time at all and the Hexoskin EDF header
// stores only the start instant, so both loaders synthesize the index here.
package timeindex

import "time"

// PeriodForRate returns the sample period for a rate in Hz at nanosecond
// resolution. Sub-millisecond precision matters: a 2 kHz EMG recording of a
// few hours spans millions of samples, and a period rounded to the
// millisecond drifts the tail of the index by minutes.
func PeriodForRate(hz float64) time.Duration {
	return time.Duration(float64(time.Second) / hz)
}

// Synthesize returns count timestamps starting at start and spaced exactly
// period apart. count == 1 yields just the start instant.
func Synthesize(start time.Time, period time.Duration, count int) []time.Time {
	stamps := make([]time.Time, count)
	for i := range stamps {
		stamps[i] = start.Add(period * time.Duration(i))
	}
	return stamps
}

// InferStart computes the start instant of a recording that only recorded
// when it stopped. The device writes the file at the instant recording ends,
// so the file's last-modification time minus the elapsed duration of
// count samples recovers the start: mtime - period*(count-1).
func InferStart(mtime time.Time, period time.Duration, count int) time.Time {
	return mtime.Add(-period * time.Duration(count-1))
}

// Elapsed returns the seconds-from-zero axis for count samples, matching the
// time vector the vendor acquisition software displays.
func Elapsed(period time.Duration, count int) []float64 {
	axis := make([]float64, count)
	for i := range axis {
		axis[i] = period.Seconds() * float64(i)
	}
	return axis
}
