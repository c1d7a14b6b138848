package types

import "time"

// RawReading is one load-curve point exactly as the meter data provider
// returns it: an average power over a sampling interval. The interval length
// arrives as free text (e.g. "PT30M", "30", "PT1H") and is parsed downstream.
type RawReading struct {
	Timestamp    time.Time `json:"timestamp"`
	PowerKW      float64   `json:"powerKW"`
	IntervalCode string    `json:"intervalCode"`
}

// EnergySample is one normalized consumption measurement. Exactly one sample
// exists per distinct raw timestamp after deduplication.
type EnergySample struct {
	Timestamp time.Time `json:"timestamp"`
	// Date is the day component truncated to midnight in the timestamp's
	// location, used as the calendar key for color/weekend/season lookups.
	Date time.Time `json:"date"`
	// Hour is the local clock hour (0-23) the sample starts in.
	Hour      int     `json:"hour"`
	EnergyKWH float64 `json:"energyKWH"`
}

// OffpeakWindow is a clock-hour range during which a meter point is billed at
// the off-peak rate. It may wrap midnight (StartHour > EndHour). EndHour is
// exclusive.
type OffpeakWindow struct {
	StartHour int `json:"startHour"`
	EndHour   int `json:"endHour"`
}

// Contains reports whether the given clock hour falls inside the window.
// A degenerate window (StartHour == EndHour) matches no hours.
func (w OffpeakWindow) Contains(hour int) bool {
	if w.StartHour == w.EndHour {
		return false
	}
	if w.StartHour > w.EndHour {
		// wraps midnight, e.g. 22h-06h
		return hour >= w.StartHour || hour < w.EndHour
	}
	return hour >= w.StartHour && hour < w.EndHour
}

// DefaultOffpeakWindow is the window assumed when a meter point has no usable
// off-peak configuration: 22:00-06:00.
func DefaultOffpeakWindow() OffpeakWindow {
	return OffpeakWindow{StartHour: 22, EndHour: 6}
}

// AnyContains reports whether any of the windows contains the hour.
func AnyContains(windows []OffpeakWindow, hour int) bool {
	for _, w := range windows {
		if w.Contains(hour) {
			return true
		}
	}
	return false
}
