package engine

import (
	"regexp"
	"strconv"

	"github.com/tarifscope/tarifscope/pkg/types"
)

// defaultIntervalMinutes is assumed when a reading's interval code cannot be
// parsed. Half-hourly is by far the most common sampling interval upstream.
const defaultIntervalMinutes = 30

var (
	// ISO-8601 style durations ("PT30M", "PT1H") and bare minute counts
	// ("30", "60 min") both appear in real feeds.
	intervalHoursRE   = regexp.MustCompile(`(?i)PT(\d+)H`)
	intervalMinutesRE = regexp.MustCompile(`(\d+)`)
)

// parseIntervalMinutes extracts the sampling interval length in minutes from
// the provider's free-text interval code.
func parseIntervalMinutes(code string) (int, bool) {
	if m := intervalHoursRE.FindStringSubmatch(code); m != nil {
		h, err := strconv.Atoi(m[1])
		if err != nil || h <= 0 {
			return 0, false
		}
		return h * 60, true
	}
	if m := intervalMinutesRE.FindStringSubmatch(code); m != nil {
		min, err := strconv.Atoi(m[1])
		if err != nil || min <= 0 {
			return 0, false
		}
		return min, true
	}
	return 0, false
}

// Normalize converts raw interval readings into energy samples and drops
// duplicate timestamps, keeping the first-encountered occurrence. Upstream
// unions overlapping multi-week fetch windows, so duplicates are expected and
// are counted in the diagnostics rather than treated as errors.
func Normalize(readings []types.RawReading, diag *Diagnostics) []types.EnergySample {
	samples := make([]types.EnergySample, 0, len(readings))
	seen := make(map[int64]struct{}, len(readings))

	for _, r := range readings {
		key := r.Timestamp.UnixNano()
		if _, dup := seen[key]; dup {
			if diag != nil {
				diag.DuplicateReadingsDropped++
			}
			continue
		}
		seen[key] = struct{}{}

		minutes, ok := parseIntervalMinutes(r.IntervalCode)
		if !ok {
			minutes = defaultIntervalMinutes
			if diag != nil {
				diag.UnparsableIntervals++
			}
		}

		power := r.PowerKW
		if power < 0 {
			// Injection (solar export) can show up as negative power on some
			// meters; consumption simulation only bills energy drawn.
			power = 0
			if diag != nil {
				diag.NegativePowerClamped++
			}
		}

		samples = append(samples, types.EnergySample{
			Timestamp: r.Timestamp,
			Date:      types.DayKey(r.Timestamp),
			Hour:      r.Timestamp.Hour(),
			EnergyKWH: power * float64(minutes) / 60.0,
		})
	}

	return samples
}
