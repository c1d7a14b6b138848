package engine

import (
	"sort"
	"time"

	"github.com/tarifscope/tarifscope/pkg/types"
)

// maxLowImpactDays is how many reduced-tariff days a provider designates per
// year. The grid operator does not publish the actual list, so we approximate
// it from the color calendar (see lowImpactDays).
const maxLowImpactDays = 20

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// isWinter reports whether the date falls in the November-March winter season
// used by seasonal plans. The boundary is contractual, not configurable.
func isWinter(d time.Time) bool {
	switch d.Month() {
	case time.November, time.December, time.January, time.February, time.March:
		return true
	}
	return false
}

// ColorIndex maps a calendar day to its published pricing color. A date
// absent from the index has no established color; classifiers fall back
// explicitly instead of erroring.
type ColorIndex map[time.Time]types.Color

// BuildColorIndex indexes the supplied color days. Last write wins when the
// feed repeats a date.
func BuildColorIndex(days []types.ColorDay) ColorIndex {
	idx := make(ColorIndex, len(days))
	for _, d := range days {
		idx[types.DayKey(d.Date)] = d.Color
	}
	return idx
}

// Lookup returns the color for the day containing t.
func (ci ColorIndex) Lookup(t time.Time) (types.Color, bool) {
	c, ok := ci[types.DayKey(t)]
	return c, ok
}

// coldMonthRank orders winter months coldest first: reduced-tariff days are
// overwhelmingly called on the coldest days, so when we have to guess which
// RED days were designated we take January before February before December
// before November before March.
func coldMonthRank(m time.Month) int {
	switch m {
	case time.January:
		return 0
	case time.February:
		return 1
	case time.December:
		return 2
	case time.November:
		return 3
	case time.March:
		return 4
	}
	return 5
}

// lowImpactDays approximates the provider-designated reduced-tariff days as
// the RED-colored winter weekdays, coldest month first and earliest date
// first within a month, truncated to maxLowImpactDays. This is a heuristic
// stand-in for data the provider does not expose; it is deterministic for a
// fixed color calendar and the chosen days are surfaced to the caller so the
// UI can present them as an approximation.
func lowImpactDays(colors ColorIndex) []time.Time {
	var candidates []time.Time
	for day, color := range colors {
		if color != types.ColorRed {
			continue
		}
		if isWeekend(day) || !isWinter(day) {
			continue
		}
		candidates = append(candidates, day)
	}

	sort.Slice(candidates, func(i, j int) bool {
		ri, rj := coldMonthRank(candidates[i].Month()), coldMonthRank(candidates[j].Month())
		if ri != rj {
			return ri < rj
		}
		return candidates[i].Before(candidates[j])
	})

	if len(candidates) > maxLowImpactDays {
		candidates = candidates[:maxLowImpactDays]
	}
	return candidates
}
