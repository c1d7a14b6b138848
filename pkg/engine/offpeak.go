package engine

import (
	"regexp"
	"sort"

	"github.com/tarifscope/tarifscope/pkg/types"
)

// Meter data providers describe off-peak hours in whatever shape their
// upstream happens to emit: a single string ("22H30-6H30"), a list of ranges,
// or a map of labels to either. On top of that the strings themselves are
// free text. We normalize all of it here so the classifier only ever sees
// canonical windows.

// offpeakRangeRE matches the first hour-range inside a string. Only the hour
// component of each bound matters; minutes are dropped because windows are
// evaluated at hour granularity.
var offpeakRangeRE = regexp.MustCompile(`(\d{1,2})\s*[hH:](?:\d{2})?\s*-\s*(\d{1,2})`)

// ParseOffpeakWindows extracts clock-hour windows from any accepted
// configuration shape. Malformed entries are skipped, never an error; the
// returned slice is nil when nothing parsed. Windows union: an hour is
// off-peak if any window contains it.
func ParseOffpeakWindows(raw any) []types.OffpeakWindow {
	var windows []types.OffpeakWindow
	for _, s := range collectStrings(raw) {
		if w, ok := parseWindow(s); ok {
			windows = append(windows, w)
		}
	}
	return windows
}

// OffpeakWindowsOrDefault parses the raw configuration and falls back to the
// hard-coded 22:00-06:00 default when nothing usable was supplied.
func OffpeakWindowsOrDefault(raw any, diag *Diagnostics) []types.OffpeakWindow {
	windows := ParseOffpeakWindows(raw)
	if len(windows) == 0 {
		if diag != nil {
			diag.OffpeakFallback = true
		}
		return []types.OffpeakWindow{types.DefaultOffpeakWindow()}
	}
	return windows
}

func parseWindow(s string) (types.OffpeakWindow, bool) {
	m := offpeakRangeRE.FindStringSubmatch(s)
	if m == nil {
		return types.OffpeakWindow{}, false
	}
	start := atoiHour(m[1])
	end := atoiHour(m[2])
	if start < 0 || end < 0 {
		return types.OffpeakWindow{}, false
	}
	return types.OffpeakWindow{StartHour: start, EndHour: end}, true
}

// atoiHour parses a 1-2 digit hour, returning -1 when out of [0,23].
func atoiHour(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	if n > 23 {
		return -1
	}
	return n
}

// collectStrings flattens the accepted configuration shapes into the strings
// they carry. Map entries are visited in sorted key order so parsing is
// deterministic.
func collectStrings(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, collectStrings(item)...)
		}
		return out
	case map[string]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(v))
		for _, k := range keys {
			out = append(out, v[k])
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, collectStrings(v[k])...)
		}
		return out
	}
	return nil
}
