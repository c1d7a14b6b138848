package engine

import (
	"regexp"
	"time"

	"github.com/tarifscope/tarifscope/pkg/types"
)

// BucketShare assigns part of a sample's energy to one bucket. Classification
// almost always yields a single share; the only exception is the unknown-color
// fallback of dynamic-color plans, which splits a sample evenly.
type BucketShare struct {
	Bucket    types.BucketID
	EnergyKWH float64
}

// dynamicColorWindow is the fixed peak/off-peak boundary for dynamic-color
// plans. These plans contractually ignore the meter point's configured
// windows and always use 22:00-06:00.
var dynamicColorWindow = types.OffpeakWindow{StartHour: 22, EndHour: 6}

// weekendNightWindow is the weekday night window of the hybrid day/night
// variant that also treats all weekend hours as off-peak.
var weekendNightWindow = types.OffpeakWindow{StartHour: 23, EndHour: 6}

// seasonalFixedWindowsRE matches provider plans whose seasonal off-peak hours
// are fixed by the contract instead of the meter point's configured windows.
var seasonalFixedWindowsRE = regexp.MustCompile(`(?i)\bflex\b`)

// classifier assigns samples to cost buckets for every plan family. It is
// stateless across samples; the low-impact day set is derived once from the
// color calendar because it depends only on the calendar, not on samples.
type classifier struct {
	windows []types.OffpeakWindow
	colors  ColorIndex
	lowDays map[time.Time]bool
}

func newClassifier(windows []types.OffpeakWindow, colors ColorIndex) *classifier {
	days := lowImpactDays(colors)
	set := make(map[time.Time]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return &classifier{windows: windows, colors: colors, lowDays: set}
}

// classify returns the bucket share(s) for one sample under one plan. The
// shares always sum to the sample's full energy.
func (c *classifier) classify(s types.EnergySample, plan *types.PricePlan, diag *Diagnostics) []BucketShare {
	switch plan.Kind() {
	case types.PlanFlat:
		return c.classifyFlat(s, plan.Flat)
	case types.PlanDayNight:
		return c.classifyDayNight(s, plan.DayNight)
	case types.PlanSeasonal:
		return c.classifySeasonal(s, plan)
	case types.PlanDynamicColor:
		return c.classifyDynamicColor(s, diag)
	case types.PlanLowImpactDay:
		return c.classifyLowImpact(s)
	}
	return nil
}

func (c *classifier) classifyFlat(s types.EnergySample, pricing *types.FlatPricing) []BucketShare {
	if pricing.WeekendEurosPerKWH == nil {
		return []BucketShare{{Bucket: types.BucketFlat, EnergyKWH: s.EnergyKWH}}
	}
	if isWeekend(s.Date) {
		return []BucketShare{{Bucket: types.BucketWeekend, EnergyKWH: s.EnergyKWH}}
	}
	return []BucketShare{{Bucket: types.BucketWeekday, EnergyKWH: s.EnergyKWH}}
}

func (c *classifier) classifyDayNight(s types.EnergySample, pricing *types.DayNightPricing) []BucketShare {
	one := func(b types.BucketID) []BucketShare {
		return []BucketShare{{Bucket: b, EnergyKWH: s.EnergyKWH}}
	}

	weekendOffpeakBucket := types.BucketOffpeak
	if pricing.WeekendOffpeakEurosPerKWH != nil {
		weekendOffpeakBucket = types.BucketWeekendOffpeak
	}

	switch pricing.Variant {
	case types.DayNightWeekendOffpeak:
		if isWeekend(s.Date) {
			return one(weekendOffpeakBucket)
		}
		if types.AnyContains(c.windows, s.Hour) {
			return one(types.BucketOffpeak)
		}
		return one(types.BucketPeak)
	case types.DayNightWeekendNight:
		// Hybrid sub-type: all weekend hours are off-peak, weekday nights use
		// the fixed narrow window instead of the configured one.
		if isWeekend(s.Date) {
			return one(weekendOffpeakBucket)
		}
		if weekendNightWindow.Contains(s.Hour) {
			return one(types.BucketOffpeak)
		}
		return one(types.BucketPeak)
	default:
		if types.AnyContains(c.windows, s.Hour) {
			return one(types.BucketOffpeak)
		}
		return one(types.BucketPeak)
	}
}

func (c *classifier) classifySeasonal(s types.EnergySample, plan *types.PricePlan) []BucketShare {
	pricing := plan.Seasonal

	// A RED calendar day overrides the seasonal buckets entirely, but only
	// when the plan actually prices high-demand days.
	if pricing.HighDemandEurosPerKWH != nil {
		if color, ok := c.colors.Lookup(s.Date); ok && color == types.ColorRed {
			return []BucketShare{{Bucket: types.BucketHighDemandDay, EnergyKWH: s.EnergyKWH}}
		}
	}

	winter := isWinter(s.Date)
	var offpeak bool
	if seasonalFixedWindowsRE.MatchString(plan.Name) {
		offpeak = c.seasonalFixedOffpeak(s, winter)
	} else {
		offpeak = types.AnyContains(c.windows, s.Hour)
	}

	var bucket types.BucketID
	switch {
	case winter && offpeak:
		bucket = types.BucketWinterOffpeak
	case winter:
		bucket = types.BucketWinterPeak
	case offpeak:
		bucket = types.BucketSummerOffpeak
	default:
		bucket = types.BucketSummerPeak
	}
	return []BucketShare{{Bucket: bucket, EnergyKWH: s.EnergyKWH}}
}

// seasonalFixedOffpeak implements the contractual windows of "flex" style
// plans: all weekend hours off-peak; winter weekdays 00:00-07:00 and
// 13:00-16:00; summer weekdays 11:00-17:00. These take precedence over the
// meter point's configured windows.
func (c *classifier) seasonalFixedOffpeak(s types.EnergySample, winter bool) bool {
	if isWeekend(s.Date) {
		return true
	}
	if winter {
		return s.Hour < 7 || (s.Hour >= 13 && s.Hour < 16)
	}
	return s.Hour >= 11 && s.Hour < 17
}

func (c *classifier) classifyDynamicColor(s types.EnergySample, diag *Diagnostics) []BucketShare {
	offpeak := dynamicColorWindow.Contains(s.Hour)

	color, ok := c.colors.Lookup(s.Date)
	if !ok {
		// No established color for this day: assume BLUE but split the energy
		// evenly across peak and off-peak since we cannot trust the clock
		// placement either. Explicit fallback, not a classification error.
		if diag != nil {
			diag.noteUnknownColorDay(s.Date)
		}
		return []BucketShare{
			{Bucket: types.BucketBluePeak, EnergyKWH: s.EnergyKWH / 2},
			{Bucket: types.BucketBlueOffpeak, EnergyKWH: s.EnergyKWH / 2},
		}
	}

	var bucket types.BucketID
	switch color {
	case types.ColorWhite:
		bucket = types.BucketWhitePeak
		if offpeak {
			bucket = types.BucketWhiteOffpeak
		}
	case types.ColorRed:
		bucket = types.BucketRedPeak
		if offpeak {
			bucket = types.BucketRedOffpeak
		}
	default:
		bucket = types.BucketBluePeak
		if offpeak {
			bucket = types.BucketBlueOffpeak
		}
	}
	return []BucketShare{{Bucket: bucket, EnergyKWH: s.EnergyKWH}}
}

func (c *classifier) classifyLowImpact(s types.EnergySample) []BucketShare {
	offpeak := types.AnyContains(c.windows, s.Hour)

	reduced := !isWeekend(s.Date) && c.lowDays[s.Date]

	var bucket types.BucketID
	switch {
	case reduced && offpeak:
		bucket = types.BucketReducedOffpeak
	case reduced:
		bucket = types.BucketReducedPeak
	case offpeak:
		bucket = types.BucketNormalOffpeak
	default:
		bucket = types.BucketNormalPeak
	}
	return []BucketShare{{Bucket: bucket, EnergyKWH: s.EnergyKWH}}
}
