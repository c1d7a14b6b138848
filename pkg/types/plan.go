package types

import (
	"fmt"
	"time"
)

// PlanKind identifies the pricing family of a plan. The family determines
// which price fields a plan carries and how its samples are bucketed.
type PlanKind string

const (
	PlanFlat         PlanKind = "flat"
	PlanDayNight     PlanKind = "dayNight"
	PlanSeasonal     PlanKind = "seasonal"
	PlanDynamicColor PlanKind = "dynamicColor"
	PlanLowImpactDay PlanKind = "lowImpactDay"
)

// DayNightVariant selects the off-peak rule set for a day/night plan.
type DayNightVariant string

const (
	// DayNightStandard uses the meter point's configured off-peak windows.
	DayNightStandard DayNightVariant = "standard"
	// DayNightWeekendOffpeak bills every weekend hour at the off-peak rate
	// regardless of clock time.
	DayNightWeekendOffpeak DayNightVariant = "weekendOffpeak"
	// DayNightWeekendNight combines all-weekend-off-peak with a narrower
	// weekday-only 23:00-06:00 night window.
	DayNightWeekendNight DayNightVariant = "weekendNight"
)

// FlatPricing is a single-rate plan, optionally split weekday/weekend.
type FlatPricing struct {
	EurosPerKWH float64 `json:"eurosPerKWH"`
	// WeekendEurosPerKWH is optional; when nil all days bill at EurosPerKWH.
	WeekendEurosPerKWH *float64 `json:"weekendEurosPerKWH,omitempty"`
}

// DayNightPricing is a peak/off-peak plan.
type DayNightPricing struct {
	Variant            DayNightVariant `json:"variant"`
	PeakEurosPerKWH    float64         `json:"peakEurosPerKWH"`
	OffpeakEurosPerKWH float64         `json:"offpeakEurosPerKWH"`
	// WeekendOffpeakEurosPerKWH is optional; when nil weekend off-peak energy
	// bills at OffpeakEurosPerKWH.
	WeekendOffpeakEurosPerKWH *float64 `json:"weekendOffpeakEurosPerKWH,omitempty"`
}

// SeasonalPricing has separate peak/off-peak prices for winter and summer and
// an optional high-demand-day surcharge.
type SeasonalPricing struct {
	WinterPeakEurosPerKWH    float64 `json:"winterPeakEurosPerKWH"`
	WinterOffpeakEurosPerKWH float64 `json:"winterOffpeakEurosPerKWH"`
	SummerPeakEurosPerKWH    float64 `json:"summerPeakEurosPerKWH"`
	SummerOffpeakEurosPerKWH float64 `json:"summerOffpeakEurosPerKWH"`
	// HighDemandEurosPerKWH, when set, replaces the seasonal price entirely on
	// RED-colored days.
	HighDemandEurosPerKWH *float64 `json:"highDemandEurosPerKWH,omitempty"`
}

// DynamicColorPricing has one peak and one off-peak price per calendar color.
type DynamicColorPricing struct {
	BluePeakEurosPerKWH     float64 `json:"bluePeakEurosPerKWH"`
	BlueOffpeakEurosPerKWH  float64 `json:"blueOffpeakEurosPerKWH"`
	WhitePeakEurosPerKWH    float64 `json:"whitePeakEurosPerKWH"`
	WhiteOffpeakEurosPerKWH float64 `json:"whiteOffpeakEurosPerKWH"`
	RedPeakEurosPerKWH      float64 `json:"redPeakEurosPerKWH"`
	RedOffpeakEurosPerKWH   float64 `json:"redOffpeakEurosPerKWH"`
}

// LowImpactPricing has two tiers: a normal day and a reduced-tariff day, each
// split peak/off-peak. Which weekdays are reduced-tariff days is derived from
// the color calendar, not configured on the plan.
type LowImpactPricing struct {
	NormalPeakEurosPerKWH     float64 `json:"normalPeakEurosPerKWH"`
	NormalOffpeakEurosPerKWH  float64 `json:"normalOffpeakEurosPerKWH"`
	ReducedPeakEurosPerKWH    float64 `json:"reducedPeakEurosPerKWH"`
	ReducedOffpeakEurosPerKWH float64 `json:"reducedOffpeakEurosPerKWH"`
}

// PricePlan is one supplier offer. Exactly one of the family pointers is set;
// Kind and Validate enforce that so nothing downstream has to guess which
// price fields are populated.
type PricePlan struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"providerID"`
	Name       string    `json:"name"`
	ValidFrom  time.Time `json:"validFrom"`

	MonthlySubscriptionEuros float64 `json:"monthlySubscriptionEuros"`

	// KVAs lists the subscribed-power levels (kVA) the plan is sold for.
	// Empty means the plan is available at any subscribed power.
	KVAs []int `json:"kvas,omitempty"`

	Flat         *FlatPricing         `json:"flat,omitempty"`
	DayNight     *DayNightPricing     `json:"dayNight,omitempty"`
	Seasonal     *SeasonalPricing     `json:"seasonal,omitempty"`
	DynamicColor *DynamicColorPricing `json:"dynamicColor,omitempty"`
	LowImpact    *LowImpactPricing    `json:"lowImpact,omitempty"`
}

// Kind returns the plan family, or "" if no family pricing is set.
func (p *PricePlan) Kind() PlanKind {
	switch {
	case p.Flat != nil:
		return PlanFlat
	case p.DayNight != nil:
		return PlanDayNight
	case p.Seasonal != nil:
		return PlanSeasonal
	case p.DynamicColor != nil:
		return PlanDynamicColor
	case p.LowImpact != nil:
		return PlanLowImpactDay
	}
	return ""
}

// Validate ensures exactly one pricing family is populated.
func (p *PricePlan) Validate() error {
	var set int
	if p.Flat != nil {
		set++
	}
	if p.DayNight != nil {
		set++
	}
	if p.Seasonal != nil {
		set++
	}
	if p.DynamicColor != nil {
		set++
	}
	if p.LowImpact != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("plan %s must have exactly one pricing family, has %d", p.ID, set)
	}
	return nil
}

// SupportsKVA reports whether the plan is sold for the given subscribed power.
func (p *PricePlan) SupportsKVA(kva int) bool {
	if len(p.KVAs) == 0 {
		return true
	}
	for _, k := range p.KVAs {
		if k == kva {
			return true
		}
	}
	return false
}
