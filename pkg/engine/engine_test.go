package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarifscope/tarifscope/pkg/types"
)

func readingAt(d time.Time, hour int, powerKW float64) types.RawReading {
	return types.RawReading{
		Timestamp:    time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, d.Location()),
		PowerKW:      powerKW,
		IntervalCode: "PT1H",
	}
}

func TestSimulateDayNightScenario(t *testing.T) {
	// default off-peak window, 4 samples, day/night plan with no weekend
	// split: off-peak (Mon 02:00 2kWh + Sat 02:00 1kWh) at 0.15 plus peak
	// (Mon 14:00 1kWh + Sat 14:00 1kWh) at 0.20 = 0.85
	in := Input{
		Readings: []types.RawReading{
			readingAt(monday, 2, 2),
			readingAt(monday, 14, 1),
			readingAt(saturday, 2, 1),
			readingAt(saturday, 14, 1),
		},
		Plans: []types.PricePlan{{
			ID:                       "dn",
			MonthlySubscriptionEuros: 10,
			DayNight: &types.DayNightPricing{
				Variant:            types.DayNightStandard,
				PeakEurosPerKWH:    0.20,
				OffpeakEurosPerKWH: 0.15,
			},
		}},
	}

	run, err := Simulate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, run.Results, 1)

	r := run.Results[0]
	assert.InDelta(t, 0.85, r.EnergyCostEuros, 1e-9)
	assert.InDelta(t, 120.0, r.SubscriptionCostYearEuros, 1e-9)
	assert.InDelta(t, 120.85, r.TotalCostEuros, 1e-9)
	assert.InDelta(t, 5.0, r.TotalKWH, 1e-9)
	assert.True(t, run.Diagnostics.OffpeakFallback)
}

func TestSimulateSeasonalRedDayScenario(t *testing.T) {
	// one 1kWh sample on a RED January weekday at a peak clock hour: the
	// surcharge price applies regardless of hour and nothing lands in the
	// winter buckets
	in := Input{
		Readings: []types.RawReading{readingAt(monday, 14, 1)},
		Colors:   []types.ColorDay{{Date: monday, Color: types.ColorRed}},
		Plans: []types.PricePlan{{
			ID: "seasonal-hd",
			Seasonal: &types.SeasonalPricing{
				WinterPeakEurosPerKWH:    0.25,
				WinterOffpeakEurosPerKWH: 0.18,
				SummerPeakEurosPerKWH:    0.15,
				SummerOffpeakEurosPerKWH: 0.12,
				HighDemandEurosPerKWH:    fptr(1.50),
			},
		}},
	}

	run, err := Simulate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, run.Results, 1)

	r := run.Results[0]
	assert.InDelta(t, 1.50, r.EnergyCostEuros, 1e-9)
	require.Len(t, r.Buckets, 1)
	assert.Equal(t, types.BucketHighDemandDay, r.Buckets[0].Bucket)
	assert.InDelta(t, 1.0, r.Buckets[0].EnergyKWH, 1e-9)
}

func allFamiliesPlans() []types.PricePlan {
	return []types.PricePlan{
		{ID: "flat", MonthlySubscriptionEuros: 9, Flat: &types.FlatPricing{EurosPerKWH: 0.20, WeekendEurosPerKWH: fptr(0.17)}},
		{ID: "dn", MonthlySubscriptionEuros: 11, DayNight: &types.DayNightPricing{Variant: types.DayNightWeekendOffpeak, PeakEurosPerKWH: 0.21, OffpeakEurosPerKWH: 0.15, WeekendOffpeakEurosPerKWH: fptr(0.13)}},
		{ID: "seasonal", MonthlySubscriptionEuros: 12, Name: "Saisons Flex", Seasonal: &types.SeasonalPricing{WinterPeakEurosPerKWH: 0.25, WinterOffpeakEurosPerKWH: 0.18, SummerPeakEurosPerKWH: 0.15, SummerOffpeakEurosPerKWH: 0.12, HighDemandEurosPerKWH: fptr(1.10)}},
		{ID: "dyn", MonthlySubscriptionEuros: 10, DynamicColor: &types.DynamicColorPricing{BluePeakEurosPerKWH: 0.16, BlueOffpeakEurosPerKWH: 0.13, WhitePeakEurosPerKWH: 0.19, WhiteOffpeakEurosPerKWH: 0.15, RedPeakEurosPerKWH: 0.76, RedOffpeakEurosPerKWH: 0.17}},
		{ID: "li", MonthlySubscriptionEuros: 13, LowImpact: &types.LowImpactPricing{NormalPeakEurosPerKWH: 0.14, NormalOffpeakEurosPerKWH: 0.11, ReducedPeakEurosPerKWH: 0.60, ReducedOffpeakEurosPerKWH: 0.32}},
	}
}

func yearOfReadings() []types.RawReading {
	var readings []types.RawReading
	// one reading every 3 hours for a year, varying power
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 365*8; i++ {
		ts := start.Add(time.Duration(i) * 3 * time.Hour)
		readings = append(readings, types.RawReading{
			Timestamp:    ts,
			PowerKW:      0.5 + float64(i%7)*0.3,
			IntervalCode: "PT30M",
		})
	}
	return readings
}

func sparseColorCalendar() []types.ColorDay {
	var days []types.ColorDay
	// reds in the coldest weeks, whites around them, blues elsewhere; the
	// calendar deliberately stops in October so some days have no color
	for d := day(2024, time.January, 1); d.Month() != time.November; d = d.AddDate(0, 0, 1) {
		color := types.ColorBlue
		switch {
		case d.Month() == time.January && d.Day() <= 14:
			color = types.ColorRed
		case isWinter(d):
			color = types.ColorWhite
		}
		days = append(days, types.ColorDay{Date: d, Color: color})
	}
	return days
}

func TestSimulateDeterminism(t *testing.T) {
	in := Input{
		Readings:        yearOfReadings(),
		Colors:          sparseColorCalendar(),
		Plans:           allFamiliesPlans(),
		OffpeakConfig:   map[string]any{"hiver": "22h30-06h30", "été": "02h00-07h00"},
		ReferencePlanID: "dn",
	}

	run1, err := Simulate(context.Background(), in)
	require.NoError(t, err)
	run2, err := Simulate(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, run1, run2)
}

func TestSimulateBucketCompleteness(t *testing.T) {
	in := Input{
		Readings: yearOfReadings(),
		Colors:   sparseColorCalendar(),
		Plans:    allFamiliesPlans(),
	}

	run, err := Simulate(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, run.Results, len(in.Plans))

	for _, r := range run.Results {
		var sum float64
		for _, b := range r.Buckets {
			sum += b.EnergyKWH
		}
		// no sample dropped or double-counted by any classifier
		assert.InDelta(t, run.TotalKWH, sum, 1e-6, "plan %s", r.PlanID)
		assert.InDelta(t, run.TotalKWH, r.TotalKWH, 1e-6, "plan %s", r.PlanID)
	}
}

func TestSimulateRanking(t *testing.T) {
	in := Input{
		Readings:        yearOfReadings(),
		Colors:          sparseColorCalendar(),
		Plans:           allFamiliesPlans(),
		ReferencePlanID: "flat",
	}

	run, err := Simulate(context.Background(), in)
	require.NoError(t, err)
	results := run.Results

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].TotalCostEuros, results[i].TotalCostEuros)
		assert.InDelta(t, results[i].TotalCostEuros-results[i-1].TotalCostEuros, results[i].DeltaToPreviousEuros, 1e-9)
	}

	cheapest := results[0]
	assert.Zero(t, cheapest.DeltaToCheapestEuros)
	assert.Equal(t, 1, cheapest.Rank)

	var ref *types.SimulationResult
	for i := range results {
		if results[i].PlanID == "flat" {
			ref = &results[i]
		}
	}
	require.NotNil(t, ref)
	assert.True(t, ref.IsReference)
	assert.Zero(t, ref.DeltaToReferenceEuros)

	for _, r := range results {
		assert.InDelta(t, r.TotalCostEuros-cheapest.TotalCostEuros, r.DeltaToCheapestEuros, 1e-9)
		assert.InDelta(t, r.TotalCostEuros-ref.TotalCostEuros, r.DeltaToReferenceEuros, 1e-9)
	}
}

func TestRankStableTies(t *testing.T) {
	results := []types.SimulationResult{
		{PlanID: "a", TotalCostEuros: 100},
		{PlanID: "b", TotalCostEuros: 100},
		{PlanID: "c", TotalCostEuros: 50},
	}
	ranked := Rank(results, "")
	require.Len(t, ranked, 3)
	assert.Equal(t, "c", ranked[0].PlanID)
	// equal costs keep input order
	assert.Equal(t, "a", ranked[1].PlanID)
	assert.Equal(t, "b", ranked[2].PlanID)
	assert.InDelta(t, 100.0, ranked[1].DeltaToCheapestPct, 1e-9)
}

func TestSimulateFatalErrors(t *testing.T) {
	t.Run("No Plans", func(t *testing.T) {
		_, err := Simulate(context.Background(), Input{
			Readings: []types.RawReading{readingAt(monday, 2, 1)},
		})
		assert.ErrorIs(t, err, ErrNoPlans)
	})

	t.Run("No Readings", func(t *testing.T) {
		_, err := Simulate(context.Background(), Input{
			Plans: allFamiliesPlans(),
		})
		assert.ErrorIs(t, err, ErrNoSamples)
	})

	t.Run("All Plans Invalid", func(t *testing.T) {
		_, err := Simulate(context.Background(), Input{
			Readings: []types.RawReading{readingAt(monday, 2, 1)},
			Plans:    []types.PricePlan{{ID: "empty"}},
		})
		assert.ErrorIs(t, err, ErrNoPlans)
	})
}

func TestSimulateDuplicateReadings(t *testing.T) {
	in := Input{
		Readings: []types.RawReading{
			readingAt(monday, 2, 2),
			readingAt(monday, 2, 9), // overlapping fetch window duplicate
		},
		Plans: []types.PricePlan{{ID: "flat", Flat: &types.FlatPricing{EurosPerKWH: 0.10}}},
	}

	run, err := Simulate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, run.SampleCount)
	assert.Equal(t, 1, run.Diagnostics.DuplicateReadingsDropped)
	// the first reading's 2kWh decides the cost
	assert.InDelta(t, 0.20, run.Results[0].EnergyCostEuros, 1e-9)
}
