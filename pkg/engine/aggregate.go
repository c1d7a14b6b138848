package engine

import (
	"sort"

	"github.com/tarifscope/tarifscope/pkg/types"
)

const monthsPerYear = 12

// bucketPrice resolves the unit price for a bucket under a plan, applying the
// documented fallbacks: an absent weekend-specific price falls back to the
// base price for the same axis. The classifier guarantees it only emits
// buckets the plan family can price.
func bucketPrice(plan *types.PricePlan, bucket types.BucketID) float64 {
	switch plan.Kind() {
	case types.PlanFlat:
		p := plan.Flat
		if bucket == types.BucketWeekend && p.WeekendEurosPerKWH != nil {
			return *p.WeekendEurosPerKWH
		}
		return p.EurosPerKWH
	case types.PlanDayNight:
		p := plan.DayNight
		switch bucket {
		case types.BucketPeak:
			return p.PeakEurosPerKWH
		case types.BucketWeekendOffpeak:
			if p.WeekendOffpeakEurosPerKWH != nil {
				return *p.WeekendOffpeakEurosPerKWH
			}
			return p.OffpeakEurosPerKWH
		default:
			return p.OffpeakEurosPerKWH
		}
	case types.PlanSeasonal:
		p := plan.Seasonal
		switch bucket {
		case types.BucketWinterPeak:
			return p.WinterPeakEurosPerKWH
		case types.BucketWinterOffpeak:
			return p.WinterOffpeakEurosPerKWH
		case types.BucketSummerPeak:
			return p.SummerPeakEurosPerKWH
		case types.BucketSummerOffpeak:
			return p.SummerOffpeakEurosPerKWH
		case types.BucketHighDemandDay:
			if p.HighDemandEurosPerKWH != nil {
				return *p.HighDemandEurosPerKWH
			}
			return p.WinterPeakEurosPerKWH
		}
	case types.PlanDynamicColor:
		p := plan.DynamicColor
		switch bucket {
		case types.BucketBluePeak:
			return p.BluePeakEurosPerKWH
		case types.BucketBlueOffpeak:
			return p.BlueOffpeakEurosPerKWH
		case types.BucketWhitePeak:
			return p.WhitePeakEurosPerKWH
		case types.BucketWhiteOffpeak:
			return p.WhiteOffpeakEurosPerKWH
		case types.BucketRedPeak:
			return p.RedPeakEurosPerKWH
		case types.BucketRedOffpeak:
			return p.RedOffpeakEurosPerKWH
		}
	case types.PlanLowImpactDay:
		p := plan.LowImpact
		switch bucket {
		case types.BucketNormalPeak:
			return p.NormalPeakEurosPerKWH
		case types.BucketNormalOffpeak:
			return p.NormalOffpeakEurosPerKWH
		case types.BucketReducedPeak:
			return p.ReducedPeakEurosPerKWH
		case types.BucketReducedOffpeak:
			return p.ReducedOffpeakEurosPerKWH
		}
	}
	return 0
}

// aggregate sums classified energy per bucket, prices each bucket and adds
// the yearly subscription. Sums are never re-rounded between steps; rounding
// is the presentation layer's job.
func aggregate(plan *types.PricePlan, energyByBucket map[types.BucketID]float64) types.SimulationResult {
	buckets := make([]types.BucketTotal, 0, len(energyByBucket))
	var energyCost, totalKWH float64

	ids := make([]types.BucketID, 0, len(energyByBucket))
	for id := range energyByBucket {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		kwh := energyByBucket[id]
		price := bucketPrice(plan, id)
		cost := kwh * price
		buckets = append(buckets, types.BucketTotal{
			Bucket:      id,
			EnergyKWH:   kwh,
			EurosPerKWH: price,
			CostEuros:   cost,
		})
		energyCost += cost
		totalKWH += kwh
	}

	subscription := plan.MonthlySubscriptionEuros * monthsPerYear
	return types.SimulationResult{
		PlanID:                    plan.ID,
		PlanName:                  plan.Name,
		ProviderID:                plan.ProviderID,
		SubscriptionCostYearEuros: subscription,
		EnergyCostEuros:           energyCost,
		TotalCostEuros:            subscription + energyCost,
		TotalKWH:                  totalKWH,
		Buckets:                   buckets,
	}
}
