package types

// BucketID names one cost bucket of a plan family. Bucket ids are stable and
// appear in API responses, so renaming one is a breaking change.
type BucketID string

const (
	BucketFlat    BucketID = "flat"
	BucketWeekday BucketID = "weekday"
	BucketWeekend BucketID = "weekend"

	BucketPeak           BucketID = "peak"
	BucketOffpeak        BucketID = "off_peak"
	BucketWeekendOffpeak BucketID = "weekend_off_peak"

	BucketWinterPeak    BucketID = "winter_peak"
	BucketWinterOffpeak BucketID = "winter_off_peak"
	BucketSummerPeak    BucketID = "summer_peak"
	BucketSummerOffpeak BucketID = "summer_off_peak"
	BucketHighDemandDay BucketID = "high_demand_day"

	BucketBluePeak     BucketID = "blue_peak"
	BucketBlueOffpeak  BucketID = "blue_off_peak"
	BucketWhitePeak    BucketID = "white_peak"
	BucketWhiteOffpeak BucketID = "white_off_peak"
	BucketRedPeak      BucketID = "red_peak"
	BucketRedOffpeak   BucketID = "red_off_peak"

	BucketNormalPeak     BucketID = "normal_peak"
	BucketNormalOffpeak  BucketID = "normal_off_peak"
	BucketReducedPeak    BucketID = "reduced_peak"
	BucketReducedOffpeak BucketID = "reduced_off_peak"
)

// BucketTotal is the aggregated energy and cost of one bucket for one plan.
type BucketTotal struct {
	Bucket      BucketID `json:"bucket"`
	EnergyKWH   float64  `json:"energyKWH"`
	EurosPerKWH float64  `json:"eurosPerKWH"`
	CostEuros   float64  `json:"costEuros"`
}

// SimulationResult is the evaluated annual cost of one plan over the
// simulated period. Results are immutable once produced; a new run produces a
// new set.
type SimulationResult struct {
	PlanID     string `json:"planID"`
	PlanName   string `json:"planName"`
	ProviderID string `json:"providerID"`

	SubscriptionCostYearEuros float64       `json:"subscriptionCostYearEuros"`
	EnergyCostEuros           float64       `json:"energyCostEuros"`
	TotalCostEuros            float64       `json:"totalCostEuros"`
	TotalKWH                  float64       `json:"totalKWH"`
	Buckets                   []BucketTotal `json:"buckets"`

	// Rank is 1-based position after sorting by total cost ascending.
	Rank int `json:"rank"`

	// Deltas are filled by the ranker. Percentages are relative to the total
	// cost of the compared-to result.
	DeltaToCheapestEuros  float64 `json:"deltaToCheapestEuros"`
	DeltaToCheapestPct    float64 `json:"deltaToCheapestPct"`
	DeltaToPreviousEuros  float64 `json:"deltaToPreviousEuros"`
	DeltaToReferenceEuros float64 `json:"deltaToReferenceEuros"`
	DeltaToReferencePct   float64 `json:"deltaToReferencePct"`
	// IsReference marks the caller-supplied reference plan (usually the one
	// the user is subscribed to today).
	IsReference bool `json:"isReference,omitempty"`
}
