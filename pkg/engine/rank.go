package engine

import (
	"sort"

	"github.com/tarifscope/tarifscope/pkg/types"
)

// Rank sorts results by total annual cost ascending and fills in the
// comparison deltas. The sort is stable so equal-cost plans keep their input
// order and repeated runs stay byte-identical.
func Rank(results []types.SimulationResult, referencePlanID string) []types.SimulationResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalCostEuros < results[j].TotalCostEuros
	})
	if len(results) == 0 {
		return results
	}

	var reference *types.SimulationResult
	for i := range results {
		if referencePlanID != "" && results[i].PlanID == referencePlanID {
			results[i].IsReference = true
			reference = &results[i]
			break
		}
	}

	cheapest := results[0]
	for i := range results {
		r := &results[i]
		r.Rank = i + 1

		r.DeltaToCheapestEuros = r.TotalCostEuros - cheapest.TotalCostEuros
		if cheapest.TotalCostEuros != 0 {
			r.DeltaToCheapestPct = r.DeltaToCheapestEuros / cheapest.TotalCostEuros * 100
		}

		if i > 0 {
			r.DeltaToPreviousEuros = r.TotalCostEuros - results[i-1].TotalCostEuros
		}

		if reference != nil {
			r.DeltaToReferenceEuros = r.TotalCostEuros - reference.TotalCostEuros
			if reference.TotalCostEuros != 0 {
				r.DeltaToReferencePct = r.DeltaToReferenceEuros / reference.TotalCostEuros * 100
			}
		}
	}
	return results
}
