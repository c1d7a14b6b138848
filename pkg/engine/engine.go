package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tarifscope/tarifscope/pkg/log"
	"github.com/tarifscope/tarifscope/pkg/types"
)

var (
	// ErrNoSamples means no usable energy samples remained after
	// normalization. Fatal: the caller must distinguish "no data" from a
	// valid empty comparison.
	ErrNoSamples = errors.New("no usable energy samples for the requested period")
	// ErrNoPlans means there was nothing to evaluate.
	ErrNoPlans = errors.New("no price plans to evaluate")
)

// Input is a fully materialized snapshot of everything one simulation needs.
// The engine does no I/O; callers own fetching, caching and cancellation.
type Input struct {
	Readings []types.RawReading
	Colors   []types.ColorDay
	Plans    []types.PricePlan
	// OffpeakConfig is the meter point's raw off-peak description in any
	// accepted shape (string, list, or labeled map). Nil means default.
	OffpeakConfig any
	// ReferencePlanID, when set, marks that plan as the comparison baseline.
	ReferencePlanID string
}

// Diagnostics collects the non-fatal degradations of one run. It replaces any
// notion of process-wide "already logged" state: the de-duplication lives
// here, scoped to a single invocation.
type Diagnostics struct {
	DuplicateReadingsDropped int         `json:"duplicateReadingsDropped"`
	UnparsableIntervals      int         `json:"unparsableIntervals"`
	NegativePowerClamped     int         `json:"negativePowerClamped"`
	OffpeakFallback          bool        `json:"offpeakFallback"`
	UnknownColorDays         int         `json:"unknownColorDays"`
	SkippedPlanIDs           []string    `json:"skippedPlanIDs,omitempty"`
	LowImpactDays            []time.Time `json:"lowImpactDays,omitempty"`

	unknownColorSeen map[time.Time]bool
}

func (d *Diagnostics) noteUnknownColorDay(day time.Time) {
	if d.unknownColorSeen == nil {
		d.unknownColorSeen = make(map[time.Time]bool)
	}
	if d.unknownColorSeen[day] {
		return
	}
	d.unknownColorSeen[day] = true
	d.UnknownColorDays++
}

// Run is the immutable outcome of one simulation invocation.
type Run struct {
	Results     []types.SimulationResult `json:"results"`
	TotalKWH    float64                  `json:"totalKWH"`
	SampleCount int                      `json:"sampleCount"`
	Diagnostics Diagnostics              `json:"diagnostics"`
}

// Simulate evaluates every plan against the normalized consumption history
// and returns the ranked results. It is pure and synchronous: same input,
// same output, to floating-point equality. Malformed individual records
// degrade into diagnostics; only structurally absent input is an error.
func Simulate(ctx context.Context, in Input) (*Run, error) {
	if len(in.Plans) == 0 {
		return nil, ErrNoPlans
	}

	diag := &Diagnostics{}

	samples := Normalize(in.Readings, diag)
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	windows := OffpeakWindowsOrDefault(in.OffpeakConfig, diag)
	colors := BuildColorIndex(in.Colors)
	cls := newClassifier(windows, colors)
	diag.LowImpactDays = lowImpactDays(colors)

	var totalKWH float64
	for _, s := range samples {
		totalKWH += s.EnergyKWH
	}

	results := make([]types.SimulationResult, 0, len(in.Plans))
	for i := range in.Plans {
		plan := &in.Plans[i]
		if err := plan.Validate(); err != nil {
			// Plans are supposed to arrive validated; a bad one degrades the
			// comparison, it doesn't abort the run.
			log.Ctx(ctx).WarnContext(ctx, "skipping invalid plan",
				slog.String("planID", plan.ID), slog.Any("error", err))
			diag.SkippedPlanIDs = append(diag.SkippedPlanIDs, plan.ID)
			continue
		}

		energyByBucket := make(map[types.BucketID]float64)
		for _, s := range samples {
			for _, share := range cls.classify(s, plan, diag) {
				energyByBucket[share.Bucket] += share.EnergyKWH
			}
		}
		results = append(results, aggregate(plan, energyByBucket))
	}
	if len(results) == 0 {
		return nil, ErrNoPlans
	}

	results = Rank(results, in.ReferencePlanID)

	if diag.DuplicateReadingsDropped > 0 {
		log.Ctx(ctx).DebugContext(ctx, "dropped duplicate readings",
			slog.Int("count", diag.DuplicateReadingsDropped))
	}

	return &Run{
		Results:     results,
		TotalKWH:    totalKWH,
		SampleCount: len(samples),
		Diagnostics: *diag,
	}, nil
}
