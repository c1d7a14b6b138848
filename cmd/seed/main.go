package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/tarifscope/tarifscope/pkg/log"
	"github.com/tarifscope/tarifscope/pkg/storage"
	"github.com/tarifscope/tarifscope/pkg/types"
)

func fptr(f float64) *float64 { return &f }

// allKVAs is the standard residential subscription ladder.
var allKVAs = []int{3, 6, 9, 12, 15, 18, 24, 30, 36}

func seedPlans() []types.PricePlan {
	validFrom := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	return []types.PricePlan{
		{
			ID:                       "volta-base",
			ProviderID:               "volta",
			Name:                     "Volta Base",
			ValidFrom:                validFrom,
			MonthlySubscriptionEuros: 12.60,
			KVAs:                     allKVAs,
			Flat:                     &types.FlatPricing{EurosPerKWH: 0.2516},
		},
		{
			ID:                       "volta-daynight",
			ProviderID:               "volta",
			Name:                     "Volta Heures Creuses",
			ValidFrom:                validFrom,
			MonthlySubscriptionEuros: 13.28,
			KVAs:                     allKVAs[1:],
			DayNight: &types.DayNightPricing{
				Variant:            types.DayNightStandard,
				PeakEurosPerKWH:    0.27,
				OffpeakEurosPerKWH: 0.2068,
			},
		},
		{
			ID:                       "brio-weekend",
			ProviderID:               "brio",
			Name:                     "Brio Week-end",
			ValidFrom:                validFrom,
			MonthlySubscriptionEuros: 13.10,
			KVAs:                     allKVAs[1:],
			DayNight: &types.DayNightPricing{
				Variant:                   types.DayNightWeekendOffpeak,
				PeakEurosPerKWH:           0.2648,
				OffpeakEurosPerKWH:        0.1895,
				WeekendOffpeakEurosPerKWH: fptr(0.1719),
			},
		},
		{
			ID:                       "brio-weekend-nuit",
			ProviderID:               "brio",
			Name:                     "Brio Week-end + Nuit",
			ValidFrom:                validFrom,
			MonthlySubscriptionEuros: 13.10,
			KVAs:                     allKVAs[1:],
			DayNight: &types.DayNightPricing{
				Variant:                   types.DayNightWeekendNight,
				PeakEurosPerKWH:           0.2711,
				OffpeakEurosPerKWH:        0.1792,
				WeekendOffpeakEurosPerKWH: fptr(0.1792),
			},
		},
		{
			ID:                       "volta-tempo",
			ProviderID:               "volta",
			Name:                     "Volta Tempo",
			ValidFrom:                validFrom,
			MonthlySubscriptionEuros: 12.96,
			KVAs:                     allKVAs[1:],
			DynamicColor: &types.DynamicColorPricing{
				BluePeakEurosPerKWH:     0.1609,
				BlueOffpeakEurosPerKWH:  0.1296,
				WhitePeakEurosPerKWH:    0.1894,
				WhiteOffpeakEurosPerKWH: 0.1486,
				RedPeakEurosPerKWH:      0.7562,
				RedOffpeakEurosPerKWH:   0.1568,
			},
		},
		{
			ID:                       "alterna-saisons",
			ProviderID:               "alterna",
			Name:                     "Alterna Saisons",
			ValidFrom:                validFrom,
			MonthlySubscriptionEuros: 13.40,
			KVAs:                     allKVAs[1:],
			Seasonal: &types.SeasonalPricing{
				WinterPeakEurosPerKWH:    0.1842,
				WinterOffpeakEurosPerKWH: 0.1403,
				SummerPeakEurosPerKWH:    0.1317,
				SummerOffpeakEurosPerKWH: 0.1042,
				HighDemandEurosPerKWH:    fptr(0.7514),
			},
		},
		{
			ID:                       "alterna-flex",
			ProviderID:               "alterna",
			Name:                     "Alterna Flex",
			ValidFrom:                validFrom,
			MonthlySubscriptionEuros: 13.40,
			KVAs:                     allKVAs[1:],
			Seasonal: &types.SeasonalPricing{
				WinterPeakEurosPerKWH:    0.1795,
				WinterOffpeakEurosPerKWH: 0.1361,
				SummerPeakEurosPerKWH:    0.1284,
				SummerOffpeakEurosPerKWH: 0.1016,
			},
		},
		{
			ID:                       "volta-zen",
			ProviderID:               "volta",
			Name:                     "Volta Zen",
			ValidFrom:                validFrom,
			MonthlySubscriptionEuros: 13.05,
			KVAs:                     allKVAs[1:],
			LowImpact: &types.LowImpactPricing{
				NormalPeakEurosPerKWH:     0.1609,
				NormalOffpeakEurosPerKWH:  0.1296,
				ReducedPeakEurosPerKWH:    0.6712,
				ReducedOffpeakEurosPerKWH: 0.1568,
			},
		},
	}
}

// seedColorCalendar produces one winter of calendar colors: RED only on
// November-March weekdays, the odds weighted toward the coldest months,
// WHITE scattered through the rest of the year.
func seedColorCalendar(rng *rand.Rand, start, end time.Time) []types.ColorDay {
	var days []types.ColorDay
	redsLeft := 22
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		color := types.ColorBlue
		weekday := d.Weekday() != time.Saturday && d.Weekday() != time.Sunday
		winter := d.Month() >= time.November || d.Month() <= time.March
		if winter && weekday && redsLeft > 0 {
			odds := 0.08
			switch d.Month() {
			case time.January, time.February:
				odds = 0.25
			case time.December:
				odds = 0.18
			}
			if rng.Float64() < odds {
				color = types.ColorRed
				redsLeft--
			}
		}
		if color == types.ColorBlue && rng.Float64() < 0.12 {
			color = types.ColorWhite
		}
		days = append(days, types.ColorDay{Date: d, Color: color})
	}
	return days
}

func main() {
	os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	s := storage.Configured()
	lflag.Configure()

	ctx := context.Background()

	log.Ctx(ctx).InfoContext(ctx, "seeding mock data")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, plan := range seedPlans() {
		if err := s.UpsertPlan(ctx, plan); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed plan", "planID", plan.ID, "error", err)
			os.Exit(1)
		}
		fmt.Printf("Seeded plan %s (%s)\n", plan.ID, plan.Kind())
	}

	now := time.Now().UTC()
	start := time.Date(now.Year()-1, time.November, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(now.Year(), time.April, 1, 0, 0, 0, 0, time.UTC)
	colors := seedColorCalendar(rng, start, end)
	if err := s.UpsertColorDays(ctx, colors); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed color calendar", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded %d color days (%s to %s)\n", len(colors),
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	// a demo user with one consented meter point, subscribed to the flat plan
	user := types.User{ID: "demo", Email: "demo@example.com", MeterPointIDs: []string{"14000000000001"}}
	if err := s.UpdateUser(ctx, user); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed user", "error", err)
		os.Exit(1)
	}
	if err := s.UpsertMeterPoint(ctx, types.MeterPoint{
		ID:     "14000000000001",
		UserID: user.ID,
		Label:  "Home",
	}); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed meter point", "error", err)
		os.Exit(1)
	}
	if err := s.SetSettings(ctx, "14000000000001", types.Settings{
		SubscribedKVA:    9,
		SubscribedPlanID: "volta-base",
		OffpeakHours:     "22h30-06h30",
	}, 1); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed settings", "error", err)
		os.Exit(1)
	}
	fmt.Println("Seeded demo user, meter point and settings")

	log.Ctx(ctx).InfoContext(ctx, "seeded mock data successfully")
}
