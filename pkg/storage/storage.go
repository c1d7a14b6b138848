package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/tarifscope/tarifscope/pkg/types"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrMeterPointNotFound = errors.New("meter point not found")
	ErrPlanNotFound       = errors.New("plan not found")
)

// Database defines the interface for persisting the plan catalog, cached
// meter data, and per-meter-point settings.
type Database interface {
	// Plan catalog
	GetPlan(ctx context.Context, planID string) (types.PricePlan, error)
	ListPlans(ctx context.Context) ([]types.PricePlan, error)
	UpsertPlan(ctx context.Context, plan types.PricePlan) error
	DeletePlan(ctx context.Context, planID string) error

	// Cached meter data. Readings and color days fetched from the data hub
	// are written back so repeat simulations don't re-fetch.
	GetCachedReadings(ctx context.Context, meterPointID string, start, end time.Time) ([]types.RawReading, error)
	UpsertReadings(ctx context.Context, meterPointID string, readings []types.RawReading) error
	GetColorDays(ctx context.Context, start, end time.Time) ([]types.ColorDay, error)
	UpsertColorDays(ctx context.Context, days []types.ColorDay) error

	// Settings
	GetSettings(ctx context.Context, meterPointID string) (types.Settings, int, error)
	SetSettings(ctx context.Context, meterPointID string, settings types.Settings, version int) error

	// Meter points & users
	GetMeterPoint(ctx context.Context, meterPointID string) (types.MeterPoint, error)
	ListMeterPoints(ctx context.Context, userID string) ([]types.MeterPoint, error)
	UpsertMeterPoint(ctx context.Context, mp types.MeterPoint) error
	GetUser(ctx context.Context, userID string) (types.User, error)
	CreateUser(ctx context.Context, user types.User) error
	UpdateUser(ctx context.Context, user types.User) error

	// Lifecycle
	Close() error
}

// Configured sets up the storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
