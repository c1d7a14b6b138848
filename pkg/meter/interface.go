package meter

import (
	"context"
	"time"

	"github.com/tarifscope/tarifscope/pkg/types"
)

// Provider fetches raw metering data and the dynamic-pricing color calendar.
// Implementations may cache; callers must treat returned slices as read-only.
type Provider interface {
	// GetLoadCurve returns the raw power readings for one meter point over
	// the given period. Consecutive fetch windows may overlap, so the result
	// can contain duplicate timestamps; the simulation engine dedups.
	GetLoadCurve(ctx context.Context, meterPointID string, start, end time.Time) ([]types.RawReading, error)

	// GetColorCalendar returns the published day colors covering (part of)
	// the given period. An incomplete calendar is not an error.
	GetColorCalendar(ctx context.Context, start, end time.Time) ([]types.ColorDay, error)
}
