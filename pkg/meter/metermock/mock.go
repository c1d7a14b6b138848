package metermock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/tarifscope/tarifscope/pkg/meter"
	"github.com/tarifscope/tarifscope/pkg/types"
)

type MockProvider struct {
	mock.Mock
}

var _ meter.Provider = (*MockProvider)(nil)

func (m *MockProvider) GetLoadCurve(ctx context.Context, meterPointID string, start, end time.Time) ([]types.RawReading, error) {
	args := m.Called(ctx, meterPointID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.RawReading), args.Error(1)
}

func (m *MockProvider) GetColorCalendar(ctx context.Context, start, end time.Time) ([]types.ColorDay, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ColorDay), args.Error(1)
}
