package storagemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/tarifscope/tarifscope/pkg/storage"
	"github.com/tarifscope/tarifscope/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetPlan(ctx context.Context, planID string) (types.PricePlan, error) {
	args := m.Called(ctx, planID)
	return args.Get(0).(types.PricePlan), args.Error(1)
}

func (m *MockDatabase) ListPlans(ctx context.Context) ([]types.PricePlan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.PricePlan), args.Error(1)
}

func (m *MockDatabase) UpsertPlan(ctx context.Context, plan types.PricePlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockDatabase) DeletePlan(ctx context.Context, planID string) error {
	args := m.Called(ctx, planID)
	return args.Error(0)
}

func (m *MockDatabase) GetCachedReadings(ctx context.Context, meterPointID string, start, end time.Time) ([]types.RawReading, error) {
	args := m.Called(ctx, meterPointID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.RawReading), args.Error(1)
}

func (m *MockDatabase) UpsertReadings(ctx context.Context, meterPointID string, readings []types.RawReading) error {
	args := m.Called(ctx, meterPointID, readings)
	return args.Error(0)
}

func (m *MockDatabase) GetColorDays(ctx context.Context, start, end time.Time) ([]types.ColorDay, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ColorDay), args.Error(1)
}

func (m *MockDatabase) UpsertColorDays(ctx context.Context, days []types.ColorDay) error {
	args := m.Called(ctx, days)
	return args.Error(0)
}

func (m *MockDatabase) GetSettings(ctx context.Context, meterPointID string) (types.Settings, int, error) {
	args := m.Called(ctx, meterPointID)
	return args.Get(0).(types.Settings), args.Int(1), args.Error(2)
}

func (m *MockDatabase) SetSettings(ctx context.Context, meterPointID string, settings types.Settings, version int) error {
	args := m.Called(ctx, meterPointID, settings, version)
	return args.Error(0)
}

func (m *MockDatabase) GetMeterPoint(ctx context.Context, meterPointID string) (types.MeterPoint, error) {
	args := m.Called(ctx, meterPointID)
	return args.Get(0).(types.MeterPoint), args.Error(1)
}

func (m *MockDatabase) ListMeterPoints(ctx context.Context, userID string) ([]types.MeterPoint, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.MeterPoint), args.Error(1)
}

func (m *MockDatabase) UpsertMeterPoint(ctx context.Context, mp types.MeterPoint) error {
	args := m.Called(ctx, mp)
	return args.Error(0)
}

func (m *MockDatabase) GetUser(ctx context.Context, userID string) (types.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockDatabase) CreateUser(ctx context.Context, user types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockDatabase) UpdateUser(ctx context.Context, user types.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
