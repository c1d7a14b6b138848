package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tarifscope/tarifscope/pkg/meter/metermock"
	"github.com/tarifscope/tarifscope/pkg/storage/storagemock"
	"github.com/tarifscope/tarifscope/pkg/types"
)

var (
	simStart = time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)
	simEnd   = time.Date(2024, time.January, 9, 0, 0, 0, 0, time.UTC)
)

func simulateBody(meterPointID string) string {
	return fmt.Sprintf(`{"meterPointID":%q,"start":%q,"end":%q}`,
		meterPointID, simStart.Format(time.RFC3339), simEnd.Format(time.RFC3339))
}

func testReadings() []types.RawReading {
	readings := make([]types.RawReading, 0, 48)
	for i := 0; i < 48; i++ {
		readings = append(readings, types.RawReading{
			Timestamp:    simStart.Add(time.Duration(i) * 30 * time.Minute),
			PowerKW:      1,
			IntervalCode: "PT30M",
		})
	}
	return readings
}

func testPlans() []types.PricePlan {
	return []types.PricePlan{
		{
			ID:                       "flat-base",
			ProviderID:               "acme",
			Name:                     "Base",
			MonthlySubscriptionEuros: 10,
			KVAs:                     []int{6, 9},
			Flat:                     &types.FlatPricing{EurosPerKWH: 0.2},
		},
		{
			ID:                       "day-night",
			ProviderID:               "acme",
			Name:                     "Day/Night",
			MonthlySubscriptionEuros: 12,
			KVAs:                     []int{6, 9},
			DayNight: &types.DayNightPricing{
				Variant:            types.DayNightStandard,
				PeakEurosPerKWH:    0.25,
				OffpeakEurosPerKWH: 0.15,
			},
		},
	}
}

func TestSimulate(t *testing.T) {
	user := types.User{ID: "u1", MeterPointIDs: []string{"pdl-1"}}

	t.Run("InvalidBody", func(t *testing.T) {
		srv := newTestServer(&storagemock.MockDatabase{}, &metermock.MockProvider{})
		req := withUser(httptest.NewRequest("POST", "/api/simulate", strings.NewReader("{")), user)
		w := httptest.NewRecorder()
		srv.handleSimulate(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	t.Run("MissingMeterPoint", func(t *testing.T) {
		srv := newTestServer(&storagemock.MockDatabase{}, &metermock.MockProvider{})
		body := fmt.Sprintf(`{"start":%q,"end":%q}`, simStart.Format(time.RFC3339), simEnd.Format(time.RFC3339))
		req := withUser(httptest.NewRequest("POST", "/api/simulate", strings.NewReader(body)), user)
		w := httptest.NewRecorder()
		srv.handleSimulate(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	t.Run("InvertedRange", func(t *testing.T) {
		srv := newTestServer(&storagemock.MockDatabase{}, &metermock.MockProvider{})
		body := fmt.Sprintf(`{"meterPointID":"pdl-1","start":%q,"end":%q}`,
			simEnd.Format(time.RFC3339), simStart.Format(time.RFC3339))
		req := withUser(httptest.NewRequest("POST", "/api/simulate", strings.NewReader(body)), user)
		w := httptest.NewRecorder()
		srv.handleSimulate(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})

	t.Run("AccessDenied", func(t *testing.T) {
		srv := newTestServer(&storagemock.MockDatabase{}, &metermock.MockProvider{})
		req := withUser(httptest.NewRequest("POST", "/api/simulate", strings.NewReader(simulateBody("pdl-other"))), user)
		w := httptest.NewRecorder()
		srv.handleSimulate(w, req)
		assert.Equal(t, http.StatusForbidden, w.Result().StatusCode)
	})

	t.Run("SuccessFromCache", func(t *testing.T) {
		mockS := &storagemock.MockDatabase{}
		mockM := &metermock.MockProvider{}
		mockS.On("GetSettings", mock.Anything, "pdl-1").Return(types.Settings{SubscribedKVA: 6, SubscribedPlanID: "flat-base"}, 1, nil)
		mockS.On("GetCachedReadings", mock.Anything, "pdl-1", simStart, simEnd).Return(testReadings(), nil)
		mockS.On("GetColorDays", mock.Anything, simStart, simEnd).Return([]types.ColorDay{
			{Date: simStart, Color: types.ColorRed},
		}, nil)
		mockS.On("ListPlans", mock.Anything).Return(testPlans(), nil)

		srv := newTestServer(mockS, mockM)
		req := withUser(httptest.NewRequest("POST", "/api/simulate", strings.NewReader(simulateBody("pdl-1"))), user)
		w := httptest.NewRecorder()
		srv.handleSimulate(w, req)
		require.Equal(t, http.StatusOK, w.Result().StatusCode, w.Body.String())

		var run struct {
			Results     []types.SimulationResult `json:"results"`
			TotalKWH    float64                  `json:"totalKWH"`
			SampleCount int                      `json:"sampleCount"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
		require.Len(t, run.Results, 2)
		assert.Equal(t, 48, run.SampleCount)
		assert.InDelta(t, 24.0, run.TotalKWH, 1e-9)
		assert.Equal(t, 1, run.Results[0].Rank)
		// reference flag follows the subscribed plan
		var sawReference bool
		for _, res := range run.Results {
			if res.PlanID == "flat-base" {
				sawReference = res.IsReference
			}
		}
		assert.True(t, sawReference)

		// nothing was fetched from the data hub
		mockM.AssertNotCalled(t, "GetLoadCurve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mockM.AssertNotCalled(t, "GetColorCalendar", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("FetchesAndCachesOnMiss", func(t *testing.T) {
		mockS := &storagemock.MockDatabase{}
		mockM := &metermock.MockProvider{}
		mockS.On("GetSettings", mock.Anything, "pdl-1").Return(types.Settings{SubscribedKVA: 6}, 1, nil)
		mockS.On("GetCachedReadings", mock.Anything, "pdl-1", simStart, simEnd).Return([]types.RawReading(nil), nil)
		mockM.On("GetLoadCurve", mock.Anything, "pdl-1", simStart, simEnd).Return(testReadings(), nil)
		mockS.On("UpsertReadings", mock.Anything, "pdl-1", testReadings()).Return(nil)
		mockS.On("GetColorDays", mock.Anything, simStart, simEnd).Return([]types.ColorDay(nil), nil)
		mockM.On("GetColorCalendar", mock.Anything, simStart, simEnd).Return([]types.ColorDay{
			{Date: simStart, Color: types.ColorWhite},
		}, nil)
		mockS.On("UpsertColorDays", mock.Anything, mock.Anything).Return(nil)
		mockS.On("ListPlans", mock.Anything).Return(testPlans(), nil)

		srv := newTestServer(mockS, mockM)
		req := withUser(httptest.NewRequest("POST", "/api/simulate", strings.NewReader(simulateBody("pdl-1"))), user)
		w := httptest.NewRecorder()
		srv.handleSimulate(w, req)
		require.Equal(t, http.StatusOK, w.Result().StatusCode, w.Body.String())

		mockS.AssertExpectations(t)
		mockM.AssertExpectations(t)
	})

	t.Run("NoSamples", func(t *testing.T) {
		mockS := &storagemock.MockDatabase{}
		mockM := &metermock.MockProvider{}
		mockS.On("GetSettings", mock.Anything, "pdl-1").Return(types.Settings{}, 0, nil)
		mockS.On("GetCachedReadings", mock.Anything, "pdl-1", simStart, simEnd).Return([]types.RawReading(nil), nil)
		mockM.On("GetLoadCurve", mock.Anything, "pdl-1", simStart, simEnd).Return([]types.RawReading{}, nil)
		mockS.On("UpsertReadings", mock.Anything, "pdl-1", mock.Anything).Return(nil)
		mockS.On("GetColorDays", mock.Anything, simStart, simEnd).Return([]types.ColorDay(nil), nil)
		mockM.On("GetColorCalendar", mock.Anything, simStart, simEnd).Return([]types.ColorDay(nil), nil)
		mockS.On("UpsertColorDays", mock.Anything, mock.Anything).Return(nil)
		mockS.On("ListPlans", mock.Anything).Return(testPlans(), nil)

		srv := newTestServer(mockS, mockM)
		req := withUser(httptest.NewRequest("POST", "/api/simulate", strings.NewReader(simulateBody("pdl-1"))), user)
		w := httptest.NewRecorder()
		srv.handleSimulate(w, req)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Result().StatusCode)
		assert.Contains(t, w.Body.String(), `"code":"no_samples"`)
	})

	t.Run("NoPlansForKVA", func(t *testing.T) {
		mockS := &storagemock.MockDatabase{}
		mockM := &metermock.MockProvider{}
		mockS.On("GetSettings", mock.Anything, "pdl-1").Return(types.Settings{SubscribedKVA: 36}, 1, nil)
		mockS.On("GetCachedReadings", mock.Anything, "pdl-1", simStart, simEnd).Return(testReadings(), nil)
		mockS.On("GetColorDays", mock.Anything, simStart, simEnd).Return([]types.ColorDay(nil), nil)
		mockM.On("GetColorCalendar", mock.Anything, simStart, simEnd).Return([]types.ColorDay(nil), nil)
		mockS.On("UpsertColorDays", mock.Anything, mock.Anything).Return(nil)
		mockS.On("ListPlans", mock.Anything).Return(testPlans(), nil)

		srv := newTestServer(mockS, mockM)
		req := withUser(httptest.NewRequest("POST", "/api/simulate", strings.NewReader(simulateBody("pdl-1"))), user)
		w := httptest.NewRecorder()
		srv.handleSimulate(w, req)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Result().StatusCode)
		assert.Contains(t, w.Body.String(), `"code":"no_plans"`)
	})

	t.Run("ColorFetchFailureDegrades", func(t *testing.T) {
		mockS := &storagemock.MockDatabase{}
		mockM := &metermock.MockProvider{}
		mockS.On("GetSettings", mock.Anything, "pdl-1").Return(types.Settings{}, 0, nil)
		mockS.On("GetCachedReadings", mock.Anything, "pdl-1", simStart, simEnd).Return(testReadings(), nil)
		mockS.On("GetColorDays", mock.Anything, simStart, simEnd).Return([]types.ColorDay(nil), nil)
		mockM.On("GetColorCalendar", mock.Anything, simStart, simEnd).Return([]types.ColorDay(nil), fmt.Errorf("calendar unavailable"))
		mockS.On("ListPlans", mock.Anything).Return(testPlans(), nil)

		srv := newTestServer(mockS, mockM)
		req := withUser(httptest.NewRequest("POST", "/api/simulate", strings.NewReader(simulateBody("pdl-1"))), user)
		w := httptest.NewRecorder()
		srv.handleSimulate(w, req)
		assert.Equal(t, http.StatusOK, w.Result().StatusCode, w.Body.String())
	})

	t.Run("LoadCurveFailure", func(t *testing.T) {
		mockS := &storagemock.MockDatabase{}
		mockM := &metermock.MockProvider{}
		mockS.On("GetSettings", mock.Anything, "pdl-1").Return(types.Settings{}, 0, nil)
		mockS.On("GetCachedReadings", mock.Anything, "pdl-1", simStart, simEnd).Return([]types.RawReading(nil), nil)
		mockM.On("GetLoadCurve", mock.Anything, "pdl-1", simStart, simEnd).Return([]types.RawReading(nil), fmt.Errorf("hub down"))

		srv := newTestServer(mockS, mockM)
		req := withUser(httptest.NewRequest("POST", "/api/simulate", strings.NewReader(simulateBody("pdl-1"))), user)
		w := httptest.NewRecorder()
		srv.handleSimulate(w, req)
		assert.Equal(t, http.StatusBadGateway, w.Result().StatusCode)
	})
}
