package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tarifscope/tarifscope/pkg/engine"
	"github.com/tarifscope/tarifscope/pkg/log"
	"github.com/tarifscope/tarifscope/pkg/types"
)

const (
	errCodeNoSamples = "no_samples"
	errCodeNoPlans   = "no_plans"
)

type simulateRequest struct {
	MeterPointID string    `json:"meterPointID"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	// ReferencePlanID overrides the subscribed plan as the comparison
	// baseline when set.
	ReferencePlanID string `json:"referencePlanID,omitempty"`
}

// handleSimulate runs a full plan comparison for one meter point over a time
// range. Meter data is served from the storage cache when present and fetched
// from the data hub (then written back) when not.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.getUser(r)

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode simulate request", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.MeterPointID == "" {
		writeJSONError(w, "meterPointID is required", http.StatusBadRequest)
		return
	}
	if req.Start.IsZero() || req.End.IsZero() || !req.End.After(req.Start) {
		writeJSONError(w, "start must be before end", http.StatusBadRequest)
		return
	}
	if !s.canAccessMeterPoint(user, req.MeterPointID) {
		log.Ctx(ctx).WarnContext(ctx, "meter point access denied",
			slog.String("userID", user.ID), slog.String("meterPointID", req.MeterPointID))
		writeJSONError(w, "meter point access denied", http.StatusForbidden)
		return
	}

	settings, _, err := s.storage.GetSettings(ctx, req.MeterPointID)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	readings, err := s.loadReadings(ctx, req.MeterPointID, req.Start, req.End)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load readings", slog.Any("error", err))
		writeJSONError(w, "failed to load meter readings", http.StatusBadGateway)
		return
	}

	colors, err := s.loadColorDays(ctx, req.Start, req.End)
	if err != nil {
		// colors are an enrichment; a failed fetch degrades to "no
		// established color" instead of failing the simulation
		log.Ctx(ctx).WarnContext(ctx, "failed to load color calendar", slog.Any("error", err))
		colors = nil
	}

	plans, err := s.storage.ListPlans(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list plans", slog.Any("error", err))
		writeJSONError(w, "failed to list plans", http.StatusInternalServerError)
		return
	}
	if settings.SubscribedKVA > 0 {
		filtered := plans[:0]
		for _, p := range plans {
			if p.SupportsKVA(settings.SubscribedKVA) {
				filtered = append(filtered, p)
			}
		}
		plans = filtered
	}
	if len(plans) == 0 {
		writeJSONErrorCode(w, "no plans available for the subscribed power level", errCodeNoPlans, http.StatusUnprocessableEntity)
		return
	}

	referencePlanID := settings.SubscribedPlanID
	if req.ReferencePlanID != "" {
		referencePlanID = req.ReferencePlanID
	}

	run, err := engine.Simulate(ctx, engine.Input{
		Readings:        readings,
		Colors:          colors,
		Plans:           plans,
		OffpeakConfig:   settings.OffpeakHours,
		ReferencePlanID: referencePlanID,
	})
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNoSamples):
			writeJSONErrorCode(w, err.Error(), errCodeNoSamples, http.StatusUnprocessableEntity)
		case errors.Is(err, engine.ErrNoPlans):
			writeJSONErrorCode(w, err.Error(), errCodeNoPlans, http.StatusUnprocessableEntity)
		default:
			log.Ctx(ctx).ErrorContext(ctx, "simulation failed", slog.Any("error", err))
			writeJSONError(w, "simulation failed", http.StatusInternalServerError)
		}
		return
	}

	log.Ctx(ctx).InfoContext(ctx, "simulation complete",
		slog.String("meterPointID", req.MeterPointID),
		slog.Int("plans", len(run.Results)),
		slog.Int("samples", run.SampleCount))

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(run); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// loadReadings serves the load curve from the storage cache, falling back to
// the data hub and writing the fetched curve back for the next run.
func (s *Server) loadReadings(ctx context.Context, meterPointID string, start, end time.Time) ([]types.RawReading, error) {
	cached, err := s.storage.GetCachedReadings(ctx, meterPointID, start, end)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "reading cache lookup failed", slog.Any("error", err))
	} else if len(cached) > 0 {
		return cached, nil
	}

	readings, err := s.meter.GetLoadCurve(ctx, meterPointID, start, end)
	if err != nil {
		return nil, err
	}
	if err := s.storage.UpsertReadings(ctx, meterPointID, readings); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to cache readings", slog.Any("error", err))
	}
	return readings, nil
}

func (s *Server) loadColorDays(ctx context.Context, start, end time.Time) ([]types.ColorDay, error) {
	cached, err := s.storage.GetColorDays(ctx, start, end)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "color day cache lookup failed", slog.Any("error", err))
	} else if len(cached) > 0 {
		return cached, nil
	}

	days, err := s.meter.GetColorCalendar(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if err := s.storage.UpsertColorDays(ctx, days); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to cache color days", slog.Any("error", err))
	}
	return days, nil
}
