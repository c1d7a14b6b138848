package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/tarifscope/tarifscope/pkg/log"
	"github.com/tarifscope/tarifscope/pkg/types"
)

type listPlansResponse struct {
	Plans []types.PricePlan `json:"plans"`
}

// handleListPlans returns the whole plan catalog, optionally filtered to
// plans sold at a given subscribed power level (?kva=9).
func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	plans, err := s.storage.ListPlans(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list plans", slog.Any("error", err))
		writeJSONError(w, "failed to list plans", http.StatusInternalServerError)
		return
	}

	if kvaStr := r.URL.Query().Get("kva"); kvaStr != "" {
		kva, err := strconv.Atoi(kvaStr)
		if err != nil {
			writeJSONError(w, "invalid kva", http.StatusBadRequest)
			return
		}
		filtered := plans[:0]
		for _, p := range plans {
			if p.SupportsKVA(kva) {
				filtered = append(filtered, p)
			}
		}
		plans = filtered
	}

	sort.Slice(plans, func(i, j int) bool {
		if plans[i].ProviderID != plans[j].ProviderID {
			return plans[i].ProviderID < plans[j].ProviderID
		}
		return plans[i].Name < plans[j].Name
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(listPlansResponse{Plans: plans}); err != nil {
		panic(http.ErrAbortHandler)
	}
}
