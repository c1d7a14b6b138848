package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tarifscope/tarifscope/pkg/log"
	"github.com/tarifscope/tarifscope/pkg/storage"
	"github.com/tarifscope/tarifscope/pkg/types"
)

// handleConsentRedirect is the callback the grid operator redirects the
// browser to after the user grants meter-data access. The state parameter is
// the user ID the consent flow was started with; the granted meter point
// arrives as usage_point_id. Both must check out against storage before the
// meter point is attached to the user.
func (s *Server) handleConsentRedirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	state := r.URL.Query().Get("state")
	meterPointID := r.URL.Query().Get("usage_point_id")
	if state == "" || meterPointID == "" {
		writeJSONError(w, "state and usage_point_id are required", http.StatusBadRequest)
		return
	}

	user, err := s.storage.GetUser(ctx, state)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Ctx(ctx).WarnContext(ctx, "consent state does not match a known user", slog.String("state", state))
			writeJSONError(w, "invalid consent state", http.StatusForbidden)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "user lookup failed", slog.Any("error", err))
		writeJSONError(w, "user lookup failed", http.StatusInternalServerError)
		return
	}

	if err := s.storage.UpsertMeterPoint(ctx, types.MeterPoint{
		ID:     meterPointID,
		UserID: user.ID,
	}); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to store meter point", slog.Any("error", err))
		writeJSONError(w, "failed to store meter point", http.StatusInternalServerError)
		return
	}

	var owned bool
	for _, id := range user.MeterPointIDs {
		if id == meterPointID {
			owned = true
			break
		}
	}
	if !owned {
		user.MeterPointIDs = append(user.MeterPointIDs, meterPointID)
		if err := s.storage.UpdateUser(ctx, user); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to update user", slog.Any("error", err))
			writeJSONError(w, "failed to update user", http.StatusInternalServerError)
			return
		}
	}

	log.Ctx(ctx).InfoContext(ctx, "meter point consent granted",
		slog.String("userID", user.ID), slog.String("meterPointID", meterPointID))

	http.Redirect(w, r, "/", http.StatusFound)
}
