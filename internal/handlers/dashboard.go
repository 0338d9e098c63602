package handlers

import (
	"net/http"

	"github.com/cliphub/backend/internal/middleware"
	"github.com/cliphub/backend/internal/models"
)

// DashboardHandler implements the channel owner dashboard endpoints.
type DashboardHandler struct {
	Users        UserStore
	VideoCatalog VideoStore
}

// Stats handles GET /api/v1/dashboard/stats. Totals are computed live from
// the videos, likes, and subscriptions tables.
func (h DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	stats, err := h.Users.ChannelStats(ctx, user.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "failed to fetch channel stats")
		return
	}

	respondData(ctx, w, http.StatusOK, stats, "channel stats fetched successfully")
}

// Videos handles GET /api/v1/dashboard/videos. Unlike the public catalog this
// includes the owner's unpublished videos.
func (h DashboardHandler) Videos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	videos, err := h.VideoCatalog.ListForChannel(ctx, user.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "failed to fetch channel videos")
		return
	}
	if videos == nil {
		videos = []models.VideoSummary{}
	}

	respondData(ctx, w, http.StatusOK, videos, "channel videos fetched successfully")
}
