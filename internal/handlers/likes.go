package handlers

import (
	"context"
	"net/http"

	"github.com/cliphub/backend/internal/middleware"
	"github.com/cliphub/backend/internal/models"
)

// LikeHandler implements the like toggle and read endpoints.
type LikeHandler struct {
	Likes LikeStore
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "videoId", h.Likes.ToggleVideo)
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "commentId", h.Likes.ToggleComment)
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "tweetId", h.Likes.ToggleTweet)
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, param string, fn func(context.Context, string, string) (bool, error)) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	subjectID := urlParam(r, param)
	if subjectID == "" {
		respondError(ctx, w, http.StatusBadRequest, param+" is required")
		return
	}

	liked, err := fn(ctx, subjectID, user.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "failed to toggle like")
		return
	}

	message := "like removed"
	if liked {
		message = "like added"
	}
	respondData(ctx, w, http.StatusOK, map[string]bool{"liked": liked}, message)
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	videos, err := h.Likes.LikedVideos(ctx, user.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "failed to fetch liked videos")
		return
	}
	if videos == nil {
		videos = []models.VideoSummary{}
	}

	respondData(ctx, w, http.StatusOK, videos, "liked videos fetched successfully")
}
