package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliphub/backend/internal/middleware"
	"github.com/cliphub/backend/internal/models"
)

// TweetHandler implements the short-post endpoints.
type TweetHandler struct {
	Tweets TweetStore
}

type tweetRequest struct {
	Content string `json:"content" validate:"required,max=280"`
}

// Create handles POST /api/v1/tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	req, err := decodeValid[tweetRequest](r)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   user.ID,
		Content:   strings.TrimSpace(req.Content),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Tweets.Create(ctx, tweet); err != nil {
		respondStoreError(ctx, w, err, "failed to create tweet")
		return
	}

	respondData(ctx, w, http.StatusCreated, tweet, "tweet created successfully")
}

// ListForUser handles GET /api/v1/tweets/user/{userId}.
func (h TweetHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := urlParam(r, "userId")
	if userID == "" {
		respondError(ctx, w, http.StatusBadRequest, "user id is required")
		return
	}

	page, err := h.Tweets.PageForUser(ctx, userID, pageParams(r))
	if err != nil {
		respondStoreError(ctx, w, err, "failed to fetch tweets")
		return
	}
	if page.Tweets == nil {
		page.Tweets = []models.TweetView{}
	}

	respondData(ctx, w, http.StatusOK, page, "tweets fetched successfully")
}

// Update handles PATCH /api/v1/tweets/{tweetId}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	req, err := decodeValid[tweetRequest](r)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Tweets.UpdateOwned(ctx, urlParam(r, "tweetId"), user.ID, strings.TrimSpace(req.Content)); err != nil {
		respondStoreError(ctx, w, err, "failed to update tweet")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "tweet updated successfully")
}

// Delete handles DELETE /api/v1/tweets/{tweetId}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	if err := h.Tweets.DeleteOwned(ctx, urlParam(r, "tweetId"), user.ID); err != nil {
		respondStoreError(ctx, w, err, "failed to delete tweet")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "tweet deleted successfully")
}
