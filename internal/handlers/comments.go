package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliphub/backend/internal/middleware"
	"github.com/cliphub/backend/internal/models"
)

// CommentHandler implements the comment endpoints for a video.
type CommentHandler struct {
	Comments CommentStore
}

type commentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

// ListForVideo handles GET /api/v1/comments/{videoId}.
func (h CommentHandler) ListForVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID := urlParam(r, "videoId")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "video id is required")
		return
	}

	page, err := h.Comments.PageForVideo(ctx, videoID, pageParams(r))
	if err != nil {
		respondStoreError(ctx, w, err, "failed to fetch comments")
		return
	}
	if page.Comments == nil {
		page.Comments = []models.CommentView{}
	}

	respondData(ctx, w, http.StatusOK, page, "comments fetched successfully")
}

// Create handles POST /api/v1/comments/{videoId}.
func (h CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	videoID := urlParam(r, "videoId")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "video id is required")
		return
	}

	req, err := decodeValid[commentRequest](r)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   user.ID,
		Content:   strings.TrimSpace(req.Content),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Comments.Create(ctx, comment); err != nil {
		respondStoreError(ctx, w, err, "failed to add comment")
		return
	}

	respondData(ctx, w, http.StatusCreated, comment, "comment added successfully")
}

// Update handles PATCH /api/v1/comments/c/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	req, err := decodeValid[commentRequest](r)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Comments.UpdateOwned(ctx, urlParam(r, "commentId"), user.ID, strings.TrimSpace(req.Content)); err != nil {
		respondStoreError(ctx, w, err, "failed to update comment")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "comment updated successfully")
}

// Delete handles DELETE /api/v1/comments/c/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	if err := h.Comments.DeleteOwned(ctx, urlParam(r, "commentId"), user.ID); err != nil {
		respondStoreError(ctx, w, err, "failed to delete comment")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "comment deleted successfully")
}
