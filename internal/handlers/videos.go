package handlers

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliphub/backend/internal/logging"
	"github.com/cliphub/backend/internal/media"
	"github.com/cliphub/backend/internal/middleware"
	"github.com/cliphub/backend/internal/models"
	"github.com/cliphub/backend/internal/repositories"
)

// WatchHistoryRecorder records that a user viewed a video.
type WatchHistoryRecorder interface {
	AddToWatchHistory(ctx context.Context, userID, videoID string) error
}

// VideoHandler implements the video catalog and upload endpoints. Uploaded
// files are staged on local disk and handed to the ingestor; the video row is
// created immediately in the pending state.
type VideoHandler struct {
	Videos        VideoStore
	History       WatchHistoryRecorder
	Ingestor      MediaIngestor
	UploadDir     string
	MaxUploadSize int64
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	params := repositories.ListParams{
		Query:    strings.TrimSpace(query.Get("query")),
		OwnerID:  strings.TrimSpace(query.Get("userId")),
		SortBy:   strings.TrimSpace(query.Get("sortBy")),
		SortDesc: !strings.EqualFold(query.Get("sortType"), "asc"),
		Page:     pageParams(r),
	}

	page, err := h.Videos.List(ctx, params)
	if err != nil {
		respondStoreError(ctx, w, err, "failed to fetch videos")
		return
	}
	if page.Videos == nil {
		page.Videos = []models.VideoSummary{}
	}

	respondData(ctx, w, http.StatusOK, page, "videos fetched successfully")
}

// Create handles POST /api/v1/videos. The request is multipart with videoFile
// and thumbnail parts plus title and description fields.
func (h VideoHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	ctx, span := logging.StartSpan(ctx, "video.upload")
	defer span.End()
	logger := logging.FromContext(ctx)

	if h.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadSize)
	}
	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		logger.Warn("invalid upload form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "multipart form is required")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title is required")
		return
	}

	duration, _ := strconv.ParseFloat(strings.TrimSpace(r.FormValue("duration")), 64)

	videoID := uuid.NewString()

	mediaPath, err := h.stageFile(r, "videoFile", videoID)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "video file is required")
		return
	}

	thumbnailPath, err := h.stageFile(r, "thumbnail", videoID)
	if err != nil {
		os.Remove(mediaPath)
		respondError(ctx, w, http.StatusBadRequest, "thumbnail file is required")
		return
	}

	now := time.Now().UTC()
	video := models.Video{
		ID:          videoID,
		OwnerID:     user.ID,
		Title:       title,
		Description: description,
		Duration:    duration,
		MediaStatus: models.MediaStatusPending,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		os.Remove(mediaPath)
		os.Remove(thumbnailPath)
		respondStoreError(ctx, w, err, "failed to create video")
		return
	}

	upload := media.Upload{
		VideoID:       videoID,
		MediaPath:     mediaPath,
		ThumbnailPath: thumbnailPath,
		Duration:      duration,
	}
	if err := h.Ingestor.Enqueue(ctx, upload); err != nil {
		logger.Error("failed to enqueue upload", "videoId", videoID, "error", err)
		respondError(ctx, w, http.StatusServiceUnavailable, "upload queue is full, try again shortly")
		return
	}

	respondData(ctx, w, http.StatusCreated, video, "video upload accepted")
}

// Get handles GET /api/v1/videos/{videoId}. The route is public; unpublished
// videos are visible to their owner only, everyone else sees not found.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, authenticated := middleware.UserFromContext(ctx)

	videoID := urlParam(r, "videoId")
	if videoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "video id is required")
		return
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		respondStoreError(ctx, w, err, "failed to fetch video")
		return
	}
	if !video.IsPublished && (!authenticated || video.OwnerID != user.ID) {
		respondError(ctx, w, http.StatusNotFound, "resource not found")
		return
	}

	if err := h.Videos.IncrementViews(ctx, videoID); err != nil {
		logger.Warn("failed to increment views", "videoId", videoID, "error", err)
	} else {
		video.Views++
	}
	if authenticated {
		if err := h.History.AddToWatchHistory(ctx, user.ID, videoID); err != nil {
			logger.Warn("failed to record watch history", "videoId", videoID, "error", err)
		}
	}

	respondData(ctx, w, http.StatusOK, video, "video fetched successfully")
}

type updateVideoRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

// Update handles PATCH /api/v1/videos/{videoId}.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	videoID := urlParam(r, "videoId")

	req, err := decodeValid[updateVideoRequest](r)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Videos.UpdateOwned(ctx, videoID, user.ID, strings.TrimSpace(req.Title), strings.TrimSpace(req.Description)); err != nil {
		respondStoreError(ctx, w, err, "failed to update video")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{videoId}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	if err := h.Videos.DeleteOwned(ctx, urlParam(r, "videoId"), user.ID); err != nil {
		respondStoreError(ctx, w, err, "failed to delete video")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "video deleted successfully")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	published, err := h.Videos.TogglePublish(ctx, urlParam(r, "videoId"), user.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "failed to toggle publish state")
		return
	}

	respondData(ctx, w, http.StatusOK, map[string]bool{"isPublished": published}, "publish state toggled successfully")
}

// stageFile copies one multipart part to the upload staging directory. The
// ingestor owns the staged file from the moment Enqueue succeeds.
func (h VideoHandler) stageFile(r *http.Request, field, videoID string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", err
	}
	defer file.Close()

	dir := filepath.Join(h.UploadDir, videoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	dst, err := os.Create(filepath.Join(dir, field+stagedExt(header)))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

func stagedExt(header *multipart.FileHeader) string {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" || strings.ContainsAny(ext, "/\\") {
		return ".bin"
	}
	return ext
}
