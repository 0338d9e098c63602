package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cliphub/backend/internal/logging"
	"github.com/cliphub/backend/internal/middleware"
	"github.com/cliphub/backend/internal/models"
	"github.com/cliphub/backend/internal/repositories"
)

const maxImageMemory = 32 << 20

// UserHandler implements registration, authentication, profile, and
// watch-history endpoints.
type UserHandler struct {
	Users    UserStore
	Sessions SessionManager
	Images   MediaStorage
	Limiter  RateLimiter
	NowFunc  func() time.Time
}

type registerForm struct {
	FullName string `validate:"required,max=100"`
	Email    string `validate:"required,email"`
	Username string `validate:"required,max=30"`
	Password string `validate:"required,max=72"`
}

// Register handles POST /api/v1/users/register. The request is multipart: an
// avatar file part is required, a coverImage part is optional.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many registration attempts")
		return
	}

	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		logger.Warn("invalid register form", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "multipart form is required")
		return
	}

	form := registerForm{
		FullName: strings.TrimSpace(r.FormValue("fullName")),
		Email:    strings.TrimSpace(strings.ToLower(r.FormValue("email"))),
		Username: strings.TrimSpace(strings.ToLower(r.FormValue("username"))),
		Password: r.FormValue("password"),
	}
	if err := validateStruct(form); err != nil {
		logger.Warn("register validation failed", "error", err)
		respondError(ctx, w, http.StatusBadRequest, formatValidationError(err))
		return
	}
	if _, err := mail.ParseAddress(form.Email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	avatarURL, err := h.saveImage(ctx, r, "avatar")
	if errors.Is(err, http.ErrMissingFile) {
		respondError(ctx, w, http.StatusBadRequest, "avatar file is required")
		return
	}
	if err != nil {
		logger.Error("register failed to store avatar", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	coverImageURL, err := h.saveImage(ctx, r, "coverImage")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		logger.Error("register failed to store cover image", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store cover image")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("register failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	now := h.now()
	user := models.User{
		ID:            uuid.NewString(),
		Username:      form.Username,
		Email:         form.Email,
		Password:      string(hashed),
		FullName:      form.FullName,
		AvatarURL:     avatarURL,
		CoverImageURL: coverImageURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "username or email already exists")
			return
		}
		logger.Error("register failed to create user", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	}

	respondData(ctx, w, http.StatusCreated, user.Public(), "user registered successfully")
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         models.PublicUser `json:"user"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
}

// Login handles POST /api/v1/users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	identifier := strings.TrimSpace(strings.ToLower(req.Username))
	if identifier == "" {
		identifier = strings.TrimSpace(strings.ToLower(req.Email))
	}
	if identifier == "" || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "username or email and password are required")
		return
	}

	user, err := h.Users.FindByLogin(ctx, identifier)
	if err != nil {
		logger.Warn("login user lookup failed", "identifier", identifier, "error", err)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	setAuthCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, loginResponse{
		User:         user.Public(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout. Only the presented device session
// is revoked; logins on other devices stay valid.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := middleware.UserFromContext(ctx); !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	if token := refreshTokenFromRequest(r); token != "" {
		h.Sessions.Revoke(ctx, token)
	}

	clearAuthCookies(w)
	respondData(ctx, w, http.StatusOK, nil, "user logged out successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken handles POST /api/v1/users/refresh-token. Rotation is
// single-use: replaying a consumed token fails with 401.
func (h UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	token := refreshTokenFromRequest(r)
	if token == "" {
		respondError(ctx, w, http.StatusBadRequest, "refresh token is required")
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		logger.Warn("refresh rejected", "error", err)
		respondStoreError(ctx, w, err, "unable to refresh session")
		return
	}

	setAuthCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, tokens, "access token refreshed")
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,max=72"`
}

// ChangePassword handles POST /api/v1/users/change-password. All sessions for
// the user are revoked so stolen refresh tokens die with the old password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateStruct(req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, formatValidationError(err))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		respondError(ctx, w, http.StatusUnauthorized, "old password is incorrect")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("change password failed to hash", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	if err := h.Users.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		respondStoreError(ctx, w, err, "failed to change password")
		return
	}

	if err := h.Sessions.RevokeUser(ctx, user.ID); err != nil {
		logger.Error("revoke sessions after password change", "userId", user.ID, "error", err)
	}

	clearAuthCookies(w)
	respondData(ctx, w, http.StatusOK, nil, "password changed successfully")
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	respondData(ctx, w, http.StatusOK, user.Public(), "current user fetched successfully")
}

type updateProfileRequest struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

// UpdateProfile handles PATCH /api/v1/users/update-user.
func (h UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateStruct(req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, formatValidationError(err))
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if err := h.Users.UpdateProfile(ctx, user.ID, strings.TrimSpace(req.FullName), email); err != nil {
		respondStoreError(ctx, w, err, "failed to update profile")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.Users.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.Users.UpdateCoverImage)
}

func (h UserHandler) updateImage(w http.ResponseWriter, r *http.Request, field string, update func(context.Context, string, string) error) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "multipart form is required")
		return
	}

	location, err := h.saveImage(ctx, r, field)
	if errors.Is(err, http.ErrMissingFile) {
		respondError(ctx, w, http.StatusBadRequest, field+" file is required")
		return
	}
	if err != nil {
		logging.FromContext(ctx).Error("failed to store image", "field", field, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store "+field)
		return
	}

	if err := update(ctx, user.ID, location); err != nil {
		respondStoreError(ctx, w, err, "failed to update "+field)
		return
	}

	respondData(ctx, w, http.StatusOK, map[string]string{field: location}, field+" updated successfully")
}

// ChannelProfile handles GET /api/v1/users/channels/{username}.
func (h UserHandler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	viewer, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	username := strings.TrimSpace(strings.ToLower(urlParam(r, "username")))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "username is required")
		return
	}

	profile, err := h.Users.ChannelProfile(ctx, username, viewer.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "failed to fetch channel profile")
		return
	}

	respondData(ctx, w, http.StatusOK, profile, "channel profile fetched successfully")
}

// WatchHistory handles GET /api/v1/users/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	items, err := h.Users.WatchHistory(ctx, user.ID)
	if err != nil {
		respondStoreError(ctx, w, err, "failed to fetch watch history")
		return
	}
	if items == nil {
		items = []models.WatchHistoryItem{}
	}

	respondData(ctx, w, http.StatusOK, items, "watch history fetched successfully")
}

type addHistoryRequest struct {
	VideoID string `json:"videoId" validate:"required,uuid4"`
}

// AddToWatchHistory handles POST /api/v1/users/history.
func (h UserHandler) AddToWatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	var req addHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validateStruct(req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, formatValidationError(err))
		return
	}

	if err := h.Users.AddToWatchHistory(ctx, user.ID, req.VideoID); err != nil {
		respondStoreError(ctx, w, err, "failed to record watch history")
		return
	}

	respondData(ctx, w, http.StatusOK, nil, "video added to watch history")
}

// saveImage streams one uploaded image part to media storage and returns its
// public location. http.ErrMissingFile is returned unchanged so callers can
// treat optional parts as absent.
func (h UserHandler) saveImage(ctx context.Context, r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", err
	}
	defer file.Close()

	key := fmt.Sprintf("images/%s/%s%s", field, uuid.NewString(), safeExt(header))
	location, err := h.Images.Save(ctx, key, file)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", field, err)
	}
	return location, nil
}

func safeExt(header *multipart.FileHeader) string {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return ext
	default:
		return ".bin"
	}
}

func refreshTokenFromRequest(r *http.Request) string {
	var req refreshRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if token := strings.TrimSpace(req.RefreshToken); token != "" {
		return token
	}
	if cookie, err := r.Cookie(RefreshTokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
