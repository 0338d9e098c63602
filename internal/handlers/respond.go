package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cliphub/backend/internal/auth"
	"github.com/cliphub/backend/internal/logging"
	"github.com/cliphub/backend/internal/repositories"
)

// apiResponse is the uniform envelope every endpoint answers with.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respondData(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	writeEnvelope(ctx, w, status, apiResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    true,
	})
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeEnvelope(ctx, w, status, apiResponse{
		StatusCode: status,
		Message:    message,
		Success:    false,
	})
}

func writeEnvelope(ctx context.Context, w http.ResponseWriter, status int, payload apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "message", payload.Message)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "message", payload.Message)
	}
}

// respondStoreError translates repository and auth sentinels into the error
// taxonomy: missing-or-not-yours is 404, conflicts are 409, token problems are
// 401, anything else is a 500 with a generic message.
func respondStoreError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		respondError(ctx, w, http.StatusNotFound, "resource not found")
	case errors.Is(err, repositories.ErrConflict):
		respondError(ctx, w, http.StatusConflict, "resource already exists")
	case errors.Is(err, auth.ErrSessionNotFound), errors.Is(err, auth.ErrTokenInvalid):
		respondError(ctx, w, http.StatusUnauthorized, "invalid token")
	default:
		logging.FromContext(ctx).Error(fallback, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, fallback)
	}
}
