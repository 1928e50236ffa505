// Package handler exposes the basic-profile endpoint under
// /user/profile/basic.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"userprofile/internal/api"
	"userprofile/internal/platform/middleware"
)

// HeaderUserToken carries the caller's access token.
const HeaderUserToken = "x-authenticated-user-token"

const apiIDRead = "api.user.profile.basic.read"

// Service defines the basic-profile operation the handler depends on.
type Service interface {
	Get(ctx context.Context, token, userID string) (map[string]any, bool, error)
}

// Handler handles the basic-profile endpoint.
type Handler struct {
	logger  *slog.Logger
	profile Service
}

// New creates a new basic-profile Handler.
func New(profile Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, profile: profile}
}

// Register registers the basic-profile route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/user/profile/basic/{userId}", h.handleGet)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	resp := api.NewResponse(apiIDRead)
	userID := chi.URLParam(r, "userId")

	profile, found, err := h.profile.Get(r.Context(), r.Header.Get(HeaderUserToken), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "basic profile read failed",
			"error", err,
			"user_id", userID,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		api.WriteError(w, resp, err)
		return
	}

	// An unknown user is a 404 with an empty payload, not an error envelope.
	if !found {
		resp.Result["response"] = map[string]any{}
		api.Write(w, http.StatusNotFound, resp)
		return
	}

	resp.Result["response"] = profile
	api.Write(w, http.StatusOK, resp)
}
