// Package handler exposes the extended-profile endpoints under
// /user/profile/extended.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"userprofile/internal/api"
	"userprofile/internal/extendedprofile/models"
	"userprofile/internal/platform/config"
	"userprofile/internal/platform/middleware"
	dErrors "userprofile/pkg/domain-errors"
)

// HeaderUserToken carries the caller's access token.
const HeaderUserToken = "x-authenticated-user-token"

const (
	apiIDCreate  = "api.user.profile.extended.create"
	apiIDRead    = "api.user.profile.extended.read"
	apiIDSummary = "api.user.profile.extended.summary"
	apiIDUpdate  = "api.user.profile.extended.update"
	apiIDDelete  = "api.user.profile.extended.delete"
)

// sectionAliases maps URL path segments to stored context types.
var sectionAliases = map[string]string{
	"education":                  config.ContextEducation,
	config.ContextEducation:      config.ContextEducation,
	config.ContextAchievements:   config.ContextAchievements,
	config.ContextServiceHistory: config.ContextServiceHistory,
}

// Service defines the extended-profile operations the handler depends on.
type Service interface {
	Save(ctx context.Context, token string, req models.MutationRequest) ([]models.Entry, error)
	ReadFull(ctx context.Context, token, userID, contextType string) (map[string]any, error)
	Summary(ctx context.Context, token, userID string) (map[string]any, error)
	Update(ctx context.Context, token string, req models.MutationRequest) error
	Delete(ctx context.Context, token string, req models.MutationRequest) error
}

// Handler handles extended-profile endpoints.
type Handler struct {
	logger  *slog.Logger
	profile Service
}

// New creates a new extended-profile Handler.
func New(profile Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, profile: profile}
}

// Register registers the extended-profile routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/user/profile/extended", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Put("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
		r.Get("/{userId}", h.handleSummary)
		r.Get("/{userId}/{contextType}", h.handleReadFull)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	resp := api.NewResponse(apiIDCreate)

	req, err := decodeMutationRequest(r)
	if err != nil {
		h.logError(r, "invalid create payload", err)
		api.WriteError(w, resp, err)
		return
	}

	saved, err := h.profile.Save(r.Context(), r.Header.Get(HeaderUserToken), req)
	if err != nil {
		h.logError(r, "extended profile create failed", err)
		api.WriteError(w, resp, err)
		return
	}

	resp.Result["result"] = saved
	api.Write(w, http.StatusOK, resp)
}

func (h *Handler) handleReadFull(w http.ResponseWriter, r *http.Request) {
	resp := api.NewResponse(apiIDRead)

	contextType, ok := sectionAliases[chi.URLParam(r, "contextType")]
	if !ok {
		contextType = chi.URLParam(r, "contextType")
	}

	result, err := h.profile.ReadFull(r.Context(),
		r.Header.Get(HeaderUserToken), chi.URLParam(r, "userId"), contextType)
	if err != nil {
		h.logError(r, "extended profile read failed", err)
		api.WriteError(w, resp, err)
		return
	}

	resp.Result["response"] = result
	api.Write(w, http.StatusOK, resp)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	resp := api.NewResponse(apiIDSummary)

	result, err := h.profile.Summary(r.Context(),
		r.Header.Get(HeaderUserToken), chi.URLParam(r, "userId"))
	if err != nil {
		h.logError(r, "extended profile summary failed", err)
		api.WriteError(w, resp, err)
		return
	}

	resp.Result["response"] = result
	api.Write(w, http.StatusOK, resp)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	resp := api.NewResponse(apiIDUpdate)

	req, err := decodeMutationRequest(r)
	if err != nil {
		h.logError(r, "invalid update payload", err)
		api.WriteError(w, resp, err)
		return
	}

	if err := h.profile.Update(r.Context(), r.Header.Get(HeaderUserToken), req); err != nil {
		h.logError(r, "extended profile update failed", err)
		api.WriteError(w, resp, err)
		return
	}

	resp.Result["response"] = "success"
	api.Write(w, http.StatusOK, resp)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	resp := api.NewResponse(apiIDDelete)

	req, err := decodeMutationRequest(r)
	if err != nil {
		h.logError(r, "invalid delete payload", err)
		api.WriteError(w, resp, err)
		return
	}

	if err := h.profile.Delete(r.Context(), r.Header.Get(HeaderUserToken), req); err != nil {
		h.logError(r, "extended profile delete failed", err)
		api.WriteError(w, resp, err)
		return
	}

	resp.Result["response"] = "success"
	api.Write(w, http.StatusOK, resp)
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"error", err,
		"request_id", middleware.GetRequestID(r.Context()),
	)
}

// decodeMutationRequest unwraps the {request: {userId, <sections>}} body into
// a MutationRequest. Every non-userId key must hold an array of objects.
func decodeMutationRequest(r *http.Request) (models.MutationRequest, error) {
	var body struct {
		Request map[string]any `json:"request"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Request == nil {
		return models.MutationRequest{}, dErrors.New(dErrors.CodeBadRequest, "Invalid request payload")
	}

	req := models.MutationRequest{Sections: make(map[string][]models.Entry)}
	for key, value := range body.Request {
		if key == "userId" {
			req.UserID, _ = value.(string)
			continue
		}
		items, ok := value.([]any)
		if !ok {
			return models.MutationRequest{}, dErrors.New(dErrors.CodeBadRequest, "Invalid request structure")
		}
		entries := make([]models.Entry, 0, len(items))
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				return models.MutationRequest{}, dErrors.New(dErrors.CodeBadRequest, "Invalid request structure")
			}
			entries = append(entries, entry)
		}
		req.Sections[key] = entries
	}
	return req, nil
}
