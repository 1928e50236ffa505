// Package handler exposes the master-data endpoints under /v1/masterdata.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"userprofile/internal/api"
	"userprofile/internal/platform/middleware"
	dErrors "userprofile/pkg/domain-errors"
)

// HeaderUserToken carries the caller's access token.
const HeaderUserToken = "x-authenticated-user-token"

const (
	apiIDList      = "api.masterdata.list"
	apiIDUpdate    = "api.masterdata.update"
	apiIDStates    = "api.masterdata.states.list"
	apiIDDistricts = "api.masterdata.districts.list"
)

// Service defines the master-data operations the handler depends on.
type Service interface {
	ListInstitutions(ctx context.Context, token string) (map[string]any, error)
	ListDegrees(ctx context.Context, token string) (map[string]any, error)
	AddInstitution(ctx context.Context, token, name string) (string, bool, error)
	AddDegree(ctx context.Context, token, name string) (string, bool, error)
	States(ctx context.Context, token string) ([]map[string]any, error)
	Districts(ctx context.Context, token, stateName string) ([]map[string]any, error)
}

// Handler handles master-data endpoints.
type Handler struct {
	logger     *slog.Logger
	masterdata Service
}

// New creates a new master-data Handler.
func New(masterdata Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, masterdata: masterdata}
}

// Register registers the master-data routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/masterdata", func(r chi.Router) {
		r.Get("/list/institutions", h.handleListInstitutions)
		r.Get("/list/degrees", h.handleListDegrees)
		r.Post("/update/institution", h.handleAddInstitution)
		r.Post("/update/degree", h.handleAddDegree)
		r.Get("/list/states", h.handleStates)
		r.Post("/list/districts", h.handleDistricts)
	})
}

func (h *Handler) handleListInstitutions(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, h.masterdata.ListInstitutions)
}

func (h *Handler) handleListDegrees(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, h.masterdata.ListDegrees)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request, list func(context.Context, string) (map[string]any, error)) {
	resp := api.NewResponse(apiIDList)

	data, err := list(r.Context(), r.Header.Get(HeaderUserToken))
	if err != nil {
		h.logError(r, "master data list failed", err)
		api.WriteError(w, resp, err)
		return
	}

	resp.Result["response"] = data
	api.Write(w, http.StatusOK, resp)
}

// updateRequest is the add-institution / add-degree body. Either name field
// is accepted; the route decides which collection is written.
type updateRequest struct {
	InstituteName string `json:"instituteName"`
	DegreeName    string `json:"degreeName"`
}

func (h *Handler) handleAddInstitution(w http.ResponseWriter, r *http.Request) {
	h.handleAdd(w, r, func(req updateRequest) string { return req.InstituteName }, h.masterdata.AddInstitution)
}

func (h *Handler) handleAddDegree(w http.ResponseWriter, r *http.Request) {
	h.handleAdd(w, r, func(req updateRequest) string { return req.DegreeName }, h.masterdata.AddDegree)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request, name func(updateRequest) string, add func(context.Context, string, string) (string, bool, error)) {
	resp := api.NewResponse(apiIDUpdate)

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logError(r, "invalid master data payload", err)
		api.WriteError(w, resp, dErrors.New(dErrors.CodeBadRequest, "Invalid request payload"))
		return
	}

	msg, created, err := add(r.Context(), r.Header.Get(HeaderUserToken), name(req))
	if err != nil {
		h.logError(r, "master data update failed", err)
		api.WriteError(w, resp, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	resp.Result["response"] = msg
	api.Write(w, status, resp)
}

func (h *Handler) handleStates(w http.ResponseWriter, r *http.Request) {
	resp := api.NewResponse(apiIDStates)

	states, err := h.masterdata.States(r.Context(), r.Header.Get(HeaderUserToken))
	if err != nil {
		h.logError(r, "states list failed", err)
		api.WriteError(w, resp, err)
		return
	}

	resp.Result["statesList"] = states
	api.Write(w, http.StatusOK, resp)
}

func (h *Handler) handleDistricts(w http.ResponseWriter, r *http.Request) {
	resp := api.NewResponse(apiIDDistricts)

	var req struct {
		ContextName string `json:"contextName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logError(r, "invalid districts payload", err)
		api.WriteError(w, resp, dErrors.New(dErrors.CodeBadRequest, "Invalid request payload"))
		return
	}

	// A missing contextName reports failure inside a 200 envelope rather than
	// a 4xx, which existing clients depend on.
	if strings.TrimSpace(req.ContextName) == "" {
		resp.Params.Status = "failed"
		resp.Params.ErrMsg = "Context name is missing in the request"
		api.Write(w, http.StatusOK, resp)
		return
	}

	districts, err := h.masterdata.Districts(r.Context(), r.Header.Get(HeaderUserToken), req.ContextName)
	if err != nil {
		h.logError(r, "districts list failed", err)
		api.WriteError(w, resp, err)
		return
	}

	resp.Result["districtsList"] = districts
	api.Write(w, http.StatusOK, resp)
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"error", err,
		"request_id", middleware.GetRequestID(r.Context()),
	)
}
