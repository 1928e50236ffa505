// Package api defines the response envelope shared by all profile endpoints.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	dErrors "userprofile/pkg/domain-errors"
	"userprofile/pkg/platform/httputil"
)

// Params carries per-request status metadata inside the envelope.
type Params struct {
	ResMsgID string `json:"resmsgid"`
	Status   string `json:"status"`
	ErrMsg   string `json:"errmsg,omitempty"`
}

// Response is the envelope every endpoint writes. ResponseCode mirrors the
// HTTP status text, Result holds the endpoint-specific payload.
type Response struct {
	ID           string         `json:"id"`
	Ver          string         `json:"ver"`
	Ts           string         `json:"ts"`
	Params       Params         `json:"params"`
	ResponseCode string         `json:"responseCode"`
	Result       map[string]any `json:"result"`
}

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// NewResponse builds a success-initialized envelope for the given API id,
// e.g. "api.user.profile.read".
func NewResponse(apiID string) *Response {
	return &Response{
		ID:  apiID,
		Ver: "v1",
		Ts:  time.Now().UTC().Format(time.RFC3339),
		Params: Params{
			ResMsgID: uuid.New().String(),
			Status:   statusSuccess,
		},
		ResponseCode: http.StatusText(http.StatusOK),
		Result:       make(map[string]any),
	}
}

// Write serializes the envelope with the given HTTP status. A 204 carries no
// body per RFC 9110, so the envelope is dropped for that status.
func Write(w http.ResponseWriter, status int, resp *Response) {
	resp.ResponseCode = responseCode(status)
	if status == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.WriteJSON(w, status, resp)
}

// WriteError marks the envelope failed, records the error message, and writes
// it with the HTTP status derived from the domain error code. Non-domain
// errors map to a 500.
func WriteError(w http.ResponseWriter, resp *Response, err error) {
	code := dErrors.CodeInternal
	message := err.Error()

	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		code = dErr.Code
		message = dErr.Message
	}

	resp.Params.Status = statusFailed
	resp.Params.ErrMsg = message
	Write(w, httputil.DomainCodeToHTTPStatus(code), resp)
}

// responseCode renders the upper-snake status text used in the envelope,
// e.g. "OK", "CREATED", "NOT_FOUND".
func responseCode(status int) string {
	switch status {
	case http.StatusOK:
		return "OK"
	case http.StatusCreated:
		return "CREATED"
	case http.StatusNoContent:
		return "NO_CONTENT"
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusGatewayTimeout:
		return "GATEWAY_TIMEOUT"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}
