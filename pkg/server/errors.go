package server

import (
	"encoding/json"
	"errors"
	"net/http"

	schemaerrors "mercator-hq/exceller/pkg/schema/errors"
	"mercator-hq/exceller/pkg/schema/store"
)

// Error kinds for failures that are not schema errors.
const (
	KindBadRequest   = "bad_request"
	KindUnauthorized = "unauthorized"
	KindNotFound     = "not_found"
	KindTooLarge     = "request_too_large"
	KindInternal     = "internal"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes the failure.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

func errorBody(kind, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Kind: kind, Message: message}}
}

// statusFor maps an error to its HTTP status and kind. Transformation
// failures are 422.
func statusFor(err error) (int, string) {
	var nf *store.NotFoundError
	if errors.As(err, &nf) {
		return http.StatusNotFound, KindNotFound
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, KindTooLarge
	}
	if kind := schemaerrors.KindOf(err); kind != "" {
		return http.StatusUnprocessableEntity, string(kind)
	}
	return http.StatusInternalServerError, KindInternal
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, message, runID string) {
	body := errorBody(kind, message)
	body.Error.RunID = runID
	writeJSON(w, status, body)
}
