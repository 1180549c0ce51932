package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rhuss/coursesearch/pkg/api"
)

// HTTPStatusFromError returns the status an API error is answered with.
func HTTPStatusFromError(err *api.APIError) int {
	return err.Status()
}

// AsAPIError unwraps err to the *api.APIError it carries. Any other error
// becomes a server error with its message. AsAPIError(nil) is nil.
func AsAPIError(err error) *api.APIError {
	if err == nil {
		return nil
	}
	if apiErr := (*api.APIError)(nil); errors.As(err, &apiErr) {
		return apiErr
	}
	return api.NewServerError(err.Error())
}

// WriteErrorResponse answers with status and the {"error": ...} body.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, status int) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr}); err != nil {
		slog.Debug("writing error response", "error", err)
	}
}

// WriteAPIError answers with the status derived from apiErr's type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, apiErr.Status())
}
