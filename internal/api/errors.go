package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/AyuTriphasari/baget/internal/errors"
	"github.com/AyuTriphasari/baget/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondServiceError maps a categorized service error onto the wire.
// Internal causes are logged upstream and never leak into responses.
func respondServiceError(w http.ResponseWriter, err error) {
	svcErr := apperrors.Categorize(err).ToServiceError()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperrors.GetHTTPStatusCode(err))
	json.NewEncoder(w).Encode(ErrorResponse{Error: *svcErr})
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
