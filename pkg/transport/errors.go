package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/werkbank-ai/werkbank/pkg/api"
)

// HTTPStatusFromError maps an AgentError type to the corresponding HTTP
// status code. Transport-level errors (body too large, unsupported
// content type) are handled separately by the HTTP adapter.
func HTTPStatusFromError(err *api.AgentError) int {
	switch err.Type {
	case api.ErrorTypeValidation:
		return http.StatusBadRequest
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeInference, api.ErrorTypeProvisioning,
		api.ErrorTypeConfiguration, api.ErrorTypeServer:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes a JSON error body using the ErrorResponse
// wrapper format from pkg/api with the given HTTP status code.
func WriteErrorResponse(w http.ResponseWriter, agentErr *api.AgentError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: agentErr})
}

// WriteAgentError writes an AgentError response, deriving the HTTP
// status code from the error type.
func WriteAgentError(w http.ResponseWriter, agentErr *api.AgentError) {
	WriteErrorResponse(w, agentErr, HTTPStatusFromError(agentErr))
}

// WriteError converts an arbitrary error to an AgentError response.
// Non-AgentError values become opaque server errors.
func WriteError(w http.ResponseWriter, err error) {
	var agentErr *api.AgentError
	if errors.As(err, &agentErr) {
		WriteAgentError(w, agentErr)
		return
	}
	WriteAgentError(w, api.NewServerError(err.Error()))
}
