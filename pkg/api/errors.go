package api

import "fmt"

// ErrorType categorizes an AgentError. The categories map one-to-one to
// the failure classes the gateway distinguishes: configuration errors are
// startup-fatal, provisioning and inference errors abort the current
// request, execution errors are fed back to the model as observations,
// and validation errors reject the request at the boundary.
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration_error"
	ErrorTypeProvisioning  ErrorType = "provisioning_error"
	ErrorTypeExecution     ErrorType = "execution_error"
	ErrorTypeInference     ErrorType = "inference_error"
	ErrorTypeValidation    ErrorType = "validation_error"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeServer        ErrorType = "server_error"
)

// AgentError is a structured error with a type, an optional offending
// parameter, and a human-readable message.
type AgentError struct {
	Type    ErrorType `json:"type"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an AgentError for JSON serialization as the
// top-level error body.
type ErrorResponse struct {
	Error *AgentError `json:"error"`
}

// NewConfigurationError creates an AgentError for missing or invalid
// startup configuration (absent credentials, bad sandbox target).
func NewConfigurationError(message string) *AgentError {
	return &AgentError{Type: ErrorTypeConfiguration, Message: message}
}

// NewProvisioningError creates an AgentError for sandbox acquisition
// failures. Fatal for the current request; not retried at this layer.
func NewProvisioningError(message string) *AgentError {
	return &AgentError{Type: ErrorTypeProvisioning, Message: message}
}

// NewInferenceError creates an AgentError for failures talking to the
// inference backend.
func NewInferenceError(message string) *AgentError {
	return &AgentError{Type: ErrorTypeInference, Message: message}
}

// NewValidationError creates an AgentError for malformed request bodies.
func NewValidationError(param, message string) *AgentError {
	return &AgentError{Type: ErrorTypeValidation, Param: param, Message: message}
}

// NewNotFoundError creates an AgentError for missing resources.
func NewNotFoundError(message string) *AgentError {
	return &AgentError{Type: ErrorTypeNotFound, Message: message}
}

// NewServerError creates an AgentError for internal failures.
func NewServerError(message string) *AgentError {
	return &AgentError{Type: ErrorTypeServer, Message: message}
}
