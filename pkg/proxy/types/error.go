package types

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body returned for every error produced by the
// edge itself. Errors returned by the upstream API are passed through
// verbatim and never wrapped in this shape.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable diagnostic message.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`
}

// Error type constants.
const (
	// ErrorTypeConfiguration indicates a missing or empty required binding
	// (secret store, asset provider). Fatal for the request, never retried.
	ErrorTypeConfiguration = "configuration_error"

	// ErrorTypeUpstream indicates a transport failure talking to the
	// upstream API.
	ErrorTypeUpstream = "upstream_error"

	// ErrorTypeServerError indicates any other fault inside request handling.
	ErrorTypeServerError = "server_error"
)

// Error code constants.
const (
	// CodeCredentialUnavailable means the upstream token could not be resolved.
	CodeCredentialUnavailable = "credential_unavailable"

	// CodeAssetsUnavailable means no static asset provider is bound.
	CodeAssetsUnavailable = "assets_unavailable"

	// CodeUpstreamUnreachable means the upstream call failed at the transport level.
	CodeUpstreamUnreachable = "upstream_unreachable"

	// CodeInternalError indicates an internal server error.
	CodeInternalError = "internal_error"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Code:    code,
		},
	}
}

// NewServerError creates an error response for internal server errors.
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, CodeInternalError)
}

// HTTPStatusCode returns the HTTP status for the error. Every error the
// edge produces is 500-class.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Response renders the error as a buffered JSON response.
func (e *ErrorResponse) Response() *Response {
	body, err := json.Marshal(e)
	if err != nil {
		body = []byte(`{"error":{"message":"internal error","type":"server_error"}}`)
	}
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Cache-Control", "no-store")
	return NewResponse(e.Error.HTTPStatusCode(), header, body)
}
