package proxy

import (
	"errors"
	"fmt"

	"github.com/cd-Crypton/anistream/pkg/proxy/types"
)

// ConfigurationError reports a missing or empty required binding: the
// upstream credential or the static asset provider. It is fatal for the
// request and never retried.
type ConfigurationError struct {
	// Code is the machine-readable error code, e.g.
	// types.CodeCredentialUnavailable.
	Code string

	// Message is the client-facing diagnostic.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// UpstreamError reports a transport-level failure calling the upstream API.
// An upstream response with any status code is not an UpstreamError.
type UpstreamError struct {
	// Method and Path identify the upstream call. The query string is left
	// out of the message.
	Method string
	Path   string

	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s %s failed: %v", e.Method, e.Path, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// errCredentialUnavailable is the message shown to clients when the bearer
// token cannot be resolved.
const errCredentialUnavailable = "upstream API token could not be retrieved"

// credentialError wraps a failed credential lookup.
func credentialError(cause error) *ConfigurationError {
	return &ConfigurationError{
		Code:    types.CodeCredentialUnavailable,
		Message: errCredentialUnavailable,
		Err:     cause,
	}
}

// HandleError converts an error from request handling into the JSON error
// body returned to the client.
//
//	if err != nil {
//	    _ = HandleError(err).Response().Write(w)
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return types.NewErrorResponse(cfgErr.Error(), types.ErrorTypeConfiguration, cfgErr.Code)
	}

	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return types.NewErrorResponse(upErr.Error(), types.ErrorTypeUpstream, types.CodeUpstreamUnreachable)
	}

	return types.NewServerError(err.Error())
}
