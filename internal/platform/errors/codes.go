// Package errors provides structured, code-tagged errors shared by services.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeAuthRequired means the caller has no usable access token.
	CodeAuthRequired Code = "AUTH_REQUIRED"
	// CodeMalformedParameter marks an ill-typed query parameter.
	CodeMalformedParameter Code = "MALFORMED_PARAMETER"
	// CodeUpstreamUnavailable marks a failed directory or store call.
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	// CodeConfigurationInvalid marks missing or invalid process configuration.
	CodeConfigurationInvalid Code = "CONFIGURATION_INVALID"

	// Sign-in errors
	CodeVerificationCodeInvalid Code = "VERIFICATION_CODE_INVALID"
	CodeSignInStateInvalid      Code = "SIGN_IN_STATE_INVALID"
	CodeSignInStateExpired      Code = "SIGN_IN_STATE_EXPIRED"

	// Request errors
	CodeInvalidRequest Code = "INVALID_REQUEST"
)

// HTTPStatus maps the code to the status an HTTP transport should return.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeAuthRequired:
		return http.StatusUnauthorized
	case CodeMalformedParameter, CodeInvalidRequest,
		CodeVerificationCodeInvalid, CodeSignInStateInvalid, CodeSignInStateExpired:
		return http.StatusBadRequest
	case CodeUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
