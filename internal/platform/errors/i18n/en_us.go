package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeUnknown                 = "UNKNOWN"
	CodeAuthRequired            = "AUTH_REQUIRED"
	CodeMalformedParameter      = "MALFORMED_PARAMETER"
	CodeUpstreamUnavailable     = "UPSTREAM_UNAVAILABLE"
	CodeConfigurationInvalid    = "CONFIGURATION_INVALID"
	CodeVerificationCodeInvalid = "VERIFICATION_CODE_INVALID"
	CodeSignInStateInvalid      = "SIGN_IN_STATE_INVALID"
	CodeSignInStateExpired      = "SIGN_IN_STATE_EXPIRED"
	CodeInvalidRequest          = "INVALID_REQUEST"
)

var enUSCatalog = &Catalog{
	locale: "en-US",
	messages: map[Code]string{
		CodeUnknown:              "Something went wrong. Please try again.",
		CodeAuthRequired:         "Sign in to search for experts",
		CodeMalformedParameter:   "Search parameter {{.Parameter}} is not valid",
		CodeUpstreamUnavailable:  "A search source is unavailable. Please try again later.",
		CodeConfigurationInvalid: "The service is not configured correctly",

		// Sign-in errors
		CodeVerificationCodeInvalid: "The verification code is not valid",
		CodeSignInStateInvalid:      "This sign-in link is not valid. Start sign-in again from the search box.",
		CodeSignInStateExpired:      "This sign-in link has expired. Start sign-in again from the search box.",

		// Request errors
		CodeInvalidRequest: "The request is not valid",
	},
}
