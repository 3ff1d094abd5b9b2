package errors

import "net/http"

// Taxonomy error codes, one per category named by the gateway's error
// handling design. Handlers switch on these codes rather than re-deriving
// an HTTP status from scratch so the propagation policy stays centralized.
const (
	CodeBadRequest                     = "bad_request"
	CodeAuthMissing                    = "auth_missing"
	CodeAuthInvalid                    = "auth_invalid"
	CodeNoCredentialAvailable          = "no_credential_available"
	CodeCredentialNotFound             = "credential_not_found"
	CodeAuthExchangeFailed             = "auth_exchange_failed"
	CodeProjectIDMissing               = "project_id_missing"
	CodeUpstreamTransient              = "upstream_transient"
	CodeUpstreamTerminalForCredential  = "upstream_terminal_for_credential"
	CodeUpstreamOther                  = "upstream_other"
	CodeStorageCorrupt                 = "storage_corrupt"
)

// BadRequest reports a client-shape violation.
func BadRequest(message string) *APIError {
	return New(http.StatusBadRequest, CodeBadRequest, "invalid_request_error", message)
}

// AuthMissing reports an absent API key.
func AuthMissing(message string) *APIError {
	return New(http.StatusUnauthorized, CodeAuthMissing, "authentication_error", message)
}

// AuthInvalid reports an API key that does not match configuration, or
// missing gateway configuration (503 per spec).
func AuthInvalid(message string, configured bool) *APIError {
	if !configured {
		return New(http.StatusServiceUnavailable, CodeAuthInvalid, "server_error", message)
	}
	return New(http.StatusUnauthorized, CodeAuthInvalid, "authentication_error", message)
}

// NoCredentialAvailable reports pool exhaustion: every candidate was over
// quota or failed refresh.
func NoCredentialAvailable(message string) *APIError {
	return New(http.StatusServiceUnavailable, CodeNoCredentialAvailable, "server_error", message)
}

// CredentialNotFound reports a forced-credential route referencing an
// unknown project id.
func CredentialNotFound(message string) *APIError {
	return New(http.StatusNotFound, CodeCredentialNotFound, "invalid_request_error", message)
}

// AuthExchangeFailed wraps an upstream OAuth code-exchange failure.
func AuthExchangeFailed(message string) *APIError {
	return New(http.StatusInternalServerError, CodeAuthExchangeFailed, "server_error", message)
}

// ProjectIDMissing reports failure to resolve a project id without
// allow_random.
func ProjectIDMissing(message string) *APIError {
	return New(http.StatusBadRequest, CodeProjectIDMissing, "invalid_request_error", message)
}

// UpstreamTransient marks an error the orchestrator should retry with a
// fresh credential.
func UpstreamTransient(message string) *APIError {
	return New(http.StatusBadGateway, CodeUpstreamTransient, "server_error", message)
}

// UpstreamTerminalForCredential marks an error that disables the credential
// that produced it before retrying with the next one.
func UpstreamTerminalForCredential(message string) *APIError {
	return New(http.StatusBadGateway, CodeUpstreamTerminalForCredential, "server_error", message)
}

// UpstreamOther propagates an upstream status verbatim when present, else 500.
func UpstreamOther(status int, message string) *APIError {
	if status <= 0 {
		status = http.StatusInternalServerError
	}
	return New(status, CodeUpstreamOther, "server_error", message)
}

// StorageCorrupt marks an unreadable persisted file; fatal on load paths,
// logged-and-skipped elsewhere.
func StorageCorrupt(message string) *APIError {
	return New(http.StatusInternalServerError, CodeStorageCorrupt, "server_error", message)
}

// IsTerminalForCredential reports whether an upstream HTTP status should be
// treated as terminal for the credential that produced it (400/403 per the
// OAuth Client's Refresh contract, 401 for a revoked grant).
func IsTerminalForCredential(status int) bool {
	return status == http.StatusBadRequest || status == http.StatusForbidden || status == http.StatusUnauthorized
}

// IsRetryableStatus reports whether an upstream HTTP status is in the
// configured retry set by default (429/500); configuration may widen this.
func IsRetryableStatus(status int, retryCodes []int) bool {
	for _, c := range retryCodes {
		if c == status {
			return true
		}
	}
	return false
}
