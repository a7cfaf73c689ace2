package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Session ───────────────────────────────────────────────────────
	ErrSessionRequired ErrCode = "SESSION_REQUIRED"
	ErrSessionInvalid  ErrCode = "SESSION_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"
	ErrChatIDRequired  ErrCode = "CHAT_ID_REQUIRED"
	ErrChatIDMismatch  ErrCode = "CHAT_ID_MISMATCH"
	ErrUserNotFound    ErrCode = "USER_NOT_FOUND"
	ErrUserNotLoaded   ErrCode = "USER_NOT_LOADED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound   ErrCode = "NOT_FOUND"
	ErrTestClosed ErrCode = "TEST_CLOSED"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrUpstream ErrCode = "UPSTREAM_ERROR"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrSessionRequired:
		return "Open the dashboard from your bot link to start a session."
	case ErrSessionInvalid:
		return "Your session is invalid or has expired."

	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrAdminAccessOnly:
		return "This resource is limited to administrators."
	case ErrChatIDRequired:
		return "A chat id is required."
	case ErrChatIDMismatch:
		return "The session belongs to a different chat id."
	case ErrUserNotFound:
		return "User not found."
	case ErrUserNotLoaded:
		return "The admin is not loaded yet."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	case ErrNotFound:
		return "Test not found."
	case ErrTestClosed:
		return "This test is closed."

	case ErrUpstream:
		return "The tests service could not complete the request."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
