package handlers

const (
	SessionCookieName = "session_id"
	CSRFHeaderName    = "X-CSRF-Token"
	CSRFFormField     = "csrf_token"

	ErrInvalidFormData       = "Invalid form data"
	ErrUnauthorized          = "Unauthorized"
	ErrForbidden             = "Forbidden"
	ErrNotFound              = "Not found"
	ErrInvalidCSRFToken      = "Invalid CSRF token"
	ErrTooManyRequests       = "Too many requests, please slow down"
	ErrInternalServerError   = "Internal server error"
	ErrInternalServerErrorUC = "Internal Server Error"
)
