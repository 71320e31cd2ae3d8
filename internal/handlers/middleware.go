package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"skillsprint/internal/metrics"
	"skillsprint/internal/models"
	"skillsprint/internal/security"
	"skillsprint/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey    ContextKey = "user"
	SessionContextKey ContextKey = "session"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	csrf        *security.CSRFGenerator
	limiter     *security.RateLimiter
	metrics     *metrics.Metrics
	debug       bool
}

// NewMiddleware creates a new middleware instance. limiter and m may be nil.
func NewMiddleware(authService *service.AuthService, csrf *security.CSRFGenerator, limiter *security.RateLimiter, m *metrics.Metrics, debug bool) *Middleware {
	return &Middleware{
		authService: authService,
		csrf:        csrf,
		limiter:     limiter,
		metrics:     m,
		debug:       debug,
	}
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// currentUser resolves the session cookie to a user, clearing a stale cookie
func (m *Middleware) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, string) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, ""
	}

	user, err := m.authService.ValidateSession(cookie.Value)
	if err != nil {
		http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
		return nil, ""
	}
	return user, cookie.Value
}

func withUser(r *http.Request, user *models.User, sessionID string) *http.Request {
	ctx := context.WithValue(r.Context(), UserContextKey, user)
	ctx = context.WithValue(ctx, SessionContextKey, sessionID)
	return r.WithContext(ctx)
}

// LoadUser adds the logged-in user to the context when there is one
func (m *Middleware) LoadUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if user, sessionID := m.currentUser(w, r); user != nil {
			r = withUser(r, user, sessionID)
		}
		next(w, r)
	}
}

// RequireAuth is middleware that requires a valid session
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, sessionID := m.currentUser(w, r)
		if user == nil {
			if isAPIRequest(r) {
				respondJSONError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, withUser(r, user, sessionID))
	}
}

// RequireAdmin is RequireAuth restricted to admin users
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil || !user.IsAdmin {
			if isAPIRequest(r) {
				respondJSONError(w, http.StatusForbidden, ErrForbidden, "", nil)
				return
			}
			http.Error(w, ErrForbidden, http.StatusForbidden)
			return
		}
		next(w, r)
	})
}

// GetCSRFToken returns the CSRF token bound to sessionID
func (m *Middleware) GetCSRFToken(sessionID string) (string, error) {
	return m.csrf.GenerateToken(sessionID)
}

// CSRFToken returns the token for the request's session, or "" when logged out
func (m *Middleware) CSRFToken(r *http.Request) string {
	sessionID := GetSessionIDFromContext(r.Context())
	if sessionID == "" {
		if cookie, err := r.Cookie(SessionCookieName); err == nil {
			sessionID = cookie.Value
		}
	}
	if sessionID == "" {
		return ""
	}
	token, _ := m.csrf.GenerateToken(sessionID)
	return token
}

// CSRFProtect rejects mutating requests without a valid token in the
// X-CSRF-Token header or the csrf_token form field. It must run inside
// RequireAuth.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}

		token := r.Header.Get(CSRFHeaderName)
		if token == "" {
			token = r.FormValue(CSRFFormField)
		}
		if !m.csrf.ValidateToken(GetSessionIDFromContext(r.Context()), token) {
			if m.debug {
				log.Printf("[DEBUG] CSRF rejected for %s %s", r.Method, r.URL.Path)
			}
			if isAPIRequest(r) {
				respondJSONError(w, http.StatusForbidden, ErrInvalidCSRFToken, "", nil)
				return
			}
			http.Error(w, ErrInvalidCSRFToken, http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// RateLimit throttles requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(security.GetClientIP(r)) {
			w.Header().Set("Retry-After", "60")
			if isAPIRequest(r) {
				respondJSONError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
				return
			}
			http.Error(w, ErrTooManyRequests, http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// statusRecorder captures the response status for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Instrument records request metrics labelled by the matched route pattern
func (m *Middleware) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.metrics.ObserveRequest(route, r.Method, rec.status, time.Since(start))
	})
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		// Call next handler
		next.ServeHTTP(rec, r)

		// Log request
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetSessionIDFromContext retrieves the session ID set by RequireAuth
func GetSessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(SessionContextKey).(string)
	return id
}

func userID(r *http.Request) int64 {
	if user := GetUserFromContext(r.Context()); user != nil {
		return user.ID
	}
	return 0
}
