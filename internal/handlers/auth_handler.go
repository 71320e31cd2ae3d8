package handlers

import (
	"context"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"skillsprint/internal/security"
	"skillsprint/internal/service"
	"skillsprint/internal/validation"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	emailService         *service.EmailService
	middleware           *Middleware
	templates            *template.Template
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
}

// NewAuthHandler creates a new auth handler. emailService may be nil.
func NewAuthHandler(authService *service.AuthService, emailService *service.EmailService, middleware *Middleware, templates *template.Template, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		emailService:         emailService,
		middleware:           middleware,
		templates:            templates,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
	}
}

// ShowLogin renders the login page
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if GetUserFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := LoginViewData{
		Page:           h.middleware.page(r, "Log in"),
		OAuthProviders: h.oauthProviderViews(),
	}
	if r.URL.Query().Get("reset") == "1" {
		data.Success = "Your password has been reset. Please log in."
	}
	render(w, h.templates, "login.tmpl", http.StatusOK, data)
}

// Login handles login form submission
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	session, _, err := h.authService.Login(email, password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			log.Printf("Login failed for %q: %v", email, err)
		}
		render(w, h.templates, "login.tmpl", http.StatusUnauthorized, LoginViewData{
			Page:           h.middleware.page(r, "Log in"),
			OAuthProviders: h.oauthProviderViews(),
			Error:          "Invalid email or password",
			Email:          email,
		})
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// ShowSignup renders the signup page
func (h *AuthHandler) ShowSignup(w http.ResponseWriter, r *http.Request) {
	if GetUserFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	render(w, h.templates, "signup.tmpl", http.StatusOK, SignupViewData{
		Page:           h.middleware.page(r, "Sign up"),
		OAuthProviders: h.oauthProviderViews(),
	})
}

// Signup handles signup form submission
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")
	name := r.FormValue("name")

	user, err := h.authService.Register(email, password, name)
	if err != nil {
		data := SignupViewData{
			Page:           h.middleware.page(r, "Sign up"),
			OAuthProviders: h.oauthProviderViews(),
			Email:          email,
			Name:           name,
		}
		var ve validation.ValidationError
		switch {
		case errors.As(err, &ve):
			data.Error = ve.Message
		case errors.Is(err, service.ErrEmailTaken):
			data.Error = "An account with that email already exists"
		default:
			log.Printf("Signup failed for %q: %v", email, err)
			data.Error = "We couldn't create your account, please try again"
		}
		render(w, h.templates, "signup.tmpl", http.StatusBadRequest, data)
		return
	}

	if h.emailService != nil && h.emailService.IsEnabled() {
		go func(email, name string) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.emailService.SendWelcomeEmail(ctx, email, name); err != nil {
				log.Printf("Failed to send welcome email to %s: %v", email, err)
			}
		}(user.Email, user.Name)
	}

	// Auto-login after registration
	session, _, err := h.authService.Login(email, password)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	http.Redirect(w, r, "/challenges", http.StatusSeeOther)
}

// Logout handles logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.authService.Logout(cookie.Value); err != nil {
			log.Printf("Error deleting session: %v", err)
		}
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ShowForgotPassword renders the forgot password page
func (h *AuthHandler) ShowForgotPassword(w http.ResponseWriter, r *http.Request) {
	render(w, h.templates, "forgot_password.tmpl", http.StatusOK, ForgotPasswordViewData{
		Page: h.middleware.page(r, "Forgot password"),
	})
}

// ForgotPassword sends a reset link. The response is the same whether or
// not the email has an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	data := ForgotPasswordViewData{Page: h.middleware.page(r, "Forgot password")}
	if err := validation.ValidateEmail(email); err != nil {
		data.Error = "Please enter a valid email address"
		render(w, h.templates, "forgot_password.tmpl", http.StatusBadRequest, data)
		return
	}

	if err := h.authService.RequestPasswordReset(r.Context(), h.emailService, email); err != nil {
		log.Printf("Password reset request failed: %v", err)
	}

	data.Success = "If an account exists for that email, a reset link is on its way."
	render(w, h.templates, "forgot_password.tmpl", http.StatusOK, data)
}

// ShowResetPassword renders the reset form for a valid token
func (h *AuthHandler) ShowResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	data := ResetPasswordViewData{Page: h.middleware.page(r, "Reset password"), Token: token}

	valid, err := h.authService.ValidatePasswordResetToken(token)
	if err != nil {
		log.Printf("Error validating reset token: %v", err)
	}
	if !valid {
		data.Error = "This reset link is invalid or has expired."
		data.Token = ""
	}
	render(w, h.templates, "reset_password.tmpl", http.StatusOK, data)
}

// ResetPassword sets the new password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	token := r.FormValue("token")
	password := r.FormValue("password")
	data := ResetPasswordViewData{Page: h.middleware.page(r, "Reset password"), Token: token}

	if password != r.FormValue("confirm_password") {
		data.Error = "Passwords do not match"
		render(w, h.templates, "reset_password.tmpl", http.StatusBadRequest, data)
		return
	}

	if err := h.authService.ResetPassword(token, password); err != nil {
		var ve validation.ValidationError
		switch {
		case errors.As(err, &ve):
			data.Error = ve.Message
		case errors.Is(err, service.ErrInvalidResetToken):
			data.Error = "This reset link is invalid or has expired."
			data.Token = ""
		default:
			log.Printf("Password reset failed: %v", err)
			data.Error = "We couldn't reset your password, please try again"
		}
		render(w, h.templates, "reset_password.tmpl", http.StatusBadRequest, data)
		return
	}

	http.Redirect(w, r, "/login?reset=1", http.StatusSeeOther)
}
