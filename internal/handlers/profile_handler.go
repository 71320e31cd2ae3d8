package handlers

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"strings"

	"skillsprint/internal/models"
	"skillsprint/internal/service"
	"skillsprint/internal/validation"
)

// ProfileHandler serves profile viewing and editing
type ProfileHandler struct {
	authService *service.AuthService
	middleware  *Middleware
	templates   *template.Template
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(authService *service.AuthService, middleware *Middleware, templates *template.Template) *ProfileHandler {
	return &ProfileHandler{
		authService: authService,
		middleware:  middleware,
		templates:   templates,
	}
}

func profileForm(u *models.User) service.ProfileInput {
	return service.ProfileInput{
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Bio:       u.Bio,
		Skills:    strings.Join(u.Skills, ", "),
		Timezone:  u.Timezone,
	}
}

// ShowProfile renders the profile form
func (h *ProfileHandler) ShowProfile(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	data := ProfileViewData{
		Page: h.middleware.page(r, "Your profile"),
		Form: profileForm(user),
	}
	if r.URL.Query().Get("saved") == "1" {
		data.Success = "Profile saved"
	}
	render(w, h.templates, "profile.tmpl", http.StatusOK, data)
}

// UpdateProfile saves the profile form
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}
	user := GetUserFromContext(r.Context())

	in := service.ProfileInput{
		Name:      r.FormValue("name"),
		AvatarURL: r.FormValue("avatar_url"),
		Bio:       r.FormValue("bio"),
		Skills:    r.FormValue("skills"),
		Timezone:  r.FormValue("timezone"),
	}

	if _, err := h.authService.UpdateProfile(user.ID, in); err != nil {
		data := ProfileViewData{Page: h.middleware.page(r, "Your profile"), Form: in}
		var ve validation.ValidationError
		status := http.StatusBadRequest
		if errors.As(err, &ve) {
			data.Error = ve.Message
		} else {
			log.Printf("Error updating profile for user %d: %v", user.ID, err)
			data.Error = "We couldn't save your profile, please try again"
			status = http.StatusInternalServerError
		}
		render(w, h.templates, "profile.tmpl", status, data)
		return
	}

	http.Redirect(w, r, "/profile?saved=1", http.StatusSeeOther)
}
