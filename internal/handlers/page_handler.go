package handlers

import (
	"html/template"
	"log"
	"net/http"

	"skillsprint/internal/repository"
	"skillsprint/internal/service"
)

// featuredCount is how many sprints the home page shows
const featuredCount = 6

// PageHandler serves the marketing pages and the error pages
type PageHandler struct {
	sprintService   *service.SprintService
	progressService *service.ProgressService
	middleware      *Middleware
	templates       *template.Template
}

// NewPageHandler creates a new page handler
func NewPageHandler(sprintService *service.SprintService, progressService *service.ProgressService, middleware *Middleware, templates *template.Template) *PageHandler {
	return &PageHandler{
		sprintService:   sprintService,
		progressService: progressService,
		middleware:      middleware,
		templates:       templates,
	}
}

// Home renders the landing page with featured sprints
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	data := HomeViewData{Page: h.middleware.page(r, "Build a skill in 30 days")}

	sprints, err := h.sprintService.Browse(0, repository.SprintFilter{})
	if err != nil {
		log.Printf("Error loading featured sprints: %v", err)
	}
	if len(sprints) > featuredCount {
		sprints = sprints[:featuredCount]
	}
	data.Featured = sprints

	if user := data.User; user != nil {
		streak, active, err := h.progressService.Streak(user.ID)
		if err != nil {
			log.Printf("Error loading streak for user %d: %v", user.ID, err)
		} else {
			v := newStreakView(streak, active)
			data.Streak = &v
		}
	}

	render(w, h.templates, "home.tmpl", http.StatusOK, data)
}

// Static returns a handler that renders a content-only page
func (h *PageHandler) Static(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, h.templates, name, http.StatusOK, h.middleware.page(r, title))
	}
}

// NotFound renders the 404 page for unknown paths
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	renderError(w, r, h.middleware, h.templates, http.StatusNotFound, "We couldn't find that page.")
}

// renderError shows the error page, falling back to plain text
func renderError(w http.ResponseWriter, r *http.Request, m *Middleware, templates *template.Template, status int, message string) {
	name := "error.tmpl"
	title := "Something went wrong"
	if status == http.StatusNotFound {
		name = "404.tmpl"
		title = "Page not found"
	}
	render(w, templates, name, status, ErrorViewData{
		Page:    m.page(r, title),
		Status:  status,
		Message: message,
	})
}
