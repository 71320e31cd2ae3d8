package handlers

import (
	"html/template"
	"log"
	"net/http"

	"skillsprint/internal/models"
	"skillsprint/internal/service"
)

// IntakeHandler serves the contact and report-a-problem forms
type IntakeHandler struct {
	intakeService *service.IntakeService
	middleware    *Middleware
	templates     *template.Template
}

// NewIntakeHandler creates a new intake handler
func NewIntakeHandler(intakeService *service.IntakeService, middleware *Middleware, templates *template.Template) *IntakeHandler {
	return &IntakeHandler{
		intakeService: intakeService,
		middleware:    middleware,
		templates:     templates,
	}
}

func optionalUserID(r *http.Request) *int64 {
	if user := GetUserFromContext(r.Context()); user != nil {
		id := user.ID
		return &id
	}
	return nil
}

// ShowContact renders the contact form
func (h *IntakeHandler) ShowContact(w http.ResponseWriter, r *http.Request) {
	data := ContactViewData{Page: h.middleware.page(r, "Contact us")}
	if user := data.User; user != nil {
		data.Form.Name = user.Name
		data.Form.Email = user.Email
	}
	render(w, h.templates, "contact.tmpl", http.StatusOK, data)
}

// Contact stores a contact message
func (h *IntakeHandler) Contact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	in := service.ContactInput{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Subject: r.FormValue("subject"),
		Message: r.FormValue("message"),
		UserID:  optionalUserID(r),
	}
	data := ContactViewData{Page: h.middleware.page(r, "Contact us")}

	if _, err := h.intakeService.SubmitContact(r.Context(), in); err != nil {
		status, msg := errorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("Error saving contact message: %v", err)
		}
		data.Form = in
		data.Error = msg
		render(w, h.templates, "contact.tmpl", status, data)
		return
	}

	data.Success = true
	render(w, h.templates, "contact.tmpl", http.StatusOK, data)
}

// ShowReportProblem renders the problem report form
func (h *IntakeHandler) ShowReportProblem(w http.ResponseWriter, r *http.Request) {
	data := ProblemReportViewData{
		Page:       h.middleware.page(r, "Report a problem"),
		Categories: models.ProblemCategories,
	}
	data.Form.PageURL = r.URL.Query().Get("page")
	if user := data.User; user != nil {
		data.Form.Email = user.Email
	}
	render(w, h.templates, "report_problem.tmpl", http.StatusOK, data)
}

// ReportProblem stores a problem report
func (h *IntakeHandler) ReportProblem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	in := service.ProblemInput{
		Email:       r.FormValue("email"),
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
		PageURL:     r.FormValue("page_url"),
		UserAgent:   r.UserAgent(),
		UserID:      optionalUserID(r),
	}
	data := ProblemReportViewData{
		Page:       h.middleware.page(r, "Report a problem"),
		Categories: models.ProblemCategories,
	}

	if _, err := h.intakeService.SubmitProblemReport(r.Context(), in); err != nil {
		status, msg := errorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("Error saving problem report: %v", err)
		}
		data.Form = in
		data.Error = msg
		render(w, h.templates, "report_problem.tmpl", status, data)
		return
	}

	data.Success = true
	render(w, h.templates, "report_problem.tmpl", http.StatusOK, data)
}
