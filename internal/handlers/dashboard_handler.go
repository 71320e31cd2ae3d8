package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"skillsprint/internal/service"
)

// DashboardHandler serves the signed-in user's dashboard and report
type DashboardHandler struct {
	progressService *service.ProgressService
	reportService   *service.ReportService
	middleware      *Middleware
	templates       *template.Template
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(progressService *service.ProgressService, reportService *service.ReportService, middleware *Middleware, templates *template.Template) *DashboardHandler {
	return &DashboardHandler{
		progressService: progressService,
		reportService:   reportService,
		middleware:      middleware,
		templates:       templates,
	}
}

// Dashboard renders the streak and enrolled sprints
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	dashboard, err := h.progressService.Dashboard(user.ID)
	if err != nil {
		log.Printf("Error loading dashboard for user %d: %v", user.ID, err)
		renderError(w, r, h.middleware, h.templates, http.StatusInternalServerError, "We couldn't load your dashboard, please try again.")
		return
	}

	render(w, h.templates, "dashboard.tmpl", http.StatusOK, DashboardViewData{
		Page:      h.middleware.page(r, "Dashboard"),
		Dashboard: dashboard,
		Streak:    newStreakView(dashboard.Streak, dashboard.StreakActive),
	})
}

// Report downloads the user's progress report as a PDF
func (h *DashboardHandler) Report(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	var buf bytes.Buffer
	if err := h.reportService.WriteProgressReport(&buf, user.ID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to build report", "Error building progress report", err)
		return
	}

	filename := fmt.Sprintf("skillsprint_report_%s.pdf", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	_, _ = buf.WriteTo(w)
}
