package handlers

import (
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"skillsprint/internal/service"
)

// adminListLimit caps the intake rows shown in the console
const adminListLimit = 50

// AdminHandler handles admin-related HTTP requests
type AdminHandler struct {
	authService   *service.AuthService
	sprintService *service.SprintService
	intakeService *service.IntakeService
	backupService *service.BackupService
	middleware    *Middleware
	templates     *template.Template
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authService *service.AuthService, sprintService *service.SprintService, intakeService *service.IntakeService, backupService *service.BackupService, middleware *Middleware, templates *template.Template) *AdminHandler {
	return &AdminHandler{
		authService:   authService,
		sprintService: sprintService,
		intakeService: intakeService,
		backupService: backupService,
		middleware:    middleware,
		templates:     templates,
	}
}

// ShowAdminDashboard renders the admin console
func (h *AdminHandler) ShowAdminDashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, http.StatusOK, r.URL.Query().Get("msg"), "")
}

func (h *AdminHandler) renderDashboard(w http.ResponseWriter, r *http.Request, status int, success, errMsg string) {
	data := AdminViewData{
		Page:    h.middleware.page(r, "Admin"),
		Success: success,
		Error:   errMsg,
	}

	var err error
	if data.Sprints, err = h.sprintService.ListAll(); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load sprints", "Error listing sprints", err)
		return
	}
	if data.Users, err = h.authService.ListUsers(); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load users", "Error fetching users", err)
		return
	}
	if data.Messages, err = h.intakeService.ContactMessages(adminListLimit); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load messages", "Error fetching contact messages", err)
		return
	}
	if data.Reports, err = h.intakeService.ProblemReports("", adminListLimit); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load reports", "Error fetching problem reports", err)
		return
	}

	render(w, h.templates, "admin.tmpl", status, data)
}

// ExtendSprint appends days to a sprint from the admin console
func (h *AdminHandler) ExtendSprint(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	days, err := strconv.Atoi(r.FormValue("additional_days"))
	if err != nil {
		h.renderDashboard(w, r, http.StatusBadRequest, "", "Additional days must be a number")
		return
	}
	current := 0
	if raw := r.FormValue("current_duration"); raw != "" {
		if current, err = strconv.Atoi(raw); err != nil {
			h.renderDashboard(w, r, http.StatusBadRequest, "", "Current duration must be a number")
			return
		}
	}

	result, err := h.sprintService.ExtendSprint(id, current, days)
	if err != nil {
		status, msg := errorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("Error extending sprint %d: %v", id, err)
		}
		h.renderDashboard(w, r, status, "", msg)
		return
	}

	msg := fmt.Sprintf("%s now runs %d days (%d added, %d already present)",
		result.Sprint.Title, result.Sprint.Duration, result.Inserted, result.Skipped)
	http.Redirect(w, r, "/admin?msg="+url.QueryEscape(msg), http.StatusSeeOther)
}

// ResolveProblemReport closes a problem report
func (h *AdminHandler) ResolveProblemReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		http.Error(w, ErrNotFound, http.StatusNotFound)
		return
	}
	if err := h.intakeService.ResolveProblemReport(id); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update report", "Error resolving problem report", err)
		return
	}
	http.Redirect(w, r, "/admin?msg=Report+resolved", http.StatusSeeOther)
}

// ExportBackup streams a JSON backup of every table
func (h *AdminHandler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("skillsprint_backup_%s.json", timestamp)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if _, err := h.backupService.ExportToWriter(w); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to export database", "Error exporting database", err)
		return
	}

	log.Printf("Database exported by admin user %s", user.Email)
}

// ImportBackup restores an uploaded backup. With clear_data set every table
// is emptied first, which also ends all sessions.
func (h *AdminHandler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	// Parse multipart form (10MB max)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("backup_file")
	if err != nil {
		h.renderDashboard(w, r, http.StatusBadRequest, "", "Please select a backup file")
		return
	}
	defer file.Close()

	clearData := r.FormValue("clear_data") == "true"
	if clearData {
		log.Printf("Admin %s requested database clear before import", user.Email)
		if err := h.backupService.Clear(); err != nil {
			log.Printf("Error clearing database: %v", err)
			h.renderDashboard(w, r, http.StatusInternalServerError, "", "Failed to clear database")
			return
		}
	}

	if _, err := h.backupService.ImportFromReader(file); err != nil {
		log.Printf("Error importing database: %v", err)
		if clearData {
			http.Error(w, "Failed to import database: "+err.Error(), http.StatusBadRequest)
			return
		}
		h.renderDashboard(w, r, http.StatusBadRequest, "", "Failed to import database: "+err.Error())
		return
	}

	log.Printf("Database imported successfully by admin user %s (clear_data=%v)", user.Email, clearData)
	if clearData {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/admin?msg=Database+imported", http.StatusSeeOther)
}
