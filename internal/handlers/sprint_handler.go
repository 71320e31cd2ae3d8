package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"

	"skillsprint/internal/models"
	"skillsprint/internal/repository"
	"skillsprint/internal/service"
	"skillsprint/internal/validation"
)

// SprintHandler serves the sprint catalog, challenge pages and generator
type SprintHandler struct {
	sprintService   *service.SprintService
	progressService *service.ProgressService
	middleware      *Middleware
	templates       *template.Template
}

// NewSprintHandler creates a new sprint handler
func NewSprintHandler(sprintService *service.SprintService, progressService *service.ProgressService, middleware *Middleware, templates *template.Template) *SprintHandler {
	return &SprintHandler{
		sprintService:   sprintService,
		progressService: progressService,
		middleware:      middleware,
		templates:       templates,
	}
}

func pathInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid %s %q", name, r.PathValue(name))
	}
	return v, nil
}

func pathDay(r *http.Request) (int, error) {
	v, err := strconv.Atoi(r.PathValue("day"))
	if err != nil {
		return 0, validation.ValidationError{Field: "day", Message: "day must be a number"}
	}
	return v, nil
}

// ListChallenges renders the sprint catalog with optional filters
func (h *SprintHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.SprintFilter{
		Category:   q.Get("category"),
		Difficulty: q.Get("difficulty"),
		Query:      strings.TrimSpace(q.Get("q")),
	}

	sprints, err := h.sprintService.Browse(userID(r), filter)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load sprints", "Error listing sprints", err)
		return
	}
	categories, err := h.sprintService.Categories()
	if err != nil {
		log.Printf("Error loading categories: %v", err)
	}

	render(w, h.templates, "challenges.tmpl", http.StatusOK, ChallengesViewData{
		Page:         h.middleware.page(r, "Challenges"),
		Sprints:      sprints,
		Categories:   categories,
		Difficulties: models.Difficulties,
		Filter:       filter,
	})
}

// ShowChallenge renders one sprint with its days and the user's progress
func (h *SprintHandler) ShowChallenge(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		renderError(w, r, h.middleware, h.templates, http.StatusNotFound, "We couldn't find that challenge.")
		return
	}

	data, err := h.challengeView(r, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			renderError(w, r, h.middleware, h.templates, http.StatusNotFound, "We couldn't find that challenge.")
			return
		}
		log.Printf("Error loading challenge %d: %v", id, err)
		renderError(w, r, h.middleware, h.templates, http.StatusInternalServerError, "We couldn't load this challenge, please try again.")
		return
	}
	render(w, h.templates, "challenge.tmpl", http.StatusOK, data)
}

func (h *SprintHandler) challengeView(r *http.Request, sprintID int64) (*ChallengeViewData, error) {
	uid := userID(r)
	sprint, err := h.sprintService.Get(uid, sprintID)
	if err != nil {
		return nil, err
	}
	challenges, err := h.sprintService.Challenges(sprint.ID)
	if err != nil {
		return nil, err
	}

	data := &ChallengeViewData{
		Page:   h.middleware.page(r, sprint.Title),
		Sprint: sprint,
	}

	if uid != 0 {
		if data.Enrollment, err = h.progressService.Enrollment(uid, sprint); err != nil {
			return nil, err
		}
		streak, active, err := h.progressService.Streak(uid)
		if err != nil {
			return nil, err
		}
		data.Streak = newStreakView(streak, active)
	}

	for _, c := range challenges {
		day := ChallengeDayView{Challenge: c, Locked: data.Enrollment == nil}
		if e := data.Enrollment; e != nil {
			day.Completed = e.CompletedDays[c.Day]
			day.IsToday = c.Day == e.CurrentDay
		}
		data.Days = append(data.Days, day)
	}
	return data, nil
}

// StartSprint enrolls the user in a sprint
func (h *SprintHandler) StartSprint(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		renderError(w, r, h.middleware, h.templates, http.StatusNotFound, "We couldn't find that challenge.")
		return
	}

	if _, err := h.progressService.StartSprint(userID(r), id); err != nil {
		status, msg := errorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("Error starting sprint %d: %v", id, err)
		}
		renderError(w, r, h.middleware, h.templates, status, msg)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/challenge/%d", id), http.StatusSeeOther)
}

// CompleteDay is the form fallback for the completion checkbox
func (h *SprintHandler) CompleteDay(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		renderError(w, r, h.middleware, h.templates, http.StatusNotFound, "We couldn't find that challenge.")
		return
	}
	day, err := pathDay(r)
	if err != nil {
		renderError(w, r, h.middleware, h.templates, http.StatusBadRequest, "That day doesn't exist.")
		return
	}
	completed := r.FormValue("completed") != "false"

	result, err := h.progressService.CompleteTask(userID(r), id, day, completed)
	if err != nil {
		status, msg := errorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("Error completing day %d of sprint %d: %v", day, id, err)
		}
		if status == http.StatusNotFound {
			renderError(w, r, h.middleware, h.templates, status, msg)
			return
		}
		data, verr := h.challengeView(r, id)
		if verr != nil {
			renderError(w, r, h.middleware, h.templates, status, msg)
			return
		}
		data.Error = msg
		render(w, h.templates, "challenge.tmpl", status, data)
		return
	}

	if result.Warning != "" {
		data, err := h.challengeView(r, id)
		if err == nil {
			data.Warning = result.Warning
			render(w, h.templates, "challenge.tmpl", http.StatusOK, data)
			return
		}
		log.Printf("Error reloading challenge %d: %v", id, err)
	}
	http.Redirect(w, r, fmt.Sprintf("/challenge/%d#day-%d", id, day), http.StatusSeeOther)
}

// ShowGenerate renders the custom sprint form
func (h *SprintHandler) ShowGenerate(w http.ResponseWriter, r *http.Request) {
	render(w, h.templates, "new_sprint.tmpl", http.StatusOK, GenerateViewData{
		Page:         h.middleware.page(r, "Create your sprint"),
		Difficulty:   models.DifficultyBeginner,
		Difficulties: models.Difficulties,
	})
}

// Generate builds a custom sprint and opens it
func (h *SprintHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}
	skill := r.FormValue("skill")
	difficulty := r.FormValue("difficulty")

	sprint, err := h.sprintService.GenerateSprint(userID(r), skill, difficulty)
	if err != nil {
		status, msg := errorStatus(err)
		if status >= http.StatusInternalServerError {
			log.Printf("Error generating sprint: %v", err)
		}
		render(w, h.templates, "new_sprint.tmpl", status, GenerateViewData{
			Page:         h.middleware.page(r, "Create your sprint"),
			Skill:        skill,
			Difficulty:   difficulty,
			Difficulties: models.Difficulties,
			Error:        msg,
		})
		return
	}

	if _, err := h.progressService.StartSprint(userID(r), sprint.ID); err != nil {
		log.Printf("Error starting generated sprint %d: %v", sprint.ID, err)
	}
	http.Redirect(w, r, fmt.Sprintf("/challenge/%d", sprint.ID), http.StatusSeeOther)
}
