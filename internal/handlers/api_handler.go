package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"skillsprint/internal/models"
	"skillsprint/internal/realtime"
	"skillsprint/internal/service"
)

// sseKeepAlive is how often an idle event stream gets a comment line
const sseKeepAlive = 25 * time.Second

// APIHandler serves the JSON API used by the challenge page
type APIHandler struct {
	sprintService   *service.SprintService
	progressService *service.ProgressService
	hub             *realtime.Hub
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(sprintService *service.SprintService, progressService *service.ProgressService, hub *realtime.Hub) *APIHandler {
	return &APIHandler{
		sprintService:   sprintService,
		progressService: progressService,
		hub:             hub,
	}
}

type completeRequest struct {
	Completed *bool `json:"completed"`
}

type completeResponse struct {
	Progress *models.UserProgress `json:"progress"`
	Streak   StreakView           `json:"streak"`
	Warning  string               `json:"warning,omitempty"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// CompleteDay marks a day completed or not and returns the new streak
func (h *APIHandler) CompleteDay(w http.ResponseWriter, r *http.Request) {
	sprintID, err := pathInt64(r, "id")
	if err != nil {
		respondJSONError(w, http.StatusNotFound, ErrNotFound, "", nil)
		return
	}
	day, err := pathDay(r)
	if err != nil {
		respondServiceError(w, "", err)
		return
	}

	var req completeRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Completed == nil {
		respondJSONError(w, http.StatusBadRequest, `Request body must be {"completed": true|false}`, "", nil)
		return
	}

	result, err := h.progressService.CompleteTask(userID(r), sprintID, day, *req.Completed)
	if err != nil {
		respondServiceError(w, fmt.Sprintf("Error completing day %d of sprint %d", day, sprintID), err)
		return
	}

	resp := completeResponse{Progress: result.Progress, Warning: result.Warning}
	if *req.Completed && result.Warning == "" {
		resp.Streak = newStreakView(result.Streak, true)
	} else if streak, active, err := h.progressService.Streak(userID(r)); err == nil {
		resp.Streak = newStreakView(streak, active)
	} else {
		log.Printf("Error loading streak after completion: %v", err)
	}
	respondJSON(w, http.StatusOK, resp)
}

// Streak returns the user's streak for polling clients
func (h *APIHandler) Streak(w http.ResponseWriter, r *http.Request) {
	streak, active, err := h.progressService.Streak(userID(r))
	if err != nil {
		respondServiceError(w, "Error loading streak", err)
		return
	}
	respondJSON(w, http.StatusOK, newStreakView(streak, active))
}

// Events streams the user's realtime events as Server-Sent Events
func (h *APIHandler) Events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	uid := userID(r)
	events, cancel := h.hub.Subscribe(uid)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "retry: 3000\n\n")
	if err := rc.Flush(); err != nil {
		log.Printf("Event stream for user %d cannot flush: %v", uid, err)
		return
	}
	// The stream outlives the server's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case e, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(e)
			if err != nil {
				log.Printf("Error encoding event: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, payload); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

type extendRequest struct {
	CurrentDuration int `json:"current_duration"`
	AdditionalDays  int `json:"additional_days"`
}

// Extend appends days to a sprint
func (h *APIHandler) Extend(w http.ResponseWriter, r *http.Request) {
	sprintID, err := pathInt64(r, "id")
	if err != nil {
		respondJSONError(w, http.StatusNotFound, ErrNotFound, "", nil)
		return
	}

	var req extendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, ErrInvalidFormData, "", nil)
		return
	}

	result, err := h.sprintService.ExtendSprint(sprintID, req.CurrentDuration, req.AdditionalDays)
	if err != nil {
		respondServiceError(w, fmt.Sprintf("Error extending sprint %d", sprintID), err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type generateRequest struct {
	Skill      string `json:"skill"`
	Difficulty string `json:"difficulty"`
}

// Generate creates a private sprint for a skill and enrolls the user
func (h *APIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, ErrInvalidFormData, "", nil)
		return
	}

	uid := userID(r)
	sprint, err := h.sprintService.GenerateSprint(uid, req.Skill, req.Difficulty)
	if err != nil {
		respondServiceError(w, "Error generating sprint", err)
		return
	}
	if _, err := h.progressService.StartSprint(uid, sprint.ID); err != nil {
		log.Printf("Error starting generated sprint %d: %v", sprint.ID, err)
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"sprint": sprint})
}
