package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"skillsprint/internal/service"
	"skillsprint/internal/validation"
)

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	http.Error(w, userMsg, status)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

func respondJSONError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}
	respondJSON(w, status, map[string]string{"error": userMsg})
}

// errorStatus maps a service error to an HTTP status and a message safe to
// show the user.
func errorStatus(err error) (int, string) {
	var ve validation.ValidationError
	var pe *service.PersistenceError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Message
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, ErrNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, ErrForbidden
	case errors.Is(err, service.ErrBlockedTerm):
		return http.StatusBadRequest, "That name isn't allowed, please choose another"
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &pe):
		return http.StatusInternalServerError, "Something went wrong saving your changes, please try again"
	default:
		return http.StatusInternalServerError, ErrInternalServerError
	}
}

// respondServiceError writes err as JSON, logging only server-side failures
func respondServiceError(w http.ResponseWriter, logMsg string, err error) {
	status, msg := errorStatus(err)
	if status < http.StatusInternalServerError {
		respondJSONError(w, status, msg, "", nil)
		return
	}
	respondJSONError(w, status, msg, logMsg, err)
}
