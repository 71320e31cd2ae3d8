package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Startup step names, in the order the server completes them
const (
	StepDatabase   = "Database connection"
	StepMigrations = "Running migrations"
	StepTemplates  = "Loading templates"
	StepServices   = "Initializing services"
	StepSeed       = "Seeding curated sprints"
	StepRealtime   = "Starting realtime"
)

// StartupStatus tracks the initialization progress
type StartupStatus struct {
	mu       sync.RWMutex
	ready    bool
	current  string
	progress int
	steps    []StartupStep
}

type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// NewStartupStatus creates a tracker for the named steps
func NewStartupStatus(names ...string) *StartupStatus {
	s := &StartupStatus{current: "Initializing..."}
	for _, name := range names {
		s.steps = append(s.steps, StartupStep{Name: name})
	}
	return s
}

// SetCurrentStep updates the current initialization step
func (s *StartupStatus) SetCurrentStep(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = step
}

// CompleteStep marks a step as completed and updates progress
func (s *StartupStatus) CompleteStep(stepName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	completed := 0
	for i := range s.steps {
		if s.steps[i].Name == stepName {
			s.steps[i].Completed = true
		}
		if s.steps[i].Completed {
			completed++
		}
	}
	if len(s.steps) > 0 {
		s.progress = completed * 100 / len(s.steps)
	}
}

// MarkReady marks the server as fully initialized
func (s *StartupStatus) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	s.current = "Server ready"
	s.progress = 100
}

// IsReady returns whether the server is fully initialized
func (s *StartupStatus) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

type healthResponse struct {
	Status   string        `json:"status"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
	Database string        `json:"database,omitempty"`
}

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health reports readiness: 503 while starting up or when the database is unreachable
func (s *StartupStatus) Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		resp := healthResponse{
			Status:   "starting",
			Current:  s.current,
			Progress: s.progress,
			Steps:    append([]StartupStep(nil), s.steps...),
		}
		ready := s.ready
		s.mu.RUnlock()

		if !ready {
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}

		resp.Status = "ok"
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				resp.Status = "degraded"
				resp.Database = "unreachable"
				respondJSON(w, http.StatusServiceUnavailable, resp)
				return
			}
			resp.Database = "ok"
		}
		respondJSON(w, http.StatusOK, resp)
	}
}
