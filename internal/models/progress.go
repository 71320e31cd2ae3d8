package models

import (
	"time"

	"skillsprint/internal/progress"
)

// UserProgress is one user's enrollment in one sprint
type UserProgress struct {
	ID            int64         `json:"id"`
	UserID        int64         `json:"user_id"`
	SprintID      int64         `json:"sprint_id"`
	StartDate     progress.Date `json:"-"`
	CurrentDay    int           `json:"current_day"`
	Completed     bool          `json:"completed"`
	CompletedDate *time.Time    `json:"completed_date,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	// RawStartDate is the stored value when it could not be parsed.
	RawStartDate string `json:"-"`
}

// StartDateString is the JSON-friendly form of StartDate.
func (p *UserProgress) StartDateString() string {
	return p.StartDate.String()
}

// DayCompletion records that a user completed a given sprint day
type DayCompletion struct {
	UserID      int64
	SprintID    int64
	Day         int
	CompletedOn progress.Date
	CompletedAt time.Time
}

// Streak is the persisted consecutive-day counter for a user
type Streak struct {
	ID               int64
	UserID           int64
	CurrentStreak    int
	LongestStreak    int
	LastActivityDate progress.Date
	UpdatedAt        time.Time
}

// State converts the row to the calculator's representation.
func (s *Streak) State() progress.Streak {
	return progress.Streak{
		Current:      s.CurrentStreak,
		Longest:      s.LongestStreak,
		LastActivity: s.LastActivityDate,
	}
}

// ActiveSprint joins a user's progress with its sprint for dashboards
type ActiveSprint struct {
	Sprint         Sprint
	Progress       UserProgress
	CompletedDays  int
	CurrentDay     int
	DaysRemaining  int
	PercentDone    int
	TodayCompleted bool
}
