package models

import (
	"encoding/json"
	"time"
)

// Difficulty levels
const (
	DifficultyBeginner     = "Beginner"
	DifficultyIntermediate = "Intermediate"
	DifficultyAdvanced     = "Advanced"
)

// Sprint sources
const (
	SourceCurated = "curated"
	SourceCustom  = "custom"
	SourceAdmin   = "admin"
)

// Difficulties lists the valid difficulty levels in display order.
var Difficulties = []string{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

// IsValidDifficulty reports whether d is one of Difficulties.
func IsValidDifficulty(d string) bool {
	for _, v := range Difficulties {
		if v == d {
			return true
		}
	}
	return false
}

// Sprint is a named, fixed-length challenge made of one Challenge per day
type Sprint struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Difficulty  string    `json:"difficulty"`
	Duration    int       `json:"duration"`
	CoverImage  string    `json:"cover_image"`
	IsPublic    bool      `json:"is_public"`
	Source      string    `json:"source"`
	CreatedBy   *int64    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VisibleTo reports whether userID may view the sprint. Zero means anonymous.
func (s *Sprint) VisibleTo(userID int64) bool {
	if s.IsPublic {
		return true
	}
	return s.CreatedBy != nil && userID != 0 && *s.CreatedBy == userID
}

// Resource is a link attached to a challenge
type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Challenge is a single day's task within a sprint
type Challenge struct {
	ID          int64      `json:"id"`
	SprintID    int64      `json:"sprint_id"`
	Day         int        `json:"day"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Content     string     `json:"content"`
	Resources   []Resource `json:"resources"`
	CreatedAt   time.Time  `json:"created_at"`
}

// EncodeResources serializes resources for storage. Nil encodes as an empty list.
func EncodeResources(resources []Resource) (string, error) {
	if resources == nil {
		resources = []Resource{}
	}
	b, err := json.Marshal(resources)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeResources parses stored resources. Empty input yields no resources.
func DecodeResources(raw string) ([]Resource, error) {
	if raw == "" {
		return nil, nil
	}
	var resources []Resource
	if err := json.Unmarshal([]byte(raw), &resources); err != nil {
		return nil, err
	}
	return resources, nil
}
