package service

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"skillsprint/internal/database"
	"skillsprint/internal/metrics"
	"skillsprint/internal/models"
	"skillsprint/internal/progress"
	"skillsprint/internal/repository"
	"skillsprint/internal/validation"
)

// MaxExtensionDays bounds a single ExtendSprint call
const MaxExtensionDays = 365

// SprintService handles the sprint catalog, generation and extension
type SprintService struct {
	db      *database.DB
	sprints *repository.SprintRepository
	metrics *metrics.Metrics
}

// NewSprintService creates a new sprint service
func NewSprintService(db *database.DB, m *metrics.Metrics) *SprintService {
	return &SprintService{
		db:      db,
		sprints: repository.NewSprintRepository(db),
		metrics: m,
	}
}

// Browse lists the sprints userID can see. Zero means anonymous.
func (s *SprintService) Browse(userID int64, filter repository.SprintFilter) ([]models.Sprint, error) {
	list, err := s.sprints.ListVisible(userID, filter)
	if err != nil {
		return nil, persistErr("list sprints", err)
	}
	return list, nil
}

// Categories lists the categories of public sprints
func (s *SprintService) Categories() ([]string, error) {
	c, err := s.sprints.ListCategories()
	if err != nil {
		return nil, persistErr("list categories", err)
	}
	return c, nil
}

// ListAll returns every sprint for the admin console
func (s *SprintService) ListAll() ([]models.Sprint, error) {
	list, err := s.sprints.ListAll()
	if err != nil {
		return nil, persistErr("list sprints", err)
	}
	return list, nil
}

// Get returns a sprint userID may see, or ErrNotFound
func (s *SprintService) Get(userID, sprintID int64) (*models.Sprint, error) {
	sprint, err := s.sprints.GetSprint(sprintID)
	if err != nil {
		return nil, persistErr("load sprint", err)
	}
	if sprint == nil || !sprint.VisibleTo(userID) {
		return nil, ErrNotFound
	}
	return sprint, nil
}

// Challenges returns a sprint's challenges ordered by day
func (s *SprintService) Challenges(sprintID int64) ([]models.Challenge, error) {
	list, err := s.sprints.ListChallenges(sprintID)
	if err != nil {
		return nil, persistErr("list challenges", err)
	}
	return list, nil
}

// ExtendResult reports what ExtendSprint changed
type ExtendResult struct {
	Sprint   *models.Sprint `json:"sprint"`
	Inserted int            `json:"inserted"`
	Skipped  int            `json:"skipped"`
}

// ExtendSprint appends challenges for days currentDuration+1 through
// currentDuration+additionalDays and grows the sprint's duration to cover
// them. Days that already have a challenge are skipped. A currentDuration
// of zero means the stored duration. Both writes commit together.
func (s *SprintService) ExtendSprint(sprintID int64, currentDuration, additionalDays int) (*ExtendResult, error) {
	if additionalDays < 1 || additionalDays > MaxExtensionDays {
		return nil, validation.ValidationError{
			Field:   "additional_days",
			Message: fmt.Sprintf("additional days must be between 1 and %d", MaxExtensionDays),
		}
	}
	if currentDuration < 0 {
		return nil, validation.ValidationError{Field: "current_duration", Message: "current duration must be at least 1"}
	}

	result := &ExtendResult{}
	err := s.db.WithTx(func(tx *database.Tx) error {
		repo := s.sprints.WithTx(tx)

		sprint, err := repo.GetSprint(sprintID)
		if err != nil {
			return err
		}
		if sprint == nil {
			return ErrNotFound
		}

		from := currentDuration
		if from == 0 {
			from = sprint.Duration
		}
		if from > sprint.Duration {
			return validation.ValidationError{
				Field:   "current_duration",
				Message: fmt.Sprintf("current duration cannot exceed the sprint's %d days", sprint.Duration),
			}
		}

		for day := from + 1; day <= from+additionalDays; day++ {
			inserted, err := repo.InsertChallenge(extensionChallenge(sprint, day))
			if err != nil {
				return err
			}
			if inserted {
				result.Inserted++
			} else {
				result.Skipped++
			}
		}

		if target := from + additionalDays; target > sprint.Duration {
			if err := repo.SetDuration(sprint.ID, target); err != nil {
				return err
			}
			sprint.Duration = target
		}
		result.Sprint = sprint
		return nil
	})
	var ve validation.ValidationError
	if errors.Is(err, ErrNotFound) || errors.As(err, &ve) {
		return nil, err
	}
	if err != nil {
		return nil, persistErr("extend sprint", err)
	}

	s.metrics.SprintExtended(result.Inserted, result.Skipped)
	log.Printf("Extended sprint %d to %d days (%d inserted, %d skipped)",
		sprintID, result.Sprint.Duration, result.Inserted, result.Skipped)
	return result, nil
}

// GenerateSprint creates a private sprint for userID from a free-text skill
func (s *SprintService) GenerateSprint(userID int64, skill, difficulty string) (*models.Sprint, error) {
	skill = strings.Join(strings.Fields(skill), " ")
	if err := validation.ValidateSkillName(skill); err != nil {
		return nil, err
	}
	if difficulty == "" {
		difficulty = models.DifficultyBeginner
	}
	if !models.IsValidDifficulty(difficulty) {
		return nil, validation.ValidateOneOf("difficulty", difficulty, models.Difficulties)
	}

	blocked, err := s.db.FindBlockedTerms(skill)
	if err != nil {
		return nil, persistErr("check blocked terms", err)
	}
	if len(blocked) > 0 {
		return nil, ErrBlockedTerm
	}

	owner := userID
	sprint := &models.Sprint{
		Title:       "30 Days of " + skill,
		Description: fmt.Sprintf("A personal 30-day plan to build your %s skills, one focused session a day.", skill),
		Category:    "Custom",
		Difficulty:  difficulty,
		Duration:    progress.DefaultDuration,
		IsPublic:    false,
		Source:      models.SourceCustom,
		CreatedBy:   &owner,
	}
	if err := s.createWithChallenges(sprint, skill); err != nil {
		return nil, persistErr("generate sprint", err)
	}
	log.Printf("Generated custom sprint %d for user %d: %q", sprint.ID, userID, skill)
	return sprint, nil
}

func (s *SprintService) createWithChallenges(sprint *models.Sprint, skill string) error {
	return s.db.WithTx(func(tx *database.Tx) error {
		repo := s.sprints.WithTx(tx)
		if err := repo.CreateSprint(sprint); err != nil {
			return err
		}
		for _, c := range generatedChallenges(sprint.ID, skill, sprint.Duration) {
			if _, err := repo.InsertChallenge(c); err != nil {
				return err
			}
		}
		return nil
	})
}

// SeedCuratedSprints creates any catalog sprint that does not exist yet and
// returns how many were created.
func (s *SprintService) SeedCuratedSprints() (int, error) {
	created := 0
	for _, entry := range curatedCatalog {
		existing, err := s.sprints.GetSprintByTitle(entry.Title)
		if err != nil {
			return created, persistErr("look up curated sprint", err)
		}
		if existing != nil {
			continue
		}

		sprint := &models.Sprint{
			Title:       entry.Title,
			Description: entry.Description,
			Category:    entry.Category,
			Difficulty:  entry.Difficulty,
			Duration:    progress.DefaultDuration,
			CoverImage:  entry.CoverImage,
			IsPublic:    true,
			Source:      models.SourceCurated,
		}
		if err := s.createWithChallenges(sprint, entry.Skill); err != nil {
			return created, persistErr("seed curated sprint", err)
		}
		created++
	}
	if created > 0 {
		log.Printf("Seeded %d curated sprints", created)
	}
	return created, nil
}
