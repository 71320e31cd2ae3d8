package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"skillsprint/internal/database"
	"skillsprint/internal/models"
)

// SprintRepository handles sprints and their daily challenges
type SprintRepository struct {
	db database.DBTX
}

// NewSprintRepository creates a new sprint repository
func NewSprintRepository(db database.DBTX) *SprintRepository {
	return &SprintRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *SprintRepository) WithTx(tx *database.Tx) *SprintRepository {
	return &SprintRepository{db: tx}
}

// SprintFilter narrows ListVisible. Empty fields match everything.
type SprintFilter struct {
	Category   string
	Difficulty string
	Query      string
}

const sprintColumns = `id, title, description, category, difficulty, duration, cover_image,
	is_public, source, created_by, created_at, updated_at`

func scanSprint(row rowScanner) (*models.Sprint, error) {
	s := &models.Sprint{}
	var createdBy sql.NullInt64
	err := row.Scan(
		&s.ID,
		&s.Title,
		&s.Description,
		&s.Category,
		&s.Difficulty,
		&s.Duration,
		&s.CoverImage,
		&s.IsPublic,
		&s.Source,
		&createdBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if createdBy.Valid {
		id := createdBy.Int64
		s.CreatedBy = &id
	}
	return s, nil
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

// CreateSprint inserts a sprint and sets its ID
func (r *SprintRepository) CreateSprint(s *models.Sprint) error {
	query := `
		INSERT INTO sprints (title, description, category, difficulty, duration, cover_image, is_public, source, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query,
		s.Title, s.Description, s.Category, s.Difficulty, s.Duration,
		s.CoverImage, s.IsPublic, s.Source, nullableID(s.CreatedBy),
	)
	if err != nil {
		return fmt.Errorf("failed to create sprint: %w", err)
	}
	s.ID = id
	return nil
}

// GetSprint retrieves a sprint by ID
func (r *SprintRepository) GetSprint(id int64) (*models.Sprint, error) {
	s, err := scanSprint(r.db.QueryRow("SELECT "+sprintColumns+" FROM sprints WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sprint: %w", err)
	}
	return s, nil
}

// GetSprintByTitle finds a curated sprint by its exact title
func (r *SprintRepository) GetSprintByTitle(title string) (*models.Sprint, error) {
	s, err := scanSprint(r.db.QueryRow(
		"SELECT "+sprintColumns+" FROM sprints WHERE title = ? AND source = ? ORDER BY id LIMIT 1",
		title, models.SourceCurated,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sprint by title: %w", err)
	}
	return s, nil
}

// ListVisible returns public sprints plus the private ones created by userID
func (r *SprintRepository) ListVisible(userID int64, filter SprintFilter) ([]models.Sprint, error) {
	var (
		where []string
		args  []interface{}
	)
	if userID != 0 {
		where = append(where, "(is_public = ? OR created_by = ?)")
		args = append(args, true, userID)
	} else {
		where = append(where, "is_public = ?")
		args = append(args, true)
	}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Difficulty != "" {
		where = append(where, "difficulty = ?")
		args = append(args, filter.Difficulty)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)")
		pattern := "%" + strings.ToLower(q) + "%"
		args = append(args, pattern, pattern)
	}

	query := "SELECT " + sprintColumns + " FROM sprints WHERE " + strings.Join(where, " AND ") +
		" ORDER BY is_public DESC, title ASC, id ASC"
	return r.querySprints(query, args...)
}

// ListAll returns every sprint for the admin console
func (r *SprintRepository) ListAll() ([]models.Sprint, error) {
	return r.querySprints("SELECT " + sprintColumns + " FROM sprints ORDER BY id ASC")
}

// ListCategories returns the distinct categories of public sprints
func (r *SprintRepository) ListCategories() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT category FROM sprints WHERE is_public = ? AND category <> '' ORDER BY category", true)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SprintRepository) querySprints(query string, args ...interface{}) ([]models.Sprint, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sprints: %w", err)
	}
	defer rows.Close()

	var sprints []models.Sprint
	for rows.Next() {
		s, err := scanSprint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sprint: %w", err)
		}
		sprints = append(sprints, *s)
	}
	return sprints, rows.Err()
}

// SetDuration updates a sprint's duration
func (r *SprintRepository) SetDuration(id int64, duration int) error {
	query := "UPDATE sprints SET duration = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, duration, id); err != nil {
		return fmt.Errorf("failed to update sprint duration: %w", err)
	}
	return nil
}

// DeleteSprint removes a sprint with its challenges and progress
func (r *SprintRepository) DeleteSprint(id int64) error {
	if _, err := r.db.Exec("DELETE FROM sprints WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete sprint: %w", err)
	}
	return nil
}

// InsertChallenge adds a challenge unless the (sprint, day) slot is taken.
// It reports whether a row was inserted.
func (r *SprintRepository) InsertChallenge(c *models.Challenge) (bool, error) {
	resources, err := models.EncodeResources(c.Resources)
	if err != nil {
		return false, fmt.Errorf("failed to encode resources: %w", err)
	}

	query := r.db.GetDialect().InsertIgnore("challenges", "sprint_id", "day", "title", "description", "content", "resources")
	result, err := r.db.Exec(query, c.SprintID, c.Day, c.Title, c.Description, c.Content, resources)
	if err != nil {
		return false, fmt.Errorf("failed to insert challenge: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}

const challengeColumns = "id, sprint_id, day, title, description, content, resources, created_at"

func scanChallenge(row rowScanner) (*models.Challenge, error) {
	c := &models.Challenge{}
	var resources string
	if err := row.Scan(&c.ID, &c.SprintID, &c.Day, &c.Title, &c.Description, &c.Content, &resources, &c.CreatedAt); err != nil {
		return nil, err
	}
	decoded, err := models.DecodeResources(resources)
	if err != nil {
		return nil, fmt.Errorf("challenge %d: bad resources: %w", c.ID, err)
	}
	c.Resources = decoded
	return c, nil
}

// ListChallenges returns a sprint's challenges ordered by day
func (r *SprintRepository) ListChallenges(sprintID int64) ([]models.Challenge, error) {
	rows, err := r.db.Query("SELECT "+challengeColumns+" FROM challenges WHERE sprint_id = ? ORDER BY day ASC", sprintID)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenges: %w", err)
	}
	defer rows.Close()

	var challenges []models.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, *c)
	}
	return challenges, rows.Err()
}

// GetChallenge returns the challenge for one day of a sprint
func (r *SprintRepository) GetChallenge(sprintID int64, day int) (*models.Challenge, error) {
	c, err := scanChallenge(r.db.QueryRow("SELECT "+challengeColumns+" FROM challenges WHERE sprint_id = ? AND day = ?", sprintID, day))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return c, nil
}

// CountChallenges returns how many days of a sprint have a challenge
func (r *SprintRepository) CountChallenges(sprintID int64) (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM challenges WHERE sprint_id = ?", sprintID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count challenges: %w", err)
	}
	return n, nil
}
