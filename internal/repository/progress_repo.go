package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"skillsprint/internal/database"
	"skillsprint/internal/models"
	"skillsprint/internal/progress"
)

// ProgressRepository handles enrollment progress, day completions and streaks
type ProgressRepository struct {
	db database.DBTX
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db database.DBTX) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ProgressRepository) WithTx(tx *database.Tx) *ProgressRepository {
	return &ProgressRepository{db: tx}
}

const progressColumns = `id, user_id, sprint_id, start_date, current_day, completed, completed_date, created_at, updated_at`

func scanProgress(row rowScanner) (*models.UserProgress, error) {
	p := &models.UserProgress{}
	var (
		startDate     string
		completedDate sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.SprintID,
		&startDate,
		&p.CurrentDay,
		&p.Completed,
		&completedDate,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if d, err := progress.ParseDate(startDate); err == nil {
		p.StartDate = d
	} else {
		p.RawStartDate = startDate
	}
	if completedDate.Valid {
		t := completedDate.Time
		p.CompletedDate = &t
	}
	return p, nil
}

// GetProgress returns a user's progress in a sprint, or nil if not enrolled
func (r *ProgressRepository) GetProgress(userID, sprintID int64) (*models.UserProgress, error) {
	p, err := scanProgress(r.db.QueryRow(
		"SELECT "+progressColumns+" FROM user_progress WHERE user_id = ? AND sprint_id = ?",
		userID, sprintID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return p, nil
}

// ListProgress returns all of a user's enrollments, most recently touched first
func (r *ProgressRepository) ListProgress(userID int64) ([]models.UserProgress, error) {
	rows, err := r.db.Query(
		"SELECT "+progressColumns+" FROM user_progress WHERE user_id = ? ORDER BY updated_at DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}
	defer rows.Close()

	var list []models.UserProgress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// UpsertProgress inserts or updates the (user, sprint) row in one statement.
// start_date is only written on insert. completed_date keeps its stored
// value when the row was already completed and stays completed.
func (r *ProgressRepository) UpsertProgress(userID, sprintID int64, startDate progress.Date, currentDay int, completed bool, completedDate *time.Time) error {
	var cd interface{}
	if completedDate != nil {
		cd = completedDate.UTC()
	}
	query := r.db.GetDialect().UpsertProgress()
	if _, err := r.db.Exec(query, userID, sprintID, startDate.String(), currentDay, completed, cd); err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

// SetStartDate overwrites a stored start date
func (r *ProgressRepository) SetStartDate(userID, sprintID int64, startDate progress.Date) error {
	query := "UPDATE user_progress SET start_date = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ? AND sprint_id = ?"
	if _, err := r.db.Exec(query, startDate.String(), userID, sprintID); err != nil {
		return fmt.Errorf("failed to set start date: %w", err)
	}
	return nil
}

// MarkDay records a day completion. It reports false if the day was
// already recorded.
func (r *ProgressRepository) MarkDay(userID, sprintID int64, day int, on progress.Date, at time.Time) (bool, error) {
	query := r.db.GetDialect().InsertIgnore("day_completions", "user_id", "sprint_id", "day", "completed_on", "completed_at")
	result, err := r.db.Exec(query, userID, sprintID, day, on.String(), at.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to record day completion: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read day completion result: %w", err)
	}
	return n > 0, nil
}

// UnmarkDay removes a day completion and reports whether one existed
func (r *ProgressRepository) UnmarkDay(userID, sprintID int64, day int) (bool, error) {
	result, err := r.db.Exec("DELETE FROM day_completions WHERE user_id = ? AND sprint_id = ? AND day = ?", userID, sprintID, day)
	if err != nil {
		return false, fmt.Errorf("failed to remove day completion: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read day completion result: %w", err)
	}
	return n > 0, nil
}

// CompletedDays returns the completed day numbers of a sprint in order
func (r *ProgressRepository) CompletedDays(userID, sprintID int64) ([]int, error) {
	rows, err := r.db.Query("SELECT day FROM day_completions WHERE user_id = ? AND sprint_id = ? ORDER BY day", userID, sprintID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed days: %w", err)
	}
	defer rows.Close()

	days := []int{}
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan completed day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// CompletionDates returns the distinct local dates on which a user completed anything
func (r *ProgressRepository) CompletionDates(userID int64) ([]progress.Date, error) {
	rows, err := r.db.Query("SELECT DISTINCT completed_on FROM day_completions WHERE user_id = ? ORDER BY completed_on", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query completion dates: %w", err)
	}
	defer rows.Close()

	var dates []progress.Date
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan completion date: %w", err)
		}
		d, err := progress.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("bad completion date %q: %w", raw, err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// UsersWithCompletions lists every user that has at least one completion
func (r *ProgressRepository) UsersWithCompletions() ([]int64, error) {
	rows, err := r.db.Query("SELECT DISTINCT user_id FROM day_completions ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetStreak returns a user's streak row, or nil if none exists
func (r *ProgressRepository) GetStreak(userID int64) (*models.Streak, error) {
	query := `
		SELECT id, user_id, current_streak, longest_streak, last_activity_date, updated_at
		FROM streaks
		WHERE user_id = ?
	`
	s := &models.Streak{}
	var last sql.NullString
	err := r.db.QueryRow(query, userID).Scan(&s.ID, &s.UserID, &s.CurrentStreak, &s.LongestStreak, &last, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}
	if last.Valid {
		d, err := progress.ParseDate(last.String)
		if err != nil {
			return nil, fmt.Errorf("bad last activity date %q: %w", last.String, err)
		}
		s.LastActivityDate = d
	}
	return s, nil
}

// EnsureStreak creates an empty streak row for userID if none exists
func (r *ProgressRepository) EnsureStreak(userID int64) error {
	query := r.db.GetDialect().InsertIgnore("streaks", "user_id", "current_streak", "longest_streak")
	if _, err := r.db.Exec(query, userID, 0, 0); err != nil {
		return fmt.Errorf("failed to create streak: %w", err)
	}
	return nil
}

func dateArg(d progress.Date) interface{} {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

// SwapStreak writes next only if the stored row still equals prev.
// It reports false when another writer got there first.
func (r *ProgressRepository) SwapStreak(userID int64, prev, next progress.Streak) (bool, error) {
	query := `
		UPDATE streaks
		SET current_streak = ?, longest_streak = ?, last_activity_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND current_streak = ? AND longest_streak = ?
	`
	args := []interface{}{next.Current, next.Longest, dateArg(next.LastActivity), userID, prev.Current, prev.Longest}
	if prev.LastActivity.IsZero() {
		query += " AND last_activity_date IS NULL"
	} else {
		query += " AND last_activity_date = ?"
		args = append(args, prev.LastActivity.String())
	}

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update streak: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read streak update result: %w", err)
	}
	return n == 1, nil
}

// PutStreak overwrites a user's streak unconditionally
func (r *ProgressRepository) PutStreak(userID int64, s progress.Streak) error {
	if err := r.EnsureStreak(userID); err != nil {
		return err
	}
	query := `
		UPDATE streaks
		SET current_streak = ?, longest_streak = ?, last_activity_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?
	`
	if _, err := r.db.Exec(query, s.Current, s.Longest, dateArg(s.LastActivity), userID); err != nil {
		return fmt.Errorf("failed to write streak: %w", err)
	}
	return nil
}
