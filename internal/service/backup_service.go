package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"skillsprint/internal/database"
)

// BackupVersion is written into every export
const BackupVersion = "2.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version         string                 `json:"version"`
	ExportedAt      time.Time              `json:"exported_at"`
	Users           []UserBackup           `json:"users"`
	Sprints         []SprintBackup         `json:"sprints"`
	Challenges      []ChallengeBackup      `json:"challenges"`
	Progress        []ProgressBackup       `json:"user_progress"`
	DayCompletions  []DayCompletionBackup  `json:"day_completions"`
	Streaks         []StreakBackup         `json:"streaks"`
	ContactMessages []ContactMessageBackup `json:"contact_messages"`
	ProblemReports  []ProblemReportBackup  `json:"problem_reports"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	AvatarURL     string    `json:"avatar_url"`
	Bio           string    `json:"bio"`
	Skills        string    `json:"skills"`
	Timezone      string    `json:"timezone"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	IsAdmin       bool      `json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SprintBackup represents a sprint for backup
type SprintBackup struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Difficulty  string    `json:"difficulty"`
	Duration    int       `json:"duration"`
	CoverImage  string    `json:"cover_image"`
	IsPublic    bool      `json:"is_public"`
	Source      string    `json:"source"`
	CreatedBy   *int64    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ChallengeBackup represents a challenge for backup
type ChallengeBackup struct {
	ID          int64     `json:"id"`
	SprintID    int64     `json:"sprint_id"`
	Day         int       `json:"day"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Resources   string    `json:"resources"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProgressBackup represents a user_progress row for backup
type ProgressBackup struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	SprintID      int64      `json:"sprint_id"`
	StartDate     string     `json:"start_date"`
	CurrentDay    int        `json:"current_day"`
	Completed     bool       `json:"completed"`
	CompletedDate *time.Time `json:"completed_date"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DayCompletionBackup represents a day completion for backup
type DayCompletionBackup struct {
	UserID      int64     `json:"user_id"`
	SprintID    int64     `json:"sprint_id"`
	Day         int       `json:"day"`
	CompletedOn string    `json:"completed_on"`
	CompletedAt time.Time `json:"completed_at"`
}

// StreakBackup represents a streak for backup
type StreakBackup struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	CurrentStreak    int       `json:"current_streak"`
	LongestStreak    int       `json:"longest_streak"`
	LastActivityDate *string   `json:"last_activity_date"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ContactMessageBackup represents a contact message for backup
type ContactMessageBackup struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	UserID    *int64    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ProblemReportBackup represents a problem report for backup
type ProblemReportBackup struct {
	ID          int64     `json:"id"`
	UserID      *int64    `json:"user_id"`
	Email       string    `json:"email"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	PageURL     string    `json:"page_url"`
	UserAgent   string    `json:"user_agent"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// backupTables lists tables in dependency order; Clear walks it backwards
var backupTables = []string{
	"users",
	"sprints",
	"challenges",
	"user_progress",
	"day_completions",
	"streaks",
	"contact_messages",
	"problem_reports",
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db  *database.DB
	now func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db, now: time.Now}
}

// Export reads every table into a BackupData
func (s *BackupService) Export() (*BackupData, error) {
	backup := &BackupData{Version: BackupVersion, ExportedAt: s.now().UTC()}

	steps := []struct {
		name string
		fn   func(*BackupData) error
	}{
		{"users", s.exportUsers},
		{"sprints", s.exportSprints},
		{"challenges", s.exportChallenges},
		{"progress", s.exportProgress},
		{"day completions", s.exportDayCompletions},
		{"streaks", s.exportStreaks},
		{"contact messages", s.exportContactMessages},
		{"problem reports", s.exportProblemReports},
	}
	for _, step := range steps {
		if err := step.fn(backup); err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", step.name, err)
		}
	}
	return backup, nil
}

// ExportToWriter writes an indented JSON backup to w
func (s *BackupService) ExportToWriter(w io.Writer) (*BackupData, error) {
	backup, err := s.Export()
	if err != nil {
		return nil, err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported: %d users, %d sprints, %d challenges, %d progress rows, %d streaks",
		len(backup.Users), len(backup.Sprints), len(backup.Challenges), len(backup.Progress), len(backup.Streaks))
	return backup, nil
}

// ImportFromReader restores a JSON backup in one transaction. Rows keep
// their original IDs, so the target tables should be empty.
func (s *BackupService) ImportFromReader(r io.Reader) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	err := s.db.WithTx(func(tx *database.Tx) error {
		steps := []struct {
			name string
			fn   func(*database.Tx, *BackupData) error
		}{
			{"users", importUsers},
			{"sprints", importSprints},
			{"challenges", importChallenges},
			{"progress", importProgress},
			{"day completions", importDayCompletions},
			{"streaks", importStreaks},
			{"contact messages", importContactMessages},
			{"problem reports", importProblemReports},
		}
		for _, step := range steps {
			if err := step.fn(tx, &backup); err != nil {
				return fmt.Errorf("failed to import %s: %w", step.name, err)
			}
		}
		return resetSequences(tx)
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database import completed successfully")
	return &backup, nil
}

// Clear deletes every backed-up table plus sessions and reset tokens
func (s *BackupService) Clear() error {
	return s.db.WithTx(func(tx *database.Tx) error {
		tables := append([]string{"sessions", "password_reset_tokens"}, backupTables...)
		for i := len(tables) - 1; i >= 0; i-- {
			if _, err := tx.Exec("DELETE FROM " + tables[i]); err != nil {
				return fmt.Errorf("failed to clear %s: %w", tables[i], err)
			}
		}
		return nil
	})
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func ptrArg[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func (s *BackupService) exportUsers(b *BackupData) error {
	rows, err := s.db.Query(`SELECT id, email, password_hash, name, avatar_url, bio, skills, timezone,
		COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), is_admin, created_at, updated_at
		FROM users ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.AvatarURL, &u.Bio, &u.Skills, &u.Timezone,
			&u.OAuthProvider, &u.OAuthSubject, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		b.Users = append(b.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportSprints(b *BackupData) error {
	rows, err := s.db.Query(`SELECT id, title, description, category, difficulty, duration, cover_image,
		is_public, source, created_by, created_at, updated_at FROM sprints ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var sp SprintBackup
		var createdBy sql.NullInt64
		if err := rows.Scan(&sp.ID, &sp.Title, &sp.Description, &sp.Category, &sp.Difficulty, &sp.Duration, &sp.CoverImage,
			&sp.IsPublic, &sp.Source, &createdBy, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
			return err
		}
		sp.CreatedBy = nullInt(createdBy)
		b.Sprints = append(b.Sprints, sp)
	}
	return rows.Err()
}

func (s *BackupService) exportChallenges(b *BackupData) error {
	rows, err := s.db.Query(`SELECT id, sprint_id, day, title, description, content, resources, created_at
		FROM challenges ORDER BY sprint_id, day`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c ChallengeBackup
		if err := rows.Scan(&c.ID, &c.SprintID, &c.Day, &c.Title, &c.Description, &c.Content, &c.Resources, &c.CreatedAt); err != nil {
			return err
		}
		b.Challenges = append(b.Challenges, c)
	}
	return rows.Err()
}

func (s *BackupService) exportProgress(b *BackupData) error {
	rows, err := s.db.Query(`SELECT id, user_id, sprint_id, start_date, current_day, completed, completed_date, created_at, updated_at
		FROM user_progress ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p ProgressBackup
		var completedDate sql.NullTime
		if err := rows.Scan(&p.ID, &p.UserID, &p.SprintID, &p.StartDate, &p.CurrentDay, &p.Completed, &completedDate,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		if completedDate.Valid {
			p.CompletedDate = &completedDate.Time
		}
		b.Progress = append(b.Progress, p)
	}
	return rows.Err()
}

func (s *BackupService) exportDayCompletions(b *BackupData) error {
	rows, err := s.db.Query(`SELECT user_id, sprint_id, day, completed_on, completed_at
		FROM day_completions ORDER BY user_id, sprint_id, day`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var d DayCompletionBackup
		if err := rows.Scan(&d.UserID, &d.SprintID, &d.Day, &d.CompletedOn, &d.CompletedAt); err != nil {
			return err
		}
		b.DayCompletions = append(b.DayCompletions, d)
	}
	return rows.Err()
}

func (s *BackupService) exportStreaks(b *BackupData) error {
	rows, err := s.db.Query(`SELECT id, user_id, current_streak, longest_streak, last_activity_date, updated_at
		FROM streaks ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var st StreakBackup
		var last sql.NullString
		if err := rows.Scan(&st.ID, &st.UserID, &st.CurrentStreak, &st.LongestStreak, &last, &st.UpdatedAt); err != nil {
			return err
		}
		if last.Valid {
			st.LastActivityDate = &last.String
		}
		b.Streaks = append(b.Streaks, st)
	}
	return rows.Err()
}

func (s *BackupService) exportContactMessages(b *BackupData) error {
	rows, err := s.db.Query(`SELECT id, name, email, subject, message, user_id, created_at FROM contact_messages ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m ContactMessageBackup
		var userID sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &userID, &m.CreatedAt); err != nil {
			return err
		}
		m.UserID = nullInt(userID)
		b.ContactMessages = append(b.ContactMessages, m)
	}
	return rows.Err()
}

func (s *BackupService) exportProblemReports(b *BackupData) error {
	rows, err := s.db.Query(`SELECT id, user_id, email, category, description, page_url, user_agent, status, created_at
		FROM problem_reports ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p ProblemReportBackup
		var userID sql.NullInt64
		if err := rows.Scan(&p.ID, &userID, &p.Email, &p.Category, &p.Description, &p.PageURL, &p.UserAgent, &p.Status, &p.CreatedAt); err != nil {
			return err
		}
		p.UserID = nullInt(userID)
		b.ProblemReports = append(b.ProblemReports, p)
	}
	return rows.Err()
}

func importUsers(tx *database.Tx, b *BackupData) error {
	query := `INSERT INTO users (id, email, password_hash, name, avatar_url, bio, skills, timezone,
		oauth_provider, oauth_subject, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, u := range b.Users {
		skills := u.Skills
		if skills == "" {
			skills = "[]"
		}
		if _, err := tx.Exec(query, u.ID, u.Email, u.PasswordHash, u.Name, u.AvatarURL, u.Bio, skills, u.Timezone,
			nullIfEmpty(u.OAuthProvider), nullIfEmpty(u.OAuthSubject), u.IsAdmin, u.CreatedAt, u.UpdatedAt); err != nil {
			return fmt.Errorf("user %d: %w", u.ID, err)
		}
	}
	return nil
}

func importSprints(tx *database.Tx, b *BackupData) error {
	query := `INSERT INTO sprints (id, title, description, category, difficulty, duration, cover_image,
		is_public, source, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, sp := range b.Sprints {
		if _, err := tx.Exec(query, sp.ID, sp.Title, sp.Description, sp.Category, sp.Difficulty, sp.Duration, sp.CoverImage,
			sp.IsPublic, sp.Source, ptrArg(sp.CreatedBy), sp.CreatedAt, sp.UpdatedAt); err != nil {
			return fmt.Errorf("sprint %d: %w", sp.ID, err)
		}
	}
	return nil
}

func importChallenges(tx *database.Tx, b *BackupData) error {
	query := `INSERT INTO challenges (id, sprint_id, day, title, description, content, resources, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for _, c := range b.Challenges {
		resources := c.Resources
		if resources == "" {
			resources = "[]"
		}
		if _, err := tx.Exec(query, c.ID, c.SprintID, c.Day, c.Title, c.Description, c.Content, resources, c.CreatedAt); err != nil {
			return fmt.Errorf("challenge %d: %w", c.ID, err)
		}
	}
	return nil
}

func importProgress(tx *database.Tx, b *BackupData) error {
	query := `INSERT INTO user_progress (id, user_id, sprint_id, start_date, current_day, completed, completed_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, p := range b.Progress {
		if _, err := tx.Exec(query, p.ID, p.UserID, p.SprintID, p.StartDate, p.CurrentDay, p.Completed,
			ptrArg(p.CompletedDate), p.CreatedAt, p.UpdatedAt); err != nil {
			return fmt.Errorf("progress %d: %w", p.ID, err)
		}
	}
	return nil
}

func importDayCompletions(tx *database.Tx, b *BackupData) error {
	query := `INSERT INTO day_completions (user_id, sprint_id, day, completed_on, completed_at) VALUES (?, ?, ?, ?, ?)`
	for _, d := range b.DayCompletions {
		if _, err := tx.Exec(query, d.UserID, d.SprintID, d.Day, d.CompletedOn, d.CompletedAt); err != nil {
			return fmt.Errorf("completion %d/%d/%d: %w", d.UserID, d.SprintID, d.Day, err)
		}
	}
	return nil
}

func importStreaks(tx *database.Tx, b *BackupData) error {
	query := `INSERT INTO streaks (id, user_id, current_streak, longest_streak, last_activity_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	for _, st := range b.Streaks {
		if _, err := tx.Exec(query, st.ID, st.UserID, st.CurrentStreak, st.LongestStreak, ptrArg(st.LastActivityDate), st.UpdatedAt); err != nil {
			return fmt.Errorf("streak %d: %w", st.ID, err)
		}
	}
	return nil
}

func importContactMessages(tx *database.Tx, b *BackupData) error {
	query := `INSERT INTO contact_messages (id, name, email, subject, message, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, m := range b.ContactMessages {
		if _, err := tx.Exec(query, m.ID, m.Name, m.Email, m.Subject, m.Message, ptrArg(m.UserID), m.CreatedAt); err != nil {
			return fmt.Errorf("contact message %d: %w", m.ID, err)
		}
	}
	return nil
}

func importProblemReports(tx *database.Tx, b *BackupData) error {
	query := `INSERT INTO problem_reports (id, user_id, email, category, description, page_url, user_agent, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, p := range b.ProblemReports {
		if _, err := tx.Exec(query, p.ID, ptrArg(p.UserID), p.Email, p.Category, p.Description, p.PageURL, p.UserAgent, p.Status, p.CreatedAt); err != nil {
			return fmt.Errorf("problem report %d: %w", p.ID, err)
		}
	}
	return nil
}

// resetSequences moves Postgres id sequences past the imported IDs. SQLite
// and MySQL advance their counters on explicit inserts.
func resetSequences(tx *database.Tx) error {
	if _, ok := tx.GetDialect().(*database.PostgresDialect); !ok {
		return nil
	}
	for _, table := range backupTables {
		if table == "day_completions" {
			continue
		}
		query := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %s", table, table)
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
		}
	}
	return nil
}
