package repository

import (
	"database/sql"
	"fmt"

	"skillsprint/internal/database"
	"skillsprint/internal/models"
)

// IntakeRepository stores contact messages and problem reports
type IntakeRepository struct {
	db database.DBTX
}

// NewIntakeRepository creates a new intake repository
func NewIntakeRepository(db database.DBTX) *IntakeRepository {
	return &IntakeRepository{db: db}
}

// CreateContactMessage inserts a contact message and sets its ID
func (r *IntakeRepository) CreateContactMessage(m *models.ContactMessage) error {
	query := `
		INSERT INTO contact_messages (name, email, subject, message, user_id)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, m.Name, m.Email, m.Subject, m.Message, nullableID(m.UserID))
	if err != nil {
		return fmt.Errorf("failed to create contact message: %w", err)
	}
	m.ID = id
	return nil
}

// ListContactMessages returns the most recent messages first
func (r *IntakeRepository) ListContactMessages(limit int) ([]models.ContactMessage, error) {
	rows, err := r.db.Query(`
		SELECT id, name, email, subject, message, user_id, created_at
		FROM contact_messages
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query contact messages: %w", err)
	}
	defer rows.Close()

	var messages []models.ContactMessage
	for rows.Next() {
		var m models.ContactMessage
		var userID sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &userID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact message: %w", err)
		}
		if userID.Valid {
			id := userID.Int64
			m.UserID = &id
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CreateProblemReport inserts a problem report and sets its ID
func (r *IntakeRepository) CreateProblemReport(p *models.ProblemReport) error {
	if p.Status == "" {
		p.Status = "open"
	}
	query := `
		INSERT INTO problem_reports (user_id, email, category, description, page_url, user_agent, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, nullableID(p.UserID), p.Email, p.Category, p.Description, p.PageURL, p.UserAgent, p.Status)
	if err != nil {
		return fmt.Errorf("failed to create problem report: %w", err)
	}
	p.ID = id
	return nil
}

// ListProblemReports returns reports with the given status, or all when status is empty
func (r *IntakeRepository) ListProblemReports(status string, limit int) ([]models.ProblemReport, error) {
	query := `
		SELECT id, user_id, email, category, description, page_url, user_agent, status, created_at
		FROM problem_reports
	`
	var args []interface{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query problem reports: %w", err)
	}
	defer rows.Close()

	var reports []models.ProblemReport
	for rows.Next() {
		var p models.ProblemReport
		var userID sql.NullInt64
		if err := rows.Scan(&p.ID, &userID, &p.Email, &p.Category, &p.Description, &p.PageURL, &p.UserAgent, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan problem report: %w", err)
		}
		if userID.Valid {
			id := userID.Int64
			p.UserID = &id
		}
		reports = append(reports, p)
	}
	return reports, rows.Err()
}

// SetProblemReportStatus moves a report between open and resolved
func (r *IntakeRepository) SetProblemReportStatus(id int64, status string) error {
	if _, err := r.db.Exec("UPDATE problem_reports SET status = ? WHERE id = ?", status, id); err != nil {
		return fmt.Errorf("failed to update problem report: %w", err)
	}
	return nil
}
