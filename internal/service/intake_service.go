package service

import (
	"context"
	"log"
	"strings"

	"skillsprint/internal/models"
	"skillsprint/internal/repository"
	"skillsprint/internal/validation"
)

const (
	maxSubjectLen   = 200
	maxPageURLLen   = 500
	maxUserAgentLen = 500
)

// IntakeService accepts contact messages and problem reports from the public site
type IntakeService struct {
	repo  *repository.IntakeRepository
	email *EmailService
}

// NewIntakeService creates a new intake service. email may be nil.
func NewIntakeService(repo *repository.IntakeRepository, email *EmailService) *IntakeService {
	return &IntakeService{repo: repo, email: email}
}

// ContactInput is the contact form payload
type ContactInput struct {
	Name    string
	Email   string
	Subject string
	Message string
	UserID  *int64
}

// SubmitContact validates and stores a contact message, then notifies support
func (s *IntakeService) SubmitContact(ctx context.Context, in ContactInput) (*models.ContactMessage, error) {
	m := &models.ContactMessage{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Subject: strings.TrimSpace(in.Subject),
		Message: strings.TrimSpace(in.Message),
		UserID:  in.UserID,
	}

	if err := validation.ValidateName(m.Name); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(m.Email); err != nil {
		return nil, err
	}
	if len(m.Subject) > maxSubjectLen {
		return nil, validation.ValidationError{Field: "subject", Message: "subject is too long"}
	}
	if err := validation.ValidateText("message", m.Message, validation.MaxMessageLen); err != nil {
		return nil, err
	}

	if err := s.repo.CreateContactMessage(m); err != nil {
		return nil, persistErr("save contact message", err)
	}

	if s.email != nil {
		if err := s.email.SendContactNotification(ctx, m); err != nil {
			log.Printf("Failed to send contact notification for message %d: %v", m.ID, err)
		}
	}
	return m, nil
}

// ProblemInput is the problem report form payload
type ProblemInput struct {
	Email       string
	Category    string
	Description string
	PageURL     string
	UserAgent   string
	UserID      *int64
}

// SubmitProblemReport validates and stores a problem report, then notifies support
func (s *IntakeService) SubmitProblemReport(ctx context.Context, in ProblemInput) (*models.ProblemReport, error) {
	p := &models.ProblemReport{
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		Category:    strings.ToLower(strings.TrimSpace(in.Category)),
		Description: strings.TrimSpace(in.Description),
		PageURL:     truncate(strings.TrimSpace(in.PageURL), maxPageURLLen),
		UserAgent:   truncate(in.UserAgent, maxUserAgentLen),
		UserID:      in.UserID,
		Status:      "open",
	}

	if p.Email != "" {
		if err := validation.ValidateEmail(p.Email); err != nil {
			return nil, err
		}
	}
	if err := validation.ValidateOneOf("category", p.Category, models.ProblemCategories); err != nil {
		return nil, err
	}
	if err := validation.ValidateText("description", p.Description, validation.MaxMessageLen); err != nil {
		return nil, err
	}

	if err := s.repo.CreateProblemReport(p); err != nil {
		return nil, persistErr("save problem report", err)
	}

	if s.email != nil {
		if err := s.email.SendProblemReportNotification(ctx, p); err != nil {
			log.Printf("Failed to send problem report notification for report %d: %v", p.ID, err)
		}
	}
	return p, nil
}

// ContactMessages lists the most recent contact messages
func (s *IntakeService) ContactMessages(limit int) ([]models.ContactMessage, error) {
	messages, err := s.repo.ListContactMessages(limit)
	if err != nil {
		return nil, persistErr("list contact messages", err)
	}
	return messages, nil
}

// ProblemReports lists reports, optionally filtered by status
func (s *IntakeService) ProblemReports(status string, limit int) ([]models.ProblemReport, error) {
	reports, err := s.repo.ListProblemReports(status, limit)
	if err != nil {
		return nil, persistErr("list problem reports", err)
	}
	return reports, nil
}

// ResolveProblemReport marks a report resolved
func (s *IntakeService) ResolveProblemReport(id int64) error {
	return persistErr("resolve problem report", s.repo.SetProblemReportStatus(id, "resolved"))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
