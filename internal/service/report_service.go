package service

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"skillsprint/internal/repository"
)

// ReportService renders PDF progress reports
type ReportService struct {
	users    *repository.UserRepository
	progress *ProgressService
}

// NewReportService creates a new report service
func NewReportService(users *repository.UserRepository, progress *ProgressService) *ReportService {
	return &ReportService{users: users, progress: progress}
}

// WriteProgressReport writes a PDF with the user's streak and sprint progress to w
func (s *ReportService) WriteProgressReport(w io.Writer, userID int64) error {
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return persistErr("load user", err)
	}
	if user == nil {
		return ErrNotFound
	}

	dash, err := s.progress.Dashboard(userID)
	if err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("SkillSprint progress report", true)
	pdf.SetAuthor("SkillSprint", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, tr(fmt.Sprintf("Progress Report: %s", user.Name)))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Generated %s", dash.Today)))
	pdf.Ln(12)

	// Streak
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, "Streak")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 12)
	current := dash.Streak.Current
	if !dash.StreakActive {
		current = 0
	}
	pdf.Cell(0, 8, fmt.Sprintf("Current streak: %d days", current))
	pdf.Ln(6)
	pdf.Cell(0, 8, fmt.Sprintf("Longest streak: %d days", dash.Streak.Longest))
	pdf.Ln(6)
	if !dash.Streak.LastActivity.IsZero() {
		pdf.Cell(0, 8, fmt.Sprintf("Last activity: %s", dash.Streak.LastActivity))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	// Sprints
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, "Sprints")
	pdf.Ln(10)

	if len(dash.Sprints) == 0 {
		pdf.SetFont("Arial", "", 12)
		pdf.Cell(0, 8, "  - No sprints started yet.")
		pdf.Ln(8)
	}

	pdf.SetFont("Arial", "B", 11)
	if len(dash.Sprints) > 0 {
		pdf.CellFormat(90, 8, "Sprint", "B", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, "Day", "B", 0, "C", false, 0, "")
		pdf.CellFormat(30, 8, "Completed", "B", 0, "C", false, 0, "")
		pdf.CellFormat(35, 8, "Progress", "B", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "", 11)
	for _, a := range dash.Sprints {
		title := a.Sprint.Title
		if a.Progress.Completed {
			title += " [x]"
		}
		pdf.CellFormat(90, 8, tr(title), "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%d/%d", a.CurrentDay, a.Sprint.Duration), "", 0, "C", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%d", a.CompletedDays), "", 0, "C", false, 0, "")
		pdf.CellFormat(35, 8, fmt.Sprintf("%d%%", a.PercentDone), "", 1, "R", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}
