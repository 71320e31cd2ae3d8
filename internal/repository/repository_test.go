package repository

import (
	"testing"
	"time"

	"skillsprint/internal/database"
	"skillsprint/internal/models"
	"skillsprint/internal/progress"
	"skillsprint/internal/testutil"
)

func createUser(t *testing.T, db *database.DB, email string) *models.User {
	t.Helper()
	user, err := NewUserRepository(db).CreateUser(email, "hash", "Test User")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return user
}

func createSprint(t *testing.T, db *database.DB, title string, public bool, owner *int64) *models.Sprint {
	t.Helper()
	s := &models.Sprint{
		Title:      title,
		Category:   "Tech",
		Difficulty: models.DifficultyBeginner,
		Duration:   30,
		IsPublic:   public,
		Source:     models.SourceCurated,
		CreatedBy:  owner,
	}
	if !public {
		s.Source = models.SourceCustom
	}
	if err := NewSprintRepository(db).CreateSprint(s); err != nil {
		t.Fatalf("CreateSprint() error = %v", err)
	}
	return s
}

func TestUserRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)

	first := createUser(t, db, "first@example.com")
	second := createUser(t, db, "second@example.com")
	if !first.IsAdmin || second.IsAdmin {
		t.Errorf("only the first user should be admin: first=%v second=%v", first.IsAdmin, second.IsAdmin)
	}

	if err := repo.UpdateProfile(second.ID, "Ada L", "https://example.com/a.png", "hi", []string{"Go", "Chess"}, "Europe/London"); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	got, err := repo.GetUserByEmail("second@example.com")
	if err != nil || got == nil {
		t.Fatalf("GetUserByEmail() = %v, %v", got, err)
	}
	if got.Name != "Ada L" || len(got.Skills) != 2 || got.Skills[1] != "Chess" || got.Timezone != "Europe/London" {
		t.Errorf("profile not stored: %+v", got)
	}

	missing, err := repo.GetUserByID(9999)
	if err != nil || missing != nil {
		t.Errorf("GetUserByID(missing) = %v, %v; want nil, nil", missing, err)
	}

	if err := repo.LinkOAuthProvider(second.ID, "google", "sub-1"); err != nil {
		t.Fatalf("LinkOAuthProvider() error = %v", err)
	}
	if err := repo.LinkOAuthProvider(second.ID, "facebook", "sub-2"); err == nil {
		t.Error("expected error linking a second provider")
	}
	byOAuth, err := repo.GetUserByOAuth("google", "sub-1")
	if err != nil || byOAuth == nil || byOAuth.ID != second.ID {
		t.Errorf("GetUserByOAuth() = %v, %v", byOAuth, err)
	}
}

func TestSessionsAndResetTokens(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserRepository(db)
	user := createUser(t, db, "s@example.com")

	now := time.Now()
	if _, err := repo.CreateSession("live", user.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if _, err := repo.CreateSession("stale", user.ID, now.Add(-time.Hour)); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	removed, err := repo.DeleteExpiredSessions(now)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("DeleteExpiredSessions() removed %d, want 1", removed)
	}
	if s, _ := repo.GetSession("live"); s == nil {
		t.Error("live session should remain")
	}

	if err := repo.CreatePasswordResetToken("tok", user.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("CreatePasswordResetToken() error = %v", err)
	}
	ok, err := repo.MarkPasswordResetTokenUsed("tok")
	if err != nil || !ok {
		t.Fatalf("first MarkPasswordResetTokenUsed() = %v, %v", ok, err)
	}
	ok, err = repo.MarkPasswordResetTokenUsed("tok")
	if err != nil || ok {
		t.Errorf("second MarkPasswordResetTokenUsed() = %v, %v; want false", ok, err)
	}
}

func TestSprintVisibility(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSprintRepository(db)
	owner := createUser(t, db, "owner@example.com")
	other := createUser(t, db, "other@example.com")

	createSprint(t, db, "Public Go", true, nil)
	createSprint(t, db, "Private Chess", false, &owner.ID)

	tests := []struct {
		name   string
		userID int64
		want   int
	}{
		{name: "anonymous", userID: 0, want: 1},
		{name: "owner", userID: owner.ID, want: 2},
		{name: "other user", userID: other.ID, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := repo.ListVisible(tt.userID, SprintFilter{})
			if err != nil {
				t.Fatalf("ListVisible() error = %v", err)
			}
			if len(list) != tt.want {
				t.Errorf("ListVisible() returned %d sprints, want %d", len(list), tt.want)
			}
		})
	}

	found, err := repo.ListVisible(0, SprintFilter{Query: "go"})
	if err != nil || len(found) != 1 || found[0].Title != "Public Go" {
		t.Errorf("search = %v, %v", found, err)
	}
}

func TestInsertChallengeIgnoresDuplicates(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSprintRepository(db)
	s := createSprint(t, db, "Sprint", true, nil)

	c := &models.Challenge{
		SprintID:  s.ID,
		Day:       1,
		Title:     "Day one",
		Resources: []models.Resource{{Title: "Docs", URL: "https://go.dev"}},
	}
	inserted, err := repo.InsertChallenge(c)
	if err != nil || !inserted {
		t.Fatalf("first InsertChallenge() = %v, %v", inserted, err)
	}
	c.Title = "Replacement"
	inserted, err = repo.InsertChallenge(c)
	if err != nil || inserted {
		t.Fatalf("duplicate InsertChallenge() = %v, %v; want false", inserted, err)
	}

	got, err := repo.GetChallenge(s.ID, 1)
	if err != nil || got == nil {
		t.Fatalf("GetChallenge() = %v, %v", got, err)
	}
	if got.Title != "Day one" || len(got.Resources) != 1 || got.Resources[0].URL != "https://go.dev" {
		t.Errorf("challenge = %+v", got)
	}
}

func TestUpsertProgressKeepsStartAndCompletedDate(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewProgressRepository(db)
	user := createUser(t, db, "p@example.com")
	s := createSprint(t, db, "Sprint", true, nil)

	start := progress.MustParseDate("2025-03-01")
	if err := repo.UpsertProgress(user.ID, s.ID, start, 1, false, nil); err != nil {
		t.Fatalf("UpsertProgress() error = %v", err)
	}

	doneAt := time.Date(2025, 3, 30, 9, 0, 0, 0, time.UTC)
	if err := repo.UpsertProgress(user.ID, s.ID, progress.MustParseDate("2025-03-30"), 30, true, &doneAt); err != nil {
		t.Fatalf("UpsertProgress() error = %v", err)
	}

	later := doneAt.Add(48 * time.Hour)
	if err := repo.UpsertProgress(user.ID, s.ID, progress.MustParseDate("2025-04-01"), 30, true, &later); err != nil {
		t.Fatalf("UpsertProgress() error = %v", err)
	}

	p, err := repo.GetProgress(user.ID, s.ID)
	if err != nil || p == nil {
		t.Fatalf("GetProgress() = %v, %v", p, err)
	}
	if !p.StartDate.Equal(start) {
		t.Errorf("start date = %s, want %s", p.StartDate, start)
	}
	if p.CompletedDate == nil || !p.CompletedDate.Equal(doneAt) {
		t.Errorf("completed date = %v, want %v", p.CompletedDate, doneAt)
	}

	if err := repo.UpsertProgress(user.ID, s.ID, start, 29, false, nil); err != nil {
		t.Fatalf("UpsertProgress() error = %v", err)
	}
	p, _ = repo.GetProgress(user.ID, s.ID)
	if p.Completed || p.CompletedDate != nil {
		t.Errorf("uncompleted progress should clear completed date: %+v", p)
	}
}

func TestDayCompletions(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewProgressRepository(db)
	user := createUser(t, db, "d@example.com")
	s := createSprint(t, db, "Sprint", true, nil)

	on := progress.MustParseDate("2025-03-02")
	for _, day := range []int{2, 1, 2} {
		if _, err := repo.MarkDay(user.ID, s.ID, day, on, time.Now()); err != nil {
			t.Fatalf("MarkDay() error = %v", err)
		}
	}
	days, err := repo.CompletedDays(user.ID, s.ID)
	if err != nil || len(days) != 2 || days[0] != 1 || days[1] != 2 {
		t.Errorf("CompletedDays() = %v, %v", days, err)
	}

	removed, err := repo.UnmarkDay(user.ID, s.ID, 2)
	if err != nil || !removed {
		t.Errorf("UnmarkDay() = %v, %v", removed, err)
	}
	dates, err := repo.CompletionDates(user.ID)
	if err != nil || len(dates) != 1 || !dates[0].Equal(on) {
		t.Errorf("CompletionDates() = %v, %v", dates, err)
	}
}

func TestSwapStreak(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewProgressRepository(db)
	user := createUser(t, db, "streak@example.com")

	if err := repo.EnsureStreak(user.ID); err != nil {
		t.Fatalf("EnsureStreak() error = %v", err)
	}
	if err := repo.EnsureStreak(user.ID); err != nil {
		t.Fatalf("second EnsureStreak() error = %v", err)
	}

	empty := progress.Streak{}
	first := progress.Streak{Current: 1, Longest: 1, LastActivity: progress.MustParseDate("2025-03-01")}
	ok, err := repo.SwapStreak(user.ID, empty, first)
	if err != nil || !ok {
		t.Fatalf("SwapStreak() = %v, %v", ok, err)
	}

	// A writer holding the stale row loses.
	ok, err = repo.SwapStreak(user.ID, empty, first)
	if err != nil || ok {
		t.Errorf("stale SwapStreak() = %v, %v; want false", ok, err)
	}

	got, err := repo.GetStreak(user.ID)
	if err != nil || got == nil {
		t.Fatalf("GetStreak() = %v, %v", got, err)
	}
	if got.State() != first {
		t.Errorf("streak = %+v, want %+v", got.State(), first)
	}
}

func TestIntakeRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewIntakeRepository(db)

	msg := &models.ContactMessage{Name: "Sam", Email: "sam@example.com", Subject: "Hi", Message: "Hello there"}
	if err := repo.CreateContactMessage(msg); err != nil || msg.ID == 0 {
		t.Fatalf("CreateContactMessage() = %v (id %d)", err, msg.ID)
	}

	report := &models.ProblemReport{Category: "bug", Description: "Button broken"}
	if err := repo.CreateProblemReport(report); err != nil {
		t.Fatalf("CreateProblemReport() error = %v", err)
	}
	open, err := repo.ListProblemReports("open", 10)
	if err != nil || len(open) != 1 {
		t.Fatalf("ListProblemReports(open) = %v, %v", open, err)
	}

	if err := repo.SetProblemReportStatus(report.ID, "resolved"); err != nil {
		t.Fatalf("SetProblemReportStatus() error = %v", err)
	}
	open, _ = repo.ListProblemReports("open", 10)
	if len(open) != 0 {
		t.Errorf("expected no open reports, got %d", len(open))
	}
}
