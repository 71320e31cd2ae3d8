package handlers

import (
	"skillsprint/internal/models"
	"skillsprint/internal/progress"
	"skillsprint/internal/repository"
	"skillsprint/internal/service"
)

// Page holds what the shared layout needs
type Page struct {
	Title     string
	User      *models.User
	CSRFToken string
	Path      string
}

type LoginViewData struct {
	Page
	OAuthProviders []OAuthProviderView
	Error          string
	Email          string
	Success        string
}

type SignupViewData struct {
	Page
	OAuthProviders []OAuthProviderView
	Error          string
	Email          string
	Name           string
}

type ForgotPasswordViewData struct {
	Page
	Success string
	Error   string
}

type ResetPasswordViewData struct {
	Page
	Token string
	Error string
}

type ProfileViewData struct {
	Page
	Form    service.ProfileInput
	Error   string
	Success string
}

// StreakView is the streak as pages and the JSON API show it
type StreakView struct {
	Current          int    `json:"current"`
	Longest          int    `json:"longest"`
	LastActivityDate string `json:"last_activity_date"`
	Active           bool   `json:"active"`
}

func newStreakView(s progress.Streak, active bool) StreakView {
	v := StreakView{Longest: s.Longest, LastActivityDate: s.LastActivity.String(), Active: active}
	if active {
		v.Current = s.Current
	}
	return v
}

type HomeViewData struct {
	Page
	Featured []models.Sprint
	Streak   *StreakView
}

type ChallengesViewData struct {
	Page
	Sprints      []models.Sprint
	Categories   []string
	Difficulties []string
	Filter       repository.SprintFilter
}

// ChallengeDayView is one day on the challenge page
type ChallengeDayView struct {
	models.Challenge
	Completed bool
	IsToday   bool
	Locked    bool
}

type ChallengeViewData struct {
	Page
	Sprint     *models.Sprint
	Days       []ChallengeDayView
	Enrollment *service.Enrollment
	Streak     StreakView
	Warning    string
	Error      string
}

type DashboardViewData struct {
	Page
	Dashboard *service.Dashboard
	Streak    StreakView
}

type GenerateViewData struct {
	Page
	Skill        string
	Difficulty   string
	Difficulties []string
	Error        string
}

type ContactViewData struct {
	Page
	Form    service.ContactInput
	Error   string
	Success bool
}

type ProblemReportViewData struct {
	Page
	Form       service.ProblemInput
	Categories []string
	Error      string
	Success    bool
}

type AdminViewData struct {
	Page
	Sprints  []models.Sprint
	Users    []models.User
	Messages []models.ContactMessage
	Reports  []models.ProblemReport
	Error    string
	Success  string
}

type ErrorViewData struct {
	Page
	Status  int
	Message string
}
