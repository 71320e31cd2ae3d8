package handlers

import (
	"crypto/subtle"
	"net/http"
)

// Routes bundles every handler the server mounts
type Routes struct {
	Middleware *Middleware
	Auth       *AuthHandler
	Pages      *PageHandler
	Sprints    *SprintHandler
	Dashboard  *DashboardHandler
	Profile    *ProfileHandler
	Intake     *IntakeHandler
	Admin      *AdminHandler
	API        *APIHandler
	Startup    *StartupStatus
	DB         Pinger

	// Metrics is served on /metrics when set, behind basic auth when
	// MetricsUser is set.
	Metrics         http.Handler
	MetricsUser     string
	MetricsPassword string

	StaticFilesPath string
}

// Register mounts every route on mux
func (rt *Routes) Register(mux *http.ServeMux) {
	m := rt.Middleware
	auth := func(h http.HandlerFunc) http.HandlerFunc { return m.RequireAuth(m.CSRFProtect(h)) }
	admin := func(h http.HandlerFunc) http.HandlerFunc { return m.RequireAdmin(m.CSRFProtect(h)) }

	// Static files
	if rt.StaticFilesPath != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(rt.StaticFilesPath))))
	}

	// Operations
	mux.HandleFunc("GET /healthz", rt.Startup.Health(rt.DB))
	if rt.Metrics != nil {
		mux.Handle("GET /metrics", basicAuth(rt.Metrics, rt.MetricsUser, rt.MetricsPassword))
	}

	// Marketing pages
	mux.HandleFunc("GET /{$}", m.LoadUser(rt.Pages.Home))
	mux.HandleFunc("GET /about", m.LoadUser(rt.Pages.Static("about.tmpl", "About")))
	mux.HandleFunc("GET /pricing", m.LoadUser(rt.Pages.Static("pricing.tmpl", "Pricing")))
	mux.HandleFunc("GET /faq", m.LoadUser(rt.Pages.Static("faq.tmpl", "FAQ")))
	mux.HandleFunc("/", m.LoadUser(rt.Pages.NotFound))

	// Intake
	mux.HandleFunc("GET /contact", m.LoadUser(rt.Intake.ShowContact))
	mux.HandleFunc("POST /contact", m.RateLimit(m.LoadUser(rt.Intake.Contact)))
	mux.HandleFunc("GET /report-problem", m.LoadUser(rt.Intake.ShowReportProblem))
	mux.HandleFunc("POST /report-problem", m.RateLimit(m.LoadUser(rt.Intake.ReportProblem)))

	// Auth
	mux.HandleFunc("GET /login", m.LoadUser(rt.Auth.ShowLogin))
	mux.HandleFunc("POST /login", m.RateLimit(rt.Auth.Login))
	mux.HandleFunc("GET /signup", m.LoadUser(rt.Auth.ShowSignup))
	mux.HandleFunc("POST /signup", m.RateLimit(rt.Auth.Signup))
	mux.HandleFunc("POST /logout", auth(rt.Auth.Logout))
	mux.HandleFunc("GET /auth/{provider}/start", rt.Auth.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", rt.Auth.OAuthCallback)
	mux.HandleFunc("GET /forgot-password", rt.Auth.ShowForgotPassword)
	mux.HandleFunc("POST /forgot-password", m.RateLimit(rt.Auth.ForgotPassword))
	mux.HandleFunc("GET /reset-password", rt.Auth.ShowResetPassword)
	mux.HandleFunc("POST /reset-password", m.RateLimit(rt.Auth.ResetPassword))

	// Sprints and challenges
	mux.HandleFunc("GET /challenges", m.LoadUser(rt.Sprints.ListChallenges))
	mux.HandleFunc("GET /challenge/{id}", m.LoadUser(rt.Sprints.ShowChallenge))
	mux.HandleFunc("POST /challenge/{id}/start", auth(rt.Sprints.StartSprint))
	mux.HandleFunc("POST /challenge/{id}/days/{day}/complete", auth(rt.Sprints.CompleteDay))
	mux.HandleFunc("GET /sprints/new", m.RequireAuth(rt.Sprints.ShowGenerate))
	mux.HandleFunc("POST /sprints/new", auth(rt.Sprints.Generate))

	// Signed-in pages
	mux.HandleFunc("GET /dashboard", m.RequireAuth(rt.Dashboard.Dashboard))
	mux.HandleFunc("GET /dashboard/report.pdf", m.RequireAuth(rt.Dashboard.Report))
	mux.HandleFunc("GET /profile", m.RequireAuth(rt.Profile.ShowProfile))
	mux.HandleFunc("POST /profile", auth(rt.Profile.UpdateProfile))

	// Admin
	mux.HandleFunc("GET /admin", m.RequireAdmin(rt.Admin.ShowAdminDashboard))
	mux.HandleFunc("POST /admin/sprints/{id}/extend", admin(rt.Admin.ExtendSprint))
	mux.HandleFunc("POST /admin/reports/{id}/resolve", admin(rt.Admin.ResolveProblemReport))
	mux.HandleFunc("GET /admin/backup", m.RequireAdmin(rt.Admin.ExportBackup))
	mux.HandleFunc("POST /admin/backup", admin(rt.Admin.ImportBackup))

	// JSON API
	mux.HandleFunc("POST /api/sprints/{id}/days/{day}/complete", auth(rt.API.CompleteDay))
	mux.HandleFunc("GET /api/streak", m.RequireAuth(rt.API.Streak))
	mux.HandleFunc("GET /api/events", m.RequireAuth(rt.API.Events))
	mux.HandleFunc("POST /api/sprints/{id}/extend", admin(rt.API.Extend))
	mux.HandleFunc("POST /api/sprints/generate", auth(rt.API.Generate))
}

func basicAuth(next http.Handler, user, password string) http.Handler {
	if user == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), []byte(password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="metrics"`)
			http.Error(w, ErrUnauthorized, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
