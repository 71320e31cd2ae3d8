package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"skillsprint/internal/database"
	"skillsprint/internal/metrics"
	"skillsprint/internal/models"
	"skillsprint/internal/realtime"
	"skillsprint/internal/repository"
	"skillsprint/internal/security"
	"skillsprint/internal/service"
	"skillsprint/internal/testutil"
)

const testPassword = "correct-horse-battery"

type handlerFixture struct {
	db       *database.DB
	handler  http.Handler
	auth     *service.AuthService
	progress *service.ProgressService
	csrf     *security.CSRFGenerator
	startup  *StartupStatus
	metrics  *metrics.Metrics
	hub      *realtime.Hub
	sprint   models.Sprint
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	db := testutil.NewTestDB(t)

	templates, err := LoadTemplates("../../web/templates")
	if err != nil {
		t.Fatalf("LoadTemplates() error = %v", err)
	}

	hub := realtime.NewHub(realtime.DefaultBuffer)
	m := metrics.New(hub.Dropped)

	users := repository.NewUserRepository(db)
	authService := service.NewAuthService(users, time.Hour)
	emailService, err := service.NewEmailService("us-east-1", "", "", "http://localhost", "", false)
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}
	sprintService := service.NewSprintService(db, m)
	progressService := service.NewProgressService(db, time.UTC, hub, m)
	intakeService := service.NewIntakeService(repository.NewIntakeRepository(db), emailService)
	backupService := service.NewBackupService(db)
	reportService := service.NewReportService(users, progressService)

	if _, err := sprintService.SeedCuratedSprints(); err != nil {
		t.Fatalf("SeedCuratedSprints() error = %v", err)
	}
	sprints, err := sprintService.ListAll()
	if err != nil || len(sprints) == 0 {
		t.Fatalf("ListAll() = %d sprints, error = %v", len(sprints), err)
	}

	csrf := security.NewCSRFGenerator("test-secret")
	mw := NewMiddleware(authService, csrf, nil, m, false)
	startup := NewStartupStatus(StepDatabase, StepMigrations)

	routes := &Routes{
		Middleware: mw,
		Auth:       NewAuthHandler(authService, emailService, mw, templates, map[string]OAuthProvider{}, ""),
		Pages:      NewPageHandler(sprintService, progressService, mw, templates),
		Sprints:    NewSprintHandler(sprintService, progressService, mw, templates),
		Dashboard:  NewDashboardHandler(progressService, reportService, mw, templates),
		Profile:    NewProfileHandler(authService, mw, templates),
		Intake:     NewIntakeHandler(intakeService, mw, templates),
		Admin:      NewAdminHandler(authService, sprintService, intakeService, backupService, mw, templates),
		API:        NewAPIHandler(sprintService, progressService, hub),
		Startup:    startup,
		DB:         db,
		Metrics:    m.Handler(),
	}
	mux := http.NewServeMux()
	routes.Register(mux)

	return &handlerFixture{
		db:       db,
		handler:  mw.Instrument(mux),
		auth:     authService,
		progress: progressService,
		csrf:     csrf,
		startup:  startup,
		metrics:  m,
		hub:      hub,
		sprint:   sprints[0],
	}
}

// login registers the account when needed and returns its session ID
func (f *handlerFixture) login(t *testing.T, email string) string {
	t.Helper()
	if _, err := f.auth.Register(email, testPassword, "Learner"); err != nil && err != service.ErrEmailTaken {
		t.Fatalf("Register(%q) error = %v", email, err)
	}
	session, _, err := f.auth.Login(email, testPassword)
	if err != nil {
		t.Fatalf("Login(%q) error = %v", email, err)
	}
	return session.ID
}

func (f *handlerFixture) token(t *testing.T, sessionID string) string {
	t.Helper()
	token, err := f.csrf.GenerateToken(sessionID)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return token
}

func (f *handlerFixture) do(req *http.Request, sessionID string) *httptest.ResponseRecorder {
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionID})
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestPublicPages(t *testing.T) {
	f := newHandlerFixture(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"home", "/", http.StatusOK, "SkillSprint"},
		{"about", "/about", http.StatusOK, "About"},
		{"pricing", "/pricing", http.StatusOK, "Pricing"},
		{"faq", "/faq", http.StatusOK, "FAQ"},
		{"challenges", "/challenges", http.StatusOK, f.sprint.Title},
		{"challenges filtered", "/challenges?q=zzzz-no-match", http.StatusOK, "Challenges"},
		{"challenge", fmt.Sprintf("/challenge/%d", f.sprint.ID), http.StatusOK, f.sprint.Title},
		{"missing challenge", "/challenge/99999", http.StatusNotFound, "404"},
		{"bad challenge id", "/challenge/abc", http.StatusNotFound, "404"},
		{"contact", "/contact", http.StatusOK, "Contact us"},
		{"unknown path", "/no-such-page", http.StatusNotFound, "404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(httptest.NewRequest(http.MethodGet, tt.path, nil), "")
			if rr.Code != tt.wantStatus {
				t.Fatalf("GET %s status = %d, want %d", tt.path, rr.Code, tt.wantStatus)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("GET %s body missing %q", tt.path, tt.wantBody)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	f := newHandlerFixture(t)

	t.Run("page redirects to login", func(t *testing.T) {
		rr := f.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil), "")
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
		}
		if loc := rr.Header().Get("Location"); loc != "/login" {
			t.Errorf("Location = %q, want /login", loc)
		}
	})

	t.Run("api returns 401 json", func(t *testing.T) {
		rr := f.do(httptest.NewRequest(http.MethodGet, "/api/streak", nil), "")
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
		}
		var body map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("body is not JSON: %v", err)
		}
		if body["error"] != ErrUnauthorized {
			t.Errorf("error = %q, want %q", body["error"], ErrUnauthorized)
		}
	})

	t.Run("stale session cookie is cleared", func(t *testing.T) {
		rr := f.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil), "not-a-session")
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
		}
		cleared := false
		for _, c := range rr.Result().Cookies() {
			if c.Name == SessionCookieName && c.MaxAge < 0 {
				cleared = true
			}
		}
		if !cleared {
			t.Error("expected the session cookie to be deleted")
		}
	})

	t.Run("valid session reaches the dashboard", func(t *testing.T) {
		sid := f.login(t, "dash@example.com")
		rr := f.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil), sid)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
	})
}

func TestCSRFProtect(t *testing.T) {
	f := newHandlerFixture(t)
	sid := f.login(t, "csrf@example.com")
	target := fmt.Sprintf("/challenge/%d/start", f.sprint.ID)

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"missing token", "", http.StatusForbidden},
		{"wrong token", "deadbeef", http.StatusForbidden},
		{"valid token", f.token(t, sid), http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			if tt.token != "" {
				form.Set(CSRFFormField, tt.token)
			}
			rr := f.do(formRequest(http.MethodPost, target, form), sid)
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	limiter := security.NewRateLimiter(1, 2, time.Minute)
	mw := NewMiddleware(nil, security.NewCSRFGenerator("x"), limiter, nil, false)
	h := mw.RateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		rr := httptest.NewRecorder()
		h(rr, req)
		codes = append(codes, rr.Code)
		if rr.Code == http.StatusTooManyRequests && rr.Header().Get("Retry-After") == "" {
			t.Error("429 response missing Retry-After")
		}
	}

	want := []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i+1, codes[i], want[i])
		}
	}
}

func TestSignupAndLogin(t *testing.T) {
	f := newHandlerFixture(t)

	t.Run("signup logs the user in", func(t *testing.T) {
		form := url.Values{"email": {"new@example.com"}, "password": {testPassword}, "name": {"New Learner"}}
		rr := f.do(formRequest(http.MethodPost, "/signup", form), "")
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want %d; body: %s", rr.Code, http.StatusSeeOther, rr.Body.String())
		}
		if loc := rr.Header().Get("Location"); loc != "/challenges" {
			t.Errorf("Location = %q, want /challenges", loc)
		}
		if !hasCookie(rr, SessionCookieName) {
			t.Error("signup did not set a session cookie")
		}
	})

	t.Run("duplicate signup is rejected", func(t *testing.T) {
		form := url.Values{"email": {"new@example.com"}, "password": {testPassword}, "name": {"Again"}}
		rr := f.do(formRequest(http.MethodPost, "/signup", form), "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
		}
		if !strings.Contains(rr.Body.String(), "already exists") {
			t.Error("expected duplicate email message")
		}
	})

	t.Run("short password is rejected", func(t *testing.T) {
		form := url.Values{"email": {"short@example.com"}, "password": {"abc"}, "name": {"Short"}}
		rr := f.do(formRequest(http.MethodPost, "/signup", form), "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
		}
	})

	t.Run("login with the right password", func(t *testing.T) {
		form := url.Values{"email": {"new@example.com"}, "password": {testPassword}}
		rr := f.do(formRequest(http.MethodPost, "/login", form), "")
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
		}
		if loc := rr.Header().Get("Location"); loc != "/dashboard" {
			t.Errorf("Location = %q, want /dashboard", loc)
		}
	})

	t.Run("login with the wrong password", func(t *testing.T) {
		form := url.Values{"email": {"new@example.com"}, "password": {"wrong-password"}}
		rr := f.do(formRequest(http.MethodPost, "/login", form), "")
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
		}
		if !strings.Contains(rr.Body.String(), "Invalid email or password") {
			t.Error("expected invalid credentials message")
		}
	})

	t.Run("logout ends the session", func(t *testing.T) {
		sid := f.login(t, "new@example.com")
		form := url.Values{CSRFFormField: {f.token(t, sid)}}
		rr := f.do(formRequest(http.MethodPost, "/logout", form), sid)
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusSeeOther)
		}
		if _, err := f.auth.ValidateSession(sid); err == nil {
			t.Error("session still valid after logout")
		}
	})
}

func hasCookie(rr *httptest.ResponseRecorder, name string) bool {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name && c.Value != "" {
			return true
		}
	}
	return false
}

func TestAPICompleteDay(t *testing.T) {
	f := newHandlerFixture(t)
	sid := f.login(t, "api@example.com")
	token := f.token(t, sid)

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(CSRFHeaderName, token)
		return f.do(req, sid)
	}
	path := func(day int) string {
		return fmt.Sprintf("/api/sprints/%d/days/%d/complete", f.sprint.ID, day)
	}

	t.Run("completing day one starts a streak", func(t *testing.T) {
		rr := post(path(1), `{"completed": true}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
		}
		var resp struct {
			Progress models.UserProgress `json:"progress"`
			Streak   StreakView          `json:"streak"`
			Warning  string              `json:"warning"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Streak.Current != 1 || resp.Streak.Longest != 1 {
			t.Errorf("streak = %+v, want current 1 longest 1", resp.Streak)
		}
		if resp.Warning != "" {
			t.Errorf("warning = %q, want none", resp.Warning)
		}
	})

	t.Run("completing again the same day keeps the streak", func(t *testing.T) {
		rr := post(path(2), `{"completed": true}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		streak, _, err := f.progress.Streak(mustUserID(t, f, "api@example.com"))
		if err != nil {
			t.Fatalf("Streak() error = %v", err)
		}
		if streak.Current != 1 {
			t.Errorf("Current = %d, want 1", streak.Current)
		}
	})

	t.Run("uncompleting returns the stored streak", func(t *testing.T) {
		rr := post(path(2), `{"completed": false}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		if !strings.Contains(rr.Body.String(), `"current":1`) {
			t.Errorf("body = %s, want current streak 1", rr.Body.String())
		}
	})

	badRequests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"missing completed", path(3), `{}`, http.StatusBadRequest},
		{"unknown field", path(3), `{"completed": true, "extra": 1}`, http.StatusBadRequest},
		{"not json", path(3), `completed=true`, http.StatusBadRequest},
		{"day out of range", path(999), `{"completed": true}`, http.StatusBadRequest},
		{"day not a number", fmt.Sprintf("/api/sprints/%d/days/x/complete", f.sprint.ID), `{"completed": true}`, http.StatusBadRequest},
		{"unknown sprint", "/api/sprints/99999/days/1/complete", `{"completed": true}`, http.StatusNotFound},
	}
	for _, tt := range badRequests {
		t.Run(tt.name, func(t *testing.T) {
			rr := post(tt.path, tt.body)
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d; body: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("Content-Type = %q, want JSON", ct)
			}
		})
	}

	t.Run("missing csrf header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, path(1), strings.NewReader(`{"completed": true}`))
		rr := f.do(req, sid)
		if rr.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusForbidden)
		}
	})
}

func mustUserID(t *testing.T, f *handlerFixture, email string) int64 {
	t.Helper()
	user, err := repository.NewUserRepository(f.db).GetUserByEmail(email)
	if err != nil || user == nil {
		t.Fatalf("GetUserByEmail(%q) = %v, %v", email, user, err)
	}
	return user.ID
}

func TestAPIEventsStream(t *testing.T) {
	f := newHandlerFixture(t)
	sid := f.login(t, "stream@example.com")
	uid := mustUserID(t, f, "stream@example.com")

	server := httptest.NewServer(f.handler)
	defer server.Close()

	t.Run("requires a session", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/events")
		if err != nil {
			t.Fatalf("GET /api/events error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sid})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	// Headers are written after the subscription is registered.
	if n := f.hub.Subscribers(uid); n != 1 {
		t.Fatalf("Subscribers() = %d, want 1", n)
	}
	if _, err := f.progress.CompleteTask(uid, f.sprint.ID, 1, true); err != nil {
		t.Fatalf("CompleteTask() error = %v", err)
	}

	var event, data string
	timeout := time.After(5 * time.Second)
	for data == "" {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before the streak event")
			}
			if line == "event: streak" {
				event = line
			} else if event != "" && strings.HasPrefix(line, "data: ") {
				data = strings.TrimPrefix(line, "data: ")
			}
		case <-timeout:
			t.Fatal("no streak event within 5s")
		}
	}

	var got struct {
		Type   string `json:"type"`
		UserID int64  `json:"user_id"`
		Streak struct {
			Current    int    `json:"current"`
			Transition string `json:"transition"`
		} `json:"streak"`
	}
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("decode event %q: %v", data, err)
	}
	if got.Type != "streak" || got.UserID != uid || got.Streak.Current != 1 || got.Streak.Transition != "started" {
		t.Errorf("event = %+v, want a started streak of 1 for user %d", got, uid)
	}

	cancel()
	deadline := time.Now().Add(5 * time.Second)
	for f.hub.Subscribers(uid) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler kept its subscription after the request was cancelled")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAPIStreak(t *testing.T) {
	f := newHandlerFixture(t)
	sid := f.login(t, "streak@example.com")

	rr := f.do(httptest.NewRequest(http.MethodGet, "/api/streak", nil), sid)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var got StreakView
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Current != 0 || got.Longest != 0 || got.Active {
		t.Errorf("new user streak = %+v, want zero and inactive", got)
	}
}

func TestCompleteDayFormFallback(t *testing.T) {
	f := newHandlerFixture(t)
	sid := f.login(t, "form@example.com")

	form := url.Values{CSRFFormField: {f.token(t, sid)}, "completed": {"true"}}
	target := fmt.Sprintf("/challenge/%d/days/3/complete", f.sprint.ID)
	rr := f.do(formRequest(http.MethodPost, target, form), sid)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d; body: %s", rr.Code, http.StatusSeeOther, rr.Body.String())
	}
	if want := fmt.Sprintf("/challenge/%d#day-3", f.sprint.ID); rr.Header().Get("Location") != want {
		t.Errorf("Location = %q, want %q", rr.Header().Get("Location"), want)
	}

	page := f.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/challenge/%d", f.sprint.ID), nil), sid)
	if page.Code != http.StatusOK {
		t.Fatalf("challenge page status = %d", page.Code)
	}
	if !strings.Contains(page.Body.String(), `data-day="3"`) {
		t.Error("challenge page missing day 3 checkbox")
	}
}

func TestAdminRoutes(t *testing.T) {
	f := newHandlerFixture(t)
	// The first account is the admin
	adminSID := f.login(t, "admin@example.com")
	userSID := f.login(t, "member@example.com")

	t.Run("non-admin is forbidden", func(t *testing.T) {
		rr := f.do(httptest.NewRequest(http.MethodGet, "/admin", nil), userSID)
		if rr.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusForbidden)
		}
	})

	t.Run("admin sees the console", func(t *testing.T) {
		rr := f.do(httptest.NewRequest(http.MethodGet, "/admin", nil), adminSID)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		if !strings.Contains(rr.Body.String(), f.sprint.Title) {
			t.Error("admin console missing sprint list")
		}
	})

	t.Run("extend sprint", func(t *testing.T) {
		form := url.Values{
			CSRFFormField:      {f.token(t, adminSID)},
			"current_duration": {fmt.Sprint(f.sprint.Duration)},
			"additional_days":  {"2"},
		}
		target := fmt.Sprintf("/admin/sprints/%d/extend", f.sprint.ID)
		rr := f.do(formRequest(http.MethodPost, target, form), adminSID)
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want %d; body: %s", rr.Code, http.StatusSeeOther, rr.Body.String())
		}
		if !strings.HasPrefix(rr.Header().Get("Location"), "/admin?msg=") {
			t.Errorf("Location = %q", rr.Header().Get("Location"))
		}
	})

	t.Run("extend with bad days re-renders", func(t *testing.T) {
		form := url.Values{CSRFFormField: {f.token(t, adminSID)}, "additional_days": {"lots"}}
		target := fmt.Sprintf("/admin/sprints/%d/extend", f.sprint.ID)
		rr := f.do(formRequest(http.MethodPost, target, form), adminSID)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
		}
	})

	t.Run("extend past the stored duration is rejected", func(t *testing.T) {
		form := url.Values{
			CSRFFormField:      {f.token(t, adminSID)},
			"current_duration": {"90"},
			"additional_days":  {"5"},
		}
		target := fmt.Sprintf("/admin/sprints/%d/extend", f.sprint.ID)
		rr := f.do(formRequest(http.MethodPost, target, form), adminSID)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
		}
		if !strings.Contains(rr.Body.String(), "cannot exceed") {
			t.Error("response missing the duration message")
		}
	})

	t.Run("backup export", func(t *testing.T) {
		rr := f.do(httptest.NewRequest(http.MethodGet, "/admin/backup", nil), adminSID)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		if !strings.Contains(rr.Header().Get("Content-Disposition"), "skillsprint_backup_") {
			t.Errorf("Content-Disposition = %q", rr.Header().Get("Content-Disposition"))
		}
		var backup service.BackupData
		if err := json.Unmarshal(rr.Body.Bytes(), &backup); err != nil {
			t.Fatalf("export is not valid JSON: %v", err)
		}
	})

	t.Run("api extend forbidden for members", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/sprints/%d/extend", f.sprint.ID),
			strings.NewReader(`{"additional_days": 1}`))
		req.Header.Set(CSRFHeaderName, f.token(t, userSID))
		rr := f.do(req, userSID)
		if rr.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusForbidden)
		}
	})
}

func TestContactForm(t *testing.T) {
	f := newHandlerFixture(t)

	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid message",
			form:       url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "subject": {"Hello"}, "message": {"Do you have a Rust sprint?"}},
			wantStatus: http.StatusOK,
			wantBody:   "Thanks!",
		},
		{
			name:       "missing message",
			form:       url.Values{"name": {"Ada"}, "email": {"ada@example.com"}},
			wantStatus: http.StatusBadRequest,
			wantBody:   "message is required",
		},
		{
			name:       "bad email",
			form:       url.Values{"name": {"Ada"}, "email": {"nope"}, "message": {"hi"}},
			wantStatus: http.StatusBadRequest,
			wantBody:   "invalid email format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(formRequest(http.MethodPost, "/contact", tt.form), "")
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("body missing %q", tt.wantBody)
			}
		})
	}
}

func TestGenerateSprint(t *testing.T) {
	f := newHandlerFixture(t)
	sid := f.login(t, "maker@example.com")

	form := url.Values{CSRFFormField: {f.token(t, sid)}, "skill": {"Bread Baking"}, "difficulty": {models.DifficultyBeginner}}
	rr := f.do(formRequest(http.MethodPost, "/sprints/new", form), sid)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d; body: %s", rr.Code, http.StatusSeeOther, rr.Body.String())
	}
	loc := rr.Header().Get("Location")
	if !strings.HasPrefix(loc, "/challenge/") {
		t.Fatalf("Location = %q, want a challenge page", loc)
	}

	page := f.do(httptest.NewRequest(http.MethodGet, loc, nil), sid)
	if page.Code != http.StatusOK {
		t.Fatalf("generated sprint page status = %d", page.Code)
	}
	if !strings.Contains(page.Body.String(), "Bread Baking") {
		t.Error("generated sprint page missing the skill name")
	}

	// Custom sprints are private to their creator
	other := f.login(t, "other@example.com")
	if rr := f.do(httptest.NewRequest(http.MethodGet, loc, nil), other); rr.Code != http.StatusNotFound {
		t.Errorf("other user status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestDashboardReport(t *testing.T) {
	f := newHandlerFixture(t)
	sid := f.login(t, "pdf@example.com")

	rr := f.do(httptest.NewRequest(http.MethodGet, "/dashboard/report.pdf", nil), sid)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", ct)
	}
	if !strings.HasPrefix(rr.Body.String(), "%PDF") {
		t.Error("body is not a PDF")
	}
}

func TestHealth(t *testing.T) {
	f := newHandlerFixture(t)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status before ready = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(rr.Body.String(), `"status":"starting"`) {
		t.Errorf("body = %s, want starting", rr.Body.String())
	}

	f.startup.CompleteStep(StepDatabase)
	f.startup.CompleteStep(StepMigrations)
	f.startup.MarkReady()

	rr = f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status after ready = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"database":"ok"`) {
		t.Errorf("body = %s, want database ok", rr.Body.String())
	}
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	f := newHandlerFixture(t)

	f.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/challenge/%d", f.sprint.ID), nil), "")
	f.do(httptest.NewRequest(http.MethodGet, "/api/streak", nil), "")

	rr := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`route="GET /challenge/{id}"`,
		`auth_rejections_total{reason="401_unauthorized"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}
