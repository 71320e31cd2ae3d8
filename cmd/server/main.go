package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"

	"skillsprint/internal/config"
	"skillsprint/internal/database"
	"skillsprint/internal/handlers"
	"skillsprint/internal/metrics"
	"skillsprint/internal/realtime"
	"skillsprint/internal/repository"
	"skillsprint/internal/security"
	"skillsprint/internal/service"
	"skillsprint/migrations"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	startup := handlers.NewStartupStatus(
		handlers.StepDatabase,
		handlers.StepMigrations,
		handlers.StepTemplates,
		handlers.StepServices,
		handlers.StepSeed,
		handlers.StepRealtime,
	)

	// Serve /healthz while initializing; the full router is swapped in once ready
	var current atomic.Pointer[http.Handler]
	boot := http.NewServeMux()
	boot.HandleFunc("GET /healthz", startup.Health(nil))
	boot.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		http.Error(w, "SkillSprint is starting up, please try again shortly", http.StatusServiceUnavailable)
	})
	var bootHandler http.Handler = boot
	current.Store(&bootHandler)

	// Request contexts are cancelled when shutdown begins so event streams end
	requests, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()

	addr := ":" + cfg.ServerPort
	server := newServer(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		(*current.Load()).ServeHTTP(w, r)
	}), requests)
	server.RegisterOnShutdown(cancelRequests)

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	startup.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)
	startup.CompleteStep(handlers.StepDatabase)

	startup.SetCurrentStep(handlers.StepMigrations)
	if err := db.RunMigrations(migrations.Source(cfg.MigrationsPath)); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")
	if err := db.SeedBlockedTerms(cfg.BlockedTermsURL); err != nil {
		log.Printf("Warning: Failed to seed blocked terms: %v", err)
	}
	startup.CompleteStep(handlers.StepMigrations)

	startup.SetCurrentStep(handlers.StepTemplates)
	templates, err := handlers.LoadTemplates(cfg.TemplatesPath)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}
	log.Println("Templates loaded successfully")
	startup.CompleteStep(handlers.StepTemplates)

	// Realtime
	startup.SetCurrentStep(handlers.StepRealtime)
	hub := realtime.NewHub(realtime.DefaultBuffer)
	var publisher realtime.Publisher = hub
	if strings.EqualFold(cfg.RealtimeBackend, "postgres") {
		broker, err := realtime.NewPostgresBroker(ctx, cfg.DatabaseURL, hub, realtime.DefaultChannel)
		if err != nil {
			log.Printf("Warning: Postgres realtime unavailable, using in-process delivery: %v", err)
		} else {
			defer broker.Close()
			go broker.Run(ctx)
			publisher = broker
			log.Println("Realtime events delivered through Postgres LISTEN/NOTIFY")
		}
	}
	m := metrics.New(hub.Dropped)
	startup.CompleteStep(handlers.StepRealtime)

	// Services
	startup.SetCurrentStep(handlers.StepServices)
	userRepo := repository.NewUserRepository(db)
	authService := service.NewAuthService(userRepo, cfg.SessionDuration)
	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.SupportEmail, cfg.Debug)
	if err != nil {
		log.Printf("Warning: Failed to initialize email service: %v", err)
		emailService = nil
	}
	sprintService := service.NewSprintService(db, m)
	progressService := service.NewProgressService(db, cfg.Location(), publisher, m)
	intakeService := service.NewIntakeService(repository.NewIntakeRepository(db), emailService)
	backupService := service.NewBackupService(db)
	reportService := service.NewReportService(userRepo, progressService)
	startup.CompleteStep(handlers.StepServices)

	startup.SetCurrentStep(handlers.StepSeed)
	if _, err := sprintService.SeedCuratedSprints(); err != nil {
		log.Printf("Warning: Failed to seed curated sprints: %v", err)
	}
	startup.CompleteStep(handlers.StepSeed)

	// Handlers
	limiter := security.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, 10*time.Minute)
	middleware := handlers.NewMiddleware(authService, security.NewCSRFGenerator(cfg.CSRFSecret, cfg.CSRFPreviousSecrets...), limiter, m, cfg.Debug)

	routes := &handlers.Routes{
		Middleware:      middleware,
		Auth:            handlers.NewAuthHandler(authService, emailService, middleware, templates, oauthProviders(cfg), cfg.OAuthRedirectBaseURL),
		Pages:           handlers.NewPageHandler(sprintService, progressService, middleware, templates),
		Sprints:         handlers.NewSprintHandler(sprintService, progressService, middleware, templates),
		Dashboard:       handlers.NewDashboardHandler(progressService, reportService, middleware, templates),
		Profile:         handlers.NewProfileHandler(authService, middleware, templates),
		Intake:          handlers.NewIntakeHandler(intakeService, middleware, templates),
		Admin:           handlers.NewAdminHandler(authService, sprintService, intakeService, backupService, middleware, templates),
		API:             handlers.NewAPIHandler(sprintService, progressService, hub),
		Startup:         startup,
		DB:              db,
		Metrics:         m.Handler(),
		MetricsUser:     cfg.MetricsUser,
		MetricsPassword: cfg.MetricsPassword,
		StaticFilesPath: cfg.StaticFilesPath,
	}
	mux := http.NewServeMux()
	routes.Register(mux)

	var handler http.Handler = middleware.Instrument(mux)
	handler = withCORS(handler, cfg.CORSAllowedOrigins)
	handler = handlers.Logging(handler)
	handler = gorillahandlers.RecoveryHandler(gorillahandlers.PrintRecoveryStack(cfg.Debug))(handler)
	if cfg.TrustProxy {
		handler = gorillahandlers.ProxyHeaders(handler)
	}
	current.Store(&handler)

	// Background cleanup
	stopCleanup := make(chan struct{})
	go limiter.RunCleanup(5*time.Minute, stopCleanup)
	go cleanupExpiredSessions(authService, stopCleanup)

	startup.MarkReady()
	log.Println("Server ready")

	<-ctx.Done()
	log.Println("Server shutting down...")
	close(stopCleanup)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

// newServer builds the HTTP server. Every request context derives from base.
func newServer(addr string, handler http.Handler, base context.Context) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		BaseContext:  func(net.Listener) context.Context { return base },
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func oauthProviders(cfg *config.Config) map[string]handlers.OAuthProvider {
	return map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"facebook": {
			Name:  "facebook",
			Label: "Facebook",
			Config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		},
		"apple": {
			Name:  "apple",
			Label: "Apple",
			Config: &oauth2.Config{
				ClientID:     cfg.AppleClientID,
				ClientSecret: cfg.AppleClientSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://appleid.apple.com/auth/authorize",
					TokenURL: "https://appleid.apple.com/auth/token",
				},
				Scopes: []string{"name", "email"},
			},
			AuthParams: map[string]string{
				"response_mode": "query",
			},
		},
	}
}

// withCORS applies the CORS policy to /api/ requests only
func withCORS(next http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return next
	}
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", handlers.CSRFHeaderName}),
		gorillahandlers.AllowCredentials(),
	)(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			cors.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(authService *service.AuthService, stop <-chan struct{}) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := authService.CleanupExpired()
			if err != nil {
				log.Printf("Error cleaning up expired sessions: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Removed %d expired sessions", n)
			}
		case <-stop:
			return
		}
	}
}
