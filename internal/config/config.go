package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string
	DatabasePath    string
	DatabaseURL     string
	SessionDuration time.Duration
	StaticFilesPath string
	TemplatesPath   string
	MigrationsPath  string
	CSRFSecret      string
	Timezone        string
	Debug           bool
	TrustProxy      bool

	// CSRFPreviousSecrets still validate tokens after a secret rotation
	CSRFPreviousSecrets []string

	// OAuth
	GoogleClientID       string
	GoogleClientSecret   string
	FacebookClientID     string
	FacebookClientSecret string
	AppleClientID        string
	AppleClientSecret    string
	OAuthRedirectBaseURL string

	// Email (Amazon SES)
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	SupportEmail string
	AppBaseURL   string

	// Operations
	MetricsUser        string
	MetricsPassword    string
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	RateLimitBurst     int
	RealtimeBackend    string
	BlockedTermsURL    string
}

// fileConfig is the optional TOML overlay. Empty values keep the defaults.
type fileConfig struct {
	Server struct {
		Port       string `toml:"port"`
		Timezone   string `toml:"timezone"`
		Debug      bool   `toml:"debug"`
		TrustProxy bool   `toml:"trust_proxy"`
		BaseURL    string `toml:"base_url"`
	} `toml:"server"`
	Database struct {
		Type       string `toml:"type"`
		Path       string `toml:"path"`
		URL        string `toml:"url"`
		Migrations string `toml:"migrations"`
	} `toml:"database"`
	Email struct {
		Region   string `toml:"region"`
		From     string `toml:"from"`
		FromName string `toml:"from_name"`
		Support  string `toml:"support"`
	} `toml:"email"`
	Metrics struct {
		User     string `toml:"user"`
		Password string `toml:"password"`
	} `toml:"metrics"`
	HTTP struct {
		CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
		RateLimitPerMinute int      `toml:"rate_limit_per_minute"`
		RateLimitBurst     int      `toml:"rate_limit_burst"`
	} `toml:"http"`
	Realtime struct {
		Backend string `toml:"backend"`
	} `toml:"realtime"`
}

// Load reads configuration from defaults, an optional TOML file named by
// SKILLSPRINT_CONFIG, an optional .env file and the environment, in that order.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	cfg := defaults()

	if path := os.Getenv("SKILLSPRINT_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if cfg.CSRFSecret == "" {
		log.Println("Warning: CSRF_SECRET not set, using an insecure development secret")
		cfg.CSRFSecret = "skillsprint-dev-csrf-secret"
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ServerPort:         "8080",
		DatabaseType:       "sqlite",
		DatabasePath:       "./skillsprint.db",
		SessionDuration:    24 * time.Hour,
		StaticFilesPath:    "./web/static",
		TemplatesPath:      "./web/templates",
		Timezone:           "UTC",
		AWSRegion:          "us-east-1",
		SESFromName:        "SkillSprint",
		AppBaseURL:         "http://localhost:8080",
		RateLimitPerMinute: 10,
		RateLimitBurst:     5,
		RealtimeBackend:    "memory",
	}
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&c.ServerPort, fc.Server.Port)
	setString(&c.Timezone, fc.Server.Timezone)
	setString(&c.AppBaseURL, fc.Server.BaseURL)
	c.Debug = c.Debug || fc.Server.Debug
	c.TrustProxy = c.TrustProxy || fc.Server.TrustProxy

	setString(&c.DatabaseType, fc.Database.Type)
	setString(&c.DatabasePath, fc.Database.Path)
	setString(&c.DatabaseURL, fc.Database.URL)
	setString(&c.MigrationsPath, fc.Database.Migrations)

	setString(&c.AWSRegion, fc.Email.Region)
	setString(&c.SESFromEmail, fc.Email.From)
	setString(&c.SESFromName, fc.Email.FromName)
	setString(&c.SupportEmail, fc.Email.Support)

	setString(&c.MetricsUser, fc.Metrics.User)
	setString(&c.MetricsPassword, fc.Metrics.Password)

	if len(fc.HTTP.CORSAllowedOrigins) > 0 {
		c.CORSAllowedOrigins = fc.HTTP.CORSAllowedOrigins
	}
	if fc.HTTP.RateLimitPerMinute > 0 {
		c.RateLimitPerMinute = fc.HTTP.RateLimitPerMinute
	}
	if fc.HTTP.RateLimitBurst > 0 {
		c.RateLimitBurst = fc.HTTP.RateLimitBurst
	}

	setString(&c.RealtimeBackend, fc.Realtime.Backend)
	return nil
}

func (c *Config) applyEnv() {
	c.ServerPort = getEnv("PORT", c.ServerPort)
	c.DatabaseType = getEnv("DATABASE_TYPE", c.DatabaseType)
	c.DatabasePath = getEnv("DB_PATH", c.DatabasePath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.StaticFilesPath = getEnv("STATIC_PATH", c.StaticFilesPath)
	c.TemplatesPath = getEnv("TEMPLATES_PATH", c.TemplatesPath)
	c.MigrationsPath = getEnv("MIGRATIONS_PATH", c.MigrationsPath)
	c.CSRFSecret = getEnv("CSRF_SECRET", c.CSRFSecret)
	if previous := os.Getenv("CSRF_PREVIOUS_SECRETS"); previous != "" {
		c.CSRFPreviousSecrets = splitList(previous)
	}
	c.Timezone = getEnv("APP_TIMEZONE", c.Timezone)
	c.Debug = getEnvBool("DEBUG", c.Debug)
	c.TrustProxy = getEnvBool("TRUST_PROXY", c.TrustProxy)

	if hours := getEnvInt("SESSION_HOURS", 0); hours > 0 {
		c.SessionDuration = time.Duration(hours) * time.Hour
	}

	c.GoogleClientID = getEnv("GOOGLE_CLIENT_ID", c.GoogleClientID)
	c.GoogleClientSecret = getEnv("GOOGLE_CLIENT_SECRET", c.GoogleClientSecret)
	c.FacebookClientID = getEnv("FACEBOOK_CLIENT_ID", c.FacebookClientID)
	c.FacebookClientSecret = getEnv("FACEBOOK_CLIENT_SECRET", c.FacebookClientSecret)
	c.AppleClientID = getEnv("APPLE_CLIENT_ID", c.AppleClientID)
	c.AppleClientSecret = getEnv("APPLE_CLIENT_SECRET", c.AppleClientSecret)
	c.OAuthRedirectBaseURL = getEnv("OAUTH_REDIRECT_BASE_URL", c.OAuthRedirectBaseURL)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.SESFromEmail = getEnv("SES_FROM_EMAIL", c.SESFromEmail)
	c.SESFromName = getEnv("SES_FROM_NAME", c.SESFromName)
	c.SupportEmail = getEnv("SUPPORT_EMAIL", c.SupportEmail)
	c.AppBaseURL = getEnv("APP_BASE_URL", c.AppBaseURL)

	c.MetricsUser = getEnv("METRICS_USER", c.MetricsUser)
	c.MetricsPassword = getEnv("METRICS_PASSWORD", c.MetricsPassword)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORSAllowedOrigins = splitList(origins)
	}
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", c.RateLimitBurst)
	c.RealtimeBackend = getEnv("REALTIME_BACKEND", c.RealtimeBackend)
	c.BlockedTermsURL = getEnv("BLOCKED_TERMS_URL", c.BlockedTermsURL)
}

// Location returns the configured default time zone, or UTC if it is invalid.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Warning: invalid APP_TIMEZONE %q, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
