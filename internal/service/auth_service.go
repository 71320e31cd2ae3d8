package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"skillsprint/internal/models"
	"skillsprint/internal/repository"
	"skillsprint/internal/security"
	"skillsprint/internal/validation"
)

// AuthService handles accounts, sessions, password resets and profiles
type AuthService struct {
	userRepo        *repository.UserRepository
	sessionDuration time.Duration
	now             func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, sessionDuration time.Duration) *AuthService {
	return &AuthService{
		userRepo:        userRepo,
		sessionDuration: sessionDuration,
		now:             time.Now,
	}
}

// Register creates a new user account
func (s *AuthService) Register(email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	existingUser, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(email, passwordHash, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login authenticates a user and creates a session
func (s *AuthService) Login(email, password string) (*models.Session, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.GetUserByEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.newSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

func (s *AuthService) newSession(userID int64) (*models.Session, error) {
	session, err := s.userRepo.CreateSession(security.GenerateSessionID(), userID, s.now().Add(s.sessionDuration))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ValidateSession checks if a session is valid and returns the associated user
func (s *AuthService) ValidateSession(sessionID string) (*models.User, error) {
	session, err := s.userRepo.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if s.now().After(session.ExpiresAt) {
		_ = s.userRepo.DeleteSession(sessionID)
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.GetUserByID(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrSessionNotFound
	}
	return user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(sessionID string) error {
	if err := s.userRepo.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpired removes expired sessions and reset tokens
func (s *AuthService) CleanupExpired() (int64, error) {
	now := s.now()
	removed, err := s.userRepo.DeleteExpiredSessions(now)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	if err := s.userRepo.DeleteExpiredPasswordResetTokens(now); err != nil {
		return removed, fmt.Errorf("failed to cleanup reset tokens: %w", err)
	}
	return removed, nil
}

// OAuthLogin authenticates or creates a user using an OAuth provider.
// An existing password account with the same email is linked on first use.
func (s *AuthService) OAuthLogin(provider, subject, email, name string) (*models.Session, *models.User, error) {
	if provider == "" || subject == "" {
		return nil, nil, errors.New("missing oauth provider information")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetUserByOAuth(provider, subject)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	if user == nil {
		existingUser, err := s.userRepo.GetUserByEmail(email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check existing user: %w", err)
		}
		if existingUser != nil {
			if existingUser.OAuthProvider != "" && existingUser.OAuthProvider != provider {
				return nil, nil, ErrEmailTaken
			}
			if err := s.userRepo.LinkOAuthProvider(existingUser.ID, provider, subject); err != nil {
				return nil, nil, fmt.Errorf("failed to link oauth provider: %w", err)
			}
			existingUser.OAuthProvider = provider
			existingUser.OAuthSubject = subject
			user = existingUser
		} else {
			name = strings.TrimSpace(name)
			if name == "" {
				name = strings.Split(email, "@")[0]
			}
			user, err = s.userRepo.CreateOAuthUser(email, name, provider, subject)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to create oauth user: %w", err)
			}
		}
	}

	session, err := s.newSession(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, user, nil
}

// RequestPasswordReset creates a reset token and mails the link. Unknown
// emails and provider-only accounts succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailService *EmailService, email string) error {
	user, err := s.userRepo.GetUserByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil
	}

	token, err := security.GenerateToken(32)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	_ = s.userRepo.DeleteUserPasswordResetTokens(user.ID)

	if err := s.userRepo.CreatePasswordResetToken(token, user.ID, s.now().Add(time.Hour)); err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	if emailService != nil && emailService.IsEnabled() {
		if err := emailService.SendPasswordResetEmail(ctx, user.Email, user.Name, token); err != nil {
			return fmt.Errorf("failed to send reset email: %w", err)
		}
	} else {
		log.Printf("Password reset requested for user %d but email is disabled", user.ID)
	}
	return nil
}

// ValidatePasswordResetToken reports whether a reset token can still be used
func (s *AuthService) ValidatePasswordResetToken(token string) (bool, error) {
	resetToken, err := s.userRepo.GetPasswordResetToken(token)
	if err != nil {
		return false, fmt.Errorf("failed to get reset token: %w", err)
	}
	return resetToken != nil && !resetToken.Used && s.now().Before(resetToken.ExpiresAt), nil
}

// ResetPassword sets a new password using a valid token and signs the
// user out of every session.
func (s *AuthService) ResetPassword(token, newPassword string) error {
	resetToken, err := s.userRepo.GetPasswordResetToken(token)
	if err != nil {
		return fmt.Errorf("failed to get reset token: %w", err)
	}
	if resetToken == nil || resetToken.Used || !s.now().Before(resetToken.ExpiresAt) {
		return ErrInvalidResetToken
	}

	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	consumed, err := s.userRepo.MarkPasswordResetTokenUsed(token)
	if err != nil {
		return fmt.Errorf("failed to mark token as used: %w", err)
	}
	if !consumed {
		return ErrInvalidResetToken
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(resetToken.UserID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.userRepo.DeleteUserSessions(resetToken.UserID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

// ProfileInput holds the editable profile fields as submitted
type ProfileInput struct {
	Name      string
	AvatarURL string
	Bio       string
	Skills    string
	Timezone  string
}

// UpdateProfile validates and stores a user's profile
func (s *AuthService) UpdateProfile(userID int64, in ProfileInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	avatar := strings.TrimSpace(in.AvatarURL)
	bio := strings.TrimSpace(in.Bio)
	tz := strings.TrimSpace(in.Timezone)

	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidateAvatarURL(avatar); err != nil {
		return nil, err
	}
	if err := validation.ValidateBio(bio); err != nil {
		return nil, err
	}
	if err := validation.ValidateTimezone(tz); err != nil {
		return nil, err
	}
	skills, err := validation.NormalizeSkills(in.Skills)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateProfile(userID, name, avatar, bio, skills, tz); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// GetUser returns a user by ID or ErrNotFound
func (s *AuthService) GetUser(userID int64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// ListUsers returns every account for the admin console
func (s *AuthService) ListUsers() ([]models.User, error) {
	return s.userRepo.GetAllUsers()
}
