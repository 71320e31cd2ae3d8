package models

import "time"

// User represents a SkillSprint account
type User struct {
	ID            int64
	Email         string
	PasswordHash  string
	Name          string
	AvatarURL     string
	Bio           string
	Skills        []string
	Timezone      string
	OAuthProvider string
	OAuthSubject  string
	IsAdmin       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Initials returns up to two uppercase initials for avatar placeholders.
func (u *User) Initials() string {
	var initials []rune
	startOfWord := true
	for _, r := range u.Name {
		if r == ' ' {
			startOfWord = true
			continue
		}
		if startOfWord {
			if r >= 'a' && r <= 'z' {
				r -= 'a' - 'A'
			}
			initials = append(initials, r)
			startOfWord = false
			if len(initials) == 2 {
				break
			}
		}
	}
	return string(initials)
}

// Session represents an authenticated session
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// PasswordResetToken represents a token for password reset
type PasswordResetToken struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
	Used      bool
}

// IsExpired checks if the reset token has expired
func (t *PasswordResetToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
