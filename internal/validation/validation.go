package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Profile limits
const (
	MaxBioLength    = 500
	MaxSkills       = 20
	MaxSkillLength  = 40
	MaxMessageLen   = 5000
	MinSkillNameLen = 2
	MaxSkillNameLen = 60
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// ValidateName checks if a name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if utf8.RuneCountInString(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	if utf8.RuneCountInString(name) > 100 {
		return ValidationError{Field: "name", Message: "name must be at most 100 characters"}
	}
	return nil
}

// ValidateAvatarURL accepts an empty value or an absolute http(s) URL
func ValidateAvatarURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ValidationError{Field: "avatar_url", Message: "avatar URL must be an http or https link"}
	}
	return nil
}

// ValidateBio limits the profile bio length
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return ValidationError{Field: "bio", Message: fmt.Sprintf("bio must be at most %d characters", MaxBioLength)}
	}
	return nil
}

// NormalizeSkills splits a comma-separated list, trims and de-duplicates it
// case-insensitively, and enforces the count and length limits.
func NormalizeSkills(raw string) ([]string, error) {
	skills := []string{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		skill := strings.Join(strings.Fields(part), " ")
		if skill == "" {
			continue
		}
		key := strings.ToLower(skill)
		if seen[key] {
			continue
		}
		if utf8.RuneCountInString(skill) > MaxSkillLength {
			return nil, ValidationError{Field: "skills", Message: fmt.Sprintf("each skill must be at most %d characters", MaxSkillLength)}
		}
		seen[key] = true
		skills = append(skills, skill)
	}
	if len(skills) > MaxSkills {
		return nil, ValidationError{Field: "skills", Message: fmt.Sprintf("at most %d skills are allowed", MaxSkills)}
	}
	return skills, nil
}

// ValidateTimezone accepts an empty value or a known IANA zone name
func ValidateTimezone(tz string) error {
	if tz == "" {
		return nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return ValidationError{Field: "timezone", Message: "unknown time zone"}
	}
	return nil
}

// ValidateSkillName checks the free-text skill used to generate a custom sprint
func ValidateSkillName(skill string) error {
	skill = strings.TrimSpace(skill)
	n := utf8.RuneCountInString(skill)
	if n == 0 {
		return ValidationError{Field: "skill", Message: "skill is required"}
	}
	if n < MinSkillNameLen || n > MaxSkillNameLen {
		return ValidationError{Field: "skill", Message: fmt.Sprintf("skill must be between %d and %d characters", MinSkillNameLen, MaxSkillNameLen)}
	}
	return nil
}

// ValidateText requires a non-empty value no longer than max runes
func ValidateText(field, value string, max int) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if utf8.RuneCountInString(value) > max {
		return ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, max)}
	}
	return nil
}

// ValidateOneOf requires value to be one of allowed
func ValidateOneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return ValidationError{Field: field, Message: fmt.Sprintf("%s must be one of %s", field, strings.Join(allowed, ", "))}
}
