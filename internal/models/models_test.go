package models

import (
	"testing"
	"time"
)

func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "future expiration",
			expiresAt: time.Now().Add(1 * time.Hour),
			want:      false,
		},
		{
			name:      "just expired",
			expiresAt: time.Now().Add(-1 * time.Second),
			want:      true,
		},
		{
			name:      "expired yesterday",
			expiresAt: time.Now().Add(-24 * time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := Session{
				ID:        "test-session",
				UserID:    1,
				ExpiresAt: tt.expiresAt,
				CreatedAt: time.Now().Add(-1 * time.Hour),
			}
			if got := session.IsExpired(); got != tt.want {
				t.Errorf("Session.IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPasswordResetTokenIsExpired(t *testing.T) {
	token := PasswordResetToken{ExpiresAt: time.Now().Add(-time.Minute)}
	if !token.IsExpired() {
		t.Error("token in the past should be expired")
	}
}

func TestUserInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Ada Lovelace", "AL"},
		{"grace", "G"},
		{"  mary ann evans", "MA"},
		{"", ""},
	}
	for _, tt := range tests {
		u := User{Name: tt.name}
		if got := u.Initials(); got != tt.want {
			t.Errorf("Initials(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSprintVisibleTo(t *testing.T) {
	owner := int64(7)
	tests := []struct {
		name   string
		sprint Sprint
		userID int64
		want   bool
	}{
		{name: "public anonymous", sprint: Sprint{IsPublic: true}, userID: 0, want: true},
		{name: "private owner", sprint: Sprint{CreatedBy: &owner}, userID: 7, want: true},
		{name: "private other user", sprint: Sprint{CreatedBy: &owner}, userID: 8, want: false},
		{name: "private anonymous", sprint: Sprint{CreatedBy: &owner}, userID: 0, want: false},
		{name: "private without owner", sprint: Sprint{}, userID: 7, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sprint.VisibleTo(tt.userID); got != tt.want {
				t.Errorf("VisibleTo(%d) = %v, want %v", tt.userID, got, tt.want)
			}
		})
	}
}

func TestDecodeResources(t *testing.T) {
	resources, err := DecodeResources(`[{"title":"Tour of Go","url":"https://go.dev/tour"}]`)
	if err != nil {
		t.Fatalf("DecodeResources() error = %v", err)
	}
	if len(resources) != 1 || resources[0].URL != "https://go.dev/tour" {
		t.Errorf("DecodeResources() = %+v", resources)
	}

	if resources, err := DecodeResources(""); err != nil || resources != nil {
		t.Errorf("empty input = %v, %v; want nil, nil", resources, err)
	}

	if _, err := DecodeResources("not json"); err == nil {
		t.Error("expected error for malformed resources")
	}

	encoded, err := EncodeResources(nil)
	if err != nil || encoded != "[]" {
		t.Errorf("EncodeResources(nil) = %q, %v; want []", encoded, err)
	}
}

func TestIsValidDifficulty(t *testing.T) {
	for _, d := range Difficulties {
		if !IsValidDifficulty(d) {
			t.Errorf("%s should be valid", d)
		}
	}
	if IsValidDifficulty("beginner") {
		t.Error("difficulty match is case-sensitive")
	}
}
