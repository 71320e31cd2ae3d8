package security

import (
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHashPassword(t *testing.T) {
	password := "testPassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "" || hash == password {
		t.Fatalf("HashPassword() returned %q", hash)
	}

	hash2, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == hash2 {
		t.Error("HashPassword() should produce different hashes due to salt")
	}
}

func TestCheckPassword(t *testing.T) {
	password := "mySecurePassword"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{name: "correct password", password: password, hash: hash, want: true},
		{name: "incorrect password", password: "wrongPassword", hash: hash, want: false},
		{name: "empty password", password: "", hash: hash, want: false},
		{name: "oauth account without hash", password: password, hash: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("CheckPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCSRFGenerator(t *testing.T) {
	g := NewCSRFGenerator("secret-a")

	token, err := g.GenerateToken("session-1")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	again, _ := g.GenerateToken("session-1")
	if token != again {
		t.Error("tokens for the same session should match")
	}

	if !g.ValidateToken("session-1", token) {
		t.Error("expected token to validate for its session")
	}
	if g.ValidateToken("session-2", token) {
		t.Error("token must not validate for another session")
	}
	if NewCSRFGenerator("secret-b").ValidateToken("session-1", token) {
		t.Error("token must not validate under another secret")
	}
	if g.ValidateToken("", token) || g.ValidateToken("session-1", "") {
		t.Error("empty inputs must not validate")
	}
	if _, err := g.GenerateToken(""); !errors.Is(err, ErrNoSession) {
		t.Errorf("GenerateToken(\"\") error = %v, want ErrNoSession", err)
	}
	if g.ValidateToken("session-1", "not base64!") {
		t.Error("malformed token must not validate")
	}
}

func TestCSRFGeneratorRotation(t *testing.T) {
	old := NewCSRFGenerator("secret-old")
	issued, err := old.GenerateToken("session-1")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	rotated := NewCSRFGenerator("secret-new", "", "secret-old")
	tests := []struct {
		name  string
		g     *CSRFGenerator
		token string
		want  bool
	}{
		{"retired secret still accepted", rotated, issued, true},
		{"retired secret dropped", NewCSRFGenerator("secret-new"), issued, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.g.ValidateToken("session-1", tt.token); got != tt.want {
				t.Errorf("ValidateToken() = %v, want %v", got, tt.want)
			}
		})
	}

	fresh, _ := rotated.GenerateToken("session-1")
	if fresh == issued {
		t.Error("new tokens should be signed with the current secret")
	}
	if old.ValidateToken("session-1", fresh) {
		t.Error("a token from the new secret must not validate under the old one alone")
	}
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(60, 2, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("burst requests should be allowed")
	}
	if rl.Allow("1.2.3.4") {
		t.Error("request beyond burst should be rejected")
	}
	if !rl.Allow("5.6.7.8") {
		t.Error("other IPs have their own bucket")
	}

	now = now.Add(time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Error("bucket should refill after one interval")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(10, 1, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(2 * time.Minute)
	rl.Allow("fresh")

	if removed := rl.Cleanup(); removed != 1 {
		t.Errorf("Cleanup() removed %d, want 1", removed)
	}
	if _, ok := rl.visitors["fresh"]; !ok {
		t.Error("recent visitor should be kept")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, remoteAddr: "10.0.0.1:1234", want: "203.0.113.9"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "198.51.100.2"}, remoteAddr: "10.0.0.1:1234", want: "198.51.100.2"},
		{name: "remote addr", remoteAddr: "192.0.2.7:5555", want: "192.0.2.7"},
		{name: "remote addr without port", remoteAddr: "192.0.2.7", want: "192.0.2.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCookies(t *testing.T) {
	plain := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	if IsSecureRequest(plain) {
		t.Error("plain HTTP request reported as secure")
	}

	proxied := httptest.NewRequest(http.MethodGet, "/", nil)
	proxied.Header.Set("X-Forwarded-Proto", "https")
	if !IsSecureRequest(proxied) {
		t.Error("X-Forwarded-Proto https should be secure")
	}

	direct := httptest.NewRequest(http.MethodGet, "/", nil)
	direct.TLS = &tls.ConnectionState{}
	c := CreateSessionCookie(direct, "session_id", "abc", time.Now().Add(time.Hour))
	if !c.Secure || !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("session cookie flags wrong: %+v", c)
	}

	del := CreateDeleteCookie(plain, "session_id")
	if del.MaxAge != -1 || del.Value != "" {
		t.Errorf("delete cookie = %+v", del)
	}
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken(16)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	b, _ := GenerateToken(16)
	if len(a) != 32 || a == b {
		t.Errorf("GenerateToken() = %q, %q", a, b)
	}
	if id := GenerateSessionID(); len(id) != 36 {
		t.Errorf("GenerateSessionID() = %q", id)
	}
}
