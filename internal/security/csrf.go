package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// ErrNoSession is returned when a CSRF token is requested without a session.
var ErrNoSession = errors.New("csrf: session ID is required")

// csrfLabel separates CSRF MACs from any other use of the same secret.
const csrfLabel = "skillsprint/csrf/v1\x00"

// CSRFGenerator binds form tokens to a login session. Tokens are signed with
// the current secret; retired secrets still validate until they are dropped
// from configuration, so rotating CSRF_SECRET does not break open forms.
type CSRFGenerator struct {
	keys [][]byte
}

// NewCSRFGenerator signs with secret and also accepts tokens signed with any
// of previous. Empty previous secrets are ignored.
func NewCSRFGenerator(secret string, previous ...string) *CSRFGenerator {
	g := &CSRFGenerator{keys: [][]byte{[]byte(secret)}}
	for _, p := range previous {
		if p != "" && p != secret {
			g.keys = append(g.keys, []byte(p))
		}
	}
	return g
}

func sign(key []byte, sessionID string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(csrfLabel))
	mac.Write([]byte(sessionID))
	return mac.Sum(nil)
}

// GenerateToken returns the URL-safe token for sessionID under the current secret.
func (g *CSRFGenerator) GenerateToken(sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrNoSession
	}
	return base64.RawURLEncoding.EncodeToString(sign(g.keys[0], sessionID)), nil
}

// ValidateToken reports whether token was issued for sessionID under the
// current or a retired secret.
func (g *CSRFGenerator) ValidateToken(sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	for _, key := range g.keys {
		if hmac.Equal(got, sign(key, sessionID)) {
			return true
		}
	}
	return false
}
