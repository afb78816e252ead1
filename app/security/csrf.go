package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// CSRF derives anti-forgery tokens from the session token id, so a token is
// only valid for the session it was issued to.
type CSRF struct {
	key []byte
}

func NewCSRF(key []byte) *CSRF {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("csrf-key"))
	return &CSRF{key: mac.Sum(nil)}
}

func (c *CSRF) Token(sessionID string) string {
	return base64.RawURLEncoding.EncodeToString(c.sum(sessionID))
}

// Verify compares in constant time. Empty values never verify.
func (c *CSRF) Verify(sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return hmac.Equal(got, c.sum(sessionID))
}

func (c *CSRF) sum(sessionID string) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte("csrf:" + sessionID))
	return mac.Sum(nil)
}
