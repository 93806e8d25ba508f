package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
)

const (
	// FormField is the form field a token is read from.
	FormField = "_csrf"
	// HeaderName is the request header a token is read from.
	HeaderName = "X-CSRF-Token"

	secretSize = 32
	tokenLabel = "csrf:"
)

// Errors.
var (
	ErrNoSecret     = errors.New("csrf: session has no secret")
	ErrBadSecret    = errors.New("csrf: malformed secret")
	ErrMissingToken = errors.New("csrf: token missing")
	ErrInvalidToken = errors.New("csrf: token invalid")
)

var encoding = base64.RawURLEncoding

// NewSecret returns a fresh random per-session secret.
func NewSecret() (string, error) {
	b := make([]byte, secretSize)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return encoding.EncodeToString(b), nil
}

// Token derives the anti-forgery token for a session.
// The same secret and session ID always produce the same token.
func Token(secret, sessionID string) (string, error) {
	mac, err := sign(secret, sessionID)
	if err != nil {
		return "", err
	}
	return encoding.EncodeToString(mac), nil
}

// Verify checks a submitted token against the session's secret and ID in constant time.
func Verify(secret, sessionID, token string) error {
	if token == "" {
		return ErrMissingToken
	}

	expected, err := sign(secret, sessionID)
	if err != nil {
		return err
	}

	got, err := encoding.DecodeString(token)
	if err != nil {
		return ErrInvalidToken
	}
	if !hmac.Equal(expected, got) {
		return ErrInvalidToken
	}
	return nil
}

// FromRequest returns the submitted token, preferring the header over the form field.
// The form must already be parsed for the field to be visible.
func FromRequest(r *http.Request) string {
	if v := r.Header.Get(HeaderName); v != "" {
		return v
	}
	if r.PostForm != nil {
		if v := r.PostForm.Get(FormField); v != "" {
			return v
		}
	}
	if r.MultipartForm != nil {
		if vs := r.MultipartForm.Value[FormField]; len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

// IsSafeMethod reports whether the method is exempt from token checks.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

func sign(secret, sessionID string) ([]byte, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	key, err := encoding.DecodeString(secret)
	if err != nil || len(key) < secretSize {
		return nil, ErrBadSecret
	}

	h := hmac.New(sha256.New, key)
	h.Write([]byte(tokenLabel))
	h.Write([]byte(sessionID))
	return h.Sum(nil), nil
}
