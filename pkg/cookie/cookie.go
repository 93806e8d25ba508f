// Package cookie signs session cookies and carries one-shot encrypted flash messages.
package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// MinSecretLength is the shortest accepted signing secret.
const MinSecretLength = 32

const flashPrefix = "flash_"

var (
	ErrNotFound  = errors.New("cookie: not found")
	ErrNoSecret  = errors.New("cookie: secret required")
	ErrBadSecret = errors.New("cookie: secret must be 32+ bytes")
	ErrBadSig    = errors.New("cookie: invalid signature")
	ErrDecrypt   = errors.New("cookie: decryption failed")
)

// Manager writes cookies with shared attributes and a single secret.
type Manager struct {
	signKey  []byte
	aead     cipher.AEAD
	domain   string
	path     string
	sameSite http.SameSite
	secure   bool
}

// Option configures the Manager.
type Option func(*Manager)

// WithDomain sets the cookie domain.
func WithDomain(domain string) Option {
	return func(m *Manager) { m.domain = domain }
}

// WithPath sets the cookie path.
func WithPath(path string) Option {
	return func(m *Manager) {
		if path != "" {
			m.path = path
		}
	}
}

// WithSecure sets the Secure flag.
func WithSecure(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

// WithSameSite sets the SameSite attribute.
func WithSameSite(ss http.SameSite) Option {
	return func(m *Manager) { m.sameSite = ss }
}

// New builds a Manager. Signing and encryption keys are derived from secret
// under separate labels so one never doubles as the other.
func New(secret string, opts ...Option) (*Manager, error) {
	switch {
	case secret == "":
		return nil, ErrNoSecret
	case len(secret) < MinSecretLength:
		return nil, ErrBadSecret
	}

	encKey := deriveKey(secret, "encrypt")
	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("cookie: cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cookie: gcm: %w", err)
	}

	m := &Manager{
		signKey:  deriveKey(secret, "sign"),
		aead:     aead,
		path:     "/",
		sameSite: http.SameSiteLaxMode,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func deriveKey(secret, label string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("cookie:" + label))
	return mac.Sum(nil)
}

// GetSigned returns the verified value of a signed cookie.
func (m *Manager) GetSigned(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", ErrNotFound
	}

	encValue, encSig, ok := strings.Cut(c.Value, ".")
	if !ok {
		return "", ErrBadSig
	}
	value, err := base64.RawURLEncoding.DecodeString(encValue)
	if err != nil {
		return "", ErrBadSig
	}
	sig, err := base64.RawURLEncoding.DecodeString(encSig)
	if err != nil {
		return "", ErrBadSig
	}
	if !hmac.Equal(sig, m.sign(name, value)) {
		return "", ErrBadSig
	}
	return string(value), nil
}

// SetSigned writes a signed cookie that expires at the given time.
// A zero expiry produces a browser-session cookie.
func (m *Manager) SetSigned(w http.ResponseWriter, name, value string, expires time.Time) {
	raw := []byte(value)
	encoded := base64.RawURLEncoding.EncodeToString(raw) + "." +
		base64.RawURLEncoding.EncodeToString(m.sign(name, raw))

	c := m.cookie(name, encoded)
	if !expires.IsZero() {
		c.Expires = expires.UTC()
		c.MaxAge = max(int(time.Until(expires).Seconds()), 1)
	}
	http.SetCookie(w, c)
}

// Expire instructs the client to drop a cookie.
func (m *Manager) Expire(w http.ResponseWriter, name string) {
	c := m.cookie(name, "")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

// SetFlash stores value as an encrypted cookie read once by Flash.
func (m *Manager) SetFlash(w http.ResponseWriter, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cookie: flash encode: %w", err)
	}

	nonce := make([]byte, m.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("cookie: nonce: %w", err)
	}
	name := flashPrefix + key
	sealed := m.aead.Seal(nonce, nonce, data, []byte(name))

	http.SetCookie(w, m.cookie(name, base64.RawURLEncoding.EncodeToString(sealed)))
	return nil
}

// Flash decodes a flash message into dest and expires it.
// Returns ErrNotFound when no message is pending.
func (m *Manager) Flash(w http.ResponseWriter, r *http.Request, key string, dest any) error {
	name := flashPrefix + key
	c, err := r.Cookie(name)
	if err != nil {
		return ErrNotFound
	}
	m.Expire(w, name)

	sealed, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil || len(sealed) < m.aead.NonceSize() {
		return ErrDecrypt
	}
	nonce, ciphertext := sealed[:m.aead.NonceSize()], sealed[m.aead.NonceSize():]
	data, err := m.aead.Open(nil, nonce, ciphertext, []byte(name))
	if err != nil {
		return ErrDecrypt
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return nil
}

// The cookie name is part of the MAC so a value cannot be replayed under another name.
func (m *Manager) sign(name string, value []byte) []byte {
	mac := hmac.New(sha256.New, m.signKey)
	mac.Write([]byte(name))
	mac.Write([]byte{0})
	mac.Write(value)
	return mac.Sum(nil)
}

func (m *Manager) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     m.path,
		Domain:   m.domain,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: m.sameSite,
	}
}
