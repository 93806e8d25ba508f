package internal

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storefront/pkg/cookie"
	"github.com/dmitrymomot/storefront/pkg/csrf"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/session"
)

// Default session configuration.
const (
	defaultSessionCookieName   = "storefront.sid"
	defaultSessionMaxAge       = 14 * 24 * time.Hour
	defaultSessionTouch        = time.Minute
	defaultSessionStoreTimeout = 3 * time.Second
)

// Notes returned by Load when a fresh session replaced the requested one.
const (
	noteNoCookie     = "no session cookie"
	noteBadSignature = "session cookie signature invalid"
	noteUnknown      = "session not found"
	noteExpired      = "session expired"
)

// SessionManager loads sessions from the signed cookie and persists them before the response is committed.
type SessionManager struct {
	store        session.Store
	cookies      *cookie.Manager
	logger       *slog.Logger
	now          func() time.Time
	cookieName   string
	maxAge       time.Duration
	touch        time.Duration
	storeTimeout time.Duration
}

// SessionOption configures the SessionManager.
type SessionOption func(*SessionManager)

// NewSessionManager creates a SessionManager over the given store.
// The cookie manager signs the session token.
func NewSessionManager(store session.Store, cookies *cookie.Manager, opts ...SessionOption) *SessionManager {
	sm := &SessionManager{
		store:        store,
		cookies:      cookies,
		logger:       logger.NewNope(),
		now:          time.Now,
		cookieName:   defaultSessionCookieName,
		maxAge:       defaultSessionMaxAge,
		touch:        defaultSessionTouch,
		storeTimeout: defaultSessionStoreTimeout,
	}

	for _, opt := range opts {
		opt(sm)
	}

	return sm
}

// WithSessionCookieName sets the session cookie name.
func WithSessionCookieName(name string) SessionOption {
	return func(sm *SessionManager) {
		if name != "" {
			sm.cookieName = name
		}
	}
}

// WithSessionMaxAge sets the fixed session lifetime.
func WithSessionMaxAge(d time.Duration) SessionOption {
	return func(sm *SessionManager) {
		if d > 0 {
			sm.maxAge = d
		}
	}
}

// WithSessionTouchInterval sets how stale LastActiveAt may get before an unchanged session is written again.
func WithSessionTouchInterval(d time.Duration) SessionOption {
	return func(sm *SessionManager) {
		if d > 0 {
			sm.touch = d
		}
	}
}

// WithSessionStoreTimeout bounds every store call.
func WithSessionStoreTimeout(d time.Duration) SessionOption {
	return func(sm *SessionManager) {
		if d > 0 {
			sm.storeTimeout = d
		}
	}
}

// WithSessionLogger sets the logger for session events.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(sm *SessionManager) {
		if l != nil {
			sm.logger = l
		}
	}
}

// CookieName returns the name of the session cookie.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Load resolves the session named by the request cookie.
// A missing, forged, unknown or expired session is replaced by a new one and the
// reason is returned as a note. Only store outages are returned as errors.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*session.Session, string, error) {
	token, err := sm.cookies.GetSigned(r, sm.cookieName)
	switch {
	case errors.Is(err, cookie.ErrNotFound):
		return sm.fresh(noteNoCookie)
	case err != nil:
		return sm.fresh(noteBadSignature)
	}

	ctx, cancel := context.WithTimeout(ctx, sm.storeTimeout)
	defer cancel()

	sess, err := sm.store.Get(ctx, token)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return sm.fresh(noteUnknown)
	case errors.Is(err, session.ErrExpired):
		return sm.fresh(noteExpired)
	case err != nil:
		return nil, "", fmt.Errorf("load session: %w", err)
	}

	if sess.IsExpired(sm.now()) {
		return sm.fresh(noteExpired)
	}
	return sess, "", nil
}

func (sm *SessionManager) fresh(note string) (*session.Session, string, error) {
	token, err := generateToken()
	if err != nil {
		return nil, "", err
	}
	secret, err := csrf.NewSecret()
	if err != nil {
		return nil, "", fmt.Errorf("generate csrf secret: %w", err)
	}
	return session.New(uuid.NewString(), token, secret, sm.now().Add(sm.maxAge)), note, nil
}

// Commit persists the session and writes the cookie when needed.
// It runs right before the response header is committed; a returned error
// replaces the response with a generic 500.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, sess *session.Session) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		// The client is gone; nothing will read the cookie.
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sm.storeTimeout)
	defer cancel()

	if sess.IsDestroyed() {
		if !sess.IsNew() {
			if err := sm.store.Delete(ctx, sess.Token); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
		}
		if prev := sess.PreviousToken(); prev != "" {
			if err := sm.store.Delete(ctx, prev); err != nil {
				return fmt.Errorf("delete session: %w", err)
			}
		}
		sm.cookies.Expire(w, sm.cookieName)
		return nil
	}

	now := sm.now()
	if sess.IsNew() || sess.IsDirty() || now.Sub(sess.LastActiveAt) >= sm.touch {
		sess.LastActiveAt = now
		if err := sm.store.Save(ctx, sess); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}

	if prev := sess.PreviousToken(); prev != "" {
		if err := sm.store.Delete(ctx, prev); err != nil {
			return fmt.Errorf("delete rotated session: %w", err)
		}
	}

	if sess.IsNew() || sess.Rotated() {
		sm.cookies.SetSigned(w, sm.cookieName, sess.Token, sess.ExpiresAt)
	}

	sess.MarkSaved()
	return nil
}

// Rotate gives the session a new token and a new anti-forgery secret.
func (sm *SessionManager) Rotate(sess *session.Session) error {
	token, err := generateToken()
	if err != nil {
		return err
	}
	secret, err := csrf.NewSecret()
	if err != nil {
		return fmt.Errorf("generate csrf secret: %w", err)
	}
	sess.Rotate(token, secret)
	return nil
}

// Authenticate binds the user to the session and rotates it.
func (sm *SessionManager) Authenticate(sess *session.Session, userID string) error {
	sess.Authenticate(userID)
	return sm.Rotate(sess)
}

// Logout drops the user reference and rotates the session.
func (sm *SessionManager) Logout(sess *session.Session) error {
	sess.Logout()
	return sm.Rotate(sess)
}

// generateToken creates a cryptographically secure random token.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
