package internal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/storefront/pkg/csrf"
	"github.com/dmitrymomot/storefront/pkg/identity"
	"github.com/dmitrymomot/storefront/pkg/session"
)

const defaultIdentityTimeout = 3 * time.Second

// SessionStage loads or creates the session and persists it right before the response is committed.
func SessionStage(sm *SessionManager) Stage {
	return StageFunc("session", func(c Context) Outcome {
		st := stateFrom(c.Context())
		sess, note, err := sm.Load(c.Context(), c.Request())
		if err != nil {
			return Fail(ErrInternal("Session unavailable", WithError(err)))
		}
		st.session = sess

		// The hook may run after the stage span ended; it uses the request context.
		reqCtx := c.Context()
		rw := c.ResponseWriter()
		rw.OnBeforeWrite(func() error {
			if err := sm.Commit(reqCtx, rw, sess); err != nil {
				c.LogError("session persist failed",
					slog.String("class", string(ClassInfrastructure)),
					slog.Any("error", err))
				return err
			}
			return nil
		})

		if note != "" {
			return ContinueWith(ClassBenign, note)
		}
		return Continue()
	})
}

// CSRFGuard exposes the session's anti-forgery token and verifies it on unsafe methods.
// A rejected request loses its pending upload.
func CSRFGuard() Stage {
	return StageFunc("csrf", func(c Context) Outcome {
		st := stateFrom(c.Context())
		sess := st.session
		if sess == nil {
			return Fail(ErrInternal("Session unavailable", WithError(session.ErrNotConfigured)))
		}

		if sess.CSRFSecret == "" {
			secret, err := csrf.NewSecret()
			if err != nil {
				return Fail(ErrInternal("Session unavailable", WithError(err)))
			}
			sess.CSRFSecret = secret
			sess.MarkDirty()
		}

		token, err := csrfTokenFor(sess)
		if err != nil {
			return Fail(ErrInternal("Session unavailable", WithError(err)))
		}
		st.csrfToken = token

		r := c.Request()
		if csrf.IsSafeMethod(r.Method) {
			return Continue()
		}

		if err := csrf.Verify(sess.CSRFSecret, sess.ID, csrf.FromRequest(r)); err != nil {
			st.pending = nil
			return Fail(ErrForbidden("Invalid CSRF token", WithError(err)))
		}
		return Continue()
	})
}

func csrfTokenFor(sess *session.Session) (string, error) {
	return csrf.Token(sess.CSRFSecret, sess.ID)
}

// IdentityResolver attaches the user referenced by the session.
// A reference to a user that no longer exists is cleared from the session.
func IdentityResolver(store identity.Store, timeout time.Duration) Stage {
	if timeout <= 0 {
		timeout = defaultIdentityTimeout
	}

	return StageFunc("identity", func(c Context) Outcome {
		st := stateFrom(c.Context())
		sess := st.session
		if sess == nil || sess.UserID == nil || *sess.UserID == "" {
			return Continue()
		}

		ctx, cancel := context.WithTimeout(c.Context(), timeout)
		defer cancel()

		user, err := store.FindByID(ctx, *sess.UserID)
		switch {
		case errors.Is(err, identity.ErrNotFound):
			sess.Logout()
			return ContinueWith(ClassBenign, "session user no longer exists")
		case err != nil:
			return Fail(ErrInternal("Identity lookup failed", WithError(err)))
		}

		st.identity = user
		return Continue()
	})
}
