package internal

import (
	"context"
	"log/slog"
	"mime/multipart"

	"github.com/dmitrymomot/storefront/pkg/identity"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/session"
)

// Upload describes a file accepted by the upload gate and written to object storage.
type Upload struct {
	FieldName   string
	Filename    string // client-supplied, informational only
	ContentType string
	Key         string
	Location    string
	Size        int64
}

// requestState is what the pipeline stages hand to one another and to handlers.
// It travels in the request context so that every Context built for the request sees it.
type requestState struct {
	session   *session.Session
	identity  *identity.Identity
	pending   *multipart.FileHeader
	upload    *Upload
	csrfToken string
	cleanup   []func()
}

type stateKey struct{}

func stateFrom(ctx context.Context) *requestState {
	st, _ := ctx.Value(stateKey{}).(*requestState)
	return st
}

func (s *requestState) onCleanup(fn func()) {
	s.cleanup = append(s.cleanup, fn)
}

func (s *requestState) runCleanup() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
	s.cleanup = nil
}

// SessionIDExtractor adds session_id to log records.
// The stable session ID is logged, never the cookie token.
func SessionIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if st := stateFrom(ctx); st != nil && st.session != nil {
			return slog.String("session_id", st.session.ID), true
		}
		return slog.Attr{}, false
	}
}

// UserIDExtractor adds user_id to log records once the identity is resolved.
func UserIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if st := stateFrom(ctx); st != nil && st.identity != nil {
			return slog.String("user_id", st.identity.ID), true
		}
		return slog.Attr{}, false
	}
}
