// Package auth carries the resolved browser session through a request's
// context.
package auth

import (
	"context"

	"github.com/hzrede/studio/internal/model"
)

type contextKey struct{}

// WithSession attaches the session to the context.
func WithSession(ctx context.Context, sess *model.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the request's session, if one was attached.
func FromContext(ctx context.Context) (*model.Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(*model.Session)
	return sess, ok && sess != nil
}

// IsAdmin reports whether the request's session carries the admin flag.
// The flag says nothing about whether a user is active; the two are
// independent.
func IsAdmin(ctx context.Context) bool {
	sess, ok := FromContext(ctx)
	return ok && sess.IsAdmin
}

// SessionID returns the request's session id, or 0 when absent.
func SessionID(ctx context.Context) int64 {
	sess, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return sess.ID
}
