// Package session holds the authenticated principal's bearer token and
// profile in persistent client-side storage. Token and profile are kept under
// two distinct keys but are always written and removed together; no component
// reads the underlying storage directly.
package session

import (
	"context"
	"errors"

	"railboard/internal/model"
)

// ErrNoSession is returned when storage holds no session for the scope.
var ErrNoSession = errors.New("no session")

// Store persists sessions addressed by an opaque session id. Implementations
// must keep token and profile consistent: after Save both are readable, after
// Clear neither is.
type Store interface {
	Save(ctx context.Context, sid, token string, user model.User) error
	Token(ctx context.Context, sid string) (string, error)
	User(ctx context.Context, sid string) (*model.User, error)
	Clear(ctx context.Context, sid string) error
}

// Scope binds a Store to one session id and exposes the per-principal
// contract the rest of the application talks to.
type Scope struct {
	store Store
	sid   string
}

// NewScope creates a scope over store for the given session id.
func NewScope(store Store, sid string) Scope {
	return Scope{store: store, sid: sid}
}

// SID returns the scope's session id.
func (s Scope) SID() string { return s.sid }

// Save persists token and profile together.
func (s Scope) Save(ctx context.Context, token string, user model.User) error {
	return s.store.Save(ctx, s.sid, token, user)
}

// Token returns the bearer token, or "" when no session exists.
func (s Scope) Token(ctx context.Context) string {
	token, err := s.store.Token(ctx, s.sid)
	if err != nil {
		return ""
	}
	return token
}

// User returns the stored profile and whether one exists.
func (s Scope) User(ctx context.Context) (model.User, bool) {
	user, err := s.store.User(ctx, s.sid)
	if err != nil || user == nil {
		return model.User{}, false
	}
	return *user, true
}

// Authenticated reports whether a token is present.
func (s Scope) Authenticated(ctx context.Context) bool {
	return s.Token(ctx) != ""
}

// IsAdmin reports whether the stored profile carries the admin flag. It is
// false when no session exists and never fails.
func (s Scope) IsAdmin(ctx context.Context) bool {
	user, ok := s.User(ctx)
	return ok && user.IsAdmin
}

// Clear removes token and profile together.
func (s Scope) Clear(ctx context.Context) error {
	return s.store.Clear(ctx, s.sid)
}
