package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railboard/internal/model"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	user := model.User{ID: "u1", Username: "admin", Email: "admin@railboard.local", IsAdmin: true}

	require.NoError(t, store.Save(ctx, "sid-1", "token-1", user))

	token, err := store.Token(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	got, err := store.User(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, user, *got)
}

func TestMemoryStoreUnknownSession(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Token(ctx, "nope")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = store.User(ctx, "nope")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestMemoryStoreClearRemovesBoth(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "sid-1", "token-1", model.User{ID: "u1"}))

	require.NoError(t, store.Clear(ctx, "sid-1"))

	_, err := store.Token(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrNoSession, "token must be gone after clear")
	_, err = store.User(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrNoSession, "profile must be gone after clear")

	// Clearing twice is harmless.
	assert.NoError(t, store.Clear(ctx, "sid-1"))
}

func TestMemoryStoreSaveOverwrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "sid-1", "old", model.User{ID: "u1", Username: "old"}))
	require.NoError(t, store.Save(ctx, "sid-1", "new", model.User{ID: "u1", Username: "new"}))

	token, err := store.Token(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "new", token)

	user, err := store.User(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "new", user.Username)
}

func TestScopeAuthenticated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	scope := NewScope(store, "sid-1")

	assert.False(t, scope.Authenticated(ctx))
	assert.False(t, scope.IsAdmin(ctx))
	assert.Empty(t, scope.Token(ctx))

	require.NoError(t, scope.Save(ctx, "token-1", model.User{ID: "u1", Username: "admin", IsAdmin: true}))

	assert.True(t, scope.Authenticated(ctx))
	assert.True(t, scope.IsAdmin(ctx))
	assert.Equal(t, "token-1", scope.Token(ctx))

	user, ok := scope.User(ctx)
	require.True(t, ok)
	assert.Equal(t, "admin", user.Username)
}

func TestScopeClearEndsSession(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	scope := NewScope(store, "sid-1")
	require.NoError(t, scope.Save(ctx, "token-1", model.User{ID: "u1", IsAdmin: true}))

	require.NoError(t, scope.Clear(ctx))

	assert.False(t, scope.Authenticated(ctx))
	assert.False(t, scope.IsAdmin(ctx), "admin flag must not survive the session")
	_, ok := scope.User(ctx)
	assert.False(t, ok)
}

func TestScopeNonAdmin(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	scope := NewScope(store, "sid-2")
	require.NoError(t, scope.Save(ctx, "token-2", model.User{ID: "u2", Username: "viewer"}))

	assert.True(t, scope.Authenticated(ctx))
	assert.False(t, scope.IsAdmin(ctx))
}

func TestScopesAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	first := NewScope(store, "sid-1")
	second := NewScope(store, "sid-2")
	require.NoError(t, first.Save(ctx, "token-1", model.User{ID: "u1"}))

	assert.True(t, first.Authenticated(ctx))
	assert.False(t, second.Authenticated(ctx))

	require.NoError(t, first.Clear(ctx))
	assert.False(t, first.Authenticated(ctx))
}
