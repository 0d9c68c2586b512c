package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieRoundTrip(t *testing.T) {
	service := NewCookieService("test-secret")

	cookie, sid, err := service.Issue()
	require.NoError(t, err)
	assert.NotEmpty(t, sid)
	assert.Equal(t, CookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)

	got, err := service.Validate(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, sid, got)
}

func TestCookieDistinctSessions(t *testing.T) {
	service := NewCookieService("test-secret")

	_, first, err := service.Issue()
	require.NoError(t, err)
	_, second, err := service.Issue()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCookieRejectsTamperedValue(t *testing.T) {
	service := NewCookieService("test-secret")
	cookie, _, err := service.Issue()
	require.NoError(t, err)

	tampered := cookie.Value[:len(cookie.Value)-2] + "xx"
	_, err = service.Validate(tampered)
	assert.Error(t, err)
}

func TestCookieRejectsWrongSecret(t *testing.T) {
	issuer := NewCookieService("secret-a")
	verifier := NewCookieService("secret-b")

	cookie, _, err := issuer.Issue()
	require.NoError(t, err)

	_, err = verifier.Validate(cookie.Value)
	assert.Error(t, err)
}

func TestCookieRejectsGarbage(t *testing.T) {
	service := NewCookieService("test-secret")
	_, err := service.Validate("not-a-jwt")
	assert.Error(t, err)
}

func TestExpireCookieClearsValue(t *testing.T) {
	service := NewCookieService("test-secret")
	cookie := service.Expire()
	assert.Equal(t, CookieName, cookie.Name)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}
