package web

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"railboard/internal/auth"
	"railboard/internal/session"
)

// contextKeyScope is where the guard stores the visitor's session scope.
const contextKeyScope = "scope"

// sessionCookie parses and verifies the console cookie. Visitors without a
// valid cookie are sent to the login screen before anything protected
// renders.
func (s *Server) sessionCookie() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:  s.cookies.Keyfunc(),
		TokenLookup: "cookie:" + auth.CookieName,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return auth.NewClaims()
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.Redirect(http.StatusSeeOther, "/login")
		},
	})
}

// requireSession resolves the cookie's session id against the session store.
// A cookie whose session was cleared (logout or 401 eviction) is expired and
// the visitor is redirected to login.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		claims, ok := token.Claims.(*auth.Claims)
		if !ok || claims.SID == "" {
			return c.Redirect(http.StatusSeeOther, "/login")
		}

		scope := session.NewScope(s.store, claims.SID)
		if !scope.Authenticated(c.Request().Context()) {
			c.SetCookie(s.cookies.Expire())
			return c.Redirect(http.StatusSeeOther, "/login")
		}

		c.Set(contextKeyScope, scope)
		return next(c)
	}
}

// requireAdmin gates admin-only screens. Authenticated non-admins go back to
// the schedule listing, not to an error page. This only hides UI; the backend
// enforces the role on every mutating call.
func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		scope := scopeOf(c)
		if !scope.IsAdmin(c.Request().Context()) {
			return c.Redirect(http.StatusSeeOther, "/schedule")
		}
		return next(c)
	}
}
