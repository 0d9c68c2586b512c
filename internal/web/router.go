package web

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// requestLogger logs each request through zap.
func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			log.Info("request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			)
			return nil
		}
	}
}

// Routes wires the console routes. Everything past the auth screens sits
// behind the session guard; the admin forms additionally require the admin
// role.
func (s *Server) Routes(e *echo.Echo) error {
	renderer, err := NewRenderer()
	if err != nil {
		return err
	}
	e.Renderer = renderer
	e.Validator = &requestValidator{validator: newValidator()}

	e.Use(middleware.Recover())
	e.Use(requestLogger(s.log))

	e.GET("/", s.Home)
	e.GET("/login", s.LoginPage)
	e.POST("/login", s.Login)
	e.GET("/register", s.RegisterPage)
	e.POST("/register", s.Register)

	guarded := e.Group("", s.sessionCookie(), s.requireSession)
	guarded.GET("/schedule", s.Schedule)
	guarded.POST("/logout", s.Logout)

	admin := guarded.Group("/admin", s.requireAdmin)
	admin.GET("/trains/new", s.NewTrainPage)
	admin.POST("/trains", s.CreateTrain)
	admin.GET("/trains/:id/edit", s.EditTrainPage)
	admin.POST("/trains/:id", s.UpdateTrain)
	admin.POST("/trains/:id/delete", s.DeleteTrain)

	return nil
}
