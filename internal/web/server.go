// Package web is the console's presentation layer: route guards, form
// handling, and the screens that drive the record list controller.
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"railboard/internal/api"
	"railboard/internal/auth"
	"railboard/internal/config"
	"railboard/internal/list"
	"railboard/internal/model"
	"railboard/internal/session"
)

// Server holds the console's shared state. Controllers are per console
// session: each signed-in visitor gets their own query state.
type Server struct {
	cfg     *config.Config
	store   session.Store
	cookies *auth.CookieService
	log     *zap.Logger
	httpc   *http.Client

	mu          sync.Mutex
	controllers map[string]*list.Controller
}

// NewServer creates the console server.
func NewServer(cfg *config.Config, store session.Store, cookies *auth.CookieService, log *zap.Logger) *Server {
	return &Server{
		cfg:         cfg,
		store:       store,
		cookies:     cookies,
		log:         log,
		httpc:       &http.Client{Timeout: 15 * time.Second},
		controllers: make(map[string]*list.Controller),
	}
}

// scopeOf returns the session scope stored by the guard middleware.
func scopeOf(c echo.Context) session.Scope {
	scope, _ := c.Get(contextKeyScope).(session.Scope)
	return scope
}

// apiFor builds a backend client bound to one session scope. A 401 from any
// call evicts the session and drops the visitor's controller; the handler
// then redirects to login.
func (s *Server) apiFor(scope session.Scope) *api.Client {
	return api.New(s.cfg.BackendURL,
		api.WithHTTPClient(s.httpc),
		api.WithTokenSource(scope.Token),
		api.WithUnauthorizedHook(func(ctx context.Context) {
			if err := scope.Clear(ctx); err != nil {
				s.log.Warn("clear session after 401", zap.Error(err))
			}
			s.dropController(scope.SID())
		}),
	)
}

// controllerFor returns the visitor's list controller, creating it on first
// use of the schedule screen.
func (s *Server) controllerFor(scope session.Scope) *list.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctrl, ok := s.controllers[scope.SID()]; ok {
		return ctrl
	}
	client := s.apiFor(scope)
	fetch := func(ctx context.Context, q list.Query) ([]model.Train, int, error) {
		page, err := client.ListTrains(ctx, api.ListQuery{
			Search:    q.Search,
			Status:    q.Status,
			Type:      q.Type,
			Page:      q.Page,
			Limit:     q.Limit,
			SortBy:    q.SortField,
			SortOrder: api.SortOrder(q.SortDir),
		})
		if err != nil {
			return nil, 0, err
		}
		return page.Data, page.Total, nil
	}
	ctrl := list.New(fetch, list.WithLimit(s.cfg.PageSize))
	s.controllers[scope.SID()] = ctrl
	return ctrl
}

func (s *Server) dropController(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.controllers, sid)
}

// requestValidator wraps validator for Echo.
type requestValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator.
func (v *requestValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}
