package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"railboard/internal/api"
	"railboard/internal/auth"
	"railboard/internal/list"
	"railboard/internal/model"
	"railboard/internal/session"
)

// baseData is shared by every screen.
type baseData struct {
	Authenticated bool
	IsAdmin       bool
	Username      string
	Error         string
}

type loginData struct {
	baseData
	Form        loginForm
	FieldErrors map[string]string
}

type registerData struct {
	baseData
	Form        registerForm
	FieldErrors map[string]string
}

type scheduleData struct {
	baseData
	Snap      list.Snapshot
	SortField string
	SortDir   string
	PrevPage  int
	NextPage  int
	Statuses  []model.TrainStatus
	Types     []model.TrainType
}

type trainFormData struct {
	baseData
	Form        trainForm
	FieldErrors map[string]string
	Action      string
	IsEdit      bool
	Statuses    []model.TrainStatus
	Types       []model.TrainType
}

func (s *Server) base(c echo.Context, scope session.Scope) baseData {
	user, ok := scope.User(c.Request().Context())
	if !ok {
		return baseData{}
	}
	return baseData{
		Authenticated: true,
		IsAdmin:       user.IsAdmin,
		Username:      user.Username,
	}
}

// currentScope resolves the cookie outside the guarded route group, for
// screens like login that behave differently when already signed in.
func (s *Server) currentScope(c echo.Context) (session.Scope, bool) {
	cookie, err := c.Cookie(auth.CookieName)
	if err != nil {
		return session.Scope{}, false
	}
	sid, err := s.cookies.Validate(cookie.Value)
	if err != nil {
		return session.Scope{}, false
	}
	scope := session.NewScope(s.store, sid)
	if !scope.Authenticated(c.Request().Context()) {
		return session.Scope{}, false
	}
	return scope, true
}

// Home routes the bare path to the right screen.
func (s *Server) Home(c echo.Context) error {
	if _, ok := s.currentScope(c); ok {
		return c.Redirect(http.StatusSeeOther, "/schedule")
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// LoginPage renders the sign-in form.
func (s *Server) LoginPage(c echo.Context) error {
	if _, ok := s.currentScope(c); ok {
		return c.Redirect(http.StatusSeeOther, "/schedule")
	}
	return c.Render(http.StatusOK, "login", loginData{})
}

// Login validates credentials against the backend and establishes the
// console session: backend token and profile saved together, cookie issued.
func (s *Server) Login(c echo.Context) error {
	var form loginForm
	if err := c.Bind(&form); err != nil {
		return c.Render(http.StatusBadRequest, "login", loginData{
			baseData: baseData{Error: "Invalid form submission"},
		})
	}
	if err := c.Validate(&form); err != nil {
		return c.Render(http.StatusOK, "login", loginData{
			Form:        form,
			FieldErrors: fieldErrors(err),
		})
	}

	ctx := c.Request().Context()
	client := api.New(s.cfg.BackendURL, api.WithHTTPClient(s.httpc))
	creds, err := client.Login(ctx, form.Username, form.Password)
	if err != nil {
		msg := "Login failed"
		if api.IsUnauthorized(err) {
			msg = "Invalid username or password"
		}
		return c.Render(http.StatusOK, "login", loginData{
			baseData: baseData{Error: msg},
			Form:     form,
		})
	}

	cookie, sid, err := s.cookies.Issue()
	if err != nil {
		s.log.Error("issue session cookie", zap.Error(err))
		return c.Render(http.StatusInternalServerError, "login", loginData{
			baseData: baseData{Error: "Login failed"},
			Form:     form,
		})
	}
	scope := session.NewScope(s.store, sid)
	if err := scope.Save(ctx, creds.AccessToken, creds.User); err != nil {
		s.log.Error("save session", zap.Error(err))
		return c.Render(http.StatusInternalServerError, "login", loginData{
			baseData: baseData{Error: "Login failed"},
			Form:     form,
		})
	}

	c.SetCookie(cookie)
	return c.Redirect(http.StatusSeeOther, "/schedule")
}

// RegisterPage renders the account creation form.
func (s *Server) RegisterPage(c echo.Context) error {
	if _, ok := s.currentScope(c); ok {
		return c.Redirect(http.StatusSeeOther, "/schedule")
	}
	return c.Render(http.StatusOK, "register", registerData{})
}

// Register creates a backend account and sends the visitor to sign in.
func (s *Server) Register(c echo.Context) error {
	var form registerForm
	if err := c.Bind(&form); err != nil {
		return c.Render(http.StatusBadRequest, "register", registerData{
			baseData: baseData{Error: "Invalid form submission"},
		})
	}
	if err := c.Validate(&form); err != nil {
		return c.Render(http.StatusOK, "register", registerData{
			Form:        form,
			FieldErrors: fieldErrors(err),
		})
	}

	client := api.New(s.cfg.BackendURL, api.WithHTTPClient(s.httpc))
	if err := client.Register(c.Request().Context(), form.Username, form.Email, form.Password); err != nil {
		return c.Render(http.StatusOK, "register", registerData{
			baseData: baseData{Error: "Registration failed"},
			Form:     form,
		})
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// Logout tears the session down: token and profile cleared together, cookie
// expired, controller dropped.
func (s *Server) Logout(c echo.Context) error {
	scope := scopeOf(c)
	if err := scope.Clear(c.Request().Context()); err != nil {
		s.log.Warn("clear session", zap.Error(err))
	}
	s.dropController(scope.SID())
	c.SetCookie(s.cookies.Expire())
	return c.Redirect(http.StatusSeeOther, "/login")
}

// Schedule drives the record list controller. Each interaction arrives as a
// query parameter: sort-header clicks, page navigation, or the filter form.
func (s *Server) Schedule(c echo.Context) error {
	scope := scopeOf(c)
	ctrl := s.controllerFor(scope)
	ctx := c.Request().Context()
	params := c.QueryParams()

	var snap list.Snapshot
	var err error
	switch {
	case params.Has("sort"):
		snap, err = ctrl.Sort(ctx, params.Get("sort"))
	case params.Has("page"):
		page, convErr := strconv.Atoi(params.Get("page"))
		if convErr != nil {
			page = 1
		}
		snap, err = ctrl.Page(ctx, page)
	case params.Has("search") || params.Has("status") || params.Has("type"):
		snap, err = ctrl.Filters(ctx, params.Get("search"),
			model.TrainStatus(params.Get("status")),
			model.TrainType(params.Get("type")))
	default:
		snap, err = ctrl.Refresh(ctx)
	}

	if err != nil && api.IsUnauthorized(err) {
		c.SetCookie(s.cookies.Expire())
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	return s.renderSchedule(c, scope, snap)
}

func (s *Server) renderSchedule(c echo.Context, scope session.Scope, snap list.Snapshot) error {
	data := scheduleData{
		baseData:  s.base(c, scope),
		Snap:      snap,
		SortField: snap.Query.SortField,
		SortDir:   string(snap.Query.SortDir),
		PrevPage:  snap.Query.Page - 1,
		NextPage:  snap.Query.Page + 1,
		Statuses:  model.Statuses(),
		Types:     model.Types(),
	}
	if snap.Phase == list.PhaseErrored {
		data.Error = "Failed to load trains"
	}
	return c.Render(http.StatusOK, "schedule", data)
}

// NewTrainPage renders an empty create form.
func (s *Server) NewTrainPage(c echo.Context) error {
	now := time.Now().Format(datetimeLocal)
	return c.Render(http.StatusOK, "train_form", trainFormData{
		baseData: s.base(c, scopeOf(c)),
		Form: trainForm{
			DepartureTime: now,
			ArrivalTime:   now,
			Status:        string(model.StatusScheduled),
			Type:          string(model.TypeExpress),
		},
		Action:   "/admin/trains",
		Statuses: model.Statuses(),
		Types:    model.Types(),
	})
}

// CreateTrain submits the create form to the backend.
func (s *Server) CreateTrain(c echo.Context) error {
	scope := scopeOf(c)
	data := trainFormData{
		baseData: s.base(c, scope),
		Action:   "/admin/trains",
		Statuses: model.Statuses(),
		Types:    model.Types(),
	}

	var form trainForm
	if err := c.Bind(&form); err != nil {
		data.Error = "Invalid form submission"
		return c.Render(http.StatusBadRequest, "train_form", data)
	}
	data.Form = form
	if err := c.Validate(&form); err != nil {
		data.FieldErrors = fieldErrors(err)
		return c.Render(http.StatusOK, "train_form", data)
	}
	input, ferrs := form.input()
	if ferrs != nil {
		data.FieldErrors = ferrs
		return c.Render(http.StatusOK, "train_form", data)
	}

	if _, err := s.apiFor(scope).CreateTrain(c.Request().Context(), input); err != nil {
		if api.IsUnauthorized(err) {
			c.SetCookie(s.cookies.Expire())
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		data.Error = "Failed to create train"
		return c.Render(http.StatusOK, "train_form", data)
	}
	return c.Redirect(http.StatusSeeOther, "/schedule")
}

// EditTrainPage loads the record and renders the edit form. A train deleted
// in the meantime surfaces as a scoped error, not a crash.
func (s *Server) EditTrainPage(c echo.Context) error {
	scope := scopeOf(c)
	id := c.Param("id")
	data := trainFormData{
		baseData: s.base(c, scope),
		Action:   "/admin/trains/" + id,
		IsEdit:   true,
		Statuses: model.Statuses(),
		Types:    model.Types(),
	}

	train, err := s.apiFor(scope).GetTrain(c.Request().Context(), id)
	if err != nil {
		if api.IsUnauthorized(err) {
			c.SetCookie(s.cookies.Expire())
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		if api.IsNotFound(err) {
			data.Error = "Train not found"
		} else {
			data.Error = "Failed to load train"
		}
		return c.Render(http.StatusOK, "train_form", data)
	}

	data.Form = trainFormFrom(train)
	return c.Render(http.StatusOK, "train_form", data)
}

// UpdateTrain submits the edit form as a partial update.
func (s *Server) UpdateTrain(c echo.Context) error {
	scope := scopeOf(c)
	id := c.Param("id")
	data := trainFormData{
		baseData: s.base(c, scope),
		Action:   "/admin/trains/" + id,
		IsEdit:   true,
		Statuses: model.Statuses(),
		Types:    model.Types(),
	}

	var form trainForm
	if err := c.Bind(&form); err != nil {
		data.Error = "Invalid form submission"
		return c.Render(http.StatusBadRequest, "train_form", data)
	}
	data.Form = form
	if err := c.Validate(&form); err != nil {
		data.FieldErrors = fieldErrors(err)
		return c.Render(http.StatusOK, "train_form", data)
	}
	input, ferrs := form.input()
	if ferrs != nil {
		data.FieldErrors = ferrs
		return c.Render(http.StatusOK, "train_form", data)
	}

	patch := api.TrainPatch{
		TrainNumber:      &input.TrainNumber,
		DepartureStation: &input.DepartureStation,
		ArrivalStation:   &input.ArrivalStation,
		DepartureTime:    &input.DepartureTime,
		ArrivalTime:      &input.ArrivalTime,
		Status:           &input.Status,
		Type:             &input.Type,
		Platform:         &input.Platform,
	}
	if _, err := s.apiFor(scope).UpdateTrain(c.Request().Context(), id, patch); err != nil {
		if api.IsUnauthorized(err) {
			c.SetCookie(s.cookies.Expire())
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		if api.IsNotFound(err) {
			data.Error = "Train not found"
		} else {
			data.Error = "Failed to update train"
		}
		return c.Render(http.StatusOK, "train_form", data)
	}
	return c.Redirect(http.StatusSeeOther, "/schedule")
}

// DeleteTrain removes a record and refreshes the list; when the last row of
// the last page goes away the controller retreats a page rather than showing
// a blank one.
func (s *Server) DeleteTrain(c echo.Context) error {
	scope := scopeOf(c)
	ctx := c.Request().Context()

	if err := s.apiFor(scope).DeleteTrain(ctx, c.Param("id")); err != nil {
		if api.IsUnauthorized(err) {
			c.SetCookie(s.cookies.Expire())
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		ctrl := s.controllerFor(scope)
		snap := ctrl.Snapshot()
		data := scheduleData{
			baseData:  s.base(c, scope),
			Snap:      snap,
			SortField: snap.Query.SortField,
			SortDir:   string(snap.Query.SortDir),
			PrevPage:  snap.Query.Page - 1,
			NextPage:  snap.Query.Page + 1,
			Statuses:  model.Statuses(),
			Types:     model.Types(),
		}
		if api.IsNotFound(err) {
			data.Error = "Train was already deleted"
		} else {
			data.Error = "Failed to delete train"
		}
		return c.Render(http.StatusOK, "schedule", data)
	}

	ctrl := s.controllerFor(scope)
	snap, err := ctrl.Refresh(ctx)
	if err != nil && api.IsUnauthorized(err) {
		c.SetCookie(s.cookies.Expire())
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	return s.renderSchedule(c, scope, snap)
}
