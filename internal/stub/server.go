package stub

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "railboard/internal/errors"
	"railboard/internal/model"
)

const (
	bcryptCost   = 10
	defaultLimit = 10
	maxLimit     = 100
)

// Server bundles the stub backend's HTTP handlers.
type Server struct {
	trains TrainRepository
	users  UserRepository
	tokens *TokenService
	log    *zap.Logger
}

// NewServer creates the stub backend over the given database.
func NewServer(db *gorm.DB, tokens *TokenService, log *zap.Logger) *Server {
	return &Server{
		trains: NewTrainRepository(db),
		users:  NewUserRepository(db),
		tokens: tokens,
		log:    log,
	}
}

// Register wires routes and middleware onto e.
func (s *Server) Register(e *echo.Echo) {
	e.Use(middleware.Recover())
	e.Validator = &requestValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	api := e.Group("/api")

	api.POST("/auth/register", s.RegisterUser)
	api.POST("/auth/login", s.Login)

	secured := api.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey: s.tokens.secret,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return &TokenClaims{}
		},
	}))

	secured.GET("/trains", s.ListTrains)
	secured.GET("/trains/:id", s.GetTrain)

	admin := secured.Group("", s.requireAdmin)
	admin.POST("/trains", s.CreateTrain)
	admin.PATCH("/trains/:id", s.UpdateTrain)
	admin.DELETE("/trains/:id", s.DeleteTrain)
}

// requireAdmin rejects mutating calls from non-admin accounts. Role checks
// happen here regardless of what the console shows or hides.
func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := c.Get("user").(*jwt.Token)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
		claims, ok := token.Claims.(*TokenClaims)
		if !ok || !claims.IsAdmin {
			he := apperrors.MapErrorToHTTP(apperrors.ErrAdminRequired)
			return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
		}
		return next(c)
	}
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse mirrors the documented login contract.
type LoginResponse struct {
	AccessToken string     `json:"access_token"`
	User        model.User `json:"user"`
}

// RegisterUser creates a backend account.
func (s *Server) RegisterUser(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if existing, err := s.users.FindByUsernameOrEmail(ctx, req.Username, req.Email); err == nil && existing != nil {
		he := apperrors.MapErrorToHTTP(apperrors.ErrUserAlreadyExists)
		return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to register user")
	}

	user := &UserRecord{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(c.Request().Context(), user); err != nil {
		s.log.Error("create user", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to register user")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "user registered successfully",
		"user":    user.ToModel(),
	})
}

// Login authenticates an account and returns a bearer token plus profile.
func (s *Server) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := s.users.FindByUsername(c.Request().Context(), req.Username)
	if err != nil {
		he := apperrors.MapErrorToHTTP(apperrors.ErrInvalidCredentials)
		return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		he := apperrors.MapErrorToHTTP(apperrors.ErrInvalidCredentials)
		return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		s.log.Error("generate token", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to login")
	}

	return c.JSON(http.StatusOK, LoginResponse{AccessToken: token, User: user.ToModel()})
}

// TrainPageResponse is the paginated list body.
type TrainPageResponse struct {
	Data  []model.Train `json:"data"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// ListTrains serves the paged, filtered, sorted list.
func (s *Server) ListTrains(c echo.Context) error {
	params := ListParams{
		Search:    c.QueryParam("search"),
		Status:    c.QueryParam("status"),
		Type:      c.QueryParam("type"),
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", defaultLimit),
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = defaultLimit
	}
	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}

	records, total, err := s.trains.List(c.Request().Context(), params)
	if err != nil {
		he := apperrors.MapErrorToHTTP(err)
		if he.StatusCode == http.StatusInternalServerError {
			s.log.Error("list trains", zap.Error(err))
		}
		return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
	}

	data := make([]model.Train, 0, len(records))
	for i := range records {
		data = append(data, records[i].ToModel())
	}
	return c.JSON(http.StatusOK, TrainPageResponse{
		Data:  data,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	})
}

// GetTrain serves one record by id.
func (s *Server) GetTrain(c echo.Context) error {
	record, err := s.trains.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.trainError(c, err)
	}
	return c.JSON(http.StatusOK, record.ToModel())
}

// TrainCreateRequest is the creation payload: a full record sans id.
type TrainCreateRequest struct {
	TrainNumber      string    `json:"train_number" validate:"required"`
	DepartureStation string    `json:"departure_station" validate:"required"`
	ArrivalStation   string    `json:"arrival_station" validate:"required"`
	DepartureTime    time.Time `json:"departure_time" validate:"required"`
	ArrivalTime      time.Time `json:"arrival_time" validate:"required"`
	Status           string    `json:"status" validate:"required,oneof=scheduled delayed cancelled departed arrived"`
	Type             string    `json:"type" validate:"required,oneof=express passenger freight"`
	Platform         string    `json:"platform"`
}

// CreateTrain inserts a record and returns it with the assigned id.
func (s *Server) CreateTrain(c echo.Context) error {
	var req TrainCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	record := &TrainRecord{
		TrainNumber:      req.TrainNumber,
		DepartureStation: req.DepartureStation,
		ArrivalStation:   req.ArrivalStation,
		DepartureTime:    req.DepartureTime,
		ArrivalTime:      req.ArrivalTime,
		Status:           req.Status,
		Type:             req.Type,
		Platform:         req.Platform,
	}
	if err := s.trains.Create(c.Request().Context(), record); err != nil {
		s.log.Error("create train", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create train")
	}
	return c.JSON(http.StatusCreated, record.ToModel())
}

// TrainUpdateRequest is a partial update; nil fields stay untouched.
type TrainUpdateRequest struct {
	TrainNumber      *string    `json:"train_number" validate:"omitempty,min=1"`
	DepartureStation *string    `json:"departure_station" validate:"omitempty,min=1"`
	ArrivalStation   *string    `json:"arrival_station" validate:"omitempty,min=1"`
	DepartureTime    *time.Time `json:"departure_time"`
	ArrivalTime      *time.Time `json:"arrival_time"`
	Status           *string    `json:"status" validate:"omitempty,oneof=scheduled delayed cancelled departed arrived"`
	Type             *string    `json:"type" validate:"omitempty,oneof=express passenger freight"`
	Platform         *string    `json:"platform"`
}

// UpdateTrain applies a partial update and returns the resulting record.
func (s *Server) UpdateTrain(c echo.Context) error {
	var req TrainUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	record, err := s.trains.FindByID(ctx, c.Param("id"))
	if err != nil {
		return s.trainError(c, err)
	}

	if req.TrainNumber != nil {
		record.TrainNumber = *req.TrainNumber
	}
	if req.DepartureStation != nil {
		record.DepartureStation = *req.DepartureStation
	}
	if req.ArrivalStation != nil {
		record.ArrivalStation = *req.ArrivalStation
	}
	if req.DepartureTime != nil {
		record.DepartureTime = *req.DepartureTime
	}
	if req.ArrivalTime != nil {
		record.ArrivalTime = *req.ArrivalTime
	}
	if req.Status != nil {
		record.Status = *req.Status
	}
	if req.Type != nil {
		record.Type = *req.Type
	}
	if req.Platform != nil {
		record.Platform = *req.Platform
	}

	if err := s.trains.Save(ctx, record); err != nil {
		s.log.Error("update train", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update train")
	}
	return c.JSON(http.StatusOK, record.ToModel())
}

// DeleteTrain removes a record.
func (s *Server) DeleteTrain(c echo.Context) error {
	if err := s.trains.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return s.trainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "train deleted"})
}

func (s *Server) trainError(c echo.Context, err error) error {
	if err == gorm.ErrRecordNotFound {
		he := apperrors.MapErrorToHTTP(apperrors.ErrTrainNotFound)
		return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
	}
	s.log.Error("train storage", zap.Error(err))
	he := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
}

func queryInt(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return parsed
}

// requestValidator wraps validator for Echo.
type requestValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator.
func (v *requestValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}
