package stub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"railboard/internal/model"
)

type testEnv struct {
	e      *echo.Echo
	db     *gorm.DB
	tokens *TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := OpenDB("", ":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	tokens := NewTokenService("test-secret")
	server := NewServer(db, tokens, zap.NewNop())
	e := echo.New()
	server.Register(e)

	return &testEnv{e: e, db: db, tokens: tokens}
}

func (env *testEnv) createUser(t *testing.T, username string, isAdmin bool) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcryptCost)
	require.NoError(t, err)
	user := &UserRecord{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
	}
	require.NoError(t, env.db.Create(user).Error)

	token, err := env.tokens.Generate(user)
	require.NoError(t, err)
	return token
}

func (env *testEnv) createTrain(t *testing.T, record TrainRecord) TrainRecord {
	t.Helper()
	require.NoError(t, env.db.Create(&record).Error)
	return record
}

func (env *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func baseTime() time.Time {
	return time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
}

func (env *testEnv) seedSchedule(t *testing.T, n int) []TrainRecord {
	t.Helper()
	records := make([]TrainRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, env.createTrain(t, TrainRecord{
			ID:               fmt.Sprintf("train-%03d", i),
			TrainNumber:      fmt.Sprintf("G%03d", i),
			DepartureStation: "Beijing South",
			ArrivalStation:   "Shanghai Hongqiao",
			DepartureTime:    baseTime().Add(time.Duration(i) * time.Hour),
			ArrivalTime:      baseTime().Add(time.Duration(i+4) * time.Hour),
			Status:           string(model.StatusScheduled),
			Type:             string(model.TypeExpress),
		}))
	}
	return records
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "newuser",
		"email":    "newuser@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Duplicate registration conflicts.
	rec = env.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "newuser",
		"email":    "other@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "newuser",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.NotEmpty(t, login.AccessToken)
	assert.Equal(t, "newuser", login.User.Username)
	assert.False(t, login.User.IsAdmin)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice", false)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "alice", password: "wrong"},
		{name: "unknown user", username: "nobody", password: "password123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
				"username": tt.username,
				"password": tt.password,
			})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")
		})
	}
}

func TestListRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	rec := env.request(t, http.MethodGet, "/api/trains", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListPagination(t *testing.T) {
	env := newTestEnv(t)
	token := env.createUser(t, "viewer", false)
	env.seedSchedule(t, 25)

	rec := env.request(t, http.MethodGet, "/api/trains?page=3&limit=10", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page TrainPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(25), page.Total, "total counts matches before pagination")
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Len(t, page.Data, 5)
}

func TestListSearchIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	token := env.createUser(t, "viewer", false)
	env.seedSchedule(t, 3)
	env.createTrain(t, TrainRecord{
		ID:               "train-hz",
		TrainNumber:      "D305",
		DepartureStation: "Hangzhou East",
		ArrivalStation:   "Nanjing South",
		DepartureTime:    baseTime(),
		ArrivalTime:      baseTime().Add(2 * time.Hour),
		Status:           string(model.StatusScheduled),
		Type:             string(model.TypeExpress),
	})

	for _, needle := range []string{"hangzhou", "HANGZHOU", "d305"} {
		rec := env.request(t, http.MethodGet, "/api/trains?search="+needle, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var page TrainPageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		require.Len(t, page.Data, 1, "search %q", needle)
		assert.Equal(t, "D305", page.Data[0].TrainNumber)
	}
}

func TestListFilters(t *testing.T) {
	env := newTestEnv(t)
	token := env.createUser(t, "viewer", false)
	env.seedSchedule(t, 4)
	env.createTrain(t, TrainRecord{
		ID:               "train-freight",
		TrainNumber:      "F820",
		DepartureStation: "Tianjin",
		ArrivalStation:   "Shijiazhuang",
		DepartureTime:    baseTime(),
		ArrivalTime:      baseTime().Add(6 * time.Hour),
		Status:           string(model.StatusDelayed),
		Type:             string(model.TypeFreight),
	})

	rec := env.request(t, http.MethodGet, "/api/trains?status=delayed", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page TrainPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, model.StatusDelayed, page.Data[0].Status)

	rec = env.request(t, http.MethodGet, "/api/trains?type=freight&status=delayed", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, "F820", page.Data[0].TrainNumber)
}

func TestListSortOrderAndTiebreak(t *testing.T) {
	env := newTestEnv(t)
	token := env.createUser(t, "viewer", false)

	// Three trains sharing a departure time; id must decide their order.
	shared := baseTime()
	for _, id := range []string{"train-c", "train-a", "train-b"} {
		env.createTrain(t, TrainRecord{
			ID:               id,
			TrainNumber:      "K511",
			DepartureStation: "Guangzhou",
			ArrivalStation:   "Changsha",
			DepartureTime:    shared,
			ArrivalTime:      shared.Add(7 * time.Hour),
			Status:           string(model.StatusScheduled),
			Type:             string(model.TypePassenger),
		})
	}

	for i := 0; i < 3; i++ {
		rec := env.request(t, http.MethodGet, "/api/trains?sort_by=departure_time&sort_order=asc", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var page TrainPageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		require.Len(t, page.Data, 3)
		assert.Equal(t, "train-a", page.Data[0].ID)
		assert.Equal(t, "train-b", page.Data[1].ID)
		assert.Equal(t, "train-c", page.Data[2].ID)
	}
}

func TestListSortDescending(t *testing.T) {
	env := newTestEnv(t)
	token := env.createUser(t, "viewer", false)
	env.seedSchedule(t, 3)

	rec := env.request(t, http.MethodGet, "/api/trains?sort_by=train_number&sort_order=desc", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page TrainPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 3)
	assert.Equal(t, "G002", page.Data[0].TrainNumber)
	assert.Equal(t, "G000", page.Data[2].TrainNumber)
}

func TestListRejectsUnknownSortField(t *testing.T) {
	env := newTestEnv(t)
	token := env.createUser(t, "viewer", false)

	rec := env.request(t, http.MethodGet, "/api/trains?sort_by=password_hash", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_SORT_FIELD")
}

func TestGetTrain(t *testing.T) {
	env := newTestEnv(t)
	token := env.createUser(t, "viewer", false)
	records := env.seedSchedule(t, 1)

	rec := env.request(t, http.MethodGet, "/api/trains/"+records[0].ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var train model.Train
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &train))
	assert.Equal(t, records[0].TrainNumber, train.TrainNumber)

	rec = env.request(t, http.MethodGet, "/api/trains/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "TRAIN_NOT_FOUND")
}

func TestMutationsRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.createUser(t, "viewer", false)
	records := env.seedSchedule(t, 1)

	payload := map[string]interface{}{
		"train_number":      "G999",
		"departure_station": "A",
		"arrival_station":   "B",
		"departure_time":    baseTime(),
		"arrival_time":      baseTime().Add(time.Hour),
		"status":            "scheduled",
		"type":              "express",
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{name: "create", method: http.MethodPost, path: "/api/trains", body: payload},
		{name: "update", method: http.MethodPatch, path: "/api/trains/" + records[0].ID, body: map[string]string{"status": "delayed"}},
		{name: "delete", method: http.MethodDelete, path: "/api/trains/" + records[0].ID, body: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.request(t, tt.method, tt.path, viewer, tt.body)
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Contains(t, rec.Body.String(), "ADMIN_REQUIRED")
		})
	}
}

func TestAdminCreateUpdateDelete(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", true)

	rec := env.request(t, http.MethodPost, "/api/trains", admin, map[string]interface{}{
		"train_number":      "G101",
		"departure_station": "Beijing South",
		"arrival_station":   "Shanghai Hongqiao",
		"departure_time":    baseTime(),
		"arrival_time":      baseTime().Add(4 * time.Hour),
		"status":            "scheduled",
		"type":              "express",
		"platform":          "4",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Train
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID, "backend assigns the id")

	// Partial update touches only the provided fields.
	rec = env.request(t, http.MethodPatch, "/api/trains/"+created.ID, admin, map[string]string{
		"status": "delayed",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated model.Train
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, model.StatusDelayed, updated.Status)
	assert.Equal(t, "G101", updated.TrainNumber)
	assert.Equal(t, "4", updated.Platform)

	rec = env.request(t, http.MethodDelete, "/api/trains/"+created.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Deleting again reports the record gone.
	rec = env.request(t, http.MethodDelete, "/api/trains/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "TRAIN_NOT_FOUND")
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(t, "admin", true)

	rec := env.request(t, http.MethodPost, "/api/trains", admin, map[string]interface{}{
		"train_number":      "G101",
		"departure_station": "Beijing South",
		"arrival_station":   "Shanghai Hongqiao",
		"departure_time":    baseTime(),
		"arrival_time":      baseTime().Add(time.Hour),
		"status":            "teleporting",
		"type":              "express",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeedIsIdempotent(t *testing.T) {
	db, err := OpenDB("", ":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	require.NoError(t, Seed(db))
	var users, trains int64
	require.NoError(t, db.Model(&UserRecord{}).Count(&users).Error)
	require.NoError(t, db.Model(&TrainRecord{}).Count(&trains).Error)
	assert.Equal(t, int64(2), users)
	assert.Equal(t, int64(12), trains)

	require.NoError(t, Seed(db))
	var usersAgain int64
	require.NoError(t, db.Model(&UserRecord{}).Count(&usersAgain).Error)
	assert.Equal(t, users, usersAgain)
}
