package stub

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railboard/internal/api"
	"railboard/internal/list"
	"railboard/internal/model"
)

// startBackend runs the stub over httptest and returns a client logged in as
// the given account.
func startBackend(t *testing.T, env *testEnv, token string) *api.Client {
	t.Helper()
	server := httptest.NewServer(env.e)
	t.Cleanup(server.Close)
	return api.New(server.URL+"/api", api.WithTokenSource(func(ctx context.Context) string {
		return token
	}))
}

func newListController(client *api.Client) *list.Controller {
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
	return list.New(fetch)
}

func TestControllerAgainstBackend(t *testing.T) {
	env := newTestEnv(t)
	token := env.createUser(t, "viewer", false)
	env.seedSchedule(t, 25)
	client := startBackend(t, env, token)
	ctrl := newListController(client)

	ctx := context.Background()
	snap, err := ctrl.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, list.PhaseReady, snap.Phase)
	assert.Len(t, snap.Trains, 10)
	assert.Equal(t, 25, snap.Total)
	assert.Equal(t, 3, snap.TotalPages())

	// Page navigation clamps to the real page count.
	snap, err = ctrl.Page(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Query.Page)
	assert.Len(t, snap.Trains, 5)

	// Sorting resets to page one and flips on repeat.
	snap, err = ctrl.Sort(ctx, "train_number")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Query.Page)
	assert.Equal(t, "G000", snap.Trains[0].TrainNumber)

	snap, err = ctrl.Sort(ctx, "train_number")
	require.NoError(t, err)
	assert.Equal(t, "G024", snap.Trains[0].TrainNumber)
}

func TestSearchSingleMatch(t *testing.T) {
	env := newTestEnv(t)
	token := env.createUser(t, "viewer", false)
	env.seedSchedule(t, 15)
	env.createTrain(t, TrainRecord{
		ID:               "train-ex1",
		TrainNumber:      "EX1",
		DepartureStation: "Lyon",
		ArrivalStation:   "Paris",
		DepartureTime:    baseTime(),
		ArrivalTime:      baseTime().Add(2 * time.Hour),
		Status:           string(model.StatusScheduled),
		Type:             string(model.TypeExpress),
	})
	client := startBackend(t, env, token)
	ctrl := newListController(client)

	snap, err := ctrl.SetSearch(context.Background(), "Ex1")
	require.NoError(t, err)
	require.Len(t, snap.Trains, 1)
	assert.Equal(t, "EX1", snap.Trains[0].TrainNumber)
	assert.Equal(t, 1, snap.Total)
	assert.Equal(t, 1, snap.TotalPages())
	assert.False(t, snap.HasNext())
	assert.False(t, snap.HasPrev())
}

func TestControllerRetreatAfterDelete(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.createUser(t, "admin", true)
	env.seedSchedule(t, 11)
	client := startBackend(t, env, adminToken)
	ctrl := newListController(client)

	ctx := context.Background()
	_, err := ctrl.Refresh(ctx)
	require.NoError(t, err)
	snap, err := ctrl.Page(ctx, 2)
	require.NoError(t, err)
	require.Len(t, snap.Trains, 1)

	// Removing the only row of the last page must land the next refresh on
	// the new last page instead of an empty one.
	lastID := snap.Trains[0].ID
	require.NoError(t, client.DeleteTrain(ctx, lastID))

	snap, err = ctrl.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, list.PhaseReady, snap.Phase)
	assert.Equal(t, 1, snap.Query.Page)
	assert.Len(t, snap.Trains, 10)
	assert.Equal(t, 10, snap.Total)
}

func TestClientEvictsSessionOn401(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t, 3)

	server := httptest.NewServer(env.e)
	t.Cleanup(server.Close)

	evicted := false
	client := api.New(server.URL+"/api",
		api.WithTokenSource(func(ctx context.Context) string { return "not-a-valid-token" }),
		api.WithUnauthorizedHook(func(ctx context.Context) { evicted = true }),
	)

	_, err := client.ListTrains(context.Background(), api.ListQuery{})
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.True(t, evicted, "401 must trigger the session eviction hook")
}

func TestExpiredTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedSchedule(t, 1)

	hashUser := &UserRecord{ID: "u-exp", Username: "expired", Email: "expired@example.com", PasswordHash: "x"}
	token := expiredToken(t, env.tokens, hashUser)

	server := httptest.NewServer(env.e)
	t.Cleanup(server.Close)

	client := api.New(server.URL+"/api", api.WithTokenSource(func(ctx context.Context) string {
		return token
	}))
	_, err := client.ListTrains(context.Background(), api.ListQuery{})
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
}

func expiredToken(t *testing.T, tokens *TokenService, user *UserRecord) string {
	t.Helper()
	token, err := tokens.generateWithExpiry(user, -time.Hour)
	require.NoError(t, err)
	return token
}
