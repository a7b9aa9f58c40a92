package tests

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipts/internal/model"
	"receipts/internal/refresh"
	"receipts/internal/tests/suite"
)

func TestRefresh_StaleTokenIsTransparent(t *testing.T) {
	s := suite.New(t)
	ctx := context.Background()
	s.Login()
	s.Backend.AddTask("Groceries")

	before := s.App.Auth.State().AccessToken
	s.Backend.ExpireAccess()

	tasks, err := s.App.Tasks.Load(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Groceries", tasks[0].TaskName)

	assert.Equal(t, 1, s.Backend.RefreshCalls())
	assert.Empty(t, s.Navigator.Paths())

	// новая пара в хранилище и в состоянии
	stored, err := s.App.Tokens.AccessToken(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before, stored)
	assert.Equal(t, stored, s.App.Auth.State().AccessToken)
	assert.Equal(t, refresh.Idle, s.App.Session.State())
}

func TestRefresh_ConcurrentUnauthorizedSingleFlight(t *testing.T) {
	const callers = 10

	s := suite.New(t)
	ctx := context.Background()
	s.Login()
	s.Backend.AddTask("Trip")

	s.Backend.ExpireAccess()
	s.Backend.HoldRefreshUntil(callers)
	s.Backend.SetRefreshDelay(100 * time.Millisecond)

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.App.Tasks.Load(ctx)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, 1, s.Backend.RefreshCalls())
	assert.Equal(t, callers, s.Backend.Unauthorized())
	assert.Empty(t, s.Navigator.Paths())
}

func TestRefresh_FailureRedirectsOnce(t *testing.T) {
	const callers = 5

	s := suite.New(t)
	ctx := context.Background()
	s.Login()

	s.Backend.ExpireAccess()
	s.Backend.RevokeRefresh()
	s.Backend.HoldRefreshUntil(callers)

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.App.Tasks.Load(ctx)
		}(i)
	}
	wg.Wait()

	// каждый получает исходный 401, а не ошибку refresh
	for _, err := range errs {
		var apiErr *model.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	}

	// refresh отклонён один раз, без повторных попыток
	assert.Equal(t, 1, s.Backend.RefreshCalls())
	assert.Equal(t, callers, s.Backend.Unauthorized())
	assert.Equal(t, []string{"/login"}, s.Navigator.Paths())
	assert.Equal(t, "session expired", s.App.Auth.State().Error)
	assert.False(t, s.App.Auth.IsAuthenticated())

	pair, err := s.App.Tokens.Pair(ctx)
	require.NoError(t, err)
	assert.Empty(t, pair.AccessToken)
	assert.Empty(t, pair.RefreshToken)
}

func TestRefresh_RedirectRearmedAfterLogin(t *testing.T) {
	s := suite.New(t)
	ctx := context.Background()

	for round := 1; round <= 2; round++ {
		s.Login()
		s.Backend.ExpireAccess()
		s.Backend.RevokeRefresh()

		_, err := s.App.Tasks.Load(ctx)
		require.Error(t, err)
		assert.Len(t, s.Navigator.Paths(), round)
	}
}

func TestRefresh_RetryIsBounded(t *testing.T) {
	s := suite.New(t)
	s.Login()

	// сервер отклоняет и обновлённый токен: второй 401 не ведёт ко второму refresh
	s.Backend.RejectAll(true)

	_, err := s.App.Tasks.Load(context.Background())

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, 1, s.Backend.RefreshCalls())
	assert.Equal(t, 2, s.Backend.Unauthorized())
	assert.Empty(t, s.Navigator.Paths())
}

func TestRefresh_OverGRPC(t *testing.T) {
	s := suite.New(t, suite.WithGRPC())
	ctx := context.Background()
	s.Login()
	s.Backend.AddTask("Receipts")

	s.Backend.ExpireAccess()

	tasks, err := s.App.Tasks.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	assert.Equal(t, 1, s.Backend.RefreshCalls())
	assert.Equal(t, []string{suite.TestDeviceID}, s.SSO.DeviceIDs())
}

func TestRefresh_OverGRPCFailure(t *testing.T) {
	s := suite.New(t, suite.WithGRPC())
	ctx := context.Background()
	s.Login()

	s.Backend.ExpireAccess()
	s.Backend.RevokeRefresh()

	_, err := s.App.Tasks.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, []string{"/login"}, s.Navigator.Paths())
}

func TestRefresh_MetricsRecorded(t *testing.T) {
	s := suite.New(t)
	s.Login()
	s.Backend.ExpireAccess()

	_, err := s.App.Tasks.Load(context.Background())
	require.NoError(t, err)

	families, err := s.Registry.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["receipts_client_token_refresh_total"])
	assert.True(t, names["receipts_client_http_requests_total"])
}
