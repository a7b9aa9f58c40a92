package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipts/internal/model"
	"receipts/internal/storage/memory"
	"receipts/internal/tests/mock"
	"receipts/internal/token"
)

type fixture struct {
	svc      *Auth
	provider *mock.MockAuthProvider
	tokens   *token.Store
	session  *mock.MockSession
	nav      *mock.Navigator
}

func newFixture(t *testing.T, seed *model.TokenPair) fixture {
	t.Helper()
	ctx := context.Background()

	tokens := token.NewStore(memory.New())
	if seed != nil {
		require.NoError(t, tokens.Save(ctx, seed.AccessToken, seed.RefreshToken))
	}

	f := fixture{
		provider: mock.NewAuthProvider(),
		tokens:   tokens,
		session:  mock.NewMockSession(),
		nav:      &mock.Navigator{},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(ctx, f.provider, tokens, f.session, f.nav.Navigate, log)
	t.Cleanup(func() { f.provider.AssertExpectations(t) })
	return f
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestNewService_RestoresTokens(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := signed(t, exp)

	f := newFixture(t, &model.TokenPair{AccessToken: access, RefreshToken: "r"})

	st := f.svc.State()
	assert.Equal(t, access, st.AccessToken)
	assert.Equal(t, "r", st.RefreshToken)
	assert.True(t, exp.Equal(st.ExpiresAt))
	// токен есть, пользователя нет
	assert.False(t, f.svc.IsAuthenticated())
	assert.True(t, f.svc.HasToken(context.Background()))
}

func TestLogin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	user := &model.User{ID: "u1", Email: "a@b.c"}
	f.provider.On("Login", ctx, "a@b.c", "secret", true).Return(&model.LoginResult{
		User:   user,
		Tokens: model.TokenPair{AccessToken: "a1", RefreshToken: "r1"},
	}, nil).Once()

	require.NoError(t, f.svc.Login(ctx, "a@b.c", "secret", true))

	st := f.svc.State()
	assert.True(t, st.IsAuthenticated())
	assert.Equal(t, user, st.User)
	assert.Equal(t, "a1", st.AccessToken)
	assert.False(t, st.Loading)
	assert.Equal(t, 1, f.session.Armed())
}

func TestLogin_Failure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.provider.On("Login", ctx, "a@b.c", "bad", false).
		Return(nil, &model.APIError{Status: http.StatusUnauthorized, Message: "invalid credentials"}).Once()

	err := f.svc.Login(ctx, "a@b.c", "bad", false)
	require.Error(t, err)

	st := f.svc.State()
	assert.Equal(t, "invalid credentials", st.Error)
	assert.False(t, st.Loading)
	assert.Zero(t, f.session.Armed())

	f.svc.ClearError()
	assert.Empty(t, f.svc.State().Error)
}

func TestRegister(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	reg := model.Registration{Email: "new@b.c", Password: "secret1"}
	f.provider.On("Register", ctx, reg).Return(&model.LoginResult{
		User:   &model.User{ID: "u2", Email: reg.Email},
		Tokens: model.TokenPair{AccessToken: "a2", RefreshToken: "r2"},
	}, nil).Once()

	require.NoError(t, f.svc.Register(ctx, reg))
	assert.True(t, f.svc.IsAuthenticated())
}

func TestLogout_AlwaysResets(t *testing.T) {
	f := newFixture(t, &model.TokenPair{AccessToken: "a", RefreshToken: "r"})
	ctx := context.Background()

	f.provider.On("Logout", ctx).Return(model.Envelope[struct{}]{Success: false, Message: "an error occurred while logging out"}).Once()

	f.svc.Logout(ctx)

	assert.Equal(t, State{}, f.svc.State())
	assert.Equal(t, []string{LoginPath}, f.nav.Paths())
}

func TestFetchUser(t *testing.T) {
	f := newFixture(t, &model.TokenPair{AccessToken: "a", RefreshToken: "r"})
	ctx := context.Background()

	user := &model.User{ID: "u1"}
	f.provider.On("Me", ctx).Return(user, nil).Once()

	ok, err := f.svc.FetchUser(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, f.svc.IsAuthenticated())
}

func TestFetchUser_NoToken(t *testing.T) {
	f := newFixture(t, nil)

	ok, err := f.svc.FetchUser(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchUser_UnauthorizedExpiresSession(t *testing.T) {
	f := newFixture(t, &model.TokenPair{AccessToken: "a", RefreshToken: "r"})
	ctx := context.Background()

	f.provider.On("Me", ctx).Return(nil, &model.APIError{Status: http.StatusUnauthorized, Message: "expired"}).Once()

	ok, err := f.svc.FetchUser(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, msgSessionExpired, f.svc.State().Error)

	pair, err := f.tokens.Pair(ctx)
	require.NoError(t, err)
	assert.Empty(t, pair.AccessToken)
	assert.Empty(t, pair.RefreshToken)
}

func TestUpdateTokensAndHandleUnauthorized(t *testing.T) {
	f := newFixture(t, nil)

	var seen []State
	unsubscribe := f.svc.Subscribe(func(s State) { seen = append(seen, s) })
	defer unsubscribe()

	f.svc.UpdateTokens(model.TokenPair{AccessToken: "a2", RefreshToken: "r2"})
	assert.Equal(t, "a2", f.svc.State().AccessToken)

	f.svc.HandleUnauthorized()
	assert.Equal(t, State{Error: msgSessionExpired}, f.svc.State())
	assert.Equal(t, []string{LoginPath}, f.nav.Paths())
	assert.Len(t, seen, 3)
}
