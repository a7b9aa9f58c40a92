package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"receipts/internal/model"
	"receipts/internal/provider"
	authprovider "receipts/internal/provider/auth"
	"receipts/internal/state"
	"receipts/internal/token"
)

const (
	LoginPath = "/login"

	msgLoginFailed    = "login failed"
	msgRegisterFailed = "registration failed"
	msgFetchFailed    = "failed to load user"
	msgSessionExpired = "session expired"
)

type State struct {
	User         *model.User
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Loading      bool
	Error        string
}

func (s State) IsAuthenticated() bool {
	return s.AccessToken != "" && s.User != nil
}

// Session - то, что сервису нужно от координатора обновления.
type Session interface {
	Arm()
}

type Auth struct {
	provider authprovider.Provider
	tokens   *token.Store
	session  Session
	navigate func(path string)
	log      *slog.Logger

	store *state.Store[State]
}

func NewService(ctx context.Context, p authprovider.Provider, tokens *token.Store, session Session, navigate func(string), log *slog.Logger) *Auth {
	a := &Auth{
		provider: p,
		tokens:   tokens,
		session:  session,
		navigate: navigate,
		log:      log,
	}

	initial := State{}
	if pair, err := tokens.Pair(ctx); err != nil {
		log.Warn("failed to restore session", slog.String("error", err.Error()))
	} else {
		initial.AccessToken = pair.AccessToken
		initial.RefreshToken = pair.RefreshToken
		initial.ExpiresAt = expiry(pair.AccessToken)
	}
	a.store = state.New(initial)
	return a
}

func (a *Auth) State() State { return a.store.Get() }

func (a *Auth) Subscribe(fn func(State)) func() { return a.store.Subscribe(fn) }

func (a *Auth) IsAuthenticated() bool { return a.store.Get().IsAuthenticated() }

func (a *Auth) HasUser() bool { return a.store.Get().User != nil }

// HasToken смотрит в хранилище, а не в состояние: токен мог пережить перезапуск.
func (a *Auth) HasToken(ctx context.Context) bool {
	access, err := a.tokens.AccessToken(ctx)
	return err == nil && access != ""
}

func (a *Auth) Login(ctx context.Context, email, password string, rememberMe bool) error {
	a.begin()

	res, err := a.provider.Login(ctx, email, password, rememberMe)
	if err != nil {
		a.fail(err, msgLoginFailed)
		a.log.Warn("login failed", "email", email, "error", err)
		return err
	}
	if res.User == nil {
		err = fmt.Errorf("login: %w", provider.ErrEmptyResponse)
		a.fail(err, msgLoginFailed)
		return err
	}

	a.authenticated(res)
	a.log.Info("user logged in", "user_id", res.User.ID)
	return nil
}

func (a *Auth) Register(ctx context.Context, reg model.Registration) error {
	a.begin()

	res, err := a.provider.Register(ctx, reg)
	if err != nil {
		a.fail(err, msgRegisterFailed)
		a.log.Warn("registration failed", "email", reg.Email, "error", err)
		return err
	}

	a.authenticated(res)
	a.log.Info("user registered", "email", reg.Email)
	return nil
}

// Logout всегда сбрасывает состояние и уводит на страницу входа.
func (a *Auth) Logout(ctx context.Context) {
	a.store.Update(func(s State) State {
		s.Loading = true
		return s
	})

	env := a.provider.Logout(ctx)
	if !env.Success {
		a.log.Warn("logout returned failure", "message", env.Message)
	}

	a.store.Set(State{})
	a.redirect()
}

// FetchUser загружает текущего пользователя. 401 означает, что сессия
// потеряна: токены очищаются, в состоянии остаётся "session expired".
func (a *Auth) FetchUser(ctx context.Context) (bool, error) {
	pair, err := a.tokens.Pair(ctx)
	if err != nil {
		return false, err
	}
	if pair.AccessToken == "" {
		return false, nil
	}

	a.store.Update(func(s State) State {
		s.Loading = true
		return s
	})

	user, err := a.provider.Me(ctx)
	if err != nil {
		if provider.IsUnauthorized(err) {
			a.expire(ctx)
			return false, nil
		}
		a.fail(err, msgFetchFailed)
		return false, err
	}

	a.store.Update(func(s State) State {
		s.User = user
		s.AccessToken = pair.AccessToken
		s.RefreshToken = pair.RefreshToken
		s.ExpiresAt = expiry(pair.AccessToken)
		s.Loading = false
		return s
	})
	return true, nil
}

// UpdateTokens вызывается координатором после успешного обновления.
func (a *Auth) UpdateTokens(pair model.TokenPair) {
	a.store.Update(func(s State) State {
		s.AccessToken = pair.AccessToken
		s.RefreshToken = pair.RefreshToken
		s.ExpiresAt = expiry(pair.AccessToken)
		return s
	})
}

// HandleUnauthorized вызывается координатором, когда обновить сессию не удалось.
func (a *Auth) HandleUnauthorized() {
	a.log.Info("session lost, redirecting to login")
	a.store.Set(State{Error: msgSessionExpired})
	a.redirect()
}

func (a *Auth) ClearError() {
	a.store.Update(func(s State) State {
		s.Error = ""
		return s
	})
}

func (a *Auth) begin() {
	a.store.Update(func(s State) State {
		s.Loading = true
		s.Error = ""
		return s
	})
}

func (a *Auth) fail(err error, fallback string) {
	msg := provider.Message(err, fallback)
	a.store.Update(func(s State) State {
		s.Loading = false
		s.Error = msg
		return s
	})
}

func (a *Auth) authenticated(res *model.LoginResult) {
	if a.session != nil {
		a.session.Arm()
	}
	a.store.Update(func(s State) State {
		s.User = res.User
		s.AccessToken = res.Tokens.AccessToken
		s.RefreshToken = res.Tokens.RefreshToken
		s.ExpiresAt = expiry(res.Tokens.AccessToken)
		s.Loading = false
		s.Error = ""
		return s
	})
}

func (a *Auth) expire(ctx context.Context) {
	if err := a.tokens.Clear(ctx); err != nil {
		a.log.Error("failed to clear tokens", "error", err)
	}
	a.store.Set(State{Error: msgSessionExpired})
}

func (a *Auth) redirect() {
	if a.navigate != nil {
		a.navigate(LoginPath)
	}
}

func expiry(access string) time.Time {
	claims, err := token.Inspect(access)
	if err != nil {
		return time.Time{}
	}
	return claims.ExpiresAt
}
