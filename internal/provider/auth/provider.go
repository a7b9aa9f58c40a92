package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"receipts/internal/httpclient"
	"receipts/internal/model"
	"receipts/internal/provider"
	"receipts/internal/token"
)

const (
	pathLogin    = "api/v1/auth/local/login"
	pathRegister = "api/v1/auth/local/register"
	pathLogout   = "api/v1/auth/common/logout"
	pathRefresh  = "api/v1/auth/common/refresh"
	pathMe       = "api/v1/users/me"

	msgLoginFailed    = "login failed"
	msgRegisterFailed = "registration failed"
	msgLogoutFailed   = "an error occurred while logging out"
	msgMeFailed       = "failed to load user"
	msgRefreshFailed  = "failed to refresh token"
)

type Provider interface {
	Login(ctx context.Context, email, password string, rememberMe bool) (*model.LoginResult, error)
	Register(ctx context.Context, reg model.Registration) (*model.LoginResult, error)
	// Logout всегда очищает токены и никогда не возвращает ошибку:
	// при сбое отдаётся синтезированный конверт success=false.
	Logout(ctx context.Context) model.Envelope[struct{}]
	Me(ctx context.Context) (*model.User, error)
}

type authProvider struct {
	client *httpclient.Client
	tokens *token.Store
	log    *slog.Logger
}

func NewAuthProvider(client *httpclient.Client, tokens *token.Store, log *slog.Logger) Provider {
	return &authProvider{client: client, tokens: tokens, log: log}
}

func (a *authProvider) Login(ctx context.Context, email, password string, rememberMe bool) (*model.LoginResult, error) {
	const op = "auth.Login"

	creds := model.Credentials{Username: email, Password: password, RememberMe: rememberMe}
	if err := provider.Validate(creds); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return a.authenticate(ctx, op, pathLogin, creds, msgLoginFailed)
}

func (a *authProvider) Register(ctx context.Context, reg model.Registration) (*model.LoginResult, error) {
	const op = "auth.Register"

	if reg.Username == "" {
		reg.Username = reg.Email
	}
	if err := provider.Validate(reg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return a.authenticate(ctx, op, pathRegister, reg, msgRegisterFailed)
}

func (a *authProvider) authenticate(ctx context.Context, op, path string, body any, defaultMsg string) (*model.LoginResult, error) {
	var env model.Envelope[model.LoginResult]
	if err := a.client.Do(ctx, http.MethodPost, path, body, &env); err != nil {
		a.log.Warn("auth request failed", slog.String("op", op), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := env.Result(defaultMsg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if env.Data == nil || res.Tokens.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, provider.ErrEmptyResponse)
	}

	// токены сохраняются только при успешном ответе с данными
	if err := a.tokens.Save(ctx, res.Tokens.AccessToken, res.Tokens.RefreshToken); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info("authenticated", slog.String("op", op))
	return &res, nil
}

func (a *authProvider) Logout(ctx context.Context) model.Envelope[struct{}] {
	const op = "auth.Logout"

	var env model.Envelope[struct{}]
	err := a.client.Do(ctx, http.MethodPost, pathLogout, nil, &env)

	if clearErr := a.tokens.Clear(ctx); clearErr != nil {
		a.log.Error("failed to clear tokens", slog.String("op", op), slog.String("error", clearErr.Error()))
	}

	if err != nil {
		a.log.Warn("logout request failed", slog.String("op", op), slog.String("error", err.Error()))
		return model.Envelope[struct{}]{
			Success:   false,
			Message:   msgLogoutFailed,
			Timestamp: model.Now(),
		}
	}
	return env
}

func (a *authProvider) Me(ctx context.Context) (*model.User, error) {
	const op = "auth.Me"

	access, err := a.tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if access == "" {
		return nil, fmt.Errorf("%s: %w", op, provider.ErrUnauthorized)
	}

	var env model.Envelope[model.User]
	if err := a.client.Do(ctx, http.MethodGet, pathMe, nil, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err := env.Result(msgMeFailed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if env.Data == nil {
		return nil, fmt.Errorf("%s: %w", op, provider.ErrEmptyResponse)
	}
	return &user, nil
}
