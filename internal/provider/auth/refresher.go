package auth

import (
	"context"
	"fmt"
	"net/http"

	"receipts/internal/httpclient"
	"receipts/internal/model"
)

// HTTPRefresher обменивает refresh токен через REST. Клиент должен быть
// собран без WithAuth: 401 этого вызова - обычная ошибка, а не повод
// для ещё одного обновления.
type HTTPRefresher struct {
	client *httpclient.Client
}

func NewHTTPRefresher(client *httpclient.Client) *HTTPRefresher {
	return &HTTPRefresher{client: client}
}

func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	const op = "auth.Refresh"

	var env model.Envelope[model.LoginResult]
	err := r.client.Do(ctx, http.MethodPost, pathRefresh, model.RefreshRequest{RefreshToken: refreshToken}, &env)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	res, err := env.Result(msgRefreshFailed)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	return res.Tokens, nil
}
