package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNotJWT = errors.New("token is not a jwt")

// Claims - то, что клиенту полезно знать о своём access токене.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
}

func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Inspect разбирает токен без проверки подписи: секрета у клиента нет,
// подлинность проверяет сервер.
func Inspect(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, ErrNotJWT
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	var out Claims
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if out.Subject == "" {
		if session, ok := claims["session"].(string); ok {
			out.Subject = session
		}
	}
	if email, ok := claims["email"].(string); ok {
		out.Email = email
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("exp claim: %w", err)
	}
	if exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
