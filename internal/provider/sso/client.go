package sso

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/s10n41k/protos/gen/go/sso"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"receipts/internal/model"
	"receipts/internal/provider"
)

var ErrSameRefreshToken = errors.New("server returned the same refresh token")

// Client - обмен токенов через gRPC сервис авторизации.
type Client struct {
	api      sso.AuthClient
	conn     *grpc.ClientConn
	deviceID string
	log      *slog.Logger
}

// Dial открывает соединение с метриками клиента grpc_prometheus.
func Dial(addr, deviceID string, log *slog.Logger, opts ...grpc.DialOption) (*Client, error) {
	const op = "sso.Dial"

	grpc_prometheus.EnableClientHandlingTimeHistogram()

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(grpc_prometheus.UnaryClientInterceptor),
		grpc.WithStreamInterceptor(grpc_prometheus.StreamClientInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return New(sso.NewAuthClient(conn), conn, deviceID, log), nil
}

func New(api sso.AuthClient, conn *grpc.ClientConn, deviceID string, log *slog.Logger) *Client {
	return &Client{api: api, conn: conn, deviceID: deviceID, log: log}
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	const op = "sso.Refresh"

	if c.deviceID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-device-id", c.deviceID)
	}

	resp, err := c.api.GetAccessToken(ctx, &sso.TokenRequest{RefreshToken: refreshToken})
	if err != nil {
		c.log.Warn("grpc refresh failed", slog.String("op", op), slog.String("error", err.Error()))
		return model.TokenPair{}, fmt.Errorf("%s: %w", op, mapError(err))
	}
	if resp.GetRefreshToken() == refreshToken {
		return model.TokenPair{}, fmt.Errorf("%s: %w", op, ErrSameRefreshToken)
	}

	return model.TokenPair{
		AccessToken:  resp.GetAccessToken(),
		RefreshToken: resp.GetRefreshToken(),
	}, nil
}

func mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", provider.ErrUnauthorized, st.Message())
	case codes.InvalidArgument, codes.NotFound:
		return fmt.Errorf("%w: %s", provider.ErrMissingData, st.Message())
	default:
		return err
	}
}
