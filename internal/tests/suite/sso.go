package suite

import (
	"context"
	"sync"

	"github.com/s10n41k/protos/gen/go/sso"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ssoServer обменивает refresh токены по gRPC поверх того же Backend.
type ssoServer struct {
	sso.UnimplementedAuthServer
	backend *Backend

	mu        sync.Mutex
	deviceIDs []string
}

func registerSSO(server *grpc.Server, backend *Backend) *ssoServer {
	s := &ssoServer{backend: backend}
	sso.RegisterAuthServer(server, s)
	return s
}

func (s *ssoServer) GetAccessToken(ctx context.Context, request *sso.TokenRequest) (*sso.TokenResponse, error) {
	if request.GetRefreshToken() == "" {
		return nil, status.Error(codes.InvalidArgument, "missing refresh token")
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		s.mu.Lock()
		s.deviceIDs = append(s.deviceIDs, md.Get("x-device-id")...)
		s.mu.Unlock()
	}

	pair, ok := s.backend.Rotate(request.GetRefreshToken())
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "refresh token expired")
	}

	return &sso.TokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *ssoServer) DeviceIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deviceIDs...)
}
