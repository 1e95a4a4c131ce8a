package middleware

import (
	"context"
	"strings"

	"github.com/MikhailRaia/bookmark-manager/internal/auth"
	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// TokenSessions resolves a bare session token.
type TokenSessions interface {
	Session(ctx context.Context, token string) (model.Identity, bool, error)
}

type GRPCAuthMiddleware struct {
	sessions TokenSessions
}

func NewGRPCAuthMiddleware(sessions TokenSessions) *GRPCAuthMiddleware {
	return &GRPCAuthMiddleware{
		sessions: sessions,
	}
}

// UnaryInterceptor reads the session token from the "authorization" metadata
// and rejects calls without a session.
func (m *GRPCAuthMiddleware) UnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "metadata is missing")
	}

	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, "authorization token is missing")
	}
	token := strings.TrimSpace(strings.TrimPrefix(values[0], "Bearer "))

	identity, ok, err := m.sessions.Session(ctx, token)
	if err != nil {
		log.Error().Err(err).Str("method", info.FullMethod).Msg("Session check failed")
		return nil, status.Error(codes.Unavailable, "session check failed")
	}
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no session")
	}
	if identity.Token == "" {
		identity.Token = token
	}

	return handler(auth.WithIdentity(ctx, identity), req)
}
