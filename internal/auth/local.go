package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MikhailRaia/bookmark-manager/internal/apperror"
	"github.com/MikhailRaia/bookmark-manager/internal/generator"
	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

// Handshake is phase one of a redirect sign-in: where to send the browser and
// the values to keep until the provider redirects back.
type Handshake struct {
	RedirectURL string
	State       string
	Verifier    string
}

// Callback is what the app receives when the provider redirects back.
type Callback struct {
	Code     string
	Verifier string
	ReturnTo string
}

// Revoker writes a session revocation, possibly batched with others, and
// returns once it is stored.
type Revoker interface {
	RevokeSession(ctx context.Context, sessionID string, until time.Time) error
}

// Local is the self-hosted identity backend: provider OAuth for sign-in, signed
// session tokens, and a revocation list for sign-out.
type Local struct {
	jwt         *JWTService
	provider    *Provider
	revocations RevocationStore
	revoker     Revoker
}

// LocalOption configures Local.
type LocalOption func(*Local)

// WithRevoker makes SignOut write revocations through r instead of the store.
func WithRevoker(r Revoker) LocalOption {
	return func(l *Local) {
		l.revoker = r
	}
}

func NewLocal(jwtService *JWTService, provider *Provider, revocations RevocationStore, opts ...LocalOption) *Local {
	l := &Local{
		jwt:         jwtService,
		provider:    provider,
		revocations: revocations,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Session resolves a session token. Invalid, expired and revoked tokens are
// reported as no session; only a failed revocation lookup is an error.
func (l *Local) Session(ctx context.Context, token string) (model.Identity, bool, error) {
	if token == "" {
		return model.Identity{}, false, nil
	}

	claims, err := l.jwt.ValidateToken(token)
	if err != nil {
		log.Debug().Err(err).Msg("Session token rejected")
		return model.Identity{}, false, nil
	}

	revoked, err := l.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return model.Identity{}, false, apperror.Auth("session", err)
	}
	if revoked {
		return model.Identity{}, false, nil
	}

	identity := model.Identity{
		UserID:    claims.UserID,
		Email:     claims.Email,
		SessionID: claims.ID,
		Token:     token,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, true, nil
}

// BeginSignIn prepares the provider redirect. returnTo is the callback URL the
// provider sends the browser back to.
func (l *Local) BeginSignIn(_ context.Context, provider, returnTo string) (Handshake, error) {
	if provider != l.provider.Name() {
		return Handshake{}, apperror.Auth("sign-in", fmt.Errorf("%w: %s", ErrUnknownProvider, provider))
	}

	state, err := generator.State()
	if err != nil {
		return Handshake{}, apperror.Auth("sign-in", err)
	}
	verifier := oauth2.GenerateVerifier()

	return Handshake{
		RedirectURL: l.provider.AuthCodeURL(state, verifier, returnTo),
		State:       state,
		Verifier:    verifier,
	}, nil
}

// CompleteSignIn exchanges the code and issues a session token.
func (l *Local) CompleteSignIn(ctx context.Context, cb Callback) (model.Identity, error) {
	info, err := l.provider.Exchange(ctx, cb.Code, cb.Verifier, cb.ReturnTo)
	if err != nil {
		return model.Identity{}, apperror.Auth("sign-in", err)
	}

	sessionID, err := generator.SessionID()
	if err != nil {
		return model.Identity{}, apperror.Auth("sign-in", err)
	}

	token, expiresAt, err := l.jwt.GenerateToken(info.ID, info.Email, sessionID)
	if err != nil {
		return model.Identity{}, apperror.Auth("sign-in", err)
	}

	return model.Identity{
		UserID:    info.ID,
		Email:     info.Email,
		SessionID: sessionID,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// SignOut revokes the session behind token and returns once the revocation is
// stored, so the token stops resolving immediately. A token that no longer
// validates has nothing to revoke.
func (l *Local) SignOut(ctx context.Context, token string) error {
	claims, err := l.jwt.ValidateToken(token)
	if err != nil {
		return nil
	}

	until := time.Now().Add(l.jwt.ttl)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}

	if l.revoker != nil {
		return apperror.Auth("sign-out", l.revoker.RevokeSession(ctx, claims.ID, until))
	}
	return apperror.Auth("sign-out", l.revocations.Revoke(ctx, []string{claims.ID}, until))
}
