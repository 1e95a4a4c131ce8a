package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/MikhailRaia/bookmark-manager/internal/apperror"
	"github.com/MikhailRaia/bookmark-manager/internal/auth"
	"github.com/MikhailRaia/bookmark-manager/internal/generator"
	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Auth is the hosted identity backend (GoTrue) using the PKCE flow.
type Auth struct {
	client *Client
	now    func() time.Time
}

func NewAuth(client *Client) *Auth {
	return &Auth{client: client, now: time.Now}
}

type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	ExpiresAt   int64  `json:"expires_at"`
	User        user   `json:"user"`
}

// BeginSignIn builds the GoTrue authorize URL. GoTrue does not echo a client
// state, so it travels on the redirect_to URL instead.
func (a *Auth) BeginSignIn(_ context.Context, provider, returnTo string) (auth.Handshake, error) {
	state, err := generator.State()
	if err != nil {
		return auth.Handshake{}, apperror.Auth("sign-in", err)
	}
	verifier := oauth2.GenerateVerifier()

	redirectTo, err := url.Parse(returnTo)
	if err != nil {
		return auth.Handshake{}, apperror.Auth("sign-in", fmt.Errorf("invalid return url: %w", err))
	}
	q := redirectTo.Query()
	q.Set("state", state)
	redirectTo.RawQuery = q.Encode()

	authorize := a.client.endpoint("/auth/v1/authorize", url.Values{
		"provider":              {provider},
		"redirect_to":           {redirectTo.String()},
		"code_challenge":        {oauth2.S256ChallengeFromVerifier(verifier)},
		"code_challenge_method": {"s256"},
	})

	return auth.Handshake{
		RedirectURL: authorize,
		State:       state,
		Verifier:    verifier,
	}, nil
}

// CompleteSignIn exchanges the auth code and verifier for an access token.
func (a *Auth) CompleteSignIn(ctx context.Context, cb auth.Callback) (model.Identity, error) {
	body := map[string]string{
		"auth_code":     cb.Code,
		"code_verifier": cb.Verifier,
	}
	req, err := a.client.newRequest(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"pkce"}}, body, "")
	if err != nil {
		return model.Identity{}, apperror.Auth("sign-in", err)
	}

	var tok tokenResponse
	if err := a.client.do(req, &tok); err != nil {
		return model.Identity{}, apperror.Auth("sign-in", err)
	}
	if tok.AccessToken == "" || tok.User.ID == "" {
		return model.Identity{}, apperror.Auth("sign-in", errors.New("token response without session"))
	}

	identity := model.Identity{
		UserID:    tok.User.ID,
		Email:     tok.User.Email,
		SessionID: sessionID(tok.AccessToken),
		Token:     tok.AccessToken,
	}
	switch {
	case tok.ExpiresAt > 0:
		identity.ExpiresAt = time.Unix(tok.ExpiresAt, 0)
	case tok.ExpiresIn > 0:
		identity.ExpiresAt = a.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return identity, nil
}

// Session asks GoTrue who the token belongs to. A rejected token is no session.
func (a *Auth) Session(ctx context.Context, token string) (model.Identity, bool, error) {
	if token == "" {
		return model.Identity{}, false, nil
	}

	req, err := a.client.newRequest(ctx, http.MethodGet, "/auth/v1/user", nil, nil, token)
	if err != nil {
		return model.Identity{}, false, apperror.Auth("session", err)
	}

	var u user
	if err := a.client.do(req, &u); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			log.Debug().Int("status", apiErr.Status).Msg("Supabase rejected session token")
			return model.Identity{}, false, nil
		}
		return model.Identity{}, false, apperror.Auth("session", err)
	}
	if u.ID == "" {
		return model.Identity{}, false, nil
	}

	return model.Identity{
		UserID:    u.ID,
		Email:     u.Email,
		SessionID: sessionID(token),
		Token:     token,
	}, true, nil
}

// SignOut revokes the session. A token GoTrue no longer accepts has nothing
// left to revoke.
func (a *Auth) SignOut(ctx context.Context, token string) error {
	req, err := a.client.newRequest(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, token)
	if err != nil {
		return apperror.Auth("sign-out", err)
	}

	if err := a.client.do(req, nil); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil
		}
		return apperror.Auth("sign-out", err)
	}
	return nil
}

// sessionID reads the session_id claim of a GoTrue access token without
// verifying it; GoTrue already did when it answered.
func sessionID(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	if sid, ok := claims["session_id"].(string); ok {
		return sid
	}
	return ""
}
