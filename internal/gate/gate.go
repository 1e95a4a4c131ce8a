// Package gate decides, for every page load, whether the visitor has a session
// and sends them to the page that matches: signed-out visitors never reach the
// protected view and signed-in visitors never linger on the sign-in view.
package gate

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MikhailRaia/bookmark-manager/internal/apperror"
	"github.com/MikhailRaia/bookmark-manager/internal/auth"
	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/rs/zerolog/log"
)

const (
	SessionCookie = "session_token"
	StateCookie   = "oauth_state"

	stateCookieTTL = 10 * time.Minute
)

// ErrStateMismatch is returned when the callback state does not match the one
// issued at sign-in.
var ErrStateMismatch = errors.New("oauth state mismatch")

// Authenticator is the identity collaborator.
type Authenticator interface {
	// Session resolves a token. No session is (zero, false, nil).
	Session(ctx context.Context, token string) (model.Identity, bool, error)
	BeginSignIn(ctx context.Context, provider, returnTo string) (auth.Handshake, error)
	CompleteSignIn(ctx context.Context, cb auth.Callback) (model.Identity, error)
	SignOut(ctx context.Context, token string) error
}

// FailurePolicy decides what a failed session query means on a protected page.
type FailurePolicy string

const (
	// FailureLogout treats the visitor as signed out.
	FailureLogout FailurePolicy = "logout"
	// FailureError answers 503 and leaves the session alone.
	FailureError FailurePolicy = "error"
)

// ParseFailurePolicy maps a config value to a policy, defaulting to FailureLogout.
func ParseFailurePolicy(s string) FailurePolicy {
	if FailurePolicy(strings.ToLower(strings.TrimSpace(s))) == FailureError {
		return FailureError
	}
	return FailureLogout
}

type Options struct {
	SignInPath    string
	ProtectedPath string
	CallbackPath  string
	Provider      string
	// ReturnURL is the absolute callback URL handed to the provider.
	ReturnURL     string
	OnFailure     FailurePolicy
	SecureCookies bool
}

// DefaultOptions returns the standard routes for baseURL.
func DefaultOptions(baseURL string) Options {
	return Options{
		SignInPath:    "/",
		ProtectedPath: "/dashboard",
		CallbackPath:  "/auth/callback",
		Provider:      "google",
		ReturnURL:     strings.TrimRight(baseURL, "/") + "/auth/callback",
		OnFailure:     FailureLogout,
		SecureCookies: strings.HasPrefix(baseURL, "https://"),
	}
}

type Gate struct {
	auth      Authenticator
	opts      Options
	onSignOut []func(model.Identity)
}

type Option func(*Gate)

// OnSignOut registers fn to run with the identity being signed out.
func OnSignOut(fn func(model.Identity)) Option {
	return func(g *Gate) {
		g.onSignOut = append(g.onSignOut, fn)
	}
}

func New(authenticator Authenticator, opts Options, options ...Option) *Gate {
	if opts.OnFailure == "" {
		opts.OnFailure = FailureLogout
	}
	g := &Gate{auth: authenticator, opts: opts}
	for _, o := range options {
		o(g)
	}
	return g
}

func (g *Gate) Options() Options {
	return g.opts
}

// TokenFromRequest returns the session token from the session cookie or a
// bearer Authorization header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

// CheckSession asks the collaborator whether the request carries a session.
// A missing session is ok=false with a nil error; err is set only when the
// query itself failed.
func (g *Gate) CheckSession(r *http.Request) (model.Identity, bool, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return model.Identity{}, false, nil
	}

	identity, ok, err := g.auth.Session(r.Context(), token)
	if err != nil {
		return model.Identity{}, false, apperror.Auth("session", err)
	}
	if !ok || !identity.Present() {
		return model.Identity{}, false, nil
	}
	if identity.Token == "" {
		identity.Token = token
	}
	return identity, true, nil
}

// Protect lets the request through only with a session, recording the
// identity in the request context. Without one it redirects to the sign-in
// page before next runs.
func (g *Gate) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok, err := g.CheckSession(r)
		if err != nil {
			log.Error().Err(err).Str("policy", string(g.opts.OnFailure)).Msg("Session check failed")
			if g.opts.OnFailure == FailureError {
				http.Error(w, "Session service unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		if !ok {
			http.Redirect(w, r, g.opts.SignInPath, http.StatusFound)
			return
		}

		log.Debug().Str("userID", identity.UserID).Msg("Session present")
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}

// GuestOnly redirects visitors with a session to the protected page. A failed
// session query shows the guest page.
func (g *Gate) GuestOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok, err := g.CheckSession(r)
		if err != nil {
			log.Error().Err(err).Msg("Session check failed")
		}

		if ok {
			http.Redirect(w, r, g.opts.ProtectedPath, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HandleSignIn starts the provider handshake and hands the browser over to it.
func (g *Gate) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	hs, err := g.auth.BeginSignIn(r.Context(), g.opts.Provider, g.opts.ReturnURL)
	if err != nil {
		log.Error().Err(err).Str("provider", g.opts.Provider).Msg("Failed to start sign-in")
		http.Redirect(w, r, g.opts.SignInPath, http.StatusSeeOther)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    hs.State + "." + hs.Verifier,
		Path:     "/",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   g.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info().Str("provider", g.opts.Provider).Msg("Redirecting to identity provider")
	http.Redirect(w, r, hs.RedirectURL, http.StatusSeeOther)
}

// HandleCallback finishes the handshake at the return location, stores the
// session cookie and sends the browser to the protected page where the gate
// runs again.
func (g *Gate) HandleCallback(w http.ResponseWriter, r *http.Request) {
	g.clearCookie(w, StateCookie)

	q := r.URL.Query()
	if providerErr := q.Get("error"); providerErr != "" {
		log.Error().
			Str("error", providerErr).
			Str("description", q.Get("error_description")).
			Msg("Identity provider refused sign-in")
		http.Redirect(w, r, g.opts.SignInPath, http.StatusFound)
		return
	}

	verifier, err := g.verifyState(r)
	if err != nil {
		log.Error().Err(apperror.Auth("callback", err)).Msg("Rejected sign-in callback")
		http.Redirect(w, r, g.opts.SignInPath, http.StatusFound)
		return
	}

	identity, err := g.auth.CompleteSignIn(r.Context(), auth.Callback{
		Code:     q.Get("code"),
		Verifier: verifier,
		ReturnTo: g.opts.ReturnURL,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to complete sign-in")
		http.Redirect(w, r, g.opts.SignInPath, http.StatusFound)
		return
	}

	cookie := &http.Cookie{
		Name:     SessionCookie,
		Value:    identity.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   g.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if !identity.ExpiresAt.IsZero() {
		cookie.Expires = identity.ExpiresAt
		cookie.MaxAge = int(time.Until(identity.ExpiresAt).Seconds())
	}
	http.SetCookie(w, cookie)

	log.Info().Str("userID", identity.UserID).Msg("Signed in")
	http.Redirect(w, r, g.opts.ProtectedPath, http.StatusFound)
}

func (g *Gate) verifyState(r *http.Request) (string, error) {
	c, err := r.Cookie(StateCookie)
	if err != nil {
		return "", ErrStateMismatch
	}

	state, verifier, found := strings.Cut(c.Value, ".")
	if !found || state == "" || state != r.URL.Query().Get("state") {
		return "", ErrStateMismatch
	}
	return verifier, nil
}

// HandleSignOut ends the session with the collaborator and always lands on the
// sign-in page, whatever the collaborator answered.
func (g *Gate) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	token := TokenFromRequest(r)
	if token != "" {
		if identity, ok, _ := g.CheckSession(r); ok {
			for _, fn := range g.onSignOut {
				fn(identity)
			}
		}
		if err := g.auth.SignOut(r.Context(), token); err != nil {
			log.Error().Err(apperror.Auth("sign-out", err)).Msg("Sign-out failed")
		}
	}

	g.clearCookie(w, SessionCookie)
	http.Redirect(w, r, g.opts.SignInPath, http.StatusSeeOther)
}

func (g *Gate) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
