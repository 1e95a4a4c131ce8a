package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/oauth2"
)

// Google endpoints used when the provider config leaves them empty.
const (
	GoogleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	GoogleTokenURL    = "https://oauth2.googleapis.com/token"
	GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

const providerTimeout = 10 * time.Second

var ErrMissingUserID = errors.New("user info response has no user id")

// ProviderConfig describes an OAuth2 authorization-code provider.
type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
	HTTPClient   *http.Client
}

// UserInfo is the subset of the provider profile the app needs.
type UserInfo struct {
	ID    string
	Email string
}

// Provider runs the authorization-code flow with PKCE against one provider.
type Provider struct {
	name        string
	config      oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func NewProvider(cfg ProviderConfig) *Provider {
	if cfg.Name == "" {
		cfg.Name = "google"
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = GoogleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = GoogleTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = GoogleUserInfoURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "email", "profile"}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = cleanhttp.DefaultPooledClient()
		cfg.HTTPClient.Timeout = providerTimeout
	}

	return &Provider{
		name: cfg.Name,
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			Scopes: cfg.Scopes,
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  cfg.HTTPClient,
	}
}

func (p *Provider) Name() string {
	return p.name
}

// AuthCodeURL returns the consent page URL the browser is sent to.
func (p *Provider) AuthCodeURL(state, verifier, redirectURL string) string {
	cfg := p.config
	cfg.RedirectURL = redirectURL
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades the authorization code for a token and fetches the user profile.
func (p *Provider) Exchange(ctx context.Context, code, verifier, redirectURL string) (UserInfo, error) {
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	cfg := p.config
	cfg.RedirectURL = redirectURL

	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return UserInfo{}, fmt.Errorf("code exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return UserInfo{}, err
	}

	resp, err := cfg.Client(ctx, token).Do(req)
	if err != nil {
		return UserInfo{}, fmt.Errorf("user info request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return UserInfo{}, fmt.Errorf("user info request: status %d: %s", resp.StatusCode, body)
	}

	return decodeUserInfo(resp.Body)
}

// decodeUserInfo accepts OIDC ("sub") and plain ("id", string or number) profiles.
func decodeUserInfo(r io.Reader) (UserInfo, error) {
	var raw struct {
		Sub   string          `json:"sub"`
		ID    json.RawMessage `json:"id"`
		Email string          `json:"email"`
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return UserInfo{}, fmt.Errorf("decode user info: %w", err)
	}

	info := UserInfo{ID: raw.Sub, Email: raw.Email}
	if info.ID == "" && len(raw.ID) > 0 {
		var s string
		if err := json.Unmarshal(raw.ID, &s); err == nil {
			info.ID = s
		} else {
			var n json.Number
			if err := json.Unmarshal(raw.ID, &n); err == nil {
				info.ID = n.String()
			}
		}
	}

	if info.ID == "" {
		return UserInfo{}, ErrMissingUserID
	}
	return info, nil
}
