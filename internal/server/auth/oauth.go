package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/zenga/cms/internal/models"
)

// OAuthConfig describes the external OAuth2 identity provider
type OAuthConfig struct {
	Provider     string // имя провайдера, сохраняется как login method
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// OAuthProvider runs the authorization code flow and verifies bearer tokens
// against the provider's userinfo endpoint
type OAuthProvider struct {
	config      *oauth2.Config
	client      *http.Client
	provider    string
	userInfoURL string
}

// NewOAuthProvider creates the provider client. client may be nil (http.DefaultClient).
func NewOAuthProvider(cfg OAuthConfig, client *http.Client) *OAuthProvider {
	if client == nil {
		client = http.DefaultClient
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}

	return &OAuthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		client:      client,
		provider:    cfg.Provider,
		userInfoURL: cfg.UserInfoURL,
	}
}

// AuthCodeURL returns the provider login page URL for the state
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token and returns the identity behind it
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*models.ExternalIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	return p.userInfo(ctx, p.config.TokenSource(ctx, token))
}

// VerifyExternalIdentity checks the bearer token of the request with the provider.
// Requests without a bearer token are not an error.
func (p *OAuthProvider) VerifyExternalIdentity(ctx context.Context, r *http.Request) (*models.ExternalIdentity, error) {
	accessToken, ok := bearerToken(r)
	if !ok {
		return nil, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	return p.userInfo(ctx, source)
}

// userInfo загружает профиль пользователя с userinfo endpoint
func (p *OAuthProvider) userInfo(ctx context.Context, source oauth2.TokenSource) (*models.ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}

	resp, err := oauth2.NewClient(ctx, source).Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var profile map[string]any
	dec := json.NewDecoder(io.LimitReader(resp.Body, 1<<20))
	dec.UseNumber()
	if err := dec.Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}

	identity := &models.ExternalIdentity{
		OpenID:   firstString(profile, "openId", "sub", "id"),
		Name:     firstString(profile, "name", "login"),
		Email:    firstString(profile, "email"),
		Provider: p.provider,
	}
	if identity.OpenID == "" {
		return nil, fmt.Errorf("userinfo has no subject")
	}

	return identity, nil
}

// firstString returns the first non-empty string or number among keys
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// bearerToken извлекает токен из заголовка Authorization: Bearer <token>
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}

	return strings.TrimSpace(parts[1]), true
}
