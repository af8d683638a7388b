// Package sso implements the credential provider for structure-market access:
// it exchanges configured refresh tokens for bearer access tokens, caches
// them until shortly before expiry, and verifies the market-read scope.
package sso

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

const (
	// DefaultTokenURL is the SSO token endpoint.
	DefaultTokenURL = "https://login.eveonline.com/v2/oauth/token"
	// RequiredScope must be granted for structure market reads.
	RequiredScope = "esi-markets.structure_markets.v1"

	// expiryMargin refreshes tokens slightly early so a token never expires
	// mid-pass.
	expiryMargin = 30 * time.Second
)

// Credential is one character's refreshable secret.
type Credential struct {
	CharacterID  int64
	RefreshToken string
}

// Config holds provider settings.
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Credentials  []Credential
}

// Provider implements domain.TokenSource backed by the OAuth refresh flow.
type Provider struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger

	mu     sync.Mutex
	creds  map[int64]Credential
	cached map[int64]cachedToken
}

type cachedToken struct {
	accessToken string
	expiresAt   time.Time
}

// New creates a Provider from cfg.
func New(cfg Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	creds := make(map[int64]Credential, len(cfg.Credentials))
	for _, c := range cfg.Credentials {
		creds[c.CharacterID] = c
	}
	return &Provider{
		tokenURL:     tokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		logger:       logger,
		creds:        creds,
		cached:       make(map[int64]cachedToken),
	}
}

// Token returns a valid bearer token for the character, refreshing when the
// cached one is absent or close to expiry. Missing or under-scoped
// credentials surface as configuration errors, never as retryable ones.
func (p *Provider) Token(ctx context.Context, characterID int64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cred, ok := p.creds[characterID]
	if !ok {
		return "", fmt.Errorf("sso: character %d: %w", characterID, domain.ErrMissingCredential)
	}
	if cred.RefreshToken == "" {
		return "", fmt.Errorf("sso: character %d: %w", characterID, domain.ErrMissingRefreshToken)
	}

	if tok, ok := p.cached[characterID]; ok && time.Now().Before(tok.expiresAt.Add(-expiryMargin)) {
		return tok.accessToken, nil
	}

	tok, err := p.refresh(ctx, characterID, cred)
	if err != nil {
		return "", err
	}
	p.cached[characterID] = tok
	return tok.accessToken, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// refresh exchanges the refresh token for a fresh access token and verifies
// the granted scopes include the market-read scope. Called with p.mu held.
func (p *Provider) refresh(ctx context.Context, characterID int64, cred Credential) (cachedToken, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", cred.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return cachedToken{}, fmt.Errorf("sso: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.clientID, p.clientSecret)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return cachedToken{}, fmt.Errorf("sso: refresh token for character %d: %w", characterID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return cachedToken{}, fmt.Errorf("sso: read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return cachedToken{}, fmt.Errorf("sso: refresh for character %d: status %d: %s",
			characterID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return cachedToken{}, fmt.Errorf("sso: decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return cachedToken{}, fmt.Errorf("sso: refresh for character %d returned no access token", characterID)
	}
	if !hasScope(tr.Scope, RequiredScope) {
		return cachedToken{}, fmt.Errorf("sso: character %d granted scopes %q: %w",
			characterID, tr.Scope, domain.ErrMissingScope)
	}

	// The endpoint may rotate the refresh token; keep the newest.
	if tr.RefreshToken != "" && tr.RefreshToken != cred.RefreshToken {
		cred.RefreshToken = tr.RefreshToken
		p.creds[characterID] = cred
	}

	p.logger.Debug("refreshed access token", slog.Int64("character_id", characterID))
	return cachedToken{
		accessToken: tr.AccessToken,
		expiresAt:   time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

func hasScope(granted, want string) bool {
	for _, s := range strings.Fields(granted) {
		if s == want {
			return true
		}
	}
	return false
}

var _ domain.TokenSource = (*Provider)(nil)
