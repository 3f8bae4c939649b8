// internal/common/auth/token.go
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"titlequote/internal/common/errors"
)

// TokenProvider supplies a bearer token for the rate service. Implementations
// are injected into callers; there is no ambient token state.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenResponse holds the response from the identity provider's token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// ClientCredentialsProvider fetches tokens via the OAuth2 client-credentials
// flow and caches them until near expiry. Safe for concurrent use.
type ClientCredentialsProvider struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// expirySkew refreshes the token slightly before the provider-declared expiry
// so an in-flight upstream call never carries a token about to lapse.
const expirySkew = 30 * time.Second

// NewClientCredentialsProvider creates a new token provider.
func NewClientCredentialsProvider(tokenURL, clientID, clientSecret string) *ClientCredentialsProvider {
	return &ClientCredentialsProvider{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Token returns a cached token, fetching a fresh one when expired.
func (p *ClientCredentialsProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && p.tokenExpiry.After(time.Now().Add(expirySkew)) {
		return p.accessToken, nil
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", p.clientID)
	data.Set("client_secret", p.clientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", p.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", errors.NewUpstreamAuthError(fmt.Errorf("failed to create token request: %w", err))
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", errors.NewUpstreamAuthError(fmt.Errorf("failed to execute token request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", errors.NewUpstreamAuthError(
			fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body)))
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", errors.NewUpstreamAuthError(fmt.Errorf("failed to decode token response: %w", err))
	}

	p.accessToken = tokenResp.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	return p.accessToken, nil
}

// StaticTokenProvider returns a fixed token. Used in tests and local runs
// against a stubbed rate service.
type StaticTokenProvider string

func (s StaticTokenProvider) Token(context.Context) (string, error) {
	return string(s), nil
}
