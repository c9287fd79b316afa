package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthManager exchanges an API key for a bearer credential and tracks its
// expiry so the client can refresh proactively.
type AuthManager struct {
	apiKey  string
	authURL string
	http    *http.Client

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// NewAuthManager creates an AuthManager for the given key and exchange URL.
func NewAuthManager(apiKey, authURL string, httpClient *http.Client) *AuthManager {
	return &AuthManager{apiKey: apiKey, authURL: authURL, http: httpClient}
}

type exchangeResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"` // unix seconds
}

// ExchangeToken performs the login exchange and stores the resulting
// credential.
func (a *AuthManager) ExchangeToken(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{"apiKey": a.apiKey})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.authURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("auth exchange: http %d", resp.StatusCode)
	}

	var er exchangeResponse
	if err := json.Unmarshal(b, &er); err != nil {
		return fmt.Errorf("auth exchange: %w", err)
	}
	if er.AccessToken == "" {
		return fmt.Errorf("auth exchange: empty access token")
	}

	exp := time.Unix(er.ExpiresAt, 0)
	if er.ExpiresAt == 0 {
		exp = tokenExpiry(er.AccessToken)
	}

	a.mu.Lock()
	a.accessToken = er.AccessToken
	a.refreshToken = er.RefreshToken
	a.expiresAt = exp
	a.mu.Unlock()
	return nil
}

// AccessToken returns the current bearer token, or "" if not logged in.
func (a *AuthManager) AccessToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.accessToken
}

// Expired reports whether the credential is missing or within the refresh
// margin of its expiry.
func (a *AuthManager) Expired() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.accessToken == "" {
		return true
	}
	if a.expiresAt.IsZero() {
		return false
	}
	return time.Until(a.expiresAt) < 2*time.Minute
}

// tokenExpiry extracts the exp claim from a JWT without verifying the
// signature; the server vouches for tokens it just issued, we only need the
// deadline. Returns the zero time if the token is not a parseable JWT.
func tokenExpiry(token string) time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
