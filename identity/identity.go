// Package identity resolves the bearer token presented by a connecting client
// into a user, using the platform's auth service.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// User is the verified identity behind a connection. ID is empty for anonymous users.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Verifier turns a token into a user
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

// AnonymousVerifier accepts every connection without an identity.
type AnonymousVerifier struct{}

// Verify implements Verifier.
func (AnonymousVerifier) Verify(ctx context.Context, token string) (*User, error) {
	return &User{}, nil
}

// HTTPVerifier checks tokens against GET {url} with an Authorization header.
// A 200 response body is decoded as the User.
type HTTPVerifier struct {
	url        string
	httpClient *http.Client
}

// NewHTTPVerifier creates a verifier for the auth endpoint at url.
func NewHTTPVerifier(url string, timeout time.Duration) *HTTPVerifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPVerifier{url: url, httpClient: &http.Client{Timeout: timeout}}
}

// Verify implements Verifier.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call auth service: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("auth service returned %d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}
	return &user, nil
}

// TokenFromRequest reads a bearer token from the Authorization header, falling
// back to the token query parameter browsers use for WebSocket upgrades.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}
