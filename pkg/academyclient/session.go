package academyclient

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/anjiri1684/course_academy/models"
	"github.com/golang-jwt/jwt/v4"
)

const tokenKey = "token"

// Session is the signed-in identity of a Client. The token survives in the
// Store; the user is reloaded from the API.
type Session struct {
	client *Client

	mu    sync.RWMutex
	token string
	user  *models.User
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

func (s *Session) set(token string, user *models.User) error {
	s.mu.Lock()
	s.token, s.user = token, user
	s.mu.Unlock()
	return s.client.store.Set(tokenKey, token)
}

// tokenExpired reads exp without verifying the signature; the server does
// the verification.
func tokenExpired(raw string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return true
	}
	return !claims.VerifyExpiresAt(now.Unix(), true)
}

// Load restores the session from the Store. An expired or rejected token is
// discarded and Load reports no session without error.
func (s *Session) Load(ctx context.Context) (*models.User, error) {
	raw, ok := s.client.store.Get(tokenKey)
	if !ok || raw == "" {
		return nil, nil
	}
	if tokenExpired(raw, s.client.now()) {
		return nil, s.Clear()
	}

	s.mu.Lock()
	s.token = raw
	s.mu.Unlock()

	user, err := s.Refresh(ctx)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
		return nil, s.Clear()
	}
	return user, err
}

// Refresh reloads the current user, typically after a purchase changed
// their entitlements.
func (s *Session) Refresh(ctx context.Context) (*models.User, error) {
	if !s.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	var user models.User
	if err := s.client.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()
	return &user, nil
}

// Clear signs out locally.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token, s.user = "", nil
	s.mu.Unlock()
	return s.client.store.Delete(tokenKey)
}
