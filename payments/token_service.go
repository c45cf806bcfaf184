package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// tokenSource caches an OAuth client-credentials token until shortly before it expires.
type tokenSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	client       *http.Client

	mu     sync.RWMutex
	token  string
	expiry time.Time
}

func (s *tokenSource) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.token != "" && time.Now().Before(s.expiry) {
		token := s.token
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expiry) {
		return s.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.clientID, s.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("token request", resp)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	ttl := time.Duration(tr.ExpiresIn-300) * time.Second
	if ttl < time.Minute {
		ttl = time.Minute
	}
	s.token = tr.AccessToken
	s.expiry = time.Now().Add(ttl)
	return s.token, nil
}

func statusError(op string, resp *http.Response) error {
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %s returned %s", ErrUnavailable, op, resp.Status)
	}
	return fmt.Errorf("%s returned %s", op, resp.Status)
}
