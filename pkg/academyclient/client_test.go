package academyclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, handler http.Handler, store Store) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var slept []time.Duration
	c := NewClient(srv.URL+"/api", store)
	c.now = func() time.Time { return fixedNow }
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uuid.NewString(),
		"exp":     exp.Unix(),
	})
	raw, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestRegister_SendsPendingReferral(t *testing.T) {
	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusCreated, map[string]any{
			"token": "tok-1",
			"user":  map[string]any{"email": "new@example.com", "name": "New"},
		})
	})
	store := NewMemoryStore()
	c, _ := newTestClient(t, mux, store)

	if err := c.CaptureReferral(" abc123 "); err != nil {
		t.Fatalf("capture: %v", err)
	}
	user, err := c.Register(context.Background(), RegisterParams{Name: "New", Email: "new@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if got["referral_code"] != "ABC123" {
		t.Errorf("referral_code = %v, want ABC123", got["referral_code"])
	}
	if got["referral_captured_at"] != float64(fixedNow.Unix()) {
		t.Errorf("referral_captured_at = %v", got["referral_captured_at"])
	}
	if user.Email != "new@example.com" {
		t.Errorf("unexpected user %+v", user)
	}
	if _, ok := c.PendingReferral(); ok {
		t.Error("referral should be cleared after registration")
	}
	if tok, _ := store.Get(tokenKey); tok != "tok-1" {
		t.Errorf("stored token = %q", tok)
	}
}

func TestRegister_FailureKeepsReferral(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
	})
	c, _ := newTestClient(t, mux, nil)
	_ = c.CaptureReferral("ABC123")

	_, err := c.Register(context.Background(), RegisterParams{Name: "New", Email: "new@example.com", Password: "secret1"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict || apiErr.Message != "email already registered" {
		t.Fatalf("expected conflict APIError, got %v", err)
	}
	if _, ok := c.PendingReferral(); !ok {
		t.Error("referral should survive a failed registration")
	}
	if c.Session().Authenticated() {
		t.Error("failed registration must not sign in")
	}
}

func TestPendingReferral_Expires(t *testing.T) {
	store := NewMemoryStore()
	c, _ := newTestClient(t, http.NotFoundHandler(), store)
	_ = c.CaptureReferral("ABC123")

	c.now = func() time.Time { return fixedNow.Add(23 * time.Hour) }
	if ref, ok := c.PendingReferral(); !ok || ref.Code != "ABC123" {
		t.Fatalf("referral should still be pending, got %+v %v", ref, ok)
	}

	c.now = func() time.Time { return fixedNow.Add(25 * time.Hour) }
	if _, ok := c.PendingReferral(); ok {
		t.Fatal("referral should have expired")
	}
	if _, ok := store.Get(referralCodeKey); ok {
		t.Error("expired referral should be removed from the store")
	}
}

func TestSessionLoad(t *testing.T) {
	valid := signedToken(t, fixedNow.Add(time.Hour))
	expired := signedToken(t, fixedNow.Add(-time.Hour))

	tests := []struct {
		name     string
		token    string
		status   int
		wantUser bool
		wantKept bool
		wantCall bool
	}{
		{"valid token", valid, http.StatusOK, true, true, true},
		{"expired token", expired, http.StatusOK, false, false, false},
		{"rejected token", valid, http.StatusUnauthorized, false, false, true},
		{"garbage token", "not-a-jwt", http.StatusOK, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			mux := http.NewServeMux()
			mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				if r.Header.Get("Authorization") != "Bearer "+tt.token {
					t.Errorf("missing bearer token")
				}
				if tt.status != http.StatusOK {
					writeJSON(w, tt.status, map[string]string{"message": "Invalid or expired JWT"})
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"email": "me@example.com"})
			})
			store := NewMemoryStore()
			_ = store.Set(tokenKey, tt.token)
			c, _ := newTestClient(t, mux, store)

			user, err := c.Session().Load(context.Background())
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if (user != nil) != tt.wantUser {
				t.Errorf("user = %+v, want present=%v", user, tt.wantUser)
			}
			if _, kept := store.Get(tokenKey); kept != tt.wantKept {
				t.Errorf("token kept = %v, want %v", kept, tt.wantKept)
			}
			if (atomic.LoadInt32(&calls) > 0) != tt.wantCall {
				t.Errorf("server called = %v, want %v", !tt.wantCall, tt.wantCall)
			}
		})
	}
}

func TestSessionRefresh_RequiresToken(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler(), nil)
	if _, err := c.Session().Refresh(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := c.CheckoutCourse(context.Background(), uuid.NewString(), ""); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated for checkout, got %v", err)
	}
}

func TestLogout_ClearsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token": "tok-2", "user": map[string]any{"email": "a@example.com"}})
	})
	store := NewMemoryStore()
	c, _ := newTestClient(t, mux, store)

	if _, err := c.Login(context.Background(), "a@example.com", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !c.Session().Authenticated() || c.Session().User() == nil {
		t.Fatal("login should populate the session")
	}
	if err := c.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if c.Session().Authenticated() || c.Session().User() != nil {
		t.Error("logout should clear the session")
	}
	if _, ok := store.Get(tokenKey); ok {
		t.Error("logout should drop the stored token")
	}
}

func statusServer(t *testing.T, responses func(call int) (int, PaymentStatus)) (http.Handler, *int32) {
	t.Helper()
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/payments/status/cs_test", func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1))
		code, status := responses(n)
		if code != http.StatusOK {
			writeJSON(w, code, map[string]string{"error": "payment provider unavailable"})
			return
		}
		writeJSON(w, code, status)
	})
	return mux, &calls
}

var (
	openStatus    = PaymentStatus{Status: "open", PaymentStatus: "unpaid"}
	paidStatus    = PaymentStatus{Status: "complete", PaymentStatus: "paid"}
	expiredStatus = PaymentStatus{Status: "expired", PaymentStatus: "unpaid"}
)

func TestPollPaymentStatus_ConfirmsWhenPaid(t *testing.T) {
	handler, calls := statusServer(t, func(n int) (int, PaymentStatus) {
		if n < 3 {
			return http.StatusOK, openStatus
		}
		return http.StatusOK, paidStatus
	})
	c, slept := newTestClient(t, handler, nil)

	res, err := c.PollPaymentStatus(context.Background(), "cs_test")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !res.Confirmed || !res.Status.Paid() {
		t.Errorf("expected confirmed paid result, got %+v", res)
	}
	if n := atomic.LoadInt32(calls); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
	if len(*slept) != 2 || (*slept)[0] != 2*time.Second {
		t.Errorf("unexpected backoff %v", *slept)
	}
}

func TestPollPaymentStatus_OptimisticAfterExhaustion(t *testing.T) {
	handler, calls := statusServer(t, func(int) (int, PaymentStatus) { return http.StatusOK, openStatus })
	c, _ := newTestClient(t, handler, nil)

	res, err := c.PollPaymentStatus(context.Background(), "cs_test")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if res.Confirmed {
		t.Error("an open session must not be reported as confirmed")
	}
	if res.Status.Status != "open" {
		t.Errorf("status = %q, want open", res.Status.Status)
	}
	if n := atomic.LoadInt32(calls); n != 6 {
		t.Errorf("calls = %d, want 6", n)
	}
}

func TestPollPaymentStatus_Expired(t *testing.T) {
	handler, calls := statusServer(t, func(int) (int, PaymentStatus) { return http.StatusOK, expiredStatus })
	c, _ := newTestClient(t, handler, nil)

	if _, err := c.PollPaymentStatus(context.Background(), "cs_test"); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Errorf("expired session should stop polling, calls = %d", n)
	}
}

func TestPollPaymentStatus_Errors(t *testing.T) {
	t.Run("recovers after transient failures", func(t *testing.T) {
		handler, _ := statusServer(t, func(n int) (int, PaymentStatus) {
			if n <= 2 {
				return http.StatusServiceUnavailable, PaymentStatus{}
			}
			return http.StatusOK, paidStatus
		})
		c, _ := newTestClient(t, handler, nil)
		res, err := c.PollPaymentStatus(context.Background(), "cs_test")
		if err != nil || !res.Confirmed {
			t.Fatalf("expected confirmation, got %+v %v", res, err)
		}
	})

	t.Run("gives up when every attempt fails", func(t *testing.T) {
		handler, calls := statusServer(t, func(int) (int, PaymentStatus) { return http.StatusServiceUnavailable, PaymentStatus{} })
		c, _ := newTestClient(t, handler, nil)
		_, err := c.PollPaymentStatus(context.Background(), "cs_test")
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("expected 503 APIError, got %v", err)
		}
		if n := atomic.LoadInt32(calls); n != 6 {
			t.Errorf("calls = %d, want 6", n)
		}
	})
}

func TestPollPaymentStatus_HonoursCancellation(t *testing.T) {
	handler, _ := statusServer(t, func(int) (int, PaymentStatus) { return http.StatusOK, openStatus })
	c, _ := newTestClient(t, handler, nil)
	c.sleep = sleepContext
	c.pollBackoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.PollPaymentStatus(ctx, "cs_test"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewFileStore(path)

	if _, ok := s.Get(tokenKey); ok {
		t.Fatal("empty store should have no token")
	}
	if err := s.Set(tokenKey, "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}

	reopened := NewFileStore(path)
	if v, ok := reopened.Get(tokenKey); !ok || v != "tok" {
		t.Fatalf("token not persisted, got %q %v", v, ok)
	}
	if err := reopened.Delete(tokenKey); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := s.Get(tokenKey); ok {
		t.Error("token should be gone after delete")
	}
}
