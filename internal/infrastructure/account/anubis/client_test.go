package anubis

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/touchline/internal/platform/logging"
	"github.com/riskibarqy/touchline/internal/platform/resilience"
	"github.com/riskibarqy/touchline/internal/usecase"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	raw, _ := sonic.Marshal(v)
	_, _ = w.Write(raw)
}

func newTestClient(srv *httptest.Server, adminKey string, breaker resilience.CircuitBreakerConfig) *Client {
	return NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		IntrospectPath: "/v1/auth/introspect",
		AdminKey:       adminKey,
		CacheTTL:       time.Minute,
		CircuitBreaker: breaker,
		Logger:         logging.NewNop(),
	})
}

func TestClientVerifyAccessToken_SendsAdminKeyAndParsesResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/v1/auth/introspect" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("x-admin-key"); got != "admin-secret" {
			t.Errorf("unexpected x-admin-key: %s", got)
		}

		body, _ := io.ReadAll(r.Body)
		var req map[string]string
		if err := sonic.Unmarshal(body, &req); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if req["token"] != "token-abc" {
			t.Errorf("unexpected token value: %s", req["token"])
		}

		writeJSON(w, map[string]any{
			"active":  true,
			"user_id": "user-123",
			"app_id":  "app-001",
			"roles":   []string{"coach"},
			"exp":     1730000000,
		})
	}))
	defer srv.Close()

	client := newTestClient(srv, "admin-secret", resilience.CircuitBreakerConfig{Enabled: false})

	principal, err := client.VerifyAccessToken(context.Background(), "token-abc")
	if err != nil {
		t.Fatalf("verify token failed: %v", err)
	}
	if principal.UserID != "user-123" {
		t.Fatalf("unexpected user id: %s", principal.UserID)
	}
	if principal.Email != "" {
		t.Fatalf("expected empty email, got %s", principal.Email)
	}
}

func TestClientVerifyAccessToken_InactiveToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"active": false})
	}))
	defer srv.Close()

	client := newTestClient(srv, "admin-secret", resilience.CircuitBreakerConfig{Enabled: false})

	_, err := client.VerifyAccessToken(context.Background(), "invalid-token")
	if !errors.Is(err, usecase.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestClientVerifyAccessToken_ForbiddenMappedToDependencyUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden"}`))
	}))
	defer srv.Close()

	client := newTestClient(srv, "wrong-key", resilience.CircuitBreakerConfig{Enabled: false})

	_, err := client.VerifyAccessToken(context.Background(), "token-abc")
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestClientVerifyAccessToken_UsesCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, map[string]any{"active": true, "user_id": "user-cache"})
	}))
	defer srv.Close()

	client := newTestClient(srv, "admin-secret", resilience.CircuitBreakerConfig{Enabled: false})

	for i := 0; i < 2; i++ {
		principal, err := client.VerifyAccessToken(context.Background(), "cached-token")
		if err != nil {
			t.Fatalf("verify token failed: %v", err)
		}
		if principal.UserID != "user-cache" {
			t.Fatalf("unexpected user id: %s", principal.UserID)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one introspection call with cache, got %d", calls.Load())
	}

	client.Forget(context.Background(), "cached-token")
	if _, err := client.VerifyAccessToken(context.Background(), "cached-token"); err != nil {
		t.Fatalf("verify token after forget failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected a fresh introspection after forget, got %d calls", calls.Load())
	}
}

func TestClientVerifyAccessToken_CircuitOpensOnOutage(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(srv, "admin-secret", resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})

	for i := 0; i < 3; i++ {
		_, err := client.VerifyAccessToken(context.Background(), "token-abc")
		if !errors.Is(err, usecase.ErrDependencyUnavailable) {
			t.Fatalf("attempt %d: expected ErrDependencyUnavailable, got %v", i, err)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("expected the open circuit to short-circuit the third call, got %d calls", calls.Load())
	}
}

func TestBuildURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		base, path, want string
	}{
		{"https://anubis.example.com/", "/v1/auth/introspect", "https://anubis.example.com/v1/auth/introspect"},
		{"https://anubis.example.com", "v1/auth/introspect", "https://anubis.example.com/v1/auth/introspect"},
		{"https://anubis.example.com", "", "https://anubis.example.com"},
		{"https://ignored", "https://other.example.com/introspect", "https://other.example.com/introspect"},
	}
	for _, tc := range cases {
		if got := buildURL(tc.base, tc.path); got != tc.want {
			t.Fatalf("buildURL(%q, %q) = %q, want %q", tc.base, tc.path, got, tc.want)
		}
	}
}
