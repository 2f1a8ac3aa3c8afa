package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/touchline/internal/domain/quota"
	"github.com/riskibarqy/touchline/internal/domain/record"
	"github.com/riskibarqy/touchline/internal/domain/team"
	"github.com/riskibarqy/touchline/internal/platform/logging"
	"github.com/riskibarqy/touchline/internal/platform/resilience"
	"github.com/riskibarqy/touchline/internal/usecase"
)

var testIdentity = usecase.StaticIdentity{UserID: "user-1", Authenticated: true, Token: "token-abc"}

func newTestClient(t *testing.T, srv *httptest.Server, retries int, breaker resilience.CircuitBreakerConfig) *Client {
	t.Helper()
	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		MaxRetries:     retries,
		Identity:       testIdentity,
		Logger:         logging.NewNop(),
		CircuitBreaker: breaker,
	})
	client.retryDelay = func(int) time.Duration { return 0 }
	return client
}

func teamDocument(t *testing.T) record.Document {
	t.Helper()
	at := time.Date(2026, 9, 12, 10, 0, 0, 0, time.UTC)
	doc, err := record.Encode(&team.Team{
		Meta: record.Meta{ID: "team-1", CreatedAt: at, UpdatedAt: at, CreatedByUserID: "user-1"},
		Name: "Riverside",
	})
	require.NoError(t, err)
	return doc
}

func TestClient_UpsertSendsEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/v1/sync/teams/team-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-abc" {
			t.Errorf("unexpected authorization: %s", got)
		}

		body, _ := io.ReadAll(r.Body)
		var env map[string]any
		if err := sonic.Unmarshal(body, &env); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if env["kind"] != "teams" || env["id"] != "team-1" {
			t.Errorf("unexpected envelope: %v", env)
		}
		rec, _ := env["record"].(map[string]any)
		if rec["name"] != "Riverside" {
			t.Errorf("unexpected record: %v", rec)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, 0, resilience.CircuitBreakerConfig{})
	require.NoError(t, client.Upsert(t.Context(), teamDocument(t)))
}

func TestClient_ClassifiesFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		want   error
	}{
		{name: "validation", status: http.StatusUnprocessableEntity, want: usecase.ErrRemoteRejected},
		{name: "conflict", status: http.StatusConflict, want: usecase.ErrRemoteRejected},
		{name: "rate limited", status: http.StatusTooManyRequests, want: usecase.ErrTransientNetwork},
		{name: "timeout", status: http.StatusRequestTimeout, want: usecase.ErrTransientNetwork},
		{name: "server error", status: http.StatusBadGateway, want: usecase.ErrTransientNetwork},
		{name: "expired token", status: http.StatusUnauthorized, want: usecase.ErrUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			client := newTestClient(t, srv, 0, resilience.CircuitBreakerConfig{})
			err := client.Delete(t.Context(), record.KindTeams, "team-1")
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestClient_DeleteOfMissingRecordSucceeds(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusNotFound, http.StatusGone} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		client := newTestClient(t, srv, 0, resilience.CircuitBreakerConfig{})
		require.NoError(t, client.Delete(t.Context(), record.KindTeams, "team-1"), "status %d", status)
		srv.Close()
	}
}

func TestClient_UpsertNotFoundIsRejected(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, 0, resilience.CircuitBreakerConfig{})
	err := client.Upsert(t.Context(), teamDocument(t))
	require.ErrorIs(t, err, usecase.ErrRemoteRejected)
}

func TestClient_NetworkErrorIsTransient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := newTestClient(t, srv, 0, resilience.CircuitBreakerConfig{})
	err := client.Upsert(t.Context(), teamDocument(t))
	require.ErrorIs(t, err, usecase.ErrTransientNetwork)
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, 2, resilience.CircuitBreakerConfig{})
	require.NoError(t, client.Upsert(t.Context(), teamDocument(t)))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_RejectionIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, 3, resilience.CircuitBreakerConfig{})
	err := client.Upsert(t.Context(), teamDocument(t))
	require.ErrorIs(t, err, usecase.ErrRemoteRejected)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_CircuitOpensOnOutagesOnly(t *testing.T) {
	t.Parallel()

	var (
		calls  atomic.Int32
		status atomic.Int32
	)
	status.Store(http.StatusBadRequest)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, 0, resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		HalfOpenMaxReq:   1,
	})

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, client.Delete(t.Context(), record.KindTeams, "t"), usecase.ErrRemoteRejected)
	}
	assert.Equal(t, resilience.CircuitStateClosed, client.breaker.State())

	status.Store(http.StatusInternalServerError)
	for i := 0; i < 2; i++ {
		require.ErrorIs(t, client.Delete(t.Context(), record.KindTeams, "t"), usecase.ErrTransientNetwork)
	}

	before := calls.Load()
	err := client.Delete(t.Context(), record.KindTeams, "t")
	require.ErrorIs(t, err, usecase.ErrTransientNetwork)
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen))
	assert.Equal(t, before, calls.Load(), "open circuit fails fast")
}

func TestClient_ListDecodesEnvelopes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sync/teams" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"kind":"teams","id":"team-1","record":{"id":"team-1","createdAt":"2026-09-12T10:00:00Z","updatedAt":"2026-09-12T11:00:00Z","createdByUserId":"user-1","isDeleted":false,"name":"Riverside"}},
			{"kind":"teams","id":"","record":{}}
		]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, 0, resilience.CircuitBreakerConfig{})
	docs, err := client.List(t.Context(), record.KindTeams)
	require.NoError(t, err)
	require.Len(t, docs, 1, "malformed rows are skipped")

	doc := docs[0]
	assert.Equal(t, record.KindTeams, doc.Kind)
	assert.Equal(t, "team-1", doc.ID)
	assert.True(t, doc.Synced)
	assert.Equal(t, time.Date(2026, 9, 12, 11, 0, 0, 0, time.UTC), doc.UpdatedAt.UTC())

	decoded, err := record.Decode[team.Team](doc)
	require.NoError(t, err)
	assert.Equal(t, "Riverside", decoded.Name)
}

func TestClient_ConcurrentListsShareOneRequest(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, 0, resilience.CircuitBreakerConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.List(context.Background(), record.KindEvents)
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_FetchLimits(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/me/limits" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-xyz" {
			t.Errorf("unexpected authorization: %s", got)
		}
		_, _ = w.Write([]byte(`{"tier":"premium","limits":{"owned_teams":-1,"active_share_links":20}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv, 0, resilience.CircuitBreakerConfig{})
	limits, err := client.FetchLimits(t.Context(), usecase.Identity{UserID: "user-2", Authenticated: true, Token: "token-xyz"})
	require.NoError(t, err)
	assert.Equal(t, quota.TierPremium, limits.Tier)
	assert.Equal(t, quota.Unlimited, limits.For(quota.ResourceOwnedTeams))
	assert.Equal(t, 20, limits.For(quota.ResourceActiveShareLinks))
}

func TestClient_GuestCannotSync(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Errorf("guest request reached the server")
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient: srv.Client(),
		BaseURL:    srv.URL,
		Identity:   usecase.StaticIdentity{UserID: "guest-1"},
		Logger:     logging.NewNop(),
	})
	_, err := client.List(t.Context(), record.KindTeams)
	require.ErrorIs(t, err, usecase.ErrUnauthorized)
}
