package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/touchline/internal/domain/matchstate"
	"github.com/riskibarqy/touchline/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/touchline/internal/platform/logging"
	"github.com/riskibarqy/touchline/internal/usecase"
)

type sequenceIDs struct {
	n atomic.Int64
}

func (g *sequenceIDs) NewID() (string, error) {
	return fmt.Sprintf("rec-%d", g.n.Add(1)), nil
}

type fakeSync struct {
	runErr   error
	runs     int
	restored int
	status   usecase.SyncStatus
}

func (f *fakeSync) Run(context.Context) error {
	f.runs++
	return f.runErr
}

func (f *fakeSync) Status() usecase.SyncStatus { return f.status }

func (f *fakeSync) ConnectivityRestored() { f.restored++ }

// fakeSession accepts exactly one token.
type fakeSession struct {
	valid     string
	token     string
	signedOut bool
}

func (f *fakeSession) Resolve(context.Context) (usecase.Identity, error) {
	if f.token != "" && f.token == f.valid {
		return usecase.Identity{UserID: "user-1", Authenticated: true, Token: f.token}, nil
	}
	return usecase.Identity{UserID: "guest-device"}, nil
}

func (f *fakeSession) SetToken(token string) { f.token = token }

func (f *fakeSession) SignOut(context.Context) error {
	f.token = ""
	f.signedOut = true
	return nil
}

type testServer struct {
	router  http.Handler
	sync    *fakeSync
	session *fakeSession
}

func newTestServer(t *testing.T, withSync bool) *testServer {
	t.Helper()

	logger := logging.NewNop()
	session := &fakeSession{valid: "good-token", token: "good-token"}
	data := usecase.NewDataService(memory.NewRecordStore(), session, nil, &sequenceIDs{}, logger)
	clock := usecase.NewClockService(data, logger)
	feed := usecase.NewFeedService(data)
	viewers := usecase.NewViewerManager(nil, usecase.ViewerOptions{Logger: logger})

	srv := &testServer{session: session}
	var syncCtl SyncController
	if withSync {
		srv.sync = &fakeSync{status: usecase.SyncStatus{Pushed: 3}}
		syncCtl = srv.sync
	}

	handler := NewHandler(data, syncCtl, session, clock, feed, viewers, HandlerOptions{Logger: logger})
	srv.router = NewRouter(handler, logger, nil)
	return srv
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var envelope struct {
		Data T `json:"data"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response body: %v (body=%s)", err, rec.Body.String())
	}
	return envelope.Data
}

func errorStatus(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var envelope struct {
		Error struct {
			Status string `json:"status"`
		} `json:"error"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal error body: %v (body=%s)", err, rec.Body.String())
	}
	return envelope.Error.Status
}

type idOnly struct {
	ID string `json:"id"`
}

// seedMatch creates a season, two teams and a half-format match through the
// API and returns the match id.
func (s *testServer) seedMatch(t *testing.T) string {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/v1/seasons", map[string]any{"label": "Autumn 2026"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create season: status %d body=%s", rec.Code, rec.Body.String())
	}
	seasonID := decodeData[idOnly](t, rec).ID

	rec = s.do(t, http.MethodPost, "/v1/teams", map[string]any{"name": "Riverside U12"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create home team: status %d body=%s", rec.Code, rec.Body.String())
	}
	homeID := decodeData[idOnly](t, rec).ID

	rec = s.do(t, http.MethodPost, "/v1/teams", map[string]any{"name": "Hillcrest", "isOpponent": true})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create away team: status %d body=%s", rec.Code, rec.Body.String())
	}
	awayID := decodeData[idOnly](t, rec).ID

	rec = s.do(t, http.MethodPost, "/v1/matches", map[string]any{
		"seasonId":        seasonID,
		"homeTeamId":      homeID,
		"awayTeamId":      awayID,
		"durationMinutes": 60,
		"periodFormat":    "half",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create match: status %d body=%s", rec.Code, rec.Body.String())
	}
	return decodeData[idOnly](t, rec).ID
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeData[map[string]string](t, rec)["status"]; got != "ok" {
		t.Fatalf("expected status ok, got %q", got)
	}
}

func TestTeamLifecycle(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/v1/teams", map[string]any{"name": "Riverside U12", "homeKitColor": "navy"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	created := decodeData[struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		CreatedByUserID string `json:"createdByUserId"`
		Synced          bool   `json:"synced"`
	}](t, rec)
	if created.ID == "" || created.Name != "Riverside U12" {
		t.Fatalf("unexpected created team: %+v", created)
	}
	if created.CreatedByUserID != "user-1" {
		t.Fatalf("expected owner user-1, got %q", created.CreatedByUserID)
	}
	if created.Synced {
		t.Fatalf("new record must start unsynced")
	}

	rec = srv.do(t, http.MethodPut, "/v1/teams/"+created.ID, map[string]any{"name": "Riverside U13"})
	if rec.Code != http.StatusOK {
		t.Fatalf("replace: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodGet, "/v1/teams/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	got := decodeData[struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}](t, rec)
	if got.ID != created.ID || got.Name != "Riverside U13" {
		t.Fatalf("replace did not keep id or apply name: %+v", got)
	}

	rec = srv.do(t, http.MethodGet, "/v1/teams", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	if items := decodeData[[]idOnly](t, rec); len(items) != 1 {
		t.Fatalf("expected one team, got %d", len(items))
	}

	rec = srv.do(t, http.MethodDelete, "/v1/teams/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodGet, "/v1/teams/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
	rec = srv.do(t, http.MethodGet, "/v1/teams", nil)
	if items := decodeData[[]idOnly](t, rec); len(items) != 0 {
		t.Fatalf("deleted team must not be listed, got %d", len(items))
	}
}

func TestCreateTeam_RejectsInvalidPayload(t *testing.T) {
	srv := newTestServer(t, true)

	tests := []struct {
		name string
		body any
	}{
		{name: "missing name", body: map[string]any{"homeKitColor": "red"}},
		{name: "unknown field", body: map[string]any{"name": "A", "captain": "x"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/v1/teams", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
			}
			if got := errorStatus(t, rec); got != "INVALID_ARGUMENT" {
				t.Fatalf("expected INVALID_ARGUMENT, got %q", got)
			}
		})
	}
}

func TestClockFlow(t *testing.T) {
	srv := newTestServer(t, true)
	matchID := srv.seedMatch(t)
	base := "/v1/matches/" + matchID + "/clock"

	type snapshot struct {
		Status     matchstate.Status `json:"status"`
		OpenPeriod *struct {
			PeriodNumber int `json:"periodNumber"`
		} `json:"open_period"`
	}

	rec := srv.do(t, http.MethodGet, base, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeData[snapshot](t, rec).Status; got != matchstate.StatusNotStarted {
		t.Fatalf("expected NOT_STARTED, got %s", got)
	}

	rec = srv.do(t, http.MethodPost, base+"/resume", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("resume before kickoff: expected 409, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := errorStatus(t, rec); got != "FAILED_PRECONDITION" {
		t.Fatalf("expected FAILED_PRECONDITION, got %q", got)
	}

	rec = srv.do(t, http.MethodPost, base+"/kickoff", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("kickoff: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	snap := decodeData[snapshot](t, rec)
	if snap.Status != matchstate.StatusLive || snap.OpenPeriod == nil || snap.OpenPeriod.PeriodNumber != 1 {
		t.Fatalf("unexpected snapshot after kickoff: %+v", snap)
	}

	rec = srv.do(t, http.MethodPost, base+"/pause", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pause: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeData[snapshot](t, rec).Status; got != matchstate.StatusPaused {
		t.Fatalf("expected PAUSED, got %s", got)
	}

	rec = srv.do(t, http.MethodPost, base+"/resume", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resume: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodPost, base+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeData[snapshot](t, rec).Status; got != matchstate.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", got)
	}

	rec = srv.do(t, http.MethodPost, base+"/kickoff", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("kickoff after complete: expected 409, got %d", rec.Code)
	}
}

func TestKickoff_RejectsUnknownPeriodType(t *testing.T) {
	srv := newTestServer(t, true)
	matchID := srv.seedMatch(t)

	rec := srv.do(t, http.MethodPost, "/v1/matches/"+matchID+"/clock/kickoff", map[string]any{"period_type": "OVERTIME"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestClock_UnknownMatch(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodGet, "/v1/matches/missing/clock", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestStreamClock_NotLiveSendsSingleFrame(t *testing.T) {
	srv := newTestServer(t, true)
	matchID := srv.seedMatch(t)

	rec := srv.do(t, http.MethodGet, "/v1/matches/"+matchID+"/clock/stream", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream content type, got %q", ct)
	}
	body := rec.Body.String()
	if !bytes.HasPrefix([]byte(body), []byte("event: clock\ndata: ")) {
		t.Fatalf("unexpected frame: %q", body)
	}
	if n := bytes.Count([]byte(body), []byte("event: clock")); n != 1 {
		t.Fatalf("expected one frame, got %d", n)
	}
}

func TestTimeline(t *testing.T) {
	srv := newTestServer(t, true)
	matchID := srv.seedMatch(t)

	rec := srv.do(t, http.MethodGet, "/v1/matches/"+matchID+"/timeline", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSyncRoutes(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodGet, "/v1/sync/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	if got := decodeData[usecase.SyncStatus](t, rec).Pushed; got != 3 {
		t.Fatalf("expected pushed=3, got %d", got)
	}

	srv.sync.runErr = fmt.Errorf("%w: remote rejected teams", usecase.ErrRemoteRejected)
	rec = srv.do(t, http.MethodPost, "/v1/sync/run", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("run with rejection: expected 200, got %d", rec.Code)
	}

	srv.sync.runErr = fmt.Errorf("%w: dial tcp", usecase.ErrTransientNetwork)
	rec = srv.do(t, http.MethodPost, "/v1/sync/run", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("run offline: expected 503, got %d", rec.Code)
	}
	if srv.sync.runs != 2 {
		t.Fatalf("expected two runs, got %d", srv.sync.runs)
	}

	rec = srv.do(t, http.MethodPost, "/v1/sync/connectivity", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("connectivity: expected 202, got %d", rec.Code)
	}
	if srv.sync.restored != 1 {
		t.Fatalf("expected connectivity signal, got %d", srv.sync.restored)
	}
}

func TestSyncRoutes_Disabled(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodGet, "/v1/sync/status", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestSession(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPut, "/v1/session", map[string]any{"access_token": "bad-token"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d body=%s", rec.Code, rec.Body.String())
	}
	if srv.session.token != "" {
		t.Fatalf("rejected token must be cleared, got %q", srv.session.token)
	}

	rec = srv.do(t, http.MethodGet, "/v1/me", nil)
	if got := decodeData[identityDTO](t, rec); got.Authenticated {
		t.Fatalf("expected guest after rejected sign in, got %+v", got)
	}

	rec = srv.do(t, http.MethodPut, "/v1/session", map[string]any{"access_token": "good-token"})
	if rec.Code != http.StatusOK {
		t.Fatalf("good token: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeData[identityDTO](t, rec); got.UserID != "user-1" || !got.Authenticated {
		t.Fatalf("unexpected identity: %+v", got)
	}
	if srv.sync.restored != 1 {
		t.Fatalf("sign in should trigger a sync, got %d", srv.sync.restored)
	}

	rec = srv.do(t, http.MethodDelete, "/v1/session", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("sign out: expected 204, got %d", rec.Code)
	}
	if !srv.session.signedOut {
		t.Fatalf("expected sign out to reach the session manager")
	}
}

func TestViewerRoutes_WithoutStream(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodGet, "/v1/viewer/timeline", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("timeline without session: expected 404, got %d", rec.Code)
	}

	rec = srv.do(t, http.MethodPost, "/v1/viewer", map[string]any{"match_id": "m1", "share_token": "tok"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("open without stream: expected 503, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, http.MethodPost, "/v1/viewer", map[string]any{"match_id": "m1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("open without token: expected 400, got %d", rec.Code)
	}

	rec = srv.do(t, http.MethodDelete, "/v1/viewer", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("close: expected 204, got %d", rec.Code)
	}
}
