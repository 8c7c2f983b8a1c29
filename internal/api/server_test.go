package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/simulex-engine/internal/attempt"
	"github.com/terra-clan/simulex-engine/internal/auth"
	"github.com/terra-clan/simulex-engine/internal/cache"
	"github.com/terra-clan/simulex-engine/internal/config"
	"github.com/terra-clan/simulex-engine/internal/dashboard"
	"github.com/terra-clan/simulex-engine/internal/evaluator"
	"github.com/terra-clan/simulex-engine/internal/health"
	"github.com/terra-clan/simulex-engine/internal/metrics"
	"github.com/terra-clan/simulex-engine/internal/models"
	"github.com/terra-clan/simulex-engine/internal/storage"
	"github.com/terra-clan/simulex-engine/internal/timer/timertest"
)

const testSecret = "test-secret"

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	srv     *httptest.Server
	repo    storage.Repository
	store   *flakyStore
	clock   *timertest.Clock
	tracker *attempt.Tracker
}

// flakyStore fails result completion on demand
type flakyStore struct {
	storage.Repository
	failComplete atomic.Bool
}

func (s *flakyStore) CompleteResult(ctx context.Context, r *models.Result) (bool, error) {
	if s.failComplete.Load() {
		return false, errors.New("connection reset by peer")
	}
	return s.Repository.CompleteResult(ctx, r)
}

func newTestEnv(t *testing.T, limiter *RateLimiter) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sqlite, err := storage.NewSQLiteRepository(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	repo := &flakyStore{Repository: sqlite}

	require.NoError(t, repo.SaveRole(ctx, &models.Role{ID: "developer", Title: "Developer", Color: "#3b82f6"}))
	for _, sim := range []*models.Simulation{
		{ID: "bug-hunt", Title: "Frontend Bug Hunt", RoleID: "developer", Difficulty: models.SimulationIntermediate, Duration: 30, IsActive: true},
		{ID: "api-design", Title: "API Design", RoleID: "developer", Difficulty: models.SimulationAdvanced, Duration: 45, IsActive: true},
	} {
		require.NoError(t, repo.SaveSimulation(ctx, sim))
	}
	order := 1
	require.NoError(t, repo.SaveTask(ctx, &models.Task{
		ID:            "counter",
		Title:         "Fix the Counter Component",
		SimulationID:  "bug-hunt",
		Type:          models.TaskTypeCode,
		Difficulty:    models.TaskBeginner,
		TimeLimit:     600,
		Order:         &order,
		EvaluationDoc: models.Document(`{"criteria":[{"name":"Functionality","weight":0.5},{"name":"Code Quality","weight":0.3},{"name":"Explanation","weight":0.2}]}`),
	}))
	require.NoError(t, repo.SaveTask(ctx, &models.Task{
		ID:           "endpoints",
		Title:        "Design the Endpoints",
		SimulationID: "api-design",
		Type:         models.TaskTypeDesign,
		Difficulty:   models.TaskAdvanced,
	}))

	clock := timertest.NewClock(t0)
	rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{Address: miniredis.RunT(t).Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })

	dash := dashboard.NewService(repo, rc, time.Minute, logger)
	m := metrics.New()
	tracker := attempt.New(repo, evaluator.NewRandom(rand.NewPCG(7, 7)),
		attempt.WithClock(clock),
		attempt.WithLogger(logger),
		attempt.WithMetrics(m),
		attempt.WithOpenHook(dash.InvalidateFor),
		attempt.WithFinalizeHook(dash.InvalidateFor),
	)

	registry := health.NewRegistry()
	registry.Register("database", repo)

	server := NewServer(config.ServerConfig{RequestTimeout: 5 * time.Second}, Dependencies{
		Repo:      repo,
		Tracker:   tracker,
		Dashboard: dash,
		Health:    registry,
		Metrics:   m,
		Verifier:  auth.NewVerifier(testSecret),
		Limiter:   limiter,
		Logger:    logger,
	})

	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, repo: repo, store: repo, clock: clock, tracker: tracker}
}

func token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.Issue(testSecret, userID, time.Hour)
	require.NoError(t, err)
	return tok
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func (e *testEnv) call(t *testing.T, method, path, tok string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealthAndReady(t *testing.T) {
	e := newTestEnv(t, nil)

	status, env := e.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	status, _ = e.call(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	require.NoError(t, e.repo.Close())
	status, env = e.call(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.False(t, env.Success)
}

func TestAuthentication(t *testing.T) {
	e := newTestEnv(t, nil)

	status, env := e.call(t, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unauthorized", env.Error.Code)

	status, _ = e.call(t, http.MethodGet, "/api/v1/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = e.call(t, http.MethodGet, "/api/v1/me", token(t, "user-1"), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user-1", decode[auth.User](t, env).ID)
}

func TestCatalogRoutes(t *testing.T) {
	e := newTestEnv(t, nil)
	tok := token(t, "user-1")

	status, env := e.call(t, http.MethodGet, "/api/v1/simulations?role=developer", tok, nil)
	require.Equal(t, http.StatusOK, status)
	list := decode[struct {
		Simulations []models.Simulation `json:"simulations"`
		Total       int                 `json:"total"`
	}](t, env)
	assert.Equal(t, 2, list.Total)

	status, env = e.call(t, http.MethodGet, "/api/v1/simulations/bug-hunt", tok, nil)
	require.Equal(t, http.StatusOK, status)
	sim := decode[models.Simulation](t, env)
	require.NotNil(t, sim.Role)
	assert.Equal(t, "Developer", sim.Role.Title)

	status, env = e.call(t, http.MethodGet, "/api/v1/simulations/bug-hunt/tasks", tok, nil)
	require.Equal(t, http.StatusOK, status)
	tasks := decode[struct {
		Tasks []models.Task `json:"tasks"`
	}](t, env)
	require.Len(t, tasks.Tasks, 1)
	assert.Equal(t, 600, tasks.Tasks[0].TimeLimit)

	status, _ = e.call(t, http.MethodGet, "/api/v1/simulations/missing/tasks", tok, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = e.call(t, http.MethodGet, "/api/v1/roles/developer", tok, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = e.call(t, http.MethodGet, "/api/v1/tasks/nope", tok, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAttemptSubmitFlow(t *testing.T) {
	e := newTestEnv(t, nil)
	tok := token(t, "user-1")

	status, env := e.call(t, http.MethodPost, "/api/v1/simulations/bug-hunt/tasks/counter/attempt", tok, nil)
	require.Equal(t, http.StatusCreated, status)
	opened := decode[attemptView](t, env)
	assert.False(t, opened.Resumed)
	assert.Equal(t, 600, opened.Remaining)
	assert.Equal(t, 600, opened.TimeLimit)
	resultID := opened.Result.ID

	e.clock.Advance(2 * time.Minute)

	status, env = e.call(t, http.MethodPost, "/api/v1/simulations/bug-hunt/tasks/counter/attempt", tok, nil)
	require.Equal(t, http.StatusOK, status)
	resumed := decode[attemptView](t, env)
	assert.True(t, resumed.Resumed)
	assert.Equal(t, resultID, resumed.Result.ID)
	assert.Equal(t, 480, resumed.Remaining)

	submission := map[string]interface{}{"submission": map[string]string{"code": "setCount(c => c + 1)"}}
	status, env = e.call(t, http.MethodPost, "/api/v1/results/"+resultID+"/submit", tok, submission)
	require.Equal(t, http.StatusOK, status)
	done := decode[attemptView](t, env)
	assert.True(t, done.Finalized)
	require.True(t, done.Result.Completed)
	require.NotNil(t, done.Result.Speed)
	assert.InDelta(t, 80.0, *done.Result.Speed, 1e-9)
	require.NotNil(t, done.Result.EndTime)
	assert.True(t, done.Result.EndTime.Equal(t0.Add(2*time.Minute)))
	assert.JSONEq(t, `{"code":"setCount(c => c + 1)"}`, string(done.Result.Submission))

	// second submit leaves the stored result unchanged
	status, env = e.call(t, http.MethodPost, "/api/v1/results/"+resultID+"/submit", tok, map[string]interface{}{"submission": "other"})
	require.Equal(t, http.StatusOK, status)
	again := decode[attemptView](t, env)
	assert.False(t, again.Finalized)
	assert.Equal(t, *done.Result.Score, *again.Result.Score)
	assert.JSONEq(t, `{"code":"setCount(c => c + 1)"}`, string(again.Result.Submission))

	status, env = e.call(t, http.MethodGet, "/api/v1/results", tok, nil)
	require.Equal(t, http.StatusOK, status)
	history := decode[struct {
		Results []models.Result `json:"results"`
		Total   int             `json:"total"`
	}](t, env)
	assert.Equal(t, 1, history.Total)

	status, env = e.call(t, http.MethodGet, "/api/v1/dashboard", tok, nil)
	require.Equal(t, http.StatusOK, status)
	d := decode[dashboard.Dashboard](t, env)
	assert.Equal(t, 1, d.Stats.CompletedSimulations)
	assert.Equal(t, 1, d.RolePerformance["developer"].Count)
	require.Len(t, d.RecentActivity, 1)
	assert.Equal(t, resultID, d.RecentActivity[0].ID)
}

func TestExpiredAttemptIsClosedOnResume(t *testing.T) {
	e := newTestEnv(t, nil)
	tok := token(t, "user-1")

	_, env := e.call(t, http.MethodPost, "/api/v1/simulations/bug-hunt/tasks/counter/attempt", tok, nil)
	first := decode[attemptView](t, env)

	e.clock.Advance(700 * time.Second)

	status, env := e.call(t, http.MethodPost, "/api/v1/simulations/bug-hunt/tasks/counter/attempt", tok, nil)
	require.Equal(t, http.StatusOK, status)
	closed := decode[attemptView](t, env)
	assert.True(t, closed.Expired)
	assert.True(t, closed.Finalized)
	assert.Equal(t, first.Result.ID, closed.Result.ID)
	require.True(t, closed.Result.Completed)
	assert.Equal(t, 0.0, *closed.Result.Speed)
	assert.Equal(t, 0.0, *closed.Result.Score)
	assert.Contains(t, closed.Result.Feedback, "No submission was received")

	status, env = e.call(t, http.MethodPost, "/api/v1/simulations/bug-hunt/tasks/counter/attempt", tok, nil)
	require.Equal(t, http.StatusCreated, status)
	fresh := decode[attemptView](t, env)
	assert.NotEqual(t, first.Result.ID, fresh.Result.ID)
	assert.Equal(t, 600, fresh.Remaining)
}

func TestAttemptErrors(t *testing.T) {
	e := newTestEnv(t, nil)
	tok := token(t, "user-1")

	status, env := e.call(t, http.MethodPost, "/api/v1/simulations/missing/tasks/counter/attempt", tok, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", env.Error.Code)

	status, env = e.call(t, http.MethodPost, "/api/v1/simulations/api-design/tasks/counter/attempt", tok, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", env.Error.Code)

	_, env = e.call(t, http.MethodPost, "/api/v1/simulations/bug-hunt/tasks/counter/attempt", tok, nil)
	resultID := decode[attemptView](t, env).Result.ID

	status, _ = e.call(t, http.MethodGet, "/api/v1/results/"+resultID, token(t, "user-2"), nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = e.call(t, http.MethodPost, "/api/v1/results/"+resultID+"/submit", token(t, "user-2"), nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = e.call(t, http.MethodGet, "/api/v1/results?completed=maybe", tok, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUntimedTaskUsesSimulationDuration(t *testing.T) {
	e := newTestEnv(t, nil)
	tok := token(t, "user-1")

	status, env := e.call(t, http.MethodPost, "/api/v1/simulations/api-design/tasks/endpoints/attempt", tok, nil)
	require.Equal(t, http.StatusCreated, status)
	opened := decode[attemptView](t, env)
	assert.Equal(t, 0, opened.TimeLimit)
	assert.Equal(t, 0, opened.Remaining)

	// far beyond any timed limit, still open
	e.clock.Advance(9 * time.Minute)

	status, env = e.call(t, http.MethodPost, "/api/v1/results/"+opened.Result.ID+"/submit", tok,
		map[string]interface{}{"submission": map[string]string{"design": "REST"}})
	require.Equal(t, http.StatusOK, status)
	done := decode[attemptView](t, env)
	assert.False(t, done.Expired)
	assert.InDelta(t, 80.0, *done.Result.Speed, 1e-9) // 9 of 45 minutes
}

func TestRateLimitedAttempts(t *testing.T) {
	e := newTestEnv(t, NewRateLimiter(1, 1))
	tok := token(t, "user-1")

	status, _ := e.call(t, http.MethodPost, "/api/v1/simulations/bug-hunt/tasks/counter/attempt", tok, nil)
	assert.Equal(t, http.StatusCreated, status)

	status, env := e.call(t, http.MethodPost, "/api/v1/simulations/bug-hunt/tasks/counter/attempt", tok, nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "rate_limited", env.Error.Code)

	// other users have their own allowance
	status, _ = e.call(t, http.MethodPost, "/api/v1/simulations/bug-hunt/tasks/counter/attempt", token(t, "user-2"), nil)
	assert.Equal(t, http.StatusCreated, status)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t, nil)
	e.call(t, http.MethodGet, "/health", "", nil)

	resp, err := http.Get(e.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "http_requests_total")
}

// --- timer stream ---

func (e *testEnv) dial(t *testing.T, resultID, tok string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/api/v1/results/" + resultID + "/timer?token=" + tok
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) TimerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg TimerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func (e *testEnv) openCounter(t *testing.T, tok string) string {
	t.Helper()
	status, env := e.call(t, http.MethodPost, "/api/v1/simulations/bug-hunt/tasks/counter/attempt", tok, nil)
	require.Equal(t, http.StatusCreated, status)
	return decode[attemptView](t, env).Result.ID
}

func TestTimerStreamCountsDownAndExpires(t *testing.T) {
	e := newTestEnv(t, nil)
	tok := token(t, "user-1")
	resultID := e.openCounter(t, tok)

	conn := e.dial(t, resultID, tok)

	state := readMessage(t, conn)
	assert.Equal(t, msgState, state.Type)
	assert.Equal(t, 600, state.Remaining)
	assert.Equal(t, 600, state.TimeLimit)

	e.clock.Advance(time.Second)
	tick := readMessage(t, conn)
	assert.Equal(t, msgTick, tick.Type)
	assert.Equal(t, 599, tick.Remaining)

	e.clock.Advance(10 * time.Minute)
	assert.Equal(t, msgExpired, readMessage(t, conn).Type)

	final := readMessage(t, conn)
	assert.Equal(t, msgFinalized, final.Type)
	require.NotNil(t, final.Result)
	assert.True(t, final.Result.Completed)
	assert.Equal(t, 0.0, *final.Result.Speed)

	stored, err := e.repo.GetResult(context.Background(), resultID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
}

func TestTimerStreamSubmit(t *testing.T) {
	e := newTestEnv(t, nil)
	tok := token(t, "user-1")
	resultID := e.openCounter(t, tok)

	conn := e.dial(t, resultID, tok)
	assert.Equal(t, msgState, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(TimerMessage{
		Type:       msgSubmit,
		Submission: models.Document(`{"code":"fixed"}`),
	}))

	final := readMessage(t, conn)
	assert.Equal(t, msgFinalized, final.Type)
	require.NotNil(t, final.Result)
	assert.True(t, final.Result.Completed)
	assert.JSONEq(t, `{"code":"fixed"}`, string(final.Result.Submission))

	assert.Eventually(t, func() bool { return e.tracker.Watching(resultID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestTimerStreamEndsWhenSubmittedOverHTTP(t *testing.T) {
	e := newTestEnv(t, nil)
	tok := token(t, "user-1")
	resultID := e.openCounter(t, tok)

	conn := e.dial(t, resultID, tok)
	assert.Equal(t, msgState, readMessage(t, conn).Type)

	status, _ := e.call(t, http.MethodPost, "/api/v1/results/"+resultID+"/submit", tok,
		map[string]interface{}{"submission": "answer"})
	require.Equal(t, http.StatusOK, status)

	final := readMessage(t, conn)
	assert.Equal(t, msgFinalized, final.Type)
	require.NotNil(t, final.Result)
	assert.True(t, final.Result.Completed)
}

func TestTimerStreamCloseCancelsCountdown(t *testing.T) {
	e := newTestEnv(t, nil)
	tok := token(t, "user-1")
	resultID := e.openCounter(t, tok)

	conn := e.dial(t, resultID, tok)
	assert.Equal(t, msgState, readMessage(t, conn).Type)
	require.Equal(t, 1, e.tracker.Watching(resultID))

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return e.tracker.Watching(resultID) == 0 && e.clock.Tickers() == 0
	}, 2*time.Second, 10*time.Millisecond)

	// the attempt itself stays open
	stored, err := e.repo.GetResult(context.Background(), resultID)
	require.NoError(t, err)
	assert.False(t, stored.Completed)
}

func TestTimerStreamForCompletedResult(t *testing.T) {
	e := newTestEnv(t, nil)
	tok := token(t, "user-1")
	resultID := e.openCounter(t, tok)

	e.call(t, http.MethodPost, "/api/v1/results/"+resultID+"/submit", tok, map[string]interface{}{"submission": "done"})

	conn := e.dial(t, resultID, tok)
	final := readMessage(t, conn)
	assert.Equal(t, msgFinalized, final.Type)
	assert.True(t, final.Result.Completed)
}

func TestTimerStreamRejectsOtherUsers(t *testing.T) {
	e := newTestEnv(t, nil)
	resultID := e.openCounter(t, token(t, "user-1"))

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/api/v1/results/" + resultID + "/timer?token=" + token(t, "user-2")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTimerStreamReportsFailedSaveFromHTTP(t *testing.T) {
	e := newTestEnv(t, nil)
	tok := token(t, "user-1")
	resultID := e.openCounter(t, tok)

	conn := e.dial(t, resultID, tok)
	assert.Equal(t, msgState, readMessage(t, conn).Type)

	e.store.failComplete.Store(true)
	status, env := e.call(t, http.MethodPost, "/api/v1/results/"+resultID+"/submit", tok,
		map[string]interface{}{"submission": "answer"})
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "store_unavailable", env.Error.Code)

	msg := readMessage(t, conn)
	assert.Equal(t, msgError, msg.Type)
	assert.Nil(t, msg.Result)

	stored, err := e.repo.GetResult(context.Background(), resultID)
	require.NoError(t, err)
	assert.False(t, stored.Completed)

	// the attempt can still be submitted once the store recovers
	e.store.failComplete.Store(false)
	status, env = e.call(t, http.MethodPost, "/api/v1/results/"+resultID+"/submit", tok,
		map[string]interface{}{"submission": "answer"})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[attemptView](t, env).Finalized)
}

func TestDashboardIncludesNewlyOpenedAttempt(t *testing.T) {
	e := newTestEnv(t, nil)
	tok := token(t, "user-1")

	status, env := e.call(t, http.MethodGet, "/api/v1/dashboard", tok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[dashboard.Dashboard](t, env).History)

	resultID := e.openCounter(t, tok)

	status, env = e.call(t, http.MethodGet, "/api/v1/dashboard", tok, nil)
	require.Equal(t, http.StatusOK, status)
	d := decode[dashboard.Dashboard](t, env)
	require.Len(t, d.History, 1)
	assert.Equal(t, resultID, d.History[0].ID)
	assert.False(t, d.History[0].Completed)
}

func TestCORSCredentialsOnlyForListedOrigins(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	const origin = "https://app.example"

	tests := []struct {
		name      string
		origins   []string
		wantCreds string
	}{
		{"default wildcard", nil, ""},
		{"explicit wildcard", []string{"*"}, ""},
		{"listed origin", []string{origin}, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer(config.ServerConfig{AllowedOrigins: tt.origins}, Dependencies{Logger: logger})

			req := httptest.NewRequest(http.MethodOptions, "/api/v1/roles", nil)
			req.Header.Set("Origin", origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, req)

			assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, rec.Header().Get("Access-Control-Allow-Credentials"))
		})
	}
}
