package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LJTian/DailyBriefing/internal/scheduler"
	"github.com/LJTian/DailyBriefing/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"
)

type fakeRunStore struct {
	runs      []storage.Run
	latest    *storage.Run
	err       error
	lastLimit int
}

func (f *fakeRunStore) ListRuns(ctx context.Context, limit int) ([]storage.Run, error) {
	f.lastLimit = limit
	return f.runs, f.err
}

func (f *fakeRunStore) LatestDelivered(ctx context.Context) (*storage.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.latest == nil {
		return nil, storage.ErrNotFound
	}
	return f.latest, nil
}

type fakeTrigger struct {
	err     error
	calls   int
	running bool
	next    time.Time
}

func (f *fakeTrigger) Trigger() error  { f.calls++; return f.err }
func (f *fakeTrigger) Running() bool   { return f.running }
func (f *fakeTrigger) Next() time.Time { return f.next }

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(store RunStore, trigger Trigger, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	NewServer(store, trigger).RegisterRoutes(r)
	return r
}

func do(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	next := time.Date(2026, 10, 20, 7, 30, 0, 0, time.UTC)
	r := newTestRouter(nil, &fakeTrigger{running: true, next: next})

	w := do(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	err := json.Unmarshal(w.Body.Bytes(), &body)
	assert.Equal(t, nil, err)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["running"])
	assert.Equal(t, "2026-10-20T07:30:00Z", body["nextRun"])
}

func TestListRuns(t *testing.T) {
	store := &fakeRunStore{runs: []storage.Run{
		{ID: 2, Status: storage.StatusDelivered},
		{ID: 1, Status: storage.StatusSkipped},
	}}
	r := newTestRouter(store, nil)

	w := do(r, http.MethodGet, "/api/v1/runs?limit=5")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, store.lastLimit)

	var env envelope
	err := json.Unmarshal(w.Body.Bytes(), &env)
	assert.Equal(t, nil, err)
	assert.Equal(t, "ok", env.Code)

	var runs []storage.Run
	err = json.Unmarshal(env.Data, &runs)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(runs))
	assert.Equal(t, uint(2), runs[0].ID)
}

func TestListRuns_BadLimitFallsBack(t *testing.T) {
	store := &fakeRunStore{}
	r := newTestRouter(store, nil)

	w := do(r, http.MethodGet, "/api/v1/runs?limit=abc")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, store.lastLimit)
}

func TestListRuns_StoreError(t *testing.T) {
	r := newTestRouter(&fakeRunStore{err: errors.New("db down")}, nil)

	w := do(r, http.MethodGet, "/api/v1/runs")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListRuns_ArchiveDisabled(t *testing.T) {
	r := newTestRouter(nil, nil)

	w := do(r, http.MethodGet, "/api/v1/runs")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestLatestRun(t *testing.T) {
	store := &fakeRunStore{latest: &storage.Run{ID: 7, Status: storage.StatusDelivered, Message: "## hi"}}
	r := newTestRouter(store, nil)

	w := do(r, http.MethodGet, "/api/v1/runs/latest")
	assert.Equal(t, http.StatusOK, w.Code)

	var env envelope
	err := json.Unmarshal(w.Body.Bytes(), &env)
	assert.Equal(t, nil, err)

	var run storage.Run
	err = json.Unmarshal(env.Data, &run)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint(7), run.ID)
	assert.Equal(t, "## hi", run.Message)
}

func TestLatestRun_NotFound(t *testing.T) {
	r := newTestRouter(&fakeRunStore{}, nil)

	w := do(r, http.MethodGet, "/api/v1/runs/latest")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTriggerRun(t *testing.T) {
	trig := &fakeTrigger{}
	r := newTestRouter(nil, trig)

	w := do(r, http.MethodPost, "/api/v1/runs")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, trig.calls)
}

func TestTriggerRun_Busy(t *testing.T) {
	r := newTestRouter(nil, &fakeTrigger{err: scheduler.ErrBusy})

	w := do(r, http.MethodPost, "/api/v1/runs")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTriggerRun_NoScheduler(t *testing.T) {
	r := newTestRouter(nil, nil)

	w := do(r, http.MethodPost, "/api/v1/runs")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestBasicAuth(t *testing.T) {
	r := newTestRouter(&fakeRunStore{}, nil, BasicAuth("admin", "secret"))

	w := do(r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/v1/runs")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Basic realm="Restricted"`, w.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	req.SetBasicAuth("admin", "wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	req.SetBasicAuth("admin", "secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
