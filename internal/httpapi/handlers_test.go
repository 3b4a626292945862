package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"momo/internal/eventbus"
	"momo/internal/executor"
	"momo/internal/ledger"
	"momo/internal/model"
	"momo/internal/schedule"
	"momo/internal/store"
)

func newTestServer(t *testing.T) (*http.Server, *HandlerRegistry) {
	t.Helper()

	s := store.NewMemoryStore()
	l := ledger.NewMemoryLedger()
	require.NoError(t, l.AddSchedule(context.Background(), "sched-1", "main"))

	exec := executor.New(s, l, eventbus.NoopPublisher{}, "sched-1", zap.NewNop())
	sched := schedule.New("sched-1", s, l, exec, zap.NewNop())

	registry := NewHandlerRegistry()
	registry.Register("noop", func(context.Context, model.Job) error { return nil })

	return NewServer(zap.NewNop(), sched, registry), registry
}

func TestCreateJob_ValidRequestReturnsCreated(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"name":"j","interval":"one minute","concurrency":1,"handlerName":"noop"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp jobResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "j", resp.Name)
}

func TestCreateJob_UnknownHandlerNameIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"name":"j","interval":"one minute","concurrency":1,"handlerName":"ghost"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateJob_UnparsableIntervalIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"name":"j","interval":"every blue moon","concurrency":1,"handlerName":"noop"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJob_MissingReturnsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/ghost", nil)
	rec := httptest.NewRecorder()

	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunJob_ReturnsOutcome(t *testing.T) {
	srv, _ := newTestServer(t)

	createBody := `{"name":"j","interval":"one minute","concurrency":1,"handlerName":"noop"}`
	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(createBody))
	createReq.Header.Set("Content-Type", "application/json")
	createRec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(createRec, createReq)
	require.Equal(t, http.StatusCreated, createRec.Code)

	runReq := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/j/run", nil)
	runRec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(runRec, runReq)

	require.Equal(t, http.StatusOK, runRec.Code)

	var resp runResultResponse
	require.NoError(t, json.Unmarshal(runRec.Body.Bytes(), &resp))
	assert.Equal(t, model.OutcomeFinished, resp.Status)
}

func TestHealthz_ReturnsOK(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
