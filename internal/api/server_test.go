package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torquehq/torque/internal/bus"
	"github.com/torquehq/torque/internal/config"
	"github.com/torquehq/torque/internal/dispatcher"
	"github.com/torquehq/torque/internal/store/memstore"
	"github.com/torquehq/torque/internal/task"
)

func testServer() *Server {
	st := memstore.New()
	b := bus.NewLocalBus()
	disp := dispatcher.New(st, b, task.Defaults{
		Timeout:       5 * 1e9,
		BackoffPolicy: task.BackoffExponential,
		BackoffBase:   1e9,
		BackoffMax:    60 * 1e9,
	})
	cfg := &config.Config{}
	cfg.Metrics.Enabled = false
	return NewServer(st, disp, nil, nil, cfg)
}

func TestHandleEnqueue_MissingURL(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()

	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEnqueue_RelativeURLRejected(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodPost, "/?url=/not-absolute", strings.NewReader("hello"))
	w := httptest.NewRecorder()

	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleEnqueue_PersistsAndReturnsID(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodPost, "/?url=https://example.com/hook", strings.NewReader("hello"))
	w := httptest.NewRecorder()

	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id"`)
}

func TestHandleGet_UnknownReturns404(t *testing.T) {
	s := testServer()
	req := httptest.NewRequest(http.MethodGet, "/tasks/does-not-exist", nil)
	w := httptest.NewRecorder()

	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDelete_TwiceReturns404Second(t *testing.T) {
	s := testServer()

	enqueueReq := httptest.NewRequest(http.MethodPost, "/?url=https://example.com/hook", strings.NewReader("x"))
	enqueueW := httptest.NewRecorder()
	s.Router().ServeHTTP(enqueueW, enqueueReq)
	require.Equal(t, http.StatusOK, enqueueW.Code)

	ids, err := s.store.SelectDue(req(t).Context(), 10)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	id := ids[0]

	w1 := httptest.NewRecorder()
	s.Router().ServeHTTP(w1, httptest.NewRequest(http.MethodDelete, "/tasks/"+id, nil))
	assert.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	s.Router().ServeHTTP(w2, httptest.NewRequest(http.MethodDelete, "/tasks/"+id, nil))
	assert.Equal(t, http.StatusNotFound, w2.Code)
}

func TestHandleStats_ReflectsDeleteAll(t *testing.T) {
	s := testServer()
	s.Router().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/?url=https://example.com/hook", strings.NewReader("x")))

	wDel := httptest.NewRecorder()
	s.Router().ServeHTTP(wDel, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusOK, wDel.Code)

	wStats := httptest.NewRecorder()
	s.Router().ServeHTTP(wStats, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, wStats.Code)
	assert.Contains(t, wStats.Body.String(), `"pending":0`)
}

func TestRouter_HSTSHeaderOnlyWhenEnabled(t *testing.T) {
	s := testServer()
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/health", nil))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	st := memstore.New()
	b := bus.NewLocalBus()
	disp := dispatcher.New(st, b, task.Defaults{Timeout: 5 * 1e9, BackoffPolicy: task.BackoffExponential, BackoffBase: 1e9, BackoffMax: 60 * 1e9})
	cfg := &config.Config{}
	cfg.Metrics.Enabled = false
	cfg.Server.EnableHSTS = true
	hstsServer := NewServer(st, disp, nil, nil, cfg)

	w2 := httptest.NewRecorder()
	hstsServer.Router().ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/admin/health", nil))
	assert.Equal(t, "max-age=31536000; includeSubDomains", w2.Header().Get("Strict-Transport-Security"))
}

func TestHandleHealth(t *testing.T) {
	s := testServer()
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleWorkers_NoRedisReturnsEmptyList(t *testing.T) {
	s := testServer()
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/workers", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func req(t *testing.T) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodGet, "/", nil)
}
