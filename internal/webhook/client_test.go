package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/torquehq/torque/internal/task"
)

func newTestTask(url string) *task.Task {
	return &task.Task{
		ID:      "t1",
		URL:     url,
		Body:    []byte(`{"hello":"world"}`),
		Headers: map[string]string{"X-Custom": "value"},
		Timeout: 2 * time.Second,
	}
}

func TestDeliver_200IsCompleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "value", r.Header.Get("X-Custom"))
		assert.Equal(t, "t1", r.Header.Get("X-Task-Id"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"hello":"world"}`, string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New()
	result := c.Deliver(context.Background(), newTestTask(srv.URL))

	assert.Equal(t, task.OutcomeCompleted, result.Outcome)
	require.NotNil(t, result.StatusCode)
	assert.Equal(t, 200, *result.StatusCode)
}

func TestDeliver_4xxIsFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New()
	result := c.Deliver(context.Background(), newTestTask(srv.URL))

	assert.Equal(t, task.OutcomeFailed, result.Outcome)
}

func TestDeliver_5xxIsRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New()
	result := c.Deliver(context.Background(), newTestTask(srv.URL))

	assert.Equal(t, task.OutcomeRetry, result.Outcome)
}

func TestDeliver_ConnectionRefusedIsRetry(t *testing.T) {
	c := New()
	result := c.Deliver(context.Background(), newTestTask("http://127.0.0.1:1"))

	assert.Equal(t, task.OutcomeRetry, result.Outcome)
	assert.Nil(t, result.StatusCode)
}

func TestDeliver_RedirectExhaustionIsRetry(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/next", http.StatusFound)
	}))
	defer srv.Close()

	c := New()
	result := c.Deliver(context.Background(), newTestTask(srv.URL))

	assert.Equal(t, task.OutcomeRetry, result.Outcome)
}

func TestDeliver_TimeoutIsRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tk := newTestTask(srv.URL)
	tk.Timeout = 10 * time.Millisecond

	c := New()
	result := c.Deliver(context.Background(), tk)

	assert.Equal(t, task.OutcomeRetry, result.Outcome)
}
