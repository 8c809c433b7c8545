package torqueclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueue_ReturnsID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "https://example.com/hook", r.URL.Query().Get("url"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "abc-123"})
	}))
	defer srv.Close()

	c := New(srv.URL, WithBearerToken("tok"))
	id, err := c.Enqueue(context.Background(), "https://example.com/hook", []byte("payload"), nil)

	require.NoError(t, err)
	assert.Equal(t, "abc-123", id)
}

func TestEnqueue_ErrorResponseSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "task already exists"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Enqueue(context.Background(), "https://example.com/hook", nil, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "task already exists")
}

func TestGet_DecodesTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tasks/abc-123", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(Task{ID: "abc-123", URL: "https://example.com", Status: "pending"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	task, err := c.Get(context.Background(), "abc-123")

	require.NoError(t, err)
	assert.Equal(t, "abc-123", task.ID)
	assert.Equal(t, "pending", task.Status)
}

func TestGet_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "task not found"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Get(context.Background(), "missing")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "task not found")
}

func TestStats_DecodesCounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stats", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Stats{Pending: 3, Executing: 1})
	}))
	defer srv.Close()

	c := New(srv.URL)
	stats, err := c.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Pending)
	assert.Equal(t, int64(1), stats.Executing)
}

func TestHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL)
	ok, err := c.Healthy(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteAll_ReturnsCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		_ = json.NewEncoder(w).Encode(map[string]int64{"deleted": 7})
	}))
	defer srv.Close()

	c := New(srv.URL)
	n, err := c.DeleteAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
