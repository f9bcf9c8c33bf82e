package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobtrack/application-tracker/internal/config"
	"github.com/jobtrack/application-tracker/internal/models"
)

func newTestSource(url string, retries int) *HTTPSource {
	s := NewHTTPSource(config.DashboardConfig{
		APIEndpoint: url,
		Timeout:     5 * time.Second,
		RetryCount:  retries,
		Token:       "tok",
	})
	s.backoff = func(int) time.Duration { return time.Millisecond }
	return s
}

func TestHTTPSource_fetchOnce(t *testing.T) {
	testApps := []models.Application{
		{ID: 1, Company: "Acme", Position: "SRE", Date: "2025-01-02"},
		{ID: 2, Company: "Globex", Position: "Dev", Date: "2025-01-01"},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(testApps)
	}))
	defer server.Close()

	apps, err := newTestSource(server.URL, 3).fetchOnce(context.Background())

	require.NoError(t, err)
	assert.Len(t, apps, 2)
	assert.Equal(t, "Acme", apps[0].Company)
}

func TestHTTPSource_fetchOnce_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	apps, err := newTestSource(server.URL, 3).fetchOnce(context.Background())

	assert.Error(t, err)
	assert.Nil(t, apps)
	assert.Contains(t, err.Error(), "API returned status 500")
}

func TestHTTPSource_fetchOnce_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	apps, err := newTestSource(server.URL, 3).fetchOnce(context.Background())

	assert.Error(t, err)
	assert.Nil(t, apps)
	assert.Contains(t, err.Error(), "failed to unmarshal response")
}

func TestHTTPSource_fetchOnce_EmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	}))
	defer server.Close()

	apps, err := newTestSource(server.URL, 1).fetchOnce(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, apps)
	assert.Empty(t, apps)
}

func TestHTTPSource_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"id":7,"company":"Initech"}]`))
	}))
	defer server.Close()

	apps, err := newTestSource(server.URL, 3).ListApplications(context.Background())

	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, int64(7), apps[0].ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPSource_GivesUp(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestSource(server.URL, 2).ListApplications(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUpstreamUnavailable))
	assert.Contains(t, err.Error(), "failed after 2 attempts")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPSource_CanceledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s := newTestSource(server.URL, 5)
	s.backoff = func(int) time.Duration { return time.Hour }
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.ListApplications(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
