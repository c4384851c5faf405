package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/depupdater/internal/deps"
	"github.com/simplesurance/depupdater/internal/retry"
	"github.com/simplesurance/depupdater/internal/updateerr"
)

func newTestClient(t *testing.T, creds deps.Credentials) *Client {
	t.Helper()

	r := retry.NewRetryer()
	t.Cleanup(r.Stop)

	return New(creds, r)
}

func TestGetJSON(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/versions/rails.json", r.URL.Path)
		_, _ = w.Write([]byte(`[{"number": "7.1.0"}]`))
	}))
	t.Cleanup(srv.Close)

	var result []struct {
		Number string `json:"number"`
	}

	err := newTestClient(t, nil).GetJSON(context.Background(), srv.URL+"/api/v1/versions/rails.json", &result)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "7.1.0", result[0].Number)
}

func TestGetNotFound(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	_, err := newTestClient(t, nil).Get(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRetriesServerErrors(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	body, err := newTestClient(t, nil).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.EqualValues(t, 2, calls.Load())
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	_, err := newTestClient(t, nil).Get(context.Background(), srv.URL)
	require.Error(t, err)

	var retryErr *updateerr.RetryableError
	assert.False(t, errors.As(err, &retryErr))
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetAuthenticatesWithHostCredentials(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "bot" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		_, _ = w.Write([]byte("{}"))
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	clt := newTestClient(t, deps.Credentials{
		{Type: "rubygems_server", Host: "example.com", Username: "other", Password: "x"},
		{Type: "rubygems_server", Host: u.Hostname(), Username: "bot", Password: "secret"},
	})

	var v map[string]any
	require.NoError(t, clt.GetJSON(context.Background(), srv.URL, &v))
}

func TestRetryAfter(t *testing.T) {
	assert.True(t, retryAfter("").IsZero())
	assert.True(t, retryAfter("soon").IsZero())

	after := retryAfter("30")
	assert.WithinDuration(t, time.Now().Add(30*time.Second), after, 5*time.Second)
}
