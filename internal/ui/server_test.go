package ui

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/testutil"
)

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = testutil.NewTestLogger(t)
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "test-secret-key-32-bytes-long!!"
	}
	s := NewServer(cfg)
	handler, err := s.Handler()
	require.NoError(t, err)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	t.Cleanup(s.Sessions().Close)
	return s, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestServer_Routes(t *testing.T) {
	backend := testutil.NewBackend(t, 20)
	_, ts := newTestServer(t, Config{Client: api.New(api.WithBaseURL(backend.URL()))})

	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	resp, body = get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<title>Box Scores - leapstats</title>")
	assert.NotEmpty(t, resp.Cookies())

	resp, body = get(t, ts.URL+"/static/app.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ".pager")

	resp, _ = get(t, ts.URL+"/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_SessionsBoundToCookie(t *testing.T) {
	backend := testutil.NewBackend(t, 20)
	s, ts := newTestServer(t, Config{Client: api.New(api.WithBaseURL(backend.URL()))})

	resp, _ := get(t, ts.URL+"/")
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	require.NoError(t, err)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp2.Body.Close()

	assert.Empty(t, resp2.Cookies())
	assert.Equal(t, 1, s.Sessions().Len())
}

func TestServer_NewSessionsUseReloadedBackend(t *testing.T) {
	first := api.New(api.WithBaseURL("http://first.invalid"))
	second := api.New(api.WithBaseURL("http://second.invalid"))

	var reloads atomic.Int32
	s, _ := newTestServer(t, Config{
		Client: first,
		Reload: func() (*api.Client, error) {
			reloads.Add(1)
			return second, nil
		},
	})

	assert.Same(t, first, s.Backend())
	s.reloadBackend()
	assert.Same(t, second, s.Backend())
	assert.Equal(t, int32(1), reloads.Load())
}

func TestServer_WatchConfigReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leapstats.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend_url: http://a.invalid\n"), 0o600))

	var reloads atomic.Int32
	s := NewServer(Config{
		Logger:     testutil.NewTestLogger(t),
		Watch:      true,
		ConfigPath: path,
		Reload: func() (*api.Client, error) {
			reloads.Add(1)
			return api.New(api.WithBaseURL("http://b.invalid")), nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.watchConfig(ctx) }()

	// Unrelated files in the same directory are ignored.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600)
		_ = os.WriteFile(path, []byte("backend_url: http://b.invalid\n"), 0o600)
		return reloads.Load() > 0
	}, 2*time.Second, 50*time.Millisecond)
	assert.Equal(t, "http://b.invalid", s.Backend().BaseURL)

	cancel()
	require.NoError(t, <-done)
}

func TestServer_ServeShutsDownOnCancel(t *testing.T) {
	s := NewServer(Config{Logger: testutil.NewTestLogger(t), SessionSecret: "test-secret-key-32-bytes-long!!"})

	urls := make(chan string, 1)
	s.onListen = func(url string) { urls <- url }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	var url string
	select {
	case url = <-urls:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}

	resp, body := get(t, url+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
