// ABOUTME: Lifecycle tests for the version server
// ABOUTME: Runs a real TCP listener over a file-backed store and shuts it down via context

package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/sitever/internal/versionstore"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestNew_OpensConfiguredStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "version.json")
	fs, err := versionstore.NewFileStore(path, versionstore.FileOptions{})
	require.NoError(t, err)
	require.NoError(t, fs.Save(context.Background(), versionstore.NewRecord("2.1.0", time.Now())))
	require.NoError(t, fs.Close())

	cfg := testConfig()
	cfg.Store.Path = path
	s, err := New(cfg, nil)
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	info, err := s.Service().GetVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", info.Version)
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Driver = "postgres"

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestRun_ServesUntilCanceled(t *testing.T) {
	cfg := testConfig()
	cfg.Server.HTTPAddr = freeAddr(t)
	store := versionstore.NewMockStore(testRecord("1.0.0"))
	s := NewWithStore(cfg, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	url := "http://" + cfg.Server.HTTPAddr + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && string(body) == "OK"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRun_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	cfg.Server.HTTPAddr = ln.Addr().String()
	s := NewWithStore(cfg, versionstore.NewMockStore(nil), nil)

	err = s.Run(context.Background())
	assert.Error(t, err)
}

func TestResolveTailscaleAuthKey(t *testing.T) {
	t.Setenv("TS_AUTHKEY", "")
	_, err := resolveTailscaleAuthKey("")
	assert.Error(t, err)

	key, err := resolveTailscaleAuthKey("tskey-config")
	require.NoError(t, err)
	assert.Equal(t, "tskey-config", key)

	t.Setenv("TS_AUTHKEY", "tskey-env")
	key, err = resolveTailscaleAuthKey("")
	require.NoError(t, err)
	assert.Equal(t, "tskey-env", key)
}

func TestResolveTailscaleStateDir(t *testing.T) {
	dir, err := resolveTailscaleStateDir("/var/lib/sitever/ts")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/sitever/ts", dir)

	dir, err = resolveTailscaleStateDir("")
	require.NoError(t, err)
	assert.Contains(t, dir, filepath.Join("sitever", "tailscale"))
}
