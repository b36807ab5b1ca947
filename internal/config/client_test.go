// ABOUTME: Tests for sitever-check client configuration loading
// ABOUTME: Covers TOML parsing, duration defaults, and notification defaults

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/2389/sitever/internal/monitor"
)

func TestLoadClient_Valid(t *testing.T) {
	t.Setenv("SITEVER_TEST_HOME", "/home/site")
	path := writeConfig(t, "check.toml", `
[monitor]
api_endpoint = "http://localhost:3000/api/version/check"
show_notification = false
auto_reload_delay = "8s"
show_delay = "250ms"
debug = true

[page]
url = "http://localhost:3000/"
worker_script = "/sw.js"

[storage]
state_path = "${SITEVER_TEST_HOME}/client.db"
cache_dir = "${SITEVER_TEST_HOME}/cache"

[logging]
level = "debug"
`)

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}

	if cfg.Monitor.Notify() {
		t.Error("Monitor.Notify() = true, want false")
	}
	if cfg.Monitor.AutoReloadDelay != 8*time.Second {
		t.Errorf("AutoReloadDelay = %v, want 8s", cfg.Monitor.AutoReloadDelay)
	}
	if cfg.Monitor.ShowDelay != 250*time.Millisecond {
		t.Errorf("ShowDelay = %v, want 250ms", cfg.Monitor.ShowDelay)
	}
	if !cfg.Monitor.Debug {
		t.Error("Monitor.Debug = false, want true")
	}
	if cfg.Storage.StatePath != "/home/site/client.db" {
		t.Errorf("Storage.StatePath = %q, want expanded path", cfg.Storage.StatePath)
	}
	if cfg.Page.URL != "http://localhost:3000/" {
		t.Errorf("Page.URL = %q", cfg.Page.URL)
	}
	if cfg.Page.WorkerScript != "/sw.js" {
		t.Errorf("Page.WorkerScript = %q", cfg.Page.WorkerScript)
	}
}

func TestLoadClient_Defaults(t *testing.T) {
	path := writeConfig(t, "check.toml", `
[monitor]
api_endpoint = "http://localhost:3000/api/version/check"

[storage]
state_path = "/tmp/client.db"
`)

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatalf("LoadClient() error = %v", err)
	}

	if !cfg.Monitor.Notify() {
		t.Error("Monitor.Notify() = false, want true by default")
	}
	if cfg.Monitor.AutoReloadDelay != DefaultAutoReloadDelay {
		t.Errorf("AutoReloadDelay = %v, want %v", cfg.Monitor.AutoReloadDelay, DefaultAutoReloadDelay)
	}
	if cfg.Monitor.ShowDelay != DefaultShowDelay {
		t.Errorf("ShowDelay = %v, want %v", cfg.Monitor.ShowDelay, DefaultShowDelay)
	}
	if want := monitor.DefaultConfig(); cfg.Monitor.AutoReloadDelay != want.AutoReloadDelay || cfg.Monitor.ShowDelay != want.ShowDelay {
		t.Errorf("client defaults %v/%v differ from monitor defaults %v/%v",
			cfg.Monitor.AutoReloadDelay, cfg.Monitor.ShowDelay, want.AutoReloadDelay, want.ShowDelay)
	}
}

func TestLoadClient_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "check.toml", `
[monitor]
api_endpoint = "http://localhost:3000/api/version/check"
auto_reload_delay = "soon"

[storage]
state_path = "/tmp/client.db"
`)

	_, err := LoadClient(path)
	if err == nil || !strings.Contains(err.Error(), "auto_reload_delay") {
		t.Errorf("LoadClient() error = %v, want auto_reload_delay error", err)
	}
}

func TestLoadClient_RelativeEndpoint(t *testing.T) {
	path := writeConfig(t, "check.toml", `
[monitor]
api_endpoint = "/api/version/check"

[storage]
state_path = "/tmp/client.db"
`)

	_, err := LoadClient(path)
	if err == nil || !strings.Contains(err.Error(), "absolute URL") {
		t.Errorf("LoadClient() error = %v, want absolute URL error", err)
	}
}
