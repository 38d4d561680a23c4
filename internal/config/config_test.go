package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
listen:
  port: 9090
  bind: 0.0.0.0
  api_key: console-key

upstream:
  base_url: https://api.example.com
  api_key: upstream-key
  timeout: 5s

grid:
  page_size: 10
  search_debounce: 300ms
  notify_duration: 4s

entities:
  datasources:
    query_op: "5"
    update_op: "21"
    page_size: 20
    status_param: activeStatus
    status_codes:
      active: 1
      inactive: 2
      both: 3
`
	path := writeTemp(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Listen.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Listen.Port)
	}
	if cfg.Listen.Addr() != "0.0.0.0:9090" {
		t.Errorf("expected addr 0.0.0.0:9090, got %s", cfg.Listen.Addr())
	}
	if cfg.Upstream.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Upstream.Timeout)
	}
	if cfg.Grid.SearchDebounce != 300*time.Millisecond {
		t.Errorf("expected debounce 300ms, got %v", cfg.Grid.SearchDebounce)
	}

	ec, ok := cfg.Entities["datasources"]
	if !ok {
		t.Fatal("datasources not found")
	}
	if ec.QueryOp != "5" {
		t.Errorf("expected query_op 5, got %s", ec.QueryOp)
	}
	if ec.EffectivePageSize(cfg.Grid) != 20 {
		t.Errorf("expected page size 20, got %d", ec.EffectivePageSize(cfg.Grid))
	}
	if ec.StatusCodes == nil || ec.StatusCodes.Both != 3 {
		t.Errorf("expected both code 3, got %+v", ec.StatusCodes)
	}
}

func TestLoadEnvSubstitution(t *testing.T) {
	os.Setenv("TEST_UPSTREAM_KEY", "secret123")
	defer os.Unsetenv("TEST_UPSTREAM_KEY")

	yaml := `
upstream:
  base_url: http://localhost:9000
  api_key: ${TEST_UPSTREAM_KEY}
`
	path := writeTemp(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Upstream.APIKey != "secret123" {
		t.Errorf("expected api key secret123, got %s", cfg.Upstream.APIKey)
	}
	if r := cfg.Redacted(); r.Upstream.APIKey == "secret123" {
		t.Error("expected redacted api key")
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "bad scheme",
			yaml: `
upstream:
  base_url: ftp://example.com
`,
		},
		{
			name: "url and fixture",
			yaml: `
upstream:
  base_url: http://example.com
  demo_fixture: demo.yaml
`,
		},
		{
			name: "zero entity page size",
			yaml: `
entities:
  datasets:
    page_size: 0
`,
		},
		{
			name: "codes without param",
			yaml: `
entities:
  datasets:
    status_codes:
      active: 1
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, tt.yaml)
			_, err := Load(path)
			if err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	yaml := `
entities: {}
`
	path := writeTemp(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Listen.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Listen.Port)
	}
	if cfg.Listen.Bind != "127.0.0.1" {
		t.Errorf("expected default bind 127.0.0.1, got %s", cfg.Listen.Bind)
	}
	if cfg.Listen.SessionIdleTimeout != 30*time.Minute {
		t.Errorf("expected default session idle timeout 30m, got %v", cfg.Listen.SessionIdleTimeout)
	}
	if cfg.Grid.PageSize != 5 {
		t.Errorf("expected default page size 5, got %d", cfg.Grid.PageSize)
	}
	if cfg.Grid.SearchDebounce != 250*time.Millisecond {
		t.Errorf("expected default debounce 250ms, got %v", cfg.Grid.SearchDebounce)
	}
	if cfg.Grid.NotifyDuration != 3*time.Second {
		t.Errorf("expected default notify duration 3s, got %v", cfg.Grid.NotifyDuration)
	}
	if cfg.Lookups.PageSize != 100 {
		t.Errorf("expected default lookup page size 100, got %d", cfg.Lookups.PageSize)
	}
}

func TestEntityEffectivePageSize(t *testing.T) {
	grid := GridConfig{PageSize: 5}

	if (EntityConfig{}).EffectivePageSize(grid) != 5 {
		t.Error("expected default page size")
	}
	size := 25
	if (EntityConfig{PageSize: &size}).EffectivePageSize(grid) != 25 {
		t.Error("expected overridden page size of 25")
	}
}

func TestWatcherReloads(t *testing.T) {
	path := writeTemp(t, "grid:\n  page_size: 5\n")

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("grid:\n  page_size: 15\n"), 0644); err != nil {
		t.Fatalf("rewriting config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Grid.PageSize != 15 {
			t.Errorf("expected page size 15 after reload, got %d", cfg.Grid.PageSize)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}
