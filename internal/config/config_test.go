package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/STARREPORTS/internal/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "starreports.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Backend != types.BackendFile {
		t.Errorf("Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Rewrite.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Rewrite.Timeout)
	}
	if cfg.Rewrite.Alerts != types.DefaultThresholds() {
		t.Errorf("Alerts = %+v", cfg.Rewrite.Alerts)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
storage:
  backend: sqlite
  path: /var/lib/starreports/state.db
  save_delay: 250ms
rewrite:
  timeout: 10s
  providers:
    openai:
      model: gpt-4o
nats:
  enabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.Backend != types.BackendSQLite || cfg.Storage.SaveDelay != 250*time.Millisecond {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Rewrite.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v", cfg.Rewrite.Timeout)
	}
	if cfg.Rewrite.Providers["openai"].Model != "gpt-4o" {
		t.Errorf("Providers = %+v", cfg.Rewrite.Providers)
	}
	if !cfg.NATS.Enabled || cfg.NATS.Port != 4222 {
		t.Errorf("NATS = %+v", cfg.NATS)
	}
	// untouched sections keep their defaults
	if cfg.Events.AuditPath != "data/audit.db" {
		t.Errorf("AuditPath = %q", cfg.Events.AuditPath)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "server: [1, 2"},
		{name: "unknown backend", content: "storage:\n  backend: redis\n"},
		{name: "empty path", content: "storage:\n  path: \"\"\n"},
		{name: "negative delay", content: "storage:\n  save_delay: -1s\n"},
		{name: "bad port", content: "server:\n  port: 70000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestAllowedOriginsFromEnv(t *testing.T) {
	t.Setenv(AllowedOriginsEnv, "https://school.example.com, http://office.local:8080,")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"https://school.example.com", "http://office.local:8080"}
	if len(cfg.Server.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins = %v, want %v", cfg.Server.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.Server.AllowedOrigins[i] != want[i] {
			t.Errorf("AllowedOrigins[%d] = %q, want %q", i, cfg.Server.AllowedOrigins[i], want[i])
		}
	}
}
