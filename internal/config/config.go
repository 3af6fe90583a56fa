package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/STARREPORTS/internal/types"
	"gopkg.in/yaml.v3"
)

// AllowedOriginsEnv adds comma-separated browser origins to the config
const AllowedOriginsEnv = "STARREPORTS_ALLOWED_ORIGINS"

// Default returns the configuration used when no file is present
func Default() *types.Config {
	return &types.Config{
		Server: types.ServerConfig{
			Port:          8080,
			PublicBaseURL: "http://localhost:8080",
		},
		Storage: types.StorageConfig{
			Backend: types.BackendFile,
			Path:    "data/state.json",
		},
		Rewrite: types.RewriteConfig{
			Timeout: 30 * time.Second,
			Alerts:  types.DefaultThresholds(),
		},
		NATS: types.NATSConfig{
			Port:    4222,
			DataDir: "data/nats",
		},
		Events: types.EventsConfig{
			AuditPath: "data/audit.db",
			Retention: 90 * 24 * time.Hour,
		},
		Notifications: types.NotificationsConfig{
			AppID:       "StarReports",
			EnableToast: true,
		},
	}
}

// Load reads the YAML config at path over the defaults. A missing file
// yields the defaults.
func Load(path string) (*types.Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	if err := check(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *types.Config) {
	if v := os.Getenv(AllowedOriginsEnv); v != "" {
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.Server.AllowedOrigins = append(cfg.Server.AllowedOrigins, origin)
			}
		}
	}
}

func check(cfg *types.Config) error {
	switch cfg.Storage.Backend {
	case types.BackendFile, types.BackendSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}
	if cfg.Storage.SaveDelay < 0 {
		return fmt.Errorf("storage save_delay must not be negative")
	}
	if cfg.Rewrite.Alerts.ConsecutiveFailuresMax < 0 || cfg.Rewrite.Alerts.RateLimitedMax < 0 {
		return fmt.Errorf("rewrite alert thresholds must not be negative")
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	return nil
}
