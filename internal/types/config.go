package types

import "time"

// Config loaded from starreports.yaml
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Rewrite       RewriteConfig       `yaml:"rewrite"`
	NATS          NATSConfig          `yaml:"nats"`
	Events        EventsConfig        `yaml:"events"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// ServerConfig for the HTTP API
type ServerConfig struct {
	Port           int      `yaml:"port"`
	PublicBaseURL  string   `yaml:"public_base_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Storage backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// StorageConfig selects where the state snapshot is written
type StorageConfig struct {
	Backend   string        `yaml:"backend"` // "file" or "sqlite"
	Path      string        `yaml:"path"`
	SaveDelay time.Duration `yaml:"save_delay"` // 0 = save right after each mutation
}

// ProviderConfig describes one upstream text model
type ProviderConfig struct {
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// RewriteConfig for the rewrite gateway
type RewriteConfig struct {
	Timeout   time.Duration             `yaml:"timeout"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Alerts    AlertThresholds           `yaml:"alerts"`
}

// NATSConfig for the embedded change-event broker
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
}

// EventsConfig for the change audit log
type EventsConfig struct {
	AuditPath string        `yaml:"audit_path"` // empty disables the audit log
	Retention time.Duration `yaml:"retention"`
}

// NotificationsConfig for operator warnings
type NotificationsConfig struct {
	AppID       string `yaml:"app_id"`
	EnableToast bool   `yaml:"enable_toast"`
}

// WebSocket message envelope
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// WebSocket message type constants
const (
	WSTypeStateUpdate = "state_update"
	WSTypeBanner      = "banner"
	WSTypeRewrite     = "rewrite_staged"
)
