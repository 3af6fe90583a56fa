package types

import "time"

// ProviderMetrics counts rewrite calls to one provider
type ProviderMetrics struct {
	Provider            string    `json:"provider"`
	Requests            int       `json:"requests"`
	Failures            int       `json:"failures"`
	RateLimited         int       `json:"rate_limited"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastLatencyMs       int64     `json:"last_latency_ms"`
	LastError           string    `json:"last_error,omitempty"`
	LastUpdated         time.Time `json:"last_updated"`
}

// MetricsSnapshot is a point-in-time copy of all provider metrics
type MetricsSnapshot struct {
	Timestamp time.Time                   `json:"timestamp"`
	Providers map[string]*ProviderMetrics `json:"providers"`
}

// AlertThresholds for rewrite provider alerts. Zero disables a check.
type AlertThresholds struct {
	ConsecutiveFailuresMax int `yaml:"consecutive_failures_max" json:"consecutive_failures_max"`
	RateLimitedMax         int `yaml:"rate_limited_max" json:"rate_limited_max"`
}

// DefaultThresholds returns the thresholds used when none are configured
func DefaultThresholds() AlertThresholds {
	return AlertThresholds{
		ConsecutiveFailuresMax: 3,
		RateLimitedMax:         10,
	}
}

// Alert raised when a provider crosses a threshold
type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Provider  string    `json:"provider"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
}
