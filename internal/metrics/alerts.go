package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/STARREPORTS/internal/types"
	"github.com/google/uuid"
)

// alertWindow suppresses repeats of the same alert
const alertWindow = 5 * time.Minute

// AlertEngine checks provider metrics against thresholds
type AlertEngine interface {
	SetThresholds(thresholds types.AlertThresholds)
	GetThresholds() types.AlertThresholds
	CheckProvider(m *types.ProviderMetrics) []*types.Alert
}

// AlertChecker implements AlertEngine
type AlertChecker struct {
	mu         sync.RWMutex
	thresholds types.AlertThresholds
	// Track alerts to avoid duplicates
	recentAlerts map[string]time.Time
	now          func() time.Time
}

// NewAlertEngine creates a new alert engine
func NewAlertEngine(thresholds types.AlertThresholds) *AlertChecker {
	return &AlertChecker{
		thresholds:   thresholds,
		recentAlerts: make(map[string]time.Time),
		now:          time.Now,
	}
}

// SetThresholds updates alert thresholds
func (a *AlertChecker) SetThresholds(thresholds types.AlertThresholds) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.thresholds = thresholds
}

// GetThresholds returns current thresholds
func (a *AlertChecker) GetThresholds() types.AlertThresholds {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.thresholds
}

// shouldAlert reports whether key has not alerted within alertWindow
func (a *AlertChecker) shouldAlert(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	for k, t := range a.recentAlerts {
		if now.Sub(t) > alertWindow {
			delete(a.recentAlerts, k)
		}
	}
	if _, exists := a.recentAlerts[key]; exists {
		return false
	}
	a.recentAlerts[key] = now
	return true
}

// CheckProvider returns the alerts m triggers
func (a *AlertChecker) CheckProvider(m *types.ProviderMetrics) []*types.Alert {
	if m == nil {
		return nil
	}
	thresholds := a.GetThresholds()
	var alerts []*types.Alert

	if thresholds.ConsecutiveFailuresMax > 0 && m.ConsecutiveFailures >= thresholds.ConsecutiveFailuresMax {
		if a.shouldAlert("failures_" + m.Provider) {
			alerts = append(alerts, a.alert("consecutive_failures", m.Provider, "critical",
				fmt.Sprintf("AI rewrites via %s failed %d times in a row: %s", m.Provider, m.ConsecutiveFailures, m.LastError)))
		}
	}

	if thresholds.RateLimitedMax > 0 && m.RateLimited >= thresholds.RateLimitedMax {
		if a.shouldAlert("rate_limited_" + m.Provider) {
			alerts = append(alerts, a.alert("rate_limited", m.Provider, "warning",
				fmt.Sprintf("AI provider %s rate limited %d requests (threshold: %d)", m.Provider, m.RateLimited, thresholds.RateLimitedMax)))
		}
	}

	return alerts
}

func (a *AlertChecker) alert(kind, provider, severity, message string) *types.Alert {
	return &types.Alert{
		ID:        uuid.New().String(),
		Type:      kind,
		Provider:  provider,
		Message:   message,
		Severity:  severity,
		CreatedAt: a.now(),
	}
}
