package metrics

import (
	"sync"
	"time"

	"github.com/STARREPORTS/internal/types"
)

// Collector aggregates rewrite outcomes per provider
type Collector interface {
	Record(provider string, latency time.Duration, err error, rateLimited bool) *types.ProviderMetrics
	GetProviderMetrics(provider string) *types.ProviderMetrics
	GetAllMetrics() map[string]*types.ProviderMetrics
	TakeSnapshot() types.MetricsSnapshot
	GetHistory() []types.MetricsSnapshot
	ResetHistory()
}

// MetricsCollector implements Collector
type MetricsCollector struct {
	mu         sync.RWMutex
	metrics    map[string]*types.ProviderMetrics
	history    []types.MetricsSnapshot
	maxHistory int
}

// NewCollector creates a new metrics collector
func NewCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics:    make(map[string]*types.ProviderMetrics),
		history:    []types.MetricsSnapshot{},
		maxHistory: 1000,
	}
}

// Record counts one rewrite call and returns a copy of the provider's
// updated metrics
func (c *MetricsCollector) Record(provider string, latency time.Duration, err error, rateLimited bool) *types.ProviderMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.metrics[provider]
	if m == nil {
		m = &types.ProviderMetrics{Provider: provider}
		c.metrics[provider] = m
	}

	m.Requests++
	m.LastLatencyMs = latency.Milliseconds()
	m.LastUpdated = time.Now()
	if err != nil {
		m.Failures++
		m.ConsecutiveFailures++
		m.LastError = err.Error()
		if rateLimited {
			m.RateLimited++
		}
	} else {
		m.ConsecutiveFailures = 0
	}

	copy := *m
	return &copy
}

// GetProviderMetrics returns metrics for one provider
func (c *MetricsCollector) GetProviderMetrics(provider string) *types.ProviderMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if m, ok := c.metrics[provider]; ok {
		copy := *m
		return &copy
	}
	return nil
}

// GetAllMetrics returns all provider metrics
func (c *MetricsCollector) GetAllMetrics() map[string]*types.ProviderMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*types.ProviderMetrics)
	for k, v := range c.metrics {
		copy := *v
		result[k] = &copy
	}
	return result
}

// TakeSnapshot captures current metrics and appends them to the history
func (c *MetricsCollector) TakeSnapshot() types.MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := types.MetricsSnapshot{
		Timestamp: time.Now(),
		Providers: make(map[string]*types.ProviderMetrics),
	}
	for k, v := range c.metrics {
		copy := *v
		snapshot.Providers[k] = &copy
	}

	c.history = append(c.history, snapshot)
	if len(c.history) > c.maxHistory {
		c.history = c.history[len(c.history)-c.maxHistory:]
	}
	return snapshot
}

// GetHistory returns metrics history
func (c *MetricsCollector) GetHistory() []types.MetricsSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]types.MetricsSnapshot, len(c.history))
	copy(result, c.history)
	return result
}

// ResetHistory clears metrics history
func (c *MetricsCollector) ResetHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = []types.MetricsSnapshot{}
}
