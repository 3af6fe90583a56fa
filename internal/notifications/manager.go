package notifications

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// PersistenceWarning is the banner text shown when snapshots fail to save
const PersistenceWarning = "Changes could not be saved to disk. Keep this window open and export your data."

// ErrDisabled is returned when notifications are switched off
var ErrDisabled = errors.New("notifications are disabled")

// NotificationManager provides a unified interface for operator warnings
type NotificationManager interface {
	NotifyPersistenceFailure(err error) error
	ShowToast(title, message string) error
	ShowDashboardBanner(message string, bannerType BannerType) error
	ClearAlert()
	IsEnabled() bool
}

// Manager implements NotificationManager over the banner and toast channels
type Manager struct {
	toast       *ToastNotifier
	banner      *BannerNotifier
	enableToast bool
	enabled     bool
	mu          sync.RWMutex
	logger      *log.Logger
}

// Config holds configuration for the notification manager
type Config struct {
	AppID        string
	DashboardURL string
	EnableToast  bool
	Logger       *log.Logger
}

// NewManager creates a new notification manager
func NewManager(config Config) *Manager {
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	m := &Manager{
		toast:       NewToastNotifier(config.AppID, config.DashboardURL),
		banner:      NewBannerNotifier(),
		enableToast: config.EnableToast,
		enabled:     true,
		logger:      config.Logger,
	}

	m.logger.Printf("[NOTIFICATION] Toast notifications supported: %v (enabled: %v)",
		m.toast.IsSupported(), config.EnableToast)
	return m
}

// OnBannerChange forwards banner updates, e.g. to websocket clients
func (m *Manager) OnBannerChange(fn func(BannerState)) {
	m.banner.OnChange(fn)
}

// NotifyPersistenceFailure shows the save warning on every channel
func (m *Manager) NotifyPersistenceFailure(err error) error {
	if !m.IsEnabled() {
		return ErrDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.banner.Show(PersistenceWarning, BannerTypeError)
	m.logger.Printf("[NOTIFICATION] Persistence warning shown: %v", err)

	if m.enableToast && m.toast.IsSupported() {
		if terr := m.toast.NotifyPersistenceFailure(PersistenceWarning); terr != nil {
			m.logger.Printf("[NOTIFICATION] Toast notification failed: %v", terr)
			return fmt.Errorf("toast: %w", terr)
		}
	}
	return nil
}

// ShowToast displays a Windows toast notification
func (m *Manager) ShowToast(title, message string) error {
	if !m.IsEnabled() {
		return ErrDisabled
	}
	if !m.enableToast || !m.toast.IsSupported() {
		return fmt.Errorf("toast notifications not available")
	}

	if err := m.toast.ShowToast(title, message); err != nil {
		m.logger.Printf("[NOTIFICATION] Toast failed: %v", err)
		return err
	}
	m.logger.Printf("[NOTIFICATION] Toast sent: %s - %s", title, message)
	return nil
}

// ShowDashboardBanner displays a banner in the browser UI
func (m *Manager) ShowDashboardBanner(message string, bannerType BannerType) error {
	if !m.IsEnabled() {
		return ErrDisabled
	}
	m.banner.Show(message, bannerType)
	m.logger.Printf("[NOTIFICATION] Banner shown: %s", message)
	return nil
}

// ClearAlert hides the banner
func (m *Manager) ClearAlert() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banner.Clear()
}

// IsEnabled returns true if notifications are enabled
func (m *Manager) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Enable enables all notifications
func (m *Manager) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}

// Disable disables all notifications
func (m *Manager) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}

// GetBannerState returns the current banner state
func (m *Manager) GetBannerState() BannerState {
	return m.banner.GetState()
}
