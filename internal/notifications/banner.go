package notifications

import (
	"sync"
	"time"
)

// BannerType represents the severity of a banner notification
type BannerType string

const (
	BannerTypeInfo    BannerType = "info"
	BannerTypeWarning BannerType = "warning"
	BannerTypeError   BannerType = "error"
)

// BannerState holds the current state of the banner notification
type BannerState struct {
	Visible   bool       `json:"visible"`
	Message   string     `json:"message"`
	Type      BannerType `json:"type"`
	Timestamp time.Time  `json:"timestamp"`
}

// BannerNotifier manages the banner shown to connected browsers
type BannerNotifier struct {
	state    BannerState
	mu       sync.RWMutex
	onChange func(BannerState)
}

// NewBannerNotifier creates a new banner notifier
func NewBannerNotifier() *BannerNotifier {
	return &BannerNotifier{}
}

// OnChange registers fn to receive the banner after every Show or Clear
func (b *BannerNotifier) OnChange(fn func(BannerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Show displays a banner with the specified message and type
func (b *BannerNotifier) Show(message string, bannerType BannerType) {
	b.mu.Lock()
	b.state = BannerState{
		Visible:   true,
		Message:   message,
		Type:      bannerType,
		Timestamp: time.Now(),
	}
	state, fn := b.state, b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(state)
	}
}

// Clear hides the banner
func (b *BannerNotifier) Clear() {
	b.mu.Lock()
	changed := b.state.Visible
	b.state.Visible = false
	state, fn := b.state, b.onChange
	b.mu.Unlock()

	if changed && fn != nil {
		fn(state)
	}
}

// GetState returns a copy of the current banner state
func (b *BannerNotifier) GetState() BannerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// IsVisible returns true if the banner is currently visible
func (b *BannerNotifier) IsVisible() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Visible
}
