package notifications

import (
	"fmt"
	"runtime"

	"github.com/go-toast/toast"
)

// ToastNotifier handles Windows toast notifications
type ToastNotifier struct {
	appID        string
	dashboardURL string
}

// NewToastNotifier creates a new toast notifier
func NewToastNotifier(appID, dashboardURL string) *ToastNotifier {
	if appID == "" {
		appID = "StarReports"
	}
	if dashboardURL == "" {
		dashboardURL = "http://localhost:8080"
	}
	return &ToastNotifier{
		appID:        appID,
		dashboardURL: dashboardURL,
	}
}

func (t *ToastNotifier) notification(title, message string) toast.Notification {
	return toast.Notification{
		AppID:   t.appID,
		Title:   title,
		Message: message,
		Audio:   toast.Default,
		Actions: []toast.Action{
			{
				Type:      "protocol",
				Label:     "Open StarReports",
				Arguments: t.dashboardURL,
			},
		},
	}
}

// ShowToast displays a Windows toast notification with sound
func (t *ToastNotifier) ShowToast(title, message string) error {
	if !t.IsSupported() {
		return fmt.Errorf("toast notifications only supported on Windows")
	}
	n := t.notification(title, message)
	return n.Push()
}

// NotifyPersistenceFailure raises a toast with the instant message sound
func (t *ToastNotifier) NotifyPersistenceFailure(message string) error {
	if !t.IsSupported() {
		return fmt.Errorf("toast notifications only supported on Windows")
	}
	n := t.notification("Changes are not being saved", message)
	n.Audio = toast.IM
	return n.Push()
}

// IsSupported returns true if toast notifications are supported on this platform
func (t *ToastNotifier) IsSupported() bool {
	return runtime.GOOS == "windows"
}
