package notifications

import (
	"runtime"
	"testing"
)

func TestNewToastNotifierDefaults(t *testing.T) {
	n := NewToastNotifier("", "")
	if n.appID != "StarReports" {
		t.Errorf("appID = %q", n.appID)
	}
	if n.dashboardURL != "http://localhost:8080" {
		t.Errorf("dashboardURL = %q", n.dashboardURL)
	}

	n = NewToastNotifier("Custom", "http://school:9000")
	if n.appID != "Custom" || n.dashboardURL != "http://school:9000" {
		t.Errorf("notifier = %+v", n)
	}
}

func TestToastNotification(t *testing.T) {
	n := NewToastNotifier("App", "http://localhost:1234")
	msg := n.notification("Title", "Body")
	if msg.AppID != "App" || msg.Title != "Title" || msg.Message != "Body" {
		t.Errorf("notification = %+v", msg)
	}
	if len(msg.Actions) != 1 || msg.Actions[0].Arguments != "http://localhost:1234" {
		t.Errorf("actions = %+v", msg.Actions)
	}
}

func TestToastUnsupportedPlatform(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("toast is supported on windows")
	}
	n := NewToastNotifier("", "")
	if n.IsSupported() {
		t.Error("IsSupported() should be false")
	}
	if err := n.ShowToast("a", "b"); err == nil {
		t.Error("ShowToast should fail off windows")
	}
	if err := n.NotifyPersistenceFailure("x"); err == nil {
		t.Error("NotifyPersistenceFailure should fail off windows")
	}
}
