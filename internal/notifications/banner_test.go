package notifications

import "testing"

func TestBannerShowAndClear(t *testing.T) {
	b := NewBannerNotifier()
	if b.IsVisible() {
		t.Fatal("new banner should be hidden")
	}

	b.Show("disk full", BannerTypeError)
	state := b.GetState()
	if !state.Visible || state.Message != "disk full" || state.Type != BannerTypeError {
		t.Errorf("state = %+v", state)
	}
	if state.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}

	b.Clear()
	if b.IsVisible() {
		t.Error("banner should be hidden after Clear")
	}
	if b.GetState().Message != "disk full" {
		t.Error("Clear should keep the last message")
	}
}

func TestBannerOnChange(t *testing.T) {
	b := NewBannerNotifier()
	var got []BannerState
	b.OnChange(func(s BannerState) { got = append(got, s) })

	b.Clear() // nothing visible, no callback
	b.Show("hello", BannerTypeInfo)
	b.Clear()

	if len(got) != 2 {
		t.Fatalf("callbacks = %d, want 2", len(got))
	}
	if !got[0].Visible || got[1].Visible {
		t.Errorf("visibility sequence = %v, %v", got[0].Visible, got[1].Visible)
	}
}
