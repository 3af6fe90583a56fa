package instance

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireWritesPIDFile(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, 8080)
	if err := m.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	data, err := m.ReadPIDFile()
	if err != nil {
		t.Fatalf("ReadPIDFile() error = %v", err)
	}
	if data.PID != os.Getpid() || data.Port != 8080 || data.DataDir != dir {
		t.Errorf("PID file = %+v", data)
	}

	if err := m.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, PIDFileName)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("PID file should be removed, stat err = %v", err)
	}
}

func TestSecondAcquireIsRefused(t *testing.T) {
	dir := t.TempDir()
	first := NewManager(dir, 0)
	if err := first.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer first.Release()

	second := NewManager(dir, 0)
	if err := second.Acquire(); !errors.Is(err, ErrLocked) {
		t.Fatalf("second Acquire() error = %v, want ErrLocked", err)
	}

	first.Release()
	if err := second.Acquire(); err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	second.Release()
}

func TestAcquireIsIdempotent(t *testing.T) {
	m := NewManager(t.TempDir(), 0)
	if err := m.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer m.Release()
	if err := m.Acquire(); err != nil {
		t.Errorf("repeat Acquire() error = %v", err)
	}
}

func TestCheckExisting(t *testing.T) {
	t.Run("no PID file", func(t *testing.T) {
		info, err := NewManager(t.TempDir(), 0).CheckExisting()
		if err != nil || info != nil {
			t.Errorf("CheckExisting() = %+v, %v", info, err)
		}
	})

	t.Run("live process", func(t *testing.T) {
		m := NewManager(t.TempDir(), 0)
		if err := m.WritePIDFile(os.Getpid()); err != nil {
			t.Fatal(err)
		}
		info, err := m.CheckExisting()
		if err != nil || info == nil {
			t.Fatalf("CheckExisting() = %+v, %v", info, err)
		}
		if !info.IsRunning || info.PID != os.Getpid() || info.IsResponding {
			t.Errorf("info = %+v", info)
		}
	})

	t.Run("stale PID file", func(t *testing.T) {
		dir := t.TempDir()
		m := NewManager(dir, 0)
		if err := m.WritePIDFile(-1); err != nil {
			t.Fatal(err)
		}
		info, err := m.CheckExisting()
		if err != nil || info != nil {
			t.Errorf("CheckExisting() = %+v, %v", info, err)
		}
		if _, err := os.Stat(filepath.Join(dir, PIDFileName)); !errors.Is(err, os.ErrNotExist) {
			t.Error("stale PID file should be removed")
		}
	})

	t.Run("corrupt PID file", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, PIDFileName), []byte("{"), 0644)
		if _, err := NewManager(dir, 0).CheckExisting(); err == nil {
			t.Error("expected parse error")
		}
	})
}
