package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// PIDFileName is written into the data directory while a server owns it
const PIDFileName = "starreports.pid"

// ErrLocked is returned when another process holds the data directory
var ErrLocked = errors.New("data directory is locked by another starreports process")

// Manager guards a data directory so only one process writes its snapshot
type Manager struct {
	pidFilePath string
	port        int
	lock        *os.File
}

// Info describes the process recorded in the PID file
type Info struct {
	PID          int
	Port         int
	StartTime    time.Time
	IsRunning    bool
	IsResponding bool
	DataDir      string
}

// PIDFileData represents the JSON structure of the PID file
type PIDFileData struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	StartedAt time.Time `json:"started_at"`
	DataDir   string    `json:"data_dir"`
	Hostname  string    `json:"hostname"`
}

// NewManager creates a manager for dataDir
func NewManager(dataDir string, port int) *Manager {
	return &Manager{
		pidFilePath: filepath.Join(dataDir, PIDFileName),
		port:        port,
	}
}

// Acquire takes the data directory lock and records this process in the
// PID file. It fails with ErrLocked while another process holds it.
func (m *Manager) Acquire() error {
	if m.lock != nil {
		return nil
	}
	f, err := os.OpenFile(m.pidFilePath+".lock", os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		if existing, _ := m.CheckExisting(); existing != nil {
			return fmt.Errorf("%w (pid %d, port %d)", ErrLocked, existing.PID, existing.Port)
		}
		return ErrLocked
	}
	m.lock = f

	if err := m.WritePIDFile(os.Getpid()); err != nil {
		m.Release()
		return err
	}
	return nil
}

// Release drops the lock and removes the PID file
func (m *Manager) Release() error {
	if m.lock == nil {
		return nil
	}
	if err := m.RemovePIDFile(); err != nil {
		log.Printf("[INSTANCE] Warning: %v", err)
	}
	unlockFile(m.lock)
	err := m.lock.Close()
	m.lock = nil
	return err
}

// CheckExisting reports the process recorded in the PID file. A PID file
// left by a dead process is removed and nil is returned.
func (m *Manager) CheckExisting() (*Info, error) {
	data, err := m.ReadPIDFile()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	if !processAlive(data.PID) {
		log.Printf("[INSTANCE] Removing stale PID file (process %d not running)", data.PID)
		m.RemovePIDFile()
		return nil, nil
	}

	return &Info{
		PID:          data.PID,
		Port:         data.Port,
		StartTime:    data.StartedAt,
		IsRunning:    true,
		IsResponding: data.Port > 0 && HealthCheck(data.Port) == nil,
		DataDir:      data.DataDir,
	}, nil
}

// WritePIDFile records pid and the manager's port
func (m *Manager) WritePIDFile(pid int) error {
	hostname, _ := os.Hostname()
	data := PIDFileData{
		PID:       pid,
		Port:      m.port,
		StartedAt: time.Now(),
		DataDir:   filepath.Dir(m.pidFilePath),
		Hostname:  hostname,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal PID data: %w", err)
	}
	if err := os.WriteFile(m.pidFilePath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// ReadPIDFile reads and parses the PID file
func (m *Manager) ReadPIDFile() (*PIDFileData, error) {
	jsonData, err := os.ReadFile(m.pidFilePath)
	if err != nil {
		return nil, err
	}

	var data PIDFileData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to parse PID file: %w", err)
	}
	return &data, nil
}

// RemovePIDFile deletes the PID file
func (m *Manager) RemovePIDFile() error {
	if err := os.Remove(m.pidFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// Port returns the port recorded for this process
func (m *Manager) Port() int {
	return m.port
}
