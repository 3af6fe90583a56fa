package instance

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

// IsPortAvailable checks if a TCP port is available for binding
func IsPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// FindAvailablePort returns the first free port in [startPort, startPort+20),
// or 0 when none is free
func FindAvailablePort(startPort int) int {
	for i := 0; i < 20; i++ {
		if IsPortAvailable(startPort + i) {
			return startPort + i
		}
	}
	return 0
}

// HealthCheck asks a local server's health endpoint whether it is up
func HealthCheck(port int) error {
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/api/health", port))
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}
