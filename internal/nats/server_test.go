package nats

import (
	"strings"
	"testing"
	"time"
)

func startTestBroker(t *testing.T) *Broker {
	t.Helper()
	b, err := StartBroker(BrokerConfig{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("StartBroker() error = %v", err)
	}
	t.Cleanup(b.Shutdown)
	return b
}

func TestStartBrokerRequiresDataDir(t *testing.T) {
	if _, err := StartBroker(BrokerConfig{}); err == nil {
		t.Fatal("expected error without data dir")
	}
}

func TestBrokerAcceptsClients(t *testing.T) {
	b := startTestBroker(t)
	if !strings.HasPrefix(b.URL(), "nats://127.0.0.1:") {
		t.Errorf("URL() = %q", b.URL())
	}

	client, err := NewClient(b.URL(), "test")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	conn := client.RawConn()
	deadline := time.Now().Add(2 * time.Second)
	for !conn.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !conn.IsConnected() {
		t.Error("client should be connected")
	}
	if _, err := NewStreamManager(conn); err != nil {
		t.Errorf("JetStream unavailable: %v", err)
	}
}

func TestBrokerShutdownTwice(t *testing.T) {
	b, err := StartBroker(BrokerConfig{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("StartBroker() error = %v", err)
	}
	b.Shutdown()
	b.Shutdown()
}
