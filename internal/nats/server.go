package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// Broker is the embedded NATS server change events are published on. It
// listens on loopback only and always runs JetStream so the change stream
// can be replayed.
type Broker struct {
	ns *server.Server
}

// BrokerConfig configures StartBroker. Port 0 picks a free port.
type BrokerConfig struct {
	Port    int
	DataDir string
}

// StartBroker starts the broker and waits until it accepts connections
func StartBroker(cfg BrokerConfig) (*Broker, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("broker data dir is required")
	}
	port := cfg.Port
	if port == 0 {
		port = server.RANDOM_PORT
	}

	ns, err := server.NewServer(&server.Options{
		ServerName: "starreports",
		Host:       "127.0.0.1",
		Port:       port,
		NoLog:      true,
		NoSigs:     true,
		MaxPayload: 1024 * 1024,
		JetStream:  true,
		StoreDir:   cfg.DataDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS server: %w", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready on port %d", cfg.Port)
	}
	return &Broker{ns: ns}, nil
}

// URL returns the client connection URL
func (b *Broker) URL() string {
	return b.ns.ClientURL()
}

// Shutdown stops the broker and waits for it to exit. Safe to call twice.
func (b *Broker) Shutdown() {
	b.ns.Shutdown()
	b.ns.WaitForShutdown()
}
