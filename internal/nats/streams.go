package nats

import (
	"errors"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// ChangesStream is the JetStream stream that retains change events
const ChangesStream = "STARREPORTS_CHANGES"

// StreamManager manages JetStream streams for the application
type StreamManager struct {
	js nats.JetStreamContext
}

// NewStreamManager creates a new StreamManager with JetStream context
func NewStreamManager(nc *nats.Conn) (*StreamManager, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}

	return &StreamManager{
		js: js,
	}, nil
}

// SetupStreams creates or updates the change stream, keeping events for
// retention
func (sm *StreamManager) SetupStreams(retention time.Duration) error {
	cfg := nats.StreamConfig{
		Name:        ChangesStream,
		Description: "Store change events",
		Subjects:    []string{SubjectAllChanges},
		Storage:     nats.FileStorage,
		MaxAge:      retention,
		Retention:   nats.LimitsPolicy,
	}
	return sm.createOrUpdateStream(cfg)
}

// createOrUpdateStream creates a new stream or updates an existing one
func (sm *StreamManager) createOrUpdateStream(cfg nats.StreamConfig) error {
	info, err := sm.js.StreamInfo(cfg.Name)
	if err != nil {
		if errors.Is(err, nats.ErrStreamNotFound) {
			log.Printf("[NATS-STREAMS] Creating stream %s with subjects %v", cfg.Name, cfg.Subjects)
			if _, err := sm.js.AddStream(&cfg); err != nil {
				return err
			}
			return nil
		}
		return err
	}

	if _, err := sm.js.UpdateStream(&cfg); err != nil {
		return err
	}
	log.Printf("[NATS-STREAMS] Stream %s updated (messages: %d)", cfg.Name, info.State.Msgs)
	return nil
}

// Replay delivers every retained change event to handler, oldest first,
// then keeps delivering new ones until the subscription is closed
func (sm *StreamManager) Replay(subject string, handler func(*Message)) (*nats.Subscription, error) {
	return sm.js.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{Subject: msg.Subject, Data: msg.Data})
	}, nats.DeliverAll(), nats.OrderedConsumer())
}

// GetStreamInfo returns information about a specific stream
func (sm *StreamManager) GetStreamInfo(name string) (*nats.StreamInfo, error) {
	return sm.js.StreamInfo(name)
}
