package nats

import (
	"log"
	"sync"
	"time"

	"github.com/STARREPORTS/internal/events"
)

// Publisher forwards events from the bus to NATS subjects
type Publisher struct {
	client *Client
	bus    *events.Bus
	ch     <-chan events.Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewPublisher subscribes to bus; call Start to begin forwarding
func NewPublisher(client *Client, bus *events.Bus) *Publisher {
	return &Publisher{
		client: client,
		bus:    bus,
		ch:     bus.Subscribe("nats", nil),
		done:   make(chan struct{}),
	}
}

// Start forwards events until Stop
func (p *Publisher) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case event, ok := <-p.ch:
				if !ok {
					return
				}
				if err := p.client.PublishJSON(event.Subject(), event); err != nil {
					log.Printf("[NATS] Failed to publish %s: %v", event.Subject(), err)
				}
			case <-p.done:
				return
			}
		}
	}()
}

// Stop ends forwarding and unsubscribes from the bus
func (p *Publisher) Stop() {
	close(p.done)
	p.wg.Wait()
	p.bus.Unsubscribe("nats", p.ch)
}

// ServeStats answers SubjectStats requests with the output of stats
func ServeStats(client *Client, stats func() StatsMessage) error {
	_, err := client.Subscribe(SubjectStats, func(msg *Message) {
		s := stats()
		s.Timestamp = time.Now().UTC()
		if err := client.Respond(msg, s); err != nil {
			log.Printf("[NATS] Failed to answer stats request: %v", err)
		}
	})
	return err
}
