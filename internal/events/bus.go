package events

import (
	"log"
	"sync"
)

// Subscription represents a subscription to events
type Subscription struct {
	Ch    chan Event  // Channel to receive events
	Types []EventType // Event types to filter (nil/empty = all types)
	Name  string      // Subscriber name
}

// EventStore defines the interface for persisting events
type EventStore interface {
	Save(event *Event) error
	List(q Query) ([]*Event, error)
}

// Bus fans store changes out to subscribers and the audit log
type Bus struct {
	subscribers map[string][]*Subscription // name -> subscriptions
	store       EventStore                 // Optional audit log
	mu          sync.RWMutex
}

// NewBus creates a new event bus
func NewBus(store EventStore) *Bus {
	return &Bus{
		subscribers: make(map[string][]*Subscription),
		store:       store,
	}
}

// Subscribe creates a new subscription for the given event types.
// If types is nil or empty, all event types will be received.
func (b *Bus) Subscribe(name string, types []EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		Ch:    make(chan Event, 100),
		Types: types,
		Name:  name,
	}
	b.subscribers[name] = append(b.subscribers[name], sub)
	return sub.Ch
}

// Unsubscribe removes a subscription and closes its channel
func (b *Bus) Unsubscribe(name string, ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, exists := b.subscribers[name]
	if !exists {
		return
	}

	for i, sub := range subs {
		if sub.Ch == ch {
			close(sub.Ch)
			b.subscribers[name] = append(subs[:i], subs[i+1:]...)
			if len(b.subscribers[name]) == 0 {
				delete(b.subscribers, name)
			}
			return
		}
	}
}

// Publish records the event in the audit log and sends it to every
// matching subscriber. A full subscriber channel drops the event.
func (b *Bus) Publish(event *Event) {
	if b.store != nil {
		if err := b.store.Save(event); err != nil {
			log.Printf("[EVENTS] Failed to record %s: %v", event.Subject(), err)
		}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, subs := range b.subscribers {
		for _, sub := range subs {
			if !matchesTypes(event.Type, sub.Types) {
				continue
			}
			select {
			case sub.Ch <- *event:
			default:
				log.Printf("[EVENTS] Subscriber %s is full, dropped %s", sub.Name, event.Subject())
			}
		}
	}
}

// History returns recorded events from the audit log
func (b *Bus) History(q Query) ([]*Event, error) {
	if b.store == nil {
		return nil, nil
	}
	return b.store.List(q)
}

// matchesTypes checks if an event type matches the subscription filter
func matchesTypes(eventType EventType, types []EventType) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == eventType {
			return true
		}
	}
	return false
}
