package events

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type memStore struct {
	mu     sync.Mutex
	events []*Event
	fail   bool
}

func (m *memStore) Save(e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("db locked")
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memStore) List(q Query) ([]*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Event(nil), m.events...), nil
}

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(nil)
	ch := bus.Subscribe("hub", nil)

	bus.Publish(NewEvent(EventGrade, "created", "g1", "store", nil))

	got := receive(t, ch)
	if got.Type != EventGrade || got.EntityID != "g1" {
		t.Errorf("received %+v", got)
	}
}

func TestBusTypeFilter(t *testing.T) {
	bus := NewBus(nil)
	reports := bus.Subscribe("reports", []EventType{EventReport})

	bus.Publish(NewEvent(EventGrade, "created", "g1", "store", nil))
	bus.Publish(NewEvent(EventReport, "updated", "r1", "store", nil))

	got := receive(t, reports)
	if got.Type != EventReport {
		t.Errorf("received %s, want report", got.Type)
	}
	select {
	case e := <-reports:
		t.Errorf("unexpected extra event %+v", e)
	default:
	}
}

func TestBusMultipleSubscribers(t *testing.T) {
	bus := NewBus(nil)
	a := bus.Subscribe("a", nil)
	b := bus.Subscribe("b", nil)

	bus.Publish(NewEvent(EventStudent, "deleted", "s1", "store", nil))

	receive(t, a)
	receive(t, b)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(nil)
	ch := bus.Subscribe("hub", nil)
	bus.Unsubscribe("hub", ch)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	// publishing after unsubscribe must not panic
	bus.Publish(NewEvent(EventGrade, "created", "g1", "store", nil))

	// unknown subscriber is a no-op
	bus.Unsubscribe("nobody", ch)
}

func TestBusFullChannelDrops(t *testing.T) {
	bus := NewBus(nil)
	ch := bus.Subscribe("slow", nil)

	for i := 0; i < 150; i++ {
		bus.Publish(NewEvent(EventReport, "updated", "r1", "store", nil))
	}
	if len(ch) != 100 {
		t.Errorf("buffered = %d, want 100", len(ch))
	}
}

func TestBusRecordsToStore(t *testing.T) {
	store := &memStore{}
	bus := NewBus(store)

	bus.Publish(NewEvent(EventSettings, "updated", "", "store", nil))
	history, err := bus.History(Query{})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].Type != EventSettings {
		t.Errorf("history = %+v", history)
	}
}

func TestBusStoreFailureStillDelivers(t *testing.T) {
	bus := NewBus(&memStore{fail: true})
	ch := bus.Subscribe("hub", nil)

	bus.Publish(NewEvent(EventGrade, "updated", "g1", "store", nil))
	receive(t, ch)
}

func TestBusHistoryWithoutStore(t *testing.T) {
	bus := NewBus(nil)
	history, err := bus.History(Query{})
	if err != nil || history != nil {
		t.Errorf("History() = %v, %v", history, err)
	}
}

func TestBusConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)
	ch := bus.Subscribe("hub", nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewEvent(EventReport, "updated", "r1", "store", nil))
		}()
	}
	wg.Wait()

	if len(ch) != 10 {
		t.Errorf("received %d events, want 10", len(ch))
	}
}
