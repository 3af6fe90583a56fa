package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType is the kind of entity an event is about
type EventType string

// Event type constants
const (
	EventSchoolYear  EventType = "school_year"
	EventGrade       EventType = "grade"
	EventTemplate    EventType = "template"
	EventStudent     EventType = "student"
	EventReport      EventType = "report"
	EventDocument    EventType = "document"
	EventSettings    EventType = "settings"
	EventPersistence EventType = "persistence"
)

// SubjectPrefix is the root of every NATS subject events are published on
const SubjectPrefix = "starreports"

// Event records one change to the store
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Action    string                 `json:"action"`
	EntityID  string                 `json:"entity_id,omitempty"`
	Source    string                 `json:"source"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewEvent creates a new event with auto-generated ID and timestamp
func NewEvent(eventType EventType, action, entityID, source string, payload map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Action:    action,
		EntityID:  entityID,
		Source:    source,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// Subject is the NATS subject the event is published on,
// e.g. "starreports.report.updated"
func (e *Event) Subject() string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, e.Type, e.Action)
}

// AllEventTypes returns all defined event types
func AllEventTypes() []EventType {
	return []EventType{
		EventSchoolYear,
		EventGrade,
		EventTemplate,
		EventStudent,
		EventReport,
		EventDocument,
		EventSettings,
		EventPersistence,
	}
}
