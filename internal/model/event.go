// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventControllerConnected    EventType = "CONTROLLER_CONNECTED"
	EventControllerDisconnected EventType = "CONTROLLER_DISCONNECTED"
	EventReading                EventType = "READING"
	EventSetpointChanged        EventType = "SETPOINT_CHANGED"
	EventTransactionFailed      EventType = "TRANSACTION_FAILED"
)

// Event severities
const (
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// ControllerEvent represents an event in the system
type ControllerEvent struct {
	ID        uuid.UUID              `json:"id"`
	EventType EventType              `json:"event_type"`
	Station   *int                   `json:"station,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Severity  string                 `json:"severity"`
}

// NewEvent stamps a new event. station < 0 marks a controller-wide event.
func NewEvent(eventType EventType, station int, severity string, data map[string]interface{}) ControllerEvent {
	e := ControllerEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now(),
		Source:    "vx4-service",
		Severity:  severity,
	}
	if station >= 0 {
		e.Station = &station
	}
	return e
}

// ForStation reports whether the event concerns station.
func (e ControllerEvent) ForStation(station int) bool {
	return e.Station != nil && *e.Station == station
}
