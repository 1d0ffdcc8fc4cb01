package events

import "time"

// EventType identifies the kind of event emitted during a scan.
type EventType string

const (
	EventScanStart       EventType = "scan.start"
	EventScanEnd         EventType = "scan.end"
	EventScanError       EventType = "scan.error"
	EventFileParsed      EventType = "file.parsed"
	EventDependencyFound EventType = "dependency.resolved"
	EventVulnConfirmed   EventType = "vulnerability.confirmed"
	EventPolicyViolated  EventType = "policy.violated"
	EventDatabaseUpdated EventType = "database.updated"
)

// Event represents a single scan event.
type Event struct {
	Type      EventType     `json:"type"`
	ScanID    string        `json:"scan_id,omitempty"`
	Source    string        `json:"source,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Data      any           `json:"data"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// NewEvent creates a new Event with the current timestamp.
func NewEvent(typ EventType, scanID string, data any) Event {
	return Event{
		Type:      typ,
		ScanID:    scanID,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// WithSource returns a copy of e tagged with the dependency file it
// concerns.
func (e Event) WithSource(source string) Event {
	e.Source = source
	return e
}
