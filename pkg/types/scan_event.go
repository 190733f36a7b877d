package types

import (
	"net/netip"
	"time"
)

// EventKind identifies what happened to a candidate address during a discovery walk
type EventKind string

const (
	EventRangeStart  EventKind = "range_start"
	EventSkipSelf    EventKind = "skip_self"
	EventSkipBlocked EventKind = "skip_blocked"
	EventProbe       EventKind = "probe"
	EventAlive       EventKind = "alive"
	EventCapReached  EventKind = "cap_reached"
	EventCancelled   EventKind = "cancelled"
	EventCompleted   EventKind = "completed"
)

// ScanEvent is emitted by the discovery walk for observability
type ScanEvent struct {
	Kind       EventKind
	Address    netip.Addr // zero for range and terminal events
	Range      string
	Discovered int
	Time       time.Time
}

// ScanLogEntry represents a single scan event as written to the event log
type ScanLogEntry struct {
	// Required fields
	SessionID string `json:"session_id"`
	Prober    string `json:"prober"`
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"` // RFC3339 format date-time

	// Optional fields
	Target      string `json:"target,omitempty"`
	Range       string `json:"range,omitempty"`
	Discovered  int    `json:"discovered,omitempty"`
	LogSeverity string `json:"log_severity,omitempty"` // enum: warning, info, debug, verbose
}

// Validate checks if the entry has all required fields populated
func (e *ScanLogEntry) Validate() error {
	if e.SessionID == "" {
		return &ValidationError{Field: "session_id", Message: "session_id is required"}
	}
	if e.Prober == "" {
		return &ValidationError{Field: "prober", Message: "prober is required"}
	}
	if e.Event == "" {
		return &ValidationError{Field: "event", Message: "event is required"}
	}
	if e.Timestamp == "" {
		return &ValidationError{Field: "timestamp", Message: "timestamp is required"}
	}
	return nil
}

// SetTimestamp sets the timestamp from a time.Time value
func (e *ScanLogEntry) SetTimestamp(t time.Time) {
	e.Timestamp = t.Format(time.RFC3339)
}

// SetLogSeverity sets the log severity field
func (e *ScanLogEntry) SetLogSeverity(severity string) {
	validSeverities := map[string]bool{
		"warning": true,
		"info":    true,
		"debug":   true,
		"verbose": true,
	}
	if validSeverities[severity] {
		e.LogSeverity = severity
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
