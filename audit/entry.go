package audit

import (
	"encoding/json"
	"time"
)

// TimestampFormat is the ISO-8601 UTC layout with millisecond precision used
// on the wire.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Level is the severity of the audit entry itself.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// Action is the fixed vocabulary of audited actions.
type Action string

const (
	ActionAuthenticationFailure Action = "authentication_failure"
	ActionAuthenticationSuccess Action = "authentication_success"
	ActionAuthorizationDenied   Action = "authorization_denied"
	ActionSearch                Action = "event_access_search"
	ActionGetDetails            Action = "event_access_get_details"
	ActionGetTimeline           Action = "event_access_get_timeline"
	ActionGetImpactSummary      Action = "event_access_get_impact_summary"
)

// AllActions returns every defined action.
func AllActions() []Action {
	return []Action{
		ActionAuthenticationFailure,
		ActionAuthenticationSuccess,
		ActionAuthorizationDenied,
		ActionSearch,
		ActionGetDetails,
		ActionGetTimeline,
		ActionGetImpactSummary,
	}
}

// Valid reports whether a is part of the vocabulary.
func (a Action) Valid() bool {
	for _, known := range AllActions() {
		if a == known {
			return true
		}
	}
	return false
}

// Authentication failure reasons carried in Entry.Metadata["reason"].
const (
	ReasonMissingToken = "missing_token"
	ReasonInvalidToken = "invalid_token"
	ReasonExpiredToken = "expired_token"
)

// Entry is one audit record. Timestamp is assigned by the Recorder at
// emission time; values set by callers are overwritten.
type Entry struct {
	Timestamp    time.Time
	Level        Level
	Action       Action
	CallerID     string
	CallerName   string
	Success      bool
	ResourceType string
	ResourceID   string
	ServiceID    string
	Message      string
	Metadata     map[string]any
}

// wireEntry fixes the field order and optionality of the emitted line.
type wireEntry struct {
	Type         string         `json:"type"`
	Timestamp    string         `json:"timestamp"`
	Level        Level          `json:"level"`
	Action       Action         `json:"action"`
	CallerID     string         `json:"callerId"`
	CallerName   string         `json:"callerName,omitempty"`
	Success      bool           `json:"success"`
	ResourceType string         `json:"resourceType,omitempty"`
	ResourceID   string         `json:"resourceId,omitempty"`
	ServiceID    string         `json:"serviceId,omitempty"`
	Message      string         `json:"message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// MarshalJSON encodes the entry in its wire form.
func (e Entry) MarshalJSON() ([]byte, error) {
	level := e.Level
	if level == "" {
		level = LevelInfo
	}
	return json.Marshal(wireEntry{
		Type:         "AUDIT",
		Timestamp:    e.Timestamp.UTC().Format(TimestampFormat),
		Level:        level,
		Action:       e.Action,
		CallerID:     e.CallerID,
		CallerName:   e.CallerName,
		Success:      e.Success,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		ServiceID:    e.ServiceID,
		Message:      e.Message,
		Metadata:     e.Metadata,
	})
}

// UnmarshalJSON decodes an entry from its wire form.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := time.Parse(TimestampFormat, w.Timestamp)
	if err != nil {
		return err
	}
	*e = Entry{
		Timestamp:    ts,
		Level:        w.Level,
		Action:       w.Action,
		CallerID:     w.CallerID,
		CallerName:   w.CallerName,
		Success:      w.Success,
		ResourceType: w.ResourceType,
		ResourceID:   w.ResourceID,
		ServiceID:    w.ServiceID,
		Message:      w.Message,
		Metadata:     w.Metadata,
	}
	return nil
}

// Line returns the entry as a single newline-terminated JSON line.
func (e Entry) Line() ([]byte, error) {
	data, err := e.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
