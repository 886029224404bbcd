// Package event defines the typed envelopes pushed to rooms and the emitters
// that validate and route them. Emitters never look at room membership; they
// hand validated envelopes to the router's room-emit primitive and stop.
package event

import (
	"encoding/json"
	"errors"
	"time"
)

// Type is the closed set of event types on the wire.
type Type string

const (
	TypeDeviceTelemetry Type = "device.telemetry"
	TypeDeviceStatus    Type = "device.status"
	TypeDeviceHeartbeat Type = "device.heartbeat"
	TypeDeviceCommand   Type = "device.command"

	TypeExperimentLifecycle Type = "experiment.lifecycle"
	TypeExperimentProgress  Type = "experiment.progress"
	TypeExperimentData      Type = "experiment.data_collected"

	TypeTaskExecutionStarted   Type = "task.execution_started"
	TypeTaskExecutionProgress  Type = "task.execution_progress"
	TypeTaskExecutionCompleted Type = "task.execution_completed"

	TypeNotificationSystem Type = "notification.system"
	TypeNotificationUser   Type = "notification.user"
	TypeNotificationAlert  Type = "notification.alert"

	TypeUserPresence Type = "user.presence"

	// Acknowledgment events answering client requests
	TypeConnected    Type = "connected"
	TypeSubscribed   Type = "subscribed"
	TypeUnsubscribed Type = "unsubscribed"
	TypeState        Type = "state"
	TypeError        Type = "error"
)

var (
	ErrMissingType    = errors.New("event type is required")
	ErrMissingSubject = errors.New("subject id is required")
)

// Payload is implemented by event payloads that carry their own schema.
type Payload interface {
	Validate() error
}

// Envelope is the fixed outbound event shape. Payload fields are flattened
// next to the envelope head on the wire.
type Envelope struct {
	Type          Type      `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
	SubjectID     string    `json:"subject_id,omitempty"`
	Payload       any       `json:"-"`
}

// Validate checks the envelope head and, when the payload declares a schema,
// the payload as well.
func (e *Envelope) Validate() error {
	if e.Type == "" {
		return ErrMissingType
	}
	if e.SubjectID == "" {
		return ErrMissingSubject
	}
	if p, ok := e.Payload.(Payload); ok {
		return p.Validate()
	}
	return nil
}

// MarshalJSON flattens the payload's fields into the envelope object.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	type head Envelope
	headData, err := json.Marshal((*head)(e))
	if err != nil {
		return nil, err
	}
	if e.Payload == nil {
		return headData, nil
	}

	payloadData, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(headData, &merged); err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payloadData, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		if _, taken := merged[k]; !taken {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
