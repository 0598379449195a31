package gateway

import (
	"encoding/json"
	"time"

	"github.com/mcdev12/faceoff/go/internal/events"
)

// SessionEvent represents the base structure for all session events
type SessionEvent struct {
	ID        string          `json:"id"`         // Event UUID
	SessionID string          `json:"session_id"` // Session UUID
	Type      EventType       `json:"type"`       // Event type
	Timestamp time.Time       `json:"timestamp"`  // Event creation time
	Data      json.RawMessage `json:"data"`       // Event-specific payload
}

// EventType represents the type of session event
type EventType string

const (
	EventTypeRoleClaimed       EventType = "RoleClaimed"
	EventTypeArgumentSubmitted EventType = "ArgumentSubmitted"
	EventTypeVotingOpened      EventType = "VotingOpened"
	EventTypeVoteCast          EventType = "VoteCast"
	EventTypeAnswerRecorded    EventType = "AnswerRecorded"
	EventTypeSessionFinished   EventType = "SessionFinished"
)

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *SessionEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeRoleClaimed:
		var payload events.RoleClaimedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeArgumentSubmitted:
		var payload events.ArgumentSubmittedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeVotingOpened:
		var payload events.VotingOpenedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeVoteCast:
		var payload events.VoteCastPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeAnswerRecorded:
		var payload events.AnswerRecordedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSessionFinished:
		var payload events.SessionFinishedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}
