package models

import (
	"encoding/json"
	"strings"

	dErrors "jitbridge/pkg/domain-errors"
)

// EventName identifies a JIT session lifecycle notification. The wire values
// come from the event source and are validated at the router boundary.
type EventName string

const (
	EventApproved       EventName = "jit.approved"
	EventExpired        EventName = "jit.expired"
	EventRevoked        EventName = "jit.revoked"
	EventSummaryCreated EventName = "jit.summarycreated"
)

// SupportedEventNames lists the accepted wire values, for error responses.
func SupportedEventNames() []string {
	return []string{
		string(EventApproved),
		string(EventExpired),
		string(EventRevoked),
		string(EventSummaryCreated),
	}
}

// Event is the inbound envelope. The payload stays raw until the event name
// is known; each name has its own payload shape and is decoded exactly once.
type Event struct {
	EventName EventName       `json:"eventName"`
	EventID   string          `json:"eventId"`
	Payload   json.RawMessage `json:"payload"`
}

// Validate checks the envelope fields common to all event types.
func (e Event) Validate() error {
	if e.EventName == "" || e.EventID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "missing required fields: eventName, eventId")
	}
	switch e.EventName {
	case EventApproved, EventExpired, EventRevoked, EventSummaryCreated:
		return nil
	default:
		return dErrors.New(dErrors.CodeBadRequest, "unsupported event type: "+string(e.EventName)).
			WithDetails(map[string]any{"supported_events": SupportedEventNames()})
	}
}

// EpochMillis is an epoch-millisecond timestamp as delivered on the wire.
// The source sends numbers or numeric strings interchangeably, and has been
// observed sending garbage; decoding never fails so a malformed timestamp
// cannot block a transition. Display formatting handles bad values.
type EpochMillis string

func (e *EpochMillis) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*e = EpochMillis(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*e = EpochMillis(s)
		return nil
	}
	*e = EpochMillis(strings.Trim(string(b), `"`))
	return nil
}

func (e EpochMillis) String() string { return string(e) }

// ApprovedPayload carries the approval notification for a new JIT session.
type ApprovedPayload struct {
	JITSessionID         string      `json:"jitSessionId"`
	PondRequestID        string      `json:"pondRequestId"`
	IdentityFriendlyName string      `json:"identityFriendlyName"`
	RequesterEmail       string      `json:"requesterEmail"`
	Account              string      `json:"account"`
	AccountFriendlyName  string      `json:"accountFriendlyName"`
	ScopeFriendlyName    string      `json:"scopeFriendlyName"`
	RequestedDuration    json.Number `json:"requestedDuration"`
	ExpireAt             EpochMillis `json:"expireAt"`
	RevokeAt             EpochMillis `json:"revokeAt"`
	ActionedAt           EpochMillis `json:"actionedAt"`
	ActionedByName       string      `json:"actionedByFriendlyName"`
	RequesterComment     string      `json:"requesterComment"`
	ApproverComment      string      `json:"comment"`
	TimeToCompletion     json.Number `json:"timeToCompletion"`
}

// ExpiredPayload signals that a session reached its expiry.
type ExpiredPayload struct {
	JITSessionID  string      `json:"jitSessionId"`
	PondRequestID string      `json:"pondRequestId"`
	ExpireAt      EpochMillis `json:"expireAt"`
}

// RevokedPayload signals that a session was revoked before expiry.
type RevokedPayload struct {
	JITSessionID   string      `json:"jitSessionId"`
	PondRequestID  string      `json:"pondRequestId"`
	ActionedAt     EpochMillis `json:"actionedAt"`
	ActionedByName string      `json:"actionedByFriendlyName"`
}

// SessionSummary is the activity summary generated after a session ends. The
// session id lives here, not at the payload root; the schema is asymmetric
// with the other event types.
type SessionSummary struct {
	SessionID string   `json:"sessionId"`
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Regions   []string `json:"regions"`
	Summary   string   `json:"summary"`
}

// SessionSnapshot is the optional session detail attached to a summary event.
type SessionSnapshot struct {
	Identity      string      `json:"identity"`
	Scope         string      `json:"scope"`
	PermissionSet *NamedRef   `json:"permissionSet"`
	PondRequestID string      `json:"pondRequestId"`
	ApprovedAt    EpochMillis `json:"approvedAt"`
	Expiry        EpochMillis `json:"expiry"`
}

// NamedRef is a reference object of which only the name is used.
type NamedRef struct {
	Name string `json:"name"`
}

// SummaryPayload carries the activity summary plus an optional session
// snapshot.
type SummaryPayload struct {
	Summary *SessionSummary  `json:"summary"`
	Session *SessionSnapshot `json:"session"`
}

// DecodeApproved decodes and validates an approved payload.
func DecodeApproved(raw json.RawMessage) (*ApprovedPayload, error) {
	var p ApprovedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed payload")
	}
	if p.JITSessionID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing required field: jitSessionId")
	}
	return &p, nil
}

// DecodeExpired decodes and validates an expired payload.
func DecodeExpired(raw json.RawMessage) (*ExpiredPayload, error) {
	var p ExpiredPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed payload")
	}
	if p.JITSessionID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing required field: jitSessionId")
	}
	return &p, nil
}

// DecodeRevoked decodes and validates a revoked payload.
func DecodeRevoked(raw json.RawMessage) (*RevokedPayload, error) {
	var p RevokedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed payload")
	}
	if p.JITSessionID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing required field: jitSessionId")
	}
	return &p, nil
}

// DecodeSummary decodes and validates a summary payload. The correlation key
// is payload.summary.sessionId; its absence is reported with enough structure
// for the event source to diagnose the shape it sent.
func DecodeSummary(raw json.RawMessage) (*SummaryPayload, error) {
	var p SummaryPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed payload")
	}
	if p.Summary == nil || p.Summary.SessionID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "missing required field: payload.summary.sessionId").
			WithDetails(map[string]any{"has_summary": p.Summary != nil})
	}
	return &p, nil
}
