package handler

import "jitbridge/internal/jit/service"

// EventResponse is the acknowledgment body for a processed event. Field names
// match what the event source already consumes from the previous integration.
type EventResponse struct {
	EventProcessed bool   `json:"event_processed"`
	EventName      string `json:"event_name"`
	EventID        string `json:"event_id"`
	IncidentID     string `json:"incident_id"`
	IncidentNumber string `json:"incident_number"`
	IncidentState  string `json:"incident_state"`
	JITSessionID   string `json:"jit_session_id"`
	PondRequestID  string `json:"pond_request_id,omitempty"`
	Status         string `json:"status"`
	CloseNotes     string `json:"close_notes,omitempty"`
	RevokedBy      string `json:"revoked_by,omitempty"`
	SummaryID      string `json:"summary_id,omitempty"`
	SummaryStatus  string `json:"summary_status,omitempty"`
}

// FromOutcome converts a service outcome to its response representation.
func FromOutcome(eventID string, o *service.Outcome) EventResponse {
	return EventResponse{
		EventProcessed: true,
		EventName:      string(o.EventName),
		EventID:        eventID,
		IncidentID:     o.TicketID,
		IncidentNumber: o.TicketNumber,
		IncidentState:  o.State.String(),
		JITSessionID:   o.SessionID,
		PondRequestID:  o.PondRequestID,
		Status:         o.Status,
		CloseNotes:     o.CloseNotes,
		RevokedBy:      o.RevokedBy,
		SummaryID:      o.SummaryID,
		SummaryStatus:  o.SummaryStatus,
	}
}
