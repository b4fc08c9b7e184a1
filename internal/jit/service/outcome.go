package service

import "jitbridge/internal/jit/models"

// Outcome is the structured result of a successfully processed event. It
// carries everything the transport needs to acknowledge the event: which
// ticket was touched, the state it ended in, and human-readable status text.
type Outcome struct {
	EventName     models.EventName
	TicketID      string
	TicketNumber  string
	SessionID     string
	PondRequestID string
	State         models.TicketState
	CloseNotes    string
	RevokedBy     string
	SummaryID     string
	SummaryStatus string
	// Created reports whether this event created the ticket rather than
	// transitioning an existing one.
	Created bool
	Status  string

	metricLabel string
}
