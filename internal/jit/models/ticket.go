package models

import "time"

// TicketState mirrors the incident state values of the downstream ticketing
// system: 1 New, 2 In Progress, 6 Resolved, 7 Closed.
type TicketState int

const (
	StateNew        TicketState = 1
	StateInProgress TicketState = 2
	StateResolved   TicketState = 6
	StateClosed     TicketState = 7
)

func (s TicketState) String() string {
	switch s {
	case StateNew:
		return "New"
	case StateInProgress:
		return "In Progress"
	case StateResolved:
		return "Resolved"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Ticket is the incident record mirroring one JIT session. CorrelationID
// holds the session id and is unique across tickets; WorkNotes is the
// append-only audit narrative, one block per processed event.
type Ticket struct {
	ID                 string
	Number             string
	State              TicketState
	CorrelationID      string
	CorrelationDisplay string
	ExternalRequestID  string

	ShortDescription string
	Description      string
	Category         string
	Subcategory      string
	Urgency          string
	Impact           string
	ContactType      string

	CallerID          string
	AssignmentGroupID string
	LocationID        string

	WorkNotes []string

	CloseNotes string
	CloseCode  string
	ResolvedAt *time.Time
	ResolvedBy string
	ClosedAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TicketRef is the lightweight identity returned by correlation lookups.
type TicketRef struct {
	ID                string
	Number            string
	State             TicketState
	CorrelationID     string
	ExternalRequestID string
}

// Ref derives the lookup view of a ticket.
func (t *Ticket) Ref() *TicketRef {
	return &TicketRef{
		ID:                t.ID,
		Number:            t.Number,
		State:             t.State,
		CorrelationID:     t.CorrelationID,
		ExternalRequestID: t.ExternalRequestID,
	}
}

// TicketUpdate describes one transition's write set. Nil pointers leave the
// field untouched; AppendWorkNote adds a narrative block and never replaces
// existing ones.
type TicketUpdate struct {
	State          *TicketState
	AppendWorkNote string
	CloseNotes     *string
	CloseCode      *string
	ResolvedAt     *time.Time
	ResolvedBy     *string
	ClosedAt       *time.Time
}

// ApprovalRecord is the best-effort secondary record marking the ticket
// approved. Its creation failure never rolls back the ticket.
type ApprovalRecord struct {
	TicketID   string
	State      string
	ApproverID string
	Comments   string
	CreatedAt  time.Time
}
