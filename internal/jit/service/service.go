package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	jitmetrics "jitbridge/internal/jit/metrics"
	"jitbridge/internal/jit/models"
	"jitbridge/internal/jit/narrative"
	dErrors "jitbridge/pkg/domain-errors"
	"jitbridge/pkg/platform/sentinel"
	"jitbridge/pkg/requestcontext"
)

// Ticket field constants mirroring the downstream ticketing configuration.
const (
	categorySecurity      = "Security"
	subcategoryAccessMgmt = "Access Management"
	urgencyLow            = "3"
	impactLow             = "3"
	contactTypeMonitoring = "monitoring system"
	closeCodeResolved     = "Closed/Resolved by caller"
	resolvedBySystem      = "jitbridge"
)

// TicketStore is the outbound ticket adapter. Create returns
// sentinel.ErrConflict when the correlation id is already taken, which is how
// a concurrent duplicate approval becomes detectable instead of a second
// ticket. FindByCorrelationID returns (nil, nil) when no ticket exists and an
// error wrapping sentinel.ErrInvalidState when more than one does.
type TicketStore interface {
	Create(ctx context.Context, t *models.Ticket) (*models.TicketRef, error)
	FindByCorrelationID(ctx context.Context, correlationID string) (*models.TicketRef, error)
	Get(ctx context.Context, id string) (*models.Ticket, error)
	Update(ctx context.Context, id string, update models.TicketUpdate, suppressWorkflow bool) error
}

// ApprovalStore records the best-effort approval side record.
type ApprovalStore interface {
	Create(ctx context.Context, record *models.ApprovalRecord) error
}

// Directory resolves organizational reference data. Misses return an empty
// id and no error; a directory outage degrades to unset fields.
type Directory interface {
	UserIDByEmail(ctx context.Context, email string) (string, error)
	GroupIDByName(ctx context.Context, name string) (string, error)
	LocationIDByName(ctx context.Context, name string) (string, error)
}

// CorrelationCache is an optional fast path for the session id -> ticket id
// mapping. The ticket store stays authoritative.
type CorrelationCache interface {
	Get(ctx context.Context, sessionID string) (string, error)
	Put(ctx context.Context, sessionID, ticketID string) error
}

// Defaults are the routing values applied to every created ticket.
type Defaults struct {
	AssignmentGroup string
	Location        string
	// FallbackCallerID is used when the requester email resolves to no
	// directory user.
	FallbackCallerID string
}

// Service is the event correlation and ticket lifecycle state machine. One
// call to Process handles one validated event as a single read-modify-write
// against the ticket store.
type Service struct {
	tickets   TicketStore
	approvals ApprovalStore
	directory Directory
	cache     CorrelationCache
	defaults  Defaults
	logger    *slog.Logger
	metrics   *jitmetrics.Metrics
	tracer    trace.Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the Prometheus metrics sink.
func WithMetrics(m *jitmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCorrelationCache sets the optional session lookup cache.
func WithCorrelationCache(cache CorrelationCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithDefaults sets the ticket routing defaults.
func WithDefaults(d Defaults) Option {
	return func(s *Service) { s.defaults = d }
}

// New constructs the lifecycle service with its required collaborators.
func New(tickets TicketStore, approvals ApprovalStore, directory Directory, opts ...Option) *Service {
	s := &Service{
		tickets:   tickets,
		approvals: approvals,
		directory: directory,
		tracer:    otel.Tracer("jitbridge/jit"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Process validates the envelope, dispatches the event to its transition and
// returns the structured outcome. Validation and correlation failures return
// before any side effect.
func (s *Service) Process(ctx context.Context, event models.Event) (*Outcome, error) {
	if err := event.Validate(); err != nil {
		s.metrics.RecordEvent(string(event.EventName), "rejected")
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "jit.process", trace.WithAttributes(
		attribute.String("jit.event_name", string(event.EventName)),
		attribute.String("jit.event_id", event.EventID),
	))
	defer span.End()

	s.logger.InfoContext(ctx, "processing event",
		"event_name", event.EventName,
		"event_id", event.EventID,
		"request_id", requestcontext.RequestID(ctx),
	)

	start := time.Now()
	var outcome *Outcome
	var err error
	switch event.EventName {
	case models.EventApproved:
		outcome, err = s.approveSession(ctx, event)
	case models.EventExpired:
		outcome, err = s.resolveSession(ctx, event, narrative.CloseExpired)
	case models.EventRevoked:
		outcome, err = s.resolveSession(ctx, event, narrative.CloseRevoked)
	case models.EventSummaryCreated:
		outcome, err = s.closeWithSummary(ctx, event)
	}
	s.metrics.ObserveTransition(string(event.EventName), time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		s.metrics.RecordEvent(string(event.EventName), errorOutcomeLabel(err))
		return nil, err
	}
	s.metrics.RecordEvent(string(event.EventName), outcome.metricLabel)
	return outcome, nil
}

// approveSession creates the ticket for a newly approved session. A second
// approval for the same session id always reports the existing ticket as a
// conflict, whether it loses the lookup or the create.
func (s *Service) approveSession(ctx context.Context, event models.Event) (*Outcome, error) {
	p, err := models.DecodeApproved(event.Payload)
	if err != nil {
		return nil, err
	}

	existing, err := s.findTicket(ctx, p.JITSessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, duplicateSessionError(p.JITSessionID, existing)
	}

	now := requestcontext.Now(ctx)
	ticket := &models.Ticket{
		State:              models.StateInProgress,
		CorrelationID:      p.JITSessionID,
		CorrelationDisplay: "JIT Session: " + p.JITSessionID,
		ExternalRequestID:  p.PondRequestID,
		ShortDescription:   narrative.ShortDescription(p),
		Description:        narrative.ApprovedDescription(p),
		Category:           categorySecurity,
		Subcategory:        subcategoryAccessMgmt,
		Urgency:            urgencyLow,
		Impact:             impactLow,
		ContactType:        contactTypeMonitoring,
		WorkNotes:          []string{narrative.ApprovedBlock(p, event.EventID, now)},
	}

	ticket.AssignmentGroupID = s.lookupGroup(ctx, s.defaults.AssignmentGroup)
	ticket.LocationID = s.lookupLocation(ctx, s.defaults.Location)
	ticket.CallerID = s.lookupCaller(ctx, p.RequesterEmail)

	ref, err := s.tickets.Create(ctx, ticket)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost the create race; report the winner for idempotent handling.
			winner, ferr := s.tickets.FindByCorrelationID(ctx, p.JITSessionID)
			if ferr != nil || winner == nil {
				return nil, dErrors.New(dErrors.CodeConflict, "ticket already exists for this jitSessionId")
			}
			return nil, duplicateSessionError(p.JITSessionID, winner)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create ticket")
	}

	s.createApprovalRecord(ctx, ref.ID, p)
	s.cachePut(ctx, p.JITSessionID, ref.ID)

	s.metrics.IncrementTicketsCreated()
	s.logger.InfoContext(ctx, "ticket created for approved session",
		"ticket_number", ref.Number,
		"jit_session_id", p.JITSessionID,
	)

	return &Outcome{
		EventName:     event.EventName,
		TicketID:      ref.ID,
		TicketNumber:  ref.Number,
		SessionID:     p.JITSessionID,
		PondRequestID: p.PondRequestID,
		State:         models.StateInProgress,
		Created:       true,
		Status:        "JIT access approved and tracked",
		metricLabel:   "created",
	}, nil
}

// resolveSession handles expired and revoked, which share one transition and
// differ only in narrative content and close reason. A session arriving after
// its ticket was already closed by a summary appends its narrative block
// without touching the terminal state, so the audit trail stays complete
// under out-of-order delivery.
func (s *Service) resolveSession(ctx context.Context, event models.Event, kind narrative.CloseKind) (*Outcome, error) {
	var sessionID, pondRequestID, expireAt, actionedAt, actionedBy string
	if kind == narrative.CloseRevoked {
		p, err := models.DecodeRevoked(event.Payload)
		if err != nil {
			return nil, err
		}
		sessionID, pondRequestID = p.JITSessionID, p.PondRequestID
		actionedAt, actionedBy = p.ActionedAt.String(), p.ActionedByName
	} else {
		p, err := models.DecodeExpired(event.Payload)
		if err != nil {
			return nil, err
		}
		sessionID, pondRequestID = p.JITSessionID, p.PondRequestID
		expireAt = p.ExpireAt.String()
	}

	ref, err := s.findTicket(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, sessionNotFoundError(sessionID, event.EventName)
	}

	now := requestcontext.Now(ctx)
	block := narrative.ClosedBlock(kind, expireAt, actionedAt, actionedBy, event.EventID, now)

	switch ref.State {
	case models.StateNew, models.StateInProgress:
		state := models.StateResolved
		closeNotes := "JIT session " + string(kind)
		if kind == narrative.CloseRevoked {
			closeNotes += " by " + actionedBy
		}
		closeCode := closeCodeResolved
		resolvedBy := resolvedBySystem
		update := models.TicketUpdate{
			State:          &state,
			AppendWorkNote: block,
			CloseNotes:     &closeNotes,
			CloseCode:      &closeCode,
			ResolvedAt:     &now,
			ResolvedBy:     &resolvedBy,
		}
		if err := s.updateWithRetry(ctx, ref.ID, update); err != nil {
			return nil, err
		}
		outcome := &Outcome{
			EventName:     event.EventName,
			TicketID:      ref.ID,
			TicketNumber:  ref.Number,
			SessionID:     sessionID,
			PondRequestID: pondRequestID,
			State:         models.StateResolved,
			CloseNotes:    closeNotes,
			Status:        "JIT " + string(kind) + " recorded, incident resolved",
			metricLabel:   "resolved",
		}
		if kind == narrative.CloseRevoked {
			outcome.RevokedBy = actionedBy
		}
		return outcome, nil

	case models.StateClosed:
		// Late arrival after the summary closed the ticket: the block is
		// still appended so no narrative is ever dropped, but the terminal
		// state and close reason stand.
		update := models.TicketUpdate{AppendWorkNote: block}
		if err := s.updateWithRetry(ctx, ref.ID, update); err != nil {
			return nil, err
		}
		outcome := &Outcome{
			EventName:     event.EventName,
			TicketID:      ref.ID,
			TicketNumber:  ref.Number,
			SessionID:     sessionID,
			PondRequestID: pondRequestID,
			State:         models.StateClosed,
			Status:        "JIT " + string(kind) + " recorded after closure, incident unchanged",
			metricLabel:   "late_note",
		}
		if kind == narrative.CloseRevoked {
			outcome.RevokedBy = actionedBy
		}
		return outcome, nil

	default: // StateResolved: a second closing event is a duplicate
		return nil, dErrors.New(dErrors.CodeConflict, "JIT session already resolved").
			WithDetails(map[string]any{
				"jit_session_id":  sessionID,
				"incident_number": ref.Number,
				"incident_id":     ref.ID,
			})
	}
}

// closeWithSummary attaches the activity summary and closes the ticket. It
// accepts the ticket in InProgress as well as Resolved because delivery order
// between session end and summary generation is not guaranteed.
func (s *Service) closeWithSummary(ctx context.Context, event models.Event) (*Outcome, error) {
	p, err := models.DecodeSummary(event.Payload)
	if err != nil {
		return nil, err
	}
	sessionID := p.Summary.SessionID

	ref, err := s.findTicket(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no ticket found for jitSessionId").
			WithDetails(map[string]any{
				"jit_session_id": sessionID,
				"event_name":     string(event.EventName),
				"message":        "the corresponding jit.approved ticket must exist before processing summary",
			})
	}
	if ref.State == models.StateClosed {
		return nil, dErrors.New(dErrors.CodeConflict, "ticket already closed for this jitSessionId").
			WithDetails(map[string]any{
				"jit_session_id":  sessionID,
				"incident_number": ref.Number,
				"incident_id":     ref.ID,
			})
	}

	now := requestcontext.Now(ctx)
	state := models.StateClosed
	closeNotes := "JIT session completed with activity summary attached"
	update := models.TicketUpdate{
		State:          &state,
		AppendWorkNote: narrative.SummaryBlock(p, event.EventID, now),
		CloseNotes:     &closeNotes,
		ClosedAt:       &now,
	}
	if err := s.updateWithRetry(ctx, ref.ID, update); err != nil {
		return nil, err
	}

	pondRequestID := ref.ExternalRequestID
	if p.Session != nil && p.Session.PondRequestID != "" {
		pondRequestID = p.Session.PondRequestID
	}
	s.logger.InfoContext(ctx, "ticket closed with activity summary",
		"ticket_number", ref.Number,
		"jit_session_id", sessionID,
	)

	return &Outcome{
		EventName:     event.EventName,
		TicketID:      ref.ID,
		TicketNumber:  ref.Number,
		SessionID:     sessionID,
		PondRequestID: pondRequestID,
		State:         models.StateClosed,
		CloseNotes:    closeNotes,
		SummaryID:     p.Summary.ID,
		SummaryStatus: p.Summary.Status,
		Status:        "JIT summary recorded, incident closed",
		metricLabel:   "closed",
	}, nil
}

// findTicket is the session correlation index: cache fast path first, ticket
// store as the authority. Cache failures degrade to a store lookup.
func (s *Service) findTicket(ctx context.Context, sessionID string) (*models.TicketRef, error) {
	if s.cache != nil {
		ticketID, err := s.cache.Get(ctx, sessionID)
		if err != nil {
			s.logger.WarnContext(ctx, "correlation cache read failed", "error", err)
		} else if ticketID != "" {
			if t, err := s.tickets.Get(ctx, ticketID); err == nil {
				return t.Ref(), nil
			}
		}
	}

	ref, err := s.tickets.FindByCorrelationID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "correlation index integrity violation")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "ticket lookup failed")
	}
	if ref != nil {
		s.cachePut(ctx, sessionID, ref.ID)
	}
	return ref, nil
}

// updateWithRetry performs the transition write, retrying once with workflow
// side effects suppressed before reporting a persistence failure. The ticket
// keeps its prior state when both attempts fail.
func (s *Service) updateWithRetry(ctx context.Context, ticketID string, update models.TicketUpdate) error {
	err := s.tickets.Update(ctx, ticketID, update, false)
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "ticket disappeared during update")
	}
	s.logger.WarnContext(ctx, "ticket update rejected, retrying with workflow suppressed",
		"ticket_id", ticketID,
		"error", err,
	)
	if err := s.tickets.Update(ctx, ticketID, update, true); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "ticket update failed after retry")
	}
	return nil
}

// createApprovalRecord is best-effort: a failure is logged and never fails
// the parent transition.
func (s *Service) createApprovalRecord(ctx context.Context, ticketID string, p *models.ApprovedPayload) {
	approverID, err := s.directory.UserIDByEmail(ctx, p.ActionedByName)
	if err != nil {
		s.logger.WarnContext(ctx, "approver lookup failed", "error", err)
	}
	comments := p.ApproverComment
	if comments == "" {
		comments = "JIT access approved via automated system"
	}
	record := &models.ApprovalRecord{
		TicketID:   ticketID,
		State:      "approved",
		ApproverID: approverID,
		Comments:   comments,
	}
	if err := s.approvals.Create(ctx, record); err != nil {
		s.logger.ErrorContext(ctx, "failed to create approval record",
			"ticket_id", ticketID,
			"error", err,
		)
	}
}

func (s *Service) lookupGroup(ctx context.Context, name string) string {
	id, err := s.directory.GroupIDByName(ctx, name)
	if err != nil {
		s.logger.WarnContext(ctx, "assignment group lookup failed", "group", name, "error", err)
		return ""
	}
	if id == "" && name != "" {
		s.logger.WarnContext(ctx, "no assignment group found", "group", name)
	}
	return id
}

func (s *Service) lookupLocation(ctx context.Context, name string) string {
	id, err := s.directory.LocationIDByName(ctx, name)
	if err != nil {
		s.logger.WarnContext(ctx, "location lookup failed", "location", name, "error", err)
		return ""
	}
	if id == "" && name != "" {
		s.logger.WarnContext(ctx, "no location found", "location", name)
	}
	return id
}

func (s *Service) lookupCaller(ctx context.Context, email string) string {
	id, err := s.directory.UserIDByEmail(ctx, email)
	if err != nil {
		s.logger.WarnContext(ctx, "caller lookup failed", "error", err)
	}
	if id == "" {
		if email != "" {
			s.logger.WarnContext(ctx, "no user found for requester email")
		}
		return s.defaults.FallbackCallerID
	}
	return id
}

func (s *Service) cachePut(ctx context.Context, sessionID, ticketID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, sessionID, ticketID); err != nil {
		s.logger.WarnContext(ctx, "correlation cache write failed", "error", err)
	}
}

func duplicateSessionError(sessionID string, existing *models.TicketRef) error {
	return dErrors.New(dErrors.CodeConflict, "ticket already exists for this jitSessionId").
		WithDetails(map[string]any{
			"jit_session_id":    sessionID,
			"existing_incident": existing.Number,
			"incident_id":       existing.ID,
		})
}

func sessionNotFoundError(sessionID string, eventName models.EventName) error {
	return dErrors.New(dErrors.CodeNotFound, "no ticket found for jitSessionId").
		WithDetails(map[string]any{
			"jit_session_id": sessionID,
			"event_name":     string(eventName),
		})
}

func errorOutcomeLabel(err error) string {
	switch dErrors.GetCode(err) {
	case dErrors.CodeConflict:
		return "duplicate"
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeBadRequest:
		return "rejected"
	default:
		return "error"
	}
}
