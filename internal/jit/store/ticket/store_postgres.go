package ticket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"jitbridge/internal/jit/models"
	"jitbridge/pkg/platform/sentinel"
	"jitbridge/pkg/requestcontext"
)

// SchemaDDL creates the ticket tables. The UNIQUE constraint on
// correlation_id is what turns a concurrent duplicate create into a
// detectable conflict instead of a second ticket.
const SchemaDDL = `
CREATE SEQUENCE IF NOT EXISTS jit_ticket_number_seq;

CREATE TABLE IF NOT EXISTS jit_tickets (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	number TEXT NOT NULL DEFAULT 'INC' || lpad(nextval('jit_ticket_number_seq')::text, 7, '0'),
	state INT NOT NULL,
	correlation_id TEXT NOT NULL UNIQUE,
	correlation_display TEXT NOT NULL DEFAULT '',
	external_reference_id TEXT NOT NULL DEFAULT '',
	short_description TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	subcategory TEXT NOT NULL DEFAULT '',
	urgency TEXT NOT NULL DEFAULT '',
	impact TEXT NOT NULL DEFAULT '',
	contact_type TEXT NOT NULL DEFAULT '',
	caller_id TEXT NOT NULL DEFAULT '',
	assignment_group_id TEXT NOT NULL DEFAULT '',
	location_id TEXT NOT NULL DEFAULT '',
	close_notes TEXT NOT NULL DEFAULT '',
	close_code TEXT NOT NULL DEFAULT '',
	resolved_at TIMESTAMPTZ,
	resolved_by TEXT NOT NULL DEFAULT '',
	closed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS jit_ticket_work_notes (
	ticket_id UUID NOT NULL REFERENCES jit_tickets(id),
	seq INT NOT NULL,
	body TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (ticket_id, seq)
);
`

// PostgresStore persists tickets in PostgreSQL. Work notes live in a
// separate append-only table so narrative ordering survives concurrent
// updates; each update runs as a single read-modify-write under a row lock.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ticket store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, t *models.Ticket) (*models.TicketRef, error) {
	if t == nil || t.CorrelationID == "" {
		return nil, fmt.Errorf("ticket with correlation id is required")
	}
	now := requestcontext.Now(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create ticket: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO jit_tickets (
			state, correlation_id, correlation_display, external_reference_id,
			short_description, description, category, subcategory,
			urgency, impact, contact_type,
			caller_id, assignment_group_id, location_id,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
		RETURNING id, number
	`
	var ref models.TicketRef
	err = tx.QueryRowContext(ctx, query,
		int(t.State), t.CorrelationID, t.CorrelationDisplay, t.ExternalRequestID,
		t.ShortDescription, t.Description, t.Category, t.Subcategory,
		t.Urgency, t.Impact, t.ContactType,
		t.CallerID, t.AssignmentGroupID, t.LocationID,
		now,
	).Scan(&ref.ID, &ref.Number)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	ref.State = t.State
	ref.CorrelationID = t.CorrelationID
	ref.ExternalRequestID = t.ExternalRequestID

	for i, note := range t.WorkNotes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO jit_ticket_work_notes (ticket_id, seq, body, created_at) VALUES ($1, $2, $3, $4)`,
			ref.ID, i+1, note, now,
		); err != nil {
			return nil, fmt.Errorf("create ticket work note: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create ticket: %w", err)
	}
	return &ref, nil
}

// FindByCorrelationID returns the unique ticket for a session id, or nil.
// More than one match means the uniqueness invariant was violated outside
// this system; the lookup fails loudly rather than picking one.
func (s *PostgresStore) FindByCorrelationID(ctx context.Context, correlationID string) (*models.TicketRef, error) {
	if correlationID == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, state, correlation_id, external_reference_id
		FROM jit_tickets
		WHERE correlation_id = $1
	`, correlationID)
	if err != nil {
		return nil, fmt.Errorf("find ticket by correlation id: %w", err)
	}
	defer rows.Close()

	var refs []*models.TicketRef
	for rows.Next() {
		var ref models.TicketRef
		var state int
		if err := rows.Scan(&ref.ID, &ref.Number, &state, &ref.CorrelationID, &ref.ExternalRequestID); err != nil {
			return nil, fmt.Errorf("scan ticket ref: %w", err)
		}
		ref.State = models.TicketState(state)
		refs = append(refs, &ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticket refs: %w", err)
	}
	switch len(refs) {
	case 0:
		return nil, nil
	case 1:
		return refs[0], nil
	default:
		return nil, fmt.Errorf("%w: %d tickets share correlation id %s", sentinel.ErrInvalidState, len(refs), correlationID)
	}
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Ticket, error) {
	var t models.Ticket
	var state int
	var resolvedAt, closedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, number, state, correlation_id, correlation_display, external_reference_id,
		       short_description, description, category, subcategory,
		       urgency, impact, contact_type,
		       caller_id, assignment_group_id, location_id,
		       close_notes, close_code, resolved_at, resolved_by, closed_at,
		       created_at, updated_at
		FROM jit_tickets
		WHERE id = $1
	`, id).Scan(
		&t.ID, &t.Number, &state, &t.CorrelationID, &t.CorrelationDisplay, &t.ExternalRequestID,
		&t.ShortDescription, &t.Description, &t.Category, &t.Subcategory,
		&t.Urgency, &t.Impact, &t.ContactType,
		&t.CallerID, &t.AssignmentGroupID, &t.LocationID,
		&t.CloseNotes, &t.CloseCode, &resolvedAt, &t.ResolvedBy, &closedAt,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	t.State = models.TicketState(state)
	if resolvedAt.Valid {
		t.ResolvedAt = &resolvedAt.Time
	}
	if closedAt.Valid {
		t.ClosedAt = &closedAt.Time
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM jit_ticket_work_notes WHERE ticket_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("get ticket work notes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan work note: %w", err)
		}
		t.WorkNotes = append(t.WorkNotes, body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate work notes: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, update models.TicketUpdate, suppressWorkflow bool) error {
	now := requestcontext.Now(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update ticket: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if suppressWorkflow {
		// Skip table triggers for this transaction, mirroring the ticketing
		// system's force-write escape hatch.
		if _, err := tx.ExecContext(ctx, `SET LOCAL session_replication_role = replica`); err != nil {
			return fmt.Errorf("suppress workflow: %w", err)
		}
	}

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM jit_tickets WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("lock ticket: %w", err)
	}

	if update.AppendWorkNote != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO jit_ticket_work_notes (ticket_id, seq, body, created_at)
			SELECT $1, COALESCE(MAX(seq), 0) + 1, $2, $3
			FROM jit_ticket_work_notes WHERE ticket_id = $1
		`, id, update.AppendWorkNote, now); err != nil {
			return fmt.Errorf("append work note: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE jit_tickets SET
			state = COALESCE($2, state),
			close_notes = COALESCE($3, close_notes),
			close_code = COALESCE($4, close_code),
			resolved_at = COALESCE($5, resolved_at),
			resolved_by = COALESCE($6, resolved_by),
			closed_at = COALESCE($7, closed_at),
			updated_at = $8
		WHERE id = $1
	`, id,
		nullInt(update.State), update.CloseNotes, update.CloseCode,
		update.ResolvedAt, update.ResolvedBy, update.ClosedAt, now,
	); err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update ticket: %w", err)
	}
	return nil
}

func nullInt(state *models.TicketState) any {
	if state == nil {
		return nil
	}
	return int(*state)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
