package approval

import (
	"context"
	"database/sql"
	"fmt"

	"jitbridge/internal/jit/models"
	"jitbridge/pkg/requestcontext"
)

// SchemaDDL creates the approval record table.
const SchemaDDL = `
CREATE TABLE IF NOT EXISTS jit_approvals (
	id BIGSERIAL PRIMARY KEY,
	ticket_id UUID NOT NULL,
	state TEXT NOT NULL,
	approver_id TEXT NOT NULL DEFAULT '',
	comments TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);
`

// PostgresStore persists approval records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed approval store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, record *models.ApprovalRecord) error {
	if record == nil {
		return fmt.Errorf("approval record is required")
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = requestcontext.Now(ctx)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jit_approvals (ticket_id, state, approver_id, comments, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, record.TicketID, record.State, record.ApproverID, record.Comments, createdAt)
	if err != nil {
		return fmt.Errorf("create approval record: %w", err)
	}
	return nil
}
