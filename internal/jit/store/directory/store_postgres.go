package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SchemaDDL creates the reference data tables mirrored from the
// organizational directory.
const SchemaDDL = `
CREATE TABLE IF NOT EXISTS directory_users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS directory_groups (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS directory_locations (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);
`

// PostgresDirectory resolves organizational reference data from mirrored
// directory tables. Misses return an empty id and no error.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed reference directory.
func NewPostgres(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) UserIDByEmail(ctx context.Context, email string) (string, error) {
	return d.lookup(ctx, `SELECT id FROM directory_users WHERE lower(email) = lower($1)`, email)
}

func (d *PostgresDirectory) GroupIDByName(ctx context.Context, name string) (string, error) {
	return d.lookup(ctx, `SELECT id FROM directory_groups WHERE name = $1`, name)
}

func (d *PostgresDirectory) LocationIDByName(ctx context.Context, name string) (string, error) {
	return d.lookup(ctx, `SELECT id FROM directory_locations WHERE name = $1`, name)
}

func (d *PostgresDirectory) lookup(ctx context.Context, query, arg string) (string, error) {
	if arg == "" {
		return "", nil
	}
	var id string
	err := d.db.QueryRowContext(ctx, query, arg).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("directory lookup: %w", err)
	}
	return id, nil
}
