// pkg/audit/postgres.go
package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// pgRecorder writes events into the vaultflow_audit table.
type pgRecorder struct {
	dbPool *pgxpool.Pool
}

// NewPostgresRecorder constructs a PostgreSQL-backed recorder.
func NewPostgresRecorder(dbPool *pgxpool.Pool) Recorder {
	return &pgRecorder{dbPool: dbPool}
}

// EnsureSchema creates the audit table if it does not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS vaultflow_audit (
  id uuid PRIMARY KEY,
  operation text NOT NULL,
  role text,
  outcome text NOT NULL,
  code text,
  request_id text,
  at timestamptz NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS vaultflow_audit_at_idx ON vaultflow_audit (at DESC);
`)
	return err
}

func (p *pgRecorder) Record(ctx context.Context, ev Event) error {
	_, err := p.dbPool.Exec(ctx,
		`INSERT INTO vaultflow_audit (id, operation, role, outcome, code, request_id, at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), $7)`,
		ev.ID, ev.Operation, ev.Role, ev.Outcome, ev.Code, ev.RequestID, ev.At)
	return err
}
