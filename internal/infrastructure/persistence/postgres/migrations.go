package postgres

import (
	"context"
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE SESSION LOG
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create session log table
-- Version: 001

-- Append-only archive of completed meditation sessions. The Redis ledger is
-- authoritative for current stats; this table serves history queries and
-- offline analysis.
CREATE TABLE IF NOT EXISTS session_log (
    id BIGSERIAL PRIMARY KEY,
    fid VARCHAR(64) NOT NULL,
    completed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    total_sessions INTEGER NOT NULL,
    current_streak INTEGER NOT NULL,

    CONSTRAINT valid_total_sessions CHECK (total_sessions > 0),
    CONSTRAINT valid_current_streak CHECK (current_streak >= 1)
);

CREATE INDEX IF NOT EXISTS idx_session_log_fid ON session_log(fid, completed_at DESC);
CREATE INDEX IF NOT EXISTS idx_session_log_completed ON session_log(completed_at DESC);
`

// migrations lists every migration in order.
var migrations = []struct {
	version int
	up      string
}{
	{1, migration001Up},
}

// Migrator applies pending schema migrations.
type Migrator struct {
	conn *Connection
}

// NewMigrator creates a Migrator.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{conn: conn}
}

// Migrate applies all migrations that have not run yet. Applied versions are
// tracked in schema_migrations; reruns are no-ops.
func (m *Migrator) Migrate(ctx context.Context) error {
	pool := m.conn.Pool()
	if pool == nil {
		return ErrConnectionClosed
	}

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("%w: creating schema_migrations: %v", ErrMigrationFailed, err)
	}

	for _, mig := range migrations {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`,
			mig.version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("%w: checking version %d: %v", ErrMigrationFailed, mig.version, err)
		}
		if exists {
			continue
		}

		if _, err := pool.Exec(ctx, mig.up); err != nil {
			return fmt.Errorf("%w: applying version %d: %v", ErrMigrationFailed, mig.version, err)
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1)`, mig.version,
		); err != nil {
			return fmt.Errorf("%w: recording version %d: %v", ErrMigrationFailed, mig.version, err)
		}
	}

	return nil
}
