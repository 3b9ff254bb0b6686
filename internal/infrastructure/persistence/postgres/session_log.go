package postgres

import (
	"context"
	"fmt"
	"time"
)

// SessionEntry is one archived session completion.
type SessionEntry struct {
	FID           string    `json:"fid"`
	CompletedAt   time.Time `json:"completedAt"`
	TotalSessions int       `json:"totalSessions"`
	CurrentStreak int       `json:"currentStreak"`
}

// SessionLog is the append-only session archive.
type SessionLog struct {
	conn *Connection
}

// NewSessionLog creates a SessionLog.
func NewSessionLog(conn *Connection) *SessionLog {
	return &SessionLog{conn: conn}
}

// Append records one completed session. Totals are the values after the
// ledger write, so each row is a snapshot of the user's stats at that point.
func (l *SessionLog) Append(ctx context.Context, entry SessionEntry) error {
	pool := l.conn.Pool()
	if pool == nil {
		return ErrConnectionClosed
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO session_log (fid, completed_at, total_sessions, current_streak)
		VALUES ($1, $2, $3, $4)`,
		entry.FID, entry.CompletedAt, entry.TotalSessions, entry.CurrentStreak,
	)
	if err != nil {
		return fmt.Errorf("appending session entry: %w", err)
	}
	return nil
}

// Recent returns the most recent sessions for a user, newest first.
func (l *SessionLog) Recent(ctx context.Context, fid string, limit int) ([]SessionEntry, error) {
	pool := l.conn.Pool()
	if pool == nil {
		return nil, ErrConnectionClosed
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := pool.Query(ctx, `
		SELECT fid, completed_at, total_sessions, current_streak
		FROM session_log
		WHERE fid = $1
		ORDER BY completed_at DESC
		LIMIT $2`,
		fid, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying session entries: %w", err)
	}
	defer rows.Close()

	entries := make([]SessionEntry, 0, limit)
	for rows.Next() {
		var e SessionEntry
		if err := rows.Scan(&e.FID, &e.CompletedAt, &e.TotalSessions, &e.CurrentStreak); err != nil {
			return nil, fmt.Errorf("scanning session entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session entries: %w", err)
	}

	return entries, nil
}
