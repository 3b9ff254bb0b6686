// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/stillmind/stillmind-hub/internal/domain/meditation"
	"github.com/stillmind/stillmind-hub/internal/domain/shared"
	"github.com/stillmind/stillmind-hub/internal/infrastructure/persistence/postgres"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD SESSION COMMAND
// Records one completed meditation session: bumps the session counter,
// applies the streak transition, and stamps today's date.
// ══════════════════════════════════════════════════════════════════════════════

// SessionArchive is the optional append-only history sink. Archive failures
// never fail the command - the KV ledger stays authoritative.
type SessionArchive interface {
	Append(ctx context.Context, entry postgres.SessionEntry) error
}

// SessionCounter is the metrics hook for completed sessions.
type SessionCounter interface {
	Inc()
}

// RecordSessionHandler handles session completions from the UI.
type RecordSessionHandler struct {
	stats   meditation.Repository
	archive SessionArchive
	counter SessionCounter
	logger  *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewRecordSessionHandler creates a RecordSessionHandler. archive and
// counter may be nil.
func NewRecordSessionHandler(
	stats meditation.Repository,
	archive SessionArchive,
	counter SessionCounter,
	logger *slog.Logger,
) *RecordSessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordSessionHandler{
		stats:   stats,
		archive: archive,
		counter: counter,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (h *RecordSessionHandler) WithClock(now func() time.Time) *RecordSessionHandler {
	h.now = now
	return h
}

// Handle records one completed session for fid and returns the new record.
//
// Deliberately not idempotent per day: two completions today count two
// sessions (the streak, not the counter, guards same-day repeats). The
// read/modify/write is unguarded; concurrent completions for one user can
// race, which the product accepts.
func (h *RecordSessionHandler) Handle(ctx context.Context, fid string) (meditation.Stats, error) {
	if fid == "" {
		return meditation.Stats{}, shared.ErrMissingFID
	}

	now := h.now()

	current, err := h.stats.Get(ctx, fid)
	if err != nil {
		return meditation.Stats{}, err
	}

	updated := current.Advance(now)

	if err := h.stats.Save(ctx, fid, updated); err != nil {
		return meditation.Stats{}, err
	}

	if h.counter != nil {
		h.counter.Inc()
	}

	if h.archive != nil {
		entry := postgres.SessionEntry{
			FID:           fid,
			CompletedAt:   now.UTC(),
			TotalSessions: updated.TotalSessions,
			CurrentStreak: updated.CurrentStreak,
		}
		if err := h.archive.Append(ctx, entry); err != nil {
			h.logger.Warn("session archive append failed",
				"fid", fid,
				"error", err,
			)
		}
	}

	return updated, nil
}
