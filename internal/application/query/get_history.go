package query

import (
	"context"

	"github.com/stillmind/stillmind-hub/internal/domain/shared"
	"github.com/stillmind/stillmind-hub/internal/infrastructure/persistence/postgres"
)

// HistoryReader reads archived sessions, newest first.
type HistoryReader interface {
	Recent(ctx context.Context, fid string, limit int) ([]postgres.SessionEntry, error)
}

// GetHistoryHandler serves the archived session history. Only available
// when the Postgres archive is configured.
type GetHistoryHandler struct {
	archive HistoryReader
}

// NewGetHistoryHandler creates a GetHistoryHandler. archive may be nil when
// the deployment runs without Postgres.
func NewGetHistoryHandler(archive HistoryReader) *GetHistoryHandler {
	return &GetHistoryHandler{archive: archive}
}

// Enabled reports whether history is served in this deployment.
func (h *GetHistoryHandler) Enabled() bool {
	return h.archive != nil
}

// Handle returns the most recent archived sessions for fid.
func (h *GetHistoryHandler) Handle(ctx context.Context, fid string, limit int) ([]postgres.SessionEntry, error) {
	if fid == "" {
		return nil, shared.ErrMissingFID
	}
	if h.archive == nil {
		return nil, shared.NewDomainError("meditation", "GetHistory", shared.ErrNotFound,
			"session archive is not configured")
	}
	return h.archive.Recent(ctx, fid, limit)
}
