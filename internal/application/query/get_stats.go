// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"

	"github.com/stillmind/stillmind-hub/internal/domain/meditation"
	"github.com/stillmind/stillmind-hub/internal/domain/shared"
)

// GetStatsHandler serves the meditation ledger to the UI.
type GetStatsHandler struct {
	stats meditation.Repository
}

// NewGetStatsHandler creates a GetStatsHandler.
func NewGetStatsHandler(stats meditation.Repository) *GetStatsHandler {
	return &GetStatsHandler{stats: stats}
}

// Handle returns the record for fid. Users with no history get the zero
// record, never an error.
func (h *GetStatsHandler) Handle(ctx context.Context, fid string) (meditation.Stats, error) {
	if fid == "" {
		return meditation.Stats{}, shared.ErrMissingFID
	}
	return h.stats.Get(ctx, fid)
}
