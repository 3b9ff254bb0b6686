package redis

import (
	"context"
	"errors"

	"github.com/stillmind/stillmind-hub/internal/domain/meditation"
	"github.com/stillmind/stillmind-hub/internal/domain/shared"
)

// StatsRepository implements meditation.Repository on the KV store.
// Records live under stats:<namespace>:<fid> with no expiry.
type StatsRepository struct {
	kv        *KV
	namespace string
}

// NewStatsRepository creates a StatsRepository. The namespace keeps this
// deployment's keys apart from other apps sharing the same Redis.
func NewStatsRepository(kv *KV, namespace string) *StatsRepository {
	if namespace == "" {
		namespace = "stillmind"
	}
	return &StatsRepository{kv: kv, namespace: namespace}
}

// Get returns the ledger record for fid. A missing key is not an error: the
// user simply has no history yet.
func (r *StatsRepository) Get(ctx context.Context, fid string) (meditation.Stats, error) {
	var stats meditation.Stats
	err := r.kv.Get(ctx, StatsKey(r.namespace, fid), &stats)
	if err != nil {
		if errors.Is(err, ErrKeyMiss) {
			return meditation.Zero(), nil
		}
		return meditation.Stats{}, shared.WrapError("meditation", "Get",
			shared.ErrStoreUnavailable, "reading stats record", err)
	}
	return stats, nil
}

// Save overwrites the ledger record for fid.
func (r *StatsRepository) Save(ctx context.Context, fid string, stats meditation.Stats) error {
	if err := r.kv.Set(ctx, StatsKey(r.namespace, fid), stats, 0); err != nil {
		return shared.WrapError("meditation", "Save",
			shared.ErrStoreUnavailable, "writing stats record", err)
	}
	return nil
}
