package meditation

import "context"

// Repository persists per-user ledger records. Implementations must treat a
// missing record as the zero value rather than an error; only store
// unavailability is reported as a failure.
type Repository interface {
	// Get returns the record for fid, or Zero() if none exists.
	Get(ctx context.Context, fid string) (Stats, error)

	// Save overwrites the record for fid.
	Save(ctx context.Context, fid string, stats Stats) error
}
