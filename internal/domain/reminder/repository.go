package reminder

import "context"

// Repository persists reminder preferences. A missing record reads back as
// the zero Preference (reminders off, no history); records are never
// deleted, an opt-out simply flips Enabled off.
type Repository interface {
	// Get returns the preference for fid, or the zero value if none exists.
	Get(ctx context.Context, fid string) (Preference, error)

	// Save overwrites the preference for fid.
	Save(ctx context.Context, fid string, pref Preference) error

	// ListFIDs enumerates every user with a stored preference, enabled or
	// not. Order is unspecified. This is the only call whose failure
	// aborts a whole dispatch run.
	ListFIDs(ctx context.Context) ([]string, error)

	// SubscriberCount returns the number of currently enabled users,
	// served from the subscriber-set index.
	SubscriberCount(ctx context.Context) (int64, error)
}
