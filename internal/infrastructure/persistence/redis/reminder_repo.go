package redis

import (
	"context"
	"errors"
	"strings"

	"github.com/stillmind/stillmind-hub/internal/domain/reminder"
	"github.com/stillmind/stillmind-hub/internal/domain/shared"
)

// ReminderRepository implements reminder.Repository on the KV store.
// The canonical record is the JSON blob under reminder:<fid>; a set of
// enabled fids is maintained alongside it as a cheap subscriber index.
type ReminderRepository struct {
	kv *KV
}

// NewReminderRepository creates a ReminderRepository.
func NewReminderRepository(kv *KV) *ReminderRepository {
	return &ReminderRepository{kv: kv}
}

// Get returns the preference for fid, or the zero value if none is stored.
func (r *ReminderRepository) Get(ctx context.Context, fid string) (reminder.Preference, error) {
	var pref reminder.Preference
	err := r.kv.Get(ctx, ReminderKey(fid), &pref)
	if err != nil {
		if errors.Is(err, ErrKeyMiss) {
			return reminder.Preference{}, nil
		}
		return reminder.Preference{}, shared.WrapError("reminder", "Get",
			shared.ErrStoreUnavailable, "reading preference record", err)
	}
	return pref, nil
}

// Save overwrites the preference for fid and folds the change into the
// subscriber set. The blob write is authoritative; a failed index update is
// surfaced so callers never see a half-applied opt-in.
func (r *ReminderRepository) Save(ctx context.Context, fid string, pref reminder.Preference) error {
	if err := r.kv.Set(ctx, ReminderKey(fid), pref, 0); err != nil {
		return shared.WrapError("reminder", "Save",
			shared.ErrStoreUnavailable, "writing preference record", err)
	}

	var err error
	if pref.Enabled {
		err = r.kv.SAdd(ctx, KeySubscribers, fid)
	} else {
		err = r.kv.SRem(ctx, KeySubscribers, fid)
	}
	if err != nil {
		return shared.WrapError("reminder", "Save",
			shared.ErrStoreUnavailable, "updating subscriber index", err)
	}

	return nil
}

// ListFIDs enumerates every stored preference key via SCAN.
func (r *ReminderRepository) ListFIDs(ctx context.Context) ([]string, error) {
	keys, err := r.kv.ScanKeys(ctx, PrefixReminder+"*")
	if err != nil {
		return nil, shared.WrapError("reminder", "ListFIDs",
			shared.ErrStoreUnavailable, "enumerating preference records", err)
	}

	fids := make([]string, 0, len(keys))
	for _, key := range keys {
		fids = append(fids, strings.TrimPrefix(key, PrefixReminder))
	}
	return fids, nil
}

// SubscriberCount returns the size of the enabled-users index.
func (r *ReminderRepository) SubscriberCount(ctx context.Context) (int64, error) {
	count, err := r.kv.SCard(ctx, KeySubscribers)
	if err != nil {
		return 0, shared.WrapError("reminder", "SubscriberCount",
			shared.ErrStoreUnavailable, "reading subscriber index", err)
	}
	return count, nil
}

// IsSubscribed checks the subscriber index for fid.
func (r *ReminderRepository) IsSubscribed(ctx context.Context, fid string) (bool, error) {
	ok, err := r.kv.SIsMember(ctx, KeySubscribers, fid)
	if err != nil {
		return false, shared.WrapError("reminder", "IsSubscribed",
			shared.ErrStoreUnavailable, "reading subscriber index", err)
	}
	return ok, nil
}
