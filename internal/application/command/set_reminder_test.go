package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stillmind/stillmind-hub/internal/domain/reminder"
	"github.com/stillmind/stillmind-hub/internal/domain/shared"
)

// memPrefs is an in-memory reminder.Repository.
type memPrefs struct {
	records map[string]reminder.Preference
}

func newMemPrefs() *memPrefs {
	return &memPrefs{records: make(map[string]reminder.Preference)}
}

func (m *memPrefs) Get(_ context.Context, fid string) (reminder.Preference, error) {
	return m.records[fid], nil
}

func (m *memPrefs) Save(_ context.Context, fid string, pref reminder.Preference) error {
	m.records[fid] = pref
	return nil
}

func (m *memPrefs) ListFIDs(_ context.Context) ([]string, error) {
	fids := make([]string, 0, len(m.records))
	for fid := range m.records {
		fids = append(fids, fid)
	}
	return fids, nil
}

func (m *memPrefs) SubscriberCount(_ context.Context) (int64, error) {
	var n int64
	for _, pref := range m.records {
		if pref.Enabled {
			n++
		}
	}
	return n, nil
}

func TestSetReminder_OptInWithAddress(t *testing.T) {
	store := newMemPrefs()
	h := NewSetReminderHandler(store, nil)

	got, err := h.Handle(context.Background(), SetReminderCommand{
		FID:     "42",
		Enabled: true,
		Token:   "tok-1",
		URL:     "https://notify.example.com/send",
	})
	require.NoError(t, err)

	assert.True(t, got.Enabled)
	assert.Equal(t, "tok-1", got.Token)
	assert.Equal(t, got, store.records["42"])
}

func TestSetReminder_OptOutKeepsNotificationHistory(t *testing.T) {
	sent := time.Now().UTC().Add(-2 * time.Hour)
	store := newMemPrefs()
	store.records["42"] = reminder.Preference{
		Enabled:              true,
		LastNotificationSent: &sent,
		Token:                "tok-1",
		URL:                  "https://notify.example.com/send",
	}
	h := NewSetReminderHandler(store, nil)

	got, err := h.Handle(context.Background(), SetReminderCommand{FID: "42", Enabled: false})
	require.NoError(t, err)

	assert.False(t, got.Enabled)
	require.NotNil(t, got.LastNotificationSent)
	assert.True(t, got.LastNotificationSent.Equal(sent), "opt-out must not clear the dedup timestamp")
	assert.Equal(t, "tok-1", got.Token, "stored address survives opt-out")
}

func TestSetReminder_ReEnableKeepsDedupWindow(t *testing.T) {
	sent := time.Now().UTC().Add(-1 * time.Hour)
	store := newMemPrefs()
	store.records["42"] = reminder.Preference{LastNotificationSent: &sent}
	h := NewSetReminderHandler(store, nil)

	got, err := h.Handle(context.Background(), SetReminderCommand{FID: "42", Enabled: true})
	require.NoError(t, err)

	assert.True(t, got.RecentlyNotified(time.Now().UTC()),
		"an off/on cycle must not defeat the dedup window")
}

func TestSetReminder_NewAddressReplacesStored(t *testing.T) {
	store := newMemPrefs()
	store.records["42"] = reminder.Preference{Token: "old", URL: "https://old.example.com"}
	h := NewSetReminderHandler(store, nil)

	got, err := h.Handle(context.Background(), SetReminderCommand{
		FID:     "42",
		Enabled: true,
		Token:   "new",
		URL:     "https://new.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "new", got.Token)
	assert.Equal(t, "https://new.example.com", got.URL)
}

func TestSetReminder_Validation(t *testing.T) {
	h := NewSetReminderHandler(newMemPrefs(), nil)

	_, err := h.Handle(context.Background(), SetReminderCommand{Enabled: true})
	assert.ErrorIs(t, err, shared.ErrMissingFID)

	_, err = h.Handle(context.Background(), SetReminderCommand{FID: "42", Token: "tok-only"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput, "token without url is rejected")
}
