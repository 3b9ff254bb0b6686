package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stillmind/stillmind-hub/internal/domain/meditation"
	"github.com/stillmind/stillmind-hub/internal/domain/shared"
	"github.com/stillmind/stillmind-hub/internal/infrastructure/persistence/postgres"
)

// memStats is an in-memory meditation.Repository.
type memStats struct {
	records map[string]meditation.Stats
	getErr  error
	saveErr error
}

func newMemStats() *memStats {
	return &memStats{records: make(map[string]meditation.Stats)}
}

func (m *memStats) Get(_ context.Context, fid string) (meditation.Stats, error) {
	if m.getErr != nil {
		return meditation.Stats{}, m.getErr
	}
	return m.records[fid], nil
}

func (m *memStats) Save(_ context.Context, fid string, stats meditation.Stats) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[fid] = stats
	return nil
}

// memArchive records appended entries and can be made to fail.
type memArchive struct {
	entries []postgres.SessionEntry
	err     error
}

func (m *memArchive) Append(_ context.Context, entry postgres.SessionEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func fixedClock(s string) func() time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func TestRecordSession_FirstSession(t *testing.T) {
	store := newMemStats()
	h := NewRecordSessionHandler(store, nil, nil, nil).WithClock(fixedClock("2024-01-10"))

	got, err := h.Handle(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, 1, got.TotalSessions)
	assert.Equal(t, 1, got.CurrentStreak)
	assert.Equal(t, got, store.records["42"], "new record persisted")
}

func TestRecordSession_SameDayRepeatDoubleCounts(t *testing.T) {
	store := newMemStats()
	h := NewRecordSessionHandler(store, nil, nil, nil).WithClock(fixedClock("2024-01-10"))

	_, err := h.Handle(context.Background(), "42")
	require.NoError(t, err)
	got, err := h.Handle(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, 2, got.TotalSessions, "counter increments on repeat")
	assert.Equal(t, 1, got.CurrentStreak, "streak does not")
}

func TestRecordSession_MissingFID(t *testing.T) {
	h := NewRecordSessionHandler(newMemStats(), nil, nil, nil)

	_, err := h.Handle(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrMissingFID)
}

func TestRecordSession_StoreErrorPropagates(t *testing.T) {
	store := newMemStats()
	store.getErr = shared.ErrStoreUnavailable
	h := NewRecordSessionHandler(store, nil, nil, nil)

	_, err := h.Handle(context.Background(), "42")
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
}

func TestRecordSession_ArchivesEntry(t *testing.T) {
	store := newMemStats()
	archive := &memArchive{}
	h := NewRecordSessionHandler(store, archive, nil, nil).WithClock(fixedClock("2024-01-10"))

	_, err := h.Handle(context.Background(), "42")
	require.NoError(t, err)

	require.Len(t, archive.entries, 1)
	assert.Equal(t, "42", archive.entries[0].FID)
	assert.Equal(t, 1, archive.entries[0].TotalSessions)
}

func TestRecordSession_ArchiveFailureIsNonFatal(t *testing.T) {
	store := newMemStats()
	archive := &memArchive{err: errors.New("postgres down")}
	h := NewRecordSessionHandler(store, archive, nil, nil).WithClock(fixedClock("2024-01-10"))

	got, err := h.Handle(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalSessions)
}
